package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BasePath != dir {
		t.Fatalf("base path = %q, want %q", cfg.BasePath, dir)
	}
	if cfg.BufferSize != 50 || !cfg.AutoFlush || !cfg.SQLiteEnabled {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxFileSizeBytes != 1<<20 || cfg.RetentionDays != 30 {
		t.Fatalf("unexpected rotation defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
storage:
  events_file: custom.json
collector:
  buffer_size: 10
  auto_flush: false
rotation:
  retention_days: 7
`
	if err := os.WriteFile(filepath.Join(dir, ".devpulse.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EventsFile != "custom.json" {
		t.Fatalf("events file = %q, want custom.json", cfg.EventsFile)
	}
	if cfg.BufferSize != 10 || cfg.AutoFlush {
		t.Fatalf("collector overrides not applied: %+v", cfg)
	}
	if cfg.RetentionDays != 7 {
		t.Fatalf("retention days = %d, want 7", cfg.RetentionDays)
	}
	// Untouched keys keep their defaults.
	if cfg.DatabaseFile != "events.db" {
		t.Fatalf("database file = %q, want default", cfg.DatabaseFile)
	}
}

func TestLoadRejectsNonPositiveBufferSize(t *testing.T) {
	dir := t.TempDir()
	content := "collector:\n  buffer_size: 0\n"
	if err := os.WriteFile(filepath.Join(dir, ".devpulse.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected validation error for zero buffer size")
	}
}

func TestResolvePath(t *testing.T) {
	cfg := Default("/data/telemetry")

	if got := cfg.ResolvePath("events.json"); got != filepath.Join("/data/telemetry", "events.json") {
		t.Fatalf("relative resolve = %q", got)
	}
	if got := cfg.ResolvePath("/var/lib/events.json"); got != "/var/lib/events.json" {
		t.Fatalf("absolute path must pass through, got %q", got)
	}
}
