package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/valter-silva-au/devpulse/pkg/models"
)

func TestResolveBasePath_HomeSet(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("DEVPULSE_HOME", tmpDir)

	if got := ResolveBasePath(); got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, tmpDir)
	}
}

func TestResolveBasePath_FindsConfigFile(t *testing.T) {
	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	subDir := filepath.Join(tmpDir, "sub", "nested")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".devpulse.yaml"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DEVPULSE_HOME", "")
	t.Chdir(subDir)

	if got := ResolveBasePath(); got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, tmpDir)
	}
}

func TestNewAppWiresServices(t *testing.T) {
	tmpDir := t.TempDir()

	app, err := NewApp(tmpDir)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Close()

	if app.Collector == nil || app.Analyzer == nil || app.Monitor == nil || app.Tracker == nil {
		t.Fatal("expected all services to be wired")
	}
	if app.DB == nil {
		t.Fatal("expected the relational store to be enabled by default")
	}
}

func TestAppEndToEndCollectAndSummarize(t *testing.T) {
	tmpDir := t.TempDir()

	app, err := NewApp(tmpDir)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Close()

	id := app.Collector.Collect(&models.TaskEvent{
		Event:      models.Event{EventType: models.EventTaskCompleted},
		DurationMS: 150,
		Success:    true,
	})
	if id == "" {
		t.Fatal("expected an event id")
	}

	summary := app.Analyzer.CalculateSummary("day", nil, nil)
	if summary.TotalTasks != 1 || summary.SuccessRate != 100 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if alerts := app.Monitor.CheckThresholds(summary); alerts != nil {
		t.Fatalf("healthy summary must not raise alerts, got %v", alerts)
	}
}
