package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
}

func TestShouldRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.json")
	r := NewRotator(100, false, 30, nil)

	if r.ShouldRotate(path) {
		t.Fatal("missing file must not rotate")
	}

	writeFile(t, path, 99)
	if r.ShouldRotate(path) {
		t.Fatal("file below limit must not rotate")
	}

	writeFile(t, path, 100)
	if !r.ShouldRotate(path) {
		t.Fatal("file at limit must rotate")
	}
}

func TestRotateFileUncompressed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.json")
	writeFile(t, path, 50)

	r := NewRotator(10, false, 30, nil)
	rotated := r.RotateFile(path)
	if rotated == "" {
		t.Fatal("expected rotation to succeed")
	}
	if !strings.HasSuffix(rotated, ".json") {
		t.Fatalf("rotated name must keep extension, got %q", rotated)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("original file must be gone after rotation")
	}
	info, err := os.Stat(rotated)
	if err != nil {
		t.Fatalf("rotated file missing: %v", err)
	}
	if info.Size() != 50 {
		t.Fatalf("rotated file size = %d, want 50", info.Size())
	}
}

func TestRotateFileCompressedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.json")
	content := []byte(`{"version":"1.0","events":[{"event_id":"a"}]}`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	r := NewRotator(10, true, 30, nil)
	rotated := r.RotateFile(path)
	if !strings.HasSuffix(rotated, ".json.gz") {
		t.Fatalf("expected .json.gz suffix, got %q", rotated)
	}

	// Only the compressed copy remains.
	uncompressed := strings.TrimSuffix(rotated, ".gz")
	if _, err := os.Stat(uncompressed); !os.IsNotExist(err) {
		t.Fatal("uncompressed rotated copy must be removed")
	}

	// Decompression reproduces the original bytes exactly.
	restored, err := r.DecompressFile(rotated, filepath.Join(dir, "restored.json"))
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}
	got, err := os.ReadFile(restored)
	if err != nil {
		t.Fatalf("reading restored file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("restored content differs:\n got %s\nwant %s", got, content)
	}
}

func TestRotateFileMissingSource(t *testing.T) {
	r := NewRotator(10, true, 30, nil)
	if rotated := r.RotateFile(filepath.Join(t.TempDir(), "nope.json")); rotated != "" {
		t.Fatalf("expected empty path for missing source, got %q", rotated)
	}
}

func TestCleanupOldFilesRetentionBoundary(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "events.20250101_000000.json.gz")
	fresh := filepath.Join(dir, "events.20260828_000000.json.gz")
	writeFile(t, old, 10)
	writeFile(t, fresh, 10)

	// Age the old file one day past the retention window.
	expired := time.Now().AddDate(0, 0, -31)
	if err := os.Chtimes(old, expired, expired); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	r := NewRotator(10, true, 30, nil)
	r.CleanupOldFiles(dir, "events.*.json*")

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expired file must be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("file inside retention window must survive")
	}
}

func TestRotatedFilesExcludesOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.json")
	writeFile(t, path, 10)
	writeFile(t, filepath.Join(dir, "events.20260101_000000.json.gz"), 10)
	writeFile(t, filepath.Join(dir, "events.20260201_000000.json"), 10)

	r := NewRotator(10, true, 30, nil)
	rotated := r.RotatedFiles(path)
	if len(rotated) != 2 {
		t.Fatalf("expected 2 rotated files, got %d: %v", len(rotated), rotated)
	}
	for _, f := range rotated {
		if f == path {
			t.Fatal("original path must be excluded from rotated listing")
		}
	}
}
