package alerting

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadThresholdsMissingFileYieldsDefaults(t *testing.T) {
	got, err := LoadThresholds(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, DefaultThresholds()) {
		t.Fatal("missing file must yield the default rule set")
	}
}

func TestSaveLoadThresholdsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")

	want := DefaultThresholds()
	want[0].Value = 90 // customized rule survives the round trip

	if err := SaveThresholds(path, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := LoadThresholds(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadThresholdsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	if _, err := LoadThresholds(path); err == nil {
		t.Fatal("expected error for malformed thresholds file")
	}
}

func TestLoadThresholdsEmptyDocumentYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(path, []byte("version: \"1.0\"\nthresholds: []\n"), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	got, err := LoadThresholds(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, DefaultThresholds()) {
		t.Fatal("empty rule list must fall back to defaults")
	}
}
