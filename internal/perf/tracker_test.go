package perf

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	return NewTracker(filepath.Join(t.TempDir(), "measurements.json"), nil)
}

func TestStartStopTimer(t *testing.T) {
	tr := newTestTracker(t)

	tr.StartTimer("op-1")
	time.Sleep(5 * time.Millisecond)
	elapsed := tr.StopTimer("op-1", "db_query", nil)
	if elapsed <= 0 {
		t.Fatalf("elapsed = %v, want > 0", elapsed)
	}

	m := tr.GetMetrics("db_query", 1)
	if m.Count != 1 {
		t.Fatalf("expected 1 measurement, got %d", m.Count)
	}
}

func TestStopUnknownTimer(t *testing.T) {
	tr := newTestTracker(t)

	if elapsed := tr.StopTimer("never-started", "db_query", nil); elapsed != 0 {
		t.Fatalf("unknown timer must return 0, got %v", elapsed)
	}
	if m := tr.GetMetrics("", 1); m.Count != 0 {
		t.Fatalf("unknown timer must record nothing, got %d measurements", m.Count)
	}
}

func TestGetMetricsAggregation(t *testing.T) {
	tr := newTestTracker(t)

	for _, d := range []float64{100, 200, 300} {
		tr.RecordMeasurement("parse", d, 10, 50, nil)
	}
	tr.RecordMeasurement("write", 1000, 20, 100, nil)

	m := tr.GetMetrics("", 1)
	if m.Count != 4 {
		t.Fatalf("count = %d, want 4", m.Count)
	}
	if m.MinDurationMS != 100 || m.MaxDurationMS != 1000 {
		t.Fatalf("min/max = %v/%v, want 100/1000", m.MinDurationMS, m.MaxDurationMS)
	}
	if m.AvgDurationMS != 400 {
		t.Fatalf("avg = %v, want 400", m.AvgDurationMS)
	}
	if m.PeakMemoryMB != 100 {
		t.Fatalf("peak memory = %v, want 100", m.PeakMemoryMB)
	}
	if m.ThroughputPerSec != 4.0/3600 {
		t.Fatalf("throughput = %v, want %v", m.ThroughputPerSec, 4.0/3600)
	}

	parse := m.ByOperation["parse"]
	if parse.Count != 3 || parse.AvgDurationMS != 200 || parse.MinDurationMS != 100 || parse.MaxDurationMS != 300 {
		t.Fatalf("unexpected parse breakdown: %+v", parse)
	}

	// Type filter restricts the window.
	if got := tr.GetMetrics("write", 1); got.Count != 1 || got.AvgDurationMS != 1000 {
		t.Fatalf("unexpected filtered metrics: %+v", got)
	}
}

func TestGetMetricsEmptyWindow(t *testing.T) {
	tr := newTestTracker(t)
	m := tr.GetMetrics("", 1)
	if m.Count != 0 || m.AvgDurationMS != 0 || m.P95DurationMS != 0 {
		t.Fatalf("empty window must yield zero metrics, got %+v", m)
	}
}

func TestSlowestOperations(t *testing.T) {
	tr := newTestTracker(t)

	tr.RecordMeasurement("a", 100, 0, 0, nil)
	tr.RecordMeasurement("b", 500, 0, 0, nil)
	tr.RecordMeasurement("c", 300, 0, 0, nil)

	slow := tr.SlowestOperations(2, "")
	if len(slow) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(slow))
	}
	if slow[0].OperationType != "b" || slow[1].OperationType != "c" {
		t.Fatalf("expected slowest-first order, got %s, %s", slow[0].OperationType, slow[1].OperationType)
	}
}

func TestCurrentMetricsInFlight(t *testing.T) {
	tr := newTestTracker(t)

	tr.StartTimer("pending-1")
	tr.StartTimer("pending-2")

	m := tr.CurrentMetrics()
	if m.InFlight != 2 {
		t.Fatalf("in flight = %d, want 2", m.InFlight)
	}

	tr.StopTimer("pending-1", "op", nil)
	if got := tr.CurrentMetrics().InFlight; got != 1 {
		t.Fatalf("in flight after stop = %d, want 1", got)
	}
}

func TestPersistenceAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "measurements.json")

	tr := NewTracker(path, nil)
	tr.RecordMeasurement("op", 250, 0, 0, map[string]string{"k": "v"})
	tr.Flush()

	reloaded := NewTracker(path, nil)
	m := reloaded.GetMetrics("op", 1)
	if m.Count != 1 || m.AvgDurationMS != 250 {
		t.Fatalf("expected reloaded measurement, got %+v", m)
	}
}

func TestClearOldMeasurements(t *testing.T) {
	tr := newTestTracker(t)

	tr.RecordMeasurement("fresh", 100, 0, 0, nil)
	// Backdate one measurement past the retention window.
	tr.mu.Lock()
	tr.measurements = append(tr.measurements, Measurement{
		OperationType: "stale",
		DurationMS:    100,
		Timestamp:     time.Now().UTC().AddDate(0, 0, -8),
	})
	tr.mu.Unlock()

	if removed := tr.ClearOldMeasurements(7); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if slow := tr.SlowestOperations(0, "stale"); len(slow) != 0 {
		t.Fatal("stale measurement must be gone")
	}
	if slow := tr.SlowestOperations(0, "fresh"); len(slow) != 1 {
		t.Fatal("fresh measurement must survive")
	}
}

func TestTimeOperationRecordsOnError(t *testing.T) {
	tr := newTestTracker(t)

	wantErr := errors.New("boom")
	err := tr.TimeOperation("failing", func() error {
		time.Sleep(time.Millisecond)
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	m := tr.GetMetrics("failing", 1)
	if m.Count != 1 {
		t.Fatalf("failing operation must still be recorded, got %d", m.Count)
	}
	if m.AvgDurationMS <= 0 {
		t.Fatalf("duration = %v, want > 0", m.AvgDurationMS)
	}
}
