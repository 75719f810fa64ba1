// Package perf is a lightweight operation-timing facility that runs alongside
// the event pipeline, with its own flat-file persistence. It serves
// percentile and throughput reports without touching the relational store.
package perf

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// saveEvery batches persistence: every Nth recorded measurement triggers a
// save to disk.
const saveEvery = 100

// Measurement is one flat timing record.
type Measurement struct {
	OperationType string            `json:"operation_type"`
	DurationMS    float64           `json:"duration_ms"`
	Timestamp     time.Time         `json:"timestamp"`
	CPUPercent    float64           `json:"cpu_percent,omitempty"`
	MemoryMB      float64           `json:"memory_mb,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// OperationStats is the per-operation-type breakdown inside Metrics.
type OperationStats struct {
	Count         int     `json:"count"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	MinDurationMS float64 `json:"min_duration_ms"`
	MaxDurationMS float64 `json:"max_duration_ms"`
}

// Metrics aggregates measurements over a trailing window.
type Metrics struct {
	Count            int                       `json:"count"`
	AvgDurationMS    float64                   `json:"avg_duration_ms"`
	MinDurationMS    float64                   `json:"min_duration_ms"`
	MaxDurationMS    float64                   `json:"max_duration_ms"`
	P50DurationMS    float64                   `json:"p50_duration_ms"`
	P95DurationMS    float64                   `json:"p95_duration_ms"`
	P99DurationMS    float64                   `json:"p99_duration_ms"`
	ThroughputPerSec float64                   `json:"throughput_per_sec"`
	AvgCPUPercent    float64                   `json:"avg_cpu_percent"`
	AvgMemoryMB      float64                   `json:"avg_memory_mb"`
	PeakMemoryMB     float64                   `json:"peak_memory_mb"`
	ByOperation      map[string]OperationStats `json:"by_operation,omitempty"`
	InFlight         int                       `json:"in_flight,omitempty"`
}

// measurementDocument is the on-disk form.
type measurementDocument struct {
	Version      string        `json:"version"`
	Measurements []Measurement `json:"measurements"`
}

// Tracker times named operations and records flat measurements.
type Tracker struct {
	path string
	log  *logrus.Logger

	mu           sync.Mutex
	timers       map[string]time.Time
	measurements []Measurement
	sinceSave    int
}

// NewTracker creates a Tracker persisting to path, loading any previously
// saved measurements. A nil logger falls back to the standard one.
func NewTracker(path string, log *logrus.Logger) *Tracker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	t := &Tracker{
		path:   path,
		log:    log,
		timers: make(map[string]time.Time),
	}
	t.load()
	return t
}

func (t *Tracker) load() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.log.WithError(err).WithField("path", t.path).Warn("reading measurement store failed")
		}
		return
	}
	var doc measurementDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.log.WithError(err).WithField("path", t.path).Warn("parsing measurement store failed")
		return
	}
	t.measurements = doc.Measurements
}

// save persists all measurements. Caller must hold mu. Failures are logged,
// never propagated, since timing data must not break the instrumented code.
func (t *Tracker) save() {
	doc := measurementDocument{Version: "1.0", Measurements: t.measurements}
	data, err := json.Marshal(doc)
	if err != nil {
		t.log.WithError(err).Warn("encoding measurements failed")
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		t.log.WithError(err).Warn("creating measurement store directory failed")
		return
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		t.log.WithError(err).Warn("writing measurement store failed")
	}
}

// StartTimer begins a named timer for the given operation id.
func (t *Tracker) StartTimer(operationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timers[operationID] = time.Now()
}

// StopTimer stops a named timer and records a measurement, returning the
// elapsed milliseconds. Stopping an unknown id returns 0 and records nothing.
func (t *Tracker) StopTimer(operationID, operationType string, metadata map[string]string) float64 {
	t.mu.Lock()
	start, ok := t.timers[operationID]
	if !ok {
		t.mu.Unlock()
		return 0
	}
	delete(t.timers, operationID)
	t.mu.Unlock()

	durationMS := float64(time.Since(start)) / float64(time.Millisecond)
	t.RecordMeasurement(operationType, durationMS, 0, 0, metadata)
	return durationMS
}

// RecordMeasurement appends a flat measurement record. Every 100th record
// triggers a save to disk.
func (t *Tracker) RecordMeasurement(operationType string, durationMS, cpuPercent, memoryMB float64, metadata map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.measurements = append(t.measurements, Measurement{
		OperationType: operationType,
		DurationMS:    durationMS,
		Timestamp:     time.Now().UTC(),
		CPUPercent:    cpuPercent,
		MemoryMB:      memoryMB,
		Metadata:      metadata,
	})
	t.sinceSave++
	if t.sinceSave >= saveEvery {
		t.sinceSave = 0
		t.save()
	}
}

// GetMetrics aggregates measurements in the trailing window of the given
// hours, optionally restricted to one operation type.
func (t *Tracker) GetMetrics(operationType string, hours int) Metrics {
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	t.mu.Lock()
	var window []Measurement
	for _, m := range t.measurements {
		if m.Timestamp.Before(cutoff) {
			continue
		}
		if operationType != "" && m.OperationType != operationType {
			continue
		}
		window = append(window, m)
	}
	t.mu.Unlock()

	metrics := Metrics{Count: len(window), ByOperation: make(map[string]OperationStats)}
	if len(window) == 0 {
		return metrics
	}

	durations := make([]float64, 0, len(window))
	var cpuSum, memSum float64
	for _, m := range window {
		durations = append(durations, m.DurationMS)
		cpuSum += m.CPUPercent
		memSum += m.MemoryMB
		if m.MemoryMB > metrics.PeakMemoryMB {
			metrics.PeakMemoryMB = m.MemoryMB
		}

		op := metrics.ByOperation[m.OperationType]
		if op.Count == 0 || m.DurationMS < op.MinDurationMS {
			op.MinDurationMS = m.DurationMS
		}
		if m.DurationMS > op.MaxDurationMS {
			op.MaxDurationMS = m.DurationMS
		}
		op.AvgDurationMS = (op.AvgDurationMS*float64(op.Count) + m.DurationMS) / float64(op.Count+1)
		op.Count++
		metrics.ByOperation[m.OperationType] = op
	}

	sort.Float64s(durations)
	metrics.MinDurationMS = durations[0]
	metrics.MaxDurationMS = durations[len(durations)-1]
	metrics.AvgDurationMS = mean(durations)
	metrics.P50DurationMS = nearestRank(durations, 0.5)
	metrics.P95DurationMS = nearestRank(durations, 0.95)
	metrics.P99DurationMS = nearestRank(durations, 0.99)
	metrics.AvgCPUPercent = cpuSum / float64(len(window))
	metrics.AvgMemoryMB = memSum / float64(len(window))

	windowSeconds := float64(hours) * 3600
	if windowSeconds > 0 {
		metrics.ThroughputPerSec = float64(len(window)) / windowSeconds
	}
	return metrics
}

// SlowestOperations returns measurements sorted by duration descending,
// optionally filtered by operation type.
func (t *Tracker) SlowestOperations(limit int, operationType string) []Measurement {
	t.mu.Lock()
	var out []Measurement
	for _, m := range t.measurements {
		if operationType == "" || m.OperationType == operationType {
			out = append(out, m)
		}
	}
	t.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DurationMS > out[j].DurationMS
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CurrentMetrics is a live snapshot: current process CPU/memory, average of
// the most recent 100 recorded durations, and the count of in-flight
// operations (started but not stopped).
func (t *Tracker) CurrentMetrics() Metrics {
	cpuPercent, memoryMB := processSnapshot()

	t.mu.Lock()
	recent := t.measurements
	if len(recent) > 100 {
		recent = recent[len(recent)-100:]
	}
	var sum float64
	for _, m := range recent {
		sum += m.DurationMS
	}
	inFlight := len(t.timers)
	count := len(recent)
	t.mu.Unlock()

	metrics := Metrics{
		Count:         count,
		AvgCPUPercent: cpuPercent,
		AvgMemoryMB:   memoryMB,
		InFlight:      inFlight,
	}
	if count > 0 {
		metrics.AvgDurationMS = sum / float64(count)
	}
	return metrics
}

// ClearOldMeasurements drops measurements older than the cutoff and persists
// the remainder.
func (t *Tracker) ClearOldMeasurements(days int) int {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.measurements[:0]
	removed := 0
	for _, m := range t.measurements {
		if m.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	t.measurements = kept
	t.save()
	return removed
}

// Flush persists all measurements immediately.
func (t *Tracker) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.save()
}

// TimeOperation runs fn and unconditionally records its duration, including
// on the panic path, so no timing is lost when the timed operation fails.
func (t *Tracker) TimeOperation(operationType string, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		durationMS := float64(time.Since(start)) / float64(time.Millisecond)
		t.RecordMeasurement(operationType, durationMS, 0, 0, nil)
	}()
	return fn()
}

func nearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
