package models

import (
	"reflect"
	"testing"
	"time"
)

func sampleTime() time.Time {
	return time.Date(2026, 2, 1, 10, 30, 0, 123456789, time.UTC)
}

func TestFlattenDecodeTaskEvent(t *testing.T) {
	ev := &TaskEvent{
		Event: Event{
			EventID:   "ev-1",
			EventType: EventTaskCompleted,
			Timestamp: sampleTime(),
			SessionID: "sess-1",
			Metadata:  map[string]string{"branch": "main", "repo": "org/app"},
		},
		TaskID:          "T-42",
		TaskType:        "refactor",
		TaskDescription: "extract helper",
		ComplexityLevel: "medium",
		ModelUsed:       "model-a",
		FileCount:       3,
		LineCount:       120,
		DurationMS:      1500,
		TokensUsed:      900,
		CostUSD:         0.0125,
		Success:         true,
	}

	got := DecodeEvent(ev.Flatten())
	task, ok := got.(*TaskEvent)
	if !ok {
		t.Fatalf("expected *TaskEvent, got %T", got)
	}
	if !reflect.DeepEqual(task, ev) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", task, ev)
	}
}

func TestFlattenDecodeBuildEvent(t *testing.T) {
	ev := &BuildEvent{
		Event: Event{
			EventID:   "ev-2",
			EventType: EventBuildFailed,
			Timestamp: sampleTime(),
		},
		BuildID:        "B-7",
		BuildPhase:     "test",
		TotalTasks:     10,
		CompletedTasks: 8,
		FailedTasks:    2,
		DurationMS:     45000,
		TotalCostUSD:   1.25,
		Success:        false,
		ErrorMessage:   "2 tasks failed",
	}

	got := DecodeEvent(ev.Flatten())
	build, ok := got.(*BuildEvent)
	if !ok {
		t.Fatalf("expected *BuildEvent, got %T", got)
	}
	if !reflect.DeepEqual(build, ev) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", build, ev)
	}
}

func TestFlattenDecodeErrorEvent(t *testing.T) {
	ev := &ErrorEvent{
		Event: Event{
			EventID:   "ev-3",
			EventType: EventExceptionRaised,
			Timestamp: sampleTime(),
		},
		ErrorType:      "ValueError",
		ErrorMessage:   "bad input",
		StackTrace:     "frame1\nframe2",
		TaskID:         "T-42",
		Component:      "parser",
		Severity:       SeverityError,
		Recoverable:    true,
		RecoveryAction: "retry",
	}

	got := DecodeEvent(ev.Flatten())
	errEv, ok := got.(*ErrorEvent)
	if !ok {
		t.Fatalf("expected *ErrorEvent, got %T", got)
	}
	if !reflect.DeepEqual(errEv, ev) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", errEv, ev)
	}
}

func TestFlattenDecodePerformanceEvent(t *testing.T) {
	ev := &PerformanceEvent{
		Event: Event{
			EventID:   "ev-4",
			EventType: EventPerformanceMetric,
			Timestamp: sampleTime(),
		},
		MetricName:  "query_latency",
		MetricValue: 12.75,
		MetricUnit:  "ms",
		Component:   "storage",
		Operation:   "query_events",
		CPUPercent:  3.5,
		MemoryMB:    128.25,
		DiskIOMB:    0.5,
	}

	got := DecodeEvent(ev.Flatten())
	perfEv, ok := got.(*PerformanceEvent)
	if !ok {
		t.Fatalf("expected *PerformanceEvent, got %T", got)
	}
	if !reflect.DeepEqual(perfEv, ev) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", perfEv, ev)
	}
}

func TestFlattenDecodeSecurityEvent(t *testing.T) {
	ev := &SecurityEvent{
		Event: Event{
			EventID:   "ev-5",
			EventType: EventSecurityViolation,
			Timestamp: sampleTime(),
		},
		SecurityType:  "secret_scan",
		Severity:      SeverityCritical,
		FilePath:      "config/prod.yaml",
		LineNumber:    17,
		ViolationType: "hardcoded_credential",
		Blocked:       true,
		Remediation:   "move to env var",
	}

	got := DecodeEvent(ev.Flatten())
	secEv, ok := got.(*SecurityEvent)
	if !ok {
		t.Fatalf("expected *SecurityEvent, got %T", got)
	}
	if !reflect.DeepEqual(secEv, ev) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", secEv, ev)
	}
}

func TestDecodeUnknownTypePreservesBase(t *testing.T) {
	flat := map[string]string{
		"event_id":   "ev-6",
		"event_type": "CUSTOM_THING",
		"timestamp":  sampleTime().Format(time.RFC3339Nano),
		"meta.key":   "value",
	}

	got := DecodeEvent(flat)
	base, ok := got.(*Event)
	if !ok {
		t.Fatalf("expected *Event for unknown type, got %T", got)
	}
	if base.EventType != "CUSTOM_THING" {
		t.Fatalf("expected type preserved, got %q", base.EventType)
	}
	if base.Metadata["key"] != "value" {
		t.Fatalf("expected metadata preserved, got %v", base.Metadata)
	}
}

func TestFlattenOmitsZeroValues(t *testing.T) {
	ev := &TaskEvent{
		Event: Event{
			EventID:   "ev-7",
			EventType: EventTaskStarted,
			Timestamp: sampleTime(),
		},
	}

	flat := ev.Flatten()
	for _, key := range []string{"task_id", "duration_ms", "cost_usd", "session_id"} {
		if _, ok := flat[key]; ok {
			t.Fatalf("expected zero-valued %q to be omitted", key)
		}
	}
	// Booleans are always written so false survives the round trip.
	if flat["success"] != "false" {
		t.Fatalf("expected success=false to be written, got %q", flat["success"])
	}
}

func TestEventTypePredicates(t *testing.T) {
	cases := []struct {
		eventType EventType
		isTask    bool
		isError   bool
	}{
		{EventTaskCompleted, true, false},
		{EventErrorOccurred, false, true},
		{EventExceptionRaised, false, true},
		{EventBuildStarted, false, false},
	}
	for _, c := range cases {
		if got := c.eventType.IsTask(); got != c.isTask {
			t.Errorf("%s IsTask = %v, want %v", c.eventType, got, c.isTask)
		}
		if got := c.eventType.IsError(); got != c.isError {
			t.Errorf("%s IsError = %v, want %v", c.eventType, got, c.isError)
		}
	}
}
