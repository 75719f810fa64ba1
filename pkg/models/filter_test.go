package models

import (
	"testing"
	"time"
)

func filterEvent(eventType EventType, ts time.Time, session, taskID string) TypedEvent {
	return &TaskEvent{
		Event: Event{
			EventID:   "ev",
			EventType: eventType,
			Timestamp: ts,
			SessionID: session,
		},
		TaskID: taskID,
	}
}

func TestFilterZeroMatchesEverything(t *testing.T) {
	ev := filterEvent(EventTaskCompleted, time.Now(), "s1", "T-1")
	if !(EventFilter{}).Matches(ev) {
		t.Fatal("zero filter must match all events")
	}
}

func TestFilterByType(t *testing.T) {
	ev := filterEvent(EventTaskCompleted, time.Now(), "", "")

	f := EventFilter{Types: []EventType{EventTaskCompleted, EventTaskFailed}}
	if !f.Matches(ev) {
		t.Fatal("expected type match")
	}

	f = EventFilter{Types: []EventType{EventBuildStarted}}
	if f.Matches(ev) {
		t.Fatal("expected type mismatch")
	}
}

func TestFilterTimeWindowInclusive(t *testing.T) {
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	ev := filterEvent(EventTaskCompleted, ts, "", "")

	// Boundaries are inclusive on both ends.
	f := EventFilter{Since: &ts, Until: &ts}
	if !f.Matches(ev) {
		t.Fatal("expected event at exact boundary to match")
	}

	after := ts.Add(time.Millisecond)
	f = EventFilter{Since: &after}
	if f.Matches(ev) {
		t.Fatal("expected event before Since to be excluded")
	}

	before := ts.Add(-time.Millisecond)
	f = EventFilter{Until: &before}
	if f.Matches(ev) {
		t.Fatal("expected event after Until to be excluded")
	}
}

func TestFilterBySessionAndTask(t *testing.T) {
	ev := filterEvent(EventTaskCompleted, time.Now(), "sess-1", "T-42")

	if !(EventFilter{SessionID: "sess-1", TaskID: "T-42"}).Matches(ev) {
		t.Fatal("expected session+task match")
	}
	if (EventFilter{SessionID: "sess-2"}).Matches(ev) {
		t.Fatal("expected session mismatch")
	}
	if (EventFilter{TaskID: "T-99"}).Matches(ev) {
		t.Fatal("expected task mismatch")
	}

	// Events without a task id never match a task filter.
	perfEv := &PerformanceEvent{Event: Event{EventType: EventPerformanceMetric, Timestamp: time.Now()}}
	if (EventFilter{TaskID: "T-42"}).Matches(perfEv) {
		t.Fatal("expected taskless event to be excluded")
	}
}
