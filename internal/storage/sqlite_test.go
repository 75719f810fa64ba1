package storage

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/valter-silva-au/devpulse/pkg/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "events.db"), nil)
	if err != nil {
		t.Fatalf("opening sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// dbTime returns millisecond-aligned timestamps, matching column precision.
func dbTime(offset time.Duration) time.Time {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	return base.Add(offset)
}

func TestSQLiteInsertQueryRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)

	ev := &models.TaskEvent{
		Event: models.Event{
			EventID:   "ev-1",
			EventType: models.EventTaskCompleted,
			Timestamp: dbTime(0),
			SessionID: "sess-1",
			Metadata:  map[string]string{"branch": "main"},
		},
		TaskID:     "T-1",
		TaskType:   "refactor",
		ModelUsed:  "model-a",
		FileCount:  3,
		DurationMS: 1500,
		TokensUsed: 900,
		CostUSD:    0.0125,
		Success:    true,
	}
	if err := store.InsertEvent(ev); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, ok, err := store.EventByID("ev-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !ok {
		t.Fatal("expected event to exist")
	}
	task, isTask := got.(*models.TaskEvent)
	if !isTask {
		t.Fatalf("expected *TaskEvent, got %T", got)
	}
	if !reflect.DeepEqual(task, ev) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", task, ev)
	}
}

func TestSQLiteSecurityEventExtrasSurvive(t *testing.T) {
	store := newTestSQLiteStore(t)

	// Security fields have no dedicated columns and ride in the metadata blob.
	ev := &models.SecurityEvent{
		Event: models.Event{
			EventID:   "ev-sec",
			EventType: models.EventSecurityViolation,
			Timestamp: dbTime(0),
		},
		SecurityType:  "secret_scan",
		Severity:      models.SeverityCritical,
		FilePath:      "config/prod.yaml",
		LineNumber:    17,
		ViolationType: "hardcoded_credential",
		Blocked:       true,
	}
	if err := store.InsertEvent(ev); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, ok, err := store.EventByID("ev-sec")
	if err != nil || !ok {
		t.Fatalf("lookup failed: ok=%v err=%v", ok, err)
	}
	sec, isSec := got.(*models.SecurityEvent)
	if !isSec {
		t.Fatalf("expected *SecurityEvent, got %T", got)
	}
	if !reflect.DeepEqual(sec, ev) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", sec, ev)
	}
}

func TestSQLiteDuplicateEventID(t *testing.T) {
	store := newTestSQLiteStore(t)

	ev := &models.Event{EventID: "dup", EventType: "CUSTOM", Timestamp: dbTime(0)}
	if err := store.InsertEvent(ev); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := store.InsertEvent(ev); err == nil {
		t.Fatal("expected unique constraint violation on duplicate event_id")
	}
}

func TestSQLiteEventByIDMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	ev, ok, err := store.EventByID("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || ev != nil {
		t.Fatal("missing id must report not-found without error")
	}
}

func TestSQLiteQueryEventsFilterAndOrder(t *testing.T) {
	store := newTestSQLiteStore(t)

	insert := func(id string, eventType models.EventType, offset time.Duration, session string) {
		t.Helper()
		err := store.InsertEvent(&models.TaskEvent{
			Event: models.Event{
				EventID:   id,
				EventType: eventType,
				Timestamp: dbTime(offset),
				SessionID: session,
			},
			Success: true,
		})
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	insert("a", models.EventTaskCompleted, 0, "s1")
	insert("b", models.EventTaskFailed, time.Minute, "s1")
	insert("c", models.EventTaskCompleted, 2*time.Minute, "s2")

	// Type filter.
	events, err := store.QueryEvents(models.EventFilter{Types: []models.EventType{models.EventTaskCompleted}}, 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 completed events, got %d", len(events))
	}
	// Descending timestamp order.
	if events[0].Base().EventID != "c" || events[1].Base().EventID != "a" {
		t.Fatalf("unexpected order: %s, %s", events[0].Base().EventID, events[1].Base().EventID)
	}

	// Session filter.
	events, err = store.QueryEvents(models.EventFilter{SessionID: "s2"}, 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 1 || events[0].Base().EventID != "c" {
		t.Fatalf("unexpected session filter result: %+v", events)
	}

	// Inclusive since bound plus limit.
	since := dbTime(time.Minute)
	events, err = store.QueryEvents(models.EventFilter{Since: &since}, 1)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 1 || events[0].Base().EventID != "c" {
		t.Fatalf("unexpected since+limit result: %+v", events)
	}
}

func TestSQLiteCountEvents(t *testing.T) {
	store := newTestSQLiteStore(t)

	for i, id := range []string{"a", "b", "c"} {
		eventType := models.EventTaskCompleted
		if i == 2 {
			eventType = models.EventErrorOccurred
		}
		err := store.InsertEvent(&models.Event{
			EventID: id, EventType: eventType, Timestamp: dbTime(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	total, err := store.CountEvents("", nil)
	if err != nil || total != 3 {
		t.Fatalf("total count = %d (err %v), want 3", total, err)
	}

	typed, err := store.CountEvents(models.EventTaskCompleted, nil)
	if err != nil || typed != 2 {
		t.Fatalf("typed count = %d (err %v), want 2", typed, err)
	}

	since := dbTime(90 * time.Second)
	recent, err := store.CountEvents("", &since)
	if err != nil || recent != 1 {
		t.Fatalf("recent count = %d (err %v), want 1", recent, err)
	}
}

func TestSQLiteStatistics(t *testing.T) {
	store := newTestSQLiteStore(t)

	for i := 0; i < 3; i++ {
		err := store.InsertEvent(&models.TaskEvent{
			Event: models.Event{
				EventID:   string(rune('a' + i)),
				EventType: models.EventTaskCompleted,
				Timestamp: dbTime(time.Duration(i) * time.Minute),
			},
			DurationMS: int64(100 * (i + 1)),
			CostUSD:    0.5,
			TokensUsed: 100,
			Success:    true,
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	stats, err := store.Statistics()
	if err != nil {
		t.Fatalf("statistics failed: %v", err)
	}
	if stats.TotalEvents != 3 {
		t.Fatalf("total events = %d, want 3", stats.TotalEvents)
	}
	ts := stats.ByType[string(models.EventTaskCompleted)]
	if ts.Count != 3 {
		t.Fatalf("type count = %d, want 3", ts.Count)
	}
	if ts.AvgDurationMS != 200 {
		t.Fatalf("avg duration = %v, want 200", ts.AvgDurationMS)
	}
	if ts.TotalCostUSD != 1.5 {
		t.Fatalf("total cost = %v, want 1.5", ts.TotalCostUSD)
	}
	if ts.TotalTokens != 300 {
		t.Fatalf("total tokens = %d, want 300", ts.TotalTokens)
	}
	if stats.Oldest == nil || !stats.Oldest.Equal(dbTime(0)) {
		t.Fatalf("oldest = %v, want %v", stats.Oldest, dbTime(0))
	}
}

func TestSQLiteTimeBounds(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, _, ok, err := store.TimeBounds()
	if err != nil {
		t.Fatalf("time bounds on empty store: %v", err)
	}
	if ok {
		t.Fatal("empty store must report no bounds")
	}

	for i := 0; i < 2; i++ {
		err := store.InsertEvent(&models.Event{
			EventID:   string(rune('a' + i)),
			EventType: "CUSTOM",
			Timestamp: dbTime(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	oldest, newest, ok, err := store.TimeBounds()
	if err != nil || !ok {
		t.Fatalf("time bounds failed: ok=%v err=%v", ok, err)
	}
	if !oldest.Equal(dbTime(0)) || !newest.Equal(dbTime(time.Hour)) {
		t.Fatalf("bounds = %v..%v, want %v..%v", oldest, newest, dbTime(0), dbTime(time.Hour))
	}
}
