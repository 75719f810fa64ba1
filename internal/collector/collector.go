// Package collector is the single point of event ingestion, durable storage,
// and query for the telemetry subsystem. Producers hand events to Collect and
// retain no reference afterwards; everything downstream (metrics, alerting,
// export) reads back through the query API.
package collector

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/devpulse/internal/storage"
	"github.com/valter-silva-au/devpulse/pkg/models"
)

// Listener receives every collected event synchronously on the collecting
// goroutine. A panicking listener is isolated and logged.
type Listener func(models.TypedEvent)

// Options tunes collector buffering behavior.
type Options struct {
	// BufferSize triggers auto-flush when the buffer reaches this length.
	BufferSize int
	// AutoFlush enables flushing at BufferSize.
	AutoFlush bool
}

// Collector buffers incoming events, persists them to the SQLite store
// (best-effort) and the flat-file store (on flush), and serves queries.
type Collector struct {
	opts  Options
	db    *storage.SQLiteStore // nil when the relational store is disabled
	files *storage.FileStore
	log   *logrus.Logger

	// bufMu guards only the in-memory buffer; it is never held across I/O
	// so concurrent collects are not serialized behind disk latency.
	bufMu  sync.Mutex
	buffer []models.TypedEvent

	// flushMu serializes Flush, which drains the buffer into events.
	flushMu sync.Mutex

	eventsMu sync.RWMutex
	events   []models.TypedEvent

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextID     int
}

// New creates a Collector. db may be nil to disable the relational store; a
// nil logger falls back to the standard one.
func New(db *storage.SQLiteStore, files *storage.FileStore, opts Options, log *logrus.Logger) *Collector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 50
	}
	return &Collector{
		opts:      opts,
		db:        db,
		files:     files,
		log:       log,
		listeners: make(map[int]Listener),
	}
}

// Collect ingests one event and returns its id, assigning one if absent.
// Persistence failures are logged and never propagated: the event stays in
// the in-memory buffer, so collection never blocks on storage failure.
func (c *Collector) Collect(ev models.TypedEvent) string {
	base := ev.Base()
	if base.EventID == "" {
		base.EventID = uuid.NewString()
	}
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now().UTC()
	}

	// Durable write first, outside any lock.
	if c.db != nil {
		if err := c.db.InsertEvent(ev); err != nil {
			c.log.WithError(err).WithField("event_id", base.EventID).Warn("persisting event failed; kept in buffer")
		}
	}

	c.bufMu.Lock()
	c.buffer = append(c.buffer, ev)
	shouldFlush := c.opts.AutoFlush && len(c.buffer) >= c.opts.BufferSize
	c.bufMu.Unlock()

	c.notifyListeners(ev)

	if shouldFlush {
		c.Flush()
	}
	return base.EventID
}

// notifyListeners invokes every registered listener, isolating panics so one
// bad listener cannot drop the others.
func (c *Collector) notifyListeners(ev models.TypedEvent) {
	c.listenerMu.Lock()
	snapshot := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		snapshot = append(snapshot, l)
	}
	c.listenerMu.Unlock()

	for _, l := range snapshot {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.WithField("panic", r).Warn("event listener panicked")
				}
			}()
			l(ev)
		}()
	}
}

// Flush moves buffered events into the in-process event list and serializes
// that list to the flat-file store. No-op when the buffer is empty. File I/O
// failures are logged, never propagated.
func (c *Collector) Flush() {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.bufMu.Lock()
	if len(c.buffer) == 0 {
		c.bufMu.Unlock()
		return
	}
	drained := c.buffer
	c.buffer = nil
	c.bufMu.Unlock()

	c.eventsMu.Lock()
	c.events = append(c.events, drained...)
	snapshot := make([]models.TypedEvent, len(c.events))
	copy(snapshot, c.events)
	c.eventsMu.Unlock()

	if c.files != nil {
		if err := c.files.Save(snapshot); err != nil {
			c.log.WithError(err).Warn("flushing events to file store failed")
		}
	}
}

// Query returns events matching the filter, most recent first. When the
// relational store is active the filter runs as a parameterized query;
// otherwise the buffer is flushed and the in-memory list filtered with
// identical semantics. Query errors surface as an empty result with a log
// entry, acceptable for telemetry.
func (c *Collector) Query(filter models.EventFilter, limit int) []models.TypedEvent {
	if c.db != nil {
		events, err := c.db.QueryEvents(filter, limit)
		if err != nil {
			c.log.WithError(err).Warn("event query failed; returning empty result")
			return nil
		}
		return events
	}

	c.Flush()

	c.eventsMu.RLock()
	defer c.eventsMu.RUnlock()

	var matched []models.TypedEvent
	for _, ev := range c.events {
		if filter.Matches(ev) {
			matched = append(matched, ev)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Base().Timestamp.After(matched[j].Base().Timestamp)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// GetRecent returns the count most recent events with no filter.
func (c *Collector) GetRecent(count int) []models.TypedEvent {
	return c.Query(models.EventFilter{}, count)
}

// GetByID looks up an event by id: buffer first, then the in-memory list,
// then the relational store.
func (c *Collector) GetByID(eventID string) (models.TypedEvent, bool) {
	c.bufMu.Lock()
	for _, ev := range c.buffer {
		if ev.Base().EventID == eventID {
			c.bufMu.Unlock()
			return ev, true
		}
	}
	c.bufMu.Unlock()

	c.eventsMu.RLock()
	for _, ev := range c.events {
		if ev.Base().EventID == eventID {
			c.eventsMu.RUnlock()
			return ev, true
		}
	}
	c.eventsMu.RUnlock()

	if c.db != nil {
		ev, found, err := c.db.EventByID(eventID)
		if err != nil {
			c.log.WithError(err).WithField("event_id", eventID).Warn("event lookup failed")
			return nil, false
		}
		return ev, found
	}
	return nil, false
}

// GetCount counts events, optionally restricted to a type and a lower time
// bound. An empty eventType counts everything.
func (c *Collector) GetCount(eventType models.EventType, since *time.Time) int {
	if c.db != nil {
		count, err := c.db.CountEvents(eventType, since)
		if err != nil {
			c.log.WithError(err).Warn("event count failed; returning zero")
			return 0
		}
		return count
	}

	filter := models.EventFilter{Since: since}
	if eventType != "" {
		filter.Types = []models.EventType{eventType}
	}
	return len(c.Query(filter, 0))
}

// GetStatistics prefers the aggregate view in the relational store and falls
// back to scanning in-memory events.
func (c *Collector) GetStatistics() *storage.EventStatistics {
	if c.db != nil {
		stats, err := c.db.Statistics()
		if err == nil {
			return stats
		}
		c.log.WithError(err).Warn("statistics query failed; scanning in-memory events")
	}

	c.Flush()

	c.eventsMu.RLock()
	defer c.eventsMu.RUnlock()

	stats := &storage.EventStatistics{ByType: make(map[string]storage.TypeStats)}
	for _, ev := range c.events {
		base := ev.Base()
		ts := stats.ByType[string(base.EventType)]
		ts.Count++
		stats.ByType[string(base.EventType)] = ts
		stats.TotalEvents++

		t := base.Timestamp
		if stats.Oldest == nil || t.Before(*stats.Oldest) {
			tc := t
			stats.Oldest = &tc
		}
		if stats.Newest == nil || t.After(*stats.Newest) {
			tc := t
			stats.Newest = &tc
		}
	}
	return stats
}

// TimeBounds returns the oldest and newest event timestamps over all stored
// events, or false when none exist.
func (c *Collector) TimeBounds() (time.Time, time.Time, bool) {
	if c.db != nil {
		oldest, newest, ok, err := c.db.TimeBounds()
		if err == nil {
			return oldest, newest, ok
		}
		c.log.WithError(err).Warn("time bounds query failed; scanning in-memory events")
	}

	c.Flush()

	c.eventsMu.RLock()
	defer c.eventsMu.RUnlock()

	if len(c.events) == 0 {
		return time.Time{}, time.Time{}, false
	}
	oldest := c.events[0].Base().Timestamp
	newest := oldest
	for _, ev := range c.events[1:] {
		t := ev.Base().Timestamp
		if t.Before(oldest) {
			oldest = t
		}
		if t.After(newest) {
			newest = t
		}
	}
	return oldest, newest, true
}

// AddListener registers a listener and returns a handle for removal.
func (c *Collector) AddListener(l Listener) int {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.nextID++
	c.listeners[c.nextID] = l
	return c.nextID
}

// RemoveListener unregisters the listener with the given handle.
func (c *Collector) RemoveListener(id int) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	delete(c.listeners, id)
}

// BufferLen reports the current number of buffered, unflushed events.
func (c *Collector) BufferLen() int {
	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	return len(c.buffer)
}
