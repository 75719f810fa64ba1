package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/valter-silva-au/devpulse/internal/storage/migrations"
	"github.com/valter-silva-au/devpulse/pkg/models"
)

// eventColumns are the flat-map keys persisted as dedicated columns. Variant
// fields without a column (security and performance extras) ride inside the
// serialized metadata so no data is lost on the relational path.
var eventColumns = map[string]bool{
	"event_id": true, "event_type": true, "timestamp": true, "session_id": true,
	"task_id": true, "task_type": true, "task_description": true,
	"complexity_level": true, "model_used": true, "file_count": true,
	"line_count": true, "build_id": true, "build_phase": true,
	"total_tasks": true, "completed_tasks": true, "failed_tasks": true,
	"error_type": true, "error_message": true, "stack_trace": true,
	"component": true, "severity": true, "duration_ms": true,
	"tokens_used": true, "cost_usd": true, "total_cost_usd": true,
	"cpu_percent": true, "memory_mb": true, "success": true,
}

// TypeStats aggregates stored events of one type.
type TypeStats struct {
	Count         int     `json:"count"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	TotalCostUSD  float64 `json:"total_cost_usd"`
	TotalTokens   int     `json:"total_tokens"`
}

// EventStatistics summarizes the full contents of the event store.
type EventStatistics struct {
	TotalEvents int                  `json:"total_events"`
	ByType      map[string]TypeStats `json:"by_type"`
	Oldest      *time.Time           `json:"oldest,omitempty"`
	Newest      *time.Time           `json:"newest,omitempty"`
}

// SQLiteStore persists events in an embedded SQLite database with indexed
// query support. It is the authoritative store when enabled; the FileStore
// remains the best-effort backup channel.
type SQLiteStore struct {
	sqlDB *sql.DB
	log   *logrus.Logger

	// mu serializes the write path independently of the collector's buffer
	// lock so durable writes never block in-memory collection.
	mu sync.Mutex
}

// OpenSQLite opens (creating if needed) the events database at path and
// applies embedded migrations.
func OpenSQLite(path string, log *logrus.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB, log: log}, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func nullStr(flat map[string]string, key string) any {
	if v, ok := flat[key]; ok && v != "" {
		return v
	}
	return nil
}

func nullInt(flat map[string]string, key string) any {
	if v, ok := flat[key]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return nil
}

func nullFloat(flat map[string]string, key string) any {
	if v, ok := flat[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return nil
}

// InsertEvent writes one event row. The event_id unique constraint makes
// persisted events immutable: re-inserting an id is an error for the caller
// to log, never an update.
func (s *SQLiteStore) InsertEvent(ev models.TypedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flat := ev.Flatten()

	// Everything without a dedicated column is serialized with the metadata.
	extra := make(map[string]string)
	for k, v := range flat {
		if !eventColumns[k] {
			extra[k] = v
		}
	}
	var metaJSON any
	if len(extra) > 0 {
		data, err := json.Marshal(extra)
		if err != nil {
			return fmt.Errorf("encoding event metadata: %w", err)
		}
		metaJSON = string(data)
	}

	success := int64(1)
	if v, ok := flat["success"]; ok {
		if b, err := strconv.ParseBool(v); err == nil && !b {
			success = 0
		}
	}

	_, err := s.sqlDB.Exec(
		`INSERT INTO events (
		   event_id, event_type, timestamp, session_id,
		   task_id, task_type, task_description, complexity_level, model_used,
		   file_count, line_count,
		   build_id, build_phase, total_tasks, completed_tasks, failed_tasks,
		   error_type, error_message, stack_trace, component, severity,
		   duration_ms, tokens_used, cost_usd, total_cost_usd, cpu_percent, memory_mb,
		   success, metadata, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Base().EventID,
		string(ev.Base().EventType),
		ev.Base().Timestamp.UTC().UnixMilli(),
		nullStr(flat, "session_id"),
		nullStr(flat, "task_id"),
		nullStr(flat, "task_type"),
		nullStr(flat, "task_description"),
		nullStr(flat, "complexity_level"),
		nullStr(flat, "model_used"),
		nullInt(flat, "file_count"),
		nullInt(flat, "line_count"),
		nullStr(flat, "build_id"),
		nullStr(flat, "build_phase"),
		nullInt(flat, "total_tasks"),
		nullInt(flat, "completed_tasks"),
		nullInt(flat, "failed_tasks"),
		nullStr(flat, "error_type"),
		nullStr(flat, "error_message"),
		nullStr(flat, "stack_trace"),
		nullStr(flat, "component"),
		nullStr(flat, "severity"),
		nullInt(flat, "duration_ms"),
		nullInt(flat, "tokens_used"),
		nullFloat(flat, "cost_usd"),
		nullFloat(flat, "total_cost_usd"),
		nullFloat(flat, "cpu_percent"),
		nullFloat(flat, "memory_mb"),
		success,
		metaJSON,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting event %s: %w", ev.Base().EventID, err)
	}
	return nil
}

const selectColumns = `event_id, event_type, timestamp, session_id,
	task_id, task_type, task_description, complexity_level, model_used,
	file_count, line_count,
	build_id, build_phase, total_tasks, completed_tasks, failed_tasks,
	error_type, error_message, stack_trace, component, severity,
	duration_ms, tokens_used, cost_usd, total_cost_usd, cpu_percent, memory_mb,
	success, metadata`

// QueryEvents translates the filter into a parameterized query ordered by
// timestamp descending. A positive limit bounds the result.
func (s *SQLiteStore) QueryEvents(filter models.EventFilter, limit int) ([]models.TypedEvent, error) {
	var where []string
	var args []any

	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		where = append(where, "event_type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, filter.Since.UTC().UnixMilli())
	}
	if filter.Until != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, filter.Until.UTC().UnixMilli())
	}
	if filter.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.TaskID != "" {
		where = append(where, "task_id = ?")
		args = append(args, filter.TaskID)
	}

	query := "SELECT " + selectColumns + " FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.sqlDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []models.TypedEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// EventByID looks up a single event. The second return reports existence.
func (s *SQLiteStore) EventByID(eventID string) (models.TypedEvent, bool, error) {
	row := s.sqlDB.QueryRow("SELECT "+selectColumns+" FROM events WHERE event_id = ?", eventID)
	ev, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return ev, true, nil
}

// CountEvents counts stored events, optionally restricted to a type and a
// lower time bound.
func (s *SQLiteStore) CountEvents(eventType models.EventType, since *time.Time) (int, error) {
	query := "SELECT COUNT(*) FROM events"
	var where []string
	var args []any
	if eventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(eventType))
	}
	if since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, since.UTC().UnixMilli())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	var count int
	if err := s.sqlDB.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}

// Statistics answers the aggregate view cheaply via event_type_stats.
func (s *SQLiteStore) Statistics() (*EventStatistics, error) {
	rows, err := s.sqlDB.Query(
		`SELECT event_type, event_count, avg_duration_ms, total_cost_usd, total_tokens, first_seen, last_seen
		 FROM event_type_stats`)
	if err != nil {
		return nil, fmt.Errorf("querying event statistics: %w", err)
	}
	defer rows.Close()

	stats := &EventStatistics{ByType: make(map[string]TypeStats)}
	for rows.Next() {
		var (
			eventType           string
			count               int
			avgDuration         sql.NullFloat64
			totalCost           sql.NullFloat64
			totalTokens         sql.NullInt64
			firstSeen, lastSeen int64
		)
		if err := rows.Scan(&eventType, &count, &avgDuration, &totalCost, &totalTokens, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning event statistics: %w", err)
		}
		stats.ByType[eventType] = TypeStats{
			Count:         count,
			AvgDurationMS: avgDuration.Float64,
			TotalCostUSD:  totalCost.Float64,
			TotalTokens:   int(totalTokens.Int64),
		}
		stats.TotalEvents += count

		first := time.UnixMilli(firstSeen).UTC()
		last := time.UnixMilli(lastSeen).UTC()
		if stats.Oldest == nil || first.Before(*stats.Oldest) {
			stats.Oldest = &first
		}
		if stats.Newest == nil || last.After(*stats.Newest) {
			stats.Newest = &last
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event statistics: %w", err)
	}
	return stats, nil
}

// TimeBounds returns the min and max event timestamps, or false when the
// store is empty.
func (s *SQLiteStore) TimeBounds() (time.Time, time.Time, bool, error) {
	var oldest, newest sql.NullInt64
	err := s.sqlDB.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM events").Scan(&oldest, &newest)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("querying time bounds: %w", err)
	}
	if !oldest.Valid || !newest.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return time.UnixMilli(oldest.Int64).UTC(), time.UnixMilli(newest.Int64).UTC(), true, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEvent rebuilds the flattened form of a stored row and decodes it into
// the matching variant.
func scanEvent(row rowScanner) (models.TypedEvent, error) {
	var (
		eventID, eventType                                       string
		timestamp                                                int64
		sessionID, taskID, taskType, taskDescription             sql.NullString
		complexityLevel, modelUsed                               sql.NullString
		fileCount, lineCount                                     sql.NullInt64
		buildID, buildPhase                                      sql.NullString
		totalTasks, completedTasks, failedTasks                  sql.NullInt64
		errorType, errorMessage, stackTrace, component, severity sql.NullString
		durationMS, tokensUsed                                   sql.NullInt64
		costUSD, totalCostUSD, cpuPercent, memoryMB              sql.NullFloat64
		success                                                  int64
		metadata                                                 sql.NullString
	)

	err := row.Scan(
		&eventID, &eventType, &timestamp, &sessionID,
		&taskID, &taskType, &taskDescription, &complexityLevel, &modelUsed,
		&fileCount, &lineCount,
		&buildID, &buildPhase, &totalTasks, &completedTasks, &failedTasks,
		&errorType, &errorMessage, &stackTrace, &component, &severity,
		&durationMS, &tokensUsed, &costUSD, &totalCostUSD, &cpuPercent, &memoryMB,
		&success, &metadata,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning event row: %w", err)
	}

	flat := map[string]string{
		"event_id":   eventID,
		"event_type": eventType,
		"timestamp":  time.UnixMilli(timestamp).UTC().Format(flatTimeLayout),
		"success":    strconv.FormatBool(success != 0),
	}
	if metadata.Valid && metadata.String != "" {
		var extra map[string]string
		if err := json.Unmarshal([]byte(metadata.String), &extra); err == nil {
			for k, v := range extra {
				flat[k] = v
			}
		}
	}

	setStr := func(key string, v sql.NullString) {
		if v.Valid && v.String != "" {
			flat[key] = v.String
		}
	}
	setInt := func(key string, v sql.NullInt64) {
		if v.Valid {
			flat[key] = strconv.FormatInt(v.Int64, 10)
		}
	}
	setFloat := func(key string, v sql.NullFloat64) {
		if v.Valid {
			flat[key] = strconv.FormatFloat(v.Float64, 'g', -1, 64)
		}
	}

	setStr("session_id", sessionID)
	setStr("task_id", taskID)
	setStr("task_type", taskType)
	setStr("task_description", taskDescription)
	setStr("complexity_level", complexityLevel)
	setStr("model_used", modelUsed)
	setInt("file_count", fileCount)
	setInt("line_count", lineCount)
	setStr("build_id", buildID)
	setStr("build_phase", buildPhase)
	setInt("total_tasks", totalTasks)
	setInt("completed_tasks", completedTasks)
	setInt("failed_tasks", failedTasks)
	setStr("error_type", errorType)
	setStr("error_message", errorMessage)
	setStr("stack_trace", stackTrace)
	setStr("component", component)
	setStr("severity", severity)
	setInt("duration_ms", durationMS)
	setInt("tokens_used", tokensUsed)
	setFloat("cost_usd", costUSD)
	setFloat("total_cost_usd", totalCostUSD)
	setFloat("cpu_percent", cpuPercent)
	setFloat("memory_mb", memoryMB)

	return models.DecodeEvent(flat), nil
}

// flatTimeLayout mirrors the flat-map timestamp encoding in pkg/models.
const flatTimeLayout = time.RFC3339Nano
