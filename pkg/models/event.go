package models

import (
	"strings"
	"time"
)

// EventType identifies the kind of telemetry event. The prefix of the type
// string ("TASK_", "BUILD_", "ERROR_", ...) selects the event variant.
type EventType string

const (
	EventTaskStarted   EventType = "TASK_STARTED"
	EventTaskCompleted EventType = "TASK_COMPLETED"
	EventTaskFailed    EventType = "TASK_FAILED"

	EventBuildStarted   EventType = "BUILD_STARTED"
	EventBuildCompleted EventType = "BUILD_COMPLETED"
	EventBuildFailed    EventType = "BUILD_FAILED"

	EventErrorOccurred   EventType = "ERROR_OCCURRED"
	EventExceptionRaised EventType = "EXCEPTION_RAISED"

	EventPerformanceMetric EventType = "PERFORMANCE_METRIC"

	EventSecurityViolation EventType = "SECURITY_VIOLATION"
	EventSecurityScan      EventType = "SECURITY_SCAN"
)

// Severity represents the urgency of an error or security event.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Event is the base telemetry record shared by all variants. EventID is
// globally unique within a collector's lifetime and immutable once persisted.
type Event struct {
	EventID   string            `json:"event_id"`
	EventType EventType         `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	SessionID string            `json:"session_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TypedEvent is the closed union over all event variants. Base exposes the
// shared fields; Flatten serializes the full record to a flat string map.
type TypedEvent interface {
	Base() *Event
	Flatten() map[string]string
}

// Base returns the event itself, satisfying TypedEvent for the plain variant.
func (e *Event) Base() *Event { return e }

// TaskEvent records one unit of AI-assisted work.
type TaskEvent struct {
	Event
	TaskID          string  `json:"task_id,omitempty"`
	TaskType        string  `json:"task_type,omitempty"`
	TaskDescription string  `json:"task_description,omitempty"`
	ComplexityLevel string  `json:"complexity_level,omitempty"`
	ModelUsed       string  `json:"model_used,omitempty"`
	FileCount       int     `json:"file_count,omitempty"`
	LineCount       int     `json:"line_count,omitempty"`
	DurationMS      int64   `json:"duration_ms,omitempty"`
	TokensUsed      int     `json:"tokens_used,omitempty"`
	CostUSD         float64 `json:"cost_usd,omitempty"`
	Success         bool    `json:"success"`
	ErrorMessage    string  `json:"error_message,omitempty"`
}

// Base returns the embedded base event.
func (e *TaskEvent) Base() *Event { return &e.Event }

// BuildEvent records the progress or completion of a multi-task build.
type BuildEvent struct {
	Event
	BuildID        string  `json:"build_id,omitempty"`
	BuildPhase     string  `json:"build_phase,omitempty"`
	TotalTasks     int     `json:"total_tasks,omitempty"`
	CompletedTasks int     `json:"completed_tasks,omitempty"`
	FailedTasks    int     `json:"failed_tasks,omitempty"`
	DurationMS     int64   `json:"duration_ms,omitempty"`
	TotalCostUSD   float64 `json:"total_cost_usd,omitempty"`
	Success        bool    `json:"success"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// Base returns the embedded base event.
func (e *BuildEvent) Base() *Event { return &e.Event }

// ErrorEvent records a failure or exception raised by a component.
type ErrorEvent struct {
	Event
	ErrorType      string   `json:"error_type,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
	StackTrace     string   `json:"stack_trace,omitempty"`
	TaskID         string   `json:"task_id,omitempty"`
	Component      string   `json:"component,omitempty"`
	Severity       Severity `json:"severity,omitempty"`
	Recoverable    bool     `json:"recoverable"`
	RecoveryAction string   `json:"recovery_action,omitempty"`
}

// Base returns the embedded base event.
func (e *ErrorEvent) Base() *Event { return &e.Event }

// PerformanceEvent records a single named measurement with resource usage.
type PerformanceEvent struct {
	Event
	MetricName  string  `json:"metric_name,omitempty"`
	MetricValue float64 `json:"metric_value,omitempty"`
	MetricUnit  string  `json:"metric_unit,omitempty"`
	Component   string  `json:"component,omitempty"`
	Operation   string  `json:"operation,omitempty"`
	CPUPercent  float64 `json:"cpu_percent,omitempty"`
	MemoryMB    float64 `json:"memory_mb,omitempty"`
	DiskIOMB    float64 `json:"disk_io_mb,omitempty"`
}

// Base returns the embedded base event.
func (e *PerformanceEvent) Base() *Event { return &e.Event }

// SecurityEvent records a detected or blocked security policy violation.
type SecurityEvent struct {
	Event
	SecurityType  string   `json:"security_type,omitempty"`
	Severity      Severity `json:"severity,omitempty"`
	FilePath      string   `json:"file_path,omitempty"`
	LineNumber    int      `json:"line_number,omitempty"`
	ViolationType string   `json:"violation_type,omitempty"`
	Blocked       bool     `json:"blocked"`
	Remediation   string   `json:"remediation,omitempty"`
}

// Base returns the embedded base event.
func (e *SecurityEvent) Base() *Event { return &e.Event }

// IsTask reports whether t belongs to the task variant.
func (t EventType) IsTask() bool { return strings.HasPrefix(string(t), "TASK_") }

// IsBuild reports whether t belongs to the build variant.
func (t EventType) IsBuild() bool { return strings.HasPrefix(string(t), "BUILD_") }

// IsError reports whether t belongs to the error variant. Both ERROR_ and
// EXCEPTION_ prefixes map to ErrorEvent.
func (t EventType) IsError() bool {
	return strings.HasPrefix(string(t), "ERROR_") || strings.HasPrefix(string(t), "EXCEPTION_")
}

// IsPerformance reports whether t belongs to the performance variant.
func (t EventType) IsPerformance() bool { return strings.HasPrefix(string(t), "PERFORMANCE_") }

// IsSecurity reports whether t belongs to the security variant.
func (t EventType) IsSecurity() bool { return strings.HasPrefix(string(t), "SECURITY_") }
