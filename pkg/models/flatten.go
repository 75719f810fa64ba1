package models

import (
	"strconv"
	"strings"
	"time"
)

// metaPrefix namespaces free-form metadata keys in the flattened form so they
// cannot collide with variant field names.
const metaPrefix = "meta."

// flatTimeFormat round-trips timestamps without precision loss.
const flatTimeFormat = time.RFC3339Nano

func (e *Event) flattenBase() map[string]string {
	flat := map[string]string{
		"event_id":   e.EventID,
		"event_type": string(e.EventType),
		"timestamp":  e.Timestamp.UTC().Format(flatTimeFormat),
	}
	if e.SessionID != "" {
		flat["session_id"] = e.SessionID
	}
	for k, v := range e.Metadata {
		flat[metaPrefix+k] = v
	}
	return flat
}

func putString(flat map[string]string, key, value string) {
	if value != "" {
		flat[key] = value
	}
}

func putInt(flat map[string]string, key string, value int) {
	if value != 0 {
		flat[key] = strconv.Itoa(value)
	}
}

func putInt64(flat map[string]string, key string, value int64) {
	if value != 0 {
		flat[key] = strconv.FormatInt(value, 10)
	}
}

func putFloat(flat map[string]string, key string, value float64) {
	if value != 0 {
		flat[key] = strconv.FormatFloat(value, 'g', -1, 64)
	}
}

func putBool(flat map[string]string, key string, value bool) {
	flat[key] = strconv.FormatBool(value)
}

// Flatten serializes the base event to a flat string map.
func (e *Event) Flatten() map[string]string {
	return e.flattenBase()
}

// Flatten serializes a task event to a flat string map.
func (e *TaskEvent) Flatten() map[string]string {
	flat := e.flattenBase()
	putString(flat, "task_id", e.TaskID)
	putString(flat, "task_type", e.TaskType)
	putString(flat, "task_description", e.TaskDescription)
	putString(flat, "complexity_level", e.ComplexityLevel)
	putString(flat, "model_used", e.ModelUsed)
	putInt(flat, "file_count", e.FileCount)
	putInt(flat, "line_count", e.LineCount)
	putInt64(flat, "duration_ms", e.DurationMS)
	putInt(flat, "tokens_used", e.TokensUsed)
	putFloat(flat, "cost_usd", e.CostUSD)
	putBool(flat, "success", e.Success)
	putString(flat, "error_message", e.ErrorMessage)
	return flat
}

// Flatten serializes a build event to a flat string map.
func (e *BuildEvent) Flatten() map[string]string {
	flat := e.flattenBase()
	putString(flat, "build_id", e.BuildID)
	putString(flat, "build_phase", e.BuildPhase)
	putInt(flat, "total_tasks", e.TotalTasks)
	putInt(flat, "completed_tasks", e.CompletedTasks)
	putInt(flat, "failed_tasks", e.FailedTasks)
	putInt64(flat, "duration_ms", e.DurationMS)
	putFloat(flat, "total_cost_usd", e.TotalCostUSD)
	putBool(flat, "success", e.Success)
	putString(flat, "error_message", e.ErrorMessage)
	return flat
}

// Flatten serializes an error event to a flat string map.
func (e *ErrorEvent) Flatten() map[string]string {
	flat := e.flattenBase()
	putString(flat, "error_type", e.ErrorType)
	putString(flat, "error_message", e.ErrorMessage)
	putString(flat, "stack_trace", e.StackTrace)
	putString(flat, "task_id", e.TaskID)
	putString(flat, "component", e.Component)
	putString(flat, "severity", string(e.Severity))
	putBool(flat, "recoverable", e.Recoverable)
	putString(flat, "recovery_action", e.RecoveryAction)
	return flat
}

// Flatten serializes a performance event to a flat string map.
func (e *PerformanceEvent) Flatten() map[string]string {
	flat := e.flattenBase()
	putString(flat, "metric_name", e.MetricName)
	putFloat(flat, "metric_value", e.MetricValue)
	putString(flat, "metric_unit", e.MetricUnit)
	putString(flat, "component", e.Component)
	putString(flat, "operation", e.Operation)
	putFloat(flat, "cpu_percent", e.CPUPercent)
	putFloat(flat, "memory_mb", e.MemoryMB)
	putFloat(flat, "disk_io_mb", e.DiskIOMB)
	return flat
}

// Flatten serializes a security event to a flat string map.
func (e *SecurityEvent) Flatten() map[string]string {
	flat := e.flattenBase()
	putString(flat, "security_type", e.SecurityType)
	putString(flat, "severity", string(e.Severity))
	putString(flat, "file_path", e.FilePath)
	putInt(flat, "line_number", e.LineNumber)
	putString(flat, "violation_type", e.ViolationType)
	putBool(flat, "blocked", e.Blocked)
	putString(flat, "remediation", e.Remediation)
	return flat
}

func getInt(flat map[string]string, key string) int {
	n, _ := strconv.Atoi(flat[key])
	return n
}

func getInt64(flat map[string]string, key string) int64 {
	n, _ := strconv.ParseInt(flat[key], 10, 64)
	return n
}

func getFloat(flat map[string]string, key string) float64 {
	f, _ := strconv.ParseFloat(flat[key], 64)
	return f
}

func getBool(flat map[string]string, key string) bool {
	b, _ := strconv.ParseBool(flat[key])
	return b
}

func decodeBase(flat map[string]string) Event {
	e := Event{
		EventID:   flat["event_id"],
		EventType: EventType(flat["event_type"]),
		SessionID: flat["session_id"],
	}
	if ts, err := time.Parse(flatTimeFormat, flat["timestamp"]); err == nil {
		e.Timestamp = ts.UTC()
	}
	for k, v := range flat {
		if strings.HasPrefix(k, metaPrefix) {
			if e.Metadata == nil {
				e.Metadata = make(map[string]string)
			}
			e.Metadata[strings.TrimPrefix(k, metaPrefix)] = v
		}
	}
	return e
}

// DecodeEvent reconstructs a typed event from its flattened form, dispatching
// on the event-type prefix. Types with no matching prefix decode to the base
// Event shape so unknown records are preserved rather than dropped.
func DecodeEvent(flat map[string]string) TypedEvent {
	base := decodeBase(flat)

	switch {
	case base.EventType.IsTask():
		return &TaskEvent{
			Event:           base,
			TaskID:          flat["task_id"],
			TaskType:        flat["task_type"],
			TaskDescription: flat["task_description"],
			ComplexityLevel: flat["complexity_level"],
			ModelUsed:       flat["model_used"],
			FileCount:       getInt(flat, "file_count"),
			LineCount:       getInt(flat, "line_count"),
			DurationMS:      getInt64(flat, "duration_ms"),
			TokensUsed:      getInt(flat, "tokens_used"),
			CostUSD:         getFloat(flat, "cost_usd"),
			Success:         getBool(flat, "success"),
			ErrorMessage:    flat["error_message"],
		}
	case base.EventType.IsBuild():
		return &BuildEvent{
			Event:          base,
			BuildID:        flat["build_id"],
			BuildPhase:     flat["build_phase"],
			TotalTasks:     getInt(flat, "total_tasks"),
			CompletedTasks: getInt(flat, "completed_tasks"),
			FailedTasks:    getInt(flat, "failed_tasks"),
			DurationMS:     getInt64(flat, "duration_ms"),
			TotalCostUSD:   getFloat(flat, "total_cost_usd"),
			Success:        getBool(flat, "success"),
			ErrorMessage:   flat["error_message"],
		}
	case base.EventType.IsError():
		return &ErrorEvent{
			Event:          base,
			ErrorType:      flat["error_type"],
			ErrorMessage:   flat["error_message"],
			StackTrace:     flat["stack_trace"],
			TaskID:         flat["task_id"],
			Component:      flat["component"],
			Severity:       Severity(flat["severity"]),
			Recoverable:    getBool(flat, "recoverable"),
			RecoveryAction: flat["recovery_action"],
		}
	case base.EventType.IsPerformance():
		return &PerformanceEvent{
			Event:       base,
			MetricName:  flat["metric_name"],
			MetricValue: getFloat(flat, "metric_value"),
			MetricUnit:  flat["metric_unit"],
			Component:   flat["component"],
			Operation:   flat["operation"],
			CPUPercent:  getFloat(flat, "cpu_percent"),
			MemoryMB:    getFloat(flat, "memory_mb"),
			DiskIOMB:    getFloat(flat, "disk_io_mb"),
		}
	case base.EventType.IsSecurity():
		return &SecurityEvent{
			Event:         base,
			SecurityType:  flat["security_type"],
			Severity:      Severity(flat["severity"]),
			FilePath:      flat["file_path"],
			LineNumber:    getInt(flat, "line_number"),
			ViolationType: flat["violation_type"],
			Blocked:       getBool(flat, "blocked"),
			Remediation:   flat["remediation"],
		}
	default:
		e := base
		return &e
	}
}
