package models

import "time"

// EventFilter specifies criteria for querying stored events. A zero filter
// matches everything.
type EventFilter struct {
	Types     []EventType
	Since     *time.Time
	Until     *time.Time
	SessionID string
	TaskID    string
}

// Matches reports whether the typed event satisfies all filter criteria. The
// relational query path must preserve exactly these semantics.
func (f EventFilter) Matches(ev TypedEvent) bool {
	base := ev.Base()

	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if base.EventType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Since != nil && base.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && base.Timestamp.After(*f.Until) {
		return false
	}
	if f.SessionID != "" && base.SessionID != f.SessionID {
		return false
	}
	if f.TaskID != "" && f.TaskID != eventTaskID(ev) {
		return false
	}
	return true
}

// eventTaskID extracts the task id from variants that carry one.
func eventTaskID(ev TypedEvent) string {
	switch e := ev.(type) {
	case *TaskEvent:
		return e.TaskID
	case *ErrorEvent:
		return e.TaskID
	default:
		return ""
	}
}
