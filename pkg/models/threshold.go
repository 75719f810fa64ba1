package models

import "time"

// AlertLevel represents the urgency of a threshold violation.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertError    AlertLevel = "error"
	AlertCritical AlertLevel = "critical"
)

// ThresholdOperator is the comparison applied between a summary metric and a
// threshold value.
type ThresholdOperator string

const (
	OpGreaterThan  ThresholdOperator = "gt"
	OpGreaterEqual ThresholdOperator = "gte"
	OpLessThan     ThresholdOperator = "lt"
	OpLessEqual    ThresholdOperator = "lte"
	OpEqual        ThresholdOperator = "eq"
)

// Threshold is a named rule comparing a summary metric against a fixed value.
// MetricName must match a numeric field of MetricsSummary.
type Threshold struct {
	Name        string            `yaml:"name" json:"name"`
	MetricName  string            `yaml:"metric_name" json:"metric_name"`
	Operator    ThresholdOperator `yaml:"operator" json:"operator"`
	Value       float64           `yaml:"value" json:"value"`
	Level       AlertLevel        `yaml:"level" json:"level"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Enabled     bool              `yaml:"enabled" json:"enabled"`
}

// Compare applies the threshold operator to the observed metric value. An
// unknown operator never fires.
func (t Threshold) Compare(observed float64) bool {
	switch t.Operator {
	case OpGreaterThan:
		return observed > t.Value
	case OpGreaterEqual:
		return observed >= t.Value
	case OpLessThan:
		return observed < t.Value
	case OpLessEqual:
		return observed <= t.Value
	case OpEqual:
		return observed == t.Value
	default:
		return false
	}
}

// Alert records a single threshold violation at a point in time. Alerts are
// write-once and appended to the monitor's in-memory history.
type Alert struct {
	Timestamp      time.Time         `json:"timestamp"`
	Level          AlertLevel        `json:"level"`
	ThresholdName  string            `json:"threshold_name"`
	Message        string            `json:"message"`
	MetricName     string            `json:"metric_name"`
	MetricValue    float64           `json:"metric_value"`
	ThresholdValue float64           `json:"threshold_value"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}
