package models

import "time"

// MetricsSummary is a point-in-time aggregate over a window of events. It is
// derived on each calculation, never stored.
type MetricsSummary struct {
	Period    string    `json:"period"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	TotalTasks      int     `json:"total_tasks"`
	SuccessfulTasks int     `json:"successful_tasks"`
	FailedTasks     int     `json:"failed_tasks"`
	SuccessRate     float64 `json:"success_rate"`
	FailureRate     float64 `json:"failure_rate"`

	AvgDurationMS float64 `json:"avg_duration_ms"`
	P95DurationMS float64 `json:"p95_duration_ms"`
	P99DurationMS float64 `json:"p99_duration_ms"`

	TotalCostUSD float64 `json:"total_cost_usd"`
	AvgCostUSD   float64 `json:"avg_cost_usd"`
	TotalTokens  int     `json:"total_tokens"`

	ModelUsage map[string]int `json:"model_usage,omitempty"`
	TopModel   string         `json:"top_model,omitempty"`

	TotalErrors  int            `json:"total_errors"`
	ErrorRate    float64        `json:"error_rate"`
	ErrorsByType map[string]int `json:"errors_by_type,omitempty"`

	SecurityViolations int `json:"security_violations"`
}

// Metric names accepted by the threshold monitor.
const (
	MetricSuccessRate        = "success_rate"
	MetricFailureRate        = "failure_rate"
	MetricErrorRate          = "error_rate"
	MetricAvgDurationMS      = "avg_duration_ms"
	MetricP95DurationMS      = "p95_duration_ms"
	MetricP99DurationMS      = "p99_duration_ms"
	MetricTotalCostUSD       = "total_cost_usd"
	MetricTotalTasks         = "total_tasks"
	MetricTotalErrors        = "total_errors"
	MetricSecurityViolations = "security_violations"
)

// Field returns the numeric summary field named by metric, or false if the
// name does not map to a numeric field.
func (s *MetricsSummary) Field(metric string) (float64, bool) {
	switch metric {
	case MetricSuccessRate:
		return s.SuccessRate, true
	case MetricFailureRate:
		return s.FailureRate, true
	case MetricErrorRate:
		return s.ErrorRate, true
	case MetricAvgDurationMS:
		return s.AvgDurationMS, true
	case MetricP95DurationMS:
		return s.P95DurationMS, true
	case MetricP99DurationMS:
		return s.P99DurationMS, true
	case MetricTotalCostUSD:
		return s.TotalCostUSD, true
	case "avg_cost_usd":
		return s.AvgCostUSD, true
	case "total_tokens":
		return float64(s.TotalTokens), true
	case MetricTotalTasks:
		return float64(s.TotalTasks), true
	case "successful_tasks":
		return float64(s.SuccessfulTasks), true
	case "failed_tasks":
		return float64(s.FailedTasks), true
	case MetricTotalErrors:
		return float64(s.TotalErrors), true
	case MetricSecurityViolations:
		return float64(s.SecurityViolations), true
	default:
		return 0, false
	}
}
