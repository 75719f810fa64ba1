// Package alerting evaluates threshold rules against metrics summaries and
// keeps an in-memory history of the alerts raised.
package alerting

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/devpulse/pkg/models"
)

// Handler receives each raised alert synchronously. A failing handler is
// isolated so it cannot block the others or the returned alerts.
type Handler func(models.Alert)

// Statistics summarizes monitor state and alert history.
type Statistics struct {
	TotalAlerts       int            `json:"total_alerts"`
	AlertsByLevel     map[string]int `json:"alerts_by_level"`
	AlertsByThreshold map[string]int `json:"alerts_by_threshold"`
	ActiveThresholds  int            `json:"active_thresholds"`
	TotalThresholds   int            `json:"total_thresholds"`
}

// Monitor holds the threshold rule set and the append-only alert history.
// Alerts are never auto-resolved: once a condition improves, re-evaluation
// simply stops producing new alerts for that rule.
type Monitor struct {
	log *logrus.Logger

	mu         sync.Mutex
	thresholds map[string]models.Threshold
	alerts     []models.Alert
	handlers   map[int]Handler
	nextID     int
}

// DefaultThresholds returns the built-in rule set.
func DefaultThresholds() []models.Threshold {
	return []models.Threshold{
		{
			Name:        "low_success_rate",
			MetricName:  models.MetricSuccessRate,
			Operator:    models.OpLessThan,
			Value:       80,
			Level:       models.AlertWarning,
			Description: "Task success rate dropped below 80%",
			Enabled:     true,
		},
		{
			Name:        "critical_success_rate",
			MetricName:  models.MetricSuccessRate,
			Operator:    models.OpLessThan,
			Value:       50,
			Level:       models.AlertCritical,
			Description: "Task success rate dropped below 50%",
			Enabled:     true,
		},
		{
			Name:        "high_error_rate",
			MetricName:  models.MetricErrorRate,
			Operator:    models.OpGreaterThan,
			Value:       10,
			Level:       models.AlertWarning,
			Description: "Error rate exceeded 10% of tasks",
			Enabled:     true,
		},
		{
			Name:        "critical_error_rate",
			MetricName:  models.MetricErrorRate,
			Operator:    models.OpGreaterThan,
			Value:       25,
			Level:       models.AlertCritical,
			Description: "Error rate exceeded 25% of tasks",
			Enabled:     true,
		},
		{
			Name:        "slow_p95_duration",
			MetricName:  models.MetricP95DurationMS,
			Operator:    models.OpGreaterThan,
			Value:       5000,
			Level:       models.AlertWarning,
			Description: "95th percentile task duration exceeded 5000 ms",
			Enabled:     true,
		},
		{
			Name:        "high_daily_cost",
			MetricName:  models.MetricTotalCostUSD,
			Operator:    models.OpGreaterThan,
			Value:       10,
			Level:       models.AlertWarning,
			Description: "Daily cost exceeded $10",
			Enabled:     true,
		},
		{
			Name:        "security_violations",
			MetricName:  models.MetricSecurityViolations,
			Operator:    models.OpGreaterThan,
			Value:       0,
			Level:       models.AlertCritical,
			Description: "One or more security violations detected",
			Enabled:     true,
		},
	}
}

// NewMonitor creates a Monitor seeded with the given thresholds, or the
// defaults when none are supplied.
func NewMonitor(thresholds []models.Threshold, log *logrus.Logger) *Monitor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds()
	}
	m := &Monitor{
		log:        log,
		thresholds: make(map[string]models.Threshold, len(thresholds)),
		handlers:   make(map[int]Handler),
	}
	for _, t := range thresholds {
		m.thresholds[t.Name] = t
	}
	return m
}

// CheckThresholds evaluates every enabled threshold against the summary and
// returns the alerts raised. Thresholds naming an unknown summary metric are
// skipped.
func (m *Monitor) CheckThresholds(summary *models.MetricsSummary) []models.Alert {
	m.mu.Lock()
	thresholds := make([]models.Threshold, 0, len(m.thresholds))
	for _, t := range m.thresholds {
		thresholds = append(thresholds, t)
	}
	m.mu.Unlock()

	now := time.Now().UTC()
	var raised []models.Alert
	for _, t := range thresholds {
		if !t.Enabled {
			continue
		}
		observed, ok := summary.Field(t.MetricName)
		if !ok {
			m.log.WithField("metric", t.MetricName).Debug("threshold references unknown summary metric; skipped")
			continue
		}
		if !t.Compare(observed) {
			continue
		}
		raised = append(raised, models.Alert{
			Timestamp:      now,
			Level:          t.Level,
			ThresholdName:  t.Name,
			Message:        fmt.Sprintf("%s: %s is %.2f (threshold %s %.2f)", t.Name, t.MetricName, observed, t.Operator, t.Value),
			MetricName:     t.MetricName,
			MetricValue:    observed,
			ThresholdValue: t.Value,
		})
	}

	if len(raised) == 0 {
		return nil
	}

	m.mu.Lock()
	m.alerts = append(m.alerts, raised...)
	handlers := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, alert := range raised {
		for _, h := range handlers {
			func() {
				defer func() {
					if r := recover(); r != nil {
						m.log.WithField("panic", r).Warn("alert handler panicked")
					}
				}()
				h(alert)
			}()
		}
	}
	return raised
}

// AddThreshold adds or replaces a rule.
func (m *Monitor) AddThreshold(t models.Threshold) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[t.Name] = t
}

// RemoveThreshold deletes a rule, reporting whether it existed.
func (m *Monitor) RemoveThreshold(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.thresholds[name]
	delete(m.thresholds, name)
	return ok
}

// EnableThreshold enables a rule, reporting whether it exists.
func (m *Monitor) EnableThreshold(name string) bool {
	return m.setEnabled(name, true)
}

// DisableThreshold disables a rule, reporting whether it exists.
func (m *Monitor) DisableThreshold(name string) bool {
	return m.setEnabled(name, false)
}

func (m *Monitor) setEnabled(name string, enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.thresholds[name]
	if !ok {
		return false
	}
	t.Enabled = enabled
	m.thresholds[name] = t
	return true
}

// Thresholds returns a copy of the current rule set.
func (m *Monitor) Thresholds() []models.Threshold {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Threshold, 0, len(m.thresholds))
	for _, t := range m.thresholds {
		out = append(out, t)
	}
	return out
}

// AddAlertHandler registers a handler and returns a handle for removal.
func (m *Monitor) AddAlertHandler(h Handler) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.handlers[m.nextID] = h
	return m.nextID
}

// RemoveAlertHandler unregisters the handler with the given handle.
func (m *Monitor) RemoveAlertHandler(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, id)
}

// RecentAlerts returns the count most recent alerts, optionally restricted
// to one level. An empty level matches all.
func (m *Monitor) RecentAlerts(count int, level models.AlertLevel) []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Alert
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if level != "" && m.alerts[i].Level != level {
			continue
		}
		out = append(out, m.alerts[i])
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out
}

// GetStatistics reports alert history and rule-set counts.
func (m *Monitor) GetStatistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Statistics{
		TotalAlerts:       len(m.alerts),
		AlertsByLevel:     make(map[string]int),
		AlertsByThreshold: make(map[string]int),
		TotalThresholds:   len(m.thresholds),
	}
	for _, a := range m.alerts {
		stats.AlertsByLevel[string(a.Level)]++
		stats.AlertsByThreshold[a.ThresholdName]++
	}
	for _, t := range m.thresholds {
		if t.Enabled {
			stats.ActiveThresholds++
		}
	}
	return stats
}

// ClearAlerts empties the alert history.
func (m *Monitor) ClearAlerts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = nil
}
