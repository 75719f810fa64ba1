// Package metrics turns windows of collected events into aggregate summaries,
// ad hoc metric calculations, error rankings, and daily trend series.
package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/devpulse/internal/collector"
	"github.com/valter-silva-au/devpulse/pkg/models"
)

// Period names accepted by CalculateSummary and CalculateMetric.
const (
	PeriodHour = "hour"
	PeriodDay  = "day"
	PeriodWeek = "week"
	PeriodAll  = "all"
)

// MetricType selects the aggregation applied by CalculateMetric.
type MetricType string

const (
	MetricCount   MetricType = "COUNT"
	MetricRate    MetricType = "RATE" // events per hour
	MetricAverage MetricType = "AVERAGE"
	MetricMin     MetricType = "MIN"
	MetricMax     MetricType = "MAX"
	MetricMedian  MetricType = "MEDIAN"
	MetricP95     MetricType = "P95"
	MetricP99     MetricType = "P99"
)

// Metric is the result of one ad hoc metric calculation.
type Metric struct {
	Name        string     `json:"name"`
	Type        MetricType `json:"type"`
	Value       float64    `json:"value"`
	SampleCount int        `json:"sample_count"`
	Period      string     `json:"period"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
}

// ErrorFrequency is one entry of the frequency-ranked error report, with a
// representative example.
type ErrorFrequency struct {
	ErrorType        string    `json:"error_type"`
	Count            int       `json:"count"`
	ExampleMessage   string    `json:"example_message,omitempty"`
	ExampleComponent string    `json:"example_component,omitempty"`
	ExampleTime      time.Time `json:"example_time"`
}

// Analyzer computes metrics from events served by the Collector.
type Analyzer struct {
	collector *collector.Collector
	log       *logrus.Logger
}

// NewAnalyzer creates an Analyzer reading from the given collector.
func NewAnalyzer(c *collector.Collector, log *logrus.Logger) *Analyzer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{collector: c, log: log}
}

// resolveWindow maps a period name to a concrete [start, end] window unless
// explicit bounds are given. For "all" the window is derived from the oldest
// and newest stored events, or "now" when none exist.
func (a *Analyzer) resolveWindow(period string, start, end *time.Time) (time.Time, time.Time) {
	now := time.Now().UTC()
	if start != nil && end != nil {
		return start.UTC(), end.UTC()
	}

	switch period {
	case PeriodHour:
		return now.Add(-time.Hour), now
	case PeriodDay:
		return now.Add(-24 * time.Hour), now
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour), now
	default: // PeriodAll
		oldest, newest, ok := a.collector.TimeBounds()
		if !ok {
			return now, now
		}
		return oldest, newest
	}
}

// CalculateSummary computes the aggregate summary over the resolved window.
// An empty window yields a summary with zero numeric fields and empty
// histograms rather than an error.
func (a *Analyzer) CalculateSummary(period string, start, end *time.Time) *models.MetricsSummary {
	windowStart, windowEnd := a.resolveWindow(period, start, end)
	events := a.collector.Query(models.EventFilter{Since: &windowStart, Until: &windowEnd}, 0)

	summary := &models.MetricsSummary{
		Period:       period,
		StartTime:    windowStart,
		EndTime:      windowEnd,
		ModelUsage:   make(map[string]int),
		ErrorsByType: make(map[string]int),
	}

	var durations []float64
	for _, ev := range events {
		switch e := ev.(type) {
		case *models.TaskEvent:
			summary.TotalTasks++
			if e.Success {
				summary.SuccessfulTasks++
			} else {
				summary.FailedTasks++
			}
			if e.DurationMS > 0 {
				durations = append(durations, float64(e.DurationMS))
			}
			summary.TotalCostUSD += e.CostUSD
			summary.TotalTokens += e.TokensUsed
			if e.ModelUsed != "" {
				summary.ModelUsage[e.ModelUsed]++
			}
		case *models.ErrorEvent:
			summary.TotalErrors++
			if e.ErrorType != "" {
				summary.ErrorsByType[e.ErrorType]++
			}
		case *models.SecurityEvent:
			if e.EventType == models.EventSecurityViolation {
				summary.SecurityViolations++
			}
		}
	}

	if summary.TotalTasks > 0 {
		summary.SuccessRate = float64(summary.SuccessfulTasks) / float64(summary.TotalTasks) * 100
		summary.FailureRate = float64(summary.FailedTasks) / float64(summary.TotalTasks) * 100
		summary.ErrorRate = float64(summary.TotalErrors) / float64(summary.TotalTasks) * 100
		summary.AvgCostUSD = summary.TotalCostUSD / float64(summary.TotalTasks)
	}

	sort.Float64s(durations)
	summary.AvgDurationMS = mean(durations)
	summary.P95DurationMS = nearestRank(durations, 0.95)
	summary.P99DurationMS = nearestRank(durations, 0.99)

	top, topCount := "", 0
	for model, count := range summary.ModelUsage {
		if count > topCount || (count == topCount && model < top) {
			top, topCount = model, count
		}
	}
	summary.TopModel = top

	return summary
}

// CalculateMetric is the generic escape hatch: it aggregates an arbitrary
// numeric attribute of the filtered events. An unknown metric type is a
// caller bug and returns a typed error.
func (a *Analyzer) CalculateMetric(name string, metricType MetricType, eventType models.EventType, attribute, period string) (*Metric, error) {
	windowStart, windowEnd := a.resolveWindow(period, nil, nil)
	filter := models.EventFilter{Since: &windowStart, Until: &windowEnd}
	if eventType != "" {
		filter.Types = []models.EventType{eventType}
	}
	events := a.collector.Query(filter, 0)

	metric := &Metric{
		Name:        name,
		Type:        metricType,
		SampleCount: len(events),
		Period:      period,
		StartTime:   windowStart,
		EndTime:     windowEnd,
	}

	switch metricType {
	case MetricCount:
		metric.Value = float64(len(events))
		return metric, nil
	case MetricRate:
		hours := windowEnd.Sub(windowStart).Hours()
		if hours > 0 {
			metric.Value = float64(len(events)) / hours
		}
		return metric, nil
	}

	values := attributeValues(events, attribute)
	metric.SampleCount = len(values)
	sort.Float64s(values)

	switch metricType {
	case MetricAverage:
		metric.Value = mean(values)
	case MetricMin:
		if len(values) > 0 {
			metric.Value = values[0]
		}
	case MetricMax:
		if len(values) > 0 {
			metric.Value = values[len(values)-1]
		}
	case MetricMedian:
		metric.Value = nearestRank(values, 0.5)
	case MetricP95:
		metric.Value = nearestRank(values, 0.95)
	case MetricP99:
		metric.Value = nearestRank(values, 0.99)
	default:
		return nil, fmt.Errorf("unknown metric type %q", metricType)
	}
	return metric, nil
}

// TopErrors returns the most frequent error types with one representative
// example each.
func (a *Analyzer) TopErrors(limit int) []ErrorFrequency {
	events := a.collector.Query(models.EventFilter{}, 0)

	counts := make(map[string]int)
	examples := make(map[string]*models.ErrorEvent)
	for _, ev := range events {
		e, ok := ev.(*models.ErrorEvent)
		if !ok {
			continue
		}
		key := e.ErrorType
		if key == "" {
			key = "unknown"
		}
		counts[key]++
		if _, seen := examples[key]; !seen {
			examples[key] = e
		}
	}

	ranked := make([]ErrorFrequency, 0, len(counts))
	for errType, count := range counts {
		entry := ErrorFrequency{ErrorType: errType, Count: count}
		if ex := examples[errType]; ex != nil {
			entry.ExampleMessage = ex.ErrorMessage
			entry.ExampleComponent = ex.Component
			entry.ExampleTime = ex.Timestamp
		}
		ranked = append(ranked, entry)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].ErrorType < ranked[j].ErrorType
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// PerformanceTrends collects, for each of the last N days, the raw per-event
// values of the named numeric attribute from that day's task events. Callers
// compute their own rollups from the lists.
func (a *Analyzer) PerformanceTrends(days int, metric string) map[string][]float64 {
	trends := make(map[string][]float64)
	now := time.Now().UTC()

	for i := 0; i < days; i++ {
		dayStart := now.AddDate(0, 0, -i).Truncate(24 * time.Hour)
		dayEnd := dayStart.Add(24 * time.Hour)
		events := a.collector.Query(models.EventFilter{
			Types: []models.EventType{models.EventTaskStarted, models.EventTaskCompleted, models.EventTaskFailed},
			Since: &dayStart,
			Until: &dayEnd,
		}, 0)

		date := dayStart.Format("2006-01-02")
		trends[date] = attributeValues(events, metric)
	}
	return trends
}

// attributeValues extracts a numeric attribute from each event's flattened
// form, skipping events that lack it.
func attributeValues(events []models.TypedEvent, attribute string) []float64 {
	var values []float64
	for _, ev := range events {
		raw, ok := ev.Flatten()[attribute]
		if !ok {
			continue
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			values = append(values, v)
		}
	}
	return values
}

// nearestRank returns the percentile of a sorted slice using nearest-rank
// indexing at floor(n*p), without interpolation.
func nearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
