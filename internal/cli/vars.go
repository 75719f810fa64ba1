package cli

import (
	"github.com/valter-silva-au/devpulse/internal/alerting"
	"github.com/valter-silva-au/devpulse/internal/collector"
	"github.com/valter-silva-au/devpulse/internal/metrics"
	"github.com/valter-silva-au/devpulse/internal/perf"
	"github.com/valter-silva-au/devpulse/internal/storage"
)

// Service instances, set during app initialization in app.go.
var (
	Collector *collector.Collector
	Analyzer  *metrics.Analyzer
	Monitor   *alerting.Monitor
	Tracker   *perf.Tracker
	Files     *storage.FileStore

	// ThresholdsPath is where threshold edits are persisted.
	ThresholdsPath string
)
