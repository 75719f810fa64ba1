// Package internal provides the App struct that wires all components of the
// devpulse telemetry subsystem together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/devpulse/internal/alerting"
	"github.com/valter-silva-au/devpulse/internal/cli"
	"github.com/valter-silva-au/devpulse/internal/collector"
	"github.com/valter-silva-au/devpulse/internal/config"
	"github.com/valter-silva-au/devpulse/internal/metrics"
	"github.com/valter-silva-au/devpulse/internal/perf"
	"github.com/valter-silva-au/devpulse/internal/storage"
)

// App holds all service dependencies for the telemetry subsystem. Components
// are constructed once here and injected explicitly; there is no hidden
// global state.
type App struct {
	BasePath string
	Config   *config.Config
	Log      *logrus.Logger

	// Storage layer
	DB      *storage.SQLiteStore // nil when disabled
	Rotator *storage.Rotator
	Files   *storage.FileStore

	// Services
	Collector *collector.Collector
	Analyzer  *metrics.Analyzer
	Monitor   *alerting.Monitor
	Tracker   *perf.Tracker
}

// NewApp creates and wires all components rooted at basePath.
func NewApp(basePath string) (*App, error) {
	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := &App{BasePath: basePath, Config: cfg, Log: log}

	// --- Storage layer ---
	if cfg.SQLiteEnabled && cfg.DatabaseFile != "" {
		dbPath := cfg.ResolvePath(cfg.DatabaseFile)
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		db, err := storage.OpenSQLite(dbPath, log)
		if err != nil {
			// Non-fatal: collection falls back to the flat-file channel.
			log.WithError(err).Warn("opening event database failed; relational store disabled")
		} else {
			app.DB = db
		}
	}

	app.Rotator = storage.NewRotator(cfg.MaxFileSizeBytes, cfg.Compress, cfg.RetentionDays, log)
	app.Files = storage.NewFileStore(cfg.ResolvePath(cfg.EventsFile), app.Rotator, log)

	// --- Services ---
	app.Collector = collector.New(app.DB, app.Files, collector.Options{
		BufferSize: cfg.BufferSize,
		AutoFlush:  cfg.AutoFlush,
	}, log)
	app.Analyzer = metrics.NewAnalyzer(app.Collector, log)

	thresholds, err := alerting.LoadThresholds(cfg.ResolvePath(cfg.ThresholdsFile))
	if err != nil {
		return nil, fmt.Errorf("loading thresholds: %w", err)
	}
	app.Monitor = alerting.NewMonitor(thresholds, log)

	app.Tracker = perf.NewTracker(cfg.ResolvePath(cfg.PerfFile), log)

	// --- CLI layer ---
	cli.Collector = app.Collector
	cli.Analyzer = app.Analyzer
	cli.Monitor = app.Monitor
	cli.Tracker = app.Tracker
	cli.Files = app.Files
	cli.ThresholdsPath = cfg.ResolvePath(cfg.ThresholdsFile)

	return app, nil
}

// Close flushes buffered data and releases storage handles.
func (a *App) Close() error {
	a.Collector.Flush()
	a.Tracker.Flush()
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// ResolveBasePath determines the telemetry data directory: DEVPULSE_HOME if
// set, otherwise the nearest ancestor directory containing a .devpulse.yaml,
// falling back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("DEVPULSE_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".devpulse.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
