// Package config loads telemetry subsystem configuration from a .devpulse
// YAML file using Viper, falling back to defaults when the file is absent.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config supplies storage paths and tuning knobs for the telemetry subsystem.
type Config struct {
	// BasePath is the root directory where all telemetry data is stored.
	BasePath string

	// EventsFile is the flat-file event store path (relative to BasePath
	// unless absolute).
	EventsFile string
	// DatabaseFile is the SQLite database path. Empty disables the
	// relational store.
	DatabaseFile string
	// PerfFile is the performance tracker's measurement store path.
	PerfFile string
	// ThresholdsFile holds threshold rule overrides.
	ThresholdsFile string

	// BufferSize is the number of buffered events that triggers auto-flush.
	BufferSize int
	// AutoFlush enables flushing when the buffer reaches BufferSize.
	AutoFlush bool
	// SQLiteEnabled turns the relational store on.
	SQLiteEnabled bool

	// MaxFileSizeBytes is the rotation threshold for the flat-file store.
	MaxFileSizeBytes int64
	// Compress gzips rotated files.
	Compress bool
	// RetentionDays is the age beyond which rotated files are deleted.
	RetentionDays int
}

// Default returns a Config populated with sensible defaults rooted at basePath.
func Default(basePath string) *Config {
	return &Config{
		BasePath:         basePath,
		EventsFile:       "events.json",
		DatabaseFile:     "events.db",
		PerfFile:         "performance.json",
		ThresholdsFile:   "thresholds.yaml",
		BufferSize:       50,
		AutoFlush:        true,
		SQLiteEnabled:    true,
		MaxFileSizeBytes: 1 << 20, // 1 MB
		Compress:         true,
		RetentionDays:    30,
	}
}

// Load reads a .devpulse config file from basePath using Viper. If the file
// does not exist, defaults are returned.
func Load(basePath string) (*Config, error) {
	cfg := Default(basePath)

	v := viper.New()
	v.SetConfigName(".devpulse")
	v.SetConfigType("yaml")
	v.AddConfigPath(basePath)

	v.SetDefault("storage.events_file", cfg.EventsFile)
	v.SetDefault("storage.database_file", cfg.DatabaseFile)
	v.SetDefault("storage.perf_file", cfg.PerfFile)
	v.SetDefault("storage.thresholds_file", cfg.ThresholdsFile)
	v.SetDefault("collector.buffer_size", cfg.BufferSize)
	v.SetDefault("collector.auto_flush", cfg.AutoFlush)
	v.SetDefault("collector.sqlite_enabled", cfg.SQLiteEnabled)
	v.SetDefault("rotation.max_size_bytes", cfg.MaxFileSizeBytes)
	v.SetDefault("rotation.compress", cfg.Compress)
	v.SetDefault("rotation.retention_days", cfg.RetentionDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .devpulse config: %w", err)
	}

	cfg.EventsFile = v.GetString("storage.events_file")
	cfg.DatabaseFile = v.GetString("storage.database_file")
	cfg.PerfFile = v.GetString("storage.perf_file")
	cfg.ThresholdsFile = v.GetString("storage.thresholds_file")
	cfg.BufferSize = v.GetInt("collector.buffer_size")
	cfg.AutoFlush = v.GetBool("collector.auto_flush")
	cfg.SQLiteEnabled = v.GetBool("collector.sqlite_enabled")
	cfg.MaxFileSizeBytes = v.GetInt64("rotation.max_size_bytes")
	cfg.Compress = v.GetBool("rotation.compress")
	cfg.RetentionDays = v.GetInt("rotation.retention_days")

	if cfg.BufferSize <= 0 {
		return nil, fmt.Errorf("collector.buffer_size must be positive, got %d", cfg.BufferSize)
	}
	if cfg.MaxFileSizeBytes <= 0 {
		return nil, fmt.Errorf("rotation.max_size_bytes must be positive, got %d", cfg.MaxFileSizeBytes)
	}

	return cfg, nil
}

// ResolvePath joins a configured file path with the base path unless it is
// already absolute.
func (c *Config) ResolvePath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.BasePath, file)
}
