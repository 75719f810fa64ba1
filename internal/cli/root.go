// Package cli implements the devpulse command-line surface: event ingestion
// and query, metrics summaries, alerts, threshold management, performance
// reports, CSV export, and the interactive dashboard.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "devpulse",
	Short: "devpulse - telemetry and metrics for AI-assisted development",
	Long: `devpulse records structured events emitted by AI-assisted development
tooling, rolls them into aggregate metrics, and raises alerts when metrics
cross configured thresholds.

Events are buffered in memory, persisted to an embedded SQLite store, and
mirrored to a rotated flat-file store as a best-effort backup channel.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("devpulse %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
