package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var (
	perfHours   int
	perfOpType  string
	perfSlowest int
	perfJSON    bool
)

var perfCmd = &cobra.Command{
	Use:   "perf",
	Short: "Show operation performance metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tracker == nil {
			return fmt.Errorf("tracker not initialized")
		}

		m := Tracker.GetMetrics(perfOpType, perfHours)
		if perfJSON {
			data, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal metrics: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Performance (last %dh)\n\n", perfHours)
		if m.Count == 0 {
			fmt.Println("  No measurements recorded.")
			return nil
		}
		fmt.Printf("  Operations:   %d (%.2f/sec)\n", m.Count, m.ThroughputPerSec)
		fmt.Printf("  Duration ms:  avg %.1f  min %.1f  max %.1f\n", m.AvgDurationMS, m.MinDurationMS, m.MaxDurationMS)
		fmt.Printf("  Percentiles:  p50 %.1f  p95 %.1f  p99 %.1f\n", m.P50DurationMS, m.P95DurationMS, m.P99DurationMS)
		if m.AvgCPUPercent > 0 || m.AvgMemoryMB > 0 {
			fmt.Printf("  Resources:    cpu %.1f%%  mem %.1fMB (peak %.1fMB)\n", m.AvgCPUPercent, m.AvgMemoryMB, m.PeakMemoryMB)
		}

		if len(m.ByOperation) > 0 {
			fmt.Println("\n  By operation:")
			names := make([]string, 0, len(m.ByOperation))
			for name := range m.ByOperation {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				op := m.ByOperation[name]
				fmt.Printf("    %-28s %5d calls  avg %.1fms  max %.1fms\n",
					name, op.Count, op.AvgDurationMS, op.MaxDurationMS)
			}
		}

		if perfSlowest > 0 {
			slow := Tracker.SlowestOperations(perfSlowest, perfOpType)
			if len(slow) > 0 {
				fmt.Println("\n  Slowest:")
				for _, s := range slow {
					fmt.Printf("    %-28s %.1fms  %s\n",
						s.OperationType, s.DurationMS, s.Timestamp.Format("2006-01-02 15:04:05"))
				}
			}
		}
		return nil
	},
}

var perfCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show current process resource usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tracker == nil {
			return fmt.Errorf("tracker not initialized")
		}
		m := Tracker.CurrentMetrics()
		if perfJSON {
			data, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal metrics: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}
		fmt.Printf("  CPU:        %.1f%%\n", m.AvgCPUPercent)
		fmt.Printf("  Memory:     %.1fMB\n", m.AvgMemoryMB)
		fmt.Printf("  In flight:  %d\n", m.InFlight)
		if m.Count > 0 {
			fmt.Printf("  Recent avg: %.1fms over %d ops\n", m.AvgDurationMS, m.Count)
		}
		return nil
	},
}

func init() {
	perfCmd.Flags().IntVar(&perfHours, "hours", 24, "Trailing window in hours")
	perfCmd.Flags().StringVar(&perfOpType, "type", "", "Restrict to one operation type")
	perfCmd.Flags().IntVar(&perfSlowest, "slowest", 0, "Also list the N slowest operations")
	perfCmd.Flags().BoolVar(&perfJSON, "json", false, "Output as JSON")
	perfCurrentCmd.Flags().BoolVar(&perfJSON, "json", false, "Output as JSON")
	perfCmd.AddCommand(perfCurrentCmd)
	rootCmd.AddCommand(perfCmd)
}
