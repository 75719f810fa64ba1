package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var (
	metricsJSON   bool
	metricsPeriod string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display the aggregate metrics summary",
	Long: `Compute the metrics summary over a time window: task counts, success
rate, duration percentiles, cost, token usage, model usage, error and
security metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Analyzer == nil {
			return fmt.Errorf("analyzer not initialized")
		}

		summary := Analyzer.CalculateSummary(metricsPeriod, nil, nil)

		if metricsJSON {
			data, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting summary as JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Metrics (%s: %s to %s)\n\n",
			summary.Period,
			summary.StartTime.Format(time.RFC3339),
			summary.EndTime.Format(time.RFC3339),
		)
		fmt.Printf("  %-24s %d\n", "Total tasks:", summary.TotalTasks)
		fmt.Printf("  %-24s %d\n", "Successful:", summary.SuccessfulTasks)
		fmt.Printf("  %-24s %d\n", "Failed:", summary.FailedTasks)
		fmt.Printf("  %-24s %.1f%%\n", "Success rate:", summary.SuccessRate)
		fmt.Printf("  %-24s %.0f ms\n", "Avg duration:", summary.AvgDurationMS)
		fmt.Printf("  %-24s %.0f ms\n", "P95 duration:", summary.P95DurationMS)
		fmt.Printf("  %-24s %.0f ms\n", "P99 duration:", summary.P99DurationMS)
		fmt.Printf("  %-24s $%.4f\n", "Total cost:", summary.TotalCostUSD)
		fmt.Printf("  %-24s %d\n", "Total tokens:", summary.TotalTokens)
		fmt.Printf("  %-24s %d (%.1f%%)\n", "Errors:", summary.TotalErrors, summary.ErrorRate)
		fmt.Printf("  %-24s %d\n", "Security violations:", summary.SecurityViolations)

		if len(summary.ModelUsage) > 0 {
			fmt.Println("\n  Model usage:")
			names := make([]string, 0, len(summary.ModelUsage))
			for name := range summary.ModelUsage {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				marker := ""
				if name == summary.TopModel {
					marker = " *"
				}
				fmt.Printf("    %-20s %d%s\n", name+":", summary.ModelUsage[name], marker)
			}
		}

		if len(summary.ErrorsByType) > 0 {
			fmt.Println("\n  Errors by type:")
			for errType, count := range summary.ErrorsByType {
				fmt.Printf("    %-20s %d\n", errType+":", count)
			}
		}

		return nil
	},
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output summary as JSON")
	metricsCmd.Flags().StringVar(&metricsPeriod, "period", "day", "Summary window: hour, day, week, or all")
	rootCmd.AddCommand(metricsCmd)
}
