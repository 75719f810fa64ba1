package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show event store statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Collector == nil {
			return fmt.Errorf("collector not initialized")
		}

		stats := Collector.GetStatistics()
		if statsJSON {
			out := map[string]any{"events": stats}
			if Files != nil {
				out["storage"] = Files.Stats()
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal statistics: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Events: %d\n", stats.TotalEvents)
		if stats.Oldest != nil && stats.Newest != nil {
			fmt.Printf("Range:  %s .. %s\n",
				stats.Oldest.Format("2006-01-02 15:04"), stats.Newest.Format("2006-01-02 15:04"))
		}
		if len(stats.ByType) > 0 {
			fmt.Println("\nBy type:")
			types := make([]string, 0, len(stats.ByType))
			for t := range stats.ByType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				ts := stats.ByType[t]
				line := fmt.Sprintf("  %-22s %6d", t, ts.Count)
				if ts.AvgDurationMS > 0 {
					line += fmt.Sprintf("  avg %.1fms", ts.AvgDurationMS)
				}
				if ts.TotalCostUSD > 0 {
					line += fmt.Sprintf("  $%.4f", ts.TotalCostUSD)
				}
				if ts.TotalTokens > 0 {
					line += fmt.Sprintf("  %d tokens", ts.TotalTokens)
				}
				fmt.Println(line)
			}
		}

		if Files != nil {
			fs := Files.Stats()
			fmt.Println("\nStorage:")
			fmt.Printf("  Current file:  %d events, %d bytes\n", fs.CurrentEventCount, fs.CurrentFileSize)
			fmt.Printf("  Rotated files: %d (%d bytes)\n", len(fs.RotatedFiles), fs.RotatedSizeBytes)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statsCmd)
}
