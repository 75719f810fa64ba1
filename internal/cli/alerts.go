package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/devpulse/pkg/models"
)

var (
	alertsPeriod string
	alertsRecent int
	alertsLevel  string
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Evaluate thresholds and show alerts",
	Long: `Compute the metrics summary for the given window, evaluate every enabled
threshold against it, and display the alerts raised plus recent history.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Analyzer == nil || Monitor == nil {
			return fmt.Errorf("alerting not initialized")
		}

		summary := Analyzer.CalculateSummary(alertsPeriod, nil, nil)
		raised := Monitor.CheckThresholds(summary)

		if len(raised) == 0 {
			fmt.Println("No alerts raised.")
		} else {
			fmt.Printf("%d alert(s) raised:\n\n", len(raised))
			for _, a := range raised {
				fmt.Printf("  [%s] %s\n", strings.ToUpper(string(a.Level)), a.Message)
			}
		}

		if alertsRecent > 0 {
			history := Monitor.RecentAlerts(alertsRecent, models.AlertLevel(alertsLevel))
			if len(history) > 0 {
				fmt.Printf("\nRecent alert history:\n")
				for _, a := range history {
					fmt.Printf("  %s [%s] %s\n",
						a.Timestamp.Format("2006-01-02 15:04 UTC"),
						strings.ToUpper(string(a.Level)),
						a.Message,
					)
				}
			}
		}

		return nil
	},
}

func init() {
	alertsCmd.Flags().StringVar(&alertsPeriod, "period", "day", "Summary window: hour, day, week, or all")
	alertsCmd.Flags().IntVar(&alertsRecent, "recent", 0, "Also show the N most recent alerts from history")
	alertsCmd.Flags().StringVar(&alertsLevel, "level", "", "Filter history by level (info, warning, error, critical)")
	rootCmd.AddCommand(alertsCmd)
}
