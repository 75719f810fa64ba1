package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/devpulse/internal/alerting"
	"github.com/valter-silva-au/devpulse/pkg/models"
)

func persistThresholds() error {
	if ThresholdsPath == "" {
		return nil
	}
	return alerting.SaveThresholds(ThresholdsPath, Monitor.Thresholds())
}

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Manage threshold rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitor not initialized")
		}

		thresholds := Monitor.Thresholds()
		sort.Slice(thresholds, func(i, j int) bool {
			return thresholds[i].Name < thresholds[j].Name
		})

		for _, t := range thresholds {
			state := "enabled"
			if !t.Enabled {
				state = "disabled"
			}
			fmt.Printf("  %-24s %s %s %.2f  [%s, %s]\n",
				t.Name, t.MetricName, t.Operator, t.Value, t.Level, state)
		}
		fmt.Printf("\n%d rule(s)\n", len(thresholds))
		return nil
	},
}

var thresholdsEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a threshold rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitor not initialized")
		}
		if !Monitor.EnableThreshold(args[0]) {
			return fmt.Errorf("threshold %q not found", args[0])
		}
		fmt.Printf("Enabled %s\n", args[0])
		return persistThresholds()
	},
}

var thresholdsDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a threshold rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitor not initialized")
		}
		if !Monitor.DisableThreshold(args[0]) {
			return fmt.Errorf("threshold %q not found", args[0])
		}
		fmt.Printf("Disabled %s\n", args[0])
		return persistThresholds()
	},
}

var thresholdsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a threshold rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitor not initialized")
		}
		if !Monitor.RemoveThreshold(args[0]) {
			return fmt.Errorf("threshold %q not found", args[0])
		}
		fmt.Printf("Removed %s\n", args[0])
		return persistThresholds()
	},
}

var (
	thresholdMetric   string
	thresholdOperator string
	thresholdValue    float64
	thresholdLevel    string
	thresholdDesc     string
)

var thresholdsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or replace a threshold rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("monitor not initialized")
		}
		Monitor.AddThreshold(models.Threshold{
			Name:        args[0],
			MetricName:  thresholdMetric,
			Operator:    models.ThresholdOperator(strings.ToLower(thresholdOperator)),
			Value:       thresholdValue,
			Level:       models.AlertLevel(strings.ToLower(thresholdLevel)),
			Description: thresholdDesc,
			Enabled:     true,
		})
		fmt.Printf("Added %s\n", args[0])
		return persistThresholds()
	},
}

func init() {
	thresholdsAddCmd.Flags().StringVar(&thresholdMetric, "metric", "", "Summary metric name (e.g. success_rate)")
	thresholdsAddCmd.Flags().StringVar(&thresholdOperator, "op", "gt", "Comparison operator: gt, gte, lt, lte, eq")
	thresholdsAddCmd.Flags().Float64Var(&thresholdValue, "value", 0, "Threshold value")
	thresholdsAddCmd.Flags().StringVar(&thresholdLevel, "level", "warning", "Alert level: info, warning, error, critical")
	thresholdsAddCmd.Flags().StringVar(&thresholdDesc, "description", "", "Human-readable description")
	_ = thresholdsAddCmd.MarkFlagRequired("metric")

	thresholdsCmd.AddCommand(thresholdsAddCmd, thresholdsRemoveCmd, thresholdsEnableCmd, thresholdsDisableCmd)
	rootCmd.AddCommand(thresholdsCmd)
}
