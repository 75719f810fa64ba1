package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/devpulse/pkg/models"
)

var (
	exportOutput string
	exportTypes  []string
	exportSince  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export events to CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Collector == nil {
			return fmt.Errorf("collector not initialized")
		}

		filter := models.EventFilter{}
		for _, t := range exportTypes {
			filter.Types = append(filter.Types, models.EventType(t))
		}
		if exportSince != "" {
			since, err := parseSinceDuration(exportSince)
			if err != nil {
				return fmt.Errorf("invalid --since value: %w", err)
			}
			filter.Since = &since
		}

		if err := Collector.ExportCSV(exportOutput, filter); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("Exported to %s\n", exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "events.csv", "Output CSV path")
	exportCmd.Flags().StringSliceVar(&exportTypes, "type", nil, "Restrict to event types (repeatable)")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "Only events newer than this (e.g. 24h, 7d)")
	rootCmd.AddCommand(exportCmd)
}
