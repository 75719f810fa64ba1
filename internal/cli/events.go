package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/devpulse/pkg/models"
)

var (
	eventsLimit   int
	eventsTypes   []string
	eventsSince   string
	eventsSession string
	eventsTask    string
	eventsJSON    bool
	eventsID      string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query collected telemetry events",
	Long: `Query the event store with optional type, time, session, and task filters,
most recent first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Collector == nil {
			return fmt.Errorf("collector not initialized")
		}

		if eventsID != "" {
			ev, found := Collector.GetByID(eventsID)
			if !found {
				return fmt.Errorf("event %q not found", eventsID)
			}
			data, err := json.MarshalIndent(ev.Flatten(), "", "  ")
			if err != nil {
				return fmt.Errorf("formatting event: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		filter := models.EventFilter{
			SessionID: eventsSession,
			TaskID:    eventsTask,
		}
		for _, t := range eventsTypes {
			filter.Types = append(filter.Types, models.EventType(strings.ToUpper(t)))
		}
		if eventsSince != "" {
			since, err := parseSinceDuration(eventsSince)
			if err != nil {
				return fmt.Errorf("parsing --since: %w", err)
			}
			filter.Since = &since
		}

		events := Collector.Query(filter, eventsLimit)

		if eventsJSON {
			flat := make([]map[string]string, 0, len(events))
			for _, ev := range events {
				flat = append(flat, ev.Flatten())
			}
			data, err := json.MarshalIndent(flat, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting events: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		if len(events) == 0 {
			fmt.Println("No events found.")
			return nil
		}
		for _, ev := range events {
			base := ev.Base()
			fmt.Printf("  %s  %-22s %s\n",
				base.Timestamp.Format("2006-01-02 15:04:05"),
				base.EventType,
				base.EventID,
			)
		}
		fmt.Printf("\n%d event(s)\n", len(events))
		return nil
	},
}

// parseSinceDuration parses a human-friendly duration string like "7d",
// "30d", or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "Maximum number of events to return")
	eventsCmd.Flags().StringSliceVar(&eventsTypes, "type", nil, "Filter by event type (repeatable)")
	eventsCmd.Flags().StringVar(&eventsSince, "since", "", "Time window (e.g. 7d, 24h)")
	eventsCmd.Flags().StringVar(&eventsSession, "session", "", "Filter by session id")
	eventsCmd.Flags().StringVar(&eventsTask, "task", "", "Filter by task id")
	eventsCmd.Flags().StringVar(&eventsID, "id", "", "Look up a single event by id")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Output events as JSON")
	rootCmd.AddCommand(eventsCmd)
}
