package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/devpulse/pkg/models"
)

var (
	collectSession string
	collectFields  []string
	collectFlush   bool
)

var collectCmd = &cobra.Command{
	Use:   "collect <event-type>",
	Short: "Record a telemetry event",
	Long: `Record a telemetry event from the command line or a shell hook.

Fields are supplied as key=value pairs and interpreted by the event
variant the type maps to, e.g.:

  devpulse collect TASK_COMPLETED -f task_id=T-42 -f duration_ms=1200 -f success=true
  devpulse collect SECURITY_VIOLATION -f file_path=main.go -f blocked=true`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Collector == nil {
			return fmt.Errorf("collector not initialized")
		}

		flat := map[string]string{"event_type": args[0]}
		if collectSession != "" {
			flat["session_id"] = collectSession
		}
		for _, f := range collectFields {
			key, value, ok := strings.Cut(f, "=")
			if !ok || key == "" {
				return fmt.Errorf("invalid field %q, expected key=value", f)
			}
			flat[key] = value
		}

		id := Collector.Collect(models.DecodeEvent(flat))
		if collectFlush {
			Collector.Flush()
		}
		fmt.Println(id)
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectSession, "session", "", "Session identifier")
	collectCmd.Flags().StringArrayVarP(&collectFields, "field", "f", nil, "Event field as key=value (repeatable)")
	collectCmd.Flags().BoolVar(&collectFlush, "flush", true, "Flush to disk after recording")
	rootCmd.AddCommand(collectCmd)
}
