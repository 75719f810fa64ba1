package collector

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/valter-silva-au/devpulse/pkg/models"
)

// ExportCSV writes a flat tabular projection of the filtered events to path:
// id, type, timestamp, session, and the serialized metadata map.
func (c *Collector) ExportCSV(path string, filter models.EventFilter) error {
	events := c.Query(filter, 0)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"event_id", "event_type", "timestamp", "session_id", "metadata"}); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}

	for _, ev := range events {
		base := ev.Base()
		meta := ""
		if len(base.Metadata) > 0 {
			data, err := json.Marshal(base.Metadata)
			if err != nil {
				return fmt.Errorf("encoding metadata for %s: %w", base.EventID, err)
			}
			meta = string(data)
		}
		record := []string{
			base.EventID,
			string(base.EventType),
			base.Timestamp.UTC().Format(time.RFC3339Nano),
			base.SessionID,
			meta,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing export row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing export: %w", err)
	}
	return nil
}
