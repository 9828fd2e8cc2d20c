package recorder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mrhappymac/munki/internal/appinfo"
)

// LogApplicationUsage upserts one usage row keyed on (event, bundle id):
// first sight inserts with a count of 1, every later sight bumps the count
// and refreshes the last-seen time, version and path. Absent descriptor
// fields are stored as empty strings so the composite key stays usable.
func (s *Store) LogApplicationUsage(event string, app appinfo.Descriptor) error {
	query := `
		INSERT INTO application_usage
		(event, bundle_id, app_version, app_path, last_time, number_times)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(event, bundle_id) DO UPDATE SET
			app_version = excluded.app_version,
			app_path = excluded.app_path,
			last_time = excluded.last_time,
			number_times = number_times + 1
	`

	_, err := s.db.Exec(query,
		event,
		stringOrEmpty(app.BundleID),
		app.Version,
		stringOrEmpty(app.Path),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", event, err)
	}
	return nil
}

// LogInstallRequest stores the payload verbatim as a JSON blob.
func (s *Store) LogInstallRequest(payload map[string]any) error {
	blob, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal install request payload: %w", err)
	}

	query := `INSERT INTO install_requests (id, received_at, payload) VALUES (?, ?, ?)`
	_, err = s.db.Exec(query,
		uuid.NewString(),
		time.Now().UTC().Format(time.RFC3339),
		string(blob),
	)
	if err != nil {
		return fmt.Errorf("failed to record install request: %w", err)
	}
	return nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
