// Package recorder persists normalized usage records.
//
// The event pipeline treats both entry points as fire-and-forget: a recorder
// error is reported to the caller for logging but never stops event delivery.
package recorder

import "github.com/mrhappymac/munki/internal/appinfo"

// Recorder receives normalized records from the event pipeline.
type Recorder interface {
	// LogApplicationUsage records one lifecycle event ("launch",
	// "activate" or "quit") for the described application.
	LogApplicationUsage(event string, app appinfo.Descriptor) error

	// LogInstallRequest records one opaque install-request payload. The
	// payload shape is owned by the sending process and stored verbatim.
	LogInstallRequest(payload map[string]any) error
}
