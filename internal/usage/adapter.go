package usage

import (
	"go.uber.org/zap"

	"github.com/mrhappymac/munki/internal/recorder"
)

// InstallRequest is one pass-through install-request record. The payload
// shape is owned by the sending process; nothing here interprets it.
type InstallRequest struct {
	Payload map[string]any `json:"payload"`
}

// Adapter forwards install-request payloads to the recorder's dedicated
// entry point.
type Adapter struct {
	rec recorder.Recorder
	log *zap.Logger
}

// NewAdapter creates an Adapter forwarding to rec.
func NewAdapter(rec recorder.Recorder, log *zap.Logger) *Adapter {
	return &Adapter{rec: rec, log: log}
}

// Adapt wraps the payload and forwards it. Receipt is logged at info before
// forwarding; the log line is diagnostic telemetry, not part of the record.
func (a *Adapter) Adapt(payload map[string]any) InstallRequest {
	a.log.Info("install request received", zap.Int("fields", len(payload)))

	rec := InstallRequest{Payload: payload}
	if err := a.rec.LogInstallRequest(payload); err != nil {
		a.log.Warn("recorder rejected install request", zap.Error(err))
	}
	return rec
}
