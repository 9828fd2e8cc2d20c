package usage

import (
	"go.uber.org/zap"

	"github.com/mrhappymac/munki/internal/appinfo"
	"github.com/mrhappymac/munki/internal/notify"
	"github.com/mrhappymac/munki/internal/recorder"
)

// Pipeline is the notify.Handler wired into the subscription manager: it
// routes lifecycle notifications through the Normalizer and install requests
// through the Adapter.
type Pipeline struct {
	norm    *Normalizer
	adapter *Adapter
	log     *zap.Logger
}

// NewPipeline wires a Normalizer and Adapter over the same recorder.
func NewPipeline(rec recorder.Recorder, log *zap.Logger) *Pipeline {
	return &Pipeline{
		norm:    NewNormalizer(rec, log),
		adapter: NewAdapter(rec, log),
		log:     log,
	}
}

// HandleLifecycle normalizes one lifecycle notification. A kind the
// normalizer does not recognize is logged and dropped; the loop never stops
// for it.
func (p *Pipeline) HandleLifecycle(kind notify.Kind, app appinfo.Handle) {
	if _, err := p.norm.Normalize(kind, app); err != nil {
		p.log.Warn("dropping lifecycle notification", zap.Error(err))
	}
}

// HandleInstallRequest forwards one install-request payload.
func (p *Pipeline) HandleInstallRequest(payload map[string]any) {
	p.adapter.Adapt(payload)
}
