// Package usage turns delivered notifications into usage records and
// forwards them to the recorder.
package usage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mrhappymac/munki/internal/appinfo"
	"github.com/mrhappymac/munki/internal/notify"
	"github.com/mrhappymac/munki/internal/recorder"
)

// Kind is the canonical usage-event kind as recorded. The values are the
// recorder's wire strings.
type Kind string

const (
	Launch    Kind = "launch"
	Activate  Kind = "activate"
	Terminate Kind = "quit"
)

// Event is one normalized lifecycle transition. Immutable once built;
// forwarded to the recorder exactly once and not retained afterwards.
type Event struct {
	Kind Kind               `json:"event"`
	App  appinfo.Descriptor `json:"app"`
}

// kindFor maps the three workspace notification kinds to usage kinds.
var kindFor = map[notify.Kind]Kind{
	notify.AppLaunched:   Launch,
	notify.AppActivated:  Activate,
	notify.AppTerminated: Terminate,
}

// Normalizer builds usage events out of raw lifecycle notifications.
type Normalizer struct {
	rec recorder.Recorder
	log *zap.Logger
}

// NewNormalizer creates a Normalizer forwarding to rec.
func NewNormalizer(rec recorder.Recorder, log *zap.Logger) *Normalizer {
	return &Normalizer{rec: rec, log: log}
}

// Normalize maps one notification to a usage event, extracts the app
// identity once, and forwards the event to the recorder immediately. There
// is no buffering, batching or deduplication: two deliveries of the same
// notification produce two recorder calls in delivery order.
//
// An unrecognized kind is a registration bug upstream and returns an error;
// a recorder failure is logged and otherwise ignored (fire-and-forget).
func (n *Normalizer) Normalize(kind notify.Kind, app appinfo.Handle) (Event, error) {
	k, ok := kindFor[kind]
	if !ok {
		return Event{}, fmt.Errorf("unrecognized lifecycle notification kind %q", kind)
	}

	ev := Event{Kind: k, App: appinfo.Extract(app)}

	if err := n.rec.LogApplicationUsage(string(ev.Kind), ev.App); err != nil {
		n.log.Warn("recorder rejected usage event",
			zap.String("event", string(ev.Kind)), zap.Error(err))
	}
	return ev, nil
}
