package notify

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// defaultPumpInterval bounds how long the run loop sleeps between wakeups
// when no notifications arrive. It exists only so the loop checks its stop
// channel regularly; delivery itself is push-based.
const defaultPumpInterval = 100 * time.Millisecond

// Manager owns the fixed set of subscriptions: the three workspace lifecycle
// kinds plus the install-request channel. It moves between exactly two
// states, unregistered and registered, and is either fully subscribed or not
// subscribed at all.
type Manager struct {
	handler Handler
	log     *zap.Logger
	pump    time.Duration

	deliver chan Notification
	subs    []Subscription
	sources []registration
}

type registration struct {
	source Source
	kind   Kind
}

// NewManager creates a Manager routing workspace lifecycle notifications and
// install requests from the given sources to handler.
func NewManager(workspace, installRequests Source, handler Handler, log *zap.Logger) *Manager {
	return &Manager{
		handler: handler,
		log:     log,
		pump:    defaultPumpInterval,
		deliver: make(chan Notification),
		sources: []registration{
			{workspace, AppLaunched},
			{workspace, AppActivated},
			{workspace, AppTerminated},
			{installRequests, InstallRequest},
		},
	}
}

// Subscribe registers all four subscriptions. If any registration fails the
// ones already made are torn down and the manager stays unregistered.
func (m *Manager) Subscribe() error {
	if len(m.subs) > 0 {
		return fmt.Errorf("manager already subscribed")
	}

	for _, reg := range m.sources {
		sub, err := reg.source.Subscribe(reg.kind, m.deliver)
		if err != nil {
			m.Unsubscribe()
			return fmt.Errorf("subscribe %s: %w", reg.kind, err)
		}
		m.subs = append(m.subs, sub)
	}
	return nil
}

// Unsubscribe cancels whatever subscriptions are live. It is idempotent and
// safe to call after a partial Subscribe; cancelling nothing is a no-op.
func (m *Manager) Unsubscribe() {
	for _, sub := range m.subs {
		if err := sub.Cancel(); err != nil {
			m.log.Warn("cancel subscription", zap.Error(err))
		}
	}
	m.subs = nil
}

// Run pumps notifications until stop is closed. All dispatching happens on
// this goroutine; nothing is processed concurrently.
func (m *Manager) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(m.pump)
	defer ticker.Stop()

	for {
		select {
		case n := <-m.deliver:
			m.dispatch(n)
		case <-ticker.C:
			// Liveness wakeup only; no work here.
		case <-stop:
			return
		}
	}
}

// dispatch routes one notification by kind. An unrecognized kind cannot occur
// given the fixed registration set; if it does, it is logged and dropped
// rather than crashing the loop.
func (m *Manager) dispatch(n Notification) {
	switch n.Kind {
	case AppLaunched, AppActivated, AppTerminated:
		m.handler.HandleLifecycle(n.Kind, n.App)
	case InstallRequest:
		m.handler.HandleInstallRequest(n.Payload)
	default:
		m.log.Warn("dropping notification of unrecognized kind", zap.String("kind", string(n.Kind)))
	}
}
