package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mrhappymac/munki/internal/appinfo"
)

// fakeSource records subscribe/cancel activity and can be told to fail
// subscriptions for specific kinds.
type fakeSource struct {
	mu        sync.Mutex
	failKinds map[Kind]bool
	deliver   chan<- Notification
	subs      []*fakeSubscription
}

func (f *fakeSource) Subscribe(kind Kind, deliver chan<- Notification) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKinds[kind] {
		return nil, errors.New("registration refused")
	}
	f.deliver = deliver
	sub := &fakeSubscription{kind: kind}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeSource) cancelled() []Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kinds []Kind
	for _, sub := range f.subs {
		if sub.cancels > 0 {
			kinds = append(kinds, sub.kind)
		}
	}
	return kinds
}

type fakeSubscription struct {
	kind    Kind
	cancels int
}

func (s *fakeSubscription) Cancel() error {
	s.cancels++
	return nil
}

// recordingHandler captures dispatched notifications.
type recordingHandler struct {
	mu        sync.Mutex
	lifecycle []Kind
	handles   []appinfo.Handle
	payloads  []map[string]any
}

func (h *recordingHandler) HandleLifecycle(kind Kind, app appinfo.Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lifecycle = append(h.lifecycle, kind)
	h.handles = append(h.handles, app)
}

func (h *recordingHandler) HandleInstallRequest(payload map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads = append(h.payloads, payload)
}

func (h *recordingHandler) lifecycleKinds() []Kind {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Kind(nil), h.lifecycle...)
}

func (h *recordingHandler) payloadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.payloads)
}

func TestSubscribe_RegistersAllFour(t *testing.T) {
	workspace := &fakeSource{}
	spool := &fakeSource{}
	m := NewManager(workspace, spool, &recordingHandler{}, zap.NewNop())

	if err := m.Subscribe(); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer m.Unsubscribe()

	if got := len(workspace.subs); got != 3 {
		t.Errorf("workspace registrations = %d, want 3", got)
	}
	if got := len(spool.subs); got != 1 {
		t.Errorf("spool registrations = %d, want 1", got)
	}
	if spool.subs[0].kind != InstallRequest {
		t.Errorf("spool subscribed to %q, want %q", spool.subs[0].kind, InstallRequest)
	}
}

func TestSubscribe_PartialFailureTearsDown(t *testing.T) {
	workspace := &fakeSource{failKinds: map[Kind]bool{AppTerminated: true}}
	spool := &fakeSource{}
	m := NewManager(workspace, spool, &recordingHandler{}, zap.NewNop())

	if err := m.Subscribe(); err == nil {
		t.Fatal("Subscribe() expected error, got nil")
	}

	// The two registrations that succeeded must be cancelled; the spool
	// was never reached and must stay untouched.
	cancelled := workspace.cancelled()
	if len(cancelled) != 2 {
		t.Fatalf("cancelled workspace subs = %v, want 2 entries", cancelled)
	}
	if len(spool.subs) != 0 {
		t.Errorf("spool registrations = %d, want 0", len(spool.subs))
	}

	// A retry after the failure must start from a clean slate.
	workspace.mu.Lock()
	workspace.failKinds = nil
	workspace.subs = nil
	workspace.mu.Unlock()
	if err := m.Subscribe(); err != nil {
		t.Fatalf("Subscribe() retry error = %v", err)
	}
	m.Unsubscribe()
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	workspace := &fakeSource{}
	spool := &fakeSource{}
	m := NewManager(workspace, spool, &recordingHandler{}, zap.NewNop())

	// Never registered: must be a no-op.
	m.Unsubscribe()

	if err := m.Subscribe(); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	m.Unsubscribe()
	m.Unsubscribe()

	for _, sub := range workspace.subs {
		if sub.cancels != 1 {
			t.Errorf("subscription %s cancelled %d times, want 1", sub.kind, sub.cancels)
		}
	}
}

func TestSubscribe_Twice(t *testing.T) {
	m := NewManager(&fakeSource{}, &fakeSource{}, &recordingHandler{}, zap.NewNop())
	if err := m.Subscribe(); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer m.Unsubscribe()

	if err := m.Subscribe(); err == nil {
		t.Error("second Subscribe() expected error, got nil")
	}
}

func TestRun_DispatchesByKind(t *testing.T) {
	workspace := &fakeSource{}
	spool := &fakeSource{}
	handler := &recordingHandler{}
	m := NewManager(workspace, spool, handler, zap.NewNop())

	if err := m.Subscribe(); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer m.Unsubscribe()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		m.Run(stop)
		close(done)
	}()

	workspace.deliver <- Notification{Kind: AppLaunched}
	workspace.deliver <- Notification{Kind: AppActivated}
	workspace.deliver <- Notification{Kind: AppTerminated}
	// The same notification delivered twice produces two dispatches.
	workspace.deliver <- Notification{Kind: AppTerminated}
	spool.deliver <- Notification{Kind: InstallRequest, Payload: map[string]any{"event": "install"}}

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop")
	}

	want := []Kind{AppLaunched, AppActivated, AppTerminated, AppTerminated}
	got := handler.lifecycleKinds()
	if len(got) != len(want) {
		t.Fatalf("lifecycle dispatches = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dispatch[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if handler.payloadCount() != 1 {
		t.Errorf("install request dispatches = %d, want 1", handler.payloadCount())
	}
}

func TestRun_DropsUnrecognizedKind(t *testing.T) {
	workspace := &fakeSource{}
	spool := &fakeSource{}
	handler := &recordingHandler{}
	m := NewManager(workspace, spool, handler, zap.NewNop())

	if err := m.Subscribe(); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer m.Unsubscribe()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		m.Run(stop)
		close(done)
	}()

	workspace.deliver <- Notification{Kind: Kind("bogus")}
	// The loop must survive the bogus kind and keep dispatching.
	workspace.deliver <- Notification{Kind: AppLaunched}

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop")
	}

	got := handler.lifecycleKinds()
	if len(got) != 1 || got[0] != AppLaunched {
		t.Errorf("lifecycle dispatches = %v, want [%q]", got, AppLaunched)
	}
}

func TestRun_StopsWhileIdle(t *testing.T) {
	m := NewManager(&fakeSource{}, &fakeSource{}, &recordingHandler{}, zap.NewNop())
	if err := m.Subscribe(); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer m.Unsubscribe()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		m.Run(stop)
		close(done)
	}()

	// No notifications at all: the pump interval still lets the loop
	// observe the stop signal.
	time.Sleep(250 * time.Millisecond)
	close(stop)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop while idle")
	}
}
