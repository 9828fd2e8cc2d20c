//go:build darwin

package notify

/*
#cgo darwin CFLAGS: -x objective-c -fmodules -fobjc-arc
#cgo darwin LDFLAGS: -framework Cocoa
#include <Cocoa/Cocoa.h>
#include <stdint.h>

extern void goWorkspaceNotification(uintptr_t handle, int kind, int hasApp,
                                    const char *bundleID, int hasBundleID,
                                    const char *path, int hasPath);

static NSNotificationName notificationNameForKind(int kind) {
        switch (kind) {
        case 0:
                return NSWorkspaceDidLaunchApplicationNotification;
        case 1:
                return NSWorkspaceDidActivateApplicationNotification;
        case 2:
                return NSWorkspaceDidTerminateApplicationNotification;
        }
        return nil;
}

static void *workspaceAddObserver(uintptr_t handle, int kind) {
        NSNotificationName name = notificationNameForKind(kind);
        if (name == nil) {
                return NULL;
        }
        NSNotificationCenter *center = [[NSWorkspace sharedWorkspace] notificationCenter];
        id token = [center addObserverForName:name
                                       object:nil
                                        queue:nil
                                   usingBlock:^(NSNotification *note) {
                NSRunningApplication *app = note.userInfo[NSWorkspaceApplicationKey];
                const char *bundleID = NULL;
                int hasBundleID = 0;
                const char *path = NULL;
                int hasPath = 0;
                if (app != nil) {
                        NSString *identifier = app.bundleIdentifier;
                        if (identifier != nil) {
                                bundleID = identifier.UTF8String;
                                hasBundleID = 1;
                        }
                        NSString *bundlePath = app.bundleURL.path;
                        if (bundlePath != nil) {
                                path = bundlePath.UTF8String;
                                hasPath = 1;
                        }
                }
                goWorkspaceNotification(handle, kind, app != nil ? 1 : 0,
                                        bundleID, hasBundleID, path, hasPath);
        }];
        return (__bridge_retained void *)token;
}

static void workspaceRemoveObserver(void *token) {
        if (token == NULL) {
                return;
        }
        id obj = (__bridge_transfer id)token;
        [[[NSWorkspace sharedWorkspace] notificationCenter] removeObserver:obj];
}

static int workspaceAvailable(void) {
        return [NSWorkspace sharedWorkspace] != nil ? 1 : 0;
}

static CFRunLoopRef currentWorkspaceLoop(void) {
        return CFRunLoopGetCurrent();
}

static void runWorkspaceLoop(void) {
        // A bare run loop with no sources exits immediately; park a mach
        // port on it so it keeps pumping observer blocks until stopped.
        [[NSRunLoop currentRunLoop] addPort:[NSMachPort port] forMode:NSDefaultRunLoopMode];
        CFRunLoopRun();
}

static void stopWorkspaceLoop(CFRunLoopRef loop) {
        CFRunLoopStop(loop);
}
*/
import "C"

import (
	"errors"
	"runtime"
	"runtime/cgo"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/mrhappymac/munki/internal/appinfo"
)

// kindIndex maps lifecycle kinds onto the indexes the Objective-C side uses
// to select the NSWorkspace notification name.
var kindIndex = map[Kind]C.int{
	AppLaunched:   0,
	AppActivated:  1,
	AppTerminated: 2,
}

var indexKind = map[int]Kind{
	0: AppLaunched,
	1: AppActivated,
	2: AppTerminated,
}

// WorkspaceSource delivers NSWorkspace application lifecycle notifications.
// It owns a dedicated OS thread running the Core Foundation loop that pumps
// observer callbacks; the callbacks push notifications into the channels
// registered via Subscribe.
type WorkspaceSource struct {
	log    *zap.Logger
	handle cgo.Handle
	loop   C.CFRunLoopRef

	mu      sync.Mutex
	chans   map[Kind]chan<- Notification
	stopped chan struct{}
	once    sync.Once
}

// NewWorkspaceSource initializes the workspace notification binding and
// starts its run loop thread. Returns ErrPlatformUnsupported when the shared
// workspace cannot be reached.
func NewWorkspaceSource(log *zap.Logger) (*WorkspaceSource, error) {
	if C.workspaceAvailable() == 0 {
		return nil, ErrPlatformUnsupported
	}

	w := &WorkspaceSource{
		log:     log,
		chans:   make(map[Kind]chan<- Notification),
		stopped: make(chan struct{}),
	}
	w.handle = cgo.NewHandle(w)

	ready := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		w.loop = C.currentWorkspaceLoop()
		close(ready)
		C.runWorkspaceLoop()
	}()
	<-ready

	return w, nil
}

// Subscribe registers one observer for the given lifecycle kind, scoped to
// any application (no identity filter).
func (w *WorkspaceSource) Subscribe(kind Kind, deliver chan<- Notification) (Subscription, error) {
	idx, ok := kindIndex[kind]
	if !ok {
		return nil, errors.New("workspace source does not deliver " + string(kind) + " notifications")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.chans[kind]; exists {
		return nil, errors.New("already subscribed to " + string(kind))
	}

	token := C.workspaceAddObserver(C.uintptr_t(w.handle), idx)
	if token == nil {
		return nil, errors.New("failed to register workspace observer for " + string(kind))
	}
	w.chans[kind] = deliver

	return &workspaceSubscription{source: w, kind: kind, token: token}, nil
}

// Close removes any remaining observers and stops the run loop thread.
func (w *WorkspaceSource) Close() error {
	w.once.Do(func() {
		close(w.stopped)
		w.mu.Lock()
		w.chans = make(map[Kind]chan<- Notification)
		w.mu.Unlock()
		C.stopWorkspaceLoop(w.loop)
		w.handle.Delete()
	})
	return nil
}

// dispatch forwards one delivered notification to the subscribed channel.
// The send blocks the run loop thread until the manager consumes it, which
// keeps event processing strictly serialized.
func (w *WorkspaceSource) dispatch(kind Kind, app appinfo.Handle) {
	w.mu.Lock()
	deliver := w.chans[kind]
	w.mu.Unlock()
	if deliver == nil {
		return
	}

	select {
	case deliver <- Notification{Kind: kind, App: app}:
	case <-w.stopped:
	}
}

type workspaceSubscription struct {
	source *WorkspaceSource
	kind   Kind
	token  unsafe.Pointer
	once   sync.Once
}

// Cancel removes the observer. Idempotent.
func (sub *workspaceSubscription) Cancel() error {
	sub.once.Do(func() {
		sub.source.mu.Lock()
		delete(sub.source.chans, sub.kind)
		sub.source.mu.Unlock()
		C.workspaceRemoveObserver(sub.token)
	})
	return nil
}

//export goWorkspaceNotification
func goWorkspaceNotification(handle C.uintptr_t, kind C.int, hasApp C.int,
	bundleID *C.char, hasBundleID C.int, path *C.char, hasPath C.int) {
	h := cgo.Handle(uintptr(handle))
	source, ok := h.Value().(*WorkspaceSource)
	if !ok {
		return
	}
	k, ok := indexKind[int(kind)]
	if !ok {
		return
	}

	var app appinfo.Handle
	if hasApp != 0 {
		ra := &runningApp{}
		if hasBundleID != 0 {
			ra.bundleID = C.GoString(bundleID)
			ra.hasBundleID = true
		}
		if hasPath != 0 {
			ra.path = C.GoString(path)
			ra.hasPath = true
		}
		app = ra
	}

	source.dispatch(k, app)
}

// runningApp is the appinfo.Handle for a workspace notification payload. The
// identity fields are captured inside the observer block because the
// NSRunningApplication must not outlive the notification delivery.
type runningApp struct {
	bundleID    string
	hasBundleID bool
	path        string
	hasPath     bool
}

func (a *runningApp) BundleURL() (string, error) {
	if !a.hasPath {
		return "", errors.New("bundle URL not available for this application")
	}
	return a.path, nil
}

func (a *runningApp) BundleIdentifier() (string, bool) {
	return a.bundleID, a.hasBundleID
}
