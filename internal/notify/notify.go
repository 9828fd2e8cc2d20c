// Package notify subscribes to application lifecycle notifications and the
// install-request channel, and routes incoming notifications to the usage
// pipeline.
//
// Delivery is push-based: each source feeds notifications into a channel
// consumed by a single run loop, so processing is strictly serialized. The
// loop also wakes on a short pump interval so shutdown is always observed
// promptly even when the system is idle.
package notify

import (
	"errors"

	"github.com/mrhappymac/munki/internal/appinfo"
)

// InstallRequestChannel is the well-known name of the inter-process channel a
// cooperating process uses to signal install intent. It is rendered as a
// spool directory of that name under the daemon's state directory.
const InstallRequestChannel = "com.googlecode.munki.installrequest"

// ErrPlatformUnsupported indicates the platform notification facility is not
// available on this build. The daemon has no function without it and should
// exit immediately.
var ErrPlatformUnsupported = errors.New("workspace notifications are not available on this platform")

// Kind identifies one notification source the manager registers for.
type Kind string

const (
	AppLaunched    Kind = "app.launched"
	AppActivated   Kind = "app.activated"
	AppTerminated  Kind = "app.terminated"
	InstallRequest Kind = "installrequest"
)

// Notification is one delivered event. Lifecycle kinds carry the application
// handle conventionally found in the platform payload (which may be nil);
// install requests carry the full opaque payload instead.
type Notification struct {
	Kind    Kind
	App     appinfo.Handle
	Payload map[string]any
}

// Source delivers notifications of a given kind into the provided channel
// until the returned Subscription is cancelled.
type Source interface {
	Subscribe(kind Kind, deliver chan<- Notification) (Subscription, error)
}

// Subscription is one live registration on a source. Cancel is idempotent.
type Subscription interface {
	Cancel() error
}

// Handler consumes dispatched notifications. Calls are serialized on the run
// loop goroutine; a slow handler blocks delivery of the next notification.
type Handler interface {
	HandleLifecycle(kind Kind, app appinfo.Handle)
	HandleInstallRequest(payload map[string]any)
}
