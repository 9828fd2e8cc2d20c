//go:build !darwin

package notify

import "go.uber.org/zap"

// WorkspaceSource is unavailable off macOS; the daemon has no function
// without workspace notifications and fails fast at startup.
type WorkspaceSource struct{}

// NewWorkspaceSource always returns ErrPlatformUnsupported on this platform.
func NewWorkspaceSource(log *zap.Logger) (*WorkspaceSource, error) {
	return nil, ErrPlatformUnsupported
}

// Subscribe is never reachable because NewWorkspaceSource fails.
func (w *WorkspaceSource) Subscribe(kind Kind, deliver chan<- Notification) (Subscription, error) {
	return nil, ErrPlatformUnsupported
}

// Close is a no-op.
func (w *WorkspaceSource) Close() error { return nil }
