// Package memory contains an in-memory notifier for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/pagewatch/internal/watcher"
)

// Notifier stores delivered notifications for inspection.
type Notifier struct {
	mu       sync.RWMutex
	messages []watcher.Notification
	// err, when set, is returned by every Notify call after recording.
	err error
}

// New returns a memory Notifier.
func New() *Notifier {
	return &Notifier{}
}

// FailWith makes subsequent Notify calls return err (nil restores success).
func (n *Notifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// Notify records the notification.
func (n *Notifier) Notify(_ context.Context, msg watcher.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

// Messages returns the recorded notifications.
func (n *Notifier) Messages() []watcher.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]watcher.Notification, len(n.messages))
	copy(out, n.messages)
	return out
}

// Close is a no-op.
func (n *Notifier) Close() error {
	return nil
}
