package watcher

import (
	"errors"
	"sync"
)

// Common errors returned by backend operations.
var (
	ErrBackendClosed = errors.New("watcher backend is closed")
	ErrNotSubscribed = errors.New("handle is not subscribed")
)

// Handle identifies an active subscription within a Backend.
type Handle uint64

// Backend provides change-notification subscriptions for file paths.
// The notify callback may fire on any goroutine.
type Backend interface {
	// Subscribe begins delivering change notifications for path.
	Subscribe(path string, notify func()) (Handle, error)

	// Unsubscribe cancels an active subscription.
	Unsubscribe(h Handle) error
}

// ChangeWatcher tracks disk-level changes for exactly one path.
//
// Arm and Disarm are idempotent. A failed subscription leaves the
// watcher silently disarmed; the next Arm retries. Once disposed the
// watcher is permanently disarmed and further Arm calls are no-ops.
type ChangeWatcher struct {
	mu sync.Mutex

	path     string
	backend  Backend
	onChange func()

	armed    bool
	handle   Handle
	disposed bool

	// armSeq invalidates in-flight arm attempts when a concurrent
	// arm or disarm wins the race.
	armSeq uint64
}

// NewChangeWatcher creates a disarmed watcher for path.
// onChange is invoked for every change notification while armed.
func NewChangeWatcher(path string, backend Backend, onChange func()) *ChangeWatcher {
	w := &ChangeWatcher{
		path:    path,
		backend: backend,
	}
	w.onChange = onChange
	return w
}

// Arm begins listening for change notifications on the bound path.
// If already armed or disposed, Arm is a no-op. Subscription failure
// leaves the watcher disarmed without error.
func (w *ChangeWatcher) Arm() {
	w.mu.Lock()
	if w.disposed || w.armed {
		w.mu.Unlock()
		return
	}
	w.armSeq++
	seq := w.armSeq
	backend := w.backend
	path := w.path
	w.mu.Unlock()

	// Subscribe outside the lock; backends may stat or block.
	h, err := backend.Subscribe(path, w.forward)
	if err != nil {
		// Degrade, not fail: the document still functions on
		// best-effort notification.
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.disposed || w.armed || seq != w.armSeq {
		// Lost the race to a concurrent arm or disarm.
		_ = backend.Unsubscribe(h)
		return
	}

	w.armed = true
	w.handle = h
}

// EnsureArmed has the same effect as Arm. It exists as a distinct
// entry point for read paths that require an armed-before-read
// guarantee rather than a mere attempt.
func (w *ChangeWatcher) EnsureArmed() {
	w.Arm()
}

// Disarm cancels the active subscription. No-op if already disarmed.
func (w *ChangeWatcher) Disarm() {
	w.mu.Lock()
	w.armSeq++ // invalidate in-flight arms
	if !w.armed {
		w.mu.Unlock()
		return
	}
	h := w.handle
	w.armed = false
	w.handle = 0
	backend := w.backend
	w.mu.Unlock()

	_ = backend.Unsubscribe(h)
}

// IsArmed reports whether the watcher currently holds a subscription.
func (w *ChangeWatcher) IsArmed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed
}

// Path returns the watched path.
func (w *ChangeWatcher) Path() string {
	return w.path
}

// Dispose disarms the watcher permanently. Subsequent Arm calls are
// no-ops. Safe to call while a guarded read is in flight; an
// already-armed guarantee is not retroactively invalidated.
func (w *ChangeWatcher) Dispose() {
	w.mu.Lock()
	w.disposed = true
	w.armSeq++
	if !w.armed {
		w.mu.Unlock()
		return
	}
	h := w.handle
	w.armed = false
	w.handle = 0
	backend := w.backend
	w.mu.Unlock()

	_ = backend.Unsubscribe(h)
}

// IsDisposed reports whether Dispose has been called.
func (w *ChangeWatcher) IsDisposed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.disposed
}

// forward delivers a backend notification to the change handler.
// Notifications racing a disarm are dropped.
func (w *ChangeWatcher) forward() {
	w.mu.Lock()
	deliver := w.armed && !w.disposed && w.onChange != nil
	handler := w.onChange
	w.mu.Unlock()

	if deliver {
		handler()
	}
}
