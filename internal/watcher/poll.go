package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// pollSub is one active PollBackend subscription.
type pollSub struct {
	path   string
	notify func()

	// lastMod is the last observed modification time.
	// Zero means the file did not exist at the last check.
	lastMod time.Time
}

// PollBackend implements Backend by polling file modification times.
// It is the fallback for filesystems without native change
// notification (network mounts, some containers).
type PollBackend struct {
	mu sync.Mutex

	subs       map[Handle]*pollSub
	nextHandle Handle

	interval time.Duration

	running bool
	closed  bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// PollOption configures a PollBackend.
type PollOption func(*PollBackend)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) PollOption {
	return func(b *PollBackend) {
		if d > 0 {
			b.interval = d
		}
	}
}

// NewPollBackend creates a polling backend. The poll loop starts
// lazily with the first subscription.
func NewPollBackend(opts ...PollOption) *PollBackend {
	b := &PollBackend{
		subs:     make(map[Handle]*pollSub),
		interval: 500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Subscribe starts polling path. A missing file is not an error; the
// subscription reports its later creation.
func (b *PollBackend) Subscribe(path string, notify func()) (Handle, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}

	var lastMod time.Time
	if info, err := os.Stat(absPath); err == nil {
		lastMod = info.ModTime()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBackendClosed
	}

	b.nextHandle++
	h := b.nextHandle
	b.subs[h] = &pollSub{path: absPath, notify: notify, lastMod: lastMod}

	if !b.running {
		b.running = true
		b.stopCh = make(chan struct{})
		b.wg.Add(1)
		go b.pollLoop(b.stopCh)
	}

	return h, nil
}

// Unsubscribe stops polling for the subscription.
func (b *PollBackend) Unsubscribe(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBackendClosed
	}
	if _, ok := b.subs[h]; !ok {
		return ErrNotSubscribed
	}
	delete(b.subs, h)
	return nil
}

// Close stops the backend and its poll loop.
func (b *PollBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	if b.running {
		close(b.stopCh)
		b.running = false
	}
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// pollLoop checks subscriptions at regular intervals.
func (b *PollBackend) pollLoop(stopCh chan struct{}) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			b.checkAll()
		}
	}
}

// checkAll stats every subscribed path and notifies on change.
func (b *PollBackend) checkAll() {
	b.mu.Lock()
	subs := make([]*pollSub, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if notify := b.checkOne(sub); notify != nil {
			notify()
		}
	}
}

// checkOne returns the notify callback if sub's file changed.
func (b *PollBackend) checkOne(sub *pollSub) func() {
	info, err := os.Stat(sub.path)

	b.mu.Lock()
	defer b.mu.Unlock()

	if os.IsNotExist(err) {
		if !sub.lastMod.IsZero() {
			// Existed before, removed now.
			sub.lastMod = time.Time{}
			return sub.notify
		}
		return nil
	}
	if err != nil {
		return nil
	}

	mod := info.ModTime()
	if sub.lastMod.IsZero() || !mod.Equal(sub.lastMod) {
		sub.lastMod = mod
		return sub.notify
	}
	return nil
}

// Ensure PollBackend implements Backend.
var _ Backend = (*PollBackend)(nil)
