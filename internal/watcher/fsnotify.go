package watcher

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// fsSub is one active FSNotifyBackend subscription.
type fsSub struct {
	path   string
	dir    string
	notify func()
}

// FSNotifyBackend implements Backend using fsnotify.
//
// It watches the parent directory of each subscribed file rather than
// the file itself, so the subscription survives editors that replace
// files by write-to-temp-and-rename. Events are filtered down to the
// subscribed path before delivery.
type FSNotifyBackend struct {
	mu sync.Mutex

	watcher *fsnotify.Watcher

	subs map[Handle]*fsSub

	// dirs refcounts watched directories across subscriptions.
	dirs map[string]int

	nextHandle Handle
	closed     bool

	closeCh  chan struct{}
	closedWg sync.WaitGroup

	totalEvents int64
	totalErrors int64
}

// NewFSNotifyBackend creates a backend and starts its dispatch loop.
func NewFSNotifyBackend() (*FSNotifyBackend, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	b := &FSNotifyBackend{
		watcher: fsw,
		subs:    make(map[Handle]*fsSub),
		dirs:    make(map[string]int),
		closeCh: make(chan struct{}),
	}

	b.closedWg.Add(1)
	go b.processLoop()

	return b, nil
}

// Subscribe starts delivering change notifications for path.
func (b *FSNotifyBackend) Subscribe(path string, notify func()) (Handle, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(absPath)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrBackendClosed
	}

	if b.dirs[dir] == 0 {
		if err := b.watcher.Add(dir); err != nil {
			return 0, err
		}
	}
	b.dirs[dir]++

	b.nextHandle++
	h := b.nextHandle
	b.subs[h] = &fsSub{path: absPath, dir: dir, notify: notify}

	return h, nil
}

// Unsubscribe cancels an active subscription.
func (b *FSNotifyBackend) Unsubscribe(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBackendClosed
	}

	sub, ok := b.subs[h]
	if !ok {
		return ErrNotSubscribed
	}
	delete(b.subs, h)

	b.dirs[sub.dir]--
	if b.dirs[sub.dir] <= 0 {
		delete(b.dirs, sub.dir)
		_ = b.watcher.Remove(sub.dir)
	}

	return nil
}

// Close stops the backend. All subscriptions become inert.
func (b *FSNotifyBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.closedWg.Wait()
	return b.watcher.Close()
}

// Stats returns the total counts of dispatched events and errors.
func (b *FSNotifyBackend) Stats() (events, errors int64) {
	return atomic.LoadInt64(&b.totalEvents), atomic.LoadInt64(&b.totalErrors)
}

// processLoop dispatches fsnotify events to matching subscriptions.
func (b *FSNotifyBackend) processLoop() {
	defer b.closedWg.Done()

	for {
		select {
		case <-b.closeCh:
			return

		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			b.handleEvent(event)

		case _, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			atomic.AddInt64(&b.totalErrors, 1)
		}
	}
}

// handleEvent notifies subscriptions whose path matches the event.
func (b *FSNotifyBackend) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	b.mu.Lock()
	var notifies []func()
	for _, sub := range b.subs {
		if sub.path == event.Name {
			notifies = append(notifies, sub.notify)
		}
	}
	b.mu.Unlock()

	for _, notify := range notifies {
		atomic.AddInt64(&b.totalEvents, 1)
		notify()
	}
}

// Ensure FSNotifyBackend implements Backend.
var _ Backend = (*FSNotifyBackend)(nil)
