// Package tracking observes buffer revisions for one open session.
//
// A VersionedTracker is bound to exactly one buffer between
// StartTracking and StopTracking. It records every revision transition
// the buffer reports and flags revisions that revisit previously seen
// content (undo/redo) as reiterated, so consumers keying state by
// revision number can tell when the number alone is not enough to
// distinguish distinct content.
//
// Trackers are created fresh per open and discarded on close; no state
// crosses sessions.
package tracking

import (
	"fmt"
	"sync"

	"github.com/dshills/docsync/internal/buffer"
)

// RevisionID is an alias to buffer.RevisionID for convenience.
type RevisionID = buffer.RevisionID

// VersionedTracker records revision transitions for one bound buffer.
// Queries are safe from any goroutine.
type VersionedTracker struct {
	mu sync.Mutex

	bound  *buffer.Buffer
	remove func()

	// seen maps content fingerprints to the first revision that
	// produced them.
	seen map[uint64]RevisionID

	// reiterated holds revisions whose content had been seen before.
	reiterated map[RevisionID]bool

	// revisions counts observed transitions, including the seed.
	revisions int

	// last is the most recent observed revision.
	last RevisionID
}

// NewVersionedTracker creates an unbound tracker.
func NewVersionedTracker() *VersionedTracker {
	return &VersionedTracker{
		seen:       make(map[uint64]RevisionID),
		reiterated: make(map[RevisionID]bool),
	}
}

// StartTracking binds the tracker to buf and begins observing its
// revisions. The buffer's current content seeds the fingerprint
// history. Starting an already-bound tracker is a contract violation.
func (t *VersionedTracker) StartTracking(buf *buffer.Buffer) {
	if buf == nil {
		panic("docsync: StartTracking called with nil buffer")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bound != nil {
		panic("docsync: tracker already bound to a buffer")
	}

	t.bound = buf

	snap := buf.Snapshot()
	t.seen[snap.Fingerprint()] = snap.Revision()
	t.last = snap.Revision()
	t.revisions = 1

	t.remove = buf.OnChange(t.observe)
}

// StopTracking unbinds the tracker. The buffer must be the one passed
// to the matching StartTracking; a mismatch indicates the caller is
// stopping the wrong tracker during a close/reopen race and is a
// contract violation.
func (t *VersionedTracker) StopTracking(buf *buffer.Buffer) {
	t.mu.Lock()

	if t.bound == nil {
		t.mu.Unlock()
		panic("docsync: StopTracking called on an unbound tracker")
	}
	if t.bound != buf {
		t.mu.Unlock()
		panic(fmt.Sprintf("docsync: StopTracking buffer mismatch (bound %p, got %p)", t.bound, buf))
	}

	remove := t.remove
	t.bound = nil
	t.remove = nil
	t.mu.Unlock()

	if remove != nil {
		remove()
	}
}

// IsTracking reports whether the tracker is currently bound.
func (t *VersionedTracker) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bound != nil
}

// Bound returns the currently bound buffer, or nil.
func (t *VersionedTracker) Bound() *buffer.Buffer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bound
}

// Reiterated reports whether rev revisited previously observed
// content instead of producing novel text.
func (t *VersionedTracker) Reiterated(rev RevisionID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reiterated[rev]
}

// ChangedSince reports whether any revision has been observed after
// rev.
func (t *VersionedTracker) ChangedSince(rev RevisionID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last != rev
}

// Revisions returns the number of observed revisions, including the
// seed revision captured at StartTracking.
func (t *VersionedTracker) Revisions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revisions
}

// observe handles one buffer change notification.
func (t *VersionedTracker) observe(c buffer.Change) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bound == nil {
		// Notification racing a stop; drop it.
		return
	}

	t.revisions++
	t.last = c.Revision

	if _, ok := t.seen[c.Fingerprint]; ok {
		t.reiterated[c.Revision] = true
	} else {
		t.seen[c.Fingerprint] = c.Revision
	}
}
