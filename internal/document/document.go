package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/docsync/internal/buffer"
	"github.com/dshills/docsync/internal/host"
	"github.com/dshills/docsync/internal/source"
	"github.com/dshills/docsync/internal/tracking"
	"github.com/dshills/docsync/internal/watcher"
)

// Identity uniquely names a document for its lifetime, independent of
// the file path (which may be reused after dispose).
type Identity = uuid.UUID

// SourceKind classifies where a document's content originates.
type SourceKind string

const (
	// KindFile marks a document backed by a real file on disk.
	KindFile SourceKind = "file"
	// KindGenerated marks a document whose content is produced by a
	// tool rather than authored in an editor.
	KindGenerated SourceKind = "generated"
)

// Registry is notified when a document it tracks is disposed.
type Registry interface {
	StopTrackingDocument(doc *Document)
}

// docState is the open/closed variant. Exactly one of the two concrete
// forms is held at any time; openState carries the buffer so a buffer
// can never exist for a closed document.
type docState interface {
	isOpen() bool
}

type closedState struct{}

func (closedState) isOpen() bool { return false }

type openState struct {
	buf *buffer.Buffer
}

func (openState) isOpen() bool { return true }

// Document reconciles one file's buffer and disk state.
type Document struct {
	id      Identity
	path    string
	folders []string
	kind    SourceKind

	state    docState
	tracker  *tracking.VersionedTracker
	watcher  *watcher.ChangeWatcher
	src      *source.GuardedSource
	host     host.BufferHost
	registry Registry
	affinity *AffinityToken
	disposed bool

	// initial stages WithInitialBuffer until New consumes it.
	initial *buffer.Buffer

	events eventHub
}

// New builds a document for path, owning a change watcher on backend
// and a guarded disk source. The document starts closed with the
// watcher armed unless WithInitialBuffer opens it at birth.
func New(id Identity, path string, folders []string, kind SourceKind, backend watcher.Backend, opts ...Option) *Document {
	d := &Document{
		id:      id,
		path:    path,
		folders: append([]string(nil), folders...),
		kind:    kind,
		state:   closedState{},
		host:    host.NewEditorHost(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.watcher = watcher.NewChangeWatcher(path, backend, d.events.emitUpdatedOnDisk)
	d.src = source.NewGuardedSource(source.NewDiskSource(path), d.watcher)

	if buf := d.initial; buf != nil {
		d.initial = nil
		tr := tracking.NewVersionedTracker()
		tr.StartTracking(buf)
		d.tracker = tr
		d.state = openState{buf: buf}
	} else {
		d.watcher.Arm()
	}
	return d
}

// ID returns the document's identity.
func (d *Document) ID() Identity { return d.id }

// Path returns the file path the document reconciles.
func (d *Document) Path() string { return d.path }

// Folders returns the workspace folders associated with the document.
func (d *Document) Folders() []string {
	return append([]string(nil), d.folders...)
}

// Kind returns the document's source kind.
func (d *Document) Kind() SourceKind { return d.kind }

// IsOpen reports whether the document currently has an editor buffer.
func (d *Document) IsOpen() bool { return d.state.isOpen() }

// Buffer returns the open buffer, or nil while closed.
func (d *Document) Buffer() *buffer.Buffer {
	if s, ok := d.state.(openState); ok {
		return s.buf
	}
	return nil
}

// Tracker returns the revision tracker bound to the current open
// buffer, or nil while closed.
func (d *Document) Tracker() *tracking.VersionedTracker {
	if d.state.isOpen() {
		return d.tracker
	}
	return nil
}

// TextSource returns the guarded text source for the document. Safe to
// call and use from any goroutine.
func (d *Document) TextSource() source.TextSource { return d.src }

// ProcessOpen transitions the document to open around buf. The watcher
// is disarmed before the tracker binds so no disk notification can
// fire once the buffer is authoritative. Opened observers run last,
// after the state is fully consistent.
func (d *Document) ProcessOpen(buf *buffer.Buffer, isActiveContext bool) {
	d.assertAffine("ProcessOpen")
	d.assertLive("ProcessOpen")
	if buf == nil {
		panic("docsync: ProcessOpen requires a buffer")
	}
	if d.state.isOpen() {
		panic(fmt.Sprintf("docsync: ProcessOpen on already-open document %s", d.path))
	}

	d.watcher.Disarm()

	tr := tracking.NewVersionedTracker()
	tr.StartTracking(buf)
	d.tracker = tr
	d.state = openState{buf: buf}

	d.events.emitOpened(isActiveContext)
}

// ProcessClose transitions the document to closed. Closing observers
// run first, while the buffer is still readable, then the buffer is
// detached, the tracker stopped, and the watcher re-armed so disk
// changes are observed again.
func (d *Document) ProcessClose(notifyActiveContext bool) {
	d.assertAffine("ProcessClose")
	d.assertLive("ProcessClose")
	s, ok := d.state.(openState)
	if !ok {
		panic(fmt.Sprintf("docsync: ProcessClose on already-closed document %s", d.path))
	}

	d.events.emitClosing(notifyActiveContext)

	d.state = closedState{}
	d.tracker.StopTracking(s.buf)
	d.tracker = nil

	d.watcher.Arm()
}

// UpdateText replaces the document's full text with newText.
//
// Open documents receive the change as a minimal edit against the live
// buffer, preserving as much of the existing content as possible for
// downstream consumers. Closed documents are updated through a
// short-lived invisible buffer whose release writes the file back. The
// buffer is always released; if applying the edit fails it is
// discarded instead, so no partial content reaches disk.
func (d *Document) UpdateText(ctx context.Context, newText string) error {
	d.assertAffine("UpdateText")
	d.assertLive("UpdateText")

	if s, ok := d.state.(openState); ok {
		return d.host.ApplyMinimalEdit(s.buf, newText)
	}

	ib, err := d.host.AcquireInvisibleBuffer(ctx, d.path, d.src)
	if err != nil {
		return err
	}
	// A failed or panicking edit must not write partial content back.
	defer ib.Discard()
	if err := d.host.ApplyFullEdit(ib.Buffer(), newText); err != nil {
		return err
	}
	return ib.Release()
}

// OnOpened registers h to run after each open transition. Returns a
// function that removes the registration.
func (d *Document) OnOpened(h OpenedHandler) func() {
	return d.events.onOpened(h)
}

// OnClosing registers h to run at the start of each close transition,
// while the buffer is still attached.
func (d *Document) OnClosing(h ClosingHandler) func() {
	return d.events.onClosing(h)
}

// OnUpdatedOnDisk registers h to run when the watched file changes on
// disk while the document is closed. Delivered on the watcher's
// goroutine.
func (d *Document) OnUpdatedOnDisk(h UpdatedOnDiskHandler) func() {
	return d.events.onUpdatedOnDisk(h)
}

// Dispose permanently retires the document: the watcher is disposed,
// observers are dropped, and the owning registry (if any) is told to
// stop tracking. A disposed document must not be used again; double
// dispose panics.
func (d *Document) Dispose() {
	d.assertAffine("Dispose")
	if d.disposed {
		panic(fmt.Sprintf("docsync: document %s disposed twice", d.path))
	}
	d.disposed = true

	d.watcher.Dispose()
	d.events.clear()
	if s, ok := d.state.(openState); ok {
		d.tracker.StopTracking(s.buf)
		d.tracker = nil
		d.state = closedState{}
	}
	if d.registry != nil {
		d.registry.StopTrackingDocument(d)
	}
}

// Disposed reports whether Dispose has run.
func (d *Document) Disposed() bool { return d.disposed }

func (d *Document) assertLive(op string) {
	if d.disposed {
		panic(fmt.Sprintf("docsync: %s on disposed document %s", op, d.path))
	}
}

func (d *Document) assertAffine(op string) {
	if d.affinity != nil && !d.affinity.Held() {
		panic(fmt.Sprintf("docsync: %s called off the coordination goroutine for %s", op, d.path))
	}
}
