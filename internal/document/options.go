package document

import (
	"github.com/dshills/docsync/internal/buffer"
	"github.com/dshills/docsync/internal/host"
)

// Option configures a Document at construction.
type Option func(*Document)

// WithInitialBuffer starts the document open around buf, with the
// tracker bound and the watcher left disarmed. No Opened event is
// emitted for a birth open.
func WithInitialBuffer(buf *buffer.Buffer) Option {
	return func(d *Document) {
		d.initial = buf
	}
}

// WithBufferHost replaces the default editor host used to apply text
// updates and acquire invisible buffers.
func WithBufferHost(h host.BufferHost) Option {
	return func(d *Document) {
		d.host = h
	}
}

// WithRegistry wires the registry that tracks this document; the
// registry is told to stop tracking when the document is disposed.
func WithRegistry(r Registry) Option {
	return func(d *Document) {
		d.registry = r
	}
}

// WithAffinityToken enables the goroutine-affinity debug check on
// mutating operations. The token is usually captured on the
// coordination goroutine with NewAffinityToken.
func WithAffinityToken(tok AffinityToken) Option {
	return func(d *Document) {
		t := tok
		d.affinity = &t
	}
}

// WithOpenedHandler registers h before any transition can run.
func WithOpenedHandler(h OpenedHandler) Option {
	return func(d *Document) {
		d.events.onOpened(h)
	}
}

// WithClosingHandler registers h before any transition can run.
func WithClosingHandler(h ClosingHandler) Option {
	return func(d *Document) {
		d.events.onClosing(h)
	}
}

// WithUpdatedOnDiskHandler registers h before the watcher arms.
func WithUpdatedOnDiskHandler(h UpdatedOnDiskHandler) Option {
	return func(d *Document) {
		d.events.onUpdatedOnDisk(h)
	}
}
