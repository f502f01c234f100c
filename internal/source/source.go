// Package source provides text loading for tracked documents.
//
// A TextSource reads the current text of a file together with a
// version fingerprint. GuardedSource decorates a raw source so that
// every read, synchronous or asynchronous, first guarantees the
// document's change watcher is armed. Without that ordering an
// external edit landing between "read the file" and "start watching
// it" would be silently missed until the next external edit.
package source

import (
	"context"
	"time"
)

// Version identifies the content observed by a read.
type Version struct {
	// Fingerprint is a hash of the content.
	Fingerprint uint64

	// ModTime is the file's modification time at read.
	ModTime time.Time
}

// Result is the outcome of a successful read.
type Result struct {
	Text    string
	Version Version
}

// ReadOutcome carries the result of an asynchronous read.
type ReadOutcome struct {
	Result Result
	Err    error
}

// TextSource reads document text.
type TextSource interface {
	// ReadSync reads the text, blocking until done or ctx is done.
	ReadSync(ctx context.Context) (Result, error)

	// ReadAsync starts a read and returns a channel that receives
	// exactly one outcome. Cancelling ctx aborts the pending read.
	ReadAsync(ctx context.Context) <-chan ReadOutcome
}

// Armer guarantees a change subscription is active. It is satisfied by
// watcher.ChangeWatcher.
type Armer interface {
	EnsureArmed()
}
