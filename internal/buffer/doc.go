// Package buffer provides the editable in-memory text buffer that backs
// an open document.
//
// A Buffer holds the current text, a monotonically increasing revision
// ID that changes on every mutation, and a content fingerprint used to
// recognize when a revision revisits previously seen text (undo/redo).
// Change observers are notified synchronously after each mutation in
// registration order.
//
// The buffer's lifetime is controlled by the editor host. Document
// state holds a non-owning reference to it and must never destroy it.
package buffer
