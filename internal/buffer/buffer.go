package buffer

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Errors returned by buffer operations.
var (
	ErrRangeInvalid = errors.New("invalid edit range")
	ErrEditsOverlap = errors.New("edits overlap or are not in reverse order")
)

// RevisionID uniquely identifies a buffer revision.
// Each modification to the buffer creates a new revision.
type RevisionID uint64

// revisionCounter is used to generate unique revision IDs.
var revisionCounter uint64

// NewRevisionID generates a new unique revision ID.
// This is thread-safe using atomic operations.
func NewRevisionID() RevisionID {
	return RevisionID(atomic.AddUint64(&revisionCounter, 1))
}

// Change describes a buffer mutation delivered to change observers.
type Change struct {
	// Revision is the revision ID after the mutation.
	Revision RevisionID

	// Fingerprint is the content fingerprint after the mutation.
	Fingerprint uint64
}

// ChangeHandler is called after each buffer mutation.
type ChangeHandler func(Change)

// Buffer is an editable text buffer with revision tracking.
// All methods are thread-safe.
type Buffer struct {
	mu       sync.RWMutex
	content  []byte
	revision RevisionID

	// fingerprint of content; 0 means not yet computed.
	fingerprint uint64

	handlers   map[int]ChangeHandler
	handlerSeq int
	order      []int
}

// NewBuffer creates a new empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		revision: NewRevisionID(),
		handlers: make(map[int]ChangeHandler),
	}
}

// NewBufferFromString creates a buffer with initial content.
func NewBufferFromString(s string) *Buffer {
	b := NewBuffer()
	b.content = []byte(s)
	return b
}

// NewBufferFromBytes creates a buffer with initial content.
// The content is copied.
func NewBufferFromBytes(data []byte) *Buffer {
	b := NewBuffer()
	b.content = make([]byte, len(data))
	copy(b.content, data)
	return b
}

// Text returns the full buffer content as a string.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.content)
}

// Bytes returns a copy of the buffer content.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]byte, len(b.content))
	copy(result, b.content)
	return result
}

// Len returns the byte length of the buffer.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.content)
}

// IsEmpty returns true if the buffer is empty.
func (b *Buffer) IsEmpty() bool {
	return b.Len() == 0
}

// Revision returns the current revision ID.
func (b *Buffer) Revision() RevisionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// Fingerprint returns the fingerprint of the current content.
// The fingerprint is computed lazily and cached per revision.
func (b *Buffer) Fingerprint() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fingerprintLocked()
}

func (b *Buffer) fingerprintLocked() uint64 {
	if b.fingerprint == 0 {
		b.fingerprint = fingerprint(b.content)
	}
	return b.fingerprint
}

// fingerprint hashes content for revision comparison.
// xxhash never returns 0 for the inputs we care about, but guard
// anyway so the lazy-computation sentinel stays valid.
func fingerprint(content []byte) uint64 {
	h := xxhash.Sum64(content)
	if h == 0 {
		return 1
	}
	return h
}

// SetText replaces the entire buffer content.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	b.content = []byte(text)
	b.bumpLocked()
	change := b.changeLocked()
	handlers := b.handlersLocked()
	b.mu.Unlock()

	notify(handlers, change)
}

// Replace replaces text in the byte range [start, end) with newText.
func (b *Buffer) Replace(start, end int, newText string) error {
	b.mu.Lock()

	if start < 0 || start > end || end > len(b.content) {
		b.mu.Unlock()
		return ErrRangeInvalid
	}

	b.content = splice(b.content, start, end, newText)
	b.bumpLocked()
	change := b.changeLocked()
	handlers := b.handlersLocked()
	b.mu.Unlock()

	notify(handlers, change)
	return nil
}

// ApplyEdits applies multiple edits atomically, producing a single new
// revision. Edits must be in reverse order (highest offset first) to
// maintain validity as earlier edits are applied.
func (b *Buffer) ApplyEdits(edits []Edit) error {
	if len(edits) == 0 {
		return nil
	}

	b.mu.Lock()

	// Validate edits are in reverse order and non-overlapping.
	for i := 1; i < len(edits); i++ {
		if edits[i].End > edits[i-1].Start {
			b.mu.Unlock()
			return ErrEditsOverlap
		}
	}

	for _, edit := range edits {
		if edit.Start < 0 || edit.Start > edit.End || edit.End > len(b.content) {
			b.mu.Unlock()
			return ErrRangeInvalid
		}
	}

	for _, edit := range edits {
		b.content = splice(b.content, edit.Start, edit.End, edit.NewText)
	}
	b.bumpLocked()
	change := b.changeLocked()
	handlers := b.handlersLocked()
	b.mu.Unlock()

	notify(handlers, change)
	return nil
}

// Snapshot returns a read-only snapshot of the current buffer state.
// Safe for concurrent access from other goroutines.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &Snapshot{
		text:        string(b.content),
		revision:    b.revision,
		fingerprint: b.fingerprintLocked(),
	}
}

// OnChange registers a handler called synchronously after each
// mutation, in registration order. The returned function removes the
// handler.
func (b *Buffer) OnChange(handler ChangeHandler) (remove func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.handlerSeq
	b.handlerSeq++
	b.handlers[id] = handler
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.handlers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// bumpLocked assigns a new revision and invalidates the cached
// fingerprint. Caller must hold the write lock.
func (b *Buffer) bumpLocked() {
	b.revision = NewRevisionID()
	b.fingerprint = 0
}

func (b *Buffer) changeLocked() Change {
	return Change{
		Revision:    b.revision,
		Fingerprint: b.fingerprintLocked(),
	}
}

// handlersLocked copies the handler list in registration order so
// delivery can happen outside the lock.
func (b *Buffer) handlersLocked() []ChangeHandler {
	if len(b.order) == 0 {
		return nil
	}
	handlers := make([]ChangeHandler, 0, len(b.order))
	for _, id := range b.order {
		if h, ok := b.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	return handlers
}

func notify(handlers []ChangeHandler, change Change) {
	for _, h := range handlers {
		h(change)
	}
}

// splice builds prefix + newText + suffix.
func splice(content []byte, start, end int, newText string) []byte {
	result := make([]byte, 0, len(content)-(end-start)+len(newText))
	result = append(result, content[:start]...)
	result = append(result, newText...)
	result = append(result, content[end:]...)
	return result
}
