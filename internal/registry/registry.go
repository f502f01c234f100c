// Package registry tracks the live documents of a workspace, one per
// file path. It provides thread-safe lookup by path or identity and
// owns nothing a document needs to function: documents report back on
// dispose so a registry never holds a retired entry.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/docsync/internal/buffer"
	"github.com/dshills/docsync/internal/document"
	"github.com/dshills/docsync/internal/watcher"
)

// Common errors returned by registry operations.
var (
	ErrAlreadyTracked = errors.New("path is already tracked")
	ErrNotTracked     = errors.New("document is not tracked")
)

// Registry holds the documents currently under management.
type Registry struct {
	mu      sync.RWMutex
	byPath  map[string]*document.Document
	byID    map[document.Identity]*document.Document
	backend watcher.Backend

	onTrack []func(doc *document.Document)
	onStop  []func(doc *document.Document)
}

// New creates an empty registry. Documents created through Create use
// backend for their change watchers.
func New(backend watcher.Backend) *Registry {
	return &Registry{
		byPath:  make(map[string]*document.Document),
		byID:    make(map[document.Identity]*document.Document),
		backend: backend,
	}
}

// Create builds a new document for path, tracks it, and returns it.
// The document is wired to report back here on dispose. Fails if the
// path is already tracked.
func (r *Registry) Create(path string, folders []string, kind document.SourceKind, opts ...document.Option) (*document.Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	r.mu.Lock()
	if _, ok := r.byPath[absPath]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("create %s: %w", absPath, ErrAlreadyTracked)
	}
	r.mu.Unlock()

	opts = append(opts, document.WithRegistry(r))
	doc := document.New(uuid.New(), absPath, folders, kind, r.backend, opts...)

	if err := r.Track(doc); err != nil {
		// Lost a race with a concurrent Create for the same path.
		doc.Dispose()
		return nil, err
	}
	return doc, nil
}

// CreateOpen builds a document that starts open around a buffer
// holding text, tracks it, and returns it.
func (r *Registry) CreateOpen(path string, folders []string, kind document.SourceKind, text string, opts ...document.Option) (*document.Document, error) {
	buf := buffer.NewBufferFromString(text)
	opts = append(opts, document.WithInitialBuffer(buf))
	return r.Create(path, folders, kind, opts...)
}

// Track registers an externally constructed document. Fails if its
// path or identity is already tracked.
func (r *Registry) Track(doc *document.Document) error {
	r.mu.Lock()
	if _, ok := r.byPath[doc.Path()]; ok {
		r.mu.Unlock()
		return fmt.Errorf("track %s: %w", doc.Path(), ErrAlreadyTracked)
	}
	if _, ok := r.byID[doc.ID()]; ok {
		r.mu.Unlock()
		return fmt.Errorf("track %s: %w", doc.Path(), ErrAlreadyTracked)
	}
	r.byPath[doc.Path()] = doc
	r.byID[doc.ID()] = doc

	handlers := make([]func(*document.Document), len(r.onTrack))
	copy(handlers, r.onTrack)
	r.mu.Unlock()

	for _, handler := range handlers {
		handler(doc)
	}
	return nil
}

// Get returns the tracked document for path, if any.
func (r *Registry) Get(path string) (*document.Document, bool) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byPath[absPath]
	return doc, ok
}

// GetByID returns the tracked document with identity id, if any.
func (r *Registry) GetByID(id document.Identity) (*document.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[id]
	return doc, ok
}

// IsTracked reports whether path has a tracked document.
func (r *Registry) IsTracked(path string) bool {
	_, ok := r.Get(path)
	return ok
}

// Count returns the number of tracked documents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPath)
}

// Paths returns the tracked paths in sorted order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	paths := make([]string, 0, len(r.byPath))
	for path := range r.byPath {
		paths = append(paths, path)
	}
	r.mu.RUnlock()

	sort.Strings(paths)
	return paths
}

// Documents returns all tracked documents.
func (r *Registry) Documents() []*document.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]*document.Document, 0, len(r.byPath))
	for _, doc := range r.byPath {
		docs = append(docs, doc)
	}
	return docs
}

// OpenDocuments returns the tracked documents that currently have an
// editor buffer.
func (r *Registry) OpenDocuments() []*document.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var open []*document.Document
	for _, doc := range r.byPath {
		if doc.IsOpen() {
			open = append(open, doc)
		}
	}
	return open
}

// StopTrackingDocument removes doc from the registry. Called by
// documents during dispose; callers retiring a document should use
// Document.Dispose rather than calling this directly. Unknown
// documents are ignored so dispose stays idempotent from the
// registry's point of view.
func (r *Registry) StopTrackingDocument(doc *document.Document) {
	r.mu.Lock()
	if tracked, ok := r.byPath[doc.Path()]; !ok || tracked != doc {
		r.mu.Unlock()
		return
	}
	delete(r.byPath, doc.Path())
	delete(r.byID, doc.ID())

	handlers := make([]func(*document.Document), len(r.onStop))
	copy(handlers, r.onStop)
	r.mu.Unlock()

	for _, handler := range handlers {
		handler(doc)
	}
}

// DisposeAll disposes every tracked document. Each dispose removes the
// document from the registry, leaving it empty.
func (r *Registry) DisposeAll() {
	for _, doc := range r.Documents() {
		doc.Dispose()
	}
}

// OnTrack registers a handler called when a document starts being
// tracked.
func (r *Registry) OnTrack(handler func(doc *document.Document)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTrack = append(r.onTrack, handler)
}

// OnStopTracking registers a handler called when a document leaves
// the registry.
func (r *Registry) OnStopTracking(handler func(doc *document.Document)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStop = append(r.onStop, handler)
}

// Stats summarizes the registry's contents.
type Stats struct {
	Tracked int
	Open    int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Tracked: len(r.byPath)}
	for _, doc := range r.byPath {
		if doc.IsOpen() {
			stats.Open++
		}
	}
	return stats
}
