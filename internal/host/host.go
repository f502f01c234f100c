// Package host provides the editor-host adapters a document uses to
// apply text edits.
//
// ApplyMinimalEdit computes and applies the smallest edit set turning
// the buffer's content into the new text, preserving caret position
// and undo history in a live editor buffer. ApplyFullEdit replaces the
// whole content in one step and is used for invisible buffers, where
// no UI state is at risk.
package host

import (
	"context"
	"os"

	"github.com/dshills/docsync/internal/buffer"
	"github.com/dshills/docsync/internal/diff"
	"github.com/dshills/docsync/internal/source"
)

// BufferHost applies text edits on behalf of a document.
type BufferHost interface {
	// ApplyMinimalEdit turns buf's content into newText with the
	// smallest edit set.
	ApplyMinimalEdit(buf *buffer.Buffer, newText string) error

	// ApplyFullEdit replaces buf's entire content with newText.
	ApplyFullEdit(buf *buffer.Buffer, newText string) error

	// AcquireInvisibleBuffer materializes a temporary buffer holding
	// the file's current text, read through src. The caller must
	// Release it on every exit path; release after modification
	// writes the content back to disk.
	AcquireInvisibleBuffer(ctx context.Context, path string, src source.TextSource) (*InvisibleBuffer, error)
}

// EditorHost is the default BufferHost implementation.
type EditorHost struct {
	diffOpts diff.Options
}

// HostOption configures an EditorHost.
type HostOption func(*EditorHost)

// WithDiffOptions sets the options for minimal-edit computation.
func WithDiffOptions(opts diff.Options) HostOption {
	return func(h *EditorHost) {
		h.diffOpts = opts
	}
}

// NewEditorHost creates an EditorHost.
func NewEditorHost(opts ...HostOption) *EditorHost {
	h := &EditorHost{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ApplyMinimalEdit computes the minimal line diff and applies it.
func (h *EditorHost) ApplyMinimalEdit(buf *buffer.Buffer, newText string) error {
	edits := diff.MinimalEdits(buf.Text(), newText, h.diffOpts)
	return buf.ApplyEdits(edits)
}

// ApplyFullEdit replaces the entire buffer content.
func (h *EditorHost) ApplyFullEdit(buf *buffer.Buffer, newText string) error {
	buf.SetText(newText)
	return nil
}

// AcquireInvisibleBuffer loads the file's text into a temporary
// buffer. A missing file yields an empty buffer; releasing after
// modification then creates the file.
func (h *EditorHost) AcquireInvisibleBuffer(ctx context.Context, path string, src source.TextSource) (*InvisibleBuffer, error) {
	result, err := src.ReadSync(ctx)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	buf := buffer.NewBufferFromString(result.Text)
	return &InvisibleBuffer{
		path:       path,
		buf:        buf,
		initialRev: buf.Revision(),
	}, nil
}

// Ensure EditorHost implements BufferHost.
var _ BufferHost = (*EditorHost)(nil)
