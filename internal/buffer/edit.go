package buffer

import "fmt"

// Edit represents a text edit operation.
// It specifies a byte range [Start, End) to replace and the new text.
type Edit struct {
	Start   int
	End     int
	NewText string
}

// NewEdit creates a new Edit.
func NewEdit(start, end int, newText string) Edit {
	return Edit{Start: start, End: end, NewText: newText}
}

// NewInsert creates an Edit that inserts text at an offset.
func NewInsert(offset int, text string) Edit {
	return Edit{Start: offset, End: offset, NewText: text}
}

// NewDelete creates an Edit that deletes a range of text.
func NewDelete(start, end int) Edit {
	return Edit{Start: start, End: end}
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	if e.Start == e.End {
		return fmt.Sprintf("Insert(%d, %q)", e.Start, e.NewText)
	}
	if e.NewText == "" {
		return fmt.Sprintf("Delete[%d,%d)", e.Start, e.End)
	}
	return fmt.Sprintf("Replace[%d,%d) with %q", e.Start, e.End, e.NewText)
}

// IsInsert returns true if this is a pure insertion (empty range).
func (e Edit) IsInsert() bool {
	return e.Start == e.End && e.NewText != ""
}

// IsDelete returns true if this is a pure deletion (empty replacement).
func (e Edit) IsDelete() bool {
	return e.Start < e.End && e.NewText == ""
}

// IsNoOp returns true if this edit does nothing.
func (e Edit) IsNoOp() bool {
	return e.Start == e.End && e.NewText == ""
}

// Delta returns the change in buffer length caused by this edit.
func (e Edit) Delta() int {
	return len(e.NewText) - (e.End - e.Start)
}
