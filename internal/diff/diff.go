// Package diff computes minimal line-based edit sets.
//
// The minimal edits are what the buffer host applies when replacing an
// open document's text: touching only the changed lines keeps caret
// position and undo history intact in the editor.
package diff

import (
	"github.com/dshills/docsync/internal/buffer"
)

// DefaultMaxLines bounds the Myers computation. Inputs larger than
// this fall back to a single whole-content replacement, trading edit
// minimality for O(n+m) memory.
const DefaultMaxLines = 10000

// Options configures diff computation.
type Options struct {
	// MaxLines limits the input size for the Myers algorithm.
	// 0 means DefaultMaxLines; negative disables the limit.
	MaxLines int
}

// MinimalEdits computes the smallest line-level edit set that turns
// oldText into newText. Edits are returned in reverse order (highest
// offset first), ready for buffer.ApplyEdits. Equal inputs yield nil.
func MinimalEdits(oldText, newText string, opts Options) []buffer.Edit {
	if oldText == newText {
		return nil
	}

	maxLines := opts.MaxLines
	if maxLines == 0 {
		maxLines = DefaultMaxLines
	}

	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	if maxLines > 0 && (len(oldLines) > maxLines || len(newLines) > maxLines) {
		return []buffer.Edit{buffer.NewEdit(0, len(oldText), newText)}
	}

	ops := myersDiff(oldLines, newLines)
	return opsToEdits(ops, oldLines, newLines)
}

// opType classifies one line in the edit script.
type opType uint8

const (
	opEqual opType = iota
	opDelete
	opInsert
)

// editOp is a single edit operation over line indexes.
type editOp struct {
	op       opType
	oldIndex int
	newIndex int
}

// splitLines splits text into lines keeping terminators, so that the
// concatenation of lines equals the input and byte offsets stay exact.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// opsToEdits coalesces runs of deletes and inserts into byte-offset
// edits against the old text. Edits come out in reverse order.
func opsToEdits(ops []editOp, oldLines, newLines []string) []buffer.Edit {
	// Prefix sums: byte offset of each old line start.
	offsets := make([]int, len(oldLines)+1)
	for i, line := range oldLines {
		offsets[i+1] = offsets[i] + len(line)
	}

	var edits []buffer.Edit
	i := 0
	for i < len(ops) {
		if ops[i].op == opEqual {
			i++
			continue
		}

		// A maximal run of deletes and inserts becomes one edit.
		delStart, delEnd := -1, -1
		var inserted []byte
		for i < len(ops) && ops[i].op != opEqual {
			switch ops[i].op {
			case opDelete:
				if delStart == -1 {
					delStart = ops[i].oldIndex
				}
				delEnd = ops[i].oldIndex + 1
			case opInsert:
				inserted = append(inserted, newLines[ops[i].newIndex]...)
			}
			i++
		}

		var start, end int
		if delStart >= 0 {
			start, end = offsets[delStart], offsets[delEnd]
		} else {
			// Pure insertion: anchor at the old line following the
			// run, or at end of text.
			anchor := len(oldLines)
			if i < len(ops) {
				anchor = ops[i].oldIndex
			}
			start, end = offsets[anchor], offsets[anchor]
		}

		edits = append(edits, buffer.NewEdit(start, end, string(inserted)))
	}

	// Reverse order: highest offset first.
	for a, b := 0, len(edits)-1; a < b; a, b = a+1, b-1 {
		edits[a], edits[b] = edits[b], edits[a]
	}
	return edits
}

// myersDiff implements the Myers shortest-edit-script algorithm over
// lines, returning operations in old-to-new order.
func myersDiff(oldLines, newLines []string) []editOp {
	n := len(oldLines)
	m := len(newLines)

	if n == 0 && m == 0 {
		return nil
	}
	if n == 0 {
		ops := make([]editOp, m)
		for i := 0; i < m; i++ {
			ops[i] = editOp{op: opInsert, newIndex: i}
		}
		return ops
	}
	if m == 0 {
		ops := make([]editOp, n)
		for i := 0; i < n; i++ {
			ops[i] = editOp{op: opDelete, oldIndex: i}
		}
		return ops
	}

	maxD := n + m
	offset := maxD
	v := make([]int, 2*maxD+1)
	v[offset+1] = 0

	var trace [][]int

outer:
	for d := 0; d <= maxD; d++ {
		vCopy := make([]int, len(v))
		copy(vCopy, v)
		trace = append(trace, vCopy)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}

			y := x - k

			for x < n && y < m && oldLines[x] == newLines[y] {
				x++
				y++
			}

			v[offset+k] = x

			if x >= n && y >= m {
				vFinal := make([]int, len(v))
				copy(vFinal, v)
				trace = append(trace, vFinal)
				break outer
			}
		}
	}

	return backtrack(trace, n, m, offset)
}

// backtrack reconstructs the edit script from the Myers trace.
func backtrack(trace [][]int, n, m, offset int) []editOp {
	if len(trace) == 0 {
		return nil
	}

	x := n
	y := m
	var ops []editOp

	for d := len(trace) - 2; d >= 0; d-- {
		v := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}

		prevX := v[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			ops = append(ops, editOp{op: opEqual, oldIndex: x, newIndex: y})
		}

		if d > 0 {
			if x > prevX {
				x--
				ops = append(ops, editOp{op: opDelete, oldIndex: x})
			} else if y > prevY {
				y--
				ops = append(ops, editOp{op: opInsert, newIndex: y})
			}
		}
	}

	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}

	return ops
}
