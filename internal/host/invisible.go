package host

import (
	"os"
	"path/filepath"

	"github.com/dshills/docsync/internal/buffer"
)

// InvisibleBuffer is a temporary, UI-invisible editable buffer created
// solely to apply a programmatic edit while no real editor buffer is
// open. Release writes modified content back to disk and discards the
// buffer; it is idempotent so callers can defer it and still release
// early on success paths.
type InvisibleBuffer struct {
	path       string
	buf        *buffer.Buffer
	initialRev buffer.RevisionID
	released   bool
}

// Buffer returns the underlying editable buffer.
func (ib *InvisibleBuffer) Buffer() *buffer.Buffer {
	return ib.buf
}

// Path returns the file the buffer was materialized from.
func (ib *InvisibleBuffer) Path() string {
	return ib.path
}

// Release discards the buffer, writing its content back to disk first
// if it was modified. The write is atomic (temp file plus rename) so a
// failure leaves the original file untouched.
func (ib *InvisibleBuffer) Release() error {
	if ib.released {
		return nil
	}
	ib.released = true

	modified := ib.buf.Revision() != ib.initialRev
	content := ib.buf.Bytes()
	ib.buf = nil

	if !modified {
		return nil
	}

	return writeFileAtomic(ib.path, content)
}

// Discard drops the buffer without writing anything back, even if it
// was modified. Used when applying an edit failed partway and the
// partial content must not reach disk. Idempotent, and a no-op after
// Release.
func (ib *InvisibleBuffer) Discard() {
	if ib.released {
		return
	}
	ib.released = true
	ib.buf = nil
}

// IsReleased reports whether Release has been called.
func (ib *InvisibleBuffer) IsReleased() bool {
	return ib.released
}

// writeFileAtomic writes data to path via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	// Preserve existing permissions where possible.
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpName, info.Mode())
	} else {
		_ = os.Chmod(tmpName, 0644)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
