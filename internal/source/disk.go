package source

import (
	"context"
	"os"

	"github.com/cespare/xxhash/v2"
)

// DiskSource reads document text directly from the file system.
// It performs no caching and no retries; failures propagate to the
// caller unchanged.
type DiskSource struct {
	path string
}

// NewDiskSource creates a source reading from path.
func NewDiskSource(path string) *DiskSource {
	return &DiskSource{path: path}
}

// Path returns the file path this source reads.
func (s *DiskSource) Path() string {
	return s.path
}

// ReadSync reads the file content and its version.
func (s *DiskSource) ReadSync(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Result{}, err
	}

	version := Version{Fingerprint: xxhash.Sum64(data)}
	if info, err := os.Stat(s.path); err == nil {
		version.ModTime = info.ModTime()
	}

	return Result{Text: string(data), Version: version}, nil
}

// ReadAsync reads the file on a separate goroutine. The returned
// channel receives exactly one outcome; cancellation aborts the wait
// but the underlying read still runs to completion.
func (s *DiskSource) ReadAsync(ctx context.Context) <-chan ReadOutcome {
	out := make(chan ReadOutcome, 1)

	go func() {
		result, err := s.ReadSync(ctx)
		if err == nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
		}
		if err != nil {
			out <- ReadOutcome{Err: err}
			return
		}
		out <- ReadOutcome{Result: result}
	}()

	return out
}

// Ensure DiskSource implements TextSource.
var _ TextSource = (*DiskSource)(nil)
