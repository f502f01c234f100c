package source

import "context"

// GuardedSource wraps a raw TextSource so that every read first
// guarantees the associated change watcher is armed. The guard adds no
// caching and no retry; a read failure propagates unchanged, and
// cancellation of a read never un-arms the watcher.
type GuardedSource struct {
	raw   TextSource
	armer Armer
}

// NewGuardedSource wraps raw so that reads arm the watcher first.
func NewGuardedSource(raw TextSource, armer Armer) *GuardedSource {
	return &GuardedSource{raw: raw, armer: armer}
}

// ReadSync arms the watcher, then delegates.
func (g *GuardedSource) ReadSync(ctx context.Context) (Result, error) {
	g.armer.EnsureArmed()
	return g.raw.ReadSync(ctx)
}

// ReadAsync arms the watcher before the read is started. The arm
// happens on the caller's goroutine so the guarantee is established
// before ReadAsync returns.
func (g *GuardedSource) ReadAsync(ctx context.Context) <-chan ReadOutcome {
	g.armer.EnsureArmed()
	return g.raw.ReadAsync(ctx)
}

// Ensure GuardedSource implements TextSource.
var _ TextSource = (*GuardedSource)(nil)
