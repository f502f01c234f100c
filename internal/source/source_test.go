package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dshills/docsync/internal/watcher"
)

// recordingArmer records EnsureArmed calls and the order of operations
// relative to reads.
type recordingArmer struct {
	mu    sync.Mutex
	calls int
	log   []string
}

func (a *recordingArmer) EnsureArmed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.log = append(a.log, "arm")
}

func (a *recordingArmer) record(op string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.log = append(a.log, op)
}

func (a *recordingArmer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// loggingSource reports reads into the armer's log to verify ordering.
type loggingSource struct {
	armer  *recordingArmer
	result Result
	err    error
}

func (s *loggingSource) ReadSync(ctx context.Context) (Result, error) {
	s.armer.record("read")
	return s.result, s.err
}

func (s *loggingSource) ReadAsync(ctx context.Context) <-chan ReadOutcome {
	s.armer.record("read")
	out := make(chan ReadOutcome, 1)
	out <- ReadOutcome{Result: s.result, Err: s.err}
	return out
}

func TestDiskSource_ReadSync(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "file.txt")
	if err := os.WriteFile(path, []byte("file content"), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewDiskSource(path)
	result, err := src.ReadSync(context.Background())
	if err != nil {
		t.Fatalf("ReadSync() error = %v", err)
	}
	if result.Text != "file content" {
		t.Errorf("Text = %q, want %q", result.Text, "file content")
	}
	if result.Version.Fingerprint == 0 {
		t.Error("Version.Fingerprint should be set")
	}
	if result.Version.ModTime.IsZero() {
		t.Error("Version.ModTime should be set")
	}
}

func TestDiskSource_ReadSync_Missing(t *testing.T) {
	src := NewDiskSource(filepath.Join(t.TempDir(), "missing.txt"))
	_, err := src.ReadSync(context.Background())
	if !os.IsNotExist(err) {
		t.Errorf("ReadSync() error = %v, want not-exist", err)
	}
}

func TestDiskSource_ReadSync_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewDiskSource("/tmp/whatever.txt")
	_, err := src.ReadSync(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ReadSync() error = %v, want context.Canceled", err)
	}
}

func TestDiskSource_ReadAsync(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "async.txt")
	if err := os.WriteFile(path, []byte("async content"), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewDiskSource(path)
	select {
	case outcome := <-src.ReadAsync(context.Background()):
		if outcome.Err != nil {
			t.Fatalf("ReadAsync() error = %v", outcome.Err)
		}
		if outcome.Result.Text != "async content" {
			t.Errorf("Text = %q, want %q", outcome.Result.Text, "async content")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadAsync() did not complete")
	}
}

func TestDiskSource_VersionChangesWithContent(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "v.txt")
	if err := os.WriteFile(path, []byte("one"), 0644); err != nil {
		t.Fatal(err)
	}

	src := NewDiskSource(path)
	first, err := src.ReadSync(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("two"), 0644); err != nil {
		t.Fatal(err)
	}

	second, err := src.ReadSync(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if first.Version.Fingerprint == second.Version.Fingerprint {
		t.Error("fingerprint should change with content")
	}
}

func TestGuardedSource_ArmBeforeReadSync(t *testing.T) {
	armer := &recordingArmer{}
	raw := &loggingSource{armer: armer, result: Result{Text: "x"}}
	guarded := NewGuardedSource(raw, armer)

	result, err := guarded.ReadSync(context.Background())
	if err != nil {
		t.Fatalf("ReadSync() error = %v", err)
	}
	if result.Text != "x" {
		t.Errorf("Text = %q, want %q", result.Text, "x")
	}

	if len(armer.log) != 2 || armer.log[0] != "arm" || armer.log[1] != "read" {
		t.Errorf("operation order = %v, want [arm read]", armer.log)
	}
}

func TestGuardedSource_ArmBeforeReadAsync(t *testing.T) {
	armer := &recordingArmer{}
	raw := &loggingSource{armer: armer, result: Result{Text: "y"}}
	guarded := NewGuardedSource(raw, armer)

	<-guarded.ReadAsync(context.Background())

	if len(armer.log) != 2 || armer.log[0] != "arm" || armer.log[1] != "read" {
		t.Errorf("operation order = %v, want [arm read]", armer.log)
	}
}

func TestGuardedSource_ArmRetriedPerRead(t *testing.T) {
	armer := &recordingArmer{}
	raw := &loggingSource{armer: armer, result: Result{}}
	guarded := NewGuardedSource(raw, armer)

	ctx := context.Background()
	_, _ = guarded.ReadSync(ctx)
	_, _ = guarded.ReadSync(ctx)
	<-guarded.ReadAsync(ctx)

	if got := armer.callCount(); got != 3 {
		t.Errorf("EnsureArmed called %d times, want 3", got)
	}
}

func TestGuardedSource_ReadFailurePropagates(t *testing.T) {
	armer := &recordingArmer{}
	wantErr := errors.New("read failed")
	raw := &loggingSource{armer: armer, err: wantErr}
	guarded := NewGuardedSource(raw, armer)

	if _, err := guarded.ReadSync(context.Background()); err != wantErr {
		t.Errorf("ReadSync() error = %v, want %v", err, wantErr)
	}
	if armer.callCount() != 1 {
		t.Error("failed read must still have armed first")
	}
}

func TestGuardedSource_DiskRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "g.txt")
	if err := os.WriteFile(path, []byte("guarded"), 0644); err != nil {
		t.Fatal(err)
	}

	armer := &recordingArmer{}
	guarded := NewGuardedSource(NewDiskSource(path), armer)

	result, err := guarded.ReadSync(context.Background())
	if err != nil {
		t.Fatalf("ReadSync() error = %v", err)
	}
	if result.Text != "guarded" {
		t.Errorf("Text = %q, want %q", result.Text, "guarded")
	}
	if armer.callCount() != 1 {
		t.Errorf("EnsureArmed called %d times, want 1", armer.callCount())
	}
}

// stallingSource blocks its read until release is closed, letting a
// test hold a read in flight across other operations.
type stallingSource struct {
	release chan struct{}
	result  Result
}

func (s *stallingSource) ReadSync(ctx context.Context) (Result, error) {
	<-s.release
	return s.result, nil
}

func (s *stallingSource) ReadAsync(ctx context.Context) <-chan ReadOutcome {
	out := make(chan ReadOutcome, 1)
	go func() {
		<-s.release
		out <- ReadOutcome{Result: s.result}
	}()
	return out
}

type countingBackend struct {
	mu   sync.Mutex
	next watcher.Handle
	subs map[watcher.Handle]struct{}
}

func (b *countingBackend) Subscribe(path string, notify func()) (watcher.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[watcher.Handle]struct{})
	}
	b.next++
	b.subs[b.next] = struct{}{}
	return b.next, nil
}

func (b *countingBackend) Unsubscribe(h watcher.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[h]; !ok {
		return watcher.ErrNotSubscribed
	}
	delete(b.subs, h)
	return nil
}

func (b *countingBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func TestGuardedSource_DisposeDuringAsyncRead(t *testing.T) {
	backend := &countingBackend{}
	w := watcher.NewChangeWatcher("/nonexistent/pinned.txt", backend, func() {})
	raw := &stallingSource{
		release: make(chan struct{}),
		result:  Result{Text: "pinned", Version: Version{Fingerprint: 7}},
	}
	guarded := NewGuardedSource(raw, w)

	outcome := guarded.ReadAsync(context.Background())
	if !w.IsArmed() {
		t.Fatal("watcher should be armed before the read starts")
	}

	// Dispose while the read is still in flight.
	w.Dispose()
	close(raw.release)

	res := <-outcome
	if res.Err != nil {
		t.Fatalf("ReadAsync error = %v", res.Err)
	}
	if res.Result.Text != "pinned" {
		t.Errorf("Text = %q, want %q", res.Result.Text, "pinned")
	}
	if w.IsArmed() {
		t.Error("watcher should be disarmed after dispose")
	}
	if got := backend.count(); got != 0 {
		t.Errorf("subscriptions = %d, want 0 after dispose", got)
	}
}
