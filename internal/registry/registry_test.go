package registry

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/dshills/docsync/internal/buffer"
	"github.com/dshills/docsync/internal/document"
	"github.com/dshills/docsync/internal/watcher"
)

type fakeBackend struct {
	mu   sync.Mutex
	next watcher.Handle
	subs map[watcher.Handle]struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{subs: make(map[watcher.Handle]struct{})}
}

func (b *fakeBackend) Subscribe(path string, notify func()) (watcher.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.subs[b.next] = struct{}{}
	return b.next, nil
}

func (b *fakeBackend) Unsubscribe(h watcher.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[h]; !ok {
		return watcher.ErrNotSubscribed
	}
	delete(b.subs, h)
	return nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCreateAndGet(t *testing.T) {
	reg := New(newFakeBackend())
	path := writeTemp(t, "a.txt", "alpha\n")

	doc, err := reg.Create(path, nil, document.KindFile)
	if err != nil {
		t.Fatal(err)
	}
	if doc.IsOpen() {
		t.Error("Create should produce a closed document")
	}
	if got, ok := reg.Get(path); !ok || got != doc {
		t.Error("Get should return the created document")
	}
	if got, ok := reg.GetByID(doc.ID()); !ok || got != doc {
		t.Error("GetByID should return the created document")
	}
	if reg.Count() != 1 {
		t.Errorf("Count = %d, want 1", reg.Count())
	}
}

func TestCreate_DuplicatePath(t *testing.T) {
	reg := New(newFakeBackend())
	path := writeTemp(t, "a.txt", "alpha\n")

	if _, err := reg.Create(path, nil, document.KindFile); err != nil {
		t.Fatal(err)
	}
	_, err := reg.Create(path, nil, document.KindFile)
	if !errors.Is(err, ErrAlreadyTracked) {
		t.Errorf("err = %v, want ErrAlreadyTracked", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Count = %d, want 1", reg.Count())
	}
}

func TestCreateOpen(t *testing.T) {
	reg := New(newFakeBackend())
	path := writeTemp(t, "a.txt", "alpha\n")

	doc, err := reg.CreateOpen(path, nil, document.KindFile, "draft\n")
	if err != nil {
		t.Fatal(err)
	}
	if !doc.IsOpen() {
		t.Fatal("CreateOpen should produce an open document")
	}
	if got := doc.Buffer().Text(); got != "draft\n" {
		t.Errorf("Buffer text = %q, want %q", got, "draft\n")
	}
}

func TestTrack_ExternalDocument(t *testing.T) {
	backend := newFakeBackend()
	reg := New(backend)
	path := writeTemp(t, "a.txt", "alpha\n")

	doc := document.New(uuid.New(), path, nil, document.KindFile, backend,
		document.WithRegistry(reg))
	if err := reg.Track(doc); err != nil {
		t.Fatal(err)
	}
	if err := reg.Track(doc); !errors.Is(err, ErrAlreadyTracked) {
		t.Errorf("second Track err = %v, want ErrAlreadyTracked", err)
	}
}

func TestDisposeRemovesFromRegistry(t *testing.T) {
	reg := New(newFakeBackend())
	path := writeTemp(t, "a.txt", "alpha\n")

	var stopped []*document.Document
	reg.OnStopTracking(func(doc *document.Document) {
		stopped = append(stopped, doc)
	})

	doc, err := reg.Create(path, nil, document.KindFile)
	if err != nil {
		t.Fatal(err)
	}
	doc.Dispose()

	if reg.Count() != 0 {
		t.Errorf("Count = %d, want 0 after dispose", reg.Count())
	}
	if len(stopped) != 1 || stopped[0] != doc {
		t.Errorf("stop handler fired %d times, want once", len(stopped))
	}

	// A new document may reuse the path after dispose.
	if _, err := reg.Create(path, nil, document.KindFile); err != nil {
		t.Errorf("path should be reusable after dispose: %v", err)
	}
}

func TestPathsSorted(t *testing.T) {
	reg := New(newFakeBackend())
	b := writeTemp(t, "b.txt", "b\n")
	a := writeTemp(t, "a.txt", "a\n")

	for _, p := range []string{b, a} {
		if _, err := reg.Create(p, nil, document.KindFile); err != nil {
			t.Fatal(err)
		}
	}
	paths := reg.Paths()
	if len(paths) != 2 || paths[0] > paths[1] {
		t.Errorf("Paths = %v, want sorted", paths)
	}
}

func TestOpenDocumentsAndStats(t *testing.T) {
	reg := New(newFakeBackend())
	closedPath := writeTemp(t, "closed.txt", "x\n")
	openPath := writeTemp(t, "open.txt", "y\n")

	if _, err := reg.Create(closedPath, nil, document.KindFile); err != nil {
		t.Fatal(err)
	}
	openDoc, err := reg.Create(openPath, nil, document.KindFile)
	if err != nil {
		t.Fatal(err)
	}
	openDoc.ProcessOpen(buffer.NewBufferFromString("y\n"), false)

	if got := reg.OpenDocuments(); len(got) != 1 || got[0] != openDoc {
		t.Errorf("OpenDocuments = %d entries, want the open one", len(got))
	}
	stats := reg.GetStats()
	if stats.Tracked != 2 || stats.Open != 1 {
		t.Errorf("Stats = %+v, want Tracked=2 Open=1", stats)
	}
}

func TestDisposeAll(t *testing.T) {
	reg := New(newFakeBackend())
	var tracked int
	reg.OnTrack(func(*document.Document) { tracked++ })

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		path := writeTemp(t, name, "x\n")
		if _, err := reg.Create(path, nil, document.KindFile); err != nil {
			t.Fatal(err)
		}
	}
	if tracked != 3 {
		t.Errorf("track handler fired %d times, want 3", tracked)
	}

	reg.DisposeAll()
	if reg.Count() != 0 {
		t.Errorf("Count = %d, want 0 after DisposeAll", reg.Count())
	}
}
