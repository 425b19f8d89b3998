package search

import (
	"testing"
	"time"

	"pvf/backend"
)

// textBackend serves scripted page text.
type textBackend struct {
	pages [][]string
}

func (b *textBackend) Path() string         { return "fake.pdf" }
func (b *textBackend) DocID() backend.DocID { return 1 }
func (b *textBackend) PageCount() int       { return len(b.pages) }
func (b *textBackend) Close() error         { return nil }

func (b *textBackend) RenderPage(page int, scaleMilli uint32) (*backend.RgbaFrame, error) {
	return &backend.RgbaFrame{Width: 1, Height: 1, Stride: 4, Pixels: make([]byte, 4)}, nil
}

func (b *textBackend) ExtractText(page int) ([]string, error) {
	return b.pages[page], nil
}

func collectUntilDone(t *testing.T, e *Engine, gen uint64) []int {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-e.Events():
			if ev.Generation != gen {
				continue
			}
			switch ev.Kind {
			case EventCompleted:
				return ev.Hits
			case EventFailed:
				t.Fatalf("search failed: %v", ev.Err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for search completion")
		}
	}
}

func TestEngineFindsMatchingPages(t *testing.T) {
	b := &textBackend{pages: [][]string{
		{"the quick brown fox"},
		{"jumped over"},
		{"the lazy Fox terrier"},
	}}
	e := NewEngine(func() (backend.Backend, error) { return b, nil }, nil)
	defer e.Close()

	gen := e.Start("fox")
	hits := collectUntilDone(t, e, gen)
	if len(hits) != 2 || hits[0] != 0 || hits[1] != 2 {
		t.Fatalf("hits = %v, want case-insensitive [0 2]", hits)
	}
}

func TestEngineIndexesPagesWhileScanning(t *testing.T) {
	ix, err := NewIndex()
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer ix.Close()

	b := &textBackend{pages: [][]string{{"alpha"}, {"beta"}}}
	e := NewEngine(func() (backend.Backend, error) { return b, nil }, ix)
	defer e.Close()

	gen := e.Start("alpha")
	collectUntilDone(t, e, gen)

	if !ix.Indexed(0) || !ix.Indexed(1) {
		t.Fatal("the scan should have indexed every page")
	}
}

// A mid-word query must return the same hits whether a page's text comes
// from a fresh extraction or from the index a previous scan filled.
func TestEngineSubstringHitsStableAcrossRepeatSearches(t *testing.T) {
	ix, err := NewIndex()
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer ix.Close()

	b := &textBackend{pages: [][]string{
		{"a guide to hacking terminals"},
		{"nothing of note"},
	}}
	e := NewEngine(func() (backend.Backend, error) { return b, nil }, ix)
	defer e.Close()

	// First search extracts and indexes every page; "ckin" only matches
	// as a substring of "hacking", never as a whole token.
	gen := e.Start("ckin")
	first := collectUntilDone(t, e, gen)
	if len(first) != 1 || first[0] != 0 {
		t.Fatalf("first pass hits = %v, want [0]", first)
	}

	// Second search takes the indexed fast path and must agree.
	gen = e.Start("ckin")
	second := collectUntilDone(t, e, gen)
	if len(second) != 1 || second[0] != 0 {
		t.Fatalf("indexed pass hits = %v, want the same [0]", second)
	}
}

func TestEngineNewerQueryWinsOverOlder(t *testing.T) {
	pages := make([][]string, 50)
	for i := range pages {
		pages[i] = []string{"filler text"}
	}
	b := &textBackend{pages: pages}
	e := NewEngine(func() (backend.Backend, error) { return b, nil }, nil)
	defer e.Close()

	e.Start("first")
	gen := e.Start("filler")

	hits := collectUntilDone(t, e, gen)
	if len(hits) != 50 {
		t.Fatalf("hits = %d pages, want all 50 for the winning query", len(hits))
	}
}
