package render

import (
	"testing"

	"pvf/backend"
)

func solidFrame(w, h int) *backend.RgbaFrame {
	pixels := make([]byte, w*h*4)
	for i := range pixels {
		pixels[i] = 0xff
	}
	return &backend.RgbaFrame{Width: w, Height: h, Stride: w * 4, Pixels: pixels}
}

func TestCacheTracksHitRate(t *testing.T) {
	cache := NewPageCache(1024*1024, 4)
	key := NewPageKey(10, 1, 1.0)
	if got := cache.Put(key, solidFrame(10, 10)); got != Admit {
		t.Fatalf("put = %v, want Admit", got)
	}

	if _, ok := cache.Get(key); !ok {
		t.Fatal("expected hit for cached key")
	}
	if _, ok := cache.Get(NewPageKey(10, 2, 1.0)); ok {
		t.Fatal("expected miss for absent key")
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("hits/misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
	if cache.HitRate() != 0.5 {
		t.Fatalf("hit rate = %v, want 0.5", cache.HitRate())
	}
}

func TestCacheEvictsWhenOverBudget(t *testing.T) {
	cache := NewPageCache(10_000, 8)
	cache.Put(NewPageKey(1, 1, 1.0), solidFrame(40, 40))
	cache.Put(NewPageKey(1, 2, 1.0), solidFrame(40, 40))

	if cache.Len() >= 2 {
		t.Fatalf("len = %d, want eviction below 2", cache.Len())
	}
	if cache.Bytes() > 10_000 {
		t.Fatalf("bytes = %d over budget", cache.Bytes())
	}
	if cache.Stats().Evictions == 0 {
		t.Fatal("expected an eviction to be counted")
	}
}

func TestCacheReinsertUpdatesMemoryWithoutDoubleCounting(t *testing.T) {
	cache := NewPageCache(1024*1024, 4)
	key := NewPageKey(1, 0, 1.0)
	cache.Put(key, solidFrame(8, 8))
	first := cache.Bytes()

	if got := cache.Put(key, solidFrame(10, 10)); got != Replace {
		t.Fatalf("put = %v, want Replace", got)
	}
	if cache.Len() != 1 {
		t.Fatalf("len = %d, want 1", cache.Len())
	}
	if cache.Bytes() <= first {
		t.Fatalf("bytes = %d, want growth past %d", cache.Bytes(), first)
	}
	if cache.Bytes() != solidFrame(10, 10).ByteLen() {
		t.Fatalf("bytes = %d, want exactly the new frame size", cache.Bytes())
	}
}

func TestCacheRejectsSingleOversizeFrame(t *testing.T) {
	cache := NewPageCache(100, 4)
	kept := NewPageKey(1, 0, 1.0)
	cache.Put(kept, solidFrame(4, 4))

	if got := cache.Put(NewPageKey(1, 1, 1.0), solidFrame(8, 8)); got != Rejected {
		t.Fatalf("put = %v, want Rejected for oversize frame", got)
	}
	if !cache.Contains(kept) {
		t.Fatal("oversize reject must not disturb existing entries")
	}
	if cache.Stats().Rejected != 1 {
		t.Fatalf("rejected counter = %d, want 1", cache.Stats().Rejected)
	}
}

func TestContainsDoesNotTouchRecency(t *testing.T) {
	cache := NewPageCache(solidFrame(8, 8).ByteLen()*2, 2)
	a := NewPageKey(1, 0, 1.0)
	b := NewPageKey(1, 1, 1.0)
	cache.Put(a, solidFrame(8, 8))
	cache.Put(b, solidFrame(8, 8))

	// Contains(a) must not promote a; the next insert evicts it as LRU.
	if !cache.Contains(a) {
		t.Fatal("expected a cached")
	}
	cache.Put(NewPageKey(1, 2, 1.0), solidFrame(8, 8))
	if cache.Contains(a) {
		t.Fatal("a should have been evicted as least recently used")
	}
	if !cache.Contains(b) {
		t.Fatal("b should have survived")
	}
}

func TestRemoveDocDropsOnlyThatDocument(t *testing.T) {
	cache := NewPageCache(1024*1024, 8)
	a := NewPageKey(10, 0, 1.0)
	b := NewPageKey(10, 1, 1.0)
	c := NewPageKey(11, 0, 1.0)
	cache.Put(a, solidFrame(6, 6))
	cache.Put(b, solidFrame(6, 6))
	cache.Put(c, solidFrame(6, 6))

	cache.RemoveDoc(10)

	if cache.Contains(a) || cache.Contains(b) {
		t.Fatal("doc 10 entries should be gone")
	}
	if !cache.Contains(c) {
		t.Fatal("doc 11 entry should survive")
	}
	if cache.Stats().Evictions != 2 {
		t.Fatalf("evictions = %d, want 2", cache.Stats().Evictions)
	}
}
