// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: render/cache.go
// Summary: L1 cache of rasterized RGBA pages with LRU recency and a hard
//          byte budget.

package render

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"pvf/backend"
)

const (
	// DefaultL1Budget bounds resident raster memory.
	DefaultL1Budget = 512 * 1024 * 1024
	// DefaultL1MaxEntries caps the entry count independently of bytes.
	DefaultL1MaxEntries = 128
)

// PutResult reports how an insert was absorbed.
type PutResult uint8

const (
	// Admit: the frame was stored as a new entry.
	Admit PutResult = iota
	// Replace: an entry under the same key was superseded.
	Replace
	// Rejected: the frame alone exceeds the byte budget and was not
	// cached. The caller may still hand the frame downstream.
	Rejected
)

// CacheStats is a point-in-time counter snapshot.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Rejected  uint64
	Bytes     int
	Entries   int
}

// PageCache maps PageKey to immutable RGBA frames. LRU on access with a
// hard byte budget: admission evicts least-recently-used entries until the
// new frame fits. Not safe for concurrent use; the main task owns it.
type PageCache struct {
	lru        *simplelru.LRU[PageKey, *backend.RgbaFrame]
	budget     int
	maxEntries int
	bytes      int
	hits       uint64
	misses     uint64
	evictions  uint64
	rejected   uint64
}

// NewPageCache builds a cache with the given byte budget and entry cap.
// Non-positive arguments fall back to the defaults.
func NewPageCache(budgetBytes int, maxEntries int) *PageCache {
	if budgetBytes <= 0 {
		budgetBytes = DefaultL1Budget
	}
	if maxEntries <= 0 {
		maxEntries = DefaultL1MaxEntries
	}
	lru, err := simplelru.NewLRU[PageKey, *backend.RgbaFrame](maxEntries, nil)
	if err != nil {
		panic("render: l1 cache size must be positive: " + err.Error())
	}
	return &PageCache{lru: lru, budget: budgetBytes, maxEntries: maxEntries}
}

// Get returns the frame under k, updating recency and the hit/miss
// counters.
func (c *PageCache) Get(k PageKey) (*backend.RgbaFrame, bool) {
	frame, ok := c.lru.Get(k)
	if ok {
		c.hits++
		return frame, true
	}
	c.misses++
	return nil, false
}

// Contains reports presence without touching recency.
func (c *PageCache) Contains(k PageKey) bool {
	return c.lru.Contains(k)
}

// Put stores frame under k, evicting least-recently-used entries until the
// byte budget holds. A frame that alone exceeds the budget is Rejected.
func (c *PageCache) Put(k PageKey, frame *backend.RgbaFrame) PutResult {
	size := frame.ByteLen()
	if size > c.budget {
		c.rejected++
		return Rejected
	}

	result := Admit
	if prev, ok := c.lru.Peek(k); ok {
		c.bytes -= prev.ByteLen()
		c.lru.Remove(k)
		result = Replace
	}

	for c.lru.Len() >= c.maxEntries || c.bytes+size > c.budget {
		if !c.evictOldest() {
			break
		}
	}

	c.bytes += size
	c.lru.Add(k, frame)
	return result
}

// Remove drops the entry under k if present.
func (c *PageCache) Remove(k PageKey) {
	if prev, ok := c.lru.Peek(k); ok {
		c.bytes -= prev.ByteLen()
		c.lru.Remove(k)
		c.evictions++
	}
}

// RemoveDoc drops every entry belonging to doc.
func (c *PageCache) RemoveDoc(doc backend.DocID) {
	for _, k := range c.lru.Keys() {
		if k.Doc == doc {
			c.Remove(k)
		}
	}
}

// Len returns the entry count.
func (c *PageCache) Len() int { return c.lru.Len() }

// Bytes returns current resident bytes.
func (c *PageCache) Bytes() int { return c.bytes }

// Stats returns a counter snapshot.
func (c *PageCache) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Rejected:  c.rejected,
		Bytes:     c.bytes,
		Entries:   c.lru.Len(),
	}
}

// HitRate returns hits/(hits+misses), or 0 before any lookup.
func (c *PageCache) HitRate() float64 {
	lookups := c.hits + c.misses
	if lookups == 0 {
		return 0
	}
	return float64(c.hits) / float64(lookups)
}

func (c *PageCache) evictOldest() bool {
	_, frame, ok := c.lru.RemoveOldest()
	if !ok {
		return false
	}
	c.bytes -= frame.ByteLen()
	c.evictions++
	return true
}
