// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: presenter/l2cache.go
// Summary: L2 cache of encoded terminal frames with the Pending → Encoding
//          → Ready | Failed state machine and generation-stamped orphaning.

package presenter

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	// DefaultL2Budget bounds resident encoded-frame bytes.
	DefaultL2Budget = 64 * 1024 * 1024
	// DefaultL2MaxEntries caps the entry count.
	DefaultL2MaxEntries = 96
	// DefaultPendingMax caps in-flight encode entries (the Q_ENC bound).
	DefaultPendingMax = 8
)

// EntryState of an L2 entry. Transitions are monotonic within a
// generation: Pending → Encoding → Ready | Failed.
type EntryState uint8

const (
	StateAbsent EntryState = iota
	StatePending
	StateEncoding
	StateReady
	StateFailed
)

func (s EntryState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateEncoding:
		return "encoding"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "absent"
	}
}

type l2entry struct {
	state EntryState
	gen   uint64
	frame *ProtocolFrame
	err   error
}

// FrameCacheStats is a counter snapshot.
type FrameCacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Orphaned  uint64
	Dropped   uint64
	Bytes     int
	Pending   int
	Entries   int
}

// FrameCache maps FrameKey to encode state and, when Ready, the encoded
// frame. Only Ready frames count against the byte budget; Pending and
// Encoding entries are tracked by a separate, smaller in-flight cap and
// are never evicted for space — they are orphaned by generation instead.
// Owned by the main task.
type FrameCache struct {
	lru        *simplelru.LRU[FrameKey, *l2entry]
	budget     int
	maxEntries int
	pendingMax int
	bytes      int
	pending    int

	hits      uint64
	misses    uint64
	evictions uint64
	orphaned  uint64
	dropped   uint64
}

// NewFrameCache builds a cache; non-positive arguments fall back to the
// defaults.
func NewFrameCache(budgetBytes, maxEntries, pendingMax int) *FrameCache {
	if budgetBytes <= 0 {
		budgetBytes = DefaultL2Budget
	}
	if maxEntries <= 0 {
		maxEntries = DefaultL2MaxEntries
	}
	if pendingMax <= 0 {
		pendingMax = DefaultPendingMax
	}
	lru, err := simplelru.NewLRU[FrameKey, *l2entry](maxEntries, nil)
	if err != nil {
		panic("presenter: l2 cache size must be positive: " + err.Error())
	}
	return &FrameCache{
		lru:        lru,
		budget:     budgetBytes,
		maxEntries: maxEntries,
		pendingMax: pendingMax,
	}
}

// Request resolves the state under key for generation gen, submitting an
// encode through enqueue when one is needed. enqueue reports whether the
// request was accepted; a refused or capacity-capped submission leaves no
// entry behind so a later request retries.
func (c *FrameCache) Request(key FrameKey, gen uint64, enqueue func() bool) EntryState {
	if entry, ok := c.lru.Get(key); ok {
		switch {
		case entry.gen == gen:
			return entry.state
		case entry.gen < gen:
			return c.resubmit(key, entry, gen, enqueue)
		default:
			// The caller's generation is itself stale; report what is
			// there and let the next bump sort it out.
			return entry.state
		}
	}

	if !c.admitPending() {
		return StateAbsent
	}
	c.lru.Add(key, &l2entry{state: StatePending, gen: gen})
	c.pending++
	if !enqueue() {
		c.lru.Remove(key)
		c.pending--
		c.dropped++
		return StateAbsent
	}
	return StatePending
}

// resubmit refreshes a stale entry to gen. An older in-flight encode is
// orphaned: its result will arrive carrying the old generation and be
// discarded by Ingest.
func (c *FrameCache) resubmit(key FrameKey, entry *l2entry, gen uint64, enqueue func() bool) EntryState {
	inFlight := entry.state == StatePending || entry.state == StateEncoding
	if !inFlight {
		if c.pending >= c.pendingMax {
			c.dropped++
			return entry.state
		}
		c.pending++
	} else {
		c.orphaned++
	}

	if entry.state == StateReady {
		c.bytes -= entry.frame.ByteLen()
	}
	entry.state = StatePending
	entry.gen = gen
	entry.frame = nil
	entry.err = nil

	if !enqueue() {
		c.lru.Remove(key)
		c.pending--
		c.dropped++
		return StateAbsent
	}
	return StatePending
}

// Claim marks a Pending entry Encoding once a worker picks it up. A claim
// that no longer matches generation or state belongs to orphaned work.
func (c *FrameCache) Claim(key FrameKey, gen uint64) bool {
	entry, ok := c.lru.Peek(key)
	if !ok || entry.gen != gen || entry.state != StatePending {
		return false
	}
	entry.state = StateEncoding
	return true
}

// Ingest lands an encode result. Results for absent entries or mismatched
// generations are discarded — ingestion never creates an entry.
func (c *FrameCache) Ingest(key FrameKey, gen uint64, frame *ProtocolFrame, encodeErr error) bool {
	entry, ok := c.lru.Peek(key)
	if !ok || entry.gen != gen {
		c.orphaned++
		return false
	}
	if entry.state != StatePending && entry.state != StateEncoding {
		// Duplicate arrival; the first one already settled the entry.
		return false
	}

	c.pending--
	if encodeErr != nil {
		entry.state = StateFailed
		entry.err = encodeErr
		entry.frame = nil
		return true
	}
	entry.state = StateReady
	entry.frame = frame
	entry.err = nil
	c.bytes += frame.ByteLen()
	c.evictWhileOver()
	return true
}

// CancelInFlight removes an entry whose encode was dropped before running
// (stale-generation discard in the encode pool).
func (c *FrameCache) CancelInFlight(key FrameKey, gen uint64) {
	entry, ok := c.lru.Peek(key)
	if !ok || entry.gen != gen {
		return
	}
	if entry.state != StatePending && entry.state != StateEncoding {
		return
	}
	c.lru.Remove(key)
	c.pending--
	c.orphaned++
}

// GetReady returns the encoded frame when the entry is Ready, updating
// recency and hit/miss counters.
func (c *FrameCache) GetReady(key FrameKey) (*ProtocolFrame, bool) {
	entry, ok := c.lru.Get(key)
	if ok && entry.state == StateReady {
		c.hits++
		return entry.frame, true
	}
	c.misses++
	return nil, false
}

// State peeks at the entry state without counters or recency.
func (c *FrameCache) State(key FrameKey) EntryState {
	state, _ := c.StateAt(key)
	return state
}

// StateAt peeks at the entry state and the generation it was stamped with.
func (c *FrameCache) StateAt(key FrameKey) (EntryState, uint64) {
	entry, ok := c.lru.Peek(key)
	if !ok {
		return StateAbsent, 0
	}
	return entry.state, entry.gen
}

// Failure returns the failure behind a Failed entry.
func (c *FrameCache) Failure(key FrameKey) error {
	entry, ok := c.lru.Peek(key)
	if !ok || entry.state != StateFailed {
		return nil
	}
	return entry.err
}

// HasPendingWork reports whether any encode is still in flight.
func (c *FrameCache) HasPendingWork() bool { return c.pending > 0 }

// Len returns the entry count.
func (c *FrameCache) Len() int { return c.lru.Len() }

// Bytes returns Ready-frame resident bytes.
func (c *FrameCache) Bytes() int { return c.bytes }

// HitRate returns hits/(hits+misses), or 0 before any lookup.
func (c *FrameCache) HitRate() float64 {
	lookups := c.hits + c.misses
	if lookups == 0 {
		return 0
	}
	return float64(c.hits) / float64(lookups)
}

// Stats returns a counter snapshot.
func (c *FrameCache) Stats() FrameCacheStats {
	return FrameCacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Orphaned:  c.orphaned,
		Dropped:   c.dropped,
		Bytes:     c.bytes,
		Pending:   c.pending,
		Entries:   c.lru.Len(),
	}
}

// admitPending makes room for one more in-flight entry: the pending cap
// must hold and, at the entry cap, a settled entry must be evictable.
func (c *FrameCache) admitPending() bool {
	if c.pending >= c.pendingMax {
		c.dropped++
		return false
	}
	for c.lru.Len() >= c.maxEntries {
		if !c.evictOneSettled() {
			c.dropped++
			return false
		}
	}
	return true
}

// evictWhileOver drops least-recently-used settled entries until the byte
// budget holds. In-flight entries are skipped so their work is not lost.
func (c *FrameCache) evictWhileOver() {
	for c.bytes > c.budget {
		if !c.evictOneSettled() {
			return
		}
	}
}

func (c *FrameCache) evictOneSettled() bool {
	for _, key := range c.lru.Keys() {
		entry, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if entry.state == StateReady || entry.state == StateFailed {
			if entry.state == StateReady {
				c.bytes -= entry.frame.ByteLen()
			}
			c.lru.Remove(key)
			c.evictions++
			return true
		}
	}
	return false
}
