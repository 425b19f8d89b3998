// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: presenter/encode.go
// Summary: Encode worker pool turning cropped RGBA frames into terminal
//          protocol frames, with stale-generation discard ahead of work.

package presenter

import (
	"time"

	"pvf/backend"
	"pvf/render"
)

// EncodeRequest is one unit of encode work.
type EncodeRequest struct {
	Key        FrameKey
	Frame      *backend.RgbaFrame
	Area       Area
	Picker     Picker
	Generation uint64
}

// EncodeEventKind tags events on the encode result channel.
type EncodeEventKind uint8

const (
	// EncodeClaimed: a worker dequeued the request; the L2 entry moves
	// Pending → Encoding.
	EncodeClaimed EncodeEventKind = iota
	// EncodeCompleted: the encode finished, successfully or not.
	EncodeCompleted
	// EncodeCanceledStale: the request was discarded before encoding
	// because navigation already moved past its generation.
	EncodeCanceledStale
)

// EncodeEvent is posted on the pool's event channel in per-worker FIFO
// order.
type EncodeEvent struct {
	Kind       EncodeEventKind
	Key        FrameKey
	Generation uint64
	Frame      *ProtocolFrame
	Err        error
	Elapsed    time.Duration
}

// EncodePool runs E encode workers over a single bounded request queue.
// Requests are borrowed read-only; encoded frames are moved into the L2
// cache by the ingestion path on the main task.
type EncodePool struct {
	requests chan EncodeRequest
	events   chan EncodeEvent
	gen      *render.GenerationCounter
	enc      Encoder
	workers  int
	done     chan struct{}
}

// NewEncodePool starts workers goroutines sharing enc. Encoders must be
// safe for concurrent Encode calls.
func NewEncodePool(workers int, enc Encoder, gen *render.GenerationCounter, queueDepth int) *EncodePool {
	if workers < 1 {
		workers = 1
	}
	if queueDepth < workers {
		queueDepth = workers
	}
	p := &EncodePool{
		requests: make(chan EncodeRequest, queueDepth),
		events:   make(chan EncodeEvent, queueDepth*2),
		gen:      gen,
		enc:      enc,
		workers:  workers,
		done:     make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.workerMain()
	}
	return p
}

// TrySubmit hands a request to the pool without blocking. False means the
// queue is full; the caller counts a capacity drop.
func (p *EncodePool) TrySubmit(req EncodeRequest) bool {
	select {
	case p.requests <- req:
		return true
	default:
		return false
	}
}

// Events is the bounded result channel, drained by the main task each loop
// iteration.
func (p *EncodePool) Events() <-chan EncodeEvent { return p.events }

// Close stops accepting requests and lets workers wind down.
func (p *EncodePool) Close() {
	close(p.done)
	close(p.requests)
}

func (p *EncodePool) workerMain() {
	for req := range p.requests {
		// Primary defense against falling behind rapid navigation:
		// stale requests never reach the encoder. The presenter
		// re-submits the current page at the fresh generation on the
		// next redraw.
		if req.Generation < p.gen.Current() {
			p.post(EncodeEvent{Kind: EncodeCanceledStale, Key: req.Key, Generation: req.Generation})
			continue
		}

		p.post(EncodeEvent{Kind: EncodeClaimed, Key: req.Key, Generation: req.Generation})

		started := time.Now()
		frame, err := p.enc.Encode(req.Frame, req.Area, req.Picker)
		p.post(EncodeEvent{
			Kind:       EncodeCompleted,
			Key:        req.Key,
			Generation: req.Generation,
			Frame:      frame,
			Err:        err,
			Elapsed:    time.Since(started),
		})
	}
}

func (p *EncodePool) post(ev EncodeEvent) {
	select {
	case p.events <- ev:
	case <-p.done:
	}
}
