// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: presenter/presenter.go
// Summary: Request/resolve layer over the two caches. Pure dispatch: draws
//          Ready frames, schedules the missing pieces, never blocks.

package presenter

import (
	"time"

	"pvf/backend"
	"pvf/perf"
	"pvf/render"
)

// RenderRequester is how the presenter asks for a missing L1 frame. The
// app routes it into the prefetch queue as CriticalCurrent.
type RenderRequester func(key render.PageKey, gen uint64)

// Presenter resolves page/viewport/pan requests against L1 and L2 and
// reports whether a frame was drawn. It runs entirely on the main task.
type Presenter struct {
	l1     *render.PageCache
	l2     *FrameCache
	pool   *EncodePool
	enc    Encoder
	picker Picker
	stats  *perf.Stats

	requestRender RenderRequester
	lastFailure   error
}

// New wires the presenter over the caches and the encode pool.
func New(l1 *render.PageCache, l2 *FrameCache, pool *EncodePool, enc Encoder, picker Picker, stats *perf.Stats, requestRender RenderRequester) *Presenter {
	return &Presenter{
		l1:            l1,
		l2:            l2,
		pool:          pool,
		enc:           enc,
		picker:        picker,
		stats:         stats,
		requestRender: requestRender,
	}
}

// Picker returns the protocol picker in use.
func (p *Presenter) Picker() Picker { return p.picker }

// Present draws the frame for key under the given viewport and pan if L2
// holds it Ready, and otherwise schedules whatever stage is missing.
// Returns true only when pixels hit the surface; false means the caller
// shows a loading (or failure) indicator and retries on the next pass.
func (p *Presenter) Present(key render.PageKey, vp Viewport, pan Pan, gen uint64, surface Surface, area Area) bool {
	fk := FrameKey{Page: key, Viewport: vp, Pan: pan}

	if frame, ok := p.l2.GetReady(fk); ok {
		started := time.Now()
		p.enc.Draw(frame, surface, area)
		p.stats.RecordBlit(time.Since(started))
		p.syncRates()
		return true
	}

	state, stateGen := p.l2.StateAt(fk)
	switch state {
	case StateFailed:
		// A failure at the current generation is surfaced; an older one
		// is re-attempted below (generation bumps retry automatically).
		if stateGen >= gen {
			p.lastFailure = p.l2.Failure(fk)
			p.syncRates()
			return false
		}
	case StatePending, StateEncoding:
		if stateGen >= gen {
			p.syncRates()
			return false
		}
	}

	raw, ok := p.l1.Get(key)
	if !ok {
		p.requestRender(key, gen)
		p.syncRates()
		return false
	}

	p.submitEncode(fk, raw, gen, area)
	p.syncRates()
	return false
}

// PrefetchEncode encodes ahead for a page already resident in L1, so the
// first visit finds L2 Ready. A miss in L1 is ignored — prefetch is best
// effort.
func (p *Presenter) PrefetchEncode(key render.PageKey, vp Viewport, pan Pan, gen uint64, area Area) {
	fk := FrameKey{Page: key, Viewport: vp, Pan: pan}
	if p.l2.State(fk) != StateAbsent {
		return
	}
	raw, ok := p.l1.Get(key)
	if !ok {
		return
	}
	p.submitEncode(fk, raw, gen, area)
}

// HandleEvent applies one encode pool event to the L2 state machine.
func (p *Presenter) HandleEvent(ev EncodeEvent) {
	switch ev.Kind {
	case EncodeClaimed:
		p.l2.Claim(ev.Key, ev.Generation)
	case EncodeCanceledStale:
		p.l2.CancelInFlight(ev.Key, ev.Generation)
		p.stats.AddCanceled(1)
	case EncodeCompleted:
		if p.l2.Ingest(ev.Key, ev.Generation, ev.Frame, ev.Err) {
			p.stats.RecordConvert(ev.Elapsed)
		}
	}
	p.syncRates()
}

// HasPendingWork reports whether encodes are still in flight.
func (p *Presenter) HasPendingWork() bool { return p.l2.HasPendingWork() }

// LastFailure returns the most recent surfaced encode failure.
func (p *Presenter) LastFailure() error { return p.lastFailure }

// Cache exposes the L2 cache for stats reporting.
func (p *Presenter) Cache() *FrameCache { return p.l2 }

func (p *Presenter) submitEncode(fk FrameKey, raw *backend.RgbaFrame, gen uint64, area Area) {
	cropped := Crop(raw, fk.Viewport, fk.Pan)
	state := p.l2.Request(fk, gen, func() bool {
		return p.pool.TrySubmit(EncodeRequest{
			Key:        fk,
			Frame:      cropped,
			Area:       area,
			Picker:     p.picker,
			Generation: gen,
		})
	})
	if state == StateAbsent {
		p.stats.AddDropped(1)
	}
}

func (p *Presenter) syncRates() {
	p.stats.SetL1HitRate(p.l1.HitRate())
	p.stats.SetL2HitRate(p.l2.HitRate())
}
