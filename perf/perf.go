// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: perf/perf.go
// Summary: Pipeline performance counters surfaced on the status line.

package perf

import "time"

// Stats holds the latest samples and running counters for the render
// pipeline. Owned by the main task; no locking.
type Stats struct {
	RenderMs  float64
	ConvertMs float64
	BlitMs    float64

	L1HitRate float64
	L2HitRate float64

	QueueDepth int
	Canceled   int
	Dropped    int

	RenderSamples  uint64
	ConvertSamples uint64
	BlitSamples    uint64
}

// RecordRender stores the latest rasterization sample.
func (s *Stats) RecordRender(elapsed time.Duration) {
	s.RenderMs = float64(elapsed) / float64(time.Millisecond)
	s.RenderSamples++
}

// RecordConvert stores the latest encode (convert) sample.
func (s *Stats) RecordConvert(elapsed time.Duration) {
	s.ConvertMs = float64(elapsed) / float64(time.Millisecond)
	s.ConvertSamples++
}

// RecordBlit stores the latest draw sample.
func (s *Stats) RecordBlit(elapsed time.Duration) {
	s.BlitMs = float64(elapsed) / float64(time.Millisecond)
	s.BlitSamples++
}

// SetL1HitRate clamps and stores the L1 cache hit rate.
func (s *Stats) SetL1HitRate(rate float64) { s.L1HitRate = clamp01(rate) }

// SetL2HitRate clamps and stores the L2 cache hit rate.
func (s *Stats) SetL2HitRate(rate float64) { s.L2HitRate = clamp01(rate) }

// SetQueueDepth stores the prefetch queue depth.
func (s *Stats) SetQueueDepth(depth int) { s.QueueDepth = depth }

// AddCanceled counts tasks dropped by generation checks.
func (s *Stats) AddCanceled(n int) { s.Canceled += n }

// AddDropped counts capacity rejections (queue full, cache over budget).
func (s *Stats) AddDropped(n int) { s.Dropped += n }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
