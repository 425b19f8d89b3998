// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: presenter/crop.go
// Summary: Cell-aligned crop/pan of an RGBA frame to the viewport. Pure;
//          the result is a stride-sharing view, never a pixel copy.

package presenter

import "pvf/backend"

// Crop returns the visible window of frame for the given viewport and pan.
// A frame that already fits the viewport is returned unchanged. Otherwise
// the window is anchored at pan, clamped into the frame, and its origin and
// size are snapped down to whole cells so partial cells never render.
func Crop(frame *backend.RgbaFrame, vp Viewport, pan Pan) *backend.RgbaFrame {
	vpW, vpH := vp.PxW(), vp.PxH()
	if frame.Width <= vpW && frame.Height <= vpH {
		return frame
	}

	outW := snapDown(min(frame.Width, vpW), vp.CellW)
	outH := snapDown(min(frame.Height, vpH), vp.CellH)

	x := snapDown(clamp(pan.X, 0, frame.Width-outW), vp.CellW)
	y := snapDown(clamp(pan.Y, 0, frame.Height-outH), vp.CellH)

	offset := y*frame.Stride + x*4
	end := offset + (outH-1)*frame.Stride + outW*4
	if end > len(frame.Pixels) {
		end = len(frame.Pixels)
	}
	return &backend.RgbaFrame{
		Width:  outW,
		Height: outH,
		Stride: frame.Stride,
		Pixels: frame.Pixels[offset:end],
	}
}

func snapDown(v, cell int) int {
	if cell <= 1 {
		return v
	}
	snapped := v - v%cell
	if snapped < cell {
		snapped = cell
	}
	if snapped > v {
		snapped = v
	}
	return snapped
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
