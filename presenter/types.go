// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: presenter/types.go
// Summary: Terminal-frame keys and geometry shared across the presenter.

package presenter

import "pvf/render"

// Viewport is the terminal area reserved for the image, in cells, together
// with the pixel size of one cell.
type Viewport struct {
	WCells int
	HCells int
	CellW  int
	CellH  int
}

// PxW returns the viewport width in pixels.
func (v Viewport) PxW() int { return v.WCells * v.CellW }

// PxH returns the viewport height in pixels.
func (v Viewport) PxH() int { return v.HCells * v.CellH }

// Pan is the pixel offset of the visible window into an oversized frame.
type Pan struct {
	X int
	Y int
}

// FrameKey identifies one encoded terminal frame. Two distinct viewports or
// pans produce distinct entries even for the same rasterized page.
type FrameKey struct {
	Page     render.PageKey
	Viewport Viewport
	Pan      Pan
}

// Area is a cell rectangle on the terminal surface.
type Area struct {
	X int
	Y int
	W int
	H int
}
