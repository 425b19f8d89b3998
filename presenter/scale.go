// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: presenter/scale.go
// Summary: Aspect-preserving CatmullRom downscale of RGBA frames to the
//          viewport pixel box, used by the encode workers.

package presenter

import (
	"image"

	"golang.org/x/image/draw"

	"pvf/backend"
)

// fitDownscale returns the target dimensions for frame inside maxW×maxH,
// or ok=false when no downscale is needed.
func fitDownscale(srcW, srcH, maxW, maxH int) (dstW, dstH int, ok bool) {
	if srcW <= 0 || srcH <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0, false
	}
	if srcW <= maxW && srcH <= maxH {
		return 0, 0, false
	}

	widthLimited := int64(maxW)*int64(srcH) <= int64(maxH)*int64(srcW)
	if widthLimited {
		dstW = maxW
		dstH = int(int64(srcH) * int64(dstW) / int64(srcW))
		if dstH < 1 {
			dstH = 1
		}
		if dstH > maxH {
			dstH = maxH
		}
	} else {
		dstH = maxH
		dstW = int(int64(srcW) * int64(dstH) / int64(srcH))
		if dstW < 1 {
			dstW = 1
		}
		if dstW > maxW {
			dstW = maxW
		}
	}
	return dstW, dstH, true
}

// downscaleToFit shrinks frame so it fits maxW×maxH, preserving aspect
// ratio. Frames that already fit pass through untouched.
func downscaleToFit(frame *backend.RgbaFrame, maxW, maxH int) *backend.RgbaFrame {
	dstW, dstH, ok := fitDownscale(frame.Width, frame.Height, maxW, maxH)
	if !ok {
		return frame
	}

	src := &image.RGBA{
		Pix:    frame.Pixels,
		Stride: frame.Stride,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)

	return &backend.RgbaFrame{
		Width:  dstW,
		Height: dstH,
		Stride: dst.Stride,
		Pixels: dst.Pix,
	}
}
