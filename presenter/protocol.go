// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: presenter/protocol.go
// Summary: Terminal image protocol layer: capability picking, the kitty
//          graphics encoder (raw RGBA, chunked base64) and the halfblock
//          fallback encoder.

package presenter

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"pvf/backend"
)

// Protocol names the wire format of an encoded frame.
type Protocol uint8

const (
	Halfblocks Protocol = iota
	Kitty
)

func (p Protocol) String() string {
	if p == Kitty {
		return "kitty"
	}
	return "halfblocks"
}

// Capabilities describes the terminal the picker chooses a protocol for.
type Capabilities struct {
	Term          string
	ForceProtocol string
	CellW         int
	CellH         int
}

// Picker carries the chosen protocol plus cell geometry into encode calls.
type Picker struct {
	Protocol Protocol
	CellW    int
	CellH    int
}

// MaxRenderScale is the largest render scale the protocol benefits from:
// kitty transmits raw pixels so high-resolution rasters pay off, while
// halfblocks resolve two pixels per cell and saturate at 1.0.
func (p Picker) MaxRenderScale() float64 {
	if p.Protocol == Kitty {
		return 2.5
	}
	return 1.0
}

const (
	defaultCellW = 10
	defaultCellH = 20
)

// Pick chooses a protocol from the terminal capabilities. TERM containing
// "kitty" (or an explicit override) selects the kitty graphics protocol;
// everything else falls back to halfblocks, which any color terminal can
// draw.
func Pick(caps Capabilities) Picker {
	cellW, cellH := caps.CellW, caps.CellH
	if cellW <= 0 {
		cellW = defaultCellW
	}
	if cellH <= 0 {
		cellH = defaultCellH
	}
	picker := Picker{Protocol: Halfblocks, CellW: cellW, CellH: cellH}
	switch caps.ForceProtocol {
	case "kitty":
		picker.Protocol = Kitty
		return picker
	case "halfblocks":
		return picker
	}
	if strings.Contains(caps.Term, "kitty") || os.Getenv("KITTY_WINDOW_ID") != "" {
		picker.Protocol = Kitty
	}
	return picker
}

// DetectCapabilities probes the running terminal.
func DetectCapabilities(forceProtocol string, cellW, cellH int) Capabilities {
	caps := Capabilities{
		Term:          os.Getenv("TERM"),
		ForceProtocol: forceProtocol,
		CellW:         cellW,
		CellH:         cellH,
	}
	// Sanity check only: without a tty the halfblock fallback still works
	// for piped output in tests.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		caps.ForceProtocol = "halfblocks"
	}
	return caps
}

// HBCell is one halfblock cell: the upper pixel as foreground over the
// lower pixel as background under '▀'.
type HBCell struct {
	Fg tcell.Color
	Bg tcell.Color
}

// ProtocolFrame is an encoded terminal frame ready to draw. Kitty frames
// carry a prebuilt escape stream; halfblock frames carry a cell grid.
type ProtocolFrame struct {
	Protocol Protocol
	WCells   int
	HCells   int

	// Escape holds the kitty transmission (a=T, f=32, chunked base64).
	Escape []byte
	// ImageID is the kitty image id used by placement and delete.
	ImageID uint32

	// Cells holds the halfblock grid, row-major, WCells*HCells long.
	Cells []HBCell
}

// ByteLen approximates the frame's memory footprint for cache accounting.
func (f *ProtocolFrame) ByteLen() int {
	if f == nil {
		return 0
	}
	return len(f.Escape) + len(f.Cells)*8
}

// EncodeError reports a protocol encoder failure. Recoverable: the L2
// entry goes Failed and generation bumps re-attempt.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode frame: %v", e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }

// Surface is where encoded frames land. The app adapts the tcell screen
// (cells) and the raw tty (escape passthrough) behind it.
type Surface interface {
	SetCell(x, y int, ch rune, fg, bg tcell.Color)
	// WriteEscape writes a raw escape stream; used by pixel protocols
	// that bypass the cell grid.
	WriteEscape(seq []byte)
}

// Encoder turns an RGBA frame plus a cell area into a ProtocolFrame and
// later draws it. Implementations are safe for use from encode workers;
// Draw runs on the main task only.
type Encoder interface {
	Encode(frame *backend.RgbaFrame, area Area, picker Picker) (*ProtocolFrame, error)
	Draw(pf *ProtocolFrame, surface Surface, area Area)
}

// NewEncoder returns the encoder for the picked protocol.
func NewEncoder(p Picker) Encoder {
	if p.Protocol == Kitty {
		return &KittyEncoder{}
	}
	return &HalfblockEncoder{}
}

// kittyChunk is the raw byte count per transmission chunk before base64.
const kittyChunk = 3072

var nextKittyImageID atomic.Uint32

// KittyEncoder encodes frames with the kitty graphics protocol: raw RGBA
// (f=32) transmitted in base64 chunks under a persistent image id, placed
// with C=1 so the cursor never moves.
type KittyEncoder struct{}

func (e *KittyEncoder) Encode(frame *backend.RgbaFrame, area Area, picker Picker) (*ProtocolFrame, error) {
	scaled := downscaleToFit(frame, area.W*picker.CellW, area.H*picker.CellH)
	packed, err := packRGBA(scaled)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}

	id := nextKittyImageID.Add(1)
	var out strings.Builder
	first := true
	for len(packed) > 0 {
		n := kittyChunk
		if n > len(packed) {
			n = len(packed)
		}
		chunk := packed[:n]
		packed = packed[n:]
		more := 0
		if len(packed) > 0 {
			more = 1
		}
		if first {
			fmt.Fprintf(&out, "\x1b_Ga=T,f=32,s=%d,v=%d,q=2,i=%d,m=%d,C=1;", scaled.Width, scaled.Height, id, more)
			first = false
		} else {
			fmt.Fprintf(&out, "\x1b_Gm=%d,q=2;", more)
		}
		out.WriteString(base64.StdEncoding.EncodeToString(chunk))
		out.WriteString("\x1b\\")
	}

	return &ProtocolFrame{
		Protocol: Kitty,
		WCells:   area.W,
		HCells:   area.H,
		Escape:   []byte(out.String()),
		ImageID:  id,
	}, nil
}

// Draw transmits (idempotent under the same image id) and places the image
// at the area origin. Cursor position is saved and restored around the
// placement, the GraphicsOverlay way.
func (e *KittyEncoder) Draw(pf *ProtocolFrame, surface Surface, area Area) {
	var out strings.Builder
	out.WriteString("\x1b[s")
	// Free the previous page's placement and data at our z level before
	// transmitting the next frame.
	out.WriteString("\x1b_Ga=d,d=Z,z=1,q=2\x1b\\")
	fmt.Fprintf(&out, "\x1b[%d;%dH", area.Y+1, area.X+1)
	out.Write(pf.Escape)
	fmt.Fprintf(&out, "\x1b_Ga=p,i=%d,q=2,z=1,C=1\x1b\\", pf.ImageID)
	out.WriteString("\x1b[u")
	surface.WriteEscape([]byte(out.String()))
}

// HalfblockEncoder renders two vertically stacked pixels per cell with the
// upper-half-block glyph.
type HalfblockEncoder struct{}

func (e *HalfblockEncoder) Encode(frame *backend.RgbaFrame, area Area, picker Picker) (*ProtocolFrame, error) {
	if area.W <= 0 || area.H <= 0 {
		return nil, &EncodeError{Err: fmt.Errorf("empty draw area %dx%d", area.W, area.H)}
	}
	// One cell resolves one pixel column and two pixel rows.
	scaled := downscaleToFit(frame, area.W, area.H*2)
	wCells := scaled.Width
	hCells := (scaled.Height + 1) / 2

	cells := make([]HBCell, wCells*hCells)
	for cy := 0; cy < hCells; cy++ {
		for cx := 0; cx < wCells; cx++ {
			top := pixelAt(scaled, cx, cy*2)
			bottom := top
			if cy*2+1 < scaled.Height {
				bottom = pixelAt(scaled, cx, cy*2+1)
			}
			cells[cy*wCells+cx] = HBCell{Fg: top, Bg: bottom}
		}
	}
	return &ProtocolFrame{
		Protocol: Halfblocks,
		WCells:   wCells,
		HCells:   hCells,
		Cells:    cells,
	}, nil
}

func (e *HalfblockEncoder) Draw(pf *ProtocolFrame, surface Surface, area Area) {
	for cy := 0; cy < pf.HCells && cy < area.H; cy++ {
		for cx := 0; cx < pf.WCells && cx < area.W; cx++ {
			cell := pf.Cells[cy*pf.WCells+cx]
			surface.SetCell(area.X+cx, area.Y+cy, '▀', cell.Fg, cell.Bg)
		}
	}
}

func pixelAt(frame *backend.RgbaFrame, x, y int) tcell.Color {
	off := y*frame.Stride + x*4
	return tcell.NewRGBColor(
		int32(frame.Pixels[off]),
		int32(frame.Pixels[off+1]),
		int32(frame.Pixels[off+2]),
	)
}

// packRGBA tightens a possibly strided frame into width*4 rows, the layout
// kitty's f=32 transmission expects.
func packRGBA(frame *backend.RgbaFrame) ([]byte, error) {
	rowBytes := frame.Width * 4
	if frame.Stride < rowBytes {
		return nil, fmt.Errorf("frame stride %d below row size %d", frame.Stride, rowBytes)
	}
	if frame.Stride == rowBytes && len(frame.Pixels) == rowBytes*frame.Height {
		return frame.Pixels, nil
	}
	packed := make([]byte, rowBytes*frame.Height)
	for y := 0; y < frame.Height; y++ {
		src := frame.Pixels[y*frame.Stride:]
		if len(src) > rowBytes {
			src = src[:rowBytes]
		}
		copy(packed[y*rowBytes:(y+1)*rowBytes], src)
	}
	return packed, nil
}
