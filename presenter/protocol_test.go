package presenter

import (
	"bytes"
	"testing"
)

func TestPickPrefersKittyTerm(t *testing.T) {
	p := Pick(Capabilities{Term: "xterm-kitty", CellW: 8, CellH: 16})
	if p.Protocol != Kitty {
		t.Fatalf("protocol = %v, want Kitty", p.Protocol)
	}
	if p.CellW != 8 || p.CellH != 16 {
		t.Fatalf("cell size = %dx%d, want 8x16", p.CellW, p.CellH)
	}
}

func TestPickFallsBackToHalfblocks(t *testing.T) {
	p := Pick(Capabilities{Term: "xterm-256color"})
	if p.Protocol != Halfblocks {
		t.Fatalf("protocol = %v, want Halfblocks", p.Protocol)
	}
	if p.CellW != defaultCellW || p.CellH != defaultCellH {
		t.Fatalf("cell size = %dx%d, want defaults", p.CellW, p.CellH)
	}
}

func TestPickHonorsForcedProtocol(t *testing.T) {
	p := Pick(Capabilities{Term: "xterm-kitty", ForceProtocol: "halfblocks"})
	if p.Protocol != Halfblocks {
		t.Fatalf("protocol = %v, want forced Halfblocks", p.Protocol)
	}
}

func TestMaxRenderScalePerProtocol(t *testing.T) {
	if got := (Picker{Protocol: Kitty}).MaxRenderScale(); got != 2.5 {
		t.Fatalf("kitty max scale = %v, want 2.5", got)
	}
	if got := (Picker{Protocol: Halfblocks}).MaxRenderScale(); got != 1.0 {
		t.Fatalf("halfblock max scale = %v, want 1.0", got)
	}
}

func TestKittyEncodeFramesTransmission(t *testing.T) {
	enc := &KittyEncoder{}
	picker := Picker{Protocol: Kitty, CellW: 10, CellH: 20}
	frame := grayFrame(20, 20)

	pf, err := enc.Encode(frame, Area{W: 10, H: 5}, picker)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(pf.Escape, []byte("\x1b_Ga=T,f=32,")) {
		t.Fatalf("escape stream does not start a raw transmission: %q", pf.Escape[:20])
	}
	if !bytes.HasSuffix(pf.Escape, []byte("\x1b\\")) {
		t.Fatal("escape stream must be terminated")
	}
	if pf.ImageID == 0 {
		t.Fatal("image id must be assigned")
	}
	if pf.ByteLen() == 0 {
		t.Fatal("encoded frame should account bytes")
	}
}

func TestKittyEncodeChunksLargePayloads(t *testing.T) {
	enc := &KittyEncoder{}
	picker := Picker{Protocol: Kitty, CellW: 10, CellH: 20}
	// 100x100 RGBA = 40000 raw bytes, well past one chunk.
	frame := grayFrame(100, 100)

	pf, err := enc.Encode(frame, Area{W: 10, H: 5}, picker)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Contains(pf.Escape, []byte("m=1")) {
		t.Fatal("large transmissions must be split into continued chunks")
	}
}

func TestHalfblockEncodeSamplesTopAndBottomPixels(t *testing.T) {
	enc := &HalfblockEncoder{}
	picker := Picker{Protocol: Halfblocks, CellW: 10, CellH: 20}

	// 2x2: red over blue in both columns.
	frame := grayFrame(2, 2)
	copy(frame.Pixels[0:], []byte{255, 0, 0, 255, 255, 0, 0, 255})
	copy(frame.Pixels[frame.Stride:], []byte{0, 0, 255, 255, 0, 0, 255, 255})

	pf, err := enc.Encode(frame, Area{W: 10, H: 5}, picker)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if pf.WCells != 2 || pf.HCells != 1 {
		t.Fatalf("grid = %dx%d, want 2x1", pf.WCells, pf.HCells)
	}
	r, g, b := pf.Cells[0].Fg.RGB()
	if r != 255 || g != 0 || b != 0 {
		t.Fatalf("fg = %d,%d,%d, want red from the top pixel", r, g, b)
	}
	r, g, b = pf.Cells[0].Bg.RGB()
	if r != 0 || g != 0 || b != 255 {
		t.Fatalf("bg = %d,%d,%d, want blue from the bottom pixel", r, g, b)
	}
}

func TestHalfblockDrawClipsToArea(t *testing.T) {
	enc := &HalfblockEncoder{}
	pf := &ProtocolFrame{
		Protocol: Halfblocks,
		WCells:   4,
		HCells:   4,
		Cells:    make([]HBCell, 16),
	}
	surface := &fakeSurface{}
	enc.Draw(pf, surface, Area{W: 2, H: 2})
	if surface.cells != 4 {
		t.Fatalf("cells drawn = %d, want clipped 4", surface.cells)
	}
}
