package backend

import "testing"

func TestHashPathIsStable(t *testing.T) {
	a := HashPath("/docs/report.pdf")
	b := HashPath("/docs/report.pdf")
	if a != b {
		t.Fatal("equal paths must hash to equal doc ids")
	}
}

func TestHashPathCleansSpellingVariants(t *testing.T) {
	a := HashPath("/docs/report.pdf")
	b := HashPath("/docs//report.pdf")
	c := HashPath("/docs/./report.pdf")
	if a != b || a != c {
		t.Fatal("path spelling variants must agree on the doc id")
	}
}

func TestHashPathDistinguishesDocuments(t *testing.T) {
	if HashPath("/docs/a.pdf") == HashPath("/docs/b.pdf") {
		t.Fatal("different paths should not collide in a 64-bit hash")
	}
}

func TestRgbaFrameByteLen(t *testing.T) {
	frame := &RgbaFrame{Width: 4, Height: 4, Stride: 16, Pixels: make([]byte, 16*4)}
	if frame.ByteLen() != 64 {
		t.Fatalf("byte len = %d, want stride*height = 64", frame.ByteLen())
	}
	var nilFrame *RgbaFrame
	if nilFrame.ByteLen() != 0 {
		t.Fatal("nil frame must report zero bytes")
	}
}
