// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: backend/poppler.go
// Summary: PdfBackend implementation over the pure-Go poppler port.
// Usage: Default backend; one handle per render worker via NewLoader.

package backend

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"

	"github.com/novvoo/go-poppler/pkg/pdf"
)

const baseDPI = 72.0

// PopplerBackend renders pages through github.com/novvoo/go-poppler. The
// underlying document is not safe for concurrent use, so callers hold one
// backend per goroutine.
type PopplerBackend struct {
	path  string
	docID DocID
	doc   *pdf.Document
	text  *pdf.TextExtractor
}

var _ Backend = (*PopplerBackend)(nil)

// Open parses the document at path.
func Open(path string) (*PopplerBackend, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return &PopplerBackend{
		path:  path,
		docID: HashPath(path),
		doc:   doc,
		text:  pdf.NewTextExtractor(doc),
	}, nil
}

// NewLoader returns a Loader that opens an independent handle on the same
// document for each caller.
func NewLoader(path string) Loader {
	return func() (Backend, error) {
		return Open(path)
	}
}

func (b *PopplerBackend) Path() string   { return b.path }
func (b *PopplerBackend) DocID() DocID   { return b.docID }
func (b *PopplerBackend) PageCount() int { return b.doc.NumPages() }

func (b *PopplerBackend) RenderPage(page int, scaleMilli uint32) (*RgbaFrame, error) {
	if page < 0 || page >= b.doc.NumPages() {
		return nil, &RenderError{Page: page, Err: fmt.Errorf("page out of range (0..%d)", b.doc.NumPages()-1)}
	}
	dpi := baseDPI * float64(scaleMilli) / 1000.0
	if dpi <= 0 {
		dpi = baseDPI
	}
	renderer := pdf.NewPageRenderer(b.doc, pdf.RenderOptions{
		DPI:    dpi,
		Format: "png",
	})
	rendered, err := renderer.RenderPage(page + 1)
	if err != nil {
		return nil, &RenderError{Page: page, Err: err}
	}
	img, err := png.Decode(bytes.NewReader(rendered.Data))
	if err != nil {
		return nil, &RenderError{Page: page, Err: fmt.Errorf("decode rendered page: %w", err)}
	}
	return frameFromImage(img), nil
}

func (b *PopplerBackend) ExtractText(page int) ([]string, error) {
	if page < 0 || page >= b.doc.NumPages() {
		return nil, fmt.Errorf("extract text: page %d out of range", page)
	}
	text, err := b.text.ExtractPageText(page + 1)
	if err != nil {
		return nil, fmt.Errorf("extract text page %d: %w", page, err)
	}
	if text == "" {
		return nil, nil
	}
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"), nil
}

func (b *PopplerBackend) Close() error {
	return b.doc.Close()
}

func frameFromImage(img image.Image) *RgbaFrame {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		bounds := img.Bounds()
		converted := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(converted, converted.Rect, img, bounds.Min, draw.Src)
		rgba = converted
	}
	return &RgbaFrame{
		Width:  rgba.Rect.Dx(),
		Height: rgba.Rect.Dy(),
		Stride: rgba.Stride,
		Pixels: rgba.Pix,
	}
}
