// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: app/screen.go
// Summary: Screen driver abstraction over tcell plus the draw surface
//          handed to the presenter.

package app

import (
	"os"

	"github.com/gdamore/tcell/v2"
)

// ScreenDriver adapts a terminal screen so the app (and its tests) never
// touch tcell directly.
type ScreenDriver interface {
	Init() error
	Fini()
	Size() (int, int)
	Clear()
	HideCursor()
	SetStyle(style tcell.Style)
	SetContent(x, y int, mainc rune, combc []rune, style tcell.Style)
	Show()
	PollEvent() tcell.Event
	PostEvent(ev tcell.Event) error
}

// TcellScreenDriver wraps a tcell.Screen.
type TcellScreenDriver struct {
	screen tcell.Screen
}

// NewTcellScreenDriver wraps the provided screen.
func NewTcellScreenDriver(screen tcell.Screen) *TcellScreenDriver {
	return &TcellScreenDriver{screen: screen}
}

func (d *TcellScreenDriver) Init() error { return d.screen.Init() }

func (d *TcellScreenDriver) Fini() { d.screen.Fini() }

func (d *TcellScreenDriver) Size() (int, int) { return d.screen.Size() }

func (d *TcellScreenDriver) Clear() { d.screen.Clear() }

func (d *TcellScreenDriver) HideCursor() { d.screen.HideCursor() }

func (d *TcellScreenDriver) SetStyle(style tcell.Style) { d.screen.SetStyle(style) }

func (d *TcellScreenDriver) SetContent(x, y int, mainc rune, combc []rune, style tcell.Style) {
	d.screen.SetContent(x, y, mainc, combc, style)
}

func (d *TcellScreenDriver) Show() { d.screen.Show() }

func (d *TcellScreenDriver) PollEvent() tcell.Event { return d.screen.PollEvent() }

func (d *TcellScreenDriver) PostEvent(ev tcell.Event) error { return d.screen.PostEvent(ev) }

// drawSurface adapts the screen driver to the presenter surface. Cell
// writes go through the driver; raw escape streams (kitty) are buffered
// and flushed to the tty after the cell grid is shown, so the image lands
// on top of the refreshed frame.
type drawSurface struct {
	driver ScreenDriver
	escape []byte
}

func (s *drawSurface) SetCell(x, y int, ch rune, fg, bg tcell.Color) {
	style := tcell.StyleDefault.Foreground(fg).Background(bg)
	s.driver.SetContent(x, y, ch, nil, style)
}

func (s *drawSurface) WriteEscape(seq []byte) {
	s.escape = append(s.escape, seq...)
}

func (s *drawSurface) flush() {
	if len(s.escape) == 0 {
		return
	}
	os.Stdout.Write(s.escape)
	os.Stdout.Sync()
	s.escape = s.escape[:0]
}
