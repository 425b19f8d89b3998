// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: app/status.go
// Summary: Bottom status line: position, zoom, pipeline health, prompts.

package app

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

var statusStyle = tcell.StyleDefault.
	Foreground(tcell.ColorBlack).
	Background(tcell.ColorSilver)

// drawStatus paints the status line on the last row.
func (a *App) drawStatus(width, row int) {
	left := fmt.Sprintf(" %s  %d/%d  %.0f%%",
		a.docName, a.page+1, a.totalPages, a.scale*100)

	var right string
	switch {
	case a.searchInput != nil:
		left = " /" + string(a.searchInput)
	case a.statusMsg != "":
		right = a.statusMsg + " "
	default:
		s := a.stats
		right = fmt.Sprintf("r %.0fms c %.0fms b %.0fms  l1 %.0f%% l2 %.0f%%  q%d x%d ",
			s.RenderMs, s.ConvertMs, s.BlitMs,
			s.L1HitRate*100, s.L2HitRate*100,
			s.QueueDepth, s.Canceled)
	}

	col := 0
	for _, r := range left {
		if col >= width {
			break
		}
		a.screen.SetContent(col, row, r, nil, statusStyle)
		col += runewidth.RuneWidth(r)
	}
	for ; col < width-runewidth.StringWidth(right); col++ {
		a.screen.SetContent(col, row, ' ', nil, statusStyle)
	}
	for _, r := range right {
		if col >= width {
			break
		}
		a.screen.SetContent(col, row, r, nil, statusStyle)
		col += runewidth.RuneWidth(r)
	}
}
