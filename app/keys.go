// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: app/keys.go
// Summary: Key handling: vi-style navigation, zoom, pan, search.

package app

import "github.com/gdamore/tcell/v2"

// Action names one viewer operation.
type Action uint8

const (
	ActionNone Action = iota
	ActionQuit
	ActionNextPage
	ActionPrevPage
	ActionFirstPage
	ActionLastPage
	ActionZoomIn
	ActionZoomOut
	ActionZoomReset
	ActionPanLeft
	ActionPanRight
	ActionPanUp
	ActionPanDown
	ActionSearchStart
	ActionSearchNext
	ActionSearchPrev
)

// mapKey resolves a key event in normal mode. While a search has hits,
// 'n' walks them instead of turning the page.
func mapKey(ev *tcell.EventKey, searchActive bool) Action {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyRight, tcell.KeyPgDn:
		return ActionNextPage
	case tcell.KeyLeft, tcell.KeyPgUp:
		return ActionPrevPage
	case tcell.KeyHome:
		return ActionFirstPage
	case tcell.KeyEnd:
		return ActionLastPage
	case tcell.KeyDown:
		return ActionPanDown
	case tcell.KeyUp:
		return ActionPanUp
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return ActionQuit
		case 'n':
			if searchActive {
				return ActionSearchNext
			}
			return ActionNextPage
		case 'j', ' ':
			return ActionNextPage
		case 'k', 'p':
			return ActionPrevPage
		case 'g':
			return ActionFirstPage
		case 'G':
			return ActionLastPage
		case '+', '=':
			return ActionZoomIn
		case '-':
			return ActionZoomOut
		case '0':
			return ActionZoomReset
		case 'h':
			return ActionPanLeft
		case 'l':
			return ActionPanRight
		case 'J':
			return ActionPanDown
		case 'K':
			return ActionPanUp
		case '/':
			return ActionSearchStart
		case 'N':
			return ActionSearchPrev
		}
	}
	return ActionNone
}
