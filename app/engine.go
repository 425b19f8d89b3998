// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: app/engine.go
// Summary: The main task. Owns the nav tracker, prefetch queue, both
//          caches, scheduler and presenter; workers only ever talk to it
//          through bounded channels.

package app

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"

	"pvf/backend"
	"pvf/config"
	"pvf/perf"
	"pvf/presenter"
	"pvf/render"
	"pvf/search"
)

const (
	minScale = 0.25
	zoomStep = 1.25
	// idleSettle is how long after the last navigation event the idle
	// timer fires to top up prefetch.
	idleSettle = 150 * time.Millisecond
)

// App is the viewer: one document, one viewport, one main loop.
type App struct {
	cfg    config.Config
	loader backend.Loader
	doc    backend.Backend

	gen     *render.GenerationCounter
	tracker *render.NavTracker
	sched   *render.Scheduler
	queue   *render.PrefetchQueue
	l1      *render.PageCache
	pool    *render.Pool
	encPool *presenter.EncodePool
	pres    *presenter.Presenter
	stats   *perf.Stats

	index  *search.Index
	engine *search.Engine

	screen  ScreenDriver
	surface *drawSurface
	events  chan tcell.Event

	docName    string
	totalPages int
	page       int
	scale      float64
	pan        presenter.Pan

	searchInput []rune // non-nil while typing a query
	searchHits  []int
	statusMsg   string

	idle     *time.Timer
	quitting bool
}

// New opens the document and assembles the pipeline. Open failures are
// fatal, per the error policy.
func New(cfg config.Config, path string, screen ScreenDriver) (*App, error) {
	loader := backend.NewLoader(path)
	doc, err := loader()
	if err != nil {
		return nil, err
	}
	if doc.PageCount() == 0 {
		doc.Close()
		return nil, &backend.OpenError{Path: path, Err: errors.New("document has no pages")}
	}

	gen := &render.GenerationCounter{}
	picker := presenter.Pick(presenter.DetectCapabilities(cfg.Protocol, cfg.CellPxW, cfg.CellPxH))
	enc := presenter.NewEncoder(picker)
	encPool := presenter.NewEncodePool(cfg.EncodeWorkers, enc, gen, cfg.EncodePendingMax)

	l1 := render.NewPageCache(cfg.L1BudgetBytes, 0)
	l2 := presenter.NewFrameCache(cfg.L2BudgetBytes, 0, cfg.EncodePendingMax)
	stats := &perf.Stats{}

	a := &App{
		cfg:        cfg,
		loader:     loader,
		doc:        doc,
		gen:        gen,
		tracker:    render.NewNavTracker(gen),
		sched:      render.NewScheduler(cfg.LeadMax, cfg.BGRadius),
		queue:      render.NewPrefetchQueue(cfg.QueueMax),
		l1:         l1,
		pool:       render.NewPool(cfg.Workers, loader, gen),
		encPool:    encPool,
		stats:      stats,
		screen:     screen,
		events:     make(chan tcell.Event, 32),
		docName:    filepath.Base(path),
		totalPages: doc.PageCount(),
		scale:      1.0,
		idle:       time.NewTimer(idleSettle),
	}
	a.surface = &drawSurface{driver: screen}
	a.pres = presenter.New(l1, l2, encPool, enc, picker, stats, a.requestCritical)

	index, err := search.NewIndex()
	if err != nil {
		log.Printf("app: search index unavailable: %v", err)
	} else {
		a.index = index
	}
	a.engine = search.NewEngine(loader, a.index)
	return a, nil
}

// Run drives the main loop until quit. The screen must not be initialized
// yet; Run owns its lifecycle.
func (a *App) Run() error {
	if err := a.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer a.close()

	a.screen.SetStyle(tcell.StyleDefault)
	a.screen.HideCursor()

	go a.pumpEvents()

	a.replan()
	a.redraw()

	for !a.quitting {
		select {
		case ev := <-a.events:
			a.handleTerminalEvent(ev)
		case res := <-a.pool.Results():
			a.handleRenderResult(res)
		case ev := <-a.encPool.Events():
			a.pres.HandleEvent(ev)
		case ev := <-a.engine.Events():
			a.handleSearchEvent(ev)
		case <-a.idle.C:
			// A navigation burst has settled; top the queue back up so
			// background prefetch fills remaining worker capacity.
			a.replan()
		}
		a.drain()
		a.dispatch()
		a.redraw()
	}
	return nil
}

func (a *App) close() {
	a.screen.Fini()
	a.pool.Close()
	a.encPool.Close()
	a.engine.Close()
	if a.index != nil {
		a.index.Close()
	}
	a.doc.Close()
}

func (a *App) pumpEvents() {
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return
		}
		a.events <- ev
	}
}

// drain empties the worker channels without blocking so one loop wakeup
// absorbs everything that arrived while it slept.
func (a *App) drain() {
	for {
		select {
		case ev := <-a.events:
			a.handleTerminalEvent(ev)
		case res := <-a.pool.Results():
			a.handleRenderResult(res)
		case ev := <-a.encPool.Events():
			a.pres.HandleEvent(ev)
		case ev := <-a.engine.Events():
			a.handleSearchEvent(ev)
		default:
			return
		}
	}
}

func (a *App) handleTerminalEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.tracker.OnViewportResize()
		a.queue.CancelOlderThan(a.gen.Current())
		a.screen.Clear()
		a.replan()
	case *tcell.EventKey:
		if a.searchInput != nil {
			a.handleSearchKey(ev)
			return
		}
		a.handleAction(mapKey(ev, len(a.searchHits) > 0))
	}
}

func (a *App) handleAction(action Action) {
	switch action {
	case ActionQuit:
		a.quitting = true
	case ActionNextPage:
		a.gotoPage(a.page + 1)
	case ActionPrevPage:
		a.gotoPage(a.page - 1)
	case ActionFirstPage:
		a.gotoPage(0)
	case ActionLastPage:
		a.gotoPage(a.totalPages - 1)
	case ActionZoomIn:
		a.setScale(a.scale * zoomStep)
	case ActionZoomOut:
		a.setScale(a.scale / zoomStep)
	case ActionZoomReset:
		a.setScale(1.0)
	case ActionPanLeft:
		a.panBy(-1, 0)
	case ActionPanRight:
		a.panBy(1, 0)
	case ActionPanUp:
		a.panBy(0, -1)
	case ActionPanDown:
		a.panBy(0, 1)
	case ActionSearchStart:
		a.searchInput = []rune{}
	case ActionSearchNext:
		a.gotoHit(1)
	case ActionSearchPrev:
		a.gotoHit(-1)
	}
}

func (a *App) handleSearchKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		a.searchInput = nil
	case tcell.KeyEnter:
		query := string(a.searchInput)
		a.searchInput = nil
		if query != "" {
			a.engine.Start(query)
			a.statusMsg = "searching…"
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(a.searchInput) > 0 {
			a.searchInput = a.searchInput[:len(a.searchInput)-1]
		}
	case tcell.KeyRune:
		a.searchInput = append(a.searchInput, ev.Rune())
	}
}

func (a *App) handleSearchEvent(ev search.Event) {
	switch ev.Kind {
	case search.EventSnapshot:
		s := ev.Snapshot
		a.statusMsg = fmt.Sprintf("search %d/%d, %d hits", s.ScannedPages, s.TotalPages, s.HitPages)
	case search.EventCompleted:
		a.searchHits = ev.Hits
		if len(ev.Hits) == 0 {
			a.statusMsg = "no matches"
		} else {
			a.statusMsg = fmt.Sprintf("%d matching pages", len(ev.Hits))
			a.gotoHit(1)
		}
	case search.EventFailed:
		a.statusMsg = "search failed"
		log.Printf("app: search failed: %v", ev.Err)
	}
}

func (a *App) gotoPage(page int) {
	if page < 0 || page >= a.totalPages || page == a.page {
		return
	}
	from := a.page
	a.page = page
	a.pan = presenter.Pan{}
	a.statusMsg = ""

	a.tracker.OnPageChange(from, page)
	a.queue.CancelOlderThan(a.gen.Current())
	a.replan()
}

func (a *App) setScale(scale float64) {
	if scale < minScale {
		scale = minScale
	}
	if limit := a.pres.Picker().MaxRenderScale(); scale > limit {
		scale = limit
	}
	if render.ScaleMilli(scale) == render.ScaleMilli(a.scale) {
		return
	}
	a.scale = scale
	a.pan = presenter.Pan{}

	a.tracker.OnZoom()
	a.queue.CancelOlderThan(a.gen.Current())
	a.replan()
}

func (a *App) panBy(dxCells, dyCells int) {
	vp := a.viewport()
	a.pan.X += dxCells * vp.CellW
	a.pan.Y += dyCells * vp.CellH
	if a.pan.X < 0 {
		a.pan.X = 0
	}
	if a.pan.Y < 0 {
		a.pan.Y = 0
	}
}

func (a *App) gotoHit(dir int) {
	if len(a.searchHits) == 0 {
		return
	}
	if dir >= 0 {
		for _, hit := range a.searchHits {
			if hit > a.page {
				a.gotoPage(hit)
				return
			}
		}
		a.gotoPage(a.searchHits[0])
		return
	}
	for i := len(a.searchHits) - 1; i >= 0; i-- {
		if a.searchHits[i] < a.page {
			a.gotoPage(a.searchHits[i])
			return
		}
	}
	a.gotoPage(a.searchHits[len(a.searchHits)-1])
}

// requestCritical is the presenter's hook for a missing current-page
// raster.
func (a *App) requestCritical(key render.PageKey, gen uint64) {
	a.queue.Submit(render.Task{
		Key:        key,
		Priority:   render.Priority{Class: render.CriticalCurrent},
		Generation: gen,
	})
	// The current page cannot wait for the next wakeup.
	a.dispatch()
}

// replan rebuilds the prefetch plan at the current generation and arms the
// idle timer for a background top-up.
func (a *App) replan() {
	intent := a.tracker.Intent()
	plan := a.sched.Plan(intent, a.doc.DocID(), render.ScaleMilli(a.scale),
		a.page, a.totalPages, a.cfg.PlanBudget)
	for _, task := range plan {
		if a.queue.Submit(task) == render.RejectedFull {
			a.stats.AddDropped(1)
		}
	}
	a.stats.SetQueueDepth(a.queue.Len())

	if !a.idle.Stop() {
		select {
		case <-a.idle.C:
		default:
		}
	}
	a.idle.Reset(idleSettle)
}

// dispatch feeds queued tasks to idle render workers in priority order,
// skipping pages L1 already holds.
func (a *App) dispatch() {
	for {
		task, ok := a.queue.PopBest()
		if !ok {
			break
		}
		if a.l1.Contains(task.Key) {
			continue
		}
		if !a.pool.TryDispatch(task) {
			// Every slot is busy; the task goes back for the next pass.
			a.queue.Submit(task)
			break
		}
	}
	a.stats.SetQueueDepth(a.queue.Len())
}

func (a *App) handleRenderResult(res render.Result) {
	switch res.Outcome {
	case render.Produced:
		// Ingestion repeats the worker's staleness gate: the queue and
		// pool race with navigation, and a stale frame must not thrash
		// L1. Idempotent over key — a second arrival replaces equal
		// bytes at worst.
		if res.Task.Generation < a.gen.Current() && res.Task.Priority.Class != render.CriticalCurrent {
			a.stats.AddCanceled(1)
			return
		}
		if a.l1.Put(res.Task.Key, res.Frame) == render.Rejected {
			a.stats.AddDropped(1)
			return
		}
		a.stats.RecordRender(res.Elapsed)
		a.encodeAhead(res.Task)
	case render.Canceled:
		a.stats.AddCanceled(1)
	case render.BackendError:
		a.statusMsg = fmt.Sprintf("page %d failed", res.Task.Key.Page+1)
		log.Printf("app: render failed: %v", res.Err)
	}
}

// encodeAhead warms L2 for a page that just landed in L1. The current page
// goes through Present on the next redraw anyway; neighbors are encoded at
// the zero pan a page visit starts from, so the first visit draws instantly.
func (a *App) encodeAhead(task render.Task) {
	if task.Key.Page == a.page && task.Key.ScaleMilli == render.ScaleMilli(a.scale) {
		return
	}
	vp := a.viewport()
	a.pres.PrefetchEncode(task.Key, vp, presenter.Pan{}, task.Generation, a.imageArea())
}

func (a *App) viewport() presenter.Viewport {
	w, h := a.screen.Size()
	if h > 1 {
		h--
	}
	picker := a.pres.Picker()
	return presenter.Viewport{WCells: w, HCells: h, CellW: picker.CellW, CellH: picker.CellH}
}

func (a *App) imageArea() presenter.Area {
	vp := a.viewport()
	return presenter.Area{X: 0, Y: 0, W: vp.WCells, H: vp.HCells}
}

func (a *App) redraw() {
	w, h := a.screen.Size()
	vp := a.viewport()
	key := render.NewPageKey(a.doc.DocID(), a.page, a.scale)

	drew := a.pres.Present(key, vp, a.pan, a.gen.Current(), a.surface, a.imageArea())
	if !drew {
		a.drawPlaceholder(vp)
	}
	if h > 0 {
		a.drawStatus(w, h-1)
	}
	a.screen.Show()
	a.surface.flush()
}

func (a *App) drawPlaceholder(vp presenter.Viewport) {
	msg := "rendering…"
	if err := a.pres.LastFailure(); err != nil {
		msg = "page failed to encode"
	}
	x := (vp.WCells - len([]rune(msg))) / 2
	if x < 0 {
		x = 0
	}
	y := vp.HCells / 2
	for i, r := range msg {
		a.screen.SetContent(x+i, y, r, nil, tcell.StyleDefault.Dim(true))
	}
}
