// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: render/worker.go
// Summary: Fixed-size pool of render workers. Each worker owns its own
//          backend handle; results flow back over a bounded channel.

package render

import (
	"fmt"
	"log"
	"time"

	"pvf/backend"
)

// Outcome of a render task.
type Outcome uint8

const (
	// Produced: a frame was rendered and survived the generation gate.
	Produced Outcome = iota
	// Canceled: the task was stale (or its worker panicked) and the
	// output was dropped.
	Canceled
	// BackendError: the backend failed on this page; nothing is cached
	// and later requests retry.
	BackendError
)

// Result is posted on the pool's result channel. Ordering is FIFO per
// worker; cross-worker ordering is not guaranteed, so consumers must be
// idempotent over Key.
type Result struct {
	Task    Task
	Outcome Outcome
	Frame   *backend.RgbaFrame
	Err     error
	Elapsed time.Duration
}

// Pool runs a fixed number of render workers. Tasks are handed over a
// small buffered channel; the main task feeds it in priority order from
// the prefetch queue. A running task is never interrupted mid-render —
// cancellation is a generation compare before the result is posted.
type Pool struct {
	tasks   chan Task
	results chan Result
	gen     *GenerationCounter
	workers int
	done    chan struct{}
}

// NewPool starts workers goroutines, each opening its own backend handle
// through loader. Close releases them.
func NewPool(workers int, loader backend.Loader, gen *GenerationCounter) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		tasks:   make(chan Task, workers),
		results: make(chan Result, workers*4),
		gen:     gen,
		workers: workers,
		done:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.workerMain(i, loader)
	}
	return p
}

// Workers returns the configured pool size.
func (p *Pool) Workers() int { return p.workers }

// TryDispatch hands a task to an idle slot without blocking. False means
// every slot is busy; the task stays the caller's to re-queue.
func (p *Pool) TryDispatch(t Task) bool {
	select {
	case p.tasks <- t:
		return true
	default:
		return false
	}
}

// Results is the bounded result channel. The main task drains it each loop
// iteration.
func (p *Pool) Results() <-chan Result { return p.results }

// Close stops accepting tasks and lets workers wind down.
func (p *Pool) Close() {
	close(p.done)
	close(p.tasks)
}

func (p *Pool) workerMain(id int, loader backend.Loader) {
	b, err := loader()
	if err != nil {
		log.Printf("render: worker %d failed to open backend: %v", id, err)
	}
	if b != nil {
		defer b.Close()
	}
	for task := range p.tasks {
		result := p.runTask(b, err, task)
		select {
		case p.results <- result:
		case <-p.done:
			return
		}
	}
}

// runTask renders one page. A panic inside the backend is absorbed and
// reported as Canceled so the worker survives to take the next task.
func (p *Pool) runTask(b backend.Backend, openErr error, task Task) (result Result) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render: worker panic on page %d: %v", task.Key.Page, r)
			result = Result{Task: task, Outcome: Canceled, Err: fmt.Errorf("worker panic: %v", r), Elapsed: time.Since(started)}
		}
	}()

	if b == nil {
		return Result{Task: task, Outcome: BackendError, Err: openErr, Elapsed: time.Since(started)}
	}

	frame, err := b.RenderPage(task.Key.Page, task.Key.ScaleMilli)
	elapsed := time.Since(started)
	if err != nil {
		return Result{Task: task, Outcome: BackendError, Err: err, Elapsed: elapsed}
	}

	// The current page is always wanted; everything else is dropped when
	// navigation has moved past the generation it was planned at.
	if task.Generation < p.gen.Current() && task.Priority.Class != CriticalCurrent {
		return Result{Task: task, Outcome: Canceled, Elapsed: elapsed}
	}
	return Result{Task: task, Outcome: Produced, Frame: frame, Elapsed: elapsed}
}
