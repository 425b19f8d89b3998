// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: search/engine.go
// Summary: Background document search. A worker goroutine owns its own
//          backend handle, extracts page text into the index and reports
//          generation-tagged progress.

package search

import (
	"log"
	"strings"
	"sync/atomic"

	"pvf/backend"
)

// Snapshot is a progress report for an in-flight search.
type Snapshot struct {
	Generation   uint64
	ScannedPages int
	TotalPages   int
	HitPages     int
	Done         bool
}

// Event is posted on the engine's event channel.
type Event struct {
	Kind       EventKind
	Generation uint64
	Snapshot   Snapshot
	Hits       []int
	Err        error
}

// EventKind tags search events.
type EventKind uint8

const (
	EventSnapshot EventKind = iota
	EventCompleted
	EventFailed
)

// Matcher decides whether a page matches a query. The default is a
// case-insensitive substring match.
type Matcher interface {
	PrepareQuery(raw string) string
	MatchesPage(pageText, preparedQuery string) bool
}

type substringMatcher struct{}

func (substringMatcher) PrepareQuery(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func (substringMatcher) MatchesPage(pageText, preparedQuery string) bool {
	if preparedQuery == "" {
		return false
	}
	return strings.Contains(strings.ToLower(pageText), preparedQuery)
}

type job struct {
	generation uint64
	query      string
}

// Engine runs one search at a time; starting a new query bumps the search
// generation so the worker abandons the previous scan at the next page
// boundary.
type Engine struct {
	requests chan job
	events   chan Event
	current  atomic.Uint64
	matcher  Matcher
	index    *Index
}

// NewEngine starts the worker goroutine with its own backend handle.
func NewEngine(loader backend.Loader, index *Index) *Engine {
	e := &Engine{
		requests: make(chan job, 4),
		events:   make(chan Event, 16),
		matcher:  substringMatcher{},
		index:    index,
	}
	go e.workerMain(loader)
	return e
}

// Events is drained by the main task alongside the pipeline channels.
func (e *Engine) Events() <-chan Event { return e.events }

// Start begins a search and returns its generation.
func (e *Engine) Start(query string) uint64 {
	gen := e.current.Add(1)
	next := job{generation: gen, query: query}
	for {
		select {
		case e.requests <- next:
			return gen
		default:
			// Burst of queries: make room by dropping the oldest queued
			// job. The newest generation wins anyway, so dropping an
			// intermediate job loses nothing.
			select {
			case <-e.requests:
			default:
			}
		}
	}
}

// Close stops the worker.
func (e *Engine) Close() { close(e.requests) }

func (e *Engine) workerMain(loader backend.Loader) {
	b, err := loader()
	if err != nil {
		log.Printf("search: failed to open backend: %v", err)
	}
	if b != nil {
		defer b.Close()
	}

	for j := range e.requests {
		if j.generation < e.current.Load() {
			continue
		}
		if b == nil {
			e.post(Event{Kind: EventFailed, Generation: j.generation, Err: err})
			continue
		}
		e.runJob(b, j)
	}
}

func (e *Engine) runJob(b backend.Backend, j job) {
	total := b.PageCount()
	prepared := e.matcher.PrepareQuery(j.query)
	var hits []int

	for page := 0; page < total; page++ {
		if j.generation < e.current.Load() {
			return
		}

		if e.index != nil {
			// Fast path: the index already holds this page's text, so no
			// re-extraction is needed. The stored text goes through the
			// same matcher as a fresh extraction, so hits never depend on
			// which pages an earlier scan happened to index.
			text, ok, err := e.index.PageText(page)
			if err == nil && ok {
				if e.matcher.MatchesPage(text, prepared) {
					hits = append(hits, page)
				}
				e.snapshot(j.generation, page+1, total, len(hits))
				continue
			}
		}

		lines, err := b.ExtractText(page)
		if err != nil {
			e.post(Event{Kind: EventFailed, Generation: j.generation, Err: err})
			return
		}
		text := strings.Join(lines, "\n")
		if e.index != nil {
			if err := e.index.IndexPage(page, lines); err != nil {
				log.Printf("search: index page %d: %v", page, err)
			}
		}
		if e.matcher.MatchesPage(text, prepared) {
			hits = append(hits, page)
		}
		e.snapshot(j.generation, page+1, total, len(hits))
	}

	e.post(Event{Kind: EventCompleted, Generation: j.generation, Hits: hits})
}

func (e *Engine) snapshot(gen uint64, scanned, total, hitCount int) {
	e.tryPost(Event{
		Kind:       EventSnapshot,
		Generation: gen,
		Snapshot: Snapshot{
			Generation:   gen,
			ScannedPages: scanned,
			TotalPages:   total,
			HitPages:     hitCount,
			Done:         scanned == total,
		},
	})
}

// post delivers terminal events reliably; the consumer drains the channel
// every loop iteration.
func (e *Engine) post(ev Event) {
	e.events <- ev
}

// tryPost drops progress snapshots under backpressure; losing one is
// harmless.
func (e *Engine) tryPost(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}
