// Copyright © 2026 pvf contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: search/index.go
// Summary: SQLite FTS5 index over extracted page text.
//
// Pages are indexed as the background scan extracts them; repeated queries
// then run against the index instead of re-extracting the document.

package search

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Index provides full-text search over extracted page text. Safe for use
// from the search worker and the main task concurrently.
type Index struct {
	mu sync.Mutex
	db *sql.DB

	indexed map[int]bool
}

// NewIndex opens an in-memory index. Nothing persists across restarts.
func NewIndex() (*Index, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	// A single connection keeps the in-memory database alive and ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE VIRTUAL TABLE pages USING fts5(page UNINDEXED, body)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create fts table: %w", err)
	}
	return &Index{db: db, indexed: make(map[int]bool)}, nil
}

// IndexPage stores the text of one page, replacing any earlier copy.
func (ix *Index) IndexPage(page int, lines []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.indexed[page] {
		if _, err := ix.db.Exec(`DELETE FROM pages WHERE page = ?`, page); err != nil {
			return fmt.Errorf("reindex page %d: %w", page, err)
		}
	}
	if _, err := ix.db.Exec(`INSERT INTO pages(page, body) VALUES (?, ?)`, page, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("index page %d: %w", page, err)
	}
	ix.indexed[page] = true
	return nil
}

// Indexed reports whether a page's text is already stored.
func (ix *Index) Indexed(page int) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.indexed[page]
}

// Search returns the pages matching query, ascending. The query is treated
// as a literal phrase, not FTS syntax.
func (ix *Index) Search(query string, limit int) ([]int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	phrase := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
	rows, err := ix.db.Query(
		`SELECT page FROM pages WHERE pages MATCH ? ORDER BY page LIMIT ?`, phrase, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer rows.Close()

	var hits []int
	for rows.Next() {
		var page int
		if err := rows.Scan(&page); err != nil {
			return nil, err
		}
		hits = append(hits, page)
	}
	return hits, rows.Err()
}

// PageText returns the stored text of an indexed page, so scans can re-run
// a matcher over it instead of re-extracting the document. ok is false for
// pages not yet indexed.
func (ix *Index) PageText(page int) (text string, ok bool, err error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.indexed[page] {
		return "", false, nil
	}
	err = ix.db.QueryRow(`SELECT body FROM pages WHERE page = ?`, page).Scan(&text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read page %d text: %w", page, err)
	}
	return text, true, nil
}

// Close releases the database.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.db.Close()
}
