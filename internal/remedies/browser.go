// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package remedies browses the natural-remedies knowledge base.
package remedies

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/util"
)

// DebounceDelay is how long the TUI waits after the last keystroke before
// searching.
const DebounceDelay = 300 * time.Millisecond

// Searcher queries the knowledge base. *api.Client implements it.
type Searcher interface {
	SearchRemedies(ctx context.Context, query string) ([]model.Remedy, error)
}

// Browser holds search results and which remedy is expanded.
// Only the most recent search may update the results.
type Browser struct {
	searcher Searcher

	mu       sync.Mutex
	query    string
	remedies []model.Remedy
	loading  bool
	expanded string
	seq      uint64
	onChange func()
}

// NewBrowser creates an empty browser.
func NewBrowser(searcher Searcher) *Browser {
	return &Browser{searcher: searcher}
}

// OnChange registers fn to run when results or expansion change.
func (b *Browser) OnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Search runs query against the backend. A response that arrives after a
// newer search started is discarded and reported as nil.
func (b *Browser) Search(ctx context.Context, query string) error {
	query = util.Normalize(query)

	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.query = query
	b.loading = true
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}

	remedies, err := b.searcher.SearchRemedies(ctx, query)

	b.mu.Lock()
	if seq != b.seq {
		b.mu.Unlock()
		return nil
	}
	b.loading = false
	if err == nil {
		b.remedies = remedies
		if b.expanded != "" && !containsRemedy(remedies, b.expanded) {
			b.expanded = ""
		}
	}
	fn = b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
	if err != nil {
		log.Printf("REMEDIES_SEARCH_FAILED | query=%q error=%v", query, err)
		return fmt.Errorf("failed to search remedies: %w", err)
	}
	log.Printf("REMEDIES_SEARCH | query=%q results=%d", query, len(remedies))
	return nil
}

// Toggle expands id, collapsing any other remedy. Toggling the expanded
// remedy collapses it.
func (b *Browser) Toggle(id string) {
	b.mu.Lock()
	if b.expanded == id {
		b.expanded = ""
	} else {
		b.expanded = id
	}
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Expanded returns the id of the expanded remedy, or "".
func (b *Browser) Expanded() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expanded
}

// Query returns the last submitted query.
func (b *Browser) Query() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// Loading reports whether a search is in flight.
func (b *Browser) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Remedies returns a copy of the current results.
func (b *Browser) Remedies() []model.Remedy {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Remedy(nil), b.remedies...)
}

func containsRemedy(list []model.Remedy, id string) bool {
	for _, r := range list {
		if r.ID == id {
			return true
		}
	}
	return false
}
