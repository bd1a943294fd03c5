// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remedies

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutai/sprout-tui/internal/model"
)

// gatedSearcher blocks each query until its gate is released.
type gatedSearcher struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	results map[string][]model.Remedy
	err     error
	queries []string
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{
		gates:   map[string]chan struct{}{},
		results: map[string][]model.Remedy{},
	}
}

func (s *gatedSearcher) gate(query string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.gates[query]
	if !ok {
		ch = make(chan struct{})
		s.gates[query] = ch
	}
	return ch
}

func (s *gatedSearcher) SearchRemedies(ctx context.Context, query string) ([]model.Remedy, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	gate, gated := s.gates[query]
	s.mu.Unlock()
	if gated {
		<-gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.results[query], nil
}

func TestSearchStoresResults(t *testing.T) {
	s := newGatedSearcher()
	s.results["ginger"] = []model.Remedy{{ID: "r1", Name: "Ginger tea"}}
	b := NewBrowser(s)

	require.NoError(t, b.Search(context.Background(), "  ginger "))
	assert.Equal(t, "ginger", b.Query())
	assert.False(t, b.Loading())
	require.Len(t, b.Remedies(), 1)
	assert.Equal(t, "Ginger tea", b.Remedies()[0].Name)
	assert.Equal(t, []string{"ginger"}, s.queries)
}

func TestSearchLatestQueryWins(t *testing.T) {
	s := newGatedSearcher()
	s.results["gin"] = []model.Remedy{{ID: "old"}}
	s.results["ginger"] = []model.Remedy{{ID: "new"}}
	slow := s.gate("gin")
	b := NewBrowser(s)

	done := make(chan error, 1)
	go func() { done <- b.Search(context.Background(), "gin") }()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.queries) == 1
	}, time2s, tick)

	require.NoError(t, b.Search(context.Background(), "ginger"))
	close(slow)
	require.NoError(t, <-done)

	got := b.Remedies()
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
	assert.False(t, b.Loading())
}

func TestSearchLoadingFlag(t *testing.T) {
	s := newGatedSearcher()
	gate := s.gate("mint")
	b := NewBrowser(s)

	done := make(chan error, 1)
	go func() { done <- b.Search(context.Background(), "mint") }()

	require.Eventually(t, b.Loading, time2s, tick)
	close(gate)
	require.NoError(t, <-done)
	assert.False(t, b.Loading())
}

func TestSearchFailureKeepsResults(t *testing.T) {
	s := newGatedSearcher()
	s.results[""] = []model.Remedy{{ID: "r1"}, {ID: "r2"}}
	b := NewBrowser(s)
	require.NoError(t, b.Search(context.Background(), ""))

	s.mu.Lock()
	s.err = errors.New("offline")
	s.mu.Unlock()

	err := b.Search(context.Background(), "x")
	require.Error(t, err)
	assert.Len(t, b.Remedies(), 2)
	assert.False(t, b.Loading())
}

func TestToggleExpandsOneAtATime(t *testing.T) {
	b := NewBrowser(newGatedSearcher())
	changes := 0
	b.OnChange(func() { changes++ })

	b.Toggle("a")
	assert.Equal(t, "a", b.Expanded())
	b.Toggle("b")
	assert.Equal(t, "b", b.Expanded())
	b.Toggle("b")
	assert.Equal(t, "", b.Expanded())
	assert.Equal(t, 3, changes)
}

func TestSearchCollapsesMissingRemedy(t *testing.T) {
	s := newGatedSearcher()
	s.results["a"] = []model.Remedy{{ID: "r1"}}
	s.results["b"] = []model.Remedy{{ID: "r2"}}
	b := NewBrowser(s)

	require.NoError(t, b.Search(context.Background(), "a"))
	b.Toggle("r1")
	require.NoError(t, b.Search(context.Background(), "b"))
	assert.Equal(t, "", b.Expanded())
}

const (
	time2s = 2 * time.Second
	tick   = 5 * time.Millisecond
)
