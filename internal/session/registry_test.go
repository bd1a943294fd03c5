// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutai/sprout-tui/internal/model"
)

// fakeBackend is an in-memory chat-session backend.
type fakeBackend struct {
	mu       sync.Mutex
	sessions map[string]model.ChatSession
	list     []model.ChatSession
	err      error
	deletes  []string
	block    chan struct{}
}

func newFakeBackend(sessions ...model.ChatSession) *fakeBackend {
	b := &fakeBackend{sessions: map[string]model.ChatSession{}, list: sessions}
	for _, s := range sessions {
		b.sessions[s.ID] = s
	}
	return b
}

func (b *fakeBackend) ListSessions(context.Context) ([]model.ChatSession, error) {
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	out := make([]model.ChatSession, len(b.list))
	copy(out, b.list)
	return out, nil
}

func (b *fakeBackend) UpdateSession(_ context.Context, id string, u model.SessionUpdate) (*model.ChatSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	s, ok := b.sessions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	if u.Title != nil {
		s.Title = *u.Title + " (server)"
	}
	if u.IsPinned != nil {
		s.IsPinned = *u.IsPinned
	}
	b.sessions[id] = s
	return &s, nil
}

func (b *fakeBackend) DeleteSession(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.deletes = append(b.deletes, id)
	delete(b.sessions, id)
	return nil
}

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func chat(id string, minutes int, pinned bool) model.ChatSession {
	return model.ChatSession{ID: id, Title: "chat " + id, UpdatedAt: base.Add(time.Duration(minutes) * time.Minute), IsPinned: pinned}
}

func ids(sessions []model.ChatSession) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}

func assertOrdered(t *testing.T, sessions []model.ChatSession) {
	t.Helper()
	for i := 1; i < len(sessions); i++ {
		if Less(sessions[i], sessions[i-1]) {
			t.Fatalf("sessions out of order at %d: %v", i, ids(sessions))
		}
	}
}

// =============================================================================
// FETCH
// =============================================================================

func TestRegistry_FetchKeepsBackendOrder(t *testing.T) {
	reg := NewRegistry(newFakeBackend(chat("a", 1, false), chat("b", 3, false), chat("c", 2, true)))

	require.NoError(t, reg.Fetch(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, ids(reg.Sessions()))
	assert.False(t, reg.Loading())

	// The next pin change applies the full ordering.
	require.NoError(t, reg.TogglePin(context.Background(), "b", false))
	assert.Equal(t, []string{"b", "c", "a"}, ids(reg.Sessions()))
}

func TestRegistry_FetchFailureKeepsList(t *testing.T) {
	backend := newFakeBackend(chat("a", 1, false))
	reg := NewRegistry(backend)
	require.NoError(t, reg.Fetch(context.Background()))

	backend.err = errors.New("offline")
	err := reg.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, ids(reg.Sessions()))
	assert.False(t, reg.Loading())
}

func TestRegistry_FetchDiscardedAfterClear(t *testing.T) {
	backend := newFakeBackend(chat("a", 1, false))
	backend.block = make(chan struct{})
	reg := NewRegistry(backend)

	errCh := make(chan error, 1)
	go func() { errCh <- reg.Fetch(context.Background()) }()

	require.Eventually(t, reg.Loading, time.Second, time.Millisecond)
	reg.Clear()
	close(backend.block)

	assert.ErrorIs(t, <-errCh, ErrStale)
	assert.Empty(t, reg.Sessions())
}

// =============================================================================
// MUTATIONS
// =============================================================================

func TestRegistry_AddPrepends(t *testing.T) {
	reg := NewRegistry(newFakeBackend(chat("a", 1, true), chat("b", 2, false)))
	require.NoError(t, reg.Fetch(context.Background()))

	reg.Add(chat("new", 5, false))
	assert.Equal(t, []string{"new", "a", "b"}, ids(reg.Sessions()))

	// Same id again replaces rather than duplicates.
	reg.Add(chat("b", 6, false))
	assert.Equal(t, []string{"b", "new", "a"}, ids(reg.Sessions()))
}

func TestRegistry_RenameUsesServerTitle(t *testing.T) {
	reg := NewRegistry(newFakeBackend(chat("a", 2, false), chat("b", 1, false)))
	require.NoError(t, reg.Fetch(context.Background()))

	require.NoError(t, reg.Rename(context.Background(), "b", "  Migraine  "))
	s, ok := reg.Get("b")
	require.True(t, ok)
	assert.Equal(t, "Migraine (server)", s.Title)
	assert.Equal(t, []string{"a", "b"}, ids(reg.Sessions()), "position preserved")

	assert.ErrorIs(t, reg.Rename(context.Background(), "b", "   "), ErrEmptyTitle)
}

func TestRegistry_RenameFailureLeavesTitle(t *testing.T) {
	backend := newFakeBackend(chat("a", 1, false))
	reg := NewRegistry(backend)
	require.NoError(t, reg.Fetch(context.Background()))

	backend.err = errors.New("boom")
	require.Error(t, reg.Rename(context.Background(), "a", "new"))
	s, _ := reg.Get("a")
	assert.Equal(t, "chat a", s.Title)
}

func TestRegistry_Delete(t *testing.T) {
	backend := newFakeBackend(chat("a", 3, false), chat("b", 2, false), chat("c", 1, false))
	reg := NewRegistry(backend)
	require.NoError(t, reg.Fetch(context.Background()))

	require.NoError(t, reg.Delete(context.Background(), "b"))
	assert.Equal(t, []string{"a", "c"}, ids(reg.Sessions()))

	// Absent id: no local change.
	require.NoError(t, reg.Delete(context.Background(), "zzz"))
	assert.Equal(t, []string{"a", "c"}, ids(reg.Sessions()))

	backend.err = errors.New("boom")
	require.Error(t, reg.Delete(context.Background(), "a"))
	assert.Equal(t, []string{"a", "c"}, ids(reg.Sessions()))
}

func TestRegistry_TogglePin(t *testing.T) {
	reg := NewRegistry(newFakeBackend(chat("a", 3, false), chat("b", 2, false), chat("c", 1, false)))
	require.NoError(t, reg.Fetch(context.Background()))

	require.NoError(t, reg.TogglePin(context.Background(), "c", false))
	assert.Equal(t, []string{"c", "a", "b"}, ids(reg.Sessions()))

	require.NoError(t, reg.TogglePin(context.Background(), "c", true))
	assert.Equal(t, []string{"a", "b", "c"}, ids(reg.Sessions()))
}

func TestRegistry_TogglePinOrderingProperty(t *testing.T) {
	var seed []model.ChatSession
	for i := 0; i < 12; i++ {
		// Several sessions share update times to exercise the id tie break.
		seed = append(seed, chat(string(rune('a'+i)), i%4, false))
	}
	backend := newFakeBackend(seed...)
	reg := NewRegistry(backend)
	require.NoError(t, reg.Fetch(context.Background()))

	rng := rand.New(rand.NewSource(42))
	for step := 0; step < 200; step++ {
		sessions := reg.Sessions()
		target := sessions[rng.Intn(len(sessions))]
		require.NoError(t, reg.TogglePin(context.Background(), target.ID, target.IsPinned))
		assertOrdered(t, reg.Sessions())
	}
}

func TestRegistry_OnChange(t *testing.T) {
	reg := NewRegistry(newFakeBackend(chat("a", 1, false)))
	calls := 0
	reg.OnChange(func() { calls++ })

	require.NoError(t, reg.Fetch(context.Background())) // loading on, loading off
	reg.Clear()
	assert.Equal(t, 3, calls)
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{10 * time.Second, "now"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{50 * time.Hour, "2d"},
		{15 * 24 * time.Hour, "2w"},
	}
	for _, tt := range tests {
		if got := FormatAge(tt.d); got != tt.want {
			t.Errorf("FormatAge(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
