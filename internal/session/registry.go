// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session keeps the signed-in user's list of chat sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/sproutai/sprout-tui/internal/model"
)

var (
	// ErrEmptyTitle is returned by Rename for a blank title.
	ErrEmptyTitle = errors.New("title must not be empty")

	// ErrStale is returned by Fetch when Clear ran while it was in flight.
	ErrStale = errors.New("result discarded: registry was cleared")
)

// Backend is the subset of the API client the registry needs.
type Backend interface {
	ListSessions(ctx context.Context) ([]model.ChatSession, error)
	UpdateSession(ctx context.Context, id string, update model.SessionUpdate) (*model.ChatSession, error)
	DeleteSession(ctx context.Context, id string) error
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the ordered list of chat sessions. It is safe for concurrent use.
type Registry struct {
	backend Backend

	mu       sync.Mutex
	sessions []model.ChatSession
	loading  bool
	gen      uint64
	onChange func()
}

// NewRegistry creates an empty registry.
func NewRegistry(backend Backend) *Registry {
	return &Registry{backend: backend}
}

// OnChange registers fn to run after the list or loading flag changes.
// It replaces any previous callback.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Sessions returns a copy of the list in display order.
func (r *Registry) Sessions() []model.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ChatSession, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Get returns the session with id.
func (r *Registry) Get(id string) (model.ChatSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexLocked(id); i >= 0 {
		return r.sessions[i], true
	}
	return model.ChatSession{}, false
}

// Loading reports whether a Fetch is in flight.
func (r *Registry) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Fetch replaces the list with the backend's. On failure the previous list
// is kept. A result that arrives after Clear (or after a newer Fetch) is
// discarded with ErrStale.
func (r *Registry) Fetch(ctx context.Context) error {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.loading = true
	r.mu.Unlock()
	r.changed()

	sessions, err := r.backend.ListSessions(ctx)

	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return ErrStale
	}
	r.loading = false
	if err == nil {
		r.sessions = dedupe(sessions)
	}
	r.mu.Unlock()
	r.changed()

	if err != nil {
		log.Printf("SESSION_FETCH_FAILED | error=%v", err)
		return fmt.Errorf("failed to fetch sessions: %w", err)
	}
	log.Printf("SESSION_FETCH | count=%d", len(sessions))
	return nil
}

// Add prepends a newly created session. An existing entry with the same id
// is replaced.
func (r *Registry) Add(s model.ChatSession) {
	r.mu.Lock()
	if i := r.indexLocked(s.ID); i >= 0 {
		r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
	}
	r.sessions = append([]model.ChatSession{s}, r.sessions...)
	r.mu.Unlock()
	r.changed()
}

// Rename sets a session's title. The stored title is the one the backend
// returns; the position in the list is unchanged.
func (r *Registry) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	updated, err := r.backend.UpdateSession(ctx, id, model.SessionUpdate{Title: &title})
	if err != nil {
		log.Printf("SESSION_RENAME_FAILED | id=%s error=%v", id, err)
		return fmt.Errorf("failed to rename session: %w", err)
	}

	r.mu.Lock()
	if i := r.indexLocked(id); i >= 0 {
		r.sessions[i].Title = updated.Title
	}
	r.mu.Unlock()
	r.changed()
	return nil
}

// Delete removes a session. Deleting an id that is not listed still calls
// the backend and leaves the list unchanged.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.backend.DeleteSession(ctx, id); err != nil {
		log.Printf("SESSION_DELETE_FAILED | id=%s error=%v", id, err)
		return fmt.Errorf("failed to delete session: %w", err)
	}

	r.mu.Lock()
	removed := false
	if i := r.indexLocked(id); i >= 0 {
		r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
		removed = true
	}
	r.mu.Unlock()

	if removed {
		r.changed()
	}
	return nil
}

// TogglePin asks the backend to set the pin flag to !current, applies the
// value the backend returns and re-sorts the list.
func (r *Registry) TogglePin(ctx context.Context, id string, current bool) error {
	pinned := !current
	updated, err := r.backend.UpdateSession(ctx, id, model.SessionUpdate{IsPinned: &pinned})
	if err != nil {
		log.Printf("SESSION_PIN_FAILED | id=%s error=%v", id, err)
		return fmt.Errorf("failed to update pin: %w", err)
	}

	r.mu.Lock()
	if i := r.indexLocked(id); i >= 0 {
		r.sessions[i].IsPinned = updated.IsPinned
	}
	sortSessions(r.sessions)
	r.mu.Unlock()
	r.changed()
	return nil
}

// Clear empties the list and invalidates any in-flight Fetch.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.gen++
	r.sessions = nil
	r.loading = false
	r.mu.Unlock()
	r.changed()
}

func (r *Registry) indexLocked(id string) int {
	for i := range r.sessions {
		if r.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) changed() {
	r.mu.Lock()
	fn := r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// =============================================================================
// ORDERING
// =============================================================================

// Less reports whether a sorts before b: pinned first, then newest update,
// then id.
func Less(a, b model.ChatSession) bool {
	if a.IsPinned != b.IsPinned {
		return a.IsPinned
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID < b.ID
}

func sortSessions(sessions []model.ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return Less(sessions[i], sessions[j])
	})
}

// dedupe keeps the first entry per id.
func dedupe(sessions []model.ChatSession) []model.ChatSession {
	seen := make(map[string]bool, len(sessions))
	out := make([]model.ChatSession, 0, len(sessions))
	for _, s := range sessions {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}
