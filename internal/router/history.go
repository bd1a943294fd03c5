// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"log"
	"sync"
)

// ============================================================================
// HISTORY
// ============================================================================

// History is a navigation stack. It is safe for concurrent use.
type History struct {
	mu       sync.Mutex
	entries  []string
	onChange func(path string)
}

// NewHistory creates a history positioned at start.
func NewHistory(start string) *History {
	return &History{entries: []string{cleanPath(start)}}
}

// OnChange registers fn to run after every navigation. It replaces any
// previous callback.
func (h *History) OnChange(fn func(path string)) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

// Current returns the current path.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Push navigates to path, adding an entry.
func (h *History) Push(path string) {
	path = cleanPath(path)
	h.mu.Lock()
	if h.entries[len(h.entries)-1] == path {
		h.mu.Unlock()
		return
	}
	h.entries = append(h.entries, path)
	fn := h.onChange
	h.mu.Unlock()

	log.Printf("NAVIGATE | op=push path=%s", path)
	if fn != nil {
		fn(path)
	}
}

// Replace navigates to path without adding an entry.
func (h *History) Replace(path string) {
	path = cleanPath(path)
	h.mu.Lock()
	if h.entries[len(h.entries)-1] == path {
		h.mu.Unlock()
		return
	}
	h.entries[len(h.entries)-1] = path
	fn := h.onChange
	h.mu.Unlock()

	log.Printf("NAVIGATE | op=replace path=%s", path)
	if fn != nil {
		fn(path)
	}
}

// Back pops the current entry. It returns false at the first entry.
func (h *History) Back() bool {
	h.mu.Lock()
	if len(h.entries) <= 1 {
		h.mu.Unlock()
		return false
	}
	h.entries = h.entries[:len(h.entries)-1]
	path := h.entries[len(h.entries)-1]
	fn := h.onChange
	h.mu.Unlock()

	log.Printf("NAVIGATE | op=back path=%s", path)
	if fn != nil {
		fn(path)
	}
	return true
}
