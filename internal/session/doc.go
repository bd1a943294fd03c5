// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session keeps the signed-in user's list of chat sessions.
//
// The Registry is the single source of truth for session metadata shown in
// the sidebar. Mutations go to the backend first; the local list only changes
// once the backend has accepted them, and a failed call leaves it untouched.
//
// # Key Types
//
//   - Registry: Ordered session list with fetch, add, rename, pin and delete
//   - Backend: The chat-session endpoints the registry calls
//
// # Ordering
//
// Pinned sessions come first, then by descending update time, then by id.
// Fetch keeps the backend's order. Only TogglePin sorts. Add prepends
// without sorting, so a freshly created chat sits at the top until the next
// pin change.
//
// # Usage
//
//	reg := session.NewRegistry(apiClient)
//	if err := reg.Fetch(ctx); err != nil {
//	    // logged; the previous list is kept
//	}
//	for _, s := range reg.Sessions() {
//	    fmt.Println(s.Title)
//	}
package session
