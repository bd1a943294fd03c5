// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"github.com/sproutai/sprout-tui/internal/auth"
	"github.com/sproutai/sprout-tui/internal/model"
)

// Guard decides whether a protected screen may render.
//
// The checks run in order: auth state still loading shows a placeholder, no
// principal redirects to the login screen, and a role outside a non-empty
// allow-list redirects home. A principal whose role is unknown fails every
// non-empty allow-list.
func Guard(state auth.State, allowed []model.Role) Decision {
	if state.Loading {
		return Loading
	}
	if !state.Authenticated() {
		return RedirectTo(PathLogin)
	}
	if len(allowed) > 0 && !state.Role.In(allowed) {
		return RedirectTo(PathHome)
	}
	return Render
}
