// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router maps paths to screens and decides who may see them.
//
// Routing is split in two so the access rules can be tested without a UI:
// Guard is a pure function from auth state and an allow-list to a Decision,
// and Resolve walks the route table, applying guards and redirects until it
// reaches a screen to render.
//
// # Key Types
//
//   - Decision: Loading, redirect or render, as returned by Guard
//   - Route: One entry of the route table
//   - Resolution: The screen a path finally resolves to
//   - History: Navigation stack with push, replace and back
//
// # Usage
//
//	res, err := router.Resolve(history.Current(), store.State())
//	if res.Redirected {
//	    history.Replace(res.Path)
//	}
//	switch res.Page {
//	case router.PageDashboard:
//	    // render dashboard
//	}
package router
