// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import "github.com/sproutai/sprout-tui/internal/model"

// NavItem is a sidebar navigation entry.
type NavItem struct {
	Name string
	Path string
}

// NavItems returns the sidebar tools available to role.
// The dashboard entry is listed for staff only.
func NavItems(role model.Role) []NavItem {
	items := []NavItem{
		{Name: "Natural Remedies", Path: PathRemedies},
	}
	if role.IsStaff() {
		items = append(items, NavItem{Name: "Dashboard", Path: PathDashboard})
	}
	return items
}
