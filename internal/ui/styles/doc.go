// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the sprout TUI.

All colors are Lip Gloss AdaptiveColor values so one palette serves light
and dark terminals.

# Color System (colors.go)

  - Sprout - Brand green: header, primary buttons, selections
  - Emerald - Success toasts and healthy status
  - Cyan - Info toasts and links
  - Amber - Warnings, medium severity, pending emergencies
  - Rose - Errors, high and critical severity

Surfaces follow the sidebar/content split of the chat screen:

	Sidebar    - Session history column
	Surface    - Content background
	SurfaceDim - Headers, status bars, toasts

# Theme (theme.go)

NewTheme builds every lipgloss.Style used by the views from the palette.
The theme mode ("auto", "dark", "light") decides whether the background is
detected with termenv or forced.

# Accessibility

Every status carries a text indicator from StatusIndicators so meaning never
depends on color alone.
*/
package styles
