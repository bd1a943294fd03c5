// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sproutai/sprout-tui/internal/model"
)

// =============================================================================
// BRAND COLORS
// =============================================================================

// Sprout - Brand green, primary buttons and selections
var Sprout = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}

// SproutDeep - Darker green for backgrounds
var SproutDeep = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#14532D"}

// Indigo - Navigation icons
var Indigo = lipgloss.AdaptiveColor{Light: "#4F46E5", Dark: "#818CF8"}

// Cyan - Info states, links
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Success states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors, critical alerts
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// RoseDeep - Darker rose for the emergency banner background
var RoseDeep = lipgloss.AdaptiveColor{Light: "#FFE4E6", Dark: "#881337"}

// Amber - Warnings, pending states
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Orange - High severity
var Orange = lipgloss.AdaptiveColor{Light: "#EA580C", Dark: "#FB923C"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Main background
var Surface = lipgloss.AdaptiveColor{Light: "#F8FAFC", Dark: "#0F172A"}

// SurfaceDim - Headers, footers, toasts
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F1F5F9", Dark: "#1E293B"}

// Sidebar - Session history column
var Sidebar = lipgloss.AdaptiveColor{Light: "#E2E8F0", Dark: "#0B1120"}

// Overlay - Borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#334155"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#E2E8F0"}

// TextSecondary - Labels
var TextSecondary = lipgloss.AdaptiveColor{Light: "#475569", Dark: "#94A3B8"}

// TextMuted - Hints, timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#64748B"}

// TextInverse - Text on colored backgrounds
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0F172A"}

// =============================================================================
// MESSAGE COLORS
// =============================================================================

var UserBubbleBg = lipgloss.AdaptiveColor{Light: "#DCFCE7", Dark: "#166534"}
var UserBubbleFg = lipgloss.AdaptiveColor{Light: "#14532D", Dark: "#F0FDF4"}
var AssistantBubbleBorder = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#475569"}
var SystemBubbleFg = lipgloss.AdaptiveColor{Light: "#92400E", Dark: "#FEF3C7"}

// =============================================================================
// ACCESSIBILITY
// =============================================================================

// StatusIndicatorSet contains text indicators for status states.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Pending string
	Active  string
}

// StatusIndicators pairs every status color with an ASCII shape.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Pending: "[ ]",
	Active:  "[*]",
}

// =============================================================================
// DOMAIN COLORS
// =============================================================================

// SeverityColor returns the color of an emergency severity.
func SeverityColor(s model.Severity) lipgloss.AdaptiveColor {
	switch s {
	case model.SeverityCritical:
		return Rose
	case model.SeverityHigh:
		return Orange
	case model.SeverityMedium:
		return Amber
	default:
		return TextSecondary
	}
}

// StatusColor returns the color of an emergency status.
func StatusColor(s model.EmergencyStatus) lipgloss.AdaptiveColor {
	switch s {
	case model.StatusPending:
		return Amber
	case model.StatusAcknowledged:
		return Cyan
	case model.StatusResolved:
		return Emerald
	default:
		return TextMuted
	}
}

// RoleColor returns the badge color of a role.
func RoleColor(r model.Role) lipgloss.AdaptiveColor {
	switch r {
	case model.RoleAdmin:
		return Indigo
	case model.RoleHospital:
		return Cyan
	case model.RoleUser:
		return Sprout
	default:
		return TextMuted
	}
}

// RenderSuccess renders a success line with its indicator.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Emerald).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error line with its indicator.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning line with its indicator.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Amber).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}
