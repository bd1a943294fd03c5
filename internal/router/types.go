// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import "fmt"

// ============================================================================
// PAGE TYPE
// ============================================================================

// Page identifies a screen.
type Page int

const (
	// PageNone is used by redirect-only routes.
	PageNone Page = iota
	PageLogin
	PageRegister
	PageChat
	PageRemedies
	PageDashboard
)

// String returns the human-readable name of the page.
func (p Page) String() string {
	switch p {
	case PageNone:
		return "None"
	case PageLogin:
		return "Login"
	case PageRegister:
		return "Register"
	case PageChat:
		return "Chat"
	case PageRemedies:
		return "Remedies"
	case PageDashboard:
		return "Dashboard"
	default:
		return fmt.Sprintf("Page(%d)", p)
	}
}

// ============================================================================
// DECISION TYPE
// ============================================================================

// Outcome is what a guard decided.
type Outcome int

const (
	// OutcomeLoading shows a placeholder until auth state settles.
	OutcomeLoading Outcome = iota
	// OutcomeRedirect navigates elsewhere instead of rendering.
	OutcomeRedirect
	// OutcomeRender renders the guarded screen.
	OutcomeRender
)

// String returns the human-readable name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "Loading"
	case OutcomeRedirect:
		return "Redirect"
	case OutcomeRender:
		return "Render"
	default:
		return fmt.Sprintf("Outcome(%d)", o)
	}
}

// Decision is the result of Guard.
type Decision struct {
	Outcome Outcome
	// To is the redirect target when Outcome is OutcomeRedirect.
	To string
	// Replace is true when the redirect must not add a history entry.
	Replace bool
}

// String formats the decision for logs and test failures.
func (d Decision) String() string {
	if d.Outcome == OutcomeRedirect {
		return fmt.Sprintf("Redirect(%s, replace=%t)", d.To, d.Replace)
	}
	return d.Outcome.String()
}

// Render is the decision to render.
var Render = Decision{Outcome: OutcomeRender}

// Loading is the decision to show a placeholder.
var Loading = Decision{Outcome: OutcomeLoading}

// RedirectTo returns a replacing redirect to path.
func RedirectTo(path string) Decision {
	return Decision{Outcome: OutcomeRedirect, To: path, Replace: true}
}
