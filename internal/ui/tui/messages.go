// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

// =============================================================================
// STORE MESSAGES
// =============================================================================

// storeChangedMsg signals that some store changed and the view is stale.
type storeChangedMsg struct{}

// startedMsg reports the end of App.Start.
type startedMsg struct {
	Err error
}

// =============================================================================
// ACTION RESULTS
// =============================================================================

// loginDoneMsg reports a sign-in attempt.
type loginDoneMsg struct {
	Err error
}

// registerDoneMsg reports a registration attempt.
type registerDoneMsg struct {
	Err error
}

// sendDoneMsg reports the end of a chat round-trip.
type sendDoneMsg struct {
	Err error
}

// actionDoneMsg reports a fire-and-forget store action.
type actionDoneMsg struct {
	Action string
	Err    error
}

// copiedMsg reports a clipboard write.
type copiedMsg struct {
	Err error
}

// exportedMsg reports a chat export.
type exportedMsg struct {
	Path string
	Err  error
}

// =============================================================================
// TIMERS
// =============================================================================

// searchTickMsg fires after the remedies debounce delay. Only the tick
// matching the latest keystroke triggers a search.
type searchTickMsg struct {
	Seq int
}

// toastTickMsg redraws toast countdowns once a second.
type toastTickMsg struct{}
