// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package tui implements the sprout terminal interface with Bubble Tea.

The Model renders whichever page the router resolves for the current
history entry:

  - Login and Register forms
  - Chat: session sidebar, transcript and message input
  - Remedies: debounced knowledge-base search
  - Dashboard: emergencies, patients and system tabs (staff only)

# Data Flow

The Model owns no domain state. Every store in *app.App reports changes
through an OnChange callback; those callbacks write to a buffered channel
that a waiting tea.Cmd turns into a storeChangedMsg, so the Update loop
re-renders after background work without sharing memory with it.

Network calls run inside tea.Cmd functions and report back with *DoneMsg
messages. Errors are surfaced by the stores themselves (toasts or inline
system messages); the Model only logs them.

# Key Bindings

See KeyMap. Global keys work on every page; page keys are documented in the
status bar of each page.
*/
package tui
