// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires the sprout client together.
//
// An App owns one instance of every store: the identity client and its
// credential file, the auth store, the chat session registry, the toast
// queue, the navigation history, the transcript controller, the dashboard
// poller and the remedies browser. Both the TUI and the CLI commands build
// an App from a loaded configuration and call Close on exit.
//
// The App also carries the user flows that span several stores: signing in
// and out, registering, and deleting a chat.
package app
