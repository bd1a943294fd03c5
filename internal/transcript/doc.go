// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript drives a single chat conversation.
//
// A Controller loads a session's history (or greets a new chat), sends user
// messages to the assistant and tracks which of them are still in flight.
// Only one send runs at a time; extra sends are dropped, not queued.
//
// The first message of a new chat creates the session on the backend, moves
// the route to /chat/<id> and registers the session with the sidebar before
// the message itself is sent.
//
// User messages are appended before the backend answers. If the send fails
// the message stays in the transcript marked DeliveryFailed, followed by a
// system error line.
package transcript
