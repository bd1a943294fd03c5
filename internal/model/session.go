// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// ChatSession is a conversation thread with the assistant.
// It is distinct from the identity session held by the auth store.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	IsPinned  bool      `json:"is_pinned"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// SessionUpdate is the PATCH body for a chat session.
// Nil fields are omitted so a rename never touches the pin flag and vice versa.
type SessionUpdate struct {
	Title    *string `json:"title,omitempty"`
	IsPinned *bool   `json:"is_pinned,omitempty"`
}
