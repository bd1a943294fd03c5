// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sproutai/sprout-tui/internal/model"
)

// =============================================================================
// CHAT SESSIONS
// =============================================================================

// ListSessions returns the current principal's chat sessions.
func (c *Client) ListSessions(ctx context.Context) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	if err := c.do(ctx, http.MethodGet, "/chat/sessions", nil, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSession creates a chat session with the given title.
func (c *Client) CreateSession(ctx context.Context, title string) (*model.ChatSession, error) {
	var session model.ChatSession
	in := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/chat/session", nil, in, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateSession patches a session and returns the backend's copy.
func (c *Client) UpdateSession(ctx context.Context, id string, update model.SessionUpdate) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := c.do(ctx, http.MethodPatch, "/chat/session/"+url.PathEscape(id), nil, update, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession deletes a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/chat/session/"+url.PathEscape(id), nil, nil, nil)
}

// =============================================================================
// MESSAGES
// =============================================================================

// ListMessages returns a session's message history in chronological order.
func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	var messages []model.Message
	path := "/chat/session/" + url.PathEscape(sessionID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage posts a user message and returns the assistant's reply.
func (c *Client) SendMessage(ctx context.Context, sessionID, content string) (*model.Message, error) {
	var reply model.Message
	in := map[string]string{"session_id": sessionID, "content": content}
	if err := c.do(ctx, http.MethodPost, "/chat/message", nil, in, &reply); err != nil {
		return nil, err
	}
	if reply.SenderRole == "" {
		reply.SenderRole = model.SenderAssistant
	}
	return &reply, nil
}
