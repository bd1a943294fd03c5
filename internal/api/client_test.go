// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutai/sprout-tui/internal/config"
	"github.com/sproutai/sprout-tui/internal/model"
)

func staticToken(token string) TokenSource {
	return TokenFunc(func(context.Context) (string, error) { return token, nil })
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.APIConfig{BaseURL: server.URL + "/", TimeoutSecs: 5}, staticToken("tok-123"))
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

func TestClient_SendsBearerAndRequestID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "/chat/sessions", r.URL.Path)
		w.Write([]byte(`[]`))
	})

	sessions, err := client.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestClient_NotAuthenticated(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(config.APIConfig{BaseURL: server.URL}, staticToken(""))
	_, err := client.ListSessions(context.Background())

	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, calls.Load(), "no request without a token")
}

func TestClient_TokenSourceError(t *testing.T) {
	boom := errors.New("refresh failed")
	client := NewClient(config.APIConfig{BaseURL: "http://127.0.0.1:1"},
		TokenFunc(func(context.Context) (string, error) { return "", boom }))

	_, err := client.ListSessions(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Invalid token"}`, ErrUnauthorized, "Invalid token"},
		{"forbidden", http.StatusForbidden, `{"detail":"Not enough permissions"}`, ErrForbidden, "Not enough permissions"},
		{"not found", http.StatusNotFound, `{"message":"Session not found"}`, ErrNotFound, "Session not found"},
		{"server error", http.StatusInternalServerError, `oops`, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			err := client.DeleteSession(context.Background(), "s1")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			} else {
				assert.NotErrorIs(t, err, ErrUnauthorized)
				assert.NotErrorIs(t, err, ErrNotFound)
			}
		})
	}
}

func TestClient_NoRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListEmergencies(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

// =============================================================================
// ENDPOINTS
// =============================================================================

func TestClient_CreateSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/session", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "I have a headache", body["title"])

		w.Write([]byte(`{"id":"s1","title":"I have a headache","is_pinned":false,"updated_at":"2025-01-02T03:04:05Z"}`))
	})

	session, err := client.CreateSession(context.Background(), "I have a headache")
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	assert.Equal(t, 2025, session.UpdatedAt.Year())
}

func TestClient_UpdateSessionPinOnly(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/chat/session/s1", r.URL.Path)

		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"is_pinned":true}`, string(raw))

		w.Write([]byte(`{"id":"s1","title":"t","is_pinned":true,"updated_at":"2025-01-02T03:04:05Z"}`))
	})

	pinned := true
	session, err := client.UpdateSession(context.Background(), "s1", model.SessionUpdate{IsPinned: &pinned})
	require.NoError(t, err)
	assert.True(t, session.IsPinned)
}

func TestClient_SendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "s1", body["session_id"])
		assert.Equal(t, "chest pain", body["content"])

		w.Write([]byte(`{"sender_role":"assistant","content":"Call emergency services.",
			"created_at":"2025-01-02T03:04:05Z",
			"metadata":{"emergency_flag":true,"severity":"critical"}}`))
	})

	reply, err := client.SendMessage(context.Background(), "s1", "chest pain")
	require.NoError(t, err)
	assert.Equal(t, model.SenderAssistant, reply.SenderRole)
	assert.True(t, reply.IsEmergency())
	assert.Equal(t, model.SeverityCritical, reply.Severity())
}

func TestClient_UpdateEmergencyStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/emergencies/e1/status", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"status":"resolved"}`, string(raw))
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.UpdateEmergencyStatus(context.Background(), "e1", model.StatusResolved)
	assert.NoError(t, err)
}

func TestClient_SearchRemediesEncodesQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/remedies", r.URL.Path)
		assert.Equal(t, "ginger & honey", r.URL.Query().Get("search"))
		w.Write([]byte(`[{"id":"r1","name":"Ginger tea","ingredients":["ginger","honey"]}]`))
	})

	remedies, err := client.SearchRemedies(context.Background(), "ginger & honey")
	require.NoError(t, err)
	require.Len(t, remedies, 1)
	assert.Equal(t, []string{"ginger", "honey"}, remedies[0].Ingredients)
}
