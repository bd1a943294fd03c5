// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/router"
	"github.com/sproutai/sprout-tui/internal/session"
)

// fakeBackend answers every message with a canned reply.
type fakeBackend struct {
	mu       sync.Mutex
	history  map[string][]model.Message
	listErr  error
	sendErr  error
	created  []string
	sends    atomic.Int32
	reply    *model.Message
	gate     chan struct{} // when set, SendMessage waits on it
	entered  chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{history: map[string][]model.Message{}}
}

func (b *fakeBackend) ListMessages(_ context.Context, id string) ([]model.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.history[id], nil
}

func (b *fakeBackend) CreateSession(_ context.Context, title string) (*model.ChatSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, title)
	return &model.ChatSession{ID: "new-1", Title: title, UpdatedAt: time.Now()}, nil
}

func (b *fakeBackend) SendMessage(_ context.Context, sessionID, content string) (*model.Message, error) {
	b.sends.Add(1)
	if b.entered != nil {
		b.entered <- struct{}{}
	}
	if b.gate != nil {
		<-b.gate
	}
	if b.sendErr != nil {
		return nil, b.sendErr
	}
	if b.reply != nil {
		r := *b.reply
		return &r, nil
	}
	return &model.Message{SessionID: sessionID, SenderRole: model.SenderAssistant, Content: "Rest and drink water."}, nil
}

// =============================================================================
// OPEN
// =============================================================================

func TestController_OpenNewChatShowsWelcome(t *testing.T) {
	c := NewController(newFakeBackend(), nil, nil)
	assert.Equal(t, StatusInitializing, c.Status())

	require.NoError(t, c.Open(context.Background(), ""))
	assert.Equal(t, StatusReady, c.Status())

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.SenderSystem, msgs[0].SenderRole)
	assert.Equal(t, WelcomeMessage, msgs[0].Content)
}

func TestController_OpenLoadsHistory(t *testing.T) {
	b := newFakeBackend()
	b.history["s1"] = []model.Message{
		{SenderRole: model.SenderUser, Content: "hi"},
		{SenderRole: model.SenderAssistant, Content: "hello"},
	}
	c := NewController(b, nil, nil)

	require.NoError(t, c.Open(context.Background(), "s1"))
	assert.Len(t, c.Messages(), 2)
	assert.Equal(t, "s1", c.SessionID())
}

func TestController_OpenFailureIsReadyAndEmpty(t *testing.T) {
	b := newFakeBackend()
	b.listErr = errors.New("offline")
	c := NewController(b, nil, nil)

	require.Error(t, c.Open(context.Background(), "s1"))
	assert.Equal(t, StatusReady, c.Status())
	assert.Empty(t, c.Messages())
}

func TestController_ReopenAfterFailureLoadsHistory(t *testing.T) {
	b := newFakeBackend()
	b.listErr = errors.New("offline")
	c := NewController(b, nil, nil)
	require.Error(t, c.Open(context.Background(), "s1"))
	assert.Empty(t, c.Messages())

	b.mu.Lock()
	b.listErr = nil
	b.history["s1"] = []model.Message{{SenderRole: model.SenderUser, Content: "hi"}}
	b.mu.Unlock()

	require.NoError(t, c.Open(context.Background(), "s1"))
	require.Len(t, c.Messages(), 1)
	assert.Equal(t, "hi", c.Messages()[0].Content)
}

func TestController_ReopenSameSessionRefetches(t *testing.T) {
	b := newFakeBackend()
	b.history["s1"] = []model.Message{{SenderRole: model.SenderUser, Content: "hi"}}
	c := NewController(b, nil, nil)
	require.NoError(t, c.Open(context.Background(), "s1"))

	b.mu.Lock()
	b.history["s1"] = append(b.history["s1"], model.Message{SenderRole: model.SenderAssistant, Content: "from another device"})
	b.mu.Unlock()

	require.NoError(t, c.Open(context.Background(), "s1"))
	assert.Len(t, c.Messages(), 2)
}

func TestController_OpenCreatedSessionKeepsLiveTranscript(t *testing.T) {
	b := newFakeBackend()
	c := NewController(b, nil, router.NewHistory(router.PathChat))
	require.NoError(t, c.Open(context.Background(), ""))
	require.NoError(t, c.Send(context.Background(), "I have a headache"))
	require.Len(t, c.Messages(), 3)

	// The route change to the new session does not reload it.
	require.NoError(t, c.Open(context.Background(), "new-1"))
	assert.Len(t, c.Messages(), 3)

	// Later opens fetch from the backend again.
	require.NoError(t, c.Open(context.Background(), "new-1"))
	assert.Empty(t, c.Messages())
}

// =============================================================================
// SEND
// =============================================================================

func TestController_SendBlankMakesNoCall(t *testing.T) {
	b := newFakeBackend()
	c := NewController(b, nil, nil)
	require.NoError(t, c.Open(context.Background(), "s1"))

	for _, text := range []string{"", " ", "\t\n  "} {
		assert.ErrorIs(t, c.Send(context.Background(), text), ErrEmptyMessage)
	}
	assert.Zero(t, b.sends.Load())
	assert.Empty(t, b.created)
}

func TestController_SendWhileBusyIsDropped(t *testing.T) {
	b := newFakeBackend()
	b.gate = make(chan struct{})
	b.entered = make(chan struct{}, 1)
	c := NewController(b, nil, nil)
	require.NoError(t, c.Open(context.Background(), "s1"))

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "first") }()
	<-b.entered

	assert.True(t, c.Sending())
	assert.ErrorIs(t, c.Send(context.Background(), "second"), ErrBusy)

	close(b.gate)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), b.sends.Load())
	assert.False(t, c.Sending())

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
}

func TestController_NewChatScenario(t *testing.T) {
	b := newFakeBackend()
	reg := session.NewRegistry(nil)
	reg.Add(model.ChatSession{ID: "older", Title: "older"})
	history := router.NewHistory(router.PathChat)
	c := NewController(b, reg, history)
	require.NoError(t, c.Open(context.Background(), ""))

	require.NoError(t, c.Send(context.Background(), "I have a headache"))

	require.Len(t, b.created, 1)
	assert.Equal(t, "I have a headache", b.created[0])
	assert.Equal(t, "/chat/new-1", history.Current())
	assert.Equal(t, 1, history.Len(), "route is replaced, not pushed")
	assert.Equal(t, "new-1", reg.Sessions()[0].ID)
	assert.Equal(t, "new-1", c.SessionID())

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, model.SenderSystem, msgs[0].SenderRole)
	assert.Equal(t, model.SenderUser, msgs[1].SenderRole)
	assert.Equal(t, "I have a headache", msgs[1].Content)
	assert.Equal(t, model.DeliverySent, msgs[1].Delivery)
	assert.Equal(t, model.SenderAssistant, msgs[2].SenderRole)
}

func TestController_TitleTruncated(t *testing.T) {
	b := newFakeBackend()
	c := NewController(b, nil, nil)
	require.NoError(t, c.Open(context.Background(), ""))

	long := "My stomach has been hurting since yesterday evening"
	require.NoError(t, c.Send(context.Background(), long))
	assert.Equal(t, "My stomach has been hurting si", b.created[0])
	assert.Equal(t, long, c.Messages()[1].Content)
}

func TestController_SendFailureKeepsMessageMarkedFailed(t *testing.T) {
	b := newFakeBackend()
	b.sendErr = errors.New("502")
	c := NewController(b, nil, nil)
	require.NoError(t, c.Open(context.Background(), "s1"))

	err := c.Send(context.Background(), "hello")
	require.Error(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.DeliveryFailed, msgs[0].Delivery)
	assert.Equal(t, model.SenderSystem, msgs[1].SenderRole)
	assert.Equal(t, ConnectionErrorMessage, msgs[1].Content)
	assert.True(t, msgs[1].IsError)
	assert.False(t, c.Sending())
}

func TestController_ReopenDiscardsInFlightReply(t *testing.T) {
	b := newFakeBackend()
	b.gate = make(chan struct{})
	b.entered = make(chan struct{}, 1)
	b.history["s2"] = []model.Message{{SenderRole: model.SenderAssistant, Content: "old"}}
	c := NewController(b, nil, nil)
	require.NoError(t, c.Open(context.Background(), "s1"))

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "hello") }()
	<-b.entered

	require.NoError(t, c.Open(context.Background(), "s2"))
	close(b.gate)

	assert.ErrorIs(t, <-done, ErrStale)
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "old", msgs[0].Content)
}

func TestController_SendBeforeOpenIsBusy(t *testing.T) {
	c := NewController(newFakeBackend(), nil, nil)
	assert.ErrorIs(t, c.Send(context.Background(), "hi"), ErrBusy)
}

// =============================================================================
// EMERGENCY BANNER
// =============================================================================

func flagged(content string, sev model.Severity) model.Message {
	return model.Message{
		SenderRole: model.SenderAssistant,
		Content:    content,
		Metadata:   &model.Metadata{EmergencyFlag: true, Severity: sev},
	}
}

func TestEmergencyBanner(t *testing.T) {
	plain := model.Message{SenderRole: model.SenderAssistant, Content: "fine"}

	tests := []struct {
		name     string
		messages []model.Message
		want     string
		shown    bool
	}{
		{"none", []model.Message{plain}, "", false},
		{"single high", []model.Message{flagged("go to ER", model.SeverityHigh), plain}, "go to ER", true},
		{"latest wins", []model.Message{flagged("a", model.SeverityCritical), flagged("b", model.SeverityMedium)}, "b", true},
		{"latest low hides", []model.Message{flagged("a", model.SeverityCritical), flagged("b", model.SeverityLow)}, "", false},
		{"missing severity hides", []model.Message{flagged("a", "")}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := EmergencyBanner(tt.messages)
			assert.Equal(t, tt.shown, ok)
			assert.Equal(t, tt.want, msg.Content)
		})
	}
}

func TestController_BannerFollowsReplies(t *testing.T) {
	b := newFakeBackend()
	reply := flagged("Call emergency services now.", model.SeverityCritical)
	b.reply = &reply
	c := NewController(b, nil, nil)
	require.NoError(t, c.Open(context.Background(), "s1"))

	_, shown := c.Banner()
	assert.False(t, shown)

	require.NoError(t, c.Send(context.Background(), "chest pain"))
	msg, shown := c.Banner()
	assert.True(t, shown)
	assert.Equal(t, "Call emergency services now.", msg.Content)

	last, ok := c.LastReply()
	require.True(t, ok)
	assert.Equal(t, msg.Content, last.Content)
}
