// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript drives a single chat conversation.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/router"
	"github.com/sproutai/sprout-tui/internal/util"
)

const (
	// WelcomeMessage greets a new chat.
	WelcomeMessage = "Hello! I am Sprout AI. Briefly describe your symptoms, and I will guide you."

	// ConnectionErrorMessage is appended when a send fails.
	ConnectionErrorMessage = "Connection Error: Failed to reach AI service."

	// TitleLength is the number of characters of the first message used as
	// a new session's title.
	TitleLength = 30
)

var (
	// ErrEmptyMessage is returned for blank input. No request is made.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy is returned while another send is in flight or the transcript
	// is still loading. The message is dropped.
	ErrBusy = errors.New("a message is already being sent")

	// ErrStale is returned when the controller was reopened or closed while
	// a request was outstanding; its result was discarded.
	ErrStale = errors.New("result discarded: transcript changed")
)

// Backend is the subset of the API client the controller needs.
type Backend interface {
	ListMessages(ctx context.Context, sessionID string) ([]model.Message, error)
	CreateSession(ctx context.Context, title string) (*model.ChatSession, error)
	SendMessage(ctx context.Context, sessionID, content string) (*model.Message, error)
}

// Navigator changes the current route without adding history.
type Navigator interface {
	Replace(path string)
}

// SessionRegistry receives newly created sessions.
type SessionRegistry interface {
	Add(s model.ChatSession)
}

// Status is the controller's load state.
type Status int

const (
	StatusInitializing Status = iota
	StatusReady
)

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns one transcript. It is safe for concurrent use.
type Controller struct {
	backend  Backend
	registry SessionRegistry
	nav      Navigator
	now      func() time.Time

	mu        sync.Mutex
	status    Status
	sessionID string
	messages  []model.Message
	sending   bool
	adopted   string // session created by Send, skipped by the next Open
	gen       uint64
	onChange  func()
}

// NewController creates a controller. Call Open before Send.
func NewController(backend Backend, registry SessionRegistry, nav Navigator) *Controller {
	return &Controller{
		backend:  backend,
		registry: registry,
		nav:      nav,
		now:      time.Now,
		status:   StatusInitializing,
	}
}

// OnChange registers fn to run after every state change. It replaces any
// previous callback.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Open loads sessionID's history, or shows the welcome message when
// sessionID is empty. Every call re-fetches, except the first Open of a
// session Send just created and routed to: that transcript is already live.
//
// A failed history fetch leaves the transcript ready and empty.
func (c *Controller) Open(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	adopted := c.adopted
	c.adopted = ""
	if sessionID != "" && sessionID == adopted && sessionID == c.sessionID {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	c.sessionID = sessionID
	c.messages = nil
	c.sending = false

	if sessionID == "" {
		c.messages = []model.Message{model.NewSystemMessage(WelcomeMessage, c.now())}
		c.status = StatusReady
		c.mu.Unlock()
		c.changed()
		return nil
	}
	c.status = StatusInitializing
	c.mu.Unlock()
	c.changed()

	messages, err := c.backend.ListMessages(ctx, sessionID)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrStale
	}
	c.status = StatusReady
	if err == nil {
		c.messages = messages
	}
	c.mu.Unlock()
	c.changed()

	if err != nil {
		log.Printf("TRANSCRIPT_LOAD_FAILED | session=%s error=%v", sessionID, err)
		return fmt.Errorf("failed to load messages: %w", err)
	}
	log.Printf("TRANSCRIPT_LOADED | session=%s count=%d", sessionID, len(messages))
	return nil
}

// Send posts text to the assistant.
//
// Blank text returns ErrEmptyMessage and a send while another is in flight
// returns ErrBusy; neither touches the backend. Backend failures are also
// recorded in the transcript as a system error message.
func (c *Controller) Send(ctx context.Context, text string) error {
	if util.IsBlank(text) {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.sending || c.status != StatusReady {
		c.mu.Unlock()
		log.Printf("TRANSCRIPT_SEND_DROPPED | session=%s", c.sessionID)
		return ErrBusy
	}
	c.sending = true
	gen := c.gen
	sessionID := c.sessionID
	c.mu.Unlock()
	c.changed()

	defer func() {
		c.mu.Lock()
		if gen == c.gen {
			c.sending = false
		}
		c.mu.Unlock()
		c.changed()
	}()

	if sessionID == "" {
		created, err := c.backend.CreateSession(ctx, util.FirstRunes(text, TitleLength))
		if err != nil {
			log.Printf("TRANSCRIPT_CREATE_FAILED | error=%v", err)
			c.appendIfCurrent(gen, model.NewErrorMessage(ConnectionErrorMessage, c.now()))
			return fmt.Errorf("failed to create session: %w", err)
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return ErrStale
		}
		c.sessionID = created.ID
		c.adopted = created.ID
		c.mu.Unlock()
		sessionID = created.ID

		log.Printf("TRANSCRIPT_SESSION_CREATED | session=%s", sessionID)
		if c.nav != nil {
			c.nav.Replace(router.ChatPath(sessionID))
		}
		if c.registry != nil {
			c.registry.Add(*created)
		}
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrStale
	}
	userMsg := model.NewUserMessage(text, c.now())
	userMsg.SessionID = sessionID
	idx := len(c.messages)
	c.messages = append(c.messages, userMsg)
	c.mu.Unlock()
	c.changed()

	reply, err := c.backend.SendMessage(ctx, sessionID, text)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		c.messages[idx].Delivery = model.DeliveryFailed
		c.messages = append(c.messages, model.NewErrorMessage(ConnectionErrorMessage, c.now()))
		c.mu.Unlock()
		log.Printf("TRANSCRIPT_SEND_FAILED | session=%s error=%v", sessionID, err)
		return fmt.Errorf("failed to send message: %w", err)
	}
	c.messages[idx].Delivery = model.DeliverySent
	c.messages = append(c.messages, *reply)
	c.mu.Unlock()

	if reply.IsEmergency() {
		log.Printf("TRANSCRIPT_EMERGENCY | session=%s severity=%s", sessionID, reply.Severity())
	}
	return nil
}

// Close discards any outstanding results.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++
	c.sending = false
	c.adopted = ""
	c.mu.Unlock()
}

func (c *Controller) appendIfCurrent(gen uint64, msg model.Message) {
	c.mu.Lock()
	if gen == c.gen {
		c.messages = append(c.messages, msg)
	}
	c.mu.Unlock()
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Status returns the load state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionID returns the session shown, or "" for an unsaved new chat.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Sending reports whether a send is in flight.
func (c *Controller) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Messages returns a copy of the transcript.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Banner returns the message the emergency banner should show.
func (c *Controller) Banner() (model.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return EmergencyBanner(c.messages)
}

// LastReply returns the newest assistant message.
func (c *Controller) LastReply() (model.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].SenderRole == model.SenderAssistant {
			return c.messages[i], true
		}
	}
	return model.Message{}, false
}

// EmergencyBanner picks the chronologically last flagged message. The
// banner is hidden when that message's severity is low or missing.
func EmergencyBanner(messages []model.Message) (model.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsEmergency() {
			if !messages[i].Severity().Alerting() {
				return model.Message{}, false
			}
			return messages[i], true
		}
	}
	return model.Message{}, false
}
