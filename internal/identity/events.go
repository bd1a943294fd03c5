// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import "log"

// Event is the kind of auth state change.
type Event int

const (
	EventSignedIn Event = iota
	EventSignedOut
	EventTokenRefreshed
)

// String returns the event name used in logs.
func (e Event) String() string {
	switch e {
	case EventSignedIn:
		return "SIGNED_IN"
	case EventSignedOut:
		return "SIGNED_OUT"
	case EventTokenRefreshed:
		return "TOKEN_REFRESHED"
	default:
		return "UNKNOWN"
	}
}

// Listener receives auth state changes. The session is nil after sign-out.
// Listeners run on the goroutine that caused the change and may call back
// into the Client.
type Listener func(event Event, session *Session)

// OnAuthStateChange registers fn and returns a function that unregisters it.
func (c *Client) OnAuthStateChange(fn Listener) (unsubscribe func()) {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

// emit notifies listeners. It must not be called with c.mu held.
func (c *Client) emit(event Event, session *Session) {
	c.listenersMu.Lock()
	fns := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	log.Printf("IDENTITY_EVENT | event=%s listeners=%d", event, len(fns))
	for _, fn := range fns {
		var s *Session
		if session != nil {
			cp := *session
			s = &cp
		}
		fn(event, s)
	}
}
