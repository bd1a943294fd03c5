// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// =============================================================================
// SENDER ROLE
// =============================================================================

// SenderRole identifies who authored a transcript message.
type SenderRole string

const (
	SenderUser      SenderRole = "user"
	SenderAssistant SenderRole = "assistant"
	SenderSystem    SenderRole = "system"
)

// DisplayName returns a human-readable name for the sender.
func (r SenderRole) DisplayName() string {
	switch r {
	case SenderUser:
		return "You"
	case SenderAssistant:
		return "Sprout AI"
	case SenderSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// SEVERITY
// =============================================================================

// Severity grades an emergency flagged by the backend.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from 0 (unknown) to 4 (critical).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Alerting reports whether an emergency of this severity warrants a banner.
// Low and unknown severities are recorded but not shown.
func (s Severity) Alerting() bool {
	return s.Rank() >= SeverityMedium.Rank()
}

// =============================================================================
// MESSAGE
// =============================================================================

// Metadata is backend-supplied classification attached to assistant replies.
type Metadata struct {
	EmergencyFlag bool     `json:"emergency_flag"`
	Severity      Severity `json:"severity,omitempty"`
}

// DeliveryState tracks a locally appended user message.
// It is never sent to or received from the backend.
type DeliveryState int

const (
	// DeliverySent is the zero value: fetched or confirmed messages.
	DeliverySent DeliveryState = iota
	// DeliveryPending marks an optimistic message awaiting the backend.
	DeliveryPending
	// DeliveryFailed marks an optimistic message whose send failed.
	// The message stays in the transcript.
	DeliveryFailed
)

// Message is a single transcript entry.
type Message struct {
	ID         string     `json:"id,omitempty"`
	SessionID  string     `json:"session_id,omitempty"`
	SenderRole SenderRole `json:"sender_role"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	Metadata   *Metadata  `json:"metadata,omitempty"`

	// Client-only state
	Delivery DeliveryState `json:"-"`
	IsError  bool          `json:"-"`
}

// NewUserMessage creates an optimistic user message stamped with the client clock.
func NewUserMessage(content string, now time.Time) Message {
	return Message{
		SenderRole: SenderUser,
		Content:    content,
		CreatedAt:  now,
		Delivery:   DeliveryPending,
	}
}

// NewSystemMessage creates a locally generated system message.
func NewSystemMessage(content string, now time.Time) Message {
	return Message{
		SenderRole: SenderSystem,
		Content:    content,
		CreatedAt:  now,
	}
}

// NewErrorMessage creates a system message describing a failed operation.
func NewErrorMessage(content string, now time.Time) Message {
	msg := NewSystemMessage(content, now)
	msg.IsError = true
	return msg
}

// IsEmergency reports whether the backend flagged this message as an emergency.
func (m Message) IsEmergency() bool {
	return m.Metadata != nil && m.Metadata.EmergencyFlag
}

// Severity returns the emergency severity, or "" when none is attached.
func (m Message) Severity() Severity {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata.Severity
}

// Preview returns the first line of the content, trimmed.
func (m Message) Preview() string {
	content := strings.TrimSpace(m.Content)
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		return content[:idx]
	}
	return content
}
