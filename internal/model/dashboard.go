// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// EmergencyStatus is the triage state of an emergency record.
type EmergencyStatus string

const (
	StatusPending      EmergencyStatus = "pending"
	StatusAcknowledged EmergencyStatus = "acknowledged"
	StatusResolved     EmergencyStatus = "resolved"
)

// ParseEmergencyStatus validates a raw status string.
func ParseEmergencyStatus(s string) (EmergencyStatus, bool) {
	switch st := EmergencyStatus(s); st {
	case StatusPending, StatusAcknowledged, StatusResolved:
		return st, true
	default:
		return "", false
	}
}

// UserProfile is a registered user as listed in the patient directory.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Initial returns the first letter of the full name, or fallback.
func (u *UserProfile) Initial(fallback string) string {
	if u == nil {
		return fallback
	}
	for _, r := range u.FullName {
		return string(r)
	}
	return fallback
}

// Emergency is an incident raised by the backend from a flagged conversation.
type Emergency struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	SessionID   string          `json:"session_id,omitempty"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description"`
	Status      EmergencyStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`

	// Users is the joined profile of the reporting patient, when available.
	Users *UserProfile `json:"users,omitempty"`
}

// PatientName returns the joined patient's name or "Unknown".
func (e Emergency) PatientName() string {
	if e.Users == nil || e.Users.FullName == "" {
		return "Unknown"
	}
	return e.Users.FullName
}

// SystemStats is the system tab summary.
type SystemStats struct {
	CPU    int    `json:"cpu"`
	Memory int    `json:"memory"`
	DB     string `json:"db"`
}
