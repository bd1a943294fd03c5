// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// =============================================================================
// ROLE
// =============================================================================

// Role is the access class of a principal.
// The zero value RoleNone means the role is unknown or not yet resolved.
type Role string

const (
	RoleNone     Role = ""
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
	RoleHospital Role = "hospital"
)

// AllRoles lists every assignable role in display order.
var AllRoles = []Role{RoleUser, RoleAdmin, RoleHospital}

// StaffRoles are the roles allowed to open the dashboard.
var StaffRoles = []Role{RoleAdmin, RoleHospital}

// ParseRole converts a raw role string into a Role.
// Unknown values yield RoleNone and false so callers degrade to "no role".
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleHospital:
		return RoleHospital, true
	default:
		return RoleNone, false
	}
}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin || r == RoleHospital
}

// IsStaff reports whether r may access the staff dashboard.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleHospital
}

// In reports whether r is a member of roles.
func (r Role) In(roles []Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// String returns the string representation of the role.
func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// =============================================================================
// PRINCIPAL
// =============================================================================

// Principal is the authenticated entity using the client.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// DisplayName returns the local part of the email, or the id when no email is known.
func (p Principal) DisplayName() string {
	if at := strings.IndexByte(p.Email, '@'); at > 0 {
		return p.Email[:at]
	}
	if p.Email != "" {
		return p.Email
	}
	return p.ID
}
