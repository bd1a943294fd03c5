// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the domain types shared by the Sprout AI client.
//
// These types mirror the JSON shapes returned by the Sprout backend and the
// identity provider. They carry no behaviour beyond small helpers for
// classification and display.
//
// # Key Types
//
//   - Principal: The authenticated user (id and email)
//   - Role: Access class gating dashboard visibility (user, admin, hospital)
//   - ChatSession: A conversation thread with the assistant
//   - Message: A single transcript entry, optionally carrying emergency metadata
//   - Emergency, UserProfile: Dashboard records for admin/hospital staff
//   - Remedy: A natural-remedies knowledge base entry
//
// # Usage
//
//	role, ok := model.ParseRole("hospital")
//	if ok && role.IsStaff() {
//	    // show dashboard navigation
//	}
package model
