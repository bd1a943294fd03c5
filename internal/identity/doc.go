// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity is the client for the GoTrue-compatible identity provider.
//
// It signs users in and out, registers new accounts with profile metadata,
// refreshes expired access tokens and looks up each user's role row. The
// current session is persisted through internal/storage so it survives
// restarts, and the credential file is watched so that a sign-in or sign-out
// from another sprout process is seen by a running TUI.
//
// # Key Types
//
//   - Client: Provider implementation backed by GoTrue and PostgREST
//   - Session: The signed-in principal and its tokens
//   - Event: Kind of auth state change delivered to listeners
//   - AuthError: Error returned by the provider, carrying its message text
package identity
