// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP adapter for the Sprout backend.
//
// Every request carries the signed-in user's bearer token, obtained from a
// TokenSource on each call so refreshed tokens are picked up transparently.
// Failed calls are never retried; retrying is always a user action.
//
// # Key Types
//
//   - Client: Typed calls for chat, dashboard and remedies endpoints
//   - TokenSource: Supplies the current access token
//   - APIError: Non-2xx response with the backend's detail message
//
// # Errors
//
// Status codes with a fixed meaning map to sentinels that can be matched
// with errors.Is:
//
//	_, err := client.ListSessions(ctx)
//	if errors.Is(err, api.ErrUnauthorized) {
//	    // session expired on the backend
//	}
package api
