// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the identity session between sprout runs.
//
// Conversations and messages are never stored locally; they are re-fetched
// from the backend. The only state on disk is the credential file written
// after sign-in, so that a later run (or another terminal) starts signed in.
//
// # Key Types
//
//   - CredentialStore: Reads and writes the credential file atomically
//   - Credentials: Access/refresh tokens plus the signed-in principal
//
// # Usage
//
//	store := storage.NewCredentialStore(path)
//	creds, err := store.Load()
//	if errors.Is(err, storage.ErrNoCredentials) {
//	    // not signed in
//	}
package storage
