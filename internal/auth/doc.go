// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds the identity session state shared by the client.
//
// The Store answers three questions for the rest of the program: who is
// signed in, what role they have, and whether that is still being worked out.
// It follows the identity provider's change notifications so the answers stay
// current after sign-in, sign-out, token refresh or a sign-in from another
// terminal.
//
// Role lookup failures never surface as errors: the principal simply has no
// role, which restricts access rather than granting it.
package auth
