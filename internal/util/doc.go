// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across the sprout client.
//
// # Key Functions
//
// String Utilities:
//   - FirstRunes: NFC-normalized prefix of at most n characters
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: Display-width aware truncation for terminal columns
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// HTTP:
//   - ReadLimited: Size-capped body reads
package util
