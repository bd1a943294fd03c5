// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dashboard keeps the staff dashboard's data fresh.
//
// The dashboard has three tabs. Entering a tab fetches its data at once and
// then on a fixed interval for as long as the tab stays active; switching
// tabs restarts the interval and Stop ends polling. Polling failures are
// logged only, so a flaky backend does not flood the screen with toasts.
//
// System statistics are simulated: the backend exposes no metrics endpoint.
package dashboard
