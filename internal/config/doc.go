// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for sprout.
//
// Configuration is a TOML file with built-in defaults, environment variable
// overrides and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Sprout backend endpoint and client limits
//   - IdentityConfig: Identity provider endpoint and public key
//   - UIConfig, DashboardConfig, StorageConfig: Client behaviour
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (SPROUT_*)
//   - $SPROUT_CONFIG or ~/.sprout/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.API.Timeout()
package config
