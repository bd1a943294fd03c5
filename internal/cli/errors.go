// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"net"

	"github.com/sproutai/sprout-tui/internal/api"
	"github.com/sproutai/sprout-tui/internal/identity"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitNotFound     = 7
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrStaffOnly is returned by dashboard commands for patient accounts.
	ErrStaffOnly = errors.New("this command requires an admin or hospital account")

	// ErrMissingInput is returned when a required value was not given and
	// stdin is not a terminal to prompt on.
	ErrMissingInput = errors.New("missing required input")
)

// ConfigError wraps a failure to load or validate the configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// UsageError is a malformed invocation.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		cfgErr   *ConfigError
		usageErr *UsageError
		authErr  *identity.AuthError
		netErr   net.Error
	)
	switch {
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.As(err, &cfgErr), errors.Is(err, identity.ErrNotConfigured):
		return ExitConfigError
	case errors.As(err, &authErr),
		errors.Is(err, api.ErrNotAuthenticated),
		errors.Is(err, api.ErrUnauthorized),
		errors.Is(err, api.ErrForbidden),
		errors.Is(err, ErrStaffOnly):
		return ExitAuthError
	case errors.Is(err, api.ErrNotFound):
		return ExitNotFound
	case errors.As(err, &netErr):
		return ExitNetworkError
	}
	return ExitGeneralError
}
