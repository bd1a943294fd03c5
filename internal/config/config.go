// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for sprout.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v9"
	"github.com/hashicorp/go-multierror"

	"github.com/sproutai/sprout-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete sprout configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Identity  IdentityConfig  `toml:"identity"`
	UI        UIConfig        `toml:"ui"`
	Dashboard DashboardConfig `toml:"dashboard"`
	Storage   StorageConfig   `toml:"storage"`
}

// APIConfig configures the Sprout backend client.
type APIConfig struct {
	// BaseURL is the root of the backend REST API (e.g. http://localhost:8000/api)
	BaseURL string `toml:"base_url" env:"SPROUT_API_URL"`
	// TimeoutSecs bounds every backend request
	TimeoutSecs int `toml:"timeout_secs" env:"SPROUT_API_TIMEOUT_SECS"`
	// RateLimit is the sustained request rate per second (0 = unlimited)
	RateLimit float64 `toml:"rate_limit" env:"SPROUT_API_RATE_LIMIT"`
	// RateBurst is the number of requests allowed in a burst
	RateBurst int `toml:"rate_burst" env:"SPROUT_API_RATE_BURST"`
}

// IdentityConfig configures the identity provider (GoTrue-compatible).
type IdentityConfig struct {
	// URL is the identity project URL; /auth/v1 and /rest/v1 are appended
	URL string `toml:"url" env:"SPROUT_IDENTITY_URL"`
	// AnonKey is the public API key sent as the apikey header
	AnonKey string `toml:"anon_key" env:"SPROUT_IDENTITY_ANON_KEY"`
	// RoleTable is the table holding each user's role row
	RoleTable string `toml:"role_table" env:"SPROUT_IDENTITY_ROLE_TABLE"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	// ToastDurationMs is how long a toast stays visible
	ToastDurationMs int `toml:"toast_duration_ms" env:"SPROUT_TOAST_DURATION_MS"`
	// Theme is "auto", "dark" or "light"
	Theme string `toml:"theme" env:"SPROUT_THEME"`
	// SearchDebounceMs delays remedy searches while typing
	SearchDebounceMs int `toml:"search_debounce_ms" env:"SPROUT_SEARCH_DEBOUNCE_MS"`
}

// DashboardConfig configures the staff dashboard.
type DashboardConfig struct {
	// PollIntervalSecs is the refresh period of the active tab
	PollIntervalSecs int `toml:"poll_interval_secs" env:"SPROUT_POLL_INTERVAL_SECS"`
}

// StorageConfig configures local files.
type StorageConfig struct {
	// DataDir holds the credential file and the log (default ~/.sprout)
	DataDir string `toml:"data_dir" env:"SPROUT_DATA_DIR"`
}

// =============================================================================
// DURATION ACCESSORS
// =============================================================================

// Timeout returns the per-request timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ToastDuration returns the toast auto-dismiss duration.
func (c UIConfig) ToastDuration() time.Duration {
	return time.Duration(c.ToastDurationMs) * time.Millisecond
}

// SearchDebounce returns the remedy search debounce delay.
func (c UIConfig) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMs) * time.Millisecond
}

// PollInterval returns the dashboard polling period.
func (c DashboardConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     "http://localhost:8000/api",
			TimeoutSecs: 60,
			RateLimit:   5,
			RateBurst:   10,
		},
		Identity: IdentityConfig{
			URL:       "http://localhost:54321",
			RoleTable: "users",
		},
		UI: UIConfig{
			ToastDurationMs:  4000,
			Theme:            "auto",
			SearchDebounceMs: 300,
		},
		Dashboard: DashboardConfig{
			PollIntervalSecs: 10,
		},
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = d.API.RateBurst
	}
	if c.Identity.URL == "" {
		c.Identity.URL = d.Identity.URL
	}
	if c.Identity.RoleTable == "" {
		c.Identity.RoleTable = d.Identity.RoleTable
	}
	if c.UI.ToastDurationMs == 0 {
		c.UI.ToastDurationMs = d.UI.ToastDurationMs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.SearchDebounceMs == 0 {
		c.UI.SearchDebounceMs = d.UI.SearchDebounceMs
	}
	if c.Dashboard.PollIntervalSecs == 0 {
		c.Dashboard.PollIntervalSecs = d.Dashboard.PollIntervalSecs
	}
	c.API.BaseURL = strings.TrimSuffix(c.API.BaseURL, "/")
	c.Identity.URL = strings.TrimSuffix(c.Identity.URL, "/")
}

// =============================================================================
// PATHS
// =============================================================================

// EnvConfigPath names the variable that overrides the config file location.
const EnvConfigPath = "SPROUT_CONFIG"

// DefaultDataDir returns ~/.sprout.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".sprout"), nil
}

// Path returns the config file location.
func Path() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the configured data directory, defaulting to ~/.sprout.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	return DefaultDataDir()
}

// CredentialsPath returns the identity session file location.
func (c *Config) CredentialsPath() (string, error) {
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// LogPath returns the log file location.
func (c *Config) LogPath() (string, error) {
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sprout.log"), nil
}

// ExportDir is where the TUI saves exported chats.
func (c *Config) ExportDir() (string, error) {
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "exports"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config file at Path, if present, then applies environment
// overrides, defaults and validation. A missing file is not an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile returns the defaults overlaid with the file at path, without
// environment overrides or validation. It is what "config set" edits, so
// the environment never leaks into the saved file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}
	return cfg, nil
}

// ApplyEnvOverrides overlays SPROUT_* environment variables.
// Unset variables leave the current value untouched.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Save writes cfg as TOML to path with owner-only permissions.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if err := validateURL("api.base_url", c.API.BaseURL); err != nil {
		result = multierror.Append(result, err)
	}
	if err := validateURL("identity.url", c.Identity.URL); err != nil {
		result = multierror.Append(result, err)
	}
	if c.API.TimeoutSecs < 0 {
		result = multierror.Append(result, ValidationError{"api.timeout_secs", "must not be negative"})
	}
	if c.API.RateLimit < 0 {
		result = multierror.Append(result, ValidationError{"api.rate_limit", "must not be negative"})
	}
	if c.API.RateBurst < 0 {
		result = multierror.Append(result, ValidationError{"api.rate_burst", "must not be negative"})
	}
	if c.UI.ToastDurationMs < 0 {
		result = multierror.Append(result, ValidationError{"ui.toast_duration_ms", "must not be negative"})
	}
	switch c.UI.Theme {
	case "", "auto", "dark", "light":
	default:
		result = multierror.Append(result, ValidationError{"ui.theme", fmt.Sprintf("unknown theme %q (auto, dark, light)", c.UI.Theme)})
	}
	if c.Dashboard.PollIntervalSecs < 0 {
		result = multierror.Append(result, ValidationError{"dashboard.poll_interval_secs", "must not be negative"})
	}

	return result.ErrorOrNil()
}

func validateURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ValidationError{field, err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{field, fmt.Sprintf("scheme must be http or https, got %q", u.Scheme)}
	}
	if u.Host == "" {
		return ValidationError{field, "missing host"}
	}
	return nil
}

// =============================================================================
// KEY ACCESS
// =============================================================================

// ErrUnknownKey is returned by Get and Set for keys outside GetAllKeys.
var ErrUnknownKey = errors.New("unknown config key")

// field binds a dotted key to its storage.
type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func intField(p func(c *Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("expected integer: %w", err)
			}
			*p(c) = n
			return nil
		},
	}
}

func stringField(p func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

var fields = map[string]field{
	"api.base_url":     stringField(func(c *Config) *string { return &c.API.BaseURL }),
	"api.timeout_secs": intField(func(c *Config) *int { return &c.API.TimeoutSecs }),
	"api.rate_limit": {
		get: func(c *Config) string { return strconv.FormatFloat(c.API.RateLimit, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("expected number: %w", err)
			}
			c.API.RateLimit = f
			return nil
		},
	},
	"api.rate_burst":               intField(func(c *Config) *int { return &c.API.RateBurst }),
	"identity.url":                 stringField(func(c *Config) *string { return &c.Identity.URL }),
	"identity.anon_key":            stringField(func(c *Config) *string { return &c.Identity.AnonKey }),
	"identity.role_table":          stringField(func(c *Config) *string { return &c.Identity.RoleTable }),
	"ui.toast_duration_ms":         intField(func(c *Config) *int { return &c.UI.ToastDurationMs }),
	"ui.theme":                     stringField(func(c *Config) *string { return &c.UI.Theme }),
	"ui.search_debounce_ms":        intField(func(c *Config) *int { return &c.UI.SearchDebounceMs }),
	"dashboard.poll_interval_secs": intField(func(c *Config) *int { return &c.Dashboard.PollIntervalSecs }),
	"storage.data_dir":             stringField(func(c *Config) *string { return &c.Storage.DataDir }),
}

// GetAllKeys returns every settable key in sorted order.
func GetAllKeys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the string form of a dotted key such as "api.base_url".
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return f.get(c), nil
}

// Set parses value into the field named by key and re-validates.
// The config is left unchanged when the new value is invalid.
func (c *Config) Set(key, value string) error {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	candidate := *c
	if err := f.set(&candidate, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := candidate.Validate(); err != nil {
		return err
	}
	*c = candidate
	return nil
}

// Redacted returns a copy safe for display: the anon key is masked.
func (c *Config) Redacted() *Config {
	clone := *c
	if clone.Identity.AnonKey != "" {
		clone.Identity.AnonKey = fmt.Sprintf("[REDACTED, length=%d]", len(clone.Identity.AnonKey))
	}
	return &clone
}
