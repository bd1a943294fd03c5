// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// DEFAULTS TESTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 4*time.Second, cfg.UI.ToastDuration())
	assert.Equal(t, 10*time.Second, cfg.Dashboard.PollInterval())
	assert.Equal(t, 60*time.Second, cfg.API.Timeout())
	assert.Equal(t, "users", cfg.Identity.RoleTable)
	require.NoError(t, cfg.Validate())
}

func TestSetDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{API: APIConfig{BaseURL: "https://api.example.com/"}}
	cfg.SetDefaults()

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL, "trailing slash should be trimmed")
	assert.Equal(t, 4000, cfg.UI.ToastDurationMs)
	assert.Equal(t, 10, cfg.Dashboard.PollIntervalSecs)
	assert.Equal(t, "auto", cfg.UI.Theme)
}

// =============================================================================
// LOADING TESTS
// =============================================================================

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().API.BaseURL, cfg.API.BaseURL)
}

func TestLoadFromPath_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
base_url = "https://sprout.example.com/api"

[dashboard]
poll_interval_secs = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "https://sprout.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Dashboard.PollInterval())
	assert.Equal(t, 4000, cfg.UI.ToastDurationMs, "unset keys keep defaults")
}

func TestLoadFromPath_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\nbase_url = \"https://file.example.com\"\n"), 0600))

	t.Setenv("SPROUT_API_URL", "https://env.example.com")
	t.Setenv("SPROUT_TOAST_DURATION_MS", "1500")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.UI.ToastDuration())
}

func TestLoadFile_IgnoresEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\nbase_url = \"https://file.example.com\"\n"), 0600))
	t.Setenv("SPROUT_API_URL", "https://env.example.com")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com", cfg.API.BaseURL)
}

func TestLoadFromPath_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api\nbase_url="), 0600))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Identity.AnonKey = "anon-123"

	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "anon-123", loaded.Identity.AnonKey)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "ftp://example.com"
	cfg.UI.Theme = "neon"
	cfg.Dashboard.PollIntervalSecs = -1

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"api.base_url", "ui.theme", "dashboard.poll_interval_secs"} {
		assert.Contains(t, err.Error(), want)
	}

	var verr ValidationError
	assert.True(t, errors.As(err, &verr))
}

// =============================================================================
// KEY ACCESS TESTS
// =============================================================================

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("dashboard.poll_interval_secs", "30"))
	got, err := cfg.Get("dashboard.poll_interval_secs")
	require.NoError(t, err)
	assert.Equal(t, "30", got)

	require.NoError(t, cfg.Set("api.rate_limit", "2.5"))
	assert.Equal(t, 2.5, cfg.API.RateLimit)
}

func TestSet_RejectsInvalidWithoutMutation(t *testing.T) {
	cfg := Default()

	err := cfg.Set("ui.theme", "neon")
	require.Error(t, err)
	assert.Equal(t, "auto", cfg.UI.Theme)

	err = cfg.Set("api.timeout_secs", "soon")
	require.Error(t, err)
	assert.Equal(t, 60, cfg.API.TimeoutSecs)
}

func TestGet_UnknownKey(t *testing.T) {
	_, err := Default().Get("api.nope")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestGetAllKeys_Sorted(t *testing.T) {
	keys := GetAllKeys()
	require.NotEmpty(t, keys)
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i])
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Identity.AnonKey = "secret"
	red := cfg.Redacted()

	assert.NotContains(t, red.Identity.AnonKey, "secret")
	assert.Equal(t, "secret", cfg.Identity.AnonKey, "original must be untouched")
}
