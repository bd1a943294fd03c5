// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutai/sprout-tui/internal/model"
)

func newTestStore(t *testing.T) *CredentialStore {
	t.Helper()
	return NewCredentialStore(filepath.Join(t.TempDir(), "sprout", "session.json"))
}

func TestCredentialStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestCredentialStore_SaveLoad(t *testing.T) {
	store := newTestStore(t)
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	err := store.Save(&Credentials{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    expires,
		User:         model.Principal{ID: "u1", Email: "ada@example.com"},
	})
	require.NoError(t, err)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "access", creds.AccessToken)
	assert.Equal(t, "u1", creds.User.ID)
	assert.True(t, creds.ExpiresAt.Equal(expires))
}

func TestCredentialStore_SavedFileIsSealed(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&Credentials{
		AccessToken:  "access-secret",
		RefreshToken: "refresh-secret",
		User:         model.Principal{ID: "u1", Email: "ada@example.com"},
	}))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), EncryptedPrefix))
	assert.False(t, json.Valid(data), "credentials are not stored as JSON")
	assert.NotContains(t, string(data), "refresh-secret")
	assert.NotContains(t, string(data), "ada@example.com")

	keyPath := filepath.Join(filepath.Dir(store.Path()), KeyFileName)
	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A second store on the same directory shares the key.
	creds, err := NewCredentialStore(store.Path()).Load()
	require.NoError(t, err)
	assert.Equal(t, "refresh-secret", creds.RefreshToken)
}

func TestCredentialStore_LostKeyMeansSignedOut(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&Credentials{AccessToken: "a", User: model.Principal{ID: "u1"}}))
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(store.Path()), KeyFileName)))

	_, err := NewCredentialStore(store.Path()).Load()
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestCredentialStore_ReadsUnsealedFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0700))
	legacy := `{"access_token":"a","refresh_token":"r","user":{"id":"u1"}}`
	require.NoError(t, os.WriteFile(store.Path(), []byte(legacy), 0600))

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "r", creds.RefreshToken)

	// The next save seals it.
	require.NoError(t, store.Save(creds))
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.True(t, IsSealed(data))
}

func TestCredentialStore_Clear(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&Credentials{AccessToken: "a", User: model.Principal{ID: "u1"}}))

	require.NoError(t, store.Clear())
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoCredentials)

	// Idempotent
	require.NoError(t, store.Clear())
}

func TestCredentialStore_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0600))

	_, err := store.Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCredentials)
}

func TestCredentials_Expired(t *testing.T) {
	now := time.Now()
	creds := &Credentials{ExpiresAt: now.Add(30 * time.Second)}

	assert.False(t, creds.Expired(now, 0))
	assert.True(t, creds.Expired(now, time.Minute), "within skew counts as expired")
	assert.False(t, (&Credentials{}).Expired(now, time.Minute), "zero expiry never expires")
}
