// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s := NewSealer(filepath.Join(t.TempDir(), "keys", KeyFileName))

	sealed, err := s.Seal([]byte("refresh-token"))
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, string(sealed), "refresh-token")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token", string(plain))

	// Fresh nonce per seal.
	again, err := s.Seal([]byte("refresh-token"))
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)
}

func TestSealer_TamperedData(t *testing.T) {
	s := NewSealer(filepath.Join(t.TempDir(), KeyFileName))
	sealed, err := s.Seal([]byte("secret"))
	require.NoError(t, err)

	tampered := append([]byte(nil), sealed...)
	last := len(tampered) - 3
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}
	_, err = s.Open(tampered)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = s.Open([]byte("ENC:not base64!"))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = s.Open([]byte(`{"plain":"json"}`))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestSealer_OtherKeyCannotOpen(t *testing.T) {
	sealed, err := NewSealer(filepath.Join(t.TempDir(), KeyFileName)).Seal([]byte("secret"))
	require.NoError(t, err)

	other := NewSealer(filepath.Join(t.TempDir(), KeyFileName))
	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed, "missing key file")

	_, err = other.Seal([]byte("x"))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed, "different key")
}

func TestSealer_InvalidKeyFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), KeyFileName)
	require.NoError(t, os.WriteFile(keyPath, []byte("short"), 0600))

	_, err := NewSealer(keyPath).Seal([]byte("x"))
	assert.ErrorIs(t, err, ErrInvalidKeyFile)
}

func TestDeriveKey(t *testing.T) {
	salt := make([]byte, SaltSize)
	a := DeriveKey([]byte("secret"), salt)
	assert.Len(t, a, KeySize)
	assert.Equal(t, a, DeriveKey([]byte("secret"), salt))

	salt[0] = 1
	assert.NotEqual(t, a, DeriveKey([]byte("secret"), salt))
}
