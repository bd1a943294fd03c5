// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/sproutai/sprout-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// EncryptedPrefix marks a sealed file.
const EncryptedPrefix = "ENC:"

const (
	// KeySize is the AES-256 key size.
	KeySize = 32

	// SaltSize is the PBKDF2 salt size.
	SaltSize = 32

	// PBKDF2Iterations is the key derivation work factor.
	PBKDF2Iterations = 600000

	secretSize = 32
	keyFileLen = SaltSize + secretSize
)

var (
	// ErrDecryptionFailed means the key file does not match the sealed data
	// or the data was modified.
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")

	// ErrInvalidCiphertext means the sealed data is malformed.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	// ErrInvalidKeyFile means the key file exists but has the wrong size.
	ErrInvalidKeyFile = errors.New("invalid key file")
)

// =============================================================================
// SEALER
// =============================================================================

// Sealer encrypts small files with AES-256-GCM. The key is derived with
// PBKDF2-SHA-256 from a random secret and salt kept in an owner-only key
// file. The key file is created on the first Seal.
type Sealer struct {
	keyPath string

	mu   sync.Mutex
	aead cipher.AEAD
}

// NewSealer creates a sealer whose key lives at keyPath.
func NewSealer(keyPath string) *Sealer {
	return &Sealer{keyPath: keyPath}
}

// KeyPath returns the key file location.
func (s *Sealer) KeyPath() string {
	return s.keyPath
}

// Seal encrypts plaintext and returns EncryptedPrefix followed by
// base64(nonce || ciphertext || tag).
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	aead, err := s.cipher(true)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)

	out := make([]byte, len(EncryptedPrefix)+base64.StdEncoding.EncodedLen(len(sealed)))
	copy(out, EncryptedPrefix)
	base64.StdEncoding.Encode(out[len(EncryptedPrefix):], sealed)
	return out, nil
}

// Open reverses Seal. A missing key file is ErrDecryptionFailed.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	if !IsSealed(data) {
		return nil, ErrInvalidCiphertext
	}
	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data[len(EncryptedPrefix):])))
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	aead, err := s.cipher(false)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrDecryptionFailed
		}
		return nil, err
	}
	if len(raw) < aead.NonceSize() {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// IsSealed reports whether data was produced by Seal.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(EncryptedPrefix))
}

// cipher returns the cached AEAD, loading the key file (or creating it when
// create is set) on first use.
func (s *Sealer) cipher(create bool) (cipher.AEAD, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aead != nil {
		return s.aead, nil
	}

	material, err := os.ReadFile(s.keyPath)
	if errors.Is(err, os.ErrNotExist) && create {
		material, err = newKeyMaterial()
		if err != nil {
			return nil, err
		}
		if err := util.AtomicWriteFileWithDir(s.keyPath, material, 0600, 0700); err != nil {
			return nil, fmt.Errorf("failed to save key file: %w", err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	defer zeroBytes(material)

	if len(material) != keyFileLen {
		return nil, ErrInvalidKeyFile
	}

	key := DeriveKey(material[SaltSize:], material[:SaltSize])
	defer zeroBytes(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	s.aead = aead
	return aead, nil
}

// =============================================================================
// KEY DERIVATION
// =============================================================================

// DeriveKey derives an AES-256 key from secret and salt with PBKDF2-SHA-256.
func DeriveKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, PBKDF2Iterations, KeySize, sha256.New)
}

// zeroBytes overwrites key material once it is no longer needed.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func newKeyMaterial() ([]byte, error) {
	material := make([]byte, keyFileLen)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}
	return material, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return gcm, nil
}
