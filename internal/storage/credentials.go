// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the identity session between sprout runs.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/util"
)

// ErrNoCredentials is returned by Load when no session has been saved.
var ErrNoCredentials = errors.New("no stored credentials")

// =============================================================================
// CREDENTIALS
// =============================================================================

// Credentials is the persisted identity session.
type Credentials struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    time.Time       `json:"expires_at"`
	User         model.Principal `json:"user"`
}

// Expired reports whether the access token is past (or within skew of) its expiry.
func (c *Credentials) Expired(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(c.ExpiresAt)
}

// =============================================================================
// CREDENTIAL STORE
// =============================================================================

// KeyFileName is the sealing key kept next to the credential file.
const KeyFileName = "master.key"

// CredentialStore reads and writes a single credential file. The file is
// sealed with a key from KeyFileName in the same directory.
type CredentialStore struct {
	mu     sync.Mutex
	path   string
	sealer *Sealer
}

// NewCredentialStore creates a store backed by path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{
		path:   path,
		sealer: NewSealer(filepath.Join(filepath.Dir(path), KeyFileName)),
	}
}

// Path returns the credential file location.
func (s *CredentialStore) Path() string {
	return s.path
}

// Load reads the stored credentials.
// A missing or empty file yields ErrNoCredentials, as does a sealed file
// that the key no longer opens. Unsealed files from older versions are read
// as is and sealed on the next Save.
func (s *CredentialStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoCredentials
	}

	if IsSealed(data) {
		plain, err := s.sealer.Open(data)
		if err != nil {
			if errors.Is(err, ErrDecryptionFailed) || errors.Is(err, ErrInvalidKeyFile) {
				log.Printf("CREDENTIALS_UNREADABLE | path=%s error=%v", s.path, err)
				return nil, ErrNoCredentials
			}
			return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
		}
		defer zeroBytes(plain)
		data = plain
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if creds.AccessToken == "" || creds.User.ID == "" {
		return nil, ErrNoCredentials
	}
	return &creds, nil
}

// Save seals creds and writes them with owner-only permissions.
func (s *CredentialStore) Save(creds *Credentials) error {
	if creds == nil {
		return s.Clear()
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	defer zeroBytes(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.sealer.Seal(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	return util.AtomicWriteFileWithDir(s.path, sealed, 0600, 0700)
}

// Clear removes the credential file. Clearing an absent file is not an error.
func (s *CredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
