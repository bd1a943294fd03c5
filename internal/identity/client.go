// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity is the client for the GoTrue-compatible identity provider.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sproutai/sprout-tui/internal/config"
	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/storage"
	"github.com/sproutai/sprout-tui/internal/util"
)

const (
	// DefaultTimeout bounds every identity request.
	DefaultTimeout = 30 * time.Second

	// refreshSkew refreshes tokens slightly before they expire.
	refreshSkew = 30 * time.Second
)

var (
	// ErrNotConfigured indicates the identity URL is missing.
	ErrNotConfigured = errors.New("identity provider not configured")

	// ErrNoSession is returned by operations that need a signed-in user.
	ErrNoSession = errors.New("no active session")

	// ErrRoleNotFound indicates the role row does not exist.
	ErrRoleNotFound = errors.New("role not found")
)

// Session is the signed-in principal and its tokens.
type Session = storage.Credentials

// AuthError is an error reported by the identity provider.
// Message is the provider's own text, suitable for showing to the user.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return e.Message
}

// authErrorResponse covers the error shapes GoTrue has used across versions.
type authErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error_code"`
}

func (r authErrorResponse) toError(status int) *AuthError {
	e := &AuthError{Status: status, Code: r.ErrorCode}
	if e.Code == "" {
		e.Code = r.Error
	}
	switch {
	case r.ErrorDescription != "":
		e.Message = r.ErrorDescription
	case r.Msg != "":
		e.Message = r.Msg
	case r.Message != "":
		e.Message = r.Message
	case r.Error != "":
		e.Message = r.Error
	default:
		e.Message = http.StatusText(status)
	}
	return e
}

// tokenResponse is returned by the token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (t tokenResponse) session(now time.Time) *Session {
	s := &Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         model.Principal{ID: t.User.ID, Email: t.User.Email},
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0).UTC()
	case t.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	}
	return s
}

// SignUpParams is the registration form.
type SignUpParams struct {
	Email    string
	Password string
	FullName string
	Role     model.Role
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the identity provider and owns the persisted session.
type Client struct {
	baseURL    string
	anonKey    string
	roleTable  string
	httpClient *http.Client
	store      *storage.CredentialStore
	now        func() time.Time

	// mu guards the cached session; it is held across refresh so concurrent
	// callers share a single refresh round-trip.
	mu      sync.Mutex
	session *Session
	loaded  bool

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int

	watcher *watcher
}

// NewClient creates an identity client persisting sessions to store.
func NewClient(cfg config.IdentityConfig, store *storage.CredentialStore) *Client {
	table := cfg.RoleTable
	if table == "" {
		table = "users"
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		anonKey:    cfg.AnonKey,
		roleTable:  table,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		store:      store,
		now:        time.Now,
		listeners:  make(map[int]Listener),
	}
}

// Session returns the current session, refreshing the access token when it
// is about to expire. A nil session with a nil error means signed out.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	c.mu.Lock()

	if !c.loaded {
		creds, err := c.store.Load()
		switch {
		case err == nil:
			c.session = creds
		case errors.Is(err, storage.ErrNoCredentials):
			c.session = nil
		default:
			c.mu.Unlock()
			return nil, err
		}
		c.loaded = true
	}

	if c.session == nil {
		c.mu.Unlock()
		return nil, nil
	}
	if !c.session.Expired(c.now(), refreshSkew) {
		s := *c.session
		c.mu.Unlock()
		return &s, nil
	}

	refreshed, err := c.refreshLocked(ctx, c.session.RefreshToken)
	if err != nil {
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			// Network trouble: keep the session for a later attempt.
			c.mu.Unlock()
			return nil, err
		}
		log.Printf("IDENTITY_REFRESH_REJECTED | user=%s error=%v", c.session.User.ID, err)
		c.session = nil
		if clearErr := c.store.Clear(); clearErr != nil {
			log.Printf("IDENTITY_CLEAR_FAILED | error=%v", clearErr)
		}
		c.mu.Unlock()
		c.emit(EventSignedOut, nil)
		return nil, nil
	}

	c.session = refreshed
	if err := c.store.Save(refreshed); err != nil {
		log.Printf("IDENTITY_SAVE_FAILED | error=%v", err)
	}
	s := *refreshed
	c.mu.Unlock()

	log.Printf("IDENTITY_TOKEN_REFRESHED | user=%s", s.User.ID)
	c.emit(EventTokenRefreshed, &s)
	return &s, nil
}

// AccessToken returns the current access token, or "" when signed out.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	s, err := c.Session(ctx)
	if err != nil || s == nil {
		return "", err
	}
	return s.AccessToken, nil
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	in := map[string]string{"email": strings.TrimSpace(email), "password": password}
	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=password", c.anonKey, in, &resp); err != nil {
		log.Printf("IDENTITY_SIGNIN_FAILED | email=%s error=%v", email, err)
		return nil, err
	}

	s := resp.session(c.now())
	if err := c.setSession(s); err != nil {
		return nil, err
	}
	log.Printf("IDENTITY_SIGNED_IN | user=%s", s.User.ID)

	out := *s
	c.emit(EventSignedIn, &out)
	return &out, nil
}

// SignUp registers an account. The full name and role travel as user
// metadata; the provider's trigger copies them into the role table.
// The new user is not signed in.
func (c *Client) SignUp(ctx context.Context, params SignUpParams) error {
	in := map[string]any{
		"email":    strings.TrimSpace(params.Email),
		"password": params.Password,
		"data": map[string]string{
			"full_name": strings.TrimSpace(params.FullName),
			"role":      string(params.Role),
		},
	}
	if err := c.post(ctx, "/auth/v1/signup", c.anonKey, in, nil); err != nil {
		log.Printf("IDENTITY_SIGNUP_FAILED | email=%s error=%v", params.Email, err)
		return err
	}
	log.Printf("IDENTITY_SIGNED_UP | email=%s role=%s", params.Email, params.Role)
	return nil
}

// SignOut revokes the session on the provider and forgets it locally.
// The local session is removed even when the provider call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.loaded = true
	clearErr := c.store.Clear()
	c.mu.Unlock()

	var remoteErr error
	if s != nil && s.AccessToken != "" {
		remoteErr = c.post(ctx, "/auth/v1/logout", s.AccessToken, nil, nil)
		if remoteErr != nil {
			log.Printf("IDENTITY_SIGNOUT_REMOTE_FAILED | user=%s error=%v", s.User.ID, remoteErr)
		}
	}
	log.Printf("IDENTITY_SIGNED_OUT")
	c.emit(EventSignedOut, nil)

	if clearErr != nil {
		return clearErr
	}
	return remoteErr
}

// LookupRole reads the role column of the user's row.
func (c *Client) LookupRole(ctx context.Context, userID string) (model.Role, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return model.RoleNone, err
	}
	if token == "" {
		return model.RoleNone, ErrNoSession
	}

	q := url.Values{"select": {"role"}, "id": {"eq." + userID}}
	var rows []struct {
		Role string `json:"role"`
	}
	path := "/rest/v1/" + url.PathEscape(c.roleTable) + "?" + q.Encode()
	if err := c.request(ctx, http.MethodGet, path, token, nil, &rows); err != nil {
		return model.RoleNone, err
	}
	if len(rows) == 0 {
		return model.RoleNone, ErrRoleNotFound
	}
	role, ok := model.ParseRole(rows[0].Role)
	if !ok {
		return model.RoleNone, fmt.Errorf("unknown role %q", rows[0].Role)
	}
	return role, nil
}

// setSession caches and persists s.
func (c *Client) setSession(s *Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	c.loaded = true
	return c.store.Save(s)
}

// refreshLocked exchanges a refresh token. c.mu must be held.
func (c *Client) refreshLocked(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, &AuthError{Status: http.StatusUnauthorized, Message: "session expired"}
	}
	in := map[string]string{"refresh_token": refreshToken}
	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=refresh_token", c.anonKey, in, &resp); err != nil {
		return nil, err
	}
	return resp.session(c.now()), nil
}

// =============================================================================
// HTTP
// =============================================================================

func (c *Client) post(ctx context.Context, path, bearer string, in, out any) error {
	return c.request(ctx, http.MethodPost, path, bearer, in, out)
}

func (c *Client) request(ctx context.Context, method, path, bearer string, in, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := util.ReadLimited(resp.Body, util.MaxResponseSize)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er authErrorResponse
		_ = json.Unmarshal(data, &er)
		return er.toError(resp.StatusCode)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse identity response: %w", err)
	}
	return nil
}
