// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/sproutai/sprout-tui/internal/api"
	"github.com/sproutai/sprout-tui/internal/auth"
	"github.com/sproutai/sprout-tui/internal/config"
	"github.com/sproutai/sprout-tui/internal/dashboard"
	"github.com/sproutai/sprout-tui/internal/export"
	"github.com/sproutai/sprout-tui/internal/identity"
	"github.com/sproutai/sprout-tui/internal/remedies"
	"github.com/sproutai/sprout-tui/internal/router"
	"github.com/sproutai/sprout-tui/internal/session"
	"github.com/sproutai/sprout-tui/internal/storage"
	"github.com/sproutai/sprout-tui/internal/transcript"
	"github.com/sproutai/sprout-tui/internal/ui/components"
)

// Toast messages shown by the cross-store flows.
const (
	MsgWelcomeBack      = "Welcome back!"
	MsgRegistered       = "Registration successful! Please log in."
	MsgChatDeleted      = "Chat deleted"
	MsgChatDeleteFailed = "Failed to delete chat"
	MsgSignOutFailed    = "Failed to sign out"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("app closed")

// App is the composition root.
type App struct {
	Config      *config.Config
	Credentials *storage.CredentialStore
	Identity    *identity.Client
	API         *api.Client
	Auth        *auth.Store
	Sessions    *session.Registry
	Toasts      *components.ToastQueue
	History     *router.History
	Transcript  *transcript.Controller
	Dashboard   *dashboard.Poller
	Remedies    *remedies.Browser

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	bound       string
	unsubscribe func()
	closed      bool
}

// Option configures an App.
type Option func(*options)

type options struct {
	httpClient *http.Client
	startPath  string
}

// WithHTTPClient sets the HTTP client used for backend requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithStartPath sets the initial navigation entry (default "/").
func WithStartPath(path string) Option {
	return func(o *options) { o.startPath = path }
}

// New builds an App from cfg. Nothing touches the network until Start.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{startPath: router.PathHome}
	for _, opt := range opts {
		opt(&o)
	}

	credPath, err := cfg.CredentialsPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(credPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	creds := storage.NewCredentialStore(credPath)
	idc := identity.NewClient(cfg.Identity, creds)

	var apiOpts []api.Option
	if o.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(o.httpClient))
	}
	client := api.NewClient(cfg.API, idc, apiOpts...)

	toasts := components.NewToastQueue(cfg.UI.ToastDuration())
	history := router.NewHistory(o.startPath)
	registry := session.NewRegistry(client)

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:      cfg,
		Credentials: creds,
		Identity:    idc,
		API:         client,
		Auth:        auth.NewStore(idc),
		Sessions:    registry,
		Toasts:      toasts,
		History:     history,
		Transcript:  transcript.NewController(client, registry, history),
		Dashboard:   dashboard.NewPoller(client, toasts, cfg.Dashboard.PollInterval()),
		Remedies:    remedies.NewBrowser(client),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start resolves the stored session and begins following auth changes,
// including sign-ins and sign-outs made by other sprout processes.
// An error from resolving the session leaves the App signed out but usable.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.unsubscribe == nil {
		a.unsubscribe = a.Auth.Subscribe(a.bindSessions)
	}
	a.mu.Unlock()

	if err := a.Identity.Watch(a.ctx); err != nil {
		log.Printf("APP_WATCH_FAILED | error=%v", err)
	}

	if err := a.Auth.Init(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	return nil
}

// bindSessions fetches the session list when a principal appears and
// clears it when the principal goes away.
func (a *App) bindSessions(state auth.State) {
	if state.Loading {
		return
	}
	id := state.PrincipalID()

	a.mu.Lock()
	if a.closed || id == a.bound {
		a.mu.Unlock()
		return
	}
	a.bound = id
	if id != "" {
		a.wg.Add(1)
	}
	a.mu.Unlock()

	if id == "" {
		log.Printf("APP_SESSIONS_CLEARED")
		a.Sessions.Clear()
		a.Dashboard.Stop()
		return
	}

	log.Printf("APP_SESSIONS_BIND | user=%s", id)
	go func() {
		defer a.wg.Done()
		if err := a.Sessions.Fetch(a.ctx); err != nil {
			log.Printf("APP_SESSIONS_FETCH_FAILED | user=%s error=%v", id, err)
		}
	}()
}

// =============================================================================
// FLOWS
// =============================================================================

// Login signs in and navigates to the chat page. Failures are toasted with
// the provider's message.
func (a *App) Login(ctx context.Context, email, password string) error {
	if err := a.Auth.SignIn(ctx, email, password); err != nil {
		a.Toasts.Error(UserMessage(err))
		return err
	}
	a.Toasts.Success(MsgWelcomeBack)
	a.History.Push(router.PathChat)
	return nil
}

// Register creates an account and navigates to the login page.
func (a *App) Register(ctx context.Context, params identity.SignUpParams) error {
	if err := a.Auth.Register(ctx, params); err != nil {
		a.Toasts.Error(UserMessage(err))
		return err
	}
	a.Toasts.Success(MsgRegistered)
	a.History.Push(router.PathLogin)
	return nil
}

// SignOut ends the session and navigates to the login page. The local
// session is gone even when the provider could not be reached.
func (a *App) SignOut(ctx context.Context) error {
	err := a.Auth.SignOut(ctx)
	if err != nil {
		log.Printf("APP_SIGN_OUT_FAILED | error=%v", err)
		a.Toasts.Error(MsgSignOutFailed)
	}
	a.History.Push(router.PathLogin)
	return err
}

// DeleteChat deletes a chat session. Deleting the open chat returns to a
// new chat.
func (a *App) DeleteChat(ctx context.Context, id string) error {
	if err := a.Sessions.Delete(ctx, id); err != nil {
		a.Toasts.Error(MsgChatDeleteFailed)
		return err
	}
	if a.Transcript.SessionID() == id {
		a.History.Push(router.PathChat)
	}
	a.Toasts.Success(MsgChatDeleted)
	return nil
}

// ExportChat writes a chat's history to path, a file or a directory, and
// returns the file written. The chat must be in the session list.
func (a *App) ExportChat(ctx context.Context, id string, exporter export.Exporter, path string) (string, error) {
	s, ok := a.Sessions.Get(id)
	if !ok {
		return "", fmt.Errorf("chat %s: %w", id, api.ErrNotFound)
	}
	msgs, err := a.API.ListMessages(ctx, id)
	if err != nil {
		return "", err
	}

	out, err := export.ExportToFile(&export.Transcript{Session: s, Messages: msgs}, exporter, path)
	if err != nil {
		log.Printf("APP_CHAT_EXPORT_FAILED | id=%s error=%v", id, err)
		return "", err
	}
	log.Printf("APP_CHAT_EXPORTED | id=%s messages=%d path=%s", id, len(msgs), out)
	return out, nil
}

// Resolve applies the route guard to the current history entry.
func (a *App) Resolve() (router.Resolution, error) {
	return router.Resolve(a.History.Current(), a.Auth.State())
}

// Close stops every background task and releases resources. It is safe to
// call more than once.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	a.cancel()
	a.Dashboard.Stop()
	a.Transcript.Close()
	a.Toasts.Close()
	a.Auth.Close()
	a.wg.Wait()

	var result *multierror.Error
	if err := a.Identity.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("identity: %w", err))
	}
	return result.ErrorOrNil()
}

// UserMessage returns the text to show for err: the provider's or
// backend's own message when there is one.
func UserMessage(err error) string {
	var authErr *identity.AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, identity.ErrNotConfigured):
		return "Identity provider is not configured"
	case errors.Is(err, api.ErrNotAuthenticated):
		return "Please sign in first"
	}
	return err.Error()
}
