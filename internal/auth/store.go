// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds the identity session state shared by the client.
package auth

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sproutai/sprout-tui/internal/identity"
	"github.com/sproutai/sprout-tui/internal/model"
)

// resolveTimeout bounds role lookups triggered by change notifications.
const resolveTimeout = 30 * time.Second

// Provider is the identity surface the store depends on.
// *identity.Client implements it.
type Provider interface {
	Session(ctx context.Context) (*identity.Session, error)
	SignIn(ctx context.Context, email, password string) (*identity.Session, error)
	SignUp(ctx context.Context, params identity.SignUpParams) error
	SignOut(ctx context.Context) error
	LookupRole(ctx context.Context, userID string) (model.Role, error)
	OnAuthStateChange(fn identity.Listener) (unsubscribe func())
}

// =============================================================================
// STATE
// =============================================================================

// State is a snapshot of the identity session.
type State struct {
	// Principal is nil when nobody is signed in.
	Principal *model.Principal
	// Role is RoleNone while unknown or when the lookup failed.
	Role model.Role
	// Loading is true until session presence and role were resolved once.
	Loading bool
}

// Authenticated reports whether a principal is present.
func (s State) Authenticated() bool {
	return s.Principal != nil
}

// PrincipalID returns the principal's id, or "" when signed out.
func (s State) PrincipalID() string {
	if s.Principal == nil {
		return ""
	}
	return s.Principal.ID
}

// =============================================================================
// STORE
// =============================================================================

// Store tracks the current principal and role.
type Store struct {
	provider Provider

	mu    sync.Mutex
	state State
	gen   uint64

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// NewStore creates a store in the loading state.
func NewStore(provider Provider) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		provider: provider,
		state:    State{Loading: true},
		subs:     make(map[int]func(State)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Init resolves the current session and role, then follows change
// notifications until Close. Loading is cleared even when Init fails.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.unsubscribe == nil {
		s.unsubscribe = s.provider.OnAuthStateChange(s.handleChange)
	}
	s.mu.Unlock()

	session, err := s.provider.Session(ctx)
	if err != nil {
		log.Printf("AUTH_INIT_FAILED | error=%v", err)
		s.resolve(ctx, nil)
		return err
	}
	s.resolve(ctx, session)
	return nil
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to run after every state change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// SignIn authenticates with the provider. The resulting notification
// updates the state before SignIn returns.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	_, err := s.provider.SignIn(ctx, email, password)
	return err
}

// Register creates an account. The new user still has to sign in.
func (s *Store) Register(ctx context.Context, params identity.SignUpParams) error {
	return s.provider.SignUp(ctx, params)
}

// SignOut delegates to the provider. Local state is cleared by the
// resulting notification, not here.
func (s *Store) SignOut(ctx context.Context) error {
	return s.provider.SignOut(ctx)
}

// Close stops following notifications and discards in-flight lookups.
func (s *Store) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.gen++
	s.mu.Unlock()

	s.cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Store) handleChange(event identity.Event, session *identity.Session) {
	log.Printf("AUTH_STATE_CHANGE | event=%s", event)
	ctx, cancel := context.WithTimeout(s.ctx, resolveTimeout)
	defer cancel()
	s.resolve(ctx, session)
}

// resolve moves the store to session's principal, looking its role up.
// A newer resolve started during the lookup wins.
func (s *Store) resolve(ctx context.Context, session *identity.Session) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if session == nil {
		s.state = State{}
		s.mu.Unlock()
		s.publish()
		return
	}
	s.mu.Unlock()

	principal := session.User
	role, err := s.provider.LookupRole(ctx, principal.ID)
	if err != nil {
		log.Printf("AUTH_ROLE_LOOKUP_FAILED | user=%s error=%v", principal.ID, err)
		role = model.RoleNone
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.state = State{Principal: &principal, Role: role}
	s.mu.Unlock()

	log.Printf("AUTH_RESOLVED | user=%s role=%s", principal.ID, role)
	s.publish()
}

func (s *Store) snapshotLocked() State {
	st := s.state
	if st.Principal != nil {
		p := *st.Principal
		st.Principal = &p
	}
	return st
}

func (s *Store) publish() {
	state := s.State()

	s.subsMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
