// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutai/sprout-tui/internal/identity"
	"github.com/sproutai/sprout-tui/internal/model"
)

// fakeProvider emits notifications synchronously, like identity.Client.
type fakeProvider struct {
	mu        sync.Mutex
	session   *identity.Session
	roles     map[string]model.Role
	roleErr   error
	signInErr error
	listeners map[int]identity.Listener
	next      int
	signedUp  []identity.SignUpParams
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{roles: map[string]model.Role{}, listeners: map[int]identity.Listener{}}
}

func (f *fakeProvider) Session(context.Context) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeProvider) SignIn(_ context.Context, email, _ string) (*identity.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	s := &identity.Session{AccessToken: "tok", User: model.Principal{ID: email, Email: email}}
	f.mu.Lock()
	f.session = s
	f.mu.Unlock()
	f.emit(identity.EventSignedIn, s)
	return s, nil
}

func (f *fakeProvider) SignUp(_ context.Context, p identity.SignUpParams) error {
	f.signedUp = append(f.signedUp, p)
	return nil
}

func (f *fakeProvider) SignOut(context.Context) error {
	f.mu.Lock()
	f.session = nil
	f.mu.Unlock()
	f.emit(identity.EventSignedOut, nil)
	return nil
}

func (f *fakeProvider) LookupRole(_ context.Context, id string) (model.Role, error) {
	if f.roleErr != nil {
		return model.RoleNone, f.roleErr
	}
	return f.roles[id], nil
}

func (f *fakeProvider) OnAuthStateChange(fn identity.Listener) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeProvider) emit(e identity.Event, s *identity.Session) {
	f.mu.Lock()
	var fns []identity.Listener
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(e, s)
	}
}

func TestStore_StartsLoading(t *testing.T) {
	store := NewStore(newFakeProvider())
	assert.True(t, store.State().Loading)
	assert.False(t, store.State().Authenticated())
}

func TestStore_InitSignedOut(t *testing.T) {
	store := NewStore(newFakeProvider())
	defer store.Close()

	require.NoError(t, store.Init(context.Background()))
	state := store.State()
	assert.False(t, state.Loading)
	assert.Nil(t, state.Principal)
	assert.Equal(t, model.RoleNone, state.Role)
}

func TestStore_InitWithSession(t *testing.T) {
	p := newFakeProvider()
	p.session = &identity.Session{AccessToken: "tok", User: model.Principal{ID: "u1"}}
	p.roles["u1"] = model.RoleAdmin

	store := NewStore(p)
	defer store.Close()
	require.NoError(t, store.Init(context.Background()))

	state := store.State()
	assert.False(t, state.Loading)
	assert.Equal(t, "u1", state.PrincipalID())
	assert.Equal(t, model.RoleAdmin, state.Role)
}

func TestStore_RoleLookupFailureMeansNoRole(t *testing.T) {
	p := newFakeProvider()
	p.session = &identity.Session{AccessToken: "tok", User: model.Principal{ID: "u1"}}
	p.roleErr = errors.New("row missing")

	store := NewStore(p)
	defer store.Close()
	require.NoError(t, store.Init(context.Background()))

	state := store.State()
	assert.True(t, state.Authenticated())
	assert.Equal(t, model.RoleNone, state.Role)
	assert.False(t, state.Loading)
}

func TestStore_FollowsNotifications(t *testing.T) {
	p := newFakeProvider()
	p.roles["ada@example.com"] = model.RoleHospital
	store := NewStore(p)
	defer store.Close()
	require.NoError(t, store.Init(context.Background()))

	var seen []State
	store.Subscribe(func(s State) { seen = append(seen, s) })

	require.NoError(t, store.SignIn(context.Background(), "ada@example.com", "pw"))
	state := store.State()
	assert.Equal(t, "ada@example.com", state.PrincipalID())
	assert.Equal(t, model.RoleHospital, state.Role)

	require.NoError(t, store.SignOut(context.Background()))
	state = store.State()
	assert.False(t, state.Authenticated())
	assert.Equal(t, model.RoleNone, state.Role, "sign-out clears the role")

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Authenticated())
	assert.False(t, seen[1].Authenticated())
}

func TestStore_SignInErrorLeavesState(t *testing.T) {
	p := newFakeProvider()
	p.signInErr = &identity.AuthError{Status: 400, Message: "Invalid login credentials"}
	store := NewStore(p)
	defer store.Close()
	require.NoError(t, store.Init(context.Background()))

	err := store.SignIn(context.Background(), "ada@example.com", "bad")
	var authErr *identity.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Invalid login credentials", authErr.Message)
	assert.False(t, store.State().Authenticated())
}

func TestStore_Register(t *testing.T) {
	p := newFakeProvider()
	store := NewStore(p)
	defer store.Close()

	params := identity.SignUpParams{Email: "a@b.c", Password: "pw", FullName: "A", Role: model.RoleUser}
	require.NoError(t, store.Register(context.Background(), params))
	assert.Equal(t, []identity.SignUpParams{params}, p.signedUp)
	assert.False(t, store.State().Authenticated(), "registration does not sign in")
}

func TestStore_CloseStopsFollowing(t *testing.T) {
	p := newFakeProvider()
	store := NewStore(p)
	require.NoError(t, store.Init(context.Background()))
	store.Close()

	_, err := p.SignIn(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.False(t, store.State().Authenticated())
}

func TestStore_Unsubscribe(t *testing.T) {
	p := newFakeProvider()
	store := NewStore(p)
	defer store.Close()
	require.NoError(t, store.Init(context.Background()))

	calls := 0
	unsubscribe := store.Subscribe(func(State) { calls++ })
	unsubscribe()

	require.NoError(t, store.SignIn(context.Background(), "ada@example.com", "pw"))
	assert.Zero(t, calls)
}
