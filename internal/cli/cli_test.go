// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutai/sprout-tui/internal/api"
	"github.com/sproutai/sprout-tui/internal/config"
	"github.com/sproutai/sprout-tui/internal/identity"
	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/storage"
)

// =============================================================================
// FAKE BACKEND
// =============================================================================

// fakeBackend serves the identity provider and the API from one server.
type fakeBackend struct {
	mu       sync.Mutex
	role     string
	renamed  map[string]string
	statuses map[string]string
}

func (f *fakeBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.URL.Path == "/auth/v1/token":
			var in map[string]string
			json.NewDecoder(r.Body).Decode(&in)
			if in["password"] != "secret" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error_description":"Invalid login credentials"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"expires_in":    3600,
				"user":          map[string]string{"id": "u1", "email": "ada@example.com"},
			})

		case r.URL.Path == "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)

		case r.URL.Path == "/rest/v1/users":
			fmt.Fprintf(w, `[{"role":%q}]`, f.role)

		case strings.HasPrefix(r.URL.Path, "/api/"):
			assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
			f.serveAPI(w, r, strings.TrimPrefix(r.URL.Path, "/api"))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (f *fakeBackend) serveAPI(w http.ResponseWriter, r *http.Request, path string) {
	switch {
	case r.Method == http.MethodGet && path == "/chat/sessions":
		w.Write([]byte(`[
			{"id":"s1","title":"Headache","is_pinned":false,"updated_at":"2025-03-01T09:00:00Z"},
			{"id":"s2","title":"Sleep","is_pinned":true,"updated_at":"2025-03-02T09:00:00Z"}
		]`))

	case r.Method == http.MethodGet && path == "/chat/session/s1/messages":
		w.Write([]byte(`[
			{"id":"m1","sender_role":"user","content":"My head hurts","created_at":"2025-03-01T09:00:00Z"},
			{"id":"m2","sender_role":"assistant","content":"Rest and drink water.","created_at":"2025-03-01T09:00:05Z"}
		]`))

	case r.Method == http.MethodPatch && strings.HasPrefix(path, "/chat/session/"):
		var in map[string]any
		json.NewDecoder(r.Body).Decode(&in)
		id := strings.TrimPrefix(path, "/chat/session/")
		title, _ := in["title"].(string)
		f.renamed[id] = title
		fmt.Fprintf(w, `{"id":%q,"title":%q}`, id, title)

	case r.Method == http.MethodGet && path == "/emergencies":
		w.Write([]byte(`[
			{"id":"e1","severity":"high","description":"Chest pain","status":"pending","users":{"full_name":"Ada"}},
			{"id":"e2","severity":"low","description":"Rash","status":"resolved"}
		]`))

	case r.Method == http.MethodPatch && strings.HasPrefix(path, "/emergencies/"):
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/emergencies/"), "/status")
		f.statuses[id] = in["status"]
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && path == "/remedies":
		w.Write([]byte(`[{"id":"r1","name":"Ginger Tea","description":"Soothes nausea","ingredients":["ginger","water"]}]`))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// testEnv points the configuration at a fake backend and a private data
// directory. It returns the data directory.
func testEnv(t *testing.T, f *fakeBackend) string {
	t.Helper()
	if f.renamed == nil {
		f.renamed = map[string]string{}
		f.statuses = map[string]string{}
	}
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.toml"))
	t.Setenv("SPROUT_DATA_DIR", dir)
	t.Setenv("SPROUT_API_URL", server.URL+"/api")
	t.Setenv("SPROUT_API_RATE_LIMIT", "0")
	t.Setenv("SPROUT_IDENTITY_URL", server.URL)
	t.Setenv("SPROUT_IDENTITY_ANON_KEY", "anon")
	return dir
}

// signIn stores a valid session as if "sprout login" had run.
func signIn(t *testing.T, dir string) {
	t.Helper()
	store := storage.NewCredentialStore(filepath.Join(dir, "session.json"))
	require.NoError(t, store.Save(&identity.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         model.Principal{ID: "u1", Email: "ada@example.com"},
	}))
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// =============================================================================
// ROOT / VERSION
// =============================================================================

func TestVersionCmd(t *testing.T) {
	orig := Version
	Version = "1.2.3"
	defer func() { Version = orig }()

	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sprout 1.2.3")
	assert.Contains(t, out, "commit: unknown")
}

func TestRootCmdHelpListsCommands(t *testing.T) {
	testEnv(t, &fakeBackend{})

	out, err := run(t, "", "--help")
	require.NoError(t, err)
	for _, name := range []string{"login", "sessions", "chat", "ask", "remedies", "emergencies", "config"} {
		assert.Contains(t, out, name)
	}
}

func TestRootCmdWithoutTerminal(t *testing.T) {
	testEnv(t, &fakeBackend{})

	_, err := run(t, "")
	var usage *UsageError
	assert.True(t, errors.As(err, &usage), "got %v", err)
}

// =============================================================================
// AUTH
// =============================================================================

func TestLoginCmd(t *testing.T) {
	dir := testEnv(t, &fakeBackend{role: "user"})

	out, err := run(t, "secret\n", "login", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ada@example.com")

	stored, err := storage.NewCredentialStore(filepath.Join(dir, "session.json")).Load()
	require.NoError(t, err)
	assert.Equal(t, "access-1", stored.AccessToken)
}

func TestLoginCmdRejected(t *testing.T) {
	testEnv(t, &fakeBackend{})

	_, err := run(t, "ada@example.com\nwrong\n", "login")
	require.Error(t, err)
	assert.Equal(t, ExitAuthError, ExitCode(err))
}

func TestLoginCmdMissingPassword(t *testing.T) {
	testEnv(t, &fakeBackend{})

	_, err := run(t, "", "login", "--email", "ada@example.com")
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestWhoamiCmd(t *testing.T) {
	dir := testEnv(t, &fakeBackend{role: "hospital"})
	signIn(t, dir)

	out, err := run(t, "", "whoami", "--json")
	require.NoError(t, err)

	var resp struct {
		Success bool   `json:"success"`
		Data    whoami `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "u1", resp.Data.ID)
	assert.Equal(t, model.RoleHospital, resp.Data.Role)
}

func TestWhoamiCmdSignedOut(t *testing.T) {
	testEnv(t, &fakeBackend{})

	_, err := run(t, "", "whoami")
	assert.ErrorIs(t, err, api.ErrNotAuthenticated)
	assert.Equal(t, ExitAuthError, ExitCode(err))
}

func TestLogoutCmd(t *testing.T) {
	dir := testEnv(t, &fakeBackend{role: "user"})
	signIn(t, dir)

	out, err := run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = storage.NewCredentialStore(filepath.Join(dir, "session.json")).Load()
	assert.ErrorIs(t, err, storage.ErrNoCredentials)
}

// =============================================================================
// SESSIONS
// =============================================================================

func TestSessionsListKeepsBackendOrder(t *testing.T) {
	dir := testEnv(t, &fakeBackend{role: "user"})
	signIn(t, dir)

	out, err := run(t, "", "sessions", "list")
	require.NoError(t, err)

	sleep := strings.Index(out, "Sleep")
	headache := strings.Index(out, "Headache")
	require.True(t, sleep >= 0 && headache >= 0, out)
	assert.Less(t, headache, sleep, "listed in the order the backend returned")
}

func TestSessionsRename(t *testing.T) {
	f := &fakeBackend{role: "user"}
	dir := testEnv(t, f)
	signIn(t, dir)

	out, err := run(t, "", "sessions", "rename", "s1", "Migraine", "notes")
	require.NoError(t, err)
	assert.Contains(t, out, "Renamed to Migraine notes")

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "Migraine notes", f.renamed["s1"])
}

func TestSessionsDeleteCancelled(t *testing.T) {
	dir := testEnv(t, &fakeBackend{role: "user"})
	signIn(t, dir)

	out, err := run(t, "n\n", "sessions", "delete", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, `Delete chat "Headache"?`)
	assert.Contains(t, out, "Cancelled.")
}

func TestSessionsExportMarkdown(t *testing.T) {
	dir := testEnv(t, &fakeBackend{role: "user"})
	signIn(t, dir)
	path := filepath.Join(t.TempDir(), "headache.md")

	out, err := run(t, "", "sessions", "export", "s1", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported chat to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Headache")
	assert.Contains(t, string(data), "My head hurts")
	assert.Contains(t, string(data), "Rest and drink water.")
}

func TestSessionsExportUnknownSession(t *testing.T) {
	dir := testEnv(t, &fakeBackend{role: "user"})
	signIn(t, dir)

	_, err := run(t, "", "sessions", "export", "nope", "-o", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, ExitCode(err))
}

func TestSessionsExportBadFormat(t *testing.T) {
	dir := testEnv(t, &fakeBackend{role: "user"})
	signIn(t, dir)

	_, err := run(t, "", "sessions", "export", "s1", "--format", "pdf")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

// =============================================================================
// DASHBOARD / REMEDIES
// =============================================================================

func TestEmergenciesRequireStaff(t *testing.T) {
	dir := testEnv(t, &fakeBackend{role: "user"})
	signIn(t, dir)

	_, err := run(t, "", "emergencies", "list")
	assert.ErrorIs(t, err, ErrStaffOnly)
}

func TestEmergenciesListPending(t *testing.T) {
	dir := testEnv(t, &fakeBackend{role: "admin"})
	signIn(t, dir)

	out, err := run(t, "", "emergencies", "list", "--pending")
	require.NoError(t, err)
	assert.Contains(t, out, "Chest pain")
	assert.Contains(t, out, "HIGH")
	assert.NotContains(t, out, "Rash")
}

func TestEmergencyResolve(t *testing.T) {
	f := &fakeBackend{role: "hospital"}
	dir := testEnv(t, f)
	signIn(t, dir)

	out, err := run(t, "", "emergencies", "resolve", "e1")
	require.NoError(t, err)
	assert.Contains(t, out, "Status updated to resolved")

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "resolved", f.statuses["e1"])
}

func TestRemediesCmd(t *testing.T) {
	dir := testEnv(t, &fakeBackend{role: "user"})
	signIn(t, dir)

	out, err := run(t, "", "remedies", "--detail", "ginger")
	require.NoError(t, err)
	assert.Contains(t, out, "Ginger Tea")
	assert.Contains(t, out, "- ginger")
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigSetAndGet(t *testing.T) {
	dir := testEnv(t, &fakeBackend{})

	_, err := run(t, "", "config", "set", "ui.theme", "dark")
	require.NoError(t, err)

	cfg, err := config.LoadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Empty(t, cfg.Storage.DataDir, "environment is not written to the file")

	out, err := run(t, "", "config", "get", "ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)
}

func TestConfigSetRejectsInvalid(t *testing.T) {
	testEnv(t, &fakeBackend{})

	_, err := run(t, "", "config", "set", "api.timeout_secs", "soon")
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestConfigShowRedactsKey(t *testing.T) {
	testEnv(t, &fakeBackend{})

	out, err := run(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "identity.anon_key")
	assert.NotContains(t, out, " anon\n")
	assert.Contains(t, out, "[REDACTED, length=4]")
}

func TestConfigPathFlag(t *testing.T) {
	testEnv(t, &fakeBackend{})
	path := filepath.Join(t.TempDir(), "other.toml")

	out, err := run(t, "", "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}

// =============================================================================
// HELPERS
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", &UsageError{Message: "bad"}, ExitUsageError},
		{"config", &ConfigError{Err: errors.New("broken")}, ExitConfigError},
		{"identity not configured", identity.ErrNotConfigured, ExitConfigError},
		{"auth error", &identity.AuthError{Message: "nope"}, ExitAuthError},
		{"staff only", fmt.Errorf("wrapped: %w", ErrStaffOnly), ExitAuthError},
		{"not found", &api.APIError{Status: http.StatusNotFound}, ExitNotFound},
		{"forbidden", &api.APIError{Status: http.StatusForbidden}, ExitAuthError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	writeTable(&buf, []column{{title: "ID", width: 4}, {title: "NAME"}}, [][]string{
		{"a", "Alpha"},
		{"toolong", "Beta"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID    NAME", lines[0])
	assert.Equal(t, "a     Alpha", lines[1])
	assert.Equal(t, "too…  Beta", lines[2])
}

func TestPrompterLine(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("first\nlast"))
	cmd.SetErr(&bytes.Buffer{})
	p := newPrompter(cmd)

	got, err := p.Line("Email")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = p.Line("Name")
	require.NoError(t, err)
	assert.Equal(t, "last", got, "final line without newline")

	_, err = p.Line("Password")
	assert.ErrorIs(t, err, ErrMissingInput)
}
