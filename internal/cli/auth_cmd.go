// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sproutai/sprout-tui/internal/api"
	"github.com/sproutai/sprout-tui/internal/app"
	"github.com/sproutai/sprout-tui/internal/auth"
	"github.com/sproutai/sprout-tui/internal/identity"
	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/ui/styles"
)

// whoami is the JSON shape of the signed-in principal.
type whoami struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

func requireAuth(a *app.App) (auth.State, error) {
	st := a.Auth.State()
	if !st.Authenticated() {
		return st, api.ErrNotAuthenticated
	}
	return st, nil
}

func requireStaff(a *app.App) (auth.State, error) {
	st, err := requireAuth(a)
	if err != nil {
		return st, err
	}
	if !st.Role.In(model.StaffRoles) {
		return st, ErrStaffOnly
	}
	return st, nil
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

func newLoginCmd(rt *runtime) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: "Signs in and stores the session in the data directory. A running\n" +
			"terminal UI picks the new session up immediately.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			p := newPrompter(cmd)
			if email == "" {
				if email, err = p.Line("Email"); err != nil {
					return err
				}
			}
			password, err := p.Password("Password")
			if err != nil {
				return err
			}

			if err := a.Login(ctx, strings.TrimSpace(email), password); err != nil {
				return err
			}

			st := a.Auth.State()
			who := whoami{ID: st.PrincipalID(), Role: st.Role}
			if st.Principal != nil {
				who.Email = st.Principal.Email
			}
			if rt.jsonOut {
				return NewJSONResponse("login", who).Write(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(app.MsgWelcomeBack+" Signed in as "+who.Email))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when omitted)")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if !a.Auth.State().Authenticated() {
				fmt.Fprintln(out, mutedStyle.Render("Not signed in."))
				return nil
			}
			if err := a.SignOut(ctx); err != nil {
				// The local session is gone either way.
				log.Printf("CLI_LOGOUT_REMOTE_FAILED | error=%v", err)
				fmt.Fprintln(cmd.ErrOrStderr(), styles.RenderWarning("Signed out locally; the identity provider could not be reached."))
				return nil
			}
			fmt.Fprintln(out, styles.RenderSuccess("Signed out."))
			return nil
		},
	}
}

// =============================================================================
// REGISTER
// =============================================================================

func newRegisterCmd(rt *runtime) *cobra.Command {
	var name, email, role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := model.ParseRole(role)
			if !ok {
				return &UsageError{Message: fmt.Sprintf("invalid role %q (want user, admin or hospital)", role)}
			}

			ctx := cmd.Context()
			a, err := rt.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			p := newPrompter(cmd)
			if name == "" {
				if name, err = p.Line("Full name"); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = p.Line("Email"); err != nil {
					return err
				}
			}
			password, err := p.Password("Password")
			if err != nil {
				return err
			}

			params := identity.SignUpParams{
				Email:    strings.TrimSpace(email),
				Password: password,
				FullName: strings.TrimSpace(name),
				Role:     r,
			}
			if err := a.Register(ctx, params); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(app.MsgRegistered))
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "full name (prompted when omitted)")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when omitted)")
	cmd.Flags().StringVar(&role, "role", string(model.RoleUser), "account role: user, admin or hospital")
	return cmd
}

// =============================================================================
// WHOAMI
// =============================================================================

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := requireAuth(a)
			if err != nil {
				return err
			}
			who := whoami{ID: st.Principal.ID, Email: st.Principal.Email, Role: st.Role}
			if rt.jsonOut {
				return NewJSONResponse("whoami", who).Write(cmd.OutOrStdout())
			}

			out := cmd.OutOrStdout()
			role := who.Role.String()
			if who.Role == model.RoleNone {
				role = "unknown"
			}
			fmt.Fprintln(out, titleStyle.Render(st.Principal.DisplayName()))
			fmt.Fprintf(out, "  email  %s\n", who.Email)
			fmt.Fprintf(out, "  id     %s\n", who.ID)
			fmt.Fprintf(out, "  role   %s\n", role)
			return nil
		},
	}
}
