// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sproutai/sprout-tui/internal/app"
	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/ui/styles"
)

// withStaff opens the app and requires an admin or hospital principal.
func (rt *runtime) withStaff(ctx context.Context, fn func(a *app.App) error) error {
	a, err := rt.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := requireStaff(a); err != nil {
		return err
	}
	return fn(a)
}

// =============================================================================
// EMERGENCIES
// =============================================================================

func newEmergenciesCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "emergencies",
		Aliases: []string{"emergency", "em"},
		Short:   "Triage emergency records (admin and hospital accounts)",
	}
	cmd.AddCommand(newEmergenciesListCmd(rt))
	cmd.AddCommand(newEmergencyStatusCmd(rt, "ack", model.StatusAcknowledged))
	cmd.AddCommand(newEmergencyStatusCmd(rt, "resolve", model.StatusResolved))
	return cmd
}

func newEmergenciesListCmd(rt *runtime) *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List emergency records, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withStaff(cmd.Context(), func(a *app.App) error {
				list, err := a.API.ListEmergencies(cmd.Context())
				if err != nil {
					return err
				}
				if pendingOnly {
					kept := list[:0]
					for _, e := range list {
						if e.Status == model.StatusPending {
							kept = append(kept, e)
						}
					}
					list = kept
				}

				out := cmd.OutOrStdout()
				if rt.jsonOut {
					return NewJSONResponse("emergencies list", list).Write(out)
				}
				if len(list) == 0 {
					fmt.Fprintln(out, mutedStyle.Render("No incidents reported."))
					return nil
				}

				rows := make([][]string, 0, len(list))
				for _, e := range list {
					rows = append(rows, []string{
						e.ID,
						strings.ToUpper(string(e.Severity)),
						string(e.Status),
						formatTime(e.CreatedAt),
						e.PatientName(),
						e.Description,
					})
				}
				writeTable(out, []column{
					{title: "ID", width: 36},
					{title: "SEVERITY", width: 8},
					{title: "STATUS", width: 12},
					{title: "REPORTED", width: 16},
					{title: "PATIENT", width: 20},
					{title: "INCIDENT"},
				}, rows)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "only records awaiting triage")
	return cmd
}

func newEmergencyStatusCmd(rt *runtime, use string, status model.EmergencyStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Mark an emergency as %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return rt.withStaff(cmd.Context(), func(a *app.App) error {
				if err := a.API.UpdateEmergencyStatus(cmd.Context(), id, status); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("Status updated to %s", status)))
				return nil
			})
		},
	}
}

// =============================================================================
// USERS
// =============================================================================

func newUsersCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered users (admin and hospital accounts)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withStaff(cmd.Context(), func(a *app.App) error {
				list, err := a.API.ListUsers(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if rt.jsonOut {
					return NewJSONResponse("users", list).Write(out)
				}
				if len(list) == 0 {
					fmt.Fprintln(out, mutedStyle.Render("No registered users."))
					return nil
				}

				rows := make([][]string, 0, len(list))
				for _, u := range list {
					name := u.FullName
					if name == "" {
						name = "Unknown"
					}
					joined := "-"
					if !u.CreatedAt.IsZero() {
						joined = u.CreatedAt.Local().Format("2006-01-02")
					}
					rows = append(rows, []string{name, u.Email, u.Role.String(), joined})
				}
				writeTable(out, []column{
					{title: "NAME", width: 24},
					{title: "EMAIL", width: 32},
					{title: "ROLE", width: 8},
					{title: "JOINED"},
				}, rows)
				return nil
			})
		},
	}
}
