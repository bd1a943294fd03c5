// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sproutai/sprout-tui/internal/app"
	"github.com/sproutai/sprout-tui/internal/export"
	"github.com/sproutai/sprout-tui/internal/session"
	"github.com/sproutai/sprout-tui/internal/ui/styles"
)

func newSessionsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage chat sessions",
	}
	cmd.AddCommand(newSessionsListCmd(rt))
	cmd.AddCommand(newSessionsRenameCmd(rt))
	cmd.AddCommand(newSessionsPinCmd(rt, "pin", false))
	cmd.AddCommand(newSessionsPinCmd(rt, "unpin", true))
	cmd.AddCommand(newSessionsDeleteCmd(rt))
	cmd.AddCommand(newSessionsExportCmd(rt))
	return cmd
}

// withSessions opens the app, requires a principal and loads the session
// list before running fn.
func (rt *runtime) withSessions(ctx context.Context, fn func(a *app.App) error) error {
	a, err := rt.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := requireAuth(a); err != nil {
		return err
	}
	// Start already began a background fetch for the restored principal;
	// whichever of the two starts last wins, so retry once when ours lost.
	err = a.Sessions.Fetch(ctx)
	if errors.Is(err, session.ErrStale) {
		err = a.Sessions.Fetch(ctx)
	}
	if err != nil {
		return err
	}
	return fn(a)
}

func newSessionsListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List chat sessions, pinned first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withSessions(cmd.Context(), func(a *app.App) error {
				list := a.Sessions.Sessions()
				out := cmd.OutOrStdout()
				if rt.jsonOut {
					return NewJSONResponse("sessions list", list).Write(out)
				}
				if len(list) == 0 {
					fmt.Fprintln(out, mutedStyle.Render("No chats yet. Start one with: sprout chat"))
					return nil
				}

				now := time.Now()
				rows := make([][]string, 0, len(list))
				for _, s := range list {
					pin := ""
					if s.IsPinned {
						pin = "*"
					}
					age := "-"
					if !s.UpdatedAt.IsZero() {
						age = session.FormatAge(now.Sub(s.UpdatedAt))
					}
					rows = append(rows, []string{pin, s.ID, age, s.Title})
				}
				writeTable(out, []column{
					{title: "", width: 1},
					{title: "ID", width: 36},
					{title: "AGE", width: 4},
					{title: "TITLE"},
				}, rows)
				return nil
			})
		},
	}
}

func newSessionsRenameCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title...>",
		Short: "Rename a chat session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, title := args[0], strings.Join(args[1:], " ")
			return rt.withSessions(cmd.Context(), func(a *app.App) error {
				if err := a.Sessions.Rename(cmd.Context(), id, title); err != nil {
					return err
				}
				s, _ := a.Sessions.Get(id)
				if s.Title == "" {
					s.Title = strings.TrimSpace(title)
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Renamed to "+s.Title))
				return nil
			})
		},
	}
}

// newSessionsPinCmd builds pin (current=false) and unpin (current=true).
func newSessionsPinCmd(rt *runtime, use string, current bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return rt.withSessions(cmd.Context(), func(a *app.App) error {
				if err := a.Sessions.TogglePin(cmd.Context(), id, current); err != nil {
					return err
				}
				msg := "Pinned"
				if current {
					msg = "Unpinned"
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(msg+" "+id))
				return nil
			})
		},
	}
}

func newSessionsDeleteCmd(rt *runtime) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a chat session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return rt.withSessions(cmd.Context(), func(a *app.App) error {
				if !yes {
					label := id
					if s, ok := a.Sessions.Get(id); ok && s.Title != "" {
						label = fmt.Sprintf("%q", s.Title)
					}
					ok, err := newPrompter(cmd).Confirm("Delete chat " + label + "?")
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Cancelled."))
						return nil
					}
				}
				if err := a.DeleteChat(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(app.MsgChatDeleted))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newSessionsExportCmd(rt *runtime) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Save a chat transcript as Markdown, JSON or YAML",
		Long: "Writes the chat to --output, or to a generated file name in the\n" +
			"current directory when --output is omitted or names a directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := export.ForFormat(format, export.DefaultOptions())
			if err != nil {
				return &UsageError{Message: err.Error()}
			}

			id := args[0]
			return rt.withSessions(cmd.Context(), func(a *app.App) error {
				path, err := a.ExportChat(cmd.Context(), id, exporter, output)
				if err != nil {
					return err
				}
				if rt.jsonOut {
					return NewJSONResponse("sessions export", map[string]string{"path": path}).Write(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Exported chat to "+path))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "output format: md, json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file or directory to write")
	return cmd
}
