// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sproutai/sprout-tui/internal/app"
	"github.com/sproutai/sprout-tui/internal/ui/styles"
	"github.com/sproutai/sprout-tui/internal/ui/tui"
)

// runTUI opens the full-screen interface until the user quits.
func runTUI(cmd *cobra.Command, rt *runtime) error {
	if _, ok := terminalFd(cmd.OutOrStdout()); !ok {
		return &UsageError{Message: "the terminal UI needs an interactive terminal; see sprout --help for scriptable commands"}
	}
	mode, err := styles.ParseMode(rt.cfg.UI.Theme)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := app.New(rt.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("TUI_CLOSE_FAILED | error=%v", err)
		}
	}()

	model := tui.New(ctx, a, styles.NewTheme(mode))
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	log.Printf("TUI_START | theme=%s", mode)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	log.Printf("TUI_EXIT")
	return nil
}
