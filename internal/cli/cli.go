// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the sprout command line.
//
// Running sprout without a subcommand opens the terminal UI. Every other
// subcommand drives the same stores non-interactively so the client can be
// scripted:
//
//	sprout login --email ada@example.com
//	sprout sessions list --json
//	sprout ask "I have had a headache for three days"
//	sprout emergencies resolve 8f1c...
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sproutai/sprout-tui/internal/app"
	"github.com/sproutai/sprout-tui/internal/config"
)

// Version information, set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// RUNTIME
// =============================================================================

// runtime carries the global flags and the loaded configuration to every
// subcommand.
type runtime struct {
	configPath string
	verbose    bool
	jsonOut    bool
	theme      string

	cfg     *config.Config
	logFile *os.File
}

// load reads the configuration and redirects the standard logger.
// The TUI owns the terminal, so the log never mirrors to stderr there.
func (rt *runtime) load(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if rt.configPath != "" {
		cfg, err = config.LoadFromPath(rt.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return &ConfigError{Err: err}
	}
	if rt.theme != "" {
		cfg.UI.Theme = rt.theme
	}
	rt.cfg = cfg

	return rt.setupLogging(cmd.ErrOrStderr(), cmd == cmd.Root())
}

func (rt *runtime) setupLogging(stderr io.Writer, tui bool) error {
	path, err := rt.cfg.LogPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	rt.logFile = f

	var out io.Writer = f
	if rt.verbose && !tui {
		out = io.MultiWriter(f, stderr)
	}
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("CLI_START | version=%s", Version)
	return nil
}

func (rt *runtime) close() {
	if rt.logFile != nil {
		log.SetOutput(io.Discard)
		rt.logFile.Close()
		rt.logFile = nil
	}
}

// openApp builds the app and restores the stored session.
func (rt *runtime) openApp(ctx context.Context, opts ...app.Option) (*app.App, error) {
	a, err := app.New(rt.cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := a.Start(ctx); err != nil {
		log.Printf("CLI_RESTORE_FAILED | error=%v", err)
	}
	return a, nil
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCmd builds the sprout command tree.
func NewRootCmd() *cobra.Command {
	rt := &runtime{}

	cmd := &cobra.Command{
		Use:   "sprout",
		Short: "Sprout AI: a terminal client for the healthcare assistant",
		Long: "Sprout AI triages symptoms through a conversational assistant.\n" +
			"Run without a subcommand to open the terminal UI.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, rt)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&rt.configPath, "config", "c", "", "path to config file (default ~/.sprout/config.toml)")
	flags.BoolVarP(&rt.verbose, "verbose", "v", false, "mirror log output to stderr")
	flags.BoolVar(&rt.jsonOut, "json", false, "print machine-readable JSON")
	flags.StringVar(&rt.theme, "theme", "", "colour theme: auto, dark or light")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLoginCmd(rt))
	cmd.AddCommand(newLogoutCmd(rt))
	cmd.AddCommand(newRegisterCmd(rt))
	cmd.AddCommand(newWhoamiCmd(rt))
	cmd.AddCommand(newSessionsCmd(rt))
	cmd.AddCommand(newChatCmd(rt))
	cmd.AddCommand(newAskCmd(rt))
	cmd.AddCommand(newRemediesCmd(rt))
	cmd.AddCommand(newEmergenciesCmd(rt))
	cmd.AddCommand(newUsersCmd(rt))
	cmd.AddCommand(newConfigCmd(rt))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config or log file is needed to print the version.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sprout %s (commit: %s, built: %s)\n", Version, GitCommit, BuildDate)
		},
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	return execute(ctx, NewRootCmd())
}

func execute(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, context.Canceled) {
		return ExitGeneralError
	}
	fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("Error:")+" "+app.UserMessage(err))
	return ExitCode(err)
}
