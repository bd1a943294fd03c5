// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sproutai/sprout-tui/internal/config"
	"github.com/sproutai/sprout-tui/internal/ui/styles"
	"github.com/sproutai/sprout-tui/internal/util"
)

func newConfigCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		Long: "Configuration is read from ~/.sprout/config.toml (or $SPROUT_CONFIG)\n" +
			"and SPROUT_* environment variables override the file.",
	}
	cmd.AddCommand(newConfigShowCmd(rt))
	cmd.AddCommand(newConfigPathCmd(rt))
	cmd.AddCommand(newConfigGetCmd(rt))
	cmd.AddCommand(newConfigSetCmd(rt))
	return cmd
}

func (rt *runtime) configFile() (string, error) {
	if rt.configPath != "" {
		return rt.configPath, nil
	}
	return config.Path()
}

func newConfigShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.cfg.Redacted()
			keys := config.GetAllKeys()

			values := make(map[string]string, len(keys))
			for _, k := range keys {
				v, err := cfg.Get(k)
				if err != nil {
					return err
				}
				values[k] = v
			}

			out := cmd.OutOrStdout()
			if rt.jsonOut {
				return NewJSONResponse("config show", values).Write(out)
			}
			for _, k := range keys {
				v := values[k]
				if v == "" {
					v = mutedStyle.Render("(unset)")
				}
				fmt.Fprintf(out, "%s %s\n", util.PadWidth(k, 30), v)
			}
			return nil
		},
	}
}

func newConfigPathCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := rt.configFile()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigGetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := rt.cfg.Redacted().Get(args[0])
			if err != nil {
				return &UsageError{Message: err.Error()}
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newConfigSetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting in the config file",
		Long:  "Valid keys:\n  " + strings.Join(config.GetAllKeys(), "\n  "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := rt.configFile()
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return &ConfigError{Err: err}
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return &UsageError{Message: err.Error()}
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess(fmt.Sprintf("%s = %s", args[0], args[1])))
			return nil
		},
	}
}
