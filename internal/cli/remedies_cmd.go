// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/ui/styles"
)

func newRemediesCmd(rt *runtime) *cobra.Command {
	var detail bool

	cmd := &cobra.Command{
		Use:   "remedies [query...]",
		Short: "Search the natural remedies knowledge base",
		Long:  "Lists remedies matching the query, or every remedy when no query is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := requireAuth(a); err != nil {
				return err
			}
			if err := a.Remedies.Search(ctx, strings.Join(args, " ")); err != nil {
				return err
			}

			list := a.Remedies.Remedies()
			out := cmd.OutOrStdout()
			if rt.jsonOut {
				return NewJSONResponse("remedies", list).Write(out)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("No remedies found."))
				return nil
			}
			for i, r := range list {
				if detail {
					if i > 0 {
						fmt.Fprintln(out)
					}
					printRemedy(out, r)
					continue
				}
				fmt.Fprintf(out, "%s  %s\n", titleStyle.Render(r.Name), r.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&detail, "detail", "d", false, "show ingredients, preparation and warnings")
	return cmd
}

func printRemedy(w io.Writer, r model.Remedy) {
	fmt.Fprintln(w, titleStyle.Render(r.Name))
	if r.Description != "" {
		fmt.Fprintln(w, r.Description)
	}
	if len(r.Ingredients) > 0 {
		fmt.Fprintln(w, headStyle.Render("Ingredients"))
		for _, ing := range r.Ingredients {
			fmt.Fprintln(w, "  - "+ing)
		}
	}
	if r.Benefits != "" {
		fmt.Fprintln(w, headStyle.Render("Benefits"))
		fmt.Fprintln(w, "  "+r.Benefits)
	}
	if r.PreparationSteps != "" {
		fmt.Fprintln(w, headStyle.Render("Preparation"))
		for _, line := range strings.Split(strings.TrimSpace(r.PreparationSteps), "\n") {
			fmt.Fprintln(w, "  "+strings.TrimSpace(line))
		}
	}
	if r.Warnings != "" {
		fmt.Fprintln(w, styles.RenderWarning("Warning: "+r.Warnings))
	}
}
