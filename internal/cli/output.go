// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/sproutai/sprout-tui/internal/ui/styles"
	"github.com/sproutai/sprout-tui/internal/util"
)

// Colour is dropped when stdout is not a terminal or NO_COLOR is set.
// FORCE_COLOR keeps it on for piped output.
func init() {
	lipgloss.SetColorProfile(colorProfile())
}

func colorProfile() termenv.Profile {
	if os.Getenv("FORCE_COLOR") != "" {
		return termenv.ANSI256
	}
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stdout.Fd())) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// =============================================================================
// STYLES
// =============================================================================

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(styles.Sprout)
	headStyle    = lipgloss.NewStyle().Bold(true).Foreground(styles.TextSecondary)
	mutedStyle   = lipgloss.NewStyle().Foreground(styles.TextMuted)
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(styles.Cyan)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(styles.Rose)
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Amber)
)

// =============================================================================
// JSON OUTPUT
// =============================================================================

// JSONResponse is the envelope every --json command prints.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse wraps data for command.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response to w, indented.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// TABLES
// =============================================================================

// column is one column of a plain-text table. A zero width takes the rest
// of the line.
type column struct {
	title string
	width int
}

// writeTable prints rows under a header, padding cells by display width.
func writeTable(w io.Writer, cols []column, rows [][]string) {
	cell := func(i int, s string) string {
		if cols[i].width == 0 {
			return s
		}
		return util.PadWidth(s, cols[i].width)
	}

	head := make([]string, len(cols))
	for i, c := range cols {
		head[i] = cell(i, c.title)
	}
	fmt.Fprintln(w, headStyle.Render(strings.TrimRight(strings.Join(head, "  "), " ")))

	for _, row := range rows {
		out := make([]string, len(cols))
		for i := range cols {
			if i < len(row) {
				out[i] = cell(i, row[i])
			} else {
				out[i] = cell(i, "")
			}
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(out, "  "), " "))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
