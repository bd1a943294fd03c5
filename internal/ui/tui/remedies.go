// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/remedies"
	"github.com/sproutai/sprout-tui/internal/ui/styles"
	"github.com/sproutai/sprout-tui/internal/util"
)

type remediesView struct {
	query    textinput.Model
	cursor   int
	seq      int
	searched bool
}

func newRemediesView() remediesView {
	q := textinput.New()
	q.Prompt = "Search: "
	q.Placeholder = "Search remedies (e.g., headache, ginger)..."
	q.CharLimit = 128
	return remediesView{query: q}
}

func (r *remediesView) clamp(n int) {
	if r.cursor >= n {
		r.cursor = n - 1
	}
	if r.cursor < 0 {
		r.cursor = 0
	}
}

// debounce returns the search delay from config.
func (m Model) debounce() time.Duration {
	if d := m.app.Config.UI.SearchDebounce(); d > 0 {
		return d
	}
	return remedies.DebounceDelay
}

func (m Model) handleRemediesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r := &m.remedies
	list := m.app.Remedies.Remedies()

	switch {
	case key.Matches(msg, m.keys.Submit):
		if r.cursor < len(list) {
			m.app.Remedies.Toggle(list[r.cursor].ID)
		}
		return m, nil
	case msg.Type == tea.KeyUp:
		if r.cursor > 0 {
			r.cursor--
		}
		return m, nil
	case msg.Type == tea.KeyDown:
		if r.cursor < len(list)-1 {
			r.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Back):
		r.query.Reset()
	}

	before := r.query.Value()
	var cmd tea.Cmd
	r.query, cmd = r.query.Update(msg)
	if r.query.Value() == before {
		return m, cmd
	}

	r.seq++
	seq := r.seq
	tick := tea.Tick(m.debounce(), func(time.Time) tea.Msg { return searchTickMsg{Seq: seq} })
	return m, tea.Batch(cmd, tick)
}

func (m Model) renderRemedies() string {
	t := m.theme
	w := m.contentWidth()
	b := m.app.Remedies

	header := t.Header.Width(w).Render(t.HeaderBrand.Render("Natural Remedies") + "  " +
		t.Muted.Render("Explore validated natural solutions for common ailments."))
	search := t.InputContainer.Width(w - 2).Render(m.remedies.query.View())

	var (
		body   string
		cursor int
	)
	list := b.Remedies()
	switch {
	case b.Loading() && len(list) == 0:
		body = m.spinner.View() + " Loading knowledge base..."
	case len(list) == 0:
		body = t.Muted.Render("No remedies found. Try a different search term.")
	default:
		body, cursor = m.renderRemedyList(list, b.Expanded(), w)
	}

	status := m.help(m.keys.Submit, m.keys.Back, m.keys.Chat, m.keys.SignOut)
	if b.Loading() && len(list) > 0 {
		status = m.spinner.View() + " searching...  " + status
	}

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(search) - 1
	body = windowLines(body, cursor, max(bodyHeight, 1))
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		search,
		lipgloss.NewStyle().Height(max(bodyHeight, 1)).Render(body),
		t.StatusBar.Width(w).Render(status),
	)
}

// renderRemedyList returns the list and the line index of the cursor row.
func (m Model) renderRemedyList(list []model.Remedy, expanded string, width int) (string, int) {
	t := m.theme
	var out []string
	cursorLine := 0
	for i, r := range list {
		marker := "  "
		nameStyle := t.CardTitle
		if i == m.remedies.cursor {
			cursorLine = len(out)
			marker = t.RowCursor.Render("> ")
			nameStyle = t.RowCursor
		}
		toggle := "+"
		if r.ID == expanded {
			toggle = "-"
		}
		out = append(out, marker+nameStyle.Render(toggle+" "+r.Name))
		out = append(out, "    "+t.Muted.Render(util.TruncateWidth(r.Description, width-6)))
		if r.ID == expanded {
			out = append(out, strings.Split(m.renderRemedyDetail(r, width-4), "\n")...)
		}
	}
	return strings.Join(out, "\n"), cursorLine
}

func (m Model) renderRemedyDetail(r model.Remedy, width int) string {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.CardTitle.Render("Ingredients"))
	b.WriteString("\n")
	for _, ing := range r.Ingredients {
		b.WriteString("  - " + ing + "\n")
	}
	if r.Benefits != "" {
		b.WriteString(t.CardTitle.Render("Benefits") + "\n" + r.Benefits + "\n")
	}
	if r.PreparationSteps != "" {
		b.WriteString(t.CardTitle.Render("Preparation") + "\n" + r.PreparationSteps + "\n")
	}
	if r.Warnings != "" {
		b.WriteString(t.Warning.Render(styles.StatusIndicators.Warning + " Warning: " + r.Warnings))
	}
	return lipgloss.NewStyle().MarginLeft(4).Render(t.Card.Width(max(width-4, 10)).Render(strings.TrimRight(b.String(), "\n")))
}

// windowLines keeps n lines of s, scrolled so line focus is visible.
func windowLines(s string, focus, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	start := 0
	if focus >= n {
		start = focus - n/2
	}
	if start+n > len(lines) {
		start = len(lines) - n
	}
	return strings.Join(lines[start:start+n], "\n")
}
