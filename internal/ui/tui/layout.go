// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/router"
	"github.com/sproutai/sprout-tui/internal/session"
	"github.com/sproutai/sprout-tui/internal/ui/components"
	"github.com/sproutai/sprout-tui/internal/util"
)

// =============================================================================
// SIDEBAR
// =============================================================================

// withSidebar joins the sidebar to the left of content. Narrow terminals
// get the content only.
func (m Model) withSidebar(content string) string {
	w := m.theme.SidebarWidth()
	if w == 0 {
		return content
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(w), content)
}

func (m Model) renderSidebar(width int) string {
	t := m.theme
	inner := width - 3 // padding and border

	top := []string{
		t.HeaderBrand.Render("Sprout AI"),
		"",
		t.NewChatButton.Render(util.TruncateWidth("+ New Consultation", inner-2)),
		"",
		t.SidebarHeading.Render("HISTORY"),
	}

	var bottom []string
	bottom = append(bottom, t.Muted.Render(strings.Repeat("-", inner)))
	role := m.app.Auth.State().Role
	for _, item := range router.NavItems(role) {
		style := t.NavItem
		if m.route.Path == item.Path {
			style = t.NavItemActive
		}
		bottom = append(bottom, style.Render(util.TruncateWidth(item.Name, inner)))
	}
	bottom = append(bottom, t.Muted.Render(strings.Repeat("-", inner)))
	if p := m.app.Auth.State().Principal; p != nil {
		bottom = append(bottom, t.SessionItem.Render(util.TruncateWidth(p.Email, inner)))
	}
	bottom = append(bottom, m.help(m.keys.SignOut))

	rows := m.height - len(top) - len(bottom)
	list := m.sessionRows(inner, max(rows, 1))

	lines := append(append(top, list...), bottom...)
	return t.Sidebar.Width(width - 1).Height(m.height).Render(strings.Join(lines, "\n"))
}

// sessionRows renders at most rows sidebar entries, keeping the cursor in view.
func (m Model) sessionRows(width, rows int) []string {
	t := m.theme
	reg := m.app.Sessions
	sessions := reg.Sessions()

	if reg.Loading() && len(sessions) == 0 {
		return padRows([]string{t.Muted.Render("Loading history...")}, rows)
	}
	if len(sessions) == 0 {
		return padRows([]string{t.Muted.Italic(true).Render("No previous chats")}, rows)
	}

	start := 0
	if m.chat.cursor >= rows {
		start = m.chat.cursor - rows + 1
	}
	end := min(start+rows, len(sessions))

	active := m.route.SessionID()
	now := time.Now()
	out := make([]string, 0, rows)
	for i := start; i < end; i++ {
		s := sessions[i]
		focused := m.chat.focus == focusSidebar && i == m.chat.cursor
		if focused && m.chat.renaming {
			out = append(out, m.chat.rename.View())
			continue
		}
		line := sessionLine(s, width, now)
		switch {
		case focused:
			out = append(out, t.SessionItemSelected.Render(line))
		case s.ID == active:
			out = append(out, t.SessionItemActive.Render(line))
		default:
			out = append(out, t.SessionItem.Render(line))
		}
	}
	return padRows(out, rows)
}

// sessionLine lays out "* title   age" in exactly width columns.
func sessionLine(s model.ChatSession, width int, now time.Time) string {
	mark := "  "
	if s.IsPinned {
		mark = "* "
	}
	age := ""
	if !s.UpdatedAt.IsZero() {
		age = " " + session.FormatAge(now.Sub(s.UpdatedAt))
	}
	title := s.Title
	if title == "" {
		title = "Untitled"
	}
	titleWidth := width - len(mark) - len(age)
	if titleWidth < 1 {
		return util.PadWidth(mark+title, width)
	}
	return mark + util.PadWidth(title, titleWidth) + age
}

func padRows(lines []string, rows int) []string {
	for len(lines) < rows {
		lines = append(lines, "")
	}
	return lines
}

// =============================================================================
// PLACEMENT
// =============================================================================

func placeCenter(width, height int, s string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, s)
}

func renderToasts(toasts []components.Toast, width int) string {
	return components.RenderToastStack(toasts, width, time.Now())
}

// overlayBottomRight replaces the last rows of body with stack, aligned
// right, so the result keeps the terminal height.
func overlayBottomRight(body, stack string, width, height int) string {
	bodyLines := strings.Split(body, "\n")
	stackLines := strings.Split(stack, "\n")

	keep := height - len(stackLines)
	if keep < 0 {
		keep = 0
	}
	if len(bodyLines) > keep {
		bodyLines = bodyLines[:keep]
	}
	placed := lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
	return strings.Join(append(bodyLines, placed), "\n")
}
