// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sproutai/sprout-tui/internal/dashboard"
	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/ui/styles"
	"github.com/sproutai/sprout-tui/internal/util"
)

type dashboardView struct {
	tab    dashboard.Tab
	cursor int
}

func newDashboardView() dashboardView {
	return dashboardView{tab: dashboard.TabEmergencies}
}

func (d *dashboardView) clamp(s dashboard.Snapshot) {
	n := len(s.Emergencies)
	if d.tab == dashboard.TabPatients {
		n = len(s.Users)
	}
	if d.cursor >= n {
		d.cursor = n - 1
	}
	if d.cursor < 0 {
		d.cursor = 0
	}
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := &m.dashboard
	poller := m.app.Dashboard
	snap := poller.Snapshot()

	switchTab := func(tab dashboard.Tab) (tea.Model, tea.Cmd) {
		if tab != d.tab {
			d.tab = tab
			d.cursor = 0
			poller.Enter(m.ctx, tab)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Tab1):
		return switchTab(dashboard.TabEmergencies)
	case key.Matches(msg, m.keys.Tab2):
		return switchTab(dashboard.TabPatients)
	case key.Matches(msg, m.keys.Tab3):
		return switchTab(dashboard.TabSystem)
	case key.Matches(msg, m.keys.Left):
		return switchTab(dashboard.Tabs[(int(d.tab)+len(dashboard.Tabs)-1)%len(dashboard.Tabs)])
	case key.Matches(msg, m.keys.Right):
		return switchTab(dashboard.Tabs[(int(d.tab)+1)%len(dashboard.Tabs)])
	case key.Matches(msg, m.keys.Up):
		if d.cursor > 0 {
			d.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		d.cursor++
		d.clamp(snap)
	case key.Matches(msg, m.keys.Refresh):
		return m, m.action("refresh", poller.Refresh)
	case key.Matches(msg, m.keys.Acknowledge), key.Matches(msg, m.keys.Resolve):
		if d.tab != dashboard.TabEmergencies || d.cursor >= len(snap.Emergencies) {
			return m, nil
		}
		e := snap.Emergencies[d.cursor]
		status := model.StatusResolved
		if key.Matches(msg, m.keys.Acknowledge) {
			status = model.StatusAcknowledged
		}
		if e.Status == status || e.Status == model.StatusResolved {
			return m, nil
		}
		return m, m.action("update status", func(ctx context.Context) error {
			return poller.UpdateStatus(ctx, e.ID, status)
		})
	}
	return m, nil
}

// =============================================================================
// RENDERING
// =============================================================================

func (m Model) renderDashboard() string {
	t := m.theme
	w := m.contentWidth()
	snap := m.app.Dashboard.Snapshot()

	header := t.Header.Width(w).Render(t.HeaderBrand.Render("Admin Command Center") + "  " +
		t.Muted.Render("Real-time monitoring & patient management"))

	var tabs []string
	for i, tab := range dashboard.Tabs {
		label := strconv.Itoa(i+1) + " " + tab.String()
		if tab == m.dashboard.tab {
			tabs = append(tabs, t.TabActive.Render(label))
		} else {
			tabs = append(tabs, t.Tab.Render(label))
		}
	}
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	cards := m.renderStatCards(snap, w)

	var body string
	switch {
	case snap.Loading:
		body = m.spinner.View() + " Loading dashboard..."
	case m.dashboard.tab == dashboard.TabEmergencies:
		body = m.renderEmergencies(snap.Emergencies, w)
	case m.dashboard.tab == dashboard.TabPatients:
		body = m.renderPatients(snap.Users, w)
	default:
		body = m.renderSystem(snap.Stats, w)
	}

	help := m.help(m.keys.Tab1, m.keys.Tab2, m.keys.Tab3, m.keys.Refresh)
	if m.dashboard.tab == dashboard.TabEmergencies {
		help = m.help(m.keys.Acknowledge, m.keys.Resolve, m.keys.Refresh, m.keys.Tab2, m.keys.Tab3)
	}
	if !snap.UpdatedAt.IsZero() {
		help += "  " + t.Muted.Render("updated "+snap.UpdatedAt.Format("15:04:05"))
	}

	used := lipgloss.Height(header) + lipgloss.Height(tabBar) + lipgloss.Height(cards) + 1
	bodyHeight := max(m.height-used, 1)
	body = windowLines(body, m.dashboard.cursor+1, bodyHeight)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		tabBar,
		cards,
		lipgloss.NewStyle().Height(bodyHeight).Render(body),
		t.StatusBar.Width(w).Render(help),
	)
}

func (m Model) renderStatCards(s dashboard.Snapshot, width int) string {
	users := "--"
	if n := s.UserCount(); n > 0 {
		users = strconv.Itoa(n)
	}
	cards := []struct{ title, value string }{
		{"Active Emergencies", strconv.Itoa(s.PendingCount())},
		{"Registered Users", users},
		{"Server CPU Load", fmt.Sprintf("%d%%", s.Stats.CPU)},
		{"DB Health", s.Stats.DB},
	}
	cardWidth := max(width/len(cards)-2, 12)
	var out []string
	for _, c := range cards {
		content := m.theme.StatLabel.Render(util.TruncateWidth(c.title, cardWidth-2)) + "\n" +
			m.theme.StatValue.Render(c.value)
		out = append(out, m.theme.Card.Width(cardWidth).Render(content))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func (m Model) renderEmergencies(list []model.Emergency, width int) string {
	t := m.theme
	if len(list) == 0 {
		return t.Muted.Render("No incidents reported.")
	}

	const sevW, statusW, dateW = 10, 14, 17
	patientW := 20
	descW := max(width-sevW-statusW-dateW-patientW-8, 10)

	rows := []string{t.TableHead.Render(
		"  " + util.PadWidth("SEVERITY", sevW) + " " + util.PadWidth("PATIENT", patientW) + " " +
			util.PadWidth("INCIDENT", descW) + " " + util.PadWidth("REPORTED", dateW) + " " + "STATUS"),
	}
	for i, e := range list {
		marker := "  "
		if i == m.dashboard.cursor {
			marker = t.RowCursor.Render("> ")
		}
		sev := lipgloss.NewStyle().Foreground(styles.SeverityColor(e.Severity)).Bold(true).
			Render(util.PadWidth(strings.ToUpper(string(e.Severity)), sevW))
		status := lipgloss.NewStyle().Foreground(styles.StatusColor(e.Status)).
			Render(string(e.Status))
		reported := ""
		if !e.CreatedAt.IsZero() {
			reported = e.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, marker+sev+" "+
			util.PadWidth(e.Users.Initial("?")+" "+e.PatientName(), patientW)+" "+
			util.PadWidth(e.Description, descW)+" "+
			util.PadWidth(reported, dateW)+" "+status)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderPatients(users []model.UserProfile, width int) string {
	t := m.theme
	if len(users) == 0 {
		return t.Muted.Render("No registered users.")
	}

	const roleW, joinedW = 10, 12
	nameW := 24
	emailW := max(width-nameW-roleW-joinedW-6, 10)

	rows := []string{t.TableHead.Render(
		"  " + util.PadWidth("USER", nameW) + " " + util.PadWidth("EMAIL", emailW) + " " +
			util.PadWidth("ROLE", roleW) + " " + "JOINED"),
	}
	for i := range users {
		u := &users[i]
		marker := "  "
		if i == m.dashboard.cursor {
			marker = t.RowCursor.Render("> ")
		}
		name := u.FullName
		if name == "" {
			name = "Unknown"
		}
		role := lipgloss.NewStyle().Foreground(styles.RoleColor(u.Role)).
			Render(util.PadWidth(u.Role.String(), roleW))
		joined := ""
		if !u.CreatedAt.IsZero() {
			joined = u.CreatedAt.Local().Format("2006-01-02")
		}
		rows = append(rows, marker+
			util.PadWidth(u.Initial("?")+" "+name, nameW)+" "+
			util.PadWidth(u.Email, emailW)+" "+role+" "+joined)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderSystem(s model.SystemStats, width int) string {
	t := m.theme
	barW := max(width-24, 10)
	line := func(label string, pct int) string {
		return t.StatLabel.Render(util.PadWidth(label, 10)) + " " +
			styles.RenderProgressBar(barW, float64(pct)) + " " +
			t.StatValue.Render(fmt.Sprintf("%3d%%", pct))
	}
	db := styles.RenderSuccess(s.DB)
	if s.DB != "Healthy" {
		db = styles.RenderWarning(s.DB)
	}
	return strings.Join([]string{
		t.CardTitle.Render("System Health"),
		"",
		line("CPU", s.CPU),
		line("Memory", s.Memory),
		t.StatLabel.Render(util.PadWidth("Database", 10)) + " " + db,
	}, "\n")
}
