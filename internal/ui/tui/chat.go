// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sproutai/sprout-tui/internal/export"
	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/router"
	"github.com/sproutai/sprout-tui/internal/session"
	"github.com/sproutai/sprout-tui/internal/transcript"
	"github.com/sproutai/sprout-tui/internal/ui/styles"
	"github.com/sproutai/sprout-tui/internal/util"
)

const (
	inputPlaceholder = "Describe your symptoms (e.g., severe headache, fever)..."
	disclaimer       = "Sprout AI can make mistakes. Not a substitute for professional medical advice."
)

type chatFocus int

const (
	focusInput chatFocus = iota
	focusSidebar
)

// chatView is the chat page state that Bubble Tea components own.
type chatView struct {
	input    textinput.Model
	viewport viewport.Model
	focus    chatFocus

	// Sidebar
	cursor        int
	renaming      bool
	renameID      string
	rename        textinput.Model
	confirmDelete string

	// shown is the number of messages last rendered; growth scrolls down.
	shown int
}

func newChatView() chatView {
	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = inputPlaceholder
	in.CharLimit = 4096
	in.Focus()

	rn := textinput.New()
	rn.Prompt = ""
	rn.CharLimit = 120

	return chatView{
		input:    in,
		viewport: viewport.New(80, 20),
		rename:   rn,
	}
}

func (c *chatView) focusInput() {
	c.focus = focusInput
	c.renaming = false
	c.confirmDelete = ""
	c.rename.Blur()
	c.input.Focus()
}

func (c *chatView) focusSidebar() {
	c.focus = focusSidebar
	c.input.Blur()
}

func (c *chatView) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case c.renaming:
		c.rename, cmd = c.rename.Update(msg)
	case c.focus == focusInput:
		c.input, cmd = c.input.Update(msg)
	}
	return cmd
}

func (c *chatView) clamp(n int) {
	if c.cursor >= n {
		c.cursor = n - 1
	}
	if c.cursor < 0 {
		c.cursor = 0
	}
}

// Fixed rows around the transcript: header, input box (3), disclaimer,
// status bar.
const chatChromeHeight = 6

func (c *chatView) resize(m Model) {
	w := m.contentWidth()
	c.input.Width = max(w-8, 10)
	c.rename.Width = max(m.theme.SidebarWidth()-4, 8)
	c.layout(m)
}

func (c *chatView) layout(m Model) {
	h := m.height - chatChromeHeight
	if _, ok := m.app.Transcript.Banner(); ok {
		h -= lipgloss.Height(m.renderBanner())
	}
	c.viewport.Width = m.contentWidth()
	c.viewport.Height = max(h, 1)
}

// refresh re-renders the transcript into the viewport.
func (c *chatView) refresh(m Model) {
	c.layout(m)
	messages := m.app.Transcript.Messages()
	atBottom := c.viewport.AtBottom()
	c.viewport.SetContent(m.renderTranscript(messages))
	if len(messages) != c.shown || atBottom {
		c.viewport.GotoBottom()
	}
	c.shown = len(messages)
}

// selected returns the session under the sidebar cursor.
func (m Model) selected() (model.ChatSession, bool) {
	sessions := m.app.Sessions.Sessions()
	if m.chat.cursor < 0 || m.chat.cursor >= len(sessions) {
		return model.ChatSession{}, false
	}
	return sessions[m.chat.cursor], true
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := &m.chat

	if c.renaming {
		switch {
		case key.Matches(msg, m.keys.Submit):
			id, title := c.renameID, c.rename.Value()
			c.renaming = false
			c.rename.Blur()
			return m, m.action("rename", func(ctx context.Context) error {
				return m.app.Sessions.Rename(ctx, id, title)
			})
		case key.Matches(msg, m.keys.Back):
			c.renaming = false
			c.rename.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		c.rename, cmd = c.rename.Update(msg)
		return m, cmd
	}

	if c.focus == focusSidebar && c.confirmDelete != "" {
		id := c.confirmDelete
		c.confirmDelete = ""
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.action("delete", func(ctx context.Context) error {
				return m.app.DeleteChat(ctx, id)
			})
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.FocusSidebar):
		if c.focus == focusSidebar {
			c.focusInput()
		} else {
			c.focusSidebar()
		}
		return m, nil
	case key.Matches(msg, m.keys.NewChat):
		c.focusInput()
		m.navigate(router.PathChat)
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyReplyCmd()
	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()
	case key.Matches(msg, m.keys.PageUp):
		c.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		c.viewport.HalfViewDown()
		return m, nil
	}

	if c.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	switch msg.Type {
	case tea.KeyUp:
		c.viewport.LineUp(1)
		return m, nil
	case tea.KeyDown:
		c.viewport.LineDown(1)
		return m, nil
	case tea.KeyEsc:
		c.focusSidebar()
		return m, nil
	}

	if key.Matches(msg, m.keys.Submit) {
		text := c.input.Value()
		if util.IsBlank(text) || m.app.Transcript.Sending() {
			return m, nil
		}
		c.input.Reset()
		tr, ctx := m.app.Transcript, m.ctx
		return m, func() tea.Msg {
			return sendDoneMsg{Err: tr.Send(ctx, text)}
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := &m.chat
	n := len(m.app.Sessions.Sessions())

	switch {
	case key.Matches(msg, m.keys.Back):
		c.focusInput()
	case key.Matches(msg, m.keys.Up):
		if c.cursor > 0 {
			c.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if c.cursor < n-1 {
			c.cursor++
		}
	case key.Matches(msg, m.keys.Submit):
		if s, ok := m.selected(); ok {
			c.focusInput()
			path := router.ChatPath(s.ID)
			if m.app.History.Current() == path {
				// Same route: reload in place so a failed load can be retried.
				return m, m.openCmd(s.ID)
			}
			m.navigate(path)
		}
	case key.Matches(msg, m.keys.Rename):
		if s, ok := m.selected(); ok {
			c.renaming = true
			c.renameID = s.ID
			c.rename.SetValue(s.Title)
			c.rename.CursorEnd()
			return m, c.rename.Focus()
		}
	case key.Matches(msg, m.keys.Pin):
		if s, ok := m.selected(); ok {
			return m, m.action("pin", func(ctx context.Context) error {
				return m.app.Sessions.TogglePin(ctx, s.ID, s.IsPinned)
			})
		}
	case key.Matches(msg, m.keys.Delete):
		if s, ok := m.selected(); ok {
			c.confirmDelete = s.ID
		}
	}
	return m, nil
}

func (m Model) copyReplyCmd() tea.Cmd {
	reply, ok := m.app.Transcript.LastReply()
	if !ok {
		return nil
	}
	content := reply.Content
	return func() tea.Msg {
		return copiedMsg{Err: clipboard.WriteAll(content)}
	}
}

// exportCmd saves the open chat as Markdown under the export directory.
func (m Model) exportCmd() tea.Cmd {
	id := m.route.SessionID()
	if id == "" {
		m.app.Toasts.Info("Nothing to export yet")
		return nil
	}
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		dir, err := a.Config.ExportDir()
		if err != nil {
			return exportedMsg{Err: err}
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return exportedMsg{Err: err}
		}
		path, err := a.ExportChat(ctx, id, export.NewMarkdownExporter(nil), dir)
		return exportedMsg{Path: path, Err: err}
	}
}

// =============================================================================
// RENDERING
// =============================================================================

func (m Model) renderChat() string {
	t := m.theme
	w := m.contentWidth()

	header := t.Header.Width(w).Render(
		t.HeaderBrand.Render(m.chatTitle()) + "  " + m.renderIdentity(),
	)

	parts := []string{header}
	if banner := m.renderBanner(); banner != "" {
		parts = append(parts, banner)
	}
	parts = append(parts, m.chat.viewport.View())

	input := m.chat.input.View()
	if m.app.Transcript.Sending() {
		input = m.spinner.View() + " " + t.Muted.Render("Sprout AI is thinking...")
	}
	parts = append(parts,
		t.InputContainer.Width(w-2).Render(input),
		t.Muted.Width(w).Align(lipgloss.Center).Render(disclaimer),
		t.StatusBar.Width(w).Render(m.chatHelp()),
	)

	return m.withSidebar(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) chatHelp() string {
	if m.chat.focus == focusSidebar {
		if m.chat.renaming {
			return m.help(m.keys.Submit, m.keys.Back)
		}
		if m.chat.confirmDelete != "" {
			return m.theme.Warning.Render("Delete this chat? ") + m.help(m.keys.Confirm, m.keys.Back)
		}
		return m.help(m.keys.Submit, m.keys.Rename, m.keys.Pin, m.keys.Delete, m.keys.Back)
	}
	return m.help(m.keys.Submit, m.keys.FocusSidebar, m.keys.NewChat, m.keys.Copy, m.keys.Export, m.keys.SignOut)
}

// chatTitle is the active session's title.
func (m Model) chatTitle() string {
	id := m.route.SessionID()
	if id == "" {
		return "New Consultation"
	}
	if s, ok := m.app.Sessions.Get(id); ok && s.Title != "" {
		return s.Title
	}
	return "Consultation"
}

func (m Model) renderIdentity() string {
	state := m.app.Auth.State()
	if state.Principal == nil {
		return ""
	}
	badge := m.theme.Badge.Foreground(styles.RoleColor(state.Role)).Render(state.Role.String())
	return m.theme.Muted.Render(state.Principal.DisplayName()) + " " + badge
}

// renderBanner renders the emergency alert, or "" when none applies.
func (m Model) renderBanner() string {
	msg, ok := m.app.Transcript.Banner()
	if !ok {
		return ""
	}
	sev := msg.Severity()
	title := strings.ToUpper(string(sev)) + " ALERT"
	body := util.TruncateWidth(msg.Preview(), m.contentWidth()-4)
	return m.theme.EmergencyBanner.
		Foreground(styles.SeverityColor(sev)).
		Width(m.contentWidth()).
		Render(styles.StatusIndicators.Warning + " " + title + "\n" + body)
}

// renderTranscript renders all messages for the viewport.
func (m Model) renderTranscript(messages []model.Message) string {
	if len(messages) == 0 {
		if m.app.Transcript.Status() != transcript.StatusReady {
			return m.theme.Muted.Render(m.spinner.View() + " Loading conversation...")
		}
		return ""
	}
	rendered := make([]string, 0, len(messages))
	for _, msg := range messages {
		rendered = append(rendered, m.renderMessage(msg))
	}
	return strings.Join(rendered, "\n\n")
}

func (m Model) renderMessage(msg model.Message) string {
	t := m.theme
	w := m.contentWidth()
	bubbleWidth := w * 4 / 5

	switch msg.SenderRole {
	case model.SenderSystem:
		if msg.IsError {
			return t.ErrorBubble.Render(msg.Content)
		}
		return lipgloss.PlaceHorizontal(w, lipgloss.Center, t.SystemBubble.Render(msg.Content))

	case model.SenderUser:
		label := t.Muted.Render(msg.SenderRole.DisplayName())
		switch msg.Delivery {
		case model.DeliveryPending:
			label += t.Muted.Render(" (sending...)")
		case model.DeliveryFailed:
			label += " " + t.FailedMark.Render(styles.StatusIndicators.Error+" not delivered")
		}
		bubble := t.UserBubble.Width(bubbleWidth).Render(msg.Content)
		return lipgloss.JoinVertical(lipgloss.Right,
			lipgloss.PlaceHorizontal(w, lipgloss.Right, label),
			lipgloss.PlaceHorizontal(w, lipgloss.Right, bubble),
		)

	default:
		label := t.HeaderBrand.Render(msg.SenderRole.DisplayName())
		if !msg.CreatedAt.IsZero() {
			label += t.Muted.Render("  " + session.FormatAge(time.Since(msg.CreatedAt)))
		}
		return label + "\n" + t.AssistantBubble.Width(bubbleWidth).Render(m.markdown(msg.Content))
	}
}

// markdown renders assistant content, falling back to plain text.
func (m Model) markdown(content string) string {
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
