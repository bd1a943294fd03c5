// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/sproutai/sprout-tui/internal/app"
	"github.com/sproutai/sprout-tui/internal/auth"
	"github.com/sproutai/sprout-tui/internal/router"
	"github.com/sproutai/sprout-tui/internal/ui/styles"
)

// Model is the root Bubble Tea model.
type Model struct {
	app   *app.App
	theme *styles.Theme
	keys  KeyMap
	ctx   context.Context

	// changes is written by store callbacks; see waitForChange.
	changes chan struct{}

	width  int
	height int

	route router.Resolution
	page  router.Page
	// opened is the session id the transcript was last opened for.
	opened string

	spinner      spinner.Model
	renderer     *glamour.TermRenderer
	toastTicking bool

	login     loginForm
	register  registerForm
	chat      chatView
	remedies  remediesView
	dashboard dashboardView
}

// New creates the root model and subscribes it to every store of a.
func New(ctx context.Context, a *app.App, theme *styles.Theme) Model {
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	a.Sessions.OnChange(notify)
	a.Transcript.OnChange(notify)
	a.Toasts.OnChange(notify)
	a.Dashboard.OnChange(notify)
	a.Remedies.OnChange(notify)
	a.History.OnChange(func(string) { notify() })
	a.Auth.Subscribe(func(auth.State) { notify() })

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	return Model{
		app:       a,
		theme:     theme,
		keys:      DefaultKeyMap(),
		ctx:       ctx,
		changes:   changes,
		width:     80,
		height:    24,
		route:     router.Resolution{Loading: true},
		spinner:   sp,
		login:     newLoginForm(),
		register:  newRegisterForm(),
		chat:      newChatView(),
		remedies:  newRemediesView(),
		dashboard: newDashboardView(),
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the app and the change listener.
func (m Model) Init() tea.Cmd {
	a, ctx := m.app, m.ctx
	start := func() tea.Msg {
		return startedMsg{Err: a.Start(ctx)}
	}
	return tea.Batch(start, m.waitForChange(), m.spinner.Tick, textinput.Blink)
}

// waitForChange blocks until a store reports a change.
func (m Model) waitForChange() tea.Cmd {
	ch, ctx := m.changes, m.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return storeChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case storeChangedMsg:
		wait := m.waitForChange()
		var cmd tea.Cmd
		m, cmd = m.sync()
		return m, tea.Batch(wait, cmd)

	case startedMsg:
		if msg.Err != nil {
			log.Printf("TUI_START_FAILED | error=%v", msg.Err)
		}
		return m.sync()

	case toastTickMsg:
		if m.app.Toasts.Len() == 0 {
			m.toastTicking = false
			return m, nil
		}
		return m, toastTick()

	case loginDoneMsg:
		m.login.submitting = false
		if msg.Err == nil {
			m.login = newLoginForm()
		}
		return m, nil

	case registerDoneMsg:
		m.register.submitting = false
		if msg.Err == nil {
			m.register = newRegisterForm()
		}
		return m, nil

	case sendDoneMsg:
		if msg.Err != nil {
			log.Printf("TUI_SEND_FAILED | error=%v", msg.Err)
		}
		m.chat.refresh(m)
		return m, nil

	case actionDoneMsg:
		if msg.Err != nil {
			log.Printf("TUI_ACTION_FAILED | action=%s error=%v", msg.Action, msg.Err)
		}
		return m, nil

	case copiedMsg:
		if msg.Err != nil {
			log.Printf("TUI_COPY_FAILED | error=%v", msg.Err)
			m.app.Toasts.Error("Failed to copy to clipboard")
		} else {
			m.app.Toasts.Success("Reply copied to clipboard")
		}
		return m, nil

	case exportedMsg:
		if msg.Err != nil {
			log.Printf("TUI_EXPORT_FAILED | error=%v", msg.Err)
			m.app.Toasts.Error("Failed to export chat")
		} else {
			m.app.Toasts.Success("Chat exported to " + msg.Path)
		}
		return m, nil

	case searchTickMsg:
		if msg.Seq != m.remedies.seq {
			return m, nil
		}
		return m, m.searchCmd(m.remedies.query.Value())
	}

	return m.updateFocused(msg)
}

// View renders the current page with toasts on top.
func (m Model) View() string {
	var body string
	switch {
	case m.route.Loading:
		body = m.renderLoading()
	case m.page == router.PageLogin:
		body = m.renderLogin()
	case m.page == router.PageRegister:
		body = m.renderRegister()
	case m.page == router.PageChat:
		body = m.renderChat()
	case m.page == router.PageRemedies:
		body = m.withSidebar(m.renderRemedies())
	case m.page == router.PageDashboard:
		body = m.withSidebar(m.renderDashboard())
	default:
		body = m.renderLoading()
	}
	return m.overlayToasts(body)
}

// =============================================================================
// ROUTING
// =============================================================================

// sync re-resolves the route and runs page enter/leave hooks.
func (m Model) sync() (Model, tea.Cmd) {
	var cmds []tea.Cmd

	res, err := m.app.Resolve()
	if err != nil {
		log.Printf("TUI_RESOLVE_FAILED | error=%v", err)
		return m, nil
	}
	if res.Redirected && !res.Loading {
		m.app.History.Replace(res.Path)
	}

	prev := m.page
	m.route = res
	m.page = res.Page

	// Stop runs inline so it is ordered before any later Enter.
	if prev == router.PageDashboard && m.page != router.PageDashboard {
		m.app.Dashboard.Stop()
	}

	switch m.page {
	case router.PageChat:
		sid := res.SessionID()
		if prev != router.PageChat || sid != m.opened {
			m.opened = sid
			m.chat.focusInput()
			cmds = append(cmds, m.openCmd(sid))
		}
	case router.PageDashboard:
		if prev != router.PageDashboard {
			m.app.Dashboard.Enter(m.ctx, m.dashboard.tab)
		}
	case router.PageRemedies:
		if prev != router.PageRemedies {
			m.remedies.query.Focus()
			if !m.remedies.searched {
				m.remedies.searched = true
				cmds = append(cmds, m.searchCmd(""))
			}
		}
	case router.PageLogin:
		if prev != router.PageLogin {
			m.login.focus(0)
		}
	case router.PageRegister:
		if prev != router.PageRegister {
			m.register.focus(0)
		}
	}

	m.chat.refresh(m)
	m.dashboard.clamp(m.app.Dashboard.Snapshot())
	m.remedies.clamp(len(m.app.Remedies.Remedies()))
	m.chat.clamp(len(m.app.Sessions.Sessions()))

	if m.app.Toasts.Len() > 0 && !m.toastTicking {
		m.toastTicking = true
		cmds = append(cmds, toastTick())
	}
	return m, tea.Batch(cmds...)
}

func toastTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return toastTickMsg{} })
}

// navigate pushes path onto the history. The resulting change notification
// re-syncs the route.
func (m Model) navigate(path string) {
	if m.app.History.Current() != path {
		m.app.History.Push(path)
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) openCmd(sessionID string) tea.Cmd {
	c, ctx := m.app.Transcript, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{Action: "open", Err: c.Open(ctx, sessionID)}
	}
}

func (m Model) searchCmd(query string) tea.Cmd {
	b, ctx := m.app.Remedies, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{Action: "search", Err: b.Search(ctx, query)}
	}
}

// action runs fn in the background and reports its error.
func (m Model) action(name string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{Action: name, Err: fn(ctx)}
	}
}

// =============================================================================
// INPUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)

	m.renderer = newRenderer(m.theme, m.contentWidth()-8)
	m.chat.resize(m)
	m.remedies.query.Width = max(m.contentWidth()-12, 10)
	return m, nil
}

// contentWidth is the width right of the sidebar.
func (m Model) contentWidth() int {
	w := m.width - m.theme.SidebarWidth()
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Dismiss):
		if toasts := m.app.Toasts.Toasts(); len(toasts) > 0 {
			m.app.Toasts.Remove(toasts[0].ID)
		}
		return m, nil
	}

	if m.route.Loading {
		return m, nil
	}

	if m.app.Auth.State().Authenticated() && !m.capturingText() {
		switch {
		case key.Matches(msg, m.keys.Chat):
			m.navigate(router.PathChat)
			return m, nil
		case key.Matches(msg, m.keys.Remedies):
			m.navigate(router.PathRemedies)
			return m, nil
		case key.Matches(msg, m.keys.Dashboard):
			m.navigate(router.PathDashboard)
			return m, nil
		case key.Matches(msg, m.keys.SignOut):
			return m, m.action("sign out", m.app.SignOut)
		}
	}

	switch m.page {
	case router.PageLogin:
		return m.handleLoginKey(msg)
	case router.PageRegister:
		return m.handleRegisterKey(msg)
	case router.PageChat:
		return m.handleChatKey(msg)
	case router.PageRemedies:
		return m.handleRemediesKey(msg)
	case router.PageDashboard:
		return m.handleDashboardKey(msg)
	}
	return m, nil
}

// capturingText reports whether an inline editor owns every keystroke.
func (m Model) capturingText() bool {
	return m.page == router.PageChat && m.chat.renaming
}

// updateFocused forwards non-key messages (cursor blink) to the focused input.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.page {
	case router.PageLogin:
		cmd = m.login.update(msg)
	case router.PageRegister:
		cmd = m.register.update(msg)
	case router.PageChat:
		cmd = m.chat.update(msg)
	case router.PageRemedies:
		m.remedies.query, cmd = m.remedies.query.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// RENDERING HELPERS
// =============================================================================

func newRenderer(theme *styles.Theme, width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Printf("TUI_RENDERER_FAILED | error=%v", err)
		return nil
	}
	return r
}

func (m Model) renderLoading() string {
	return m.center(m.spinner.View() + " Loading...")
}

// center places s in the middle of the terminal.
func (m Model) center(s string) string {
	return placeCenter(m.width, m.height, s)
}

// overlayToasts draws the toast stack in the bottom-right corner.
func (m Model) overlayToasts(body string) string {
	toasts := m.app.Toasts.Toasts()
	if len(toasts) == 0 {
		return body
	}
	stack := renderToasts(toasts, m.width)
	return overlayBottomRight(body, stack, m.width, m.height)
}
