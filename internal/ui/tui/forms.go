// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sproutai/sprout-tui/internal/identity"
	"github.com/sproutai/sprout-tui/internal/model"
	"github.com/sproutai/sprout-tui/internal/router"
)

const formWidth = 36

func newInput(placeholder string, password bool) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = formWidth
	if password {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}
	return ti
}

// =============================================================================
// LOGIN
// =============================================================================

// Login focus positions after the inputs.
const (
	loginEmail = iota
	loginPassword
	loginSubmit
	loginLink
	loginFocusCount
)

type loginForm struct {
	email      textinput.Model
	password   textinput.Model
	cursor     int
	submitting bool
}

func newLoginForm() loginForm {
	f := loginForm{
		email:    newInput("you@example.com", false),
		password: newInput("password", true),
	}
	f.focus(loginEmail)
	return f
}

func (f *loginForm) focus(i int) {
	f.cursor = (i + loginFocusCount) % loginFocusCount
	f.email.Blur()
	f.password.Blur()
	switch f.cursor {
	case loginEmail:
		f.email.Focus()
	case loginPassword:
		f.password.Focus()
	}
}

func (f *loginForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.cursor {
	case loginEmail:
		f.email, cmd = f.email.Update(msg)
	case loginPassword:
		f.password, cmd = f.password.Update(msg)
	}
	return cmd
}

// ready reports whether both fields are filled in.
func (f loginForm) ready() bool {
	return strings.TrimSpace(f.email.Value()) != "" && f.password.Value() != ""
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.login
	switch {
	case key.Matches(msg, m.keys.NextField):
		f.focus(f.cursor + 1)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		f.focus(f.cursor - 1)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if f.cursor == loginLink {
			m.navigate(router.PathRegister)
			return m, nil
		}
		if f.cursor < loginPassword {
			f.focus(f.cursor + 1)
			return m, nil
		}
		if f.submitting || !f.ready() {
			return m, nil
		}
		f.submitting = true
		a, ctx := m.app, m.ctx
		email, password := strings.TrimSpace(f.email.Value()), f.password.Value()
		return m, func() tea.Msg {
			return loginDoneMsg{Err: a.Login(ctx, email, password)}
		}
	}
	return m, f.update(msg)
}

func (m Model) renderLogin() string {
	f := m.login
	t := m.theme

	var b strings.Builder
	b.WriteString(t.FormTitle.Render("Welcome back to Sprout AI"))
	b.WriteString("\n")
	b.WriteString(m.field("Email", f.email, f.cursor == loginEmail))
	b.WriteString(m.field("Password", f.password, f.cursor == loginPassword))
	b.WriteString("\n")

	label := "Sign in"
	if f.submitting {
		label = m.spinner.View() + " Signing in..."
	}
	b.WriteString(m.button(label, f.cursor == loginSubmit))
	b.WriteString("\n\n")
	b.WriteString(m.link("Don't have an account? Register", f.cursor == loginLink))

	form := t.FormBox.Render(b.String())
	footer := m.help(m.keys.NextField, m.keys.Submit, m.keys.Quit)
	return m.center(lipgloss.JoinVertical(lipgloss.Center, form, "", footer))
}

// =============================================================================
// REGISTER
// =============================================================================

const (
	registerName = iota
	registerEmail
	registerPassword
	registerRole
	registerSubmit
	registerLink
	registerFocusCount
)

type registerForm struct {
	name       textinput.Model
	email      textinput.Model
	password   textinput.Model
	role       int // index into model.AllRoles
	cursor     int
	submitting bool
}

func newRegisterForm() registerForm {
	f := registerForm{
		name:     newInput("Jane Doe", false),
		email:    newInput("you@example.com", false),
		password: newInput("at least 6 characters", true),
	}
	f.focus(registerName)
	return f
}

func (f *registerForm) focus(i int) {
	f.cursor = (i + registerFocusCount) % registerFocusCount
	f.name.Blur()
	f.email.Blur()
	f.password.Blur()
	switch f.cursor {
	case registerName:
		f.name.Focus()
	case registerEmail:
		f.email.Focus()
	case registerPassword:
		f.password.Focus()
	}
}

func (f *registerForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.cursor {
	case registerName:
		f.name, cmd = f.name.Update(msg)
	case registerEmail:
		f.email, cmd = f.email.Update(msg)
	case registerPassword:
		f.password, cmd = f.password.Update(msg)
	}
	return cmd
}

func (f registerForm) selectedRole() model.Role {
	return model.AllRoles[f.role]
}

func (f *registerForm) cycleRole(delta int) {
	n := len(model.AllRoles)
	f.role = ((f.role+delta)%n + n) % n
}

func (f registerForm) params() identity.SignUpParams {
	return identity.SignUpParams{
		Email:    strings.TrimSpace(f.email.Value()),
		Password: f.password.Value(),
		FullName: strings.TrimSpace(f.name.Value()),
		Role:     f.selectedRole(),
	}
}

func (f registerForm) ready() bool {
	p := f.params()
	return p.Email != "" && p.Password != "" && p.FullName != ""
}

func (m Model) handleRegisterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.register
	switch {
	case key.Matches(msg, m.keys.NextField):
		f.focus(f.cursor + 1)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		f.focus(f.cursor - 1)
		return m, nil
	case f.cursor == registerRole && key.Matches(msg, m.keys.Left):
		f.cycleRole(-1)
		return m, nil
	case f.cursor == registerRole && key.Matches(msg, m.keys.Right):
		f.cycleRole(1)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		if f.cursor == registerLink {
			m.navigate(router.PathLogin)
			return m, nil
		}
		if f.cursor < registerRole {
			f.focus(f.cursor + 1)
			return m, nil
		}
		if f.submitting || !f.ready() {
			return m, nil
		}
		f.submitting = true
		a, ctx, params := m.app, m.ctx, f.params()
		return m, func() tea.Msg {
			return registerDoneMsg{Err: a.Register(ctx, params)}
		}
	}
	return m, f.update(msg)
}

func (m Model) renderRegister() string {
	f := m.register
	t := m.theme

	var b strings.Builder
	b.WriteString(t.FormTitle.Render("Create your account"))
	b.WriteString("\n")
	b.WriteString(m.field("Full name", f.name, f.cursor == registerName))
	b.WriteString(m.field("Email", f.email, f.cursor == registerEmail))
	b.WriteString(m.field("Password", f.password, f.cursor == registerPassword))

	labelStyle := t.FormLabel
	if f.cursor == registerRole {
		labelStyle = t.FormLabelActive
	}
	b.WriteString(labelStyle.Render("Account type"))
	b.WriteString("\n")
	var roles []string
	for i, r := range model.AllRoles {
		name := roleLabel(r)
		if i == f.role {
			roles = append(roles, t.ButtonActive.Render(name))
		} else {
			roles = append(roles, t.Button.Render(name))
		}
	}
	b.WriteString(strings.Join(roles, " "))
	b.WriteString("\n\n")

	label := "Register"
	if f.submitting {
		label = m.spinner.View() + " Creating account..."
	}
	b.WriteString(m.button(label, f.cursor == registerSubmit))
	b.WriteString("\n\n")
	b.WriteString(m.link("Already have an account? Sign in", f.cursor == registerLink))

	form := t.FormBox.Render(b.String())
	footer := m.help(m.keys.NextField, m.keys.Left, m.keys.Right, m.keys.Submit)
	return m.center(lipgloss.JoinVertical(lipgloss.Center, form, "", footer))
}

// roleLabel is the registration form's name for a role.
func roleLabel(r model.Role) string {
	switch r {
	case model.RoleUser:
		return "Patient"
	case model.RoleAdmin:
		return "Admin"
	case model.RoleHospital:
		return "Hospital"
	default:
		return r.String()
	}
}

// =============================================================================
// FORM WIDGETS
// =============================================================================

func (m Model) field(label string, in textinput.Model, active bool) string {
	style := m.theme.FormLabel
	if active {
		style = m.theme.FormLabelActive
	}
	return style.Render(label) + "\n" + m.theme.InputContainer.Width(formWidth+2).Render(in.View()) + "\n"
}

func (m Model) button(label string, active bool) string {
	if active {
		return m.theme.ButtonActive.Render(label)
	}
	return m.theme.Button.Render(label)
}

func (m Model) link(label string, active bool) string {
	if active {
		return m.theme.FormLabelActive.Render("> " + label)
	}
	return m.theme.Link.Render(label)
}
