package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	fieldIdentifier = iota
	fieldPassword
)

type resetResultMsg struct{ err error }

type loginModel struct {
	sess       Session
	identifier string
	password   string
	focus      int
	busy       bool
	err        string
	frame      int
}

func newLoginModel(s Session) loginModel {
	return loginModel{sess: s}
}

// reset clears the form but keeps the identifier for convenience.
func (m loginModel) reset() loginModel {
	m.password = ""
	m.err = ""
	m.busy = false
	m.focus = fieldIdentifier
	if m.identifier != "" {
		m.focus = fieldPassword
	}
	return m
}

func (m loginModel) submit() tea.Cmd {
	sess := m.sess
	if sess == nil {
		return nil
	}
	id, pw := strings.TrimSpace(m.identifier), m.password
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		return loginResultMsg{err: sess.Login(ctx, id, pw)}
	}
}

func (m loginModel) resetPassword() tea.Cmd {
	sess := m.sess
	if sess == nil {
		return nil
	}
	email := strings.TrimSpace(m.identifier)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		return resetResultMsg{err: sess.ResetPassword(ctx, email)}
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.busy = false
		m.password = ""
		if msg.err != nil {
			m.err = "Login failed."
			m.focus = fieldPassword
		} else {
			m.err = ""
		}

	case resetResultMsg:
		m.busy = false

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch key := msg.String(); key {
		case "tab", "down", "shift+tab", "up":
			m.focus = 1 - m.focus
		case "enter":
			if m.focus == fieldIdentifier {
				m.focus = fieldPassword
				return m, nil
			}
			if strings.TrimSpace(m.identifier) == "" || m.password == "" {
				m.err = "Enter your username or email and password."
				return m, nil
			}
			m.err = ""
			m.busy = true
			return m, m.submit()
		case "ctrl+r":
			if !strings.Contains(m.identifier, "@") {
				m.err = "Enter your email address to reset the password."
				m.focus = fieldIdentifier
				return m, nil
			}
			m.err = ""
			m.busy = true
			return m, m.resetPassword()
		default:
			if m.focus == fieldIdentifier {
				m.identifier = editRune(m.identifier, key)
			} else {
				m.password = editRune(m.password, key)
			}
		}
	}
	return m, nil
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + selectedStyle.Render("Log in to WAVE space") + "\n\n")
	b.WriteString("  " + renderField("Username or email", m.identifier, "you@example.com", m.focus == fieldIdentifier, false, m.frame) + "\n")
	b.WriteString("  " + renderField("Password         ", m.password, "", m.focus == fieldPassword, true, m.frame) + "\n\n")
	switch {
	case m.busy:
		b.WriteString("  " + dimStyle.Render("signing in...") + "\n")
	case m.err != "":
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	}
	return b.String()
}

func (m loginModel) helpKeys() string {
	return helpEntry("tab", "next") + "  " + helpEntry("enter", "submit") + "  " + helpEntry("ctrl+r", "reset password")
}
