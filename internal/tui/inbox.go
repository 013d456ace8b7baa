package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wavespace/wavespace/internal/notify"
	"github.com/wavespace/wavespace/internal/ui"
	"github.com/wavespace/wavespace/pkg/domain"
)

type inboxLoadedMsg struct {
	items      []domain.Notification
	page       int
	unreadOnly bool
	err        error
}

// inboxActionMsg reports a mark-as-read; success reloads the list.
type inboxActionMsg struct {
	err error
}

type inboxModel struct {
	inbox    Inbox
	pageSize int

	items      []domain.Notification
	page       int
	unreadOnly bool
	cursor     int
	hasMore    bool
	loading    bool
	err        string
	width      int
	height     int
}

func newInboxModel(in Inbox, pageSize int) inboxModel {
	return inboxModel{inbox: in, pageSize: pageSize, page: 1}
}

func (m inboxModel) Init() tea.Cmd {
	return m.load()
}

func (m inboxModel) load() tea.Cmd {
	in := m.inbox
	if in == nil {
		return nil
	}
	page, limit, unreadOnly := m.page, m.pageSize, m.unreadOnly
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		items, err := in.GetNotifications(ctx, page, limit, unreadOnly)
		return inboxLoadedMsg{items: items, page: page, unreadOnly: unreadOnly, err: err}
	}
}

func (m inboxModel) markRead(id string) tea.Cmd {
	in := m.inbox
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		return inboxActionMsg{err: in.MarkAsRead(ctx, id)}
	}
}

func (m inboxModel) markAllRead() tea.Cmd {
	in := m.inbox
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		return inboxActionMsg{err: in.MarkAllAsRead(ctx)}
	}
}

func (m inboxModel) Update(msg tea.Msg) (inboxModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case inboxLoadedMsg:
		if msg.page != m.page || msg.unreadOnly != m.unreadOnly {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.items = msg.items
		m.hasMore = len(msg.items) == m.pageSize
		if m.cursor >= len(m.items) {
			m.cursor = max(len(m.items)-1, 0)
		}

	case inboxActionMsg:
		if msg.err != nil {
			return m, func() tea.Msg {
				return toastMsg{Kind: ui.ToastError, Title: "Notifications", Message: msg.err.Error()}
			}
		}
		m.loading = true
		return m, m.load()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m inboxModel) handleKey(msg tea.KeyMsg) (inboxModel, tea.Cmd) {
	if m.inbox == nil {
		return m, nil
	}
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if m.cursor < len(m.items) && !m.items[m.cursor].IsRead {
			return m, m.markRead(m.items[m.cursor].ID)
		}
	case "a":
		return m, m.markAllRead()
	case "u":
		m.unreadOnly = !m.unreadOnly
		m.page = 1
		m.cursor = 0
		m.loading = true
		return m, m.load()
	case "n", "right":
		if m.hasMore {
			m.page++
			m.cursor = 0
			m.loading = true
			return m, m.load()
		}
	case "p", "left":
		if m.page > 1 {
			m.page--
			m.cursor = 0
			m.loading = true
			return m, m.load()
		}
	case "r":
		m.loading = true
		return m, m.load()
	case "y":
		if m.cursor < len(m.items) {
			n := m.items[m.cursor]
			text := n.Message
			if text == "" {
				text = n.Title
			}
			return m, copyCmd(text, "Message copied")
		}
	}
	return m, nil
}

func (m inboxModel) View() string {
	var b strings.Builder

	filter := "all"
	if m.unreadOnly {
		filter = "unread only"
	}
	b.WriteString(" " + accentStyle.Render(filter) + dimStyle.Render(fmt.Sprintf(" · page %d", m.page)))
	if m.loading {
		b.WriteString(dimStyle.Render(" · loading..."))
	}
	b.WriteString("\n")

	if m.err != "" {
		b.WriteString(" " + errorStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}
	if len(m.items) == 0 {
		if !m.loading {
			b.WriteString("\n " + dimStyle.Render("no notifications") + "\n")
		}
		return b.String()
	}

	msgWidth := max(m.width-40, 20)
	for i, n := range m.items {
		cursor := " "
		if i == m.cursor {
			cursor = accentStyle.Render("▸")
		}
		dot := " "
		title := dimStyle.Render(n.Title)
		if !n.IsRead {
			dot = unreadDotStyle.Render("●")
			title = selectedStyle.Render(n.Title)
		}
		row := fmt.Sprintf(" %s %s %s %s", cursor, dot, accentStyle.Render(notify.Icon(n.Type)), title)
		if n.Message != "" {
			row += "  " + normalStyle.Render(truncStr(cleanTitle(n.Message), msgWidth))
		}
		if ts := formatTime(n.CreatedAt); ts != "" {
			row += "  " + metaStyle.Render(ts)
		}
		b.WriteString(row + "\n")
	}
	return b.String()
}

func (m inboxModel) helpKeys() string {
	return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "read") + "  " + helpEntry("a", "read all") + "  " +
		helpEntry("u", "unread") + "  " + helpEntry("y", "copy")
}
