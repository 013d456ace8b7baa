package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wavespace/wavespace/internal/session"
	"github.com/wavespace/wavespace/pkg/domain"
)

const sidebarWidth = 30

type homeModel struct {
	sidebarCollapsed bool
	width            int
	height           int
}

func newHomeModel() homeModel {
	return homeModel{}
}

func (m homeModel) Update(msg tea.Msg) (homeModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// userCard renders the sidebar card: avatar, name, level, progress and points.
func userCard(snap session.Snapshot) string {
	if !snap.LoggedIn() {
		lines := []string{
			avatarStyle.Render("?") + " " + selectedStyle.Render("Guest"),
			"",
			dimStyle.Render("Log in to earn points,"),
			dimStyle.Render("level up and get notified."),
			"",
			helpEntry("l", "log in"),
		}
		return cardStyle.Width(sidebarWidth).Render(strings.Join(lines, "\n"))
	}

	u := snap.User
	name := u.DisplayName()
	head := avatarStyle.Render(initial(name)) + " " + selectedStyle.Render(truncStr(name, sidebarWidth-8))
	if u.IsAdmin() {
		head += " " + accentStyle.Render("admin")
	}

	points := pointsStyle.Render(snap.PointsText)
	if snap.PointsFlash {
		points = pointsFlashStyle.Render(snap.PointsText)
	}

	next := metaStyle.Render("max level")
	if snap.Level < domain.MaxLevel {
		next = metaStyle.Render(fmt.Sprintf("%s P to Lv.%d", domain.FormatNumber(snap.ToNext), snap.Level+1))
	}

	lines := []string{
		head,
		"",
		levelStyle.Render(fmt.Sprintf("Lv.%d", snap.Level)) + "  " + points,
		progressBar(snap.Progress, sidebarWidth-8) + " " + dimStyle.Render(fmt.Sprintf("%d%%", snap.Progress)),
		next,
	}
	if u.MemberType != "" {
		lines = append(lines, "", dimStyle.Render(u.MemberType))
	}
	return cardStyle.Width(sidebarWidth).Render(strings.Join(lines, "\n"))
}

func (m homeModel) View(snap session.Snapshot, unread int, ready bool) string {
	var main strings.Builder
	switch {
	case !ready:
		main.WriteString(dimStyle.Render("connecting to WAVE space..."))
	case snap.LoggedIn():
		fmt.Fprintf(&main, "%s %s\n\n", normalStyle.Render("Welcome back,"), selectedStyle.Render(snap.User.DisplayName()))
		if unread > 0 {
			fmt.Fprintf(&main, "%s %s\n", unreadDotStyle.Render("●"),
				normalStyle.Render(fmt.Sprintf("%d unread notification%s", unread, plural(unread))))
		} else {
			main.WriteString(dimStyle.Render("You're all caught up.") + "\n")
		}
	default:
		main.WriteString(normalStyle.Render("Welcome to WAVE space.") + "\n\n")
		main.WriteString(dimStyle.Render("Browse the board as a guest, or log in to join in.") + "\n")
	}
	main.WriteString("\n" + helpEntry("2", "board") + "  " + helpEntry("3", "notifications"))

	body := lipgloss.NewStyle().PaddingLeft(2).Render(main.String())
	if m.sidebarCollapsed {
		return "\n" + body
	}
	return "\n" + lipgloss.JoinHorizontal(lipgloss.Top, " "+userCard(snap), body)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
