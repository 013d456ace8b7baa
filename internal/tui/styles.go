package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wavespace/wavespace/internal/ui"
)

// Shimmer animation for the WAVE logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "W A V E" as a wave of light rolling from deep
// navy (#12304f) to bright cyan (#5ee0f5).
func renderShimmerLogo(frame int) string {
	const text = "WAVE"
	n := len(text)
	t := float64(frame)

	var out strings.Builder
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)
		tide := math.Sin(t*0.035) * 0.12
		b = b*0.75 + tide + 0.18
		b = math.Min(1, math.Max(0.05, b))

		r := clampByte(18 + b*(94-18))
		g := clampByte(48 + b*(224-48))
		bl := clampByte(79 + b*(245-79))

		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, bl)))
		out.WriteString(s.Render(string(text[i])))
		if i < n-1 {
			out.WriteString("  ")
		}
	}
	return out.String()
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e8f4")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c8d8"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505a70"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505a70"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#38bdf8"))

	pointsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fbbf24")).
			Bold(true)

	// pointsFlashStyle is used for one second after the points change.
	pointsFlashStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#111827")).
				Background(lipgloss.Color("#fbbf24")).
				Bold(true)

	levelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a78bfa")).
			Bold(true)

	unreadDotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#38bdf8"))

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#ef4444")).
			Bold(true).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171"))

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#38bdf8")).
				Bold(true)

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1e2a3a")).
			Padding(0, 1)

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#38bdf8")).
			Padding(1, 3)

	avatarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0b1220")).
			Background(lipgloss.Color("#38bdf8")).
			Bold(true).
			Padding(0, 1)

	progressFullStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#38bdf8"))
	progressEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#1e2a3a"))

	categoryColors = map[string]lipgloss.Color{
		"free":    lipgloss.Color("#60a5fa"),
		"humor":   lipgloss.Color("#f0944a"),
		"qna":     lipgloss.Color("#34d399"),
		"notice":  lipgloss.Color("#f87171"),
		"recruit": lipgloss.Color("#c084e0"),
		"event":   lipgloss.Color("#fbbf24"),
	}

	toastColors = map[ui.ToastKind]lipgloss.Color{
		ui.ToastInfo:    lipgloss.Color("#38bdf8"),
		ui.ToastSuccess: lipgloss.Color("#34d399"),
		ui.ToastWarning: lipgloss.Color("#fbbf24"),
		ui.ToastError:   lipgloss.Color("#f87171"),
		ui.ToastPoints:  lipgloss.Color("#fbbf24"),
		ui.ToastLevel:   lipgloss.Color("#a78bfa"),
	}
)

// CategoryStyle returns a bold style colored for a board category.
func CategoryStyle(category string) lipgloss.Style {
	if c, ok := categoryColors[category]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0")).Bold(true)
}

// ToastStyle returns the bordered style for a toast of the given kind.
func ToastStyle(kind ui.ToastKind) lipgloss.Style {
	c, ok := toastColors[kind]
	if !ok {
		c = toastColors[ui.ToastInfo]
	}
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(c).
		Foreground(c).
		PaddingLeft(1)
}

// toastIcon is the glyph leading a toast line.
func toastIcon(kind ui.ToastKind) string {
	switch kind {
	case ui.ToastSuccess:
		return "✓"
	case ui.ToastWarning:
		return "!"
	case ui.ToastError:
		return "✗"
	case ui.ToastPoints:
		return "★"
	case ui.ToastLevel:
		return "▲"
	}
	return "•"
}

// progressBar renders pct (clamped to 0..100) as a bar of width cells.
func progressBar(pct, width int) string {
	if width <= 0 {
		return ""
	}
	pct = min(max(pct, 0), 100)
	filled := pct * width / 100
	return progressFullStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpItem is a selectable link in the help overlay.
type helpItem struct {
	label string
	path  string
}

var helpItems = []helpItem{
	{"Community", "/"},
	{"Points policy", "/points-policy"},
	{"Notices", "/notice"},
	{"Forgot password", "/reset-password"},
}

// helpView renders the help overlay with a cursor over the web links.
func helpView(cursor int, webURL, version string) string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#38bdf8")).
		Bold(true).
		Render("W A V E   s p a c e")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#38bdf8"))
	linkDescStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)

	commands := []struct{ cmd, desc string }{
		{"wavespace", "Open the community (interactive TUI)"},
		{"wavespace logout", "Clear the saved session"},
		{"wavespace health", "Check the backend connection"},
		{"wavespace reset-password", "Email a password reset link"},
		{"wavespace version", "Show version"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s  %s\n\n", title, descStyle.Render(version))

	fmt.Fprintf(&b, "  %s\n", sectionStyle.Render("Commands"))
	for _, c := range commands {
		fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-26s", c.cmd)), descStyle.Render(c.desc))
	}

	fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render("Links (enter to open)"))
	for i, item := range helpItems {
		label := cmdStyle.Render(fmt.Sprintf("%-20s", item.label))
		prefix := "    "
		if i == cursor {
			label = cursorStyle.Render(fmt.Sprintf("%-20s", item.label))
			prefix = "  > "
		}
		fmt.Fprintf(&b, "%s%s  %s\n", prefix, label, linkDescStyle.Render(strings.TrimRight(webURL, "/")+item.path))
	}
	return b.String()
}
