package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wavespace/wavespace/internal/browser"
	"github.com/wavespace/wavespace/internal/ui"
	"github.com/wavespace/wavespace/pkg/backend"
	"github.com/wavespace/wavespace/pkg/domain"
)

// postsTable is the board's source table.
const postsTable = "posts"

// categoryOrder is the cycle order for the category filter.
var categoryOrder = []string{"all", "free", "humor", "qna", "notice", "recruit", "event"}

type boardLoadedMsg struct {
	posts    []domain.Post
	page     int
	category string
	err      error
}

type boardModel struct {
	data     Data
	webURL   string
	pageSize int

	posts    []domain.Post
	page     int
	category string
	cursor   int
	hasMore  bool
	loading  bool
	err      string
	width    int
	height   int
}

func newBoardModel(d Data, pageSize int, webURL string) boardModel {
	return boardModel{data: d, pageSize: pageSize, webURL: webURL, page: 1, category: "all"}
}

func (m boardModel) withCategory(c string) boardModel {
	for _, known := range categoryOrder {
		if c == known {
			m.category = c
			m.page = 1
			return m
		}
	}
	return m
}

func (m boardModel) Init() tea.Cmd {
	return m.load(false)
}

func (m boardModel) query(force bool) backend.Query {
	q := backend.Query{
		Limit:        m.pageSize,
		Offset:       (m.page - 1) * m.pageSize,
		Order:        &backend.Order{Column: "created_at", Ascending: false},
		ForceRefresh: force,
	}
	if m.category != "all" {
		q.Filter = map[string]any{"category": m.category}
	}
	return q
}

func (m boardModel) load(force bool) tea.Cmd {
	d := m.data
	if d == nil {
		return nil
	}
	q := m.query(force)
	page, category := m.page, m.category
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		rows, err := d.GetData(ctx, postsTable, q)
		if err != nil {
			return boardLoadedMsg{page: page, category: category, err: err}
		}
		posts := make([]domain.Post, 0, len(rows))
		for _, r := range rows {
			posts = append(posts, domain.PostFromRow(r))
		}
		return boardLoadedMsg{posts: posts, page: page, category: category}
	}
}

func (m boardModel) Update(msg tea.Msg) (boardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case boardLoadedMsg:
		// Results for a page or filter we have since left are stale.
		if msg.page != m.page || msg.category != m.category {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.err = ""
		m.posts = msg.posts
		m.hasMore = len(msg.posts) == m.pageSize
		if m.cursor >= len(m.posts) {
			m.cursor = 0
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m boardModel) selected() (domain.Post, bool) {
	if m.cursor < 0 || m.cursor >= len(m.posts) {
		return domain.Post{}, false
	}
	return m.posts[m.cursor], true
}

func (m boardModel) handleKey(msg tea.KeyMsg) (boardModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.posts)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "n", "right":
		if m.hasMore {
			m.page++
			m.cursor = 0
			m.loading = true
			return m, m.load(false)
		}
	case "p", "left":
		if m.page > 1 {
			m.page--
			m.cursor = 0
			m.loading = true
			return m, m.load(false)
		}
	case "c":
		idx := 0
		for i, c := range categoryOrder {
			if c == m.category {
				idx = i
			}
		}
		m.category = categoryOrder[(idx+1)%len(categoryOrder)]
		m.page = 1
		m.cursor = 0
		m.loading = true
		return m, m.load(false)
	case "r":
		m.loading = true
		return m, m.load(true)
	case "y":
		if p, ok := m.selected(); ok {
			return m, copyCmd(cleanTitle(p.Title), "Title copied")
		}
	case "enter":
		if p, ok := m.selected(); ok && m.webURL != "" {
			browser.Open(strings.TrimRight(m.webURL, "/") + "/post/" + p.ID) //nolint:errcheck // best-effort browser open
		}
	}
	return m, nil
}

// copyCmd copies text to the clipboard and reports the outcome as a toast.
func copyCmd(text, done string) tea.Cmd {
	return func() tea.Msg {
		if err := copyToClipboard(text); err != nil {
			return toastMsg{Kind: ui.ToastError, Title: "Copy failed", Message: err.Error()}
		}
		return toastMsg{Kind: ui.ToastSuccess, Message: done}
	}
}

func (m boardModel) View() string {
	var b strings.Builder

	b.WriteString(" " + CategoryStyle(m.category).Render(m.category) +
		dimStyle.Render(fmt.Sprintf(" · page %d", m.page)))
	if m.loading {
		b.WriteString(dimStyle.Render(" · loading..."))
	}
	b.WriteString("\n")

	if m.err != "" {
		b.WriteString(" " + errorStyle.Render("error: "+m.err) + "\n")
		return b.String()
	}
	if len(m.posts) == 0 {
		if !m.loading {
			b.WriteString("\n " + dimStyle.Render("no posts here yet") + "\n")
		}
		return b.String()
	}

	titleWidth := max(m.width-48, 20)
	for i, p := range m.posts {
		cursor := " "
		title := normalStyle.Render(truncStr(cleanTitle(p.Title), titleWidth))
		if i == m.cursor {
			cursor = accentStyle.Render("▸")
			title = selectedStyle.Render(truncStr(cleanTitle(p.Title), titleWidth))
		}
		cat := CategoryStyle(p.Category).Render(fmt.Sprintf("%-7s", truncStr(p.Category, 7)))
		row := fmt.Sprintf(" %s %s %s", cursor, cat, title)
		if p.CommentCount > 0 {
			row += " " + accentStyle.Render(fmt.Sprintf("[%d]", p.CommentCount))
		}
		meta := []string{}
		if p.Author != "" {
			meta = append(meta, p.Author)
		}
		meta = append(meta, "♥ "+domain.FormatNumber(p.LikeCount), "views "+domain.FormatNumber(p.ViewCount))
		if ts := formatTime(p.CreatedAt); ts != "" {
			meta = append(meta, ts)
		}
		row += "  " + metaStyle.Render(strings.Join(meta, " · "))
		b.WriteString(row + "\n")
	}

	if m.hasMore || m.page > 1 {
		b.WriteString("\n " + dimStyle.Render("n next page · p previous page") + "\n")
	}
	return b.String()
}

func (m boardModel) helpKeys() string {
	return helpEntry("j/k", "nav") + "  " + helpEntry("n/p", "page") + "  " + helpEntry("c", "category") + "  " +
		helpEntry("r", "refresh") + "  " + helpEntry("y", "copy") + "  " + helpEntry("enter", "open")
}
