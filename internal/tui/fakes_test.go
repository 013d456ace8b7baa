package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wavespace/wavespace/internal/localstate"
	"github.com/wavespace/wavespace/internal/session"
	"github.com/wavespace/wavespace/pkg/backend"
	"github.com/wavespace/wavespace/pkg/domain"
)

type fakeSession struct {
	snap      session.Snapshot
	initErr   error
	loginErr  error
	resetErr  error
	logoutErr error

	inits     int
	logins    [][2]string
	resets    []string
	logouts   int
	gates     []string
	refreshes int
}

func (f *fakeSession) Init(context.Context) error            { f.inits++; return f.initErr }
func (f *fakeSession) Snapshot() session.Snapshot            { return f.snap }
func (f *fakeSession) RefreshUserInfo(context.Context) error { f.refreshes++; return nil }

func (f *fakeSession) Login(_ context.Context, identifier, password string) error {
	f.logins = append(f.logins, [2]string{identifier, password})
	return f.loginErr
}

func (f *fakeSession) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeSession) ResetPassword(_ context.Context, email string) error {
	f.resets = append(f.resets, email)
	return f.resetErr
}

func (f *fakeSession) RequireAuth(action string) bool {
	f.gates = append(f.gates, action)
	return f.snap.LoggedIn()
}

type inboxQuery struct {
	page, limit int
	unreadOnly  bool
}

type fakeInbox struct {
	items   []domain.Notification
	unread  int
	err     error
	markErr error

	inits   int
	queries []inboxQuery
	marked  []string
	markAll int
}

func (f *fakeInbox) Init(context.Context) error { f.inits++; return nil }
func (f *fakeInbox) UnreadCount() int           { return f.unread }

func (f *fakeInbox) GetNotifications(_ context.Context, page, limit int, unreadOnly bool) ([]domain.Notification, error) {
	f.queries = append(f.queries, inboxQuery{page, limit, unreadOnly})
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeInbox) MarkAsRead(_ context.Context, id string) error {
	f.marked = append(f.marked, id)
	return f.markErr
}

func (f *fakeInbox) MarkAllAsRead(context.Context) error {
	f.markAll++
	return f.markErr
}

type fakeData struct {
	rows    []backend.Row
	err     error
	tables  []string
	queries []backend.Query
}

func (f *fakeData) GetData(_ context.Context, table string, q backend.Query) ([]backend.Row, error) {
	f.tables = append(f.tables, table)
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type fakePrefs struct {
	load  localstate.Prefs
	saved []localstate.Prefs
}

func (f *fakePrefs) LoadPrefs(context.Context) (localstate.Prefs, error) { return f.load, nil }

func (f *fakePrefs) SavePrefs(_ context.Context, p localstate.Prefs) error {
	f.saved = append(f.saved, p)
	return nil
}

// runCmd executes cmd and any batched children, returning the non-nil
// messages. Only use it on commands that contain no ticks.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func enterKey() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter}
}

func testUser() *domain.User {
	return &domain.User{ID: "u1", Username: "wave", Nickname: "Surfer", Points: 1500, Role: domain.RoleUser}
}

func loggedInSnapshot() session.Snapshot {
	return session.Snapshot{
		State:      session.Ready,
		User:       testUser(),
		Level:      2,
		Progress:   50,
		ToNext:     500,
		PointsText: "1.5K P",
	}
}
