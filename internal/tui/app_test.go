package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wavespace/wavespace/internal/localstate"
	"github.com/wavespace/wavespace/internal/session"
	"github.com/wavespace/wavespace/internal/ui"
	"github.com/wavespace/wavespace/pkg/backend"
)

type testDeps struct {
	sess  *fakeSession
	inbox *fakeInbox
	data  *fakeData
	prefs *fakePrefs
}

func newTestApp() (App, testDeps) {
	d := testDeps{
		sess:  &fakeSession{snap: session.Snapshot{State: session.Ready, Level: 1}},
		inbox: &fakeInbox{},
		data:  &fakeData{},
		prefs: &fakePrefs{load: localstate.DefaultPrefs()},
	}
	a := NewApp(Options{Session: d.sess, Inbox: d.inbox, Data: d.data, Prefs: d.prefs, WebURL: "https://wave.example"})
	a.width = 100
	a.height = 30
	a.ready = true
	a.snap = d.sess.snap
	return a, d
}

func update(a App, msg tea.Msg) (App, tea.Cmd) {
	m, cmd := a.Update(msg)
	return m.(App), cmd
}

func TestAppInitServices(t *testing.T) {
	a, d := newTestApp()
	d.sess.snap = loggedInSnapshot()
	d.inbox.unread = 7

	msgs := runCmd(a.initServices())
	if d.sess.inits != 1 || d.inbox.inits != 1 {
		t.Fatalf("inits = %d/%d, want 1/1", d.sess.inits, d.inbox.inits)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	a.ready = false
	a, _ = update(a, msgs[0])
	if !a.ready || !a.snap.LoggedIn() || a.unread != 7 {
		t.Errorf("ready=%v loggedIn=%v unread=%d", a.ready, a.snap.LoggedIn(), a.unread)
	}
}

func TestAppInitServicesFailureToasts(t *testing.T) {
	a, _ := newTestApp()
	a, _ = update(a, servicesReadyMsg{err: errors.New("timeout")})
	if len(a.toasts) != 1 || a.toasts[0].toast.Title != "Offline" {
		t.Errorf("toasts = %+v, want offline warning", a.toasts)
	}
}

func TestAppTabSwitching(t *testing.T) {
	a, d := newTestApp()

	a, cmd := update(a, keyRunes("2"))
	if a.view != viewBoard {
		t.Fatalf("view = %d, want board", a.view)
	}
	runCmd(cmd)
	if len(d.data.queries) != 1 {
		t.Errorf("board queries = %d, want 1", len(d.data.queries))
	}
	if n := len(d.prefs.saved); n != 1 || d.prefs.saved[0].LastView != ui.PageBoard {
		t.Errorf("saved prefs = %+v, want last view board", d.prefs.saved)
	}

	a, _ = update(a, keyRunes("1"))
	if a.view != viewHome {
		t.Errorf("view = %d, want home", a.view)
	}
}

func TestAppInboxRequiresLogin(t *testing.T) {
	a, d := newTestApp()
	a, cmd := update(a, keyRunes("3"))
	if a.view != viewHome {
		t.Errorf("view = %d, want home for guests", a.view)
	}
	runCmd(cmd)
	if len(d.sess.gates) != 1 {
		t.Errorf("RequireAuth calls = %v, want one", d.sess.gates)
	}

	a.snap = loggedInSnapshot()
	a, cmd = update(a, keyRunes("3"))
	if a.view != viewInbox {
		t.Fatalf("view = %d, want inbox when logged in", a.view)
	}
	runCmd(cmd)
	if len(d.inbox.queries) != 1 {
		t.Errorf("inbox queries = %d, want 1", len(d.inbox.queries))
	}
}

func TestAppLogoutLeavesInbox(t *testing.T) {
	a, _ := newTestApp()
	a.snap = loggedInSnapshot()
	a.view = viewInbox
	a, _ = update(a, snapshotMsg(session.Snapshot{State: session.Ready}))
	if a.view != viewHome {
		t.Errorf("view = %d, want home after logout", a.view)
	}
}

func TestAppNavigate(t *testing.T) {
	a, _ := newTestApp()
	a, _ = update(a, navigateMsg(ui.PageLogin))
	if a.view != viewLogin {
		t.Fatalf("view = %d, want login", a.view)
	}
	a, _ = update(a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.view != viewHome {
		t.Errorf("view = %d, want home after esc", a.view)
	}

	a, _ = update(a, navigateMsg("nowhere"))
	if a.view != viewHome {
		t.Errorf("view = %d after unknown page", a.view)
	}
}

func TestAppLoginViewCapturesKeys(t *testing.T) {
	a, _ := newTestApp()
	a, _ = update(a, navigateMsg(ui.PageLogin))
	a, cmd := update(a, keyRunes("q"))
	if cmd != nil {
		t.Error("q in the login form should not quit")
	}
	if a.login.identifier != "q" {
		t.Errorf("identifier = %q, want q", a.login.identifier)
	}
}

func TestAppLoginResultResyncsInbox(t *testing.T) {
	a, d := newTestApp()
	_, cmd := update(a, loginResultMsg{})
	runCmd(cmd)
	if d.inbox.inits != 1 {
		t.Errorf("inbox inits = %d, want 1 after login", d.inbox.inits)
	}
}

func TestAppLogoutKey(t *testing.T) {
	a, d := newTestApp()
	a.snap = loggedInSnapshot()
	_, cmd := update(a, keyRunes("l"))
	msgs := runCmd(cmd)
	if d.sess.logouts != 1 {
		t.Fatalf("logouts = %d, want 1", d.sess.logouts)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if _, ok := msgs[0].(logoutResultMsg); !ok {
		t.Errorf("msg = %#v, want logoutResultMsg", msgs[0])
	}
}

func TestAppLoginKeyWaitsForReady(t *testing.T) {
	a, _ := newTestApp()
	a.ready = false
	a, _ = update(a, keyRunes("l"))
	if a.view != viewHome {
		t.Errorf("view = %d, want home before services are ready", a.view)
	}
}

func TestAppConfirmDialog(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"y", true},
		{"n", false},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			a, _ := newTestApp()
			reply := make(chan bool, 1)
			a, _ = update(a, confirmMsg{text: "Log out of WAVE space?", reply: reply})
			if !strings.Contains(a.View(), "Log out of WAVE space?") {
				t.Errorf("view missing dialog:\n%s", a.View())
			}

			// A second question while one is open is declined.
			second := make(chan bool, 1)
			a, _ = update(a, confirmMsg{text: "again?", reply: second})
			if got := <-second; got {
				t.Error("second confirm answered yes")
			}

			a, _ = update(a, keyRunes(tc.key))
			if got := <-reply; got != tc.want {
				t.Errorf("answer = %v, want %v", got, tc.want)
			}
			if a.confirm != nil {
				t.Error("dialog still open")
			}
		})
	}
}

func TestAppToastsCapped(t *testing.T) {
	a, _ := newTestApp()
	for i := range 5 {
		a, _ = update(a, toastMsg{Kind: ui.ToastInfo, Message: string(rune('a' + i))})
	}
	if len(a.toasts) != maxToasts {
		t.Fatalf("toasts = %d, want %d", len(a.toasts), maxToasts)
	}
	if a.toasts[0].toast.Message != "c" {
		t.Errorf("oldest toast = %q, want c", a.toasts[0].toast.Message)
	}

	a, _ = update(a, toastExpiredMsg{id: a.toasts[0].id})
	if len(a.toasts) != maxToasts-1 {
		t.Errorf("toasts = %d after expiry, want %d", len(a.toasts), maxToasts-1)
	}
}

func TestAppAlertBecomesToast(t *testing.T) {
	a, _ := newTestApp()
	a, _ = update(a, alertMsg("Please log in first."))
	if len(a.toasts) != 1 || a.toasts[0].toast.Kind != ui.ToastWarning {
		t.Errorf("toasts = %+v, want one warning", a.toasts)
	}
}

func TestAppUnreadBadge(t *testing.T) {
	a, _ := newTestApp()
	a.snap = loggedInSnapshot()
	a, _ = update(a, unreadMsg(150))
	view := a.View()
	if !strings.Contains(view, "99+") {
		t.Errorf("view missing 99+ badge:\n%s", view)
	}

	a, _ = update(a, unreadMsg(0))
	if strings.Contains(a.View(), "99+") {
		t.Error("badge still shown at zero")
	}
}

func TestAppWindowTitleFollowsUnread(t *testing.T) {
	tests := []struct {
		unread int
		want   string
	}{
		{4, "(4) WAVE space"},
		{0, "WAVE space"},
	}
	a, _ := newTestApp()
	for _, tt := range tests {
		var cmd tea.Cmd
		a, cmd = update(a, unreadMsg(tt.unread))
		want := tea.SetWindowTitle(tt.want)()
		msgs := runCmd(cmd)
		if len(msgs) != 1 || msgs[0] != want {
			t.Errorf("unread=%d: msgs = %v, want title %q", tt.unread, msgs, tt.want)
		}
	}
}

func TestAppWindowTitleOnReady(t *testing.T) {
	a, d := newTestApp()
	d.inbox.unread = 2
	_, cmd := update(a, servicesReadyMsg{})
	want := tea.SetWindowTitle("(2) WAVE space")()
	found := false
	for _, m := range runCmd(cmd) {
		if m == want {
			found = true
		}
	}
	if !found {
		t.Error("ready did not set the window title")
	}
}

func TestAppBoardReloadsOnPostsChange(t *testing.T) {
	a, d := newTestApp()
	if _, cmd := update(a, tableChangedMsg(postsTable)); cmd != nil {
		t.Error("posts change reloaded the board while home was shown")
	}

	a.view = viewBoard
	_, cmd := update(a, tableChangedMsg("comments"))
	if cmd != nil {
		t.Error("unrelated table change reloaded the board")
	}
	_, cmd = update(a, tableChangedMsg(postsTable))
	runCmd(cmd)
	if len(d.data.queries) != 1 || d.data.queries[0].ForceRefresh {
		t.Errorf("board queries = %+v, want one cached-path reload", d.data.queries)
	}
}

func TestAppUnreadGrowthReloadsInbox(t *testing.T) {
	a, d := newTestApp()
	a.snap = loggedInSnapshot()
	a.view = viewInbox
	_, cmd := update(a, unreadMsg(1))
	runCmd(cmd)
	if len(d.inbox.queries) != 1 {
		t.Errorf("inbox queries = %d, want reload on new notification", len(d.inbox.queries))
	}
}

func TestAppPrefsLoaded(t *testing.T) {
	a, _ := newTestApp()
	prefs := localstate.Prefs{SidebarCollapsed: true, Category: "qna", LastView: ui.PageBoard, UnreadOnly: true}
	a, _ = update(a, prefsLoadedMsg{prefs: prefs})
	if !a.home.sidebarCollapsed || a.board.category != "qna" || !a.inbox.unreadOnly {
		t.Errorf("prefs not applied: sidebar=%v category=%q unreadOnly=%v",
			a.home.sidebarCollapsed, a.board.category, a.inbox.unreadOnly)
	}
	if a.view != viewBoard {
		t.Errorf("view = %d, want board restored", a.view)
	}
}

func TestAppSidebarToggleSaves(t *testing.T) {
	a, d := newTestApp()
	a, cmd := update(a, keyRunes("s"))
	runCmd(cmd)
	if !a.home.sidebarCollapsed {
		t.Error("sidebar not collapsed")
	}
	if len(d.prefs.saved) != 1 || !d.prefs.saved[0].SidebarCollapsed {
		t.Errorf("saved = %+v", d.prefs.saved)
	}
}

func TestAppCategoryChangeSaves(t *testing.T) {
	a, d := newTestApp()
	a.view = viewBoard
	_, cmd := update(a, keyRunes("c"))
	runCmd(cmd)
	if len(d.prefs.saved) != 1 || d.prefs.saved[0].Category != "free" {
		t.Errorf("saved = %+v, want category free", d.prefs.saved)
	}
	if q := d.data.queries; len(q) != 1 || q[0].Filter["category"] != "free" {
		t.Errorf("queries = %+v", q)
	}
}

func TestAppBoardResultRouted(t *testing.T) {
	a, d := newTestApp()
	d.data.rows = []backend.Row{postRow("p1", "free", "Routed post")}
	a.view = viewBoard
	msgs := runCmd(a.board.Init())
	a, _ = update(a, msgs[0])
	if !strings.Contains(a.View(), "Routed post") {
		t.Errorf("view missing post:\n%s", a.View())
	}
}

func TestAppHelpOverlay(t *testing.T) {
	a, _ := newTestApp()
	a, _ = update(a, keyRunes("?"))
	if !a.helpOpen {
		t.Fatal("help not open")
	}
	a, _ = update(a, keyRunes("j"))
	if a.helpCursor != 1 {
		t.Errorf("helpCursor = %d, want 1", a.helpCursor)
	}
	a, _ = update(a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.helpOpen {
		t.Error("help still open after esc")
	}
}

func TestAppQuit(t *testing.T) {
	a, _ := newTestApp()
	if _, cmd := update(a, keyRunes("q")); cmd == nil {
		t.Fatal("expected quit command on q")
	}
	if _, cmd := update(a, tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Fatal("expected quit command on ctrl+c")
	}
}

func TestAppNilServices(t *testing.T) {
	a := NewApp(Options{})
	a.width, a.height = 80, 24
	if cmd := a.initServices(); cmd != nil {
		t.Error("initServices without a session returned a command")
	}
	a, _ = update(a, servicesReadyMsg{})
	a, _ = update(a, keyRunes("3"))
	if a.view != viewHome {
		t.Errorf("view = %d, want home", a.view)
	}
	if view := a.View(); !strings.Contains(view, "Guest") {
		t.Errorf("view missing guest card:\n%s", view)
	}
}

func TestAppRefreshProfile(t *testing.T) {
	a, d := newTestApp()
	_, cmd := update(a, keyRunes("r"))
	if cmd != nil {
		t.Error("guests should not refresh a profile")
	}

	a.snap = loggedInSnapshot()
	_, cmd = update(a, keyRunes("r"))
	runCmd(cmd)
	if d.sess.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", d.sess.refreshes)
	}
}
