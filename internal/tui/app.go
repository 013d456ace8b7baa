package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wavespace/wavespace/internal/browser"
	"github.com/wavespace/wavespace/internal/localstate"
	"github.com/wavespace/wavespace/internal/notify"
	"github.com/wavespace/wavespace/internal/session"
	"github.com/wavespace/wavespace/internal/ui"
)

type view int

const (
	viewHome view = iota
	viewBoard
	viewInbox
	viewLogin
)

var viewPages = map[view]string{
	viewHome:  ui.PageHome,
	viewBoard: ui.PageBoard,
	viewInbox: ui.PageNotifications,
	viewLogin: ui.PageLogin,
}

func viewForPage(page string) (view, bool) {
	for v, p := range viewPages {
		if p == page {
			return v, true
		}
	}
	return viewHome, false
}

const (
	toastTTL       = 4 * time.Second
	maxToasts      = 3
	defaultPage    = 20
	serviceTimeout = 15 * time.Second
	// logout waits on the confirm dialog, so it gets longer.
	logoutTimeout = 2 * time.Minute
	windowTitle   = "WAVE space"
)

type servicesReadyMsg struct{ err error }

type prefsLoadedMsg struct {
	prefs localstate.Prefs
	err   error
}

type toastExpiredMsg struct{ id int }

type loginResultMsg struct{ err error }

type logoutResultMsg struct{ err error }

type toastEntry struct {
	id    int
	toast ui.Toast
}

// App is the root Bubbletea model.
type App struct {
	opts Options

	view  view
	home  homeModel
	board boardModel
	inbox inboxModel
	login loginModel

	snap   session.Snapshot
	unread int
	ready  bool
	prefs  localstate.Prefs

	toasts    []toastEntry
	nextToast int
	confirm   *confirmMsg

	helpOpen   bool
	helpCursor int
	width      int
	height     int
	frame      int
}

// NewApp creates the TUI application.
func NewApp(opts Options) App {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPage
	}
	prefs := localstate.DefaultPrefs()
	return App{
		opts:  opts,
		prefs: prefs,
		home:  newHomeModel(),
		board: newBoardModel(opts.Data, opts.PageSize, opts.WebURL),
		inbox: newInboxModel(opts.Inbox, opts.PageSize),
		login: newLoginModel(opts.Session),
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(shimmerTickCmd(), a.initServices(), a.loadPrefs())
}

func (a App) initServices() tea.Cmd {
	sess, inbox := a.opts.Session, a.opts.Inbox
	if sess == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		err := sess.Init(ctx)
		if inbox != nil {
			err = errors.Join(err, inbox.Init(ctx))
		}
		return servicesReadyMsg{err: err}
	}
}

// resyncInbox reloads the unread counter and feed after the user changes.
func (a App) resyncInbox() tea.Cmd {
	inbox := a.opts.Inbox
	if inbox == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		if err := inbox.Init(ctx); err != nil {
			return toastMsg{Kind: ui.ToastWarning, Title: "Notifications", Message: err.Error()}
		}
		return nil
	}
}

func (a App) loadPrefs() tea.Cmd {
	p := a.opts.Prefs
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		prefs, err := p.LoadPrefs(context.Background())
		return prefsLoadedMsg{prefs: prefs, err: err}
	}
}

func (a App) savePrefs() tea.Cmd {
	p := a.opts.Prefs
	if p == nil {
		return nil
	}
	prefs := a.prefs
	return func() tea.Msg {
		if err := p.SavePrefs(context.Background(), prefs); err != nil {
			return toastMsg{Kind: ui.ToastWarning, Message: "Could not save preferences: " + err.Error()}
		}
		return nil
	}
}

func (a App) logout() tea.Cmd {
	sess := a.opts.Session
	if sess == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer cancel()
		return logoutResultMsg{err: sess.Logout(ctx)}
	}
}

func (a App) refreshUser() tea.Cmd {
	sess := a.opts.Session
	if sess == nil || !a.snap.LoggedIn() {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		if err := sess.RefreshUserInfo(ctx); err != nil {
			return toastMsg{Kind: ui.ToastWarning, Message: "Could not refresh your profile: " + err.Error()}
		}
		return nil
	}
}

func (a App) requireAuth(action string) tea.Cmd {
	sess := a.opts.Session
	if sess == nil {
		return nil
	}
	return func() tea.Msg {
		sess.RequireAuth(action)
		return nil
	}
}

func (a *App) addToast(t ui.Toast) tea.Cmd {
	a.nextToast++
	id := a.nextToast
	a.toasts = append(a.toasts, toastEntry{id: id, toast: t})
	if len(a.toasts) > maxToasts {
		a.toasts = a.toasts[len(a.toasts)-maxToasts:]
	}
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

// switchTo changes the active view and returns its load command. The
// notifications view needs a signed-in user.
func (a *App) switchTo(v view) tea.Cmd {
	if v == viewInbox && !a.snap.LoggedIn() {
		return a.requireAuth("see your notifications")
	}
	if v == a.view {
		return nil
	}
	a.view = v
	var cmds []tea.Cmd
	switch v {
	case viewBoard:
		cmds = append(cmds, a.board.Init())
	case viewInbox:
		cmds = append(cmds, a.inbox.Init())
	case viewLogin:
		a.login = a.login.reset()
	}
	if v != viewLogin && a.prefs.LastView != viewPages[v] {
		a.prefs.LastView = viewPages[v]
		cmds = append(cmds, a.savePrefs())
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + tabs(1) + toasts(maxToasts) + help(1)
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 4 - maxToasts}
		a.home, _ = a.home.Update(bodyMsg)
		a.board, _ = a.board.Update(bodyMsg)
		a.inbox, _ = a.inbox.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		a.login.frame = a.frame
		return a, shimmerTickCmd()

	case servicesReadyMsg:
		a.ready = true
		if a.opts.Session != nil {
			a.snap = a.opts.Session.Snapshot()
		}
		if a.opts.Inbox != nil {
			a.unread = a.opts.Inbox.UnreadCount()
		}
		cmds := []tea.Cmd{a.titleCmd()}
		if msg.err != nil {
			cmds = append(cmds, a.addToast(ui.Toast{Kind: ui.ToastWarning, Title: "Offline", Message: "Some features are unavailable."}))
		}
		if a.view == viewBoard {
			cmds = append(cmds, a.board.Init())
		}
		return a, tea.Batch(cmds...)

	case prefsLoadedMsg:
		if msg.err != nil {
			return a, nil
		}
		a.prefs = msg.prefs
		a.home.sidebarCollapsed = msg.prefs.SidebarCollapsed
		a.board = a.board.withCategory(msg.prefs.Category)
		a.inbox.unreadOnly = msg.prefs.UnreadOnly
		if v, ok := viewForPage(msg.prefs.LastView); ok && v == viewBoard {
			return a, a.switchTo(v)
		}
		return a, nil

	case snapshotMsg:
		wasLoggedIn := a.snap.LoggedIn()
		a.snap = session.Snapshot(msg)
		if wasLoggedIn && !a.snap.LoggedIn() && a.view == viewInbox {
			a.view = viewHome
		}
		return a, nil

	case unreadMsg:
		grew := int(msg) > a.unread
		a.unread = int(msg)
		if grew && a.view == viewInbox {
			return a, tea.Batch(a.titleCmd(), a.inbox.Init())
		}
		return a, a.titleCmd()

	case toastMsg:
		return a, a.addToast(ui.Toast(msg))

	case alertMsg:
		return a, a.addToast(ui.Toast{Kind: ui.ToastWarning, Message: string(msg)})

	case toastExpiredMsg:
		for i, t := range a.toasts {
			if t.id == msg.id {
				a.toasts = append(a.toasts[:i], a.toasts[i+1:]...)
				break
			}
		}
		return a, nil

	case tableChangedMsg:
		// Cached pages of the table are already gone, so a plain load is live.
		if string(msg) == postsTable && a.view == viewBoard {
			return a, a.board.load(false)
		}
		return a, nil

	case navigateMsg:
		if v, ok := viewForPage(string(msg)); ok {
			return a, a.switchTo(v)
		}
		return a, nil

	case confirmMsg:
		if a.confirm != nil {
			// One question at a time; a second one is declined.
			msg.reply <- false
			return a, nil
		}
		a.confirm = &msg
		return a, nil

	case loginResultMsg:
		a.login, _ = a.login.Update(msg)
		if msg.err == nil {
			return a, a.resyncInbox()
		}
		return a, nil

	case logoutResultMsg:
		return a, a.resyncInbox()

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	var cmd tea.Cmd
	switch msg.(type) {
	case boardLoadedMsg:
		a.board, cmd = a.board.Update(msg)
	case inboxLoadedMsg, inboxActionMsg:
		a.inbox, cmd = a.inbox.Update(msg)
	case resetResultMsg:
		a.login, cmd = a.login.Update(msg)
	}
	return a, cmd
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	// The confirm dialog captures all keys while open.
	if a.confirm != nil {
		switch key {
		case "y", "Y", "enter":
			a.confirm.reply <- true
			a.confirm = nil
		case "n", "N", "esc":
			a.confirm.reply <- false
			a.confirm = nil
		}
		return a, nil
	}

	if a.helpOpen {
		switch key {
		case "h", "esc", "?":
			a.helpOpen = false
		case "q":
			return a, tea.Quit
		case "j", "down":
			if a.helpCursor < len(helpItems)-1 {
				a.helpCursor++
			}
		case "k", "up":
			if a.helpCursor > 0 {
				a.helpCursor--
			}
		case "enter":
			if a.opts.WebURL != "" {
				browser.Open(strings.TrimRight(a.opts.WebURL, "/") + helpItems[a.helpCursor].path) //nolint:errcheck // best-effort browser open
			}
		}
		return a, nil
	}

	if a.view == viewLogin {
		if key == "esc" {
			return a, a.switchTo(viewHome)
		}
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "h", "?":
		a.helpOpen = true
		a.helpCursor = 0
		return a, nil
	case "1":
		return a, a.switchTo(viewHome)
	case "2":
		return a, a.switchTo(viewBoard)
	case "3":
		return a, a.switchTo(viewInbox)
	case "l":
		if !a.ready {
			return a, nil
		}
		if a.snap.LoggedIn() {
			return a, a.logout()
		}
		return a, a.switchTo(viewLogin)
	case "s":
		a.home.sidebarCollapsed = !a.home.sidebarCollapsed
		a.prefs.SidebarCollapsed = a.home.sidebarCollapsed
		return a, a.savePrefs()
	}

	var cmd tea.Cmd
	switch a.view {
	case viewHome:
		if key == "r" {
			cmd = a.refreshUser()
		}
	case viewBoard:
		a.board, cmd = a.board.Update(msg)
		if a.board.category != a.prefs.Category {
			a.prefs.Category = a.board.category
			cmd = tea.Batch(cmd, a.savePrefs())
		}
	case viewInbox:
		a.inbox, cmd = a.inbox.Update(msg)
		if a.inbox.unreadOnly != a.prefs.UnreadOnly {
			a.prefs.UnreadOnly = a.inbox.unreadOnly
			cmd = tea.Batch(cmd, a.savePrefs())
		}
	}
	return a, cmd
}

func centerLine(s string, width int) string {
	pad := max((width-lipgloss.Width(s))/2, 0)
	return strings.Repeat(" ", pad) + s
}

func (a App) statusLine() string {
	if !a.ready {
		return metaStyle.Render("connecting...")
	}
	if !a.snap.LoggedIn() {
		return metaStyle.Render("guest") + dimStyle.Render(" · l to log in")
	}
	points := pointsStyle.Render(a.snap.PointsText)
	if a.snap.PointsFlash {
		points = pointsFlashStyle.Render(a.snap.PointsText)
	}
	parts := []string{
		selectedStyle.Render(a.snap.User.DisplayName()),
		levelStyle.Render(fmt.Sprintf("Lv.%d", a.snap.Level)),
		points,
	}
	if text, ok := notify.BadgeText(a.unread); ok {
		parts = append(parts, badgeStyle.Render(text))
	}
	return strings.Join(parts, metaStyle.Render(" · "))
}

func (a App) tabBar() string {
	tabs := []struct {
		key  string
		name string
		v    view
	}{
		{"1", "Home", viewHome},
		{"2", "Board", viewBoard},
		{"3", "Notifications", viewInbox},
	}
	colWidth := max(a.width/len(tabs), 1)
	var bar strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		if t.v == viewInbox {
			if text, ok := notify.BadgeText(a.unread); ok {
				label += " " + badgeStyle.Render(text)
			}
		}
		w := lipgloss.Width(label)
		left := max((colWidth-w)/2, 0)
		right := max(colWidth-w-left, 0)
		bar.WriteString(strings.Repeat(" ", left) + label + strings.Repeat(" ", right))
	}
	return bar.String()
}

func (a App) toastLines() []string {
	lines := make([]string, 0, len(a.toasts))
	for _, t := range a.toasts {
		lines = append(lines, " "+ToastStyle(t.toast.Kind).Render(toastIcon(t.toast.Kind)+" "+t.toast.Text()))
	}
	return lines
}

func (a App) helpBar() string {
	switch {
	case a.confirm != nil:
		return " " + helpEntry("y", "yes") + "  " + helpEntry("n", "no")
	case a.helpOpen:
		return " " + helpEntry("j/k", "nav") + "  " + helpEntry("enter", "open") + "  " + helpEntry("esc", "close")
	case a.view == viewLogin:
		return " " + a.login.helpKeys() + "  " + helpEntry("esc", "back")
	}
	account := helpEntry("l", "login")
	if a.snap.LoggedIn() {
		account = helpEntry("l", "logout")
	}
	var keys string
	switch a.view {
	case viewBoard:
		keys = a.board.helpKeys()
	case viewInbox:
		keys = a.inbox.helpKeys()
	default:
		keys = helpEntry("s", "sidebar")
		if a.snap.LoggedIn() {
			keys += "  " + helpEntry("r", "refresh")
		}
	}
	return " " + helpEntry("1-3", "tabs") + "  " + keys + "  " + account + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
}

func (a App) View() string {
	header := centerLine(renderShimmerLogo(a.frame), a.width) + "\n" + centerLine(a.statusLine(), a.width)

	var body string
	switch {
	case a.confirm != nil:
		body = "\n" + centerLine(dialogStyle.Render(selectedStyle.Render(a.confirm.text)+"\n\n"+
			helpEntry("y", "yes")+"   "+helpEntry("n", "no")), a.width)
	case a.helpOpen:
		body = helpView(a.helpCursor, a.opts.WebURL, a.opts.Version)
	default:
		switch a.view {
		case viewHome:
			body = a.home.View(a.snap, a.unread, a.ready)
		case viewBoard:
			body = a.board.View()
		case viewInbox:
			body = a.inbox.View()
		case viewLogin:
			body = a.login.View()
		}
	}

	toasts := a.toastLines()
	chrome := 4 + len(toasts)
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")

	out := header + "\n" + a.tabBar() + "\n" + body + "\n"
	if len(toasts) > 0 {
		out += strings.Join(toasts, "\n") + "\n"
	}
	return out + a.helpBar()
}

// titleCmd sets the terminal title, prefixed with the unread count.
func (a App) titleCmd() tea.Cmd {
	return tea.SetWindowTitle(notify.DocumentTitle(windowTitle, a.unread))
}
