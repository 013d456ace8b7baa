package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/wavespace/wavespace/internal/ui"
	"github.com/wavespace/wavespace/pkg/domain"
)

func testNotifications() []domain.Notification {
	return []domain.Notification{
		{ID: "n1", Type: domain.NotifComment, Title: "New comment", Message: "Surfer commented on \"Tides\".", IsRead: false},
		{ID: "n2", Type: domain.NotifLike, Title: "New like", Message: "Someone liked your post.", IsRead: true},
	}
}

func newTestInbox(in *fakeInbox) inboxModel {
	m := newInboxModel(in, 2)
	m.width = 100
	m.height = 30
	msgs := runCmd(m.Init())
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func TestInboxLoadAndRender(t *testing.T) {
	in := &fakeInbox{items: testNotifications()}
	m := newTestInbox(in)

	if len(in.queries) != 1 || in.queries[0] != (inboxQuery{1, 2, false}) {
		t.Errorf("queries = %+v, want page 1 limit 2", in.queries)
	}
	view := m.View()
	for _, want := range []string{"New comment", "New like", "●", "✎", "♥"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestInboxMarkAsReadReloads(t *testing.T) {
	in := &fakeInbox{items: testNotifications()}
	m := newTestInbox(in)

	m, cmd := m.Update(enterKey())
	msgs := runCmd(cmd)
	if len(in.marked) != 1 || in.marked[0] != "n1" {
		t.Fatalf("marked = %v, want [n1]", in.marked)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	_, cmd = m.Update(msgs[0])
	runCmd(cmd)
	if len(in.queries) != 2 {
		t.Errorf("queries = %d, want reload after marking", len(in.queries))
	}
}

func TestInboxEnterOnReadItemIsNoop(t *testing.T) {
	in := &fakeInbox{items: testNotifications()}
	m := newTestInbox(in)
	m, _ = m.Update(keyRunes("j"))
	_, cmd := m.Update(enterKey())
	if cmd != nil {
		t.Error("enter on a read notification returned a command")
	}
}

func TestInboxMarkAll(t *testing.T) {
	in := &fakeInbox{items: testNotifications()}
	m := newTestInbox(in)
	_, cmd := m.Update(keyRunes("a"))
	runCmd(cmd)
	if in.markAll != 1 {
		t.Errorf("markAll = %d, want 1", in.markAll)
	}
}

func TestInboxActionErrorToasts(t *testing.T) {
	m := newTestInbox(&fakeInbox{})
	_, cmd := m.Update(inboxActionMsg{err: errors.New("denied")})
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	toast, ok := msgs[0].(toastMsg)
	if !ok || toast.Kind != ui.ToastError || toast.Message != "denied" {
		t.Errorf("msg = %#v, want error toast", msgs[0])
	}
}

func TestInboxUnreadOnlyToggle(t *testing.T) {
	in := &fakeInbox{items: testNotifications()}
	m := newTestInbox(in)

	m, cmd := m.Update(keyRunes("u"))
	runCmd(cmd)
	if !m.unreadOnly {
		t.Fatal("unreadOnly = false after u")
	}
	if got := in.queries[len(in.queries)-1]; !got.unreadOnly || got.page != 1 {
		t.Errorf("last query = %+v, want unread-only page 1", got)
	}
	if view := m.View(); !strings.Contains(view, "unread only") {
		t.Errorf("view missing filter label:\n%s", view)
	}
}

func TestInboxIgnoresStaleResults(t *testing.T) {
	m := newTestInbox(&fakeInbox{})
	m.unreadOnly = true
	m, _ = m.Update(inboxLoadedMsg{items: testNotifications(), page: 1, unreadOnly: false})
	if len(m.items) != 0 {
		t.Errorf("items = %v, want stale result dropped", m.items)
	}
}

func TestInboxEmpty(t *testing.T) {
	m := newTestInbox(&fakeInbox{})
	if view := m.View(); !strings.Contains(view, "no notifications") {
		t.Errorf("view = %q, want empty notice", view)
	}
}

func TestInboxLoadError(t *testing.T) {
	m := newTestInbox(&fakeInbox{err: errors.New("not logged in")})
	if view := m.View(); !strings.Contains(view, "not logged in") {
		t.Errorf("view missing error:\n%s", view)
	}
}

func TestInboxCopyMessage(t *testing.T) {
	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { copyToClipboard = orig })

	m := newTestInbox(&fakeInbox{items: testNotifications()})
	_, cmd := m.Update(keyRunes("y"))
	runCmd(cmd)
	if copied != "Surfer commented on \"Tides\"." {
		t.Errorf("copied = %q", copied)
	}
}
