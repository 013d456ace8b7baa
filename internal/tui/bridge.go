package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wavespace/wavespace/internal/notify"
	"github.com/wavespace/wavespace/internal/session"
	"github.com/wavespace/wavespace/internal/ui"
	"github.com/wavespace/wavespace/pkg/backend"
)

// Messages the bridge posts into the program.
type (
	snapshotMsg session.Snapshot
	toastMsg    ui.Toast
	navigateMsg string
	unreadMsg   int
	alertMsg    string

	// tableChangedMsg names a table whose rows changed on the backend.
	tableChangedMsg string

	// confirmMsg asks the user a yes/no question; the answer goes to reply.
	confirmMsg struct {
		text  string
		reply chan bool
	}
)

// Bridge turns service view calls into program messages, so services never
// touch the terminal. It is safe for concurrent use.
type Bridge struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

var (
	_ session.View = (*Bridge)(nil)
	_ notify.View  = (*Bridge)(nil)
)

// NewBridge returns a bridge that drops messages until Attach.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach starts delivering to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.attach(p.Send)
}

func (b *Bridge) attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *Bridge) post(msg tea.Msg) bool {
	b.mu.RLock()
	send := b.send
	b.mu.RUnlock()
	if send == nil {
		return false
	}
	send(msg)
	return true
}

// Confirm blocks until the user answers or ctx ends. Without a program it
// answers no.
func (b *Bridge) Confirm(ctx context.Context, text string) bool {
	reply := make(chan bool, 1)
	if !b.post(confirmMsg{text: text, reply: reply}) {
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}

// Alert shows a warning toast.
func (b *Bridge) Alert(text string) { b.post(alertMsg(text)) }

// Toast shows t.
func (b *Bridge) Toast(t ui.Toast) { b.post(toastMsg(t)) }

// Navigate switches to page.
func (b *Bridge) Navigate(page string) { b.post(navigateMsg(page)) }

// Render replaces the session snapshot.
func (b *Bridge) Render(s session.Snapshot) { b.post(snapshotMsg(s)) }

// Unread updates the notification badge.
func (b *Bridge) Unread(n int) { b.post(unreadMsg(n)) }

// Changes is a table change feed such as *data.Manager.
type Changes interface {
	Subscribe(ctx context.Context, table string, cb backend.ChangeHandler, filter string) string
	Unsubscribe(id string)
}

// Watch forwards changes on table to the program until stop is called. ok is
// false when the feed refused the subscription; stop is then a no-op.
func (b *Bridge) Watch(ctx context.Context, feed Changes, table string) (stop func(), ok bool) {
	id := feed.Subscribe(ctx, table, func(c backend.Change) {
		b.post(tableChangedMsg(c.Table))
	}, "")
	if id == "" {
		return func() {}, false
	}
	return func() { feed.Unsubscribe(id) }, true
}

// TerminalPusher raises desktop notifications with the OSC 9 escape, which
// most terminal emulators forward to the OS.
type TerminalPusher struct {
	W io.Writer
}

var _ notify.Pusher = TerminalPusher{}

// Push implements notify.Pusher.
func (p TerminalPusher) Push(title, body string) error {
	text := title
	if body != "" {
		text += ": " + body
	}
	// BEL and ESC would end the sequence early.
	text = strings.NewReplacer("\a", " ", "\x1b", " ").Replace(text)
	_, err := fmt.Fprintf(p.W, "\x1b]9;%s\a", text)
	return err
}
