package tui

import (
	"context"

	"github.com/wavespace/wavespace/internal/localstate"
	"github.com/wavespace/wavespace/internal/session"
	"github.com/wavespace/wavespace/pkg/backend"
	"github.com/wavespace/wavespace/pkg/domain"
)

// Session is the slice of the auth service the front-end drives.
type Session interface {
	Init(ctx context.Context) error
	Snapshot() session.Snapshot
	Login(ctx context.Context, identifier, password string) error
	Logout(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
	RefreshUserInfo(ctx context.Context) error
	RequireAuth(action string) bool
}

// Inbox is the slice of the notification service the front-end drives.
type Inbox interface {
	Init(ctx context.Context) error
	UnreadCount() int
	GetNotifications(ctx context.Context, page, limit int, unreadOnly bool) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, id string) error
	MarkAllAsRead(ctx context.Context) error
}

// Data reads board content.
type Data interface {
	GetData(ctx context.Context, table string, q backend.Query) ([]backend.Row, error)
}

// Prefs persists UI preferences.
type Prefs interface {
	LoadPrefs(ctx context.Context) (localstate.Prefs, error)
	SavePrefs(ctx context.Context, p localstate.Prefs) error
}

// Options wires the application. Prefs may be nil.
type Options struct {
	Session  Session
	Inbox    Inbox
	Data     Data
	Prefs    Prefs
	WebURL   string
	Version  string
	PageSize int
}
