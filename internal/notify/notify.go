// Package notify keeps the signed-in user's notification inbox in sync:
// the unread counter, the live feed of new notifications, read state and
// the helpers other features use to notify a member.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wavespace/wavespace/internal/metrics"
	"github.com/wavespace/wavespace/internal/ui"
	"github.com/wavespace/wavespace/pkg/backend"
	"github.com/wavespace/wavespace/pkg/domain"
)

// Table is where notifications are stored.
const Table = "notifications"

// DefaultPageSize is used when GetNotifications gets a non-positive limit.
const DefaultPageSize = 20

// ErrNotLoggedIn is returned by inbox operations for guests.
var ErrNotLoggedIn = errors.New("not logged in")

// UserSource yields the signed-in user, or nil.
type UserSource interface {
	CurrentUser() *domain.User
}

// View shows notification state.
type View interface {
	Toast(t ui.Toast)
	Unread(count int)
}

// Pusher delivers a desktop notification.
type Pusher interface {
	Push(title, body string) error
}

// Service is the notification service. It is safe for concurrent use.
type Service struct {
	backend  backend.Backend
	realtime backend.Realtime
	users    UserSource
	view     View
	pusher   Pusher
	log      *zap.Logger

	mu      sync.Mutex
	unread  int
	channel backend.Channel
}

// Option configures a Service.
type Option func(*Service)

// WithRealtime enables the live feed.
func WithRealtime(r backend.Realtime) Option {
	return func(s *Service) { s.realtime = r }
}

// WithPusher enables desktop notifications.
func WithPusher(p Pusher) Option {
	return func(s *Service) { s.pusher = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a Service.
func New(b backend.Backend, users UserSource, view View, opts ...Option) *Service {
	s := &Service{
		backend: b,
		users:   users,
		view:    view,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("notify")
	return s
}

// Init loads the unread count and opens the live feed for the signed-in
// user. Guests get a zero counter and no feed. Calling it again after a
// login or logout resynchronizes.
func (s *Service) Init(ctx context.Context) error {
	if s.users.CurrentUser() == nil {
		s.teardown()
		s.setUnread(0)
		return nil
	}
	if _, err := s.LoadUnreadCount(ctx); err != nil {
		return err
	}
	if err := s.SetupRealtimeSubscription(ctx); err != nil {
		s.log.Warn("live notifications unavailable", zap.Error(err))
	}
	return nil
}

// UnreadCount is the current counter.
func (s *Service) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *Service) setUnread(n int) {
	s.mu.Lock()
	s.unread = max(0, n)
	n = s.unread
	s.mu.Unlock()
	metrics.UnreadNotifications.Set(float64(n))
	s.view.Unread(n)
}

func (s *Service) addUnread(delta int) {
	s.mu.Lock()
	s.unread = max(0, s.unread+delta)
	n := s.unread
	s.mu.Unlock()
	metrics.UnreadNotifications.Set(float64(n))
	s.view.Unread(n)
}

func (s *Service) userID() (string, error) {
	u := s.users.CurrentUser()
	if u == nil {
		return "", ErrNotLoggedIn
	}
	return u.ID, nil
}

// LoadUnreadCount replaces the counter with the server's exact count.
func (s *Service) LoadUnreadCount(ctx context.Context) (int, error) {
	uid, err := s.userID()
	if err != nil {
		return 0, fmt.Errorf("notify.LoadUnreadCount: %w", err)
	}
	n, err := s.backend.Count(ctx, Table, map[string]any{"user_id": uid, "is_read": false})
	if err != nil {
		s.log.Warn("loading unread count failed", zap.Error(err))
		return 0, fmt.Errorf("notify.LoadUnreadCount: %w", err)
	}
	s.setUnread(n)
	return n, nil
}

// SetupRealtimeSubscription (re)opens the live feed of new notifications.
// Any previous channel is closed first.
func (s *Service) SetupRealtimeSubscription(ctx context.Context) error {
	s.teardown()
	uid, err := s.userID()
	if err != nil {
		return fmt.Errorf("notify.SetupRealtimeSubscription: %w", err)
	}
	if s.realtime == nil {
		return fmt.Errorf("notify.SetupRealtimeSubscription: %w", backend.ErrRealtimeUnavailable)
	}

	ch, err := s.realtime.Subscribe(ctx, backend.ChangeSpec{
		Name:   "notifications:" + uid,
		Event:  backend.EventInsert,
		Table:  Table,
		Filter: backend.EqFilter("user_id", uid),
	}, func(c backend.Change) {
		s.HandleNewNotification(domain.NotificationFromRow(c.New))
	})
	if err != nil {
		return fmt.Errorf("notify.SetupRealtimeSubscription: %w", err)
	}

	s.mu.Lock()
	s.channel = ch
	s.mu.Unlock()
	return nil
}

func (s *Service) teardown() {
	s.mu.Lock()
	ch := s.channel
	s.channel = nil
	s.mu.Unlock()
	if ch == nil {
		return
	}
	if err := ch.Unsubscribe(); err != nil {
		s.log.Warn("unsubscribe failed", zap.Error(err))
	}
}

// Subscribed reports whether the live feed is open.
func (s *Service) Subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel != nil
}

// HandleNewNotification counts, announces and optionally pushes n.
func (s *Service) HandleNewNotification(n domain.Notification) {
	s.addUnread(1)
	s.view.Toast(ui.Toast{Kind: ToastKind(n.Type), Title: n.Title, Message: n.Message})
	if s.pusher != nil {
		if err := s.pusher.Push(n.Title, n.Message); err != nil {
			s.log.Debug("desktop push failed", zap.Error(err))
		}
	}
}

// MarkAsRead flags one notification as read. The counter only drops when
// the row was actually unread, so repeated calls are harmless.
func (s *Service) MarkAsRead(ctx context.Context, id string) error {
	uid, err := s.userID()
	if err != nil {
		return fmt.Errorf("notify.MarkAsRead: %w", err)
	}
	rows, err := s.backend.Update(ctx, Table,
		backend.Row{"is_read": true},
		map[string]any{"id": id, "user_id": uid, "is_read": false})
	if err != nil {
		s.log.Warn("mark as read failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("notify.MarkAsRead: %w", err)
	}
	if len(rows) > 0 {
		s.addUnread(-len(rows))
	}
	return nil
}

// MarkAllAsRead flags every unread notification of the user as read.
func (s *Service) MarkAllAsRead(ctx context.Context) error {
	uid, err := s.userID()
	if err != nil {
		return fmt.Errorf("notify.MarkAllAsRead: %w", err)
	}
	if _, err := s.backend.Update(ctx, Table,
		backend.Row{"is_read": true},
		map[string]any{"user_id": uid, "is_read": false}); err != nil {
		s.log.Warn("mark all as read failed", zap.Error(err))
		return fmt.Errorf("notify.MarkAllAsRead: %w", err)
	}
	s.setUnread(0)
	return nil
}

// GetNotifications returns one page of the user's notifications, newest first.
// Pages start at 1.
func (s *Service) GetNotifications(ctx context.Context, page, limit int, unreadOnly bool) ([]domain.Notification, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, fmt.Errorf("notify.GetNotifications: %w", err)
	}
	page = max(page, 1)
	if limit <= 0 {
		limit = DefaultPageSize
	}
	filter := map[string]any{"user_id": uid}
	if unreadOnly {
		filter["is_read"] = false
	}
	rows, err := s.backend.Select(ctx, Table, backend.Query{
		Limit:  limit,
		Offset: (page - 1) * limit,
		Order:  &backend.Order{Column: "created_at", Ascending: false},
		Filter: filter,
	})
	if err != nil {
		s.log.Warn("loading notifications failed", zap.Error(err))
		return nil, fmt.Errorf("notify.GetNotifications: %w", err)
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.NotificationFromRow(r))
	}
	return out, nil
}

// Destroy closes the live feed.
func (s *Service) Destroy() {
	s.teardown()
}

// BadgeText is what the unread badge shows; visible is false at zero.
func BadgeText(n int) (text string, visible bool) {
	switch {
	case n <= 0:
		return "", false
	case n > 99:
		return "99+", true
	}
	return strconv.Itoa(n), true
}

// DocumentTitle prefixes base with the unread count when there is one.
func DocumentTitle(base string, n int) string {
	if n <= 0 {
		return base
	}
	return fmt.Sprintf("(%d) %s", n, base)
}

// ToastKind maps a notification type to a toast kind.
func ToastKind(notificationType string) ui.ToastKind {
	switch notificationType {
	case "success":
		return ui.ToastSuccess
	case "error", "failed":
		return ui.ToastError
	case "warning":
		return ui.ToastWarning
	}
	return ui.ToastInfo
}

// Icon is the glyph shown next to a notification of the given type.
func Icon(notificationType string) string {
	switch notificationType {
	case domain.NotifComment:
		return "✎"
	case domain.NotifLike:
		return "♥"
	case domain.NotifPoint:
		return "★"
	case domain.NotifBadge:
		return "◆"
	case domain.NotifMention:
		return "@"
	case domain.NotifFollow:
		return "+"
	case domain.NotifAdmin, domain.NotifSystem:
		return "!"
	}
	return "•"
}
