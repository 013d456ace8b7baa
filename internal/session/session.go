// Package session tracks the signed-in user for the whole application:
// readiness, login and logout, permission gates, the level model and the
// realtime feed of the user's own row.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wavespace/wavespace/internal/ready"
	"github.com/wavespace/wavespace/internal/ui"
	"github.com/wavespace/wavespace/pkg/backend"
	"github.com/wavespace/wavespace/pkg/client"
	"github.com/wavespace/wavespace/pkg/domain"
)

var (
	// ErrDependencyTimeout means the auth client never became ready.
	ErrDependencyTimeout = errors.New("auth dependencies not ready")
	// ErrNotReady is returned by operations that need a finished Init.
	ErrNotReady = errors.New("session not initialized")
)

// State is the service lifecycle.
type State int

// Lifecycle states.
const (
	Uninitialized State = iota
	Initializing
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// AuthClient is the auth API the service drives.
type AuthClient interface {
	SignIn(ctx context.Context, identifier, password string) (*client.Session, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*domain.User, error)
	ResetPassword(ctx context.Context, email string) error
}

// Deps become available asynchronously and are awaited by Init.
type Deps struct {
	Auth     AuthClient
	Realtime backend.Realtime
}

// View is the rendering surface. Implementations must not block except in
// Confirm, which waits for the user's answer.
type View interface {
	Confirm(ctx context.Context, message string) bool
	Alert(message string)
	Toast(t ui.Toast)
	Navigate(page string)
	Render(s Snapshot)
}

// Snapshot is everything the front-end shows about the session.
type Snapshot struct {
	State       State
	User        *domain.User
	Level       int
	Progress    int
	ToNext      int
	PointsText  string
	PointsFlash bool
}

// LoggedIn reports whether the snapshot has a user.
func (s Snapshot) LoggedIn() bool { return s.User != nil }

const (
	defaultWaitTimeout = 5 * time.Second
	defaultFlash       = time.Second
	usersTable         = "users"
	inboxTable         = "user_notifications"
)

// Service is the auth/session service.
type Service struct {
	deps        *ready.Value[Deps]
	view        View
	log         *zap.Logger
	waitTimeout time.Duration
	flashFor    time.Duration

	mu       sync.Mutex
	state    State
	auth     AuthClient
	rt       backend.Realtime
	user     *domain.User
	channels []backend.Channel
	pending  []func(*domain.User)
	flash    bool
	flashT   *time.Timer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithWaitTimeout bounds how long Init waits for Deps.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *Service) { s.waitTimeout = d }
}

// WithFlashDuration sets how long the points display stays highlighted.
func WithFlashDuration(d time.Duration) Option {
	return func(s *Service) { s.flashFor = d }
}

// New creates a Service. deps is resolved by the composition root once the
// backend handles exist.
func New(deps *ready.Value[Deps], view View, opts ...Option) *Service {
	s := &Service{
		deps:        deps,
		view:        view,
		log:         zap.NewNop(),
		waitTimeout: defaultWaitTimeout,
		flashFor:    defaultFlash,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("session")
	return s
}

// Init waits for the auth client, loads the current user, renders and opens
// the user's realtime channels, then runs every queued OnAuthChange callback.
// Calling it again is a no-op.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Uninitialized {
		s.mu.Unlock()
		return nil
	}
	s.state = Initializing
	s.mu.Unlock()

	wctx, cancel := context.WithTimeout(ctx, s.waitTimeout)
	deps, err := s.deps.Wait(wctx)
	cancel()
	if err != nil || deps.Auth == nil {
		s.log.Warn("auth dependencies unavailable, continuing as guest", zap.Error(err))
		s.finishInit(nil, Deps{})
		if err == nil {
			err = errors.New("no auth client")
		}
		return fmt.Errorf("%w: %w", ErrDependencyTimeout, err)
	}

	user, err := deps.Auth.CurrentUser(ctx)
	if err != nil {
		s.log.Warn("loading current user failed, continuing as guest", zap.Error(err))
		user = nil
	}
	s.finishInit(user, deps)
	return nil
}

func (s *Service) finishInit(user *domain.User, deps Deps) {
	s.mu.Lock()
	s.auth = deps.Auth
	s.rt = deps.Realtime
	s.user = user
	s.state = Ready
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	s.render()
	if user != nil {
		s.openChannels(context.Background(), user.ID)
	}
	for _, cb := range queued {
		cb(s.CurrentUser())
	}
}

// OnAuthChange runs cb with the current user (nil for guests): immediately
// when Init has finished, otherwise once it does. Each cb runs exactly once.
func (s *Service) OnAuthChange(cb func(*domain.User)) {
	s.mu.Lock()
	if s.state != Ready {
		s.pending = append(s.pending, cb)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	cb(s.CurrentUser())
}

// State reports the lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Service) CurrentUser() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsLoggedIn reports whether a user is signed in.
func (s *Service) IsLoggedIn() bool {
	return s.CurrentUser() != nil
}

// IsAdmin reports whether the signed-in user has the admin role.
func (s *Service) IsAdmin() bool {
	u := s.CurrentUser()
	return u != nil && u.IsAdmin()
}

// UserPoints is the signed-in user's balance, 0 for guests.
func (s *Service) UserPoints() int {
	if u := s.CurrentUser(); u != nil {
		return u.Points
	}
	return 0
}

// UserLevel is the signed-in user's level, 1 for guests.
func (s *Service) UserLevel() int {
	return domain.CalculateLevel(s.UserPoints())
}

// HasPermission reports whether the signed-in user has reached level.
func (s *Service) HasPermission(level int) bool {
	u := s.CurrentUser()
	return u != nil && u.Level() >= level
}

// Snapshot captures the state for rendering.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{State: s.state, PointsFlash: s.flash, Level: 1}
	if s.user != nil {
		u := *s.user
		snap.User = &u
		snap.Level = u.Level()
		snap.Progress = domain.LevelProgress(u.Points)
		snap.ToNext = domain.PointsToNextLevel(u.Points)
		snap.PointsText = domain.FormatPoints(u.Points)
	}
	return snap
}

func (s *Service) render() {
	s.view.Render(s.Snapshot())
}

func (s *Service) authClient() (AuthClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auth == nil {
		return nil, ErrNotReady
	}
	return s.auth, nil
}
