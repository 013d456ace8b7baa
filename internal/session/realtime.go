package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wavespace/wavespace/internal/ui"
	"github.com/wavespace/wavespace/pkg/backend"
	"github.com/wavespace/wavespace/pkg/domain"
)

// openChannels subscribes to the user's own row and personal inbox.
// Failures are logged and leave the session working without live updates.
func (s *Service) openChannels(ctx context.Context, userID string) {
	s.mu.Lock()
	rt := s.rt
	s.mu.Unlock()
	if rt == nil {
		s.log.Info("realtime not configured, skipping user channels")
		return
	}

	specs := []struct {
		spec backend.ChangeSpec
		h    backend.ChangeHandler
	}{
		{
			spec: backend.ChangeSpec{
				Name:   "user-" + userID,
				Event:  backend.EventUpdate,
				Table:  usersTable,
				Filter: backend.EqFilter("id", userID),
			},
			h: s.handleUserUpdate,
		},
		{
			spec: backend.ChangeSpec{
				Name:   "notifications-" + userID,
				Event:  backend.EventInsert,
				Table:  inboxTable,
				Filter: backend.EqFilter("user_id", userID),
			},
			h: s.handleInboxInsert,
		},
	}

	var opened []backend.Channel
	for _, sp := range specs {
		ch, err := rt.Subscribe(ctx, sp.spec, sp.h)
		if err != nil {
			s.log.Warn("realtime subscription failed", zap.String("channel", sp.spec.Name), zap.Error(err))
			continue
		}
		opened = append(opened, ch)
	}

	s.mu.Lock()
	s.channels = append(s.channels, opened...)
	s.mu.Unlock()
}

func (s *Service) closeChannels() {
	s.mu.Lock()
	chans := s.channels
	s.channels = nil
	s.mu.Unlock()
	for _, ch := range chans {
		if err := ch.Unsubscribe(); err != nil {
			s.log.Warn("unsubscribe failed", zap.Error(err))
		}
	}
}

// Channels reports how many realtime channels are open.
func (s *Service) Channels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}

func (s *Service) handleUserUpdate(c backend.Change) {
	s.mu.Lock()
	if s.user == nil || domain.IDString(c.New["id"]) != s.user.ID {
		s.mu.Unlock()
		return
	}
	before := s.user.Points
	prevLevel := s.user.Level()
	changed := s.user.Merge(c.New)
	after := s.user.Points
	level := s.user.Level()
	if changed {
		s.flash = true
		if s.flashT != nil {
			s.flashT.Stop()
		}
		s.flashT = time.AfterFunc(s.flashFor, s.endFlash)
	}
	s.mu.Unlock()

	s.render()
	if changed && after > before {
		s.view.Toast(ui.Toast{Kind: ui.ToastPoints, Message: fmt.Sprintf("+%s P", domain.FormatNumber(after-before))})
	}
	if level > prevLevel {
		s.view.Toast(ui.Toast{Kind: ui.ToastLevel, Title: "Level up", Message: fmt.Sprintf("You reached Lv.%d", level)})
	}
}

func (s *Service) endFlash() {
	s.mu.Lock()
	s.flash = false
	s.mu.Unlock()
	s.render()
}

func (s *Service) handleInboxInsert(c backend.Change) {
	n := domain.NotificationFromRow(c.New)
	s.view.Toast(ui.Toast{Kind: ui.ToastInfo, Title: n.Title, Message: n.Message})
}
