package notify

import (
	"context"
	"fmt"

	"github.com/wavespace/wavespace/pkg/domain"
)

// CreateNotification stores n for its recipient and returns it as stored.
func (s *Service) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if n.UserID == "" {
		return domain.Notification{}, fmt.Errorf("notify.CreateNotification: recipient is required")
	}
	if n.Type == "" {
		n.Type = domain.NotifSystem
	}
	rows, err := s.backend.Insert(ctx, Table, n.Row())
	if err != nil {
		return domain.Notification{}, fmt.Errorf("notify.CreateNotification: %w", err)
	}
	if len(rows) == 0 {
		return n, nil
	}
	return domain.NotificationFromRow(rows[0]), nil
}

// SendCommentNotification tells a post's author about a new comment.
func (s *Service) SendCommentNotification(ctx context.Context, userID, postID, postTitle, commenter string) error {
	_, err := s.CreateNotification(ctx, domain.Notification{
		UserID:    userID,
		Type:      domain.NotifComment,
		Title:     "New comment",
		Message:   fmt.Sprintf("%s commented on %q.", commenter, postTitle),
		RelatedID: postID,
	})
	return err
}

// SendLikeNotification tells a post's author about a new like.
func (s *Service) SendLikeNotification(ctx context.Context, userID, postID, postTitle, liker string) error {
	_, err := s.CreateNotification(ctx, domain.Notification{
		UserID:    userID,
		Type:      domain.NotifLike,
		Title:     "New like",
		Message:   fmt.Sprintf("%s liked %q.", liker, postTitle),
		RelatedID: postID,
	})
	return err
}

// SendPointNotification tells a member they earned points.
func (s *Service) SendPointNotification(ctx context.Context, userID string, points int, reason string) error {
	_, err := s.CreateNotification(ctx, domain.Notification{
		UserID:  userID,
		Type:    domain.NotifPoint,
		Title:   "Points earned",
		Message: fmt.Sprintf("+%s P for %s.", domain.FormatNumber(points), reason),
	})
	return err
}

// SendBadgeNotification tells a member they earned a badge.
func (s *Service) SendBadgeNotification(ctx context.Context, userID, badge string) error {
	_, err := s.CreateNotification(ctx, domain.Notification{
		UserID:  userID,
		Type:    domain.NotifBadge,
		Title:   "New badge",
		Message: fmt.Sprintf("You earned the %q badge.", badge),
	})
	return err
}

// SendSystemNotification sends an announcement.
func (s *Service) SendSystemNotification(ctx context.Context, userID, title, message string) error {
	_, err := s.CreateNotification(ctx, domain.Notification{
		UserID:  userID,
		Type:    domain.NotifSystem,
		Title:   title,
		Message: message,
	})
	return err
}
