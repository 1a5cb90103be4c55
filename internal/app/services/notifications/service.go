package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/R3E-Network/framestore/internal/app/domain/notification"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/pkg/logger"
)

// Service manages user notification inboxes.
type Service struct {
	store storage.NotificationStore
	log   *logger.Logger
}

// New constructs a notification service.
func New(store storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notifications")
	}
	return &Service{store: store, log: log}
}

// Notify delivers n to its user's inbox.
func (s *Service) Notify(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.UserID = strings.TrimSpace(n.UserID)
	n.Title = strings.TrimSpace(n.Title)
	if n.UserID == "" {
		return notification.Notification{}, errors.BadRequest("user_id is required")
	}
	if !n.Type.Valid() {
		return notification.Notification{}, errors.InvalidFormat("type", "must be milestone, collaboration, system or achievement")
	}
	if n.Title == "" {
		return notification.Notification{}, errors.BadRequest("title is required")
	}
	n.Read = false

	created, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		return notification.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	s.log.WithField("notification_id", created.ID).
		WithField("user_id", created.UserID).
		WithField("type", created.Type).
		Debug("notification delivered")
	return created, nil
}

// List returns a user's notifications newest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	list, err := s.store.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if list == nil {
		list = []notification.Notification{}
	}
	return list, nil
}

// MarkRead marks one of the user's notifications read. Other users'
// notifications are reported as not found.
func (s *Service) MarkRead(ctx context.Context, userID, id string) (notification.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if err != nil {
		return notification.Notification{}, fmt.Errorf("get notification: %w", err)
	}
	if n.UserID != userID {
		return notification.Notification{}, errors.NotFound("notification", id)
	}
	if n.Read {
		return n, nil
	}
	n, err = s.store.MarkNotificationRead(ctx, id)
	if err != nil {
		return notification.Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}
