package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenaleague/arena/models"
	"github.com/arenaleague/arena/repositories"
)

// NotificationPusher delivers a payload to a user's live connections, if any.
// Implemented by the websocket hub; a nil-safe no-op is fine in tests.
type NotificationPusher interface {
	PushToUser(userID int, payload interface{})
}

// NotificationService persists notifications and pushes them to connected
// clients. It implements Notifier for the domain services.
type NotificationService interface {
	Notifier
	ListForUser(ctx context.Context, userID int, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID int) error
}

type notificationService struct {
	repo   repositories.NotificationRepository
	pusher NotificationPusher
	logger *slog.Logger
}

func NewNotificationService(repo repositories.NotificationRepository, pusher NotificationPusher, logger *slog.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		pusher: pusher,
		logger: logger,
	}
}

func (s *notificationService) Notify(ctx context.Context, userID int, ntype models.NotificationType, title, message string, linkURL *string) error {
	n := &models.Notification{
		UserID:  userID,
		Type:    ntype,
		Title:   title,
		Message: message,
		LinkURL: linkURL,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	// Live push is best effort; the stored row is the source of truth.
	if s.pusher != nil {
		s.pusher.PushToUser(userID, n)
	}
	return nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID int, unreadOnly bool) ([]*models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly)
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID int) error {
	if err := s.repo.MarkRead(ctx, userID, notificationID); err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
