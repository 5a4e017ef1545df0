package services

import (
	"context"
	"errors"

	"athlos-backend/internal/models"
	"athlos-backend/internal/repository"
)

const notificationListLimit = 50

// NotificationStore is the notification storage surface
type NotificationStore interface {
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) error
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// NotificationService handles the notification inbox. Reading the list does
// not acknowledge anything; marking read is an explicit action.
type NotificationService struct {
	store NotificationStore
}

// NewNotificationService creates a new notification service
func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

// List retrieves a profile's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID string) ([]*models.Notification, error) {
	return s.store.ListByRecipient(ctx, userID, notificationListLimit)
}

// MarkRead acknowledges a single notification owned by userID
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	err := s.store.MarkRead(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// MarkAllRead acknowledges every unread notification of userID
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.store.MarkAllRead(ctx, userID)
}

// UnreadCount returns the number of unread notifications for userID
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}
