package service

import (
	"context"

	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// NotificationService reads and acknowledges the caller's notifications.
// Notifications are written by the reservation lifecycle only.
type NotificationService struct {
	store Storage
}

func NewNotificationService(store Storage) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, actor Actor, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.Repos().Notifications.List(ctx, actor.Role, actor.ID, unreadOnly, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id uint64) error {
	return s.store.Repos().Notifications.MarkRead(ctx, id, actor.Role, actor.ID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	return s.store.Repos().Notifications.MarkAllRead(ctx, actor.Role, actor.ID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int, error) {
	return s.store.Repos().Notifications.CountUnread(ctx, actor.Role, actor.ID)
}
