package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	authz "github.com/yigit/eventhub/internal/app/auth"
	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/app/repositories"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
	"github.com/yigit/eventhub/internal/pkg/helpers"
)

// NotificationService defines the recipient-side operations on notifications
type NotificationService interface {
	List(ctx context.Context, caller *models.Caller, unreadOnly bool, page helpers.Page) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, caller *models.Caller) (int64, error)
	MarkRead(ctx context.Context, caller *models.Caller, id string) error
	MarkAllRead(ctx context.Context, caller *models.Caller) (int64, error)
	Delete(ctx context.Context, caller *models.Caller, id string) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// notificationServiceImpl implements NotificationService
type notificationServiceImpl struct {
	store  repositories.NotificationStore
	logger zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(store repositories.NotificationStore, logger zerolog.Logger) NotificationService {
	return &notificationServiceImpl{store: store, logger: logger}
}

// List returns a page of the caller's notifications
func (s *notificationServiceImpl) List(ctx context.Context, caller *models.Caller, unreadOnly bool, page helpers.Page) ([]models.Notification, int64, error) {
	if err := authz.RequireCaller(caller); err != nil {
		return nil, 0, err
	}
	return s.store.ListByUser(ctx, caller.UserID, unreadOnly, page.Limit(), page.Offset())
}

// UnreadCount returns the caller's unread counter
func (s *notificationServiceImpl) UnreadCount(ctx context.Context, caller *models.Caller) (int64, error) {
	if err := authz.RequireCaller(caller); err != nil {
		return 0, err
	}
	return s.store.CountUnread(ctx, caller.UserID)
}

// MarkRead flags one of the caller's notifications as read
func (s *notificationServiceImpl) MarkRead(ctx context.Context, caller *models.Caller, id string) error {
	if err := s.requireOwner(ctx, caller, id); err != nil {
		return err
	}
	return s.store.MarkRead(ctx, id, caller.UserID)
}

// MarkAllRead flags all of the caller's notifications as read
func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, caller *models.Caller) (int64, error) {
	if err := authz.RequireCaller(caller); err != nil {
		return 0, err
	}
	return s.store.MarkAllRead(ctx, caller.UserID)
}

// Delete removes one of the caller's notifications
func (s *notificationServiceImpl) Delete(ctx context.Context, caller *models.Caller, id string) error {
	if err := s.requireOwner(ctx, caller, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id, caller.UserID)
}

// PurgeOlderThan removes notifications created before cutoff
func (s *notificationServiceImpl) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	users, removed, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info().
		Time("cutoff", cutoff).
		Int64("removed", removed).
		Int("users", len(users)).
		Msg("Purged expired notifications")
	return removed, nil
}

func (s *notificationServiceImpl) requireOwner(ctx context.Context, caller *models.Caller, id string) error {
	if err := authz.RequireCaller(caller); err != nil {
		return err
	}
	n, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != caller.UserID {
		return apperrors.NewForbiddenError("notification belongs to another user")
	}
	return nil
}
