package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/models"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/mailer"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, id int64) error
	MarkAllRead(ctx context.Context, userID string) error
	Clear(ctx context.Context, userID string) error
}

type recipientReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// NotificationService owns the per-user inbox. Achievements additionally
// go out by email so they reach users who never open the app.
type NotificationService struct {
	notifications notificationStore
	users         recipientReader
	mail          mailer.Mailer
	logger        *zap.Logger
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(notifications notificationStore, users recipientReader, mail mailer.Mailer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{notifications: notifications, users: users, mail: mail, logger: logger}
}

// Notify records an inbox entry for the user. Email delivery failures are
// logged, never surfaced: the inbox row is the source of truth.
func (s *NotificationService) Notify(ctx context.Context, userID string, kind models.NotificationType, title, description string, link *string) error {
	notification := &models.Notification{
		UserID:      userID,
		Type:        kind,
		Title:       title,
		Description: description,
		Link:        link,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}

	if s.mail != nil && kind == models.NotificationAchievement {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			s.logger.Warn("failed to load notification recipient", zap.String("user_id", userID), zap.Error(err))
			return nil
		}
		message := mailer.Message{
			ToName:    user.Username,
			ToAddress: user.Email,
			Subject:   title,
			TextBody:  description,
		}
		if err := s.mail.Send(ctx, message); err != nil {
			s.logger.Warn("notification email failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// List returns the user's latest notifications.
func (s *NotificationService) List(ctx context.Context, viewer Viewer, limit int) ([]models.Notification, error) {
	notifications, err := s.notifications.ListByUser(ctx, viewer.UserID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadCount returns the badge counter.
func (s *NotificationService) UnreadCount(ctx context.Context, viewer Viewer) (int, error) {
	count, err := s.notifications.CountUnread(ctx, viewer.UserID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkRead marks one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, viewer Viewer, id int64) error {
	if err := s.notifications.MarkRead(ctx, viewer.UserID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead clears the unread state for the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, viewer Viewer) error {
	if err := s.notifications.MarkAllRead(ctx, viewer.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

// Clear empties the user's inbox.
func (s *NotificationService) Clear(ctx context.Context, viewer Viewer) error {
	if err := s.notifications.Clear(ctx, viewer.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear notifications")
	}
	return nil
}
