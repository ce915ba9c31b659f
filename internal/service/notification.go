package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/propdocs-maintenance/internal/models"
)

const defaultListLimit = 50

// ListNotifications lists the caller's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, claims *models.Claims, unreadOnly bool, limit int) ([]models.Notification, error) {
	if claims == nil || claims.UserID == "" {
		return nil, ErrForbidden
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.notifications.FindNotificationsByUser(ctx, claims.UserID, unreadOnly, limit)
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, claims *models.Claims, id string) error {
	if claims == nil || claims.UserID == "" {
		return ErrForbidden
	}
	return s.notifications.MarkNotificationRead(ctx, id, claims.UserID)
}

// RecordActivity appends an entry to the caller's activity log. Failures
// are logged and otherwise ignored.
func (s *Service) RecordActivity(ctx context.Context, claims *models.Claims, action, resource string, metadata map[string]interface{}, ip string) {
	if claims == nil {
		return
	}
	entry := &models.ActivityLog{
		UserID:    claims.UserID,
		Action:    action,
		Resource:  resource,
		Metadata:  metadata,
		IPAddress: ip,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.activity.InsertActivity(ctx, entry); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": claims.UserID,
			"action":  action,
		}).Warn("Failed to record activity")
	}
}

// ListActivity lists the caller's recent activity.
func (s *Service) ListActivity(ctx context.Context, claims *models.Claims, limit int) ([]models.ActivityLog, error) {
	if claims == nil || claims.UserID == "" {
		return nil, ErrForbidden
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.activity.FindActivityByUser(ctx, claims.UserID, limit)
}
