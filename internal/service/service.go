package service

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/propdocs-maintenance/internal/db"
	"github.com/ukydev/propdocs-maintenance/internal/maintenance"
	"github.com/ukydev/propdocs-maintenance/internal/models"
	"github.com/ukydev/propdocs-maintenance/internal/notify"
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrTaskCompleted    = errors.New("task already completed")
	ErrTemplateNotFound = errors.New("template not found")
	ErrQuotaExceeded    = errors.New("subscription quota exceeded")
)

// Collections are the stores the service works on.
type Collections struct {
	Properties     db.PropertyCollection
	Assets         db.AssetCollection
	Schedules      db.ScheduleCollection
	Tasks          db.TaskCollection
	ServiceRecords db.ServiceRecordCollection
	Notifications  db.NotificationCollection
	Activity       db.ActivityCollection
}

// Service implements the property, asset and maintenance use cases on top
// of the store and the maintenance engine.
type Service struct {
	properties     db.PropertyCollection
	assets         db.AssetCollection
	schedules      db.ScheduleCollection
	tasks          db.TaskCollection
	serviceRecords db.ServiceRecordCollection
	notifications  db.NotificationCollection
	activity       db.ActivityCollection

	engine     *maintenance.Engine
	dispatcher notify.Dispatcher
}

// New creates a service. A nil dispatcher leaves delivery to the sweeper.
func New(c Collections, engine *maintenance.Engine, dispatcher notify.Dispatcher) *Service {
	return &Service{
		properties:     c.Properties,
		assets:         c.Assets,
		schedules:      c.Schedules,
		tasks:          c.Tasks,
		serviceRecords: c.ServiceRecords,
		notifications:  c.Notifications,
		activity:       c.Activity,
		engine:         engine,
		dispatcher:     dispatcher,
	}
}

// Engine returns the maintenance engine the service evaluates with.
func (s *Service) Engine() *maintenance.Engine {
	return s.engine
}

func authorize(claims *models.Claims, ownerID string) error {
	if !claims.Owns(ownerID) {
		return ErrForbidden
	}
	return nil
}

// notifyUser records n and delivers it right away. A duplicate is not an
// error; a failed dispatch is left for the sweeper.
func (s *Service) notifyUser(ctx context.Context, n *models.Notification) {
	if err := s.notifications.InsertNotification(ctx, n); err != nil {
		if !errors.Is(err, db.ErrDuplicateNotification) {
			log.WithError(err).WithField("dedupe_key", n.DedupeKey).Error("Failed to record notification")
		}
		return
	}
	if s.dispatcher == nil {
		return
	}
	if err := notify.Deliver(ctx, s.notifications, s.dispatcher, *n); err != nil && !errors.Is(err, notify.ErrClaimed) {
		log.WithError(err).WithField("notification_id", n.ID.Hex()).Warn("Dispatch failed, will retry on next sweep")
	}
}
