package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/propdocs-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidID             = errors.New("invalid id")
	ErrDuplicateNotification = errors.New("notification already recorded")
	ErrDuplicateTask         = errors.New("task already exists for this due date")
)

// TaskFilter selects an owner's tasks. Zero fields match everything.
type TaskFilter struct {
	OwnerID  string
	Statuses []models.TaskStatus
	Priority models.Priority
	DueFrom  *time.Time // inclusive
	DueTo    *time.Time // exclusive
	Limit    int
}

// PropertyCollection defines the interface for property data operations.
type PropertyCollection interface {
	InsertProperty(ctx context.Context, property *models.Property) error
	FindPropertyByID(ctx context.Context, id string) (*models.Property, error)
	FindPropertiesByOwner(ctx context.Context, ownerID string) ([]models.Property, error)
	CountPropertiesByOwner(ctx context.Context, ownerID string) (int, error)
	UpdateProperty(ctx context.Context, id string, property models.Property) error
	DeleteProperty(ctx context.Context, id string) error
}

// AssetCollection defines the interface for asset data operations.
type AssetCollection interface {
	InsertAsset(ctx context.Context, asset *models.Asset) error
	FindAssetByID(ctx context.Context, id string) (*models.Asset, error)
	FindAssetsByProperty(ctx context.Context, propertyID string) ([]models.Asset, error)
	CountAssetsByProperty(ctx context.Context, propertyID string) (int, error)
	UpdateAsset(ctx context.Context, id string, asset models.Asset) error
	// FindAssetsWithWarrantyBetween pages through assets whose warranty
	// expires in [from, to), ordered by id, starting after afterID.
	FindAssetsWithWarrantyBetween(ctx context.Context, from, to time.Time, afterID primitive.ObjectID, limit int) ([]models.Asset, error)
	DeleteAsset(ctx context.Context, id string) error
}

// ScheduleCollection defines the interface for maintenance schedule operations.
type ScheduleCollection interface {
	InsertSchedule(ctx context.Context, schedule *models.MaintenanceSchedule) error
	FindScheduleByID(ctx context.Context, id string) (*models.MaintenanceSchedule, error)
	FindSchedulesByAsset(ctx context.Context, assetID string) ([]models.MaintenanceSchedule, error)
	// FindActiveSchedules pages through active schedules ordered by id.
	FindActiveSchedules(ctx context.Context, afterID primitive.ObjectID, limit int) ([]models.MaintenanceSchedule, error)
	UpdateSchedule(ctx context.Context, id string, schedule models.MaintenanceSchedule) error
	SetScheduleActive(ctx context.Context, id string, active bool) error
	DeleteSchedule(ctx context.Context, id string) error
}

// TaskCollection defines the interface for maintenance task operations.
type TaskCollection interface {
	// InsertTask returns ErrDuplicateTask when the schedule already has a
	// task for the same due date.
	InsertTask(ctx context.Context, task *models.MaintenanceTask) error
	FindTaskByID(ctx context.Context, id string) (*models.MaintenanceTask, error)
	FindTasksBySchedule(ctx context.Context, scheduleID string) ([]models.MaintenanceTask, error)
	FindOpenTaskForSchedule(ctx context.Context, scheduleID string) (*models.MaintenanceTask, error)
	// FindOpenTasks pages through PENDING and OVERDUE tasks ordered by id.
	FindOpenTasks(ctx context.Context, afterID primitive.ObjectID, limit int) ([]models.MaintenanceTask, error)
	// FindTasks lists an owner's tasks matching filter in due date order.
	FindTasks(ctx context.Context, filter TaskFilter) ([]models.MaintenanceTask, error)
	// SetOpenTaskPriority copies a schedule's priority onto its open tasks.
	SetOpenTaskPriority(ctx context.Context, scheduleID string, priority models.Priority) error
	// MarkOverdue moves a PENDING task to OVERDUE. It reports false when the
	// task was not PENDING.
	MarkOverdue(ctx context.Context, id string) (bool, error)
	// CompleteTask moves an open task to COMPLETED. It reports false when the
	// task was not open.
	CompleteTask(ctx context.Context, id string, completion models.TaskCompletion) (bool, error)
	DeleteOpenTasksBySchedule(ctx context.Context, scheduleID string) error
	DeleteTasksBySchedule(ctx context.Context, scheduleID string) error
}

// ServiceRecordCollection defines the interface for service record operations.
// Records are append-only; there is no update.
type ServiceRecordCollection interface {
	InsertServiceRecord(ctx context.Context, record *models.ServiceRecord) error
	FindServiceRecordByID(ctx context.Context, id string) (*models.ServiceRecord, error)
	FindServiceRecordsByAsset(ctx context.Context, assetID string) ([]models.ServiceRecord, error)
	DeleteServiceRecordsByAsset(ctx context.Context, assetID string) error
}

// NotificationCollection defines the interface for notification operations.
type NotificationCollection interface {
	// InsertNotification returns ErrDuplicateNotification when a notification
	// with the same dedupe key already exists.
	InsertNotification(ctx context.Context, notification *models.Notification) error
	FindNotificationsByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	// FindFiredOffsets returns the reminder offsets recorded for a source.
	FindFiredOffsets(ctx context.Context, sourceID string, notificationType models.NotificationType) ([]int, error)
	// FindUndispatched returns notifications not yet handed to the dispatcher
	// and not claimed by a worker at now, oldest first.
	FindUndispatched(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	// ClaimDispatch leases an undispatched notification to the caller until
	// the given time. It reports false when the notification is dispatched
	// or another worker holds a live claim.
	ClaimDispatch(ctx context.Context, id primitive.ObjectID, now, until time.Time) (bool, error)
	// ReleaseDispatch drops a claim so the notification can be retried.
	ReleaseDispatch(ctx context.Context, id primitive.ObjectID) error
	// MarkDispatched records the dispatch time once and drops the claim. It
	// reports false when the notification was already marked.
	MarkDispatched(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error)
}

// ActivityCollection defines the interface for user activity log operations.
type ActivityCollection interface {
	InsertActivity(ctx context.Context, entry *models.ActivityLog) error
	FindActivityByUser(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error)
}
