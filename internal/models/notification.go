package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType identifies what a notification is about.
type NotificationType string

const (
	NotificationMaintenanceDue       NotificationType = "MAINTENANCE_DUE"
	NotificationMaintenanceOverdue   NotificationType = "MAINTENANCE_OVERDUE"
	NotificationMaintenanceCompleted NotificationType = "MAINTENANCE_COMPLETED"
	NotificationWarrantyExpiring     NotificationType = "WARRANTY_EXPIRING"
	NotificationCostOverrun          NotificationType = "COST_OVERRUN"
)

// Notification is a message for a user. DedupeKey, when set, is unique across
// the collection so a reminder can be recorded at most once.
type Notification struct {
	ID             primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	UserID         string                 `json:"user_id" bson:"user_id"`
	Type           NotificationType       `json:"type" bson:"type"`
	Title          string                 `json:"title" bson:"title"`
	Message        string                 `json:"message" bson:"message"`
	Data           map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"`
	ScheduledFor   *time.Time             `json:"scheduled_for,omitempty" bson:"scheduled_for,omitempty"`
	IsRead         bool                   `json:"is_read" bson:"is_read"`
	DedupeKey      string                 `json:"-" bson:"dedupe_key,omitempty"`
	SourceID       string                 `json:"-" bson:"source_id,omitempty"`
	ReminderOffset *int                   `json:"reminder_offset,omitempty" bson:"reminder_offset,omitempty"` // days before due
	DispatchedAt   *time.Time             `json:"dispatched_at,omitempty" bson:"dispatched_at,omitempty"`
	ClaimedUntil   *time.Time             `json:"-" bson:"claimed_until,omitempty"` // dispatch lease held by one worker
	CreatedAt      time.Time              `json:"created_at" bson:"created_at"`
}

// TaskReminderKey is the dedupe key of a due-date reminder for a task.
func TaskReminderKey(taskID primitive.ObjectID, offset int) string {
	return fmt.Sprintf("task:%s:due:%d", taskID.Hex(), offset)
}

// TaskOverdueKey is the dedupe key of the overdue notice for a task.
func TaskOverdueKey(taskID primitive.ObjectID) string {
	return fmt.Sprintf("task:%s:overdue", taskID.Hex())
}

// TaskCompletedKey is the dedupe key of the completion notice for a task.
func TaskCompletedKey(taskID primitive.ObjectID) string {
	return fmt.Sprintf("task:%s:completed", taskID.Hex())
}

// TaskCostOverrunKey is the dedupe key of the cost overrun alert for a task.
func TaskCostOverrunKey(taskID primitive.ObjectID) string {
	return fmt.Sprintf("task:%s:cost_overrun", taskID.Hex())
}

// WarrantySourceID identifies one warranty term of an asset.
func WarrantySourceID(assetID primitive.ObjectID, expiry time.Time) string {
	return fmt.Sprintf("%s:%s", assetID.Hex(), expiry.UTC().Format("2006-01-02"))
}

// WarrantyReminderKey is the dedupe key of a warranty reminder for an asset.
// The expiry date is part of the key so that extending a warranty re-arms
// its reminders.
func WarrantyReminderKey(assetID primitive.ObjectID, expiry time.Time, offset int) string {
	return fmt.Sprintf("asset:%s:warranty:%s:%d", assetID.Hex(), expiry.UTC().Format("2006-01-02"), offset)
}

// ActivityLog records a user-initiated change.
type ActivityLog struct {
	ID        primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	UserID    string                 `json:"user_id" bson:"user_id"`
	Action    string                 `json:"action" bson:"action"`     // e.g. "CREATE_SCHEDULE"
	Resource  string                 `json:"resource" bson:"resource"` // e.g. "maintenance_schedules"
	Metadata  map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
}
