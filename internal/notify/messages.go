package notify

import (
	"fmt"
	"time"

	"github.com/ukydev/propdocs-maintenance/internal/maintenance"
	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// TaskDue builds the reminder for offset days before a task's due date.
// ScheduledFor is the instant the reminder became due.
func TaskDue(task *models.MaintenanceTask, offset int) *models.Notification {
	var when string
	switch offset {
	case 0:
		when = "today"
	case 1:
		when = "tomorrow"
	default:
		when = fmt.Sprintf("in %d days", offset)
	}
	due := task.DueDate
	fireAt := maintenance.FireTime(due, offset)
	o := offset
	return &models.Notification{
		UserID:         task.OwnerID,
		Type:           models.NotificationMaintenanceDue,
		Title:          "Maintenance due " + when,
		Message:        fmt.Sprintf("%s is due %s (%s).", task.Title, when, due.Format("Jan 2, 2006")),
		Data:           taskData(task),
		ScheduledFor:   &fireAt,
		DedupeKey:      models.TaskReminderKey(task.ID, offset),
		SourceID:       task.ID.Hex(),
		ReminderOffset: &o,
	}
}

// TaskOverdue builds the overdue notice for a task.
func TaskOverdue(task *models.MaintenanceTask, daysOverdue int) *models.Notification {
	data := taskData(task)
	data["days_overdue"] = daysOverdue
	return &models.Notification{
		UserID:    task.OwnerID,
		Type:      models.NotificationMaintenanceOverdue,
		Title:     "Maintenance overdue",
		Message:   fmt.Sprintf("%s was due on %s and is %d day(s) overdue.", task.Title, task.DueDate.Format("Jan 2, 2006"), daysOverdue),
		Data:      data,
		DedupeKey: models.TaskOverdueKey(task.ID),
		SourceID:  task.ID.Hex(),
	}
}

// TaskCompleted builds the completion notice for a task.
func TaskCompleted(task *models.MaintenanceTask, completedAt time.Time) *models.Notification {
	return &models.Notification{
		UserID:    task.OwnerID,
		Type:      models.NotificationMaintenanceCompleted,
		Title:     "Maintenance completed",
		Message:   fmt.Sprintf("%s was completed on %s.", task.Title, completedAt.Format("Jan 2, 2006")),
		Data:      taskData(task),
		DedupeKey: models.TaskCompletedKey(task.ID),
		SourceID:  task.ID.Hex(),
	}
}

// CostOverrun builds the alert raised when a completed task exceeds its
// priority's cost variance threshold.
func CostOverrun(task *models.MaintenanceTask, estimated, actual float64, variance models.CostVariance) *models.Notification {
	data := taskData(task)
	data["estimated_cost"] = estimated
	data["actual_cost"] = actual
	data["overage_percent"] = variance.OveragePercent
	data["threshold_percent"] = variance.ThresholdPercent
	return &models.Notification{
		UserID: task.OwnerID,
		Type:   models.NotificationCostOverrun,
		Title:  "Maintenance cost over budget",
		Message: fmt.Sprintf("%s cost $%.2f against an estimate of $%.2f (%.0f%% over, threshold %.0f%%).",
			task.Title, actual, estimated, variance.OveragePercent, variance.ThresholdPercent),
		Data:      data,
		DedupeKey: models.TaskCostOverrunKey(task.ID),
		SourceID:  task.ID.Hex(),
	}
}

// WarrantyExpiring builds the reminder for offset days before an asset's
// warranty expires.
func WarrantyExpiring(asset *models.Asset, expiry time.Time, offset int) *models.Notification {
	fireAt := maintenance.FireTime(expiry, offset)
	o := offset
	return &models.Notification{
		UserID:  asset.OwnerID,
		Type:    models.NotificationWarrantyExpiring,
		Title:   "Warranty expiring soon",
		Message: fmt.Sprintf("The warranty for %s expires in %d days (%s).", asset.Name, offset, expiry.Format("Jan 2, 2006")),
		Data: map[string]interface{}{
			"asset_id":        asset.ID.Hex(),
			"property_id":     asset.PropertyID.Hex(),
			"warranty_expiry": expiry,
		},
		ScheduledFor:   &fireAt,
		DedupeKey:      models.WarrantyReminderKey(asset.ID, expiry, offset),
		SourceID:       models.WarrantySourceID(asset.ID, expiry),
		ReminderOffset: &o,
	}
}

func taskData(task *models.MaintenanceTask) map[string]interface{} {
	return map[string]interface{}{
		"task_id":     task.ID.Hex(),
		"schedule_id": task.ScheduleID.Hex(),
		"asset_id":    task.AssetID.Hex(),
		"due_date":    task.DueDate,
		"priority":    task.Priority,
	}
}
