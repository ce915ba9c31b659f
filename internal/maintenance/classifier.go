package maintenance

import (
	"fmt"
	"time"

	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// GracePeriod returns how long past due a task of this priority may run
// before it counts as overdue.
func (e *Engine) GracePeriod(priority models.Priority) (time.Duration, error) {
	grace, ok := e.rules.GracePeriodDays[priority]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	return days(grace), nil
}

// Classify derives the due state of a task from its due date and the time.
//
//	now >= due+grace       OVERDUE
//	now >= due-dueSoon     DUE_SOON (this includes the grace window)
//	otherwise              ON_TIME
func (e *Engine) Classify(due time.Time, priority models.Priority, now time.Time) (models.DueState, error) {
	grace, err := e.GracePeriod(priority)
	if err != nil {
		return "", err
	}
	if !now.Before(due.Add(grace)) {
		return models.DueStateOverdue, nil
	}
	if !now.Before(due.Add(-days(e.rules.DueSoonDays))) {
		return models.DueStateDueSoon, nil
	}
	return models.DueStateOnTime, nil
}

// ClassifyTask classifies a task at the engine's current time. Completed
// tasks are always ON_TIME.
func (e *Engine) ClassifyTask(t *models.MaintenanceTask) (models.DueState, error) {
	if t.Status == models.TaskStatusCompleted {
		return models.DueStateOnTime, nil
	}
	return e.Classify(t.DueDate, t.Priority, e.Now())
}

// DaysOverdue returns the whole days elapsed since due, or 0 if not yet due.
func DaysOverdue(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / day)
}
