package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/propdocs-maintenance/internal/db"
	"github.com/ukydev/propdocs-maintenance/internal/maintenance"
	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// SchedulePatch holds the fields of a partial schedule update. Nil fields
// are left unchanged.
type SchedulePatch struct {
	Title         *string
	Description   *string
	Frequency     *models.Frequency
	Interval      *int
	StartDate     *time.Time
	Priority      *models.Priority
	EstimatedCost *float64
	EstimatedTime *int
	IsActive      *bool
}

// CreateSchedule adds a schedule to one of the caller's assets. An active
// schedule gets its first task one cadence after the start date.
func (s *Service) CreateSchedule(ctx context.Context, claims *models.Claims, assetID string, schedule *models.MaintenanceSchedule) (*models.MaintenanceTask, error) {
	asset, err := s.GetAsset(ctx, claims, assetID)
	if err != nil {
		return nil, err
	}
	schedule.AssetID = asset.ID
	schedule.OwnerID = asset.OwnerID
	if schedule.Interval == 0 && schedule.Frequency != models.FrequencyCustom {
		schedule.Interval = 1
	}
	if schedule.Priority == "" {
		schedule.Priority = models.PriorityMedium
	}
	schedule.StartDate = schedule.StartDate.UTC()

	cadence, err := s.engine.ValidateSchedule(schedule)
	if err != nil {
		return nil, err
	}
	if err := s.schedules.InsertSchedule(ctx, schedule); err != nil {
		return nil, err
	}
	if !schedule.IsActive {
		return nil, nil
	}

	due, err := s.engine.NextDueDate(schedule.StartDate, cadence, schedule.StartDate)
	if err != nil {
		return nil, err
	}
	task := newTask(schedule, due)
	if err := s.tasks.InsertTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create first task: %w", err)
	}
	return task, nil
}

// CreateScheduleFromTemplate creates an active schedule for an asset from a
// built-in template.
func (s *Service) CreateScheduleFromTemplate(ctx context.Context, claims *models.Claims, assetID, templateID string, start time.Time) (*models.MaintenanceSchedule, *models.MaintenanceTask, error) {
	tmpl, ok := maintenance.FindTemplate(templateID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, templateID)
	}
	if start.IsZero() {
		start = s.engine.Now()
	}
	schedule := &models.MaintenanceSchedule{
		Title:         tmpl.Title,
		Description:   tmpl.Description,
		Frequency:     tmpl.Frequency,
		Interval:      tmpl.Interval,
		StartDate:     start,
		Priority:      tmpl.Priority,
		EstimatedCost: tmpl.EstimatedCost,
		EstimatedTime: tmpl.EstimatedTime,
		IsActive:      true,
	}
	task, err := s.CreateSchedule(ctx, claims, assetID, schedule)
	if err != nil {
		return nil, nil, err
	}
	return schedule, task, nil
}

// GetSchedule returns a schedule owned by the caller.
func (s *Service) GetSchedule(ctx context.Context, claims *models.Claims, id string) (*models.MaintenanceSchedule, error) {
	schedule, err := s.schedules.FindScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(claims, schedule.OwnerID); err != nil {
		return nil, err
	}
	return schedule, nil
}

// ListSchedules lists the schedules of one of the caller's assets.
func (s *Service) ListSchedules(ctx context.Context, claims *models.Claims, assetID string) ([]models.MaintenanceSchedule, error) {
	if _, err := s.GetAsset(ctx, claims, assetID); err != nil {
		return nil, err
	}
	return s.schedules.FindSchedulesByAsset(ctx, assetID)
}

// UpdateSchedule applies patch to a schedule. When the recurrence changes,
// open tasks are replaced by one on the new grid. A priority change is
// copied onto the open tasks, which are classified by it. Changes to
// IsActive are handled as activation or deactivation.
func (s *Service) UpdateSchedule(ctx context.Context, claims *models.Claims, id string, patch SchedulePatch) (*models.MaintenanceSchedule, error) {
	current, err := s.GetSchedule(ctx, claims, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Frequency != nil {
		updated.Frequency = *patch.Frequency
	}
	if patch.Interval != nil {
		updated.Interval = *patch.Interval
	}
	if patch.StartDate != nil {
		updated.StartDate = patch.StartDate.UTC()
	}
	if patch.Priority != nil {
		updated.Priority = *patch.Priority
	}
	if patch.EstimatedCost != nil {
		updated.EstimatedCost = patch.EstimatedCost
	}
	if patch.EstimatedTime != nil {
		updated.EstimatedTime = patch.EstimatedTime
	}

	cadence, err := s.engine.ValidateSchedule(&updated)
	if err != nil {
		return nil, err
	}
	oldCadence, err := s.engine.ScheduleCadence(current)
	recurrenceChanged := err != nil || cadence != oldCadence || !updated.StartDate.Equal(current.StartDate)

	updated.UpdatedAt = time.Now().UTC()
	if err := s.schedules.UpdateSchedule(ctx, id, updated); err != nil {
		return nil, err
	}
	if updated.Priority != current.Priority {
		if err := s.tasks.SetOpenTaskPriority(ctx, id, updated.Priority); err != nil {
			return nil, fmt.Errorf("update open task priority: %w", err)
		}
	}

	if patch.IsActive != nil && *patch.IsActive != current.IsActive {
		if *patch.IsActive {
			err = s.activate(ctx, &updated)
		} else {
			err = s.deactivate(ctx, &updated)
		}
		if err != nil {
			return nil, err
		}
		return &updated, nil
	}

	if recurrenceChanged && updated.IsActive {
		if err := s.tasks.DeleteOpenTasksBySchedule(ctx, id); err != nil {
			return nil, fmt.Errorf("drop open tasks: %w", err)
		}
		if _, err := s.EnsureOpenTask(ctx, &updated); err != nil {
			return nil, err
		}
	}
	return &updated, nil
}

// ActivateSchedule re-enables a schedule and projects its next task from
// the current time.
func (s *Service) ActivateSchedule(ctx context.Context, claims *models.Claims, id string) (*models.MaintenanceSchedule, error) {
	schedule, err := s.GetSchedule(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if err := s.activate(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// DeactivateSchedule disables a schedule and removes its open tasks.
// Completed tasks stay as history.
func (s *Service) DeactivateSchedule(ctx context.Context, claims *models.Claims, id string) (*models.MaintenanceSchedule, error) {
	schedule, err := s.GetSchedule(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if err := s.deactivate(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// DeleteSchedule deletes a schedule and all its tasks.
func (s *Service) DeleteSchedule(ctx context.Context, claims *models.Claims, id string) error {
	schedule, err := s.GetSchedule(ctx, claims, id)
	if err != nil {
		return err
	}
	return s.deleteSchedule(ctx, schedule)
}

func (s *Service) activate(ctx context.Context, schedule *models.MaintenanceSchedule) error {
	if _, err := s.engine.ValidateSchedule(schedule); err != nil {
		return err
	}
	if err := s.schedules.SetScheduleActive(ctx, schedule.ID.Hex(), true); err != nil {
		return err
	}
	schedule.IsActive = true
	_, err := s.EnsureOpenTask(ctx, schedule)
	return err
}

func (s *Service) deactivate(ctx context.Context, schedule *models.MaintenanceSchedule) error {
	id := schedule.ID.Hex()
	if err := s.schedules.SetScheduleActive(ctx, id, false); err != nil {
		return err
	}
	schedule.IsActive = false
	if err := s.tasks.DeleteOpenTasksBySchedule(ctx, id); err != nil {
		return fmt.Errorf("drop open tasks: %w", err)
	}
	return nil
}

func (s *Service) deleteSchedule(ctx context.Context, schedule *models.MaintenanceSchedule) error {
	id := schedule.ID.Hex()
	if err := s.tasks.DeleteTasksBySchedule(ctx, id); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	if err := s.schedules.DeleteSchedule(ctx, id); err != nil && !errors.Is(err, db.ErrNotFound) {
		return err
	}
	return nil
}

// EnsureOpenTask makes sure an active schedule has an open task. When it
// has none, one is created on the first grid date not before now, which
// also backfills schedules whose task creation was missed. It reports
// whether a task was created.
func (s *Service) EnsureOpenTask(ctx context.Context, schedule *models.MaintenanceSchedule) (bool, error) {
	if !schedule.IsActive {
		return false, nil
	}
	_, err := s.tasks.FindOpenTaskForSchedule(ctx, schedule.ID.Hex())
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return false, err
	}

	cadence, err := s.engine.ScheduleCadence(schedule)
	if err != nil {
		return false, err
	}
	due, err := s.engine.NextDueDate(schedule.StartDate, cadence, s.engine.Now())
	if err != nil {
		return false, err
	}

	// The grid date may already hold a task. If a concurrent sweep created
	// it, the schedule now has its open task; if it is completed history,
	// step past it once.
	for attempt := 0; attempt < 2; attempt++ {
		err = s.tasks.InsertTask(ctx, newTask(schedule, due))
		if err == nil {
			log.WithFields(log.Fields{
				"schedule_id": schedule.ID.Hex(),
				"due_date":    due,
			}).Info("Created maintenance task")
			return true, nil
		}
		if !errors.Is(err, db.ErrDuplicateTask) {
			return false, err
		}
		_, err = s.tasks.FindOpenTaskForSchedule(ctx, schedule.ID.Hex())
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return false, err
		}
		if due, err = s.engine.Advance(due, cadence); err != nil {
			return false, err
		}
	}
	return false, nil
}

func newTask(schedule *models.MaintenanceSchedule, due time.Time) *models.MaintenanceTask {
	return &models.MaintenanceTask{
		ScheduleID:  schedule.ID,
		AssetID:     schedule.AssetID,
		OwnerID:     schedule.OwnerID,
		Title:       schedule.Title,
		Description: schedule.Description,
		DueDate:     due,
		Priority:    schedule.Priority,
		Status:      models.TaskStatusPending,
	}
}
