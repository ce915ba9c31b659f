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
	"github.com/ukydev/propdocs-maintenance/internal/notify"
)

// TaskView is a task together with its due state at read time.
type TaskView struct {
	models.MaintenanceTask
	DueState    models.DueState `json:"due_state"`
	DaysOverdue int             `json:"days_overdue"`
}

// CompleteTaskInput is what the caller reports when completing a task.
type CompleteTaskInput struct {
	CompletedBy string
	Notes       string
	ActualCost  *float64
	ActualTime  *int
}

// CompletionResult is the completed task and the task that follows it,
// if the schedule is still active.
type CompletionResult struct {
	Task     *models.MaintenanceTask `json:"task"`
	NextTask *models.MaintenanceTask `json:"next_task,omitempty"`
}

// GetTask returns a task owned by the caller, classified at the current time.
func (s *Service) GetTask(ctx context.Context, claims *models.Claims, id string) (*TaskView, error) {
	task, err := s.getTask(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	return s.view(task)
}

// ListTasks lists the tasks of one of the caller's schedules.
func (s *Service) ListTasks(ctx context.Context, claims *models.Claims, scheduleID string) ([]TaskView, error) {
	if _, err := s.GetSchedule(ctx, claims, scheduleID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.FindTasksBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		v, err := s.view(&tasks[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

// upcomingWindow is how far ahead the upcoming task filter looks.
const upcomingWindow = 7 * 24 * time.Hour

// TaskSearch narrows a search over the caller's tasks. Zero fields match
// everything.
type TaskSearch struct {
	Status   models.TaskStatus
	Priority models.Priority
	DueFrom  *time.Time // inclusive
	DueTo    *time.Time // exclusive
	Overdue  bool       // open and past the priority's grace period now
	Upcoming bool       // open and due within the next 7 days
	Limit    int
}

// SearchTasks lists the caller's tasks matching search in due date order,
// each classified at the current time.
func (s *Service) SearchTasks(ctx context.Context, claims *models.Claims, search TaskSearch) ([]TaskView, error) {
	if claims == nil || claims.UserID == "" {
		return nil, ErrForbidden
	}
	now := s.engine.Now()
	filter := db.TaskFilter{
		OwnerID:  claims.UserID,
		Priority: search.Priority,
		DueFrom:  search.DueFrom,
		DueTo:    search.DueTo,
		Limit:    search.Limit,
	}
	if search.Status != "" {
		filter.Statuses = []models.TaskStatus{search.Status}
	}
	if search.Overdue || search.Upcoming {
		if search.Status != "" && !search.Status.IsOpen() {
			return []TaskView{}, nil
		}
		if search.Status == "" {
			filter.Statuses = []models.TaskStatus{models.TaskStatusPending, models.TaskStatusOverdue}
		}
	}
	if search.Upcoming {
		filter.DueFrom = later(filter.DueFrom, now)
		filter.DueTo = earlier(filter.DueTo, now.Add(upcomingWindow))
	}
	if search.Overdue {
		// Grace periods vary by priority, so the state is checked per task
		// and the limit applied afterwards. A zero grace makes a task due
		// exactly now overdue.
		filter.DueTo = earlier(filter.DueTo, now.Add(time.Nanosecond))
		filter.Limit = 0
	}

	tasks, err := s.tasks.FindTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		v, err := s.view(&tasks[i])
		if err != nil {
			return nil, err
		}
		if search.Overdue && v.DueState != models.DueStateOverdue {
			continue
		}
		views = append(views, *v)
		if search.Limit > 0 && len(views) == search.Limit {
			break
		}
	}
	return views, nil
}

func later(t *time.Time, floor time.Time) *time.Time {
	if t != nil && t.After(floor) {
		return t
	}
	return &floor
}

func earlier(t *time.Time, ceiling time.Time) *time.Time {
	if t != nil && t.Before(ceiling) {
		return t
	}
	return &ceiling
}

// CompleteTask completes an open task, evaluates its cost against the
// schedule estimate and creates the next task one cadence after the
// completed task's due date.
func (s *Service) CompleteTask(ctx context.Context, claims *models.Claims, id string, input CompleteTaskInput) (*CompletionResult, error) {
	task, err := s.getTask(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if !task.Status.IsOpen() {
		return nil, ErrTaskCompleted
	}

	schedule, err := s.schedules.FindScheduleByID(ctx, task.ScheduleID.Hex())
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	}

	now := s.engine.Now()
	completion := models.TaskCompletion{
		CompletedAt: now,
		CompletedBy: input.CompletedBy,
		Notes:       input.Notes,
		ActualCost:  input.ActualCost,
		ActualTime:  input.ActualTime,
	}
	if completion.CompletedBy == "" {
		completion.CompletedBy = claims.Email
	}

	var estimate float64
	if input.ActualCost != nil && schedule != nil && schedule.EstimatedCost != nil {
		estimate = *schedule.EstimatedCost
		variance, err := s.engine.EvaluateCost(estimate, *input.ActualCost, schedule.Priority)
		if err != nil {
			return nil, err
		}
		completion.CostVariance = &variance
	}

	ok, err := s.tasks.CompleteTask(ctx, id, completion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTaskCompleted
	}
	applyCompletion(task, completion)
	result := &CompletionResult{Task: task}

	if schedule != nil && schedule.IsActive {
		next, err := s.scheduleNext(ctx, schedule, task)
		if err != nil {
			log.WithError(err).WithField("schedule_id", schedule.ID.Hex()).Error("Failed to create next task, the sweeper will reconcile")
		}
		result.NextTask = next
	}

	s.notifyUser(ctx, notify.TaskCompleted(task, now))
	if v := completion.CostVariance; v != nil && !v.WithinBudget {
		s.notifyUser(ctx, notify.CostOverrun(task, estimate, *input.ActualCost, *v))
	}
	return result, nil
}

func (s *Service) scheduleNext(ctx context.Context, schedule *models.MaintenanceSchedule, done *models.MaintenanceTask) (*models.MaintenanceTask, error) {
	cadence, err := s.engine.ScheduleCadence(schedule)
	if err != nil {
		return nil, err
	}
	due, err := s.engine.Advance(done.DueDate, cadence)
	if err != nil {
		return nil, err
	}
	next := newTask(schedule, due)
	if err := s.tasks.InsertTask(ctx, next); err != nil {
		if errors.Is(err, db.ErrDuplicateTask) {
			return nil, nil
		}
		return nil, fmt.Errorf("insert next task: %w", err)
	}
	return next, nil
}

func (s *Service) getTask(ctx context.Context, claims *models.Claims, id string) (*models.MaintenanceTask, error) {
	task, err := s.tasks.FindTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(claims, task.OwnerID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) view(task *models.MaintenanceTask) (*TaskView, error) {
	state, err := s.engine.ClassifyTask(task)
	if err != nil {
		return nil, err
	}
	v := &TaskView{MaintenanceTask: *task, DueState: state}
	if task.Status.IsOpen() {
		v.DaysOverdue = maintenance.DaysOverdue(task.DueDate, s.engine.Now())
	}
	return v, nil
}

func applyCompletion(task *models.MaintenanceTask, c models.TaskCompletion) {
	completedAt := c.CompletedAt
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &completedAt
	task.CompletedBy = c.CompletedBy
	task.Notes = c.Notes
	task.ActualCost = c.ActualCost
	task.ActualTime = c.ActualTime
	task.CostVariance = c.CostVariance
}
