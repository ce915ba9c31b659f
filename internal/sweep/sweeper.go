package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/propdocs-maintenance/internal/db"
	"github.com/ukydev/propdocs-maintenance/internal/maintenance"
	"github.com/ukydev/propdocs-maintenance/internal/models"
	"github.com/ukydev/propdocs-maintenance/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reconciler makes sure an active schedule has an open task.
type Reconciler interface {
	EnsureOpenTask(ctx context.Context, schedule *models.MaintenanceSchedule) (bool, error)
}

// Config holds the collaborators of a Sweeper.
type Config struct {
	Schedules     db.ScheduleCollection
	Tasks         db.TaskCollection
	Assets        db.AssetCollection
	Notifications db.NotificationCollection
	Reconciler    Reconciler
	Engine        *maintenance.Engine
	Dispatcher    notify.Dispatcher
	BatchSize     int
}

// Stats counts what one sweep did.
type Stats struct {
	TasksCreated      int `json:"tasks_created"`
	MarkedOverdue     int `json:"marked_overdue"`
	OverdueNotices    int `json:"overdue_notices"`
	RemindersFired    int `json:"reminders_fired"`
	WarrantiesFired   int `json:"warranties_fired"`
	Dispatched        int `json:"dispatched"`
	DispatchFailures  int `json:"dispatch_failures"`
	ClaimedElsewhere  int `json:"claimed_elsewhere"`
	Errors            int `json:"errors"`
	DuplicatesSkipped int `json:"duplicates_skipped"`
}

// Sweeper periodically reconciles schedules, classifies open tasks, fires
// due and warranty reminders, and dispatches recorded notifications. Every
// step is idempotent or claimed through the store, so overlapping sweeps in
// several processes are safe. The mutex only serializes runs of one
// instance.
type Sweeper struct {
	cfg   Config
	cron  *cron.Cron
	jobID cron.EntryID
	mu    sync.Mutex
}

// New creates a sweeper.
func New(cfg Config) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = notify.LogDispatcher{}
	}
	return &Sweeper{
		cfg: cfg,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(log.StandardLogger())),
			cron.SkipIfStillRunning(cron.PrintfLogger(log.StandardLogger())),
		)),
	}
}

// Start schedules the sweep with a cron spec such as "@every 5m" and starts
// the scheduler. With runImmediately a first sweep runs in the background.
func (s *Sweeper) Start(ctx context.Context, spec string, runImmediately bool) error {
	var err error
	s.jobID, err = s.cron.AddFunc(spec, func() {
		s.run(ctx, "scheduled")
	})
	if err != nil {
		return fmt.Errorf("error scheduling sweep: %w", err)
	}
	s.cron.Start()
	log.WithField("schedule", spec).Info("Maintenance sweeper started")

	if runImmediately {
		go s.run(ctx, "startup")
	}
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	log.Info("Maintenance sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context, trigger string) {
	start := time.Now()
	stats, err := s.RunOnce(ctx)
	entry := log.WithFields(log.Fields{
		"trigger":          trigger,
		"duration":         time.Since(start).String(),
		"tasks_created":    stats.TasksCreated,
		"marked_overdue":   stats.MarkedOverdue,
		"overdue_notices":  stats.OverdueNotices,
		"reminders_fired":  stats.RemindersFired,
		"warranties_fired": stats.WarrantiesFired,
		"dispatched":       stats.Dispatched,
		"errors":           stats.Errors,
	})
	if err != nil {
		entry.WithError(err).Warn("Maintenance sweep interrupted")
		return
	}
	entry.Info("Maintenance sweep finished")
}

// RunOnce performs one full sweep. Errors on individual items are logged
// and counted; only context cancellation stops the sweep early, leaving
// the rest for the next run.
func (s *Sweeper) RunOnce(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	phases := []struct {
		name string
		fn   func(context.Context, *Stats) error
	}{
		{"reconcile schedules", s.reconcileSchedules},
		{"evaluate tasks", s.evaluateTasks},
		{"warranty reminders", s.warrantyReminders},
		{"dispatch", s.dispatchPending},
	}
	for _, p := range phases {
		if err := p.fn(ctx, &stats); err != nil {
			return stats, fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return stats, nil
}

func (s *Sweeper) reconcileSchedules(ctx context.Context, stats *Stats) error {
	var after primitive.ObjectID
	for {
		schedules, err := s.cfg.Schedules.FindActiveSchedules(ctx, after, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		for i := range schedules {
			if err := ctx.Err(); err != nil {
				return err
			}
			schedule := &schedules[i]
			created, err := s.cfg.Reconciler.EnsureOpenTask(ctx, schedule)
			if err != nil {
				stats.Errors++
				log.WithError(err).WithField("schedule_id", schedule.ID.Hex()).Error("Failed to reconcile schedule")
				continue
			}
			if created {
				stats.TasksCreated++
			}
		}
		if len(schedules) < s.cfg.BatchSize {
			return nil
		}
		after = schedules[len(schedules)-1].ID
	}
}

func (s *Sweeper) evaluateTasks(ctx context.Context, stats *Stats) error {
	var after primitive.ObjectID
	for {
		tasks, err := s.cfg.Tasks.FindOpenTasks(ctx, after, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		for i := range tasks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.evaluateTask(ctx, &tasks[i], stats); err != nil {
				stats.Errors++
				log.WithError(err).WithField("task_id", tasks[i].ID.Hex()).Error("Failed to evaluate task")
			}
		}
		if len(tasks) < s.cfg.BatchSize {
			return nil
		}
		after = tasks[len(tasks)-1].ID
	}
}

// evaluateTask moves an overdue task to OVERDUE, records its overdue notice
// and fires every elapsed reminder offset that has not fired yet.
func (s *Sweeper) evaluateTask(ctx context.Context, task *models.MaintenanceTask, stats *Stats) error {
	now := s.cfg.Engine.Now()
	state, err := s.cfg.Engine.Classify(task.DueDate, task.Priority, now)
	if err != nil {
		return err
	}

	if state == models.DueStateOverdue {
		if task.Status == models.TaskStatusPending {
			changed, err := s.cfg.Tasks.MarkOverdue(ctx, task.ID.Hex())
			if err != nil {
				return err
			}
			if changed {
				stats.MarkedOverdue++
			}
		}
		if s.record(ctx, notify.TaskOverdue(task, maintenance.DaysOverdue(task.DueDate, now)), stats) {
			stats.OverdueNotices++
		}
	}

	offsets, err := s.cfg.Notifications.FindFiredOffsets(ctx, task.ID.Hex(), models.NotificationMaintenanceDue)
	if err != nil {
		return err
	}
	pending, err := s.cfg.Engine.PendingOffsets(task.DueDate, task.Priority, now, maintenance.NewOffsetSet(offsets...))
	if err != nil {
		return err
	}
	for _, offset := range pending {
		if s.record(ctx, notify.TaskDue(task, offset), stats) {
			stats.RemindersFired++
		}
	}
	return nil
}

func (s *Sweeper) warrantyReminders(ctx context.Context, stats *Stats) error {
	offsets := s.cfg.Engine.WarrantyOffsets()
	if len(offsets) == 0 {
		return nil
	}
	now := s.cfg.Engine.Now()
	horizon := now.Add(time.Duration(offsets[0]+1) * 24 * time.Hour)

	var after primitive.ObjectID
	for {
		assets, err := s.cfg.Assets.FindAssetsWithWarrantyBetween(ctx, now, horizon, after, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		for i := range assets {
			if err := ctx.Err(); err != nil {
				return err
			}
			asset := &assets[i]
			if err := s.warrantyReminder(ctx, asset, now, stats); err != nil {
				stats.Errors++
				log.WithError(err).WithField("asset_id", asset.ID.Hex()).Error("Failed to evaluate warranty")
			}
		}
		if len(assets) < s.cfg.BatchSize {
			return nil
		}
		after = assets[len(assets)-1].ID
	}
}

func (s *Sweeper) warrantyReminder(ctx context.Context, asset *models.Asset, now time.Time, stats *Stats) error {
	if asset.WarrantyExpiry == nil {
		return nil
	}
	expiry := asset.WarrantyExpiry.UTC()
	fired, err := s.cfg.Notifications.FindFiredOffsets(ctx, models.WarrantySourceID(asset.ID, expiry), models.NotificationWarrantyExpiring)
	if err != nil {
		return err
	}
	for _, offset := range s.cfg.Engine.PendingWarrantyOffsets(expiry, now, maintenance.NewOffsetSet(fired...)) {
		if s.record(ctx, notify.WarrantyExpiring(asset, expiry, offset), stats) {
			stats.WarrantiesFired++
		}
	}
	return nil
}

// record inserts n and reports whether it was new. A duplicate means
// another sweep already fired it.
func (s *Sweeper) record(ctx context.Context, n *models.Notification, stats *Stats) bool {
	err := s.cfg.Notifications.InsertNotification(ctx, n)
	if err == nil {
		return true
	}
	if errors.Is(err, db.ErrDuplicateNotification) {
		stats.DuplicatesSkipped++
		return false
	}
	stats.Errors++
	log.WithError(err).WithField("dedupe_key", n.DedupeKey).Error("Failed to record notification")
	return false
}

// dispatchPending delivers undispatched notifications, oldest first. Each
// one is claimed before dispatch so concurrent sweeps and the API never
// publish it twice. It stops after a batch with failures so they are
// retried next run instead of being fetched again now. Notifications
// claimed elsewhere drop out of the next fetch.
func (s *Sweeper) dispatchPending(ctx context.Context, stats *Stats) error {
	for {
		pending, err := s.cfg.Notifications.FindUndispatched(ctx, time.Now().UTC(), s.cfg.BatchSize)
		if err != nil {
			return err
		}
		failed := 0
		for _, n := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := notify.Deliver(ctx, s.cfg.Notifications, s.cfg.Dispatcher, n)
			switch {
			case err == nil:
				stats.Dispatched++
			case errors.Is(err, notify.ErrClaimed):
				stats.ClaimedElsewhere++
			default:
				failed++
				stats.DispatchFailures++
				log.WithError(err).WithField("notification_id", n.ID.Hex()).Warn("Failed to dispatch notification")
			}
		}
		if failed > 0 || len(pending) < s.cfg.BatchSize {
			return nil
		}
	}
}
