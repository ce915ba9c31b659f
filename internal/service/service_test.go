package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/propdocs-maintenance/internal/db"
	"github.com/ukydev/propdocs-maintenance/internal/db/memstore"
	"github.com/ukydev/propdocs-maintenance/internal/maintenance"
	"github.com/ukydev/propdocs-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

var (
	owner    = &models.Claims{UserID: "user-1", Email: "owner@example.com", Tier: models.TierProfessional}
	stranger = &models.Claims{UserID: "user-2", Email: "other@example.com", Tier: models.TierProfessional}
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store *memstore.Store
	svc   *Service
	now   time.Time
}

func newFixture(t *testing.T, now time.Time, dispatcher *MockDispatcher) *fixture {
	t.Helper()
	f := &fixture{store: memstore.New(), now: now}
	engine, err := maintenance.NewEngine(maintenance.DefaultRules(), maintenance.ClockFunc(func() time.Time { return f.now }))
	require.NoError(t, err)
	c := Collections{
		Properties:     f.store,
		Assets:         f.store,
		Schedules:      f.store,
		Tasks:          f.store,
		ServiceRecords: f.store,
		Notifications:  f.store,
		Activity:       f.store,
	}
	if dispatcher != nil {
		f.svc = New(c, engine, dispatcher)
	} else {
		f.svc = New(c, engine, nil)
	}
	return f
}

func (f *fixture) asset(t *testing.T) *models.Asset {
	t.Helper()
	ctx := context.Background()
	property := &models.Property{Name: "Lake house", Type: models.PropertyTypeHouse}
	require.NoError(t, f.svc.CreateProperty(ctx, owner, property))
	asset := &models.Asset{Name: "Furnace", Type: "Furnace", Category: models.AssetCategoryHVAC}
	require.NoError(t, f.svc.CreateAsset(ctx, owner, property.ID.Hex(), asset))
	return asset
}

func cost(v float64) *float64 { return &v }

func (f *fixture) schedule(t *testing.T, asset *models.Asset, estimate *float64) (*models.MaintenanceSchedule, *models.MaintenanceTask) {
	t.Helper()
	schedule := &models.MaintenanceSchedule{
		Title:         "Replace filter",
		Frequency:     models.FrequencyQuarterly,
		StartDate:     date(2025, 1, 1),
		Priority:      models.PriorityHigh,
		EstimatedCost: estimate,
		IsActive:      true,
	}
	task, err := f.svc.CreateSchedule(context.Background(), owner, asset.ID.Hex(), schedule)
	require.NoError(t, err)
	return schedule, task
}

func TestCreateSchedule(t *testing.T) {
	f := newFixture(t, date(2025, 1, 1), nil)
	asset := f.asset(t)

	t.Run("first task one cadence after start", func(t *testing.T) {
		schedule, task := f.schedule(t, asset, nil)
		require.NotNil(t, task)
		assert.Equal(t, 1, schedule.Interval)
		assert.Equal(t, date(2025, 4, 1), task.DueDate)
		assert.Equal(t, models.TaskStatusPending, task.Status)
		assert.Equal(t, models.PriorityHigh, task.Priority)
		assert.Equal(t, owner.UserID, task.OwnerID)
	})

	t.Run("inactive schedule gets no task", func(t *testing.T) {
		schedule := &models.MaintenanceSchedule{Title: "Seasonal", Frequency: models.FrequencyAnnual, StartDate: date(2025, 1, 1)}
		task, err := f.svc.CreateSchedule(context.Background(), owner, asset.ID.Hex(), schedule)
		require.NoError(t, err)
		assert.Nil(t, task)
		assert.Equal(t, models.PriorityMedium, schedule.Priority)
	})

	t.Run("custom without interval is rejected", func(t *testing.T) {
		schedule := &models.MaintenanceSchedule{Title: "Custom", Frequency: models.FrequencyCustom, StartDate: date(2025, 1, 1), IsActive: true}
		_, err := f.svc.CreateSchedule(context.Background(), owner, asset.ID.Hex(), schedule)
		assert.ErrorIs(t, err, maintenance.ErrInvalidCadence)
	})

	t.Run("unknown frequency is rejected", func(t *testing.T) {
		schedule := &models.MaintenanceSchedule{Title: "Odd", Frequency: "HOURLY", StartDate: date(2025, 1, 1)}
		_, err := f.svc.CreateSchedule(context.Background(), owner, asset.ID.Hex(), schedule)
		assert.ErrorIs(t, err, maintenance.ErrInvalidFrequency)
	})

	t.Run("other user's asset", func(t *testing.T) {
		schedule := &models.MaintenanceSchedule{Title: "Sneaky", Frequency: models.FrequencyWeekly, StartDate: date(2025, 1, 1)}
		_, err := f.svc.CreateSchedule(context.Background(), stranger, asset.ID.Hex(), schedule)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestCreateScheduleFromTemplate(t *testing.T) {
	f := newFixture(t, date(2025, 1, 1), nil)
	asset := f.asset(t)

	schedule, task, err := f.svc.CreateScheduleFromTemplate(context.Background(), owner, asset.ID.Hex(), "hvac-filter-replacement", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "HVAC Filter Replacement", schedule.Title)
	assert.Equal(t, models.FrequencyQuarterly, schedule.Frequency)
	require.NotNil(t, schedule.EstimatedCost)
	assert.Equal(t, 45.0, *schedule.EstimatedCost)
	assert.Equal(t, date(2025, 4, 1), task.DueDate)

	_, _, err = f.svc.CreateScheduleFromTemplate(context.Background(), owner, asset.ID.Hex(), "roof-repair", time.Time{})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestCompleteTask(t *testing.T) {
	ctx := context.Background()

	t.Run("advances from the scheduled date", func(t *testing.T) {
		f := newFixture(t, date(2025, 1, 1), nil)
		_, task := f.schedule(t, f.asset(t), nil)

		f.now = date(2025, 4, 20) // completed late
		result, err := f.svc.CompleteTask(ctx, owner, task.ID.Hex(), CompleteTaskInput{Notes: "done"})
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusCompleted, result.Task.Status)
		require.NotNil(t, result.Task.CompletedAt)
		assert.Equal(t, date(2025, 4, 20), *result.Task.CompletedAt)
		assert.Equal(t, owner.Email, result.Task.CompletedBy)
		require.NotNil(t, result.NextTask)
		assert.Equal(t, date(2025, 6, 30), result.NextTask.DueDate)

		assert.Equal(t, 1, countType(f.store.Notifications(), models.NotificationMaintenanceCompleted))
	})

	t.Run("cost overrun raises a notification", func(t *testing.T) {
		f := newFixture(t, date(2025, 1, 1), nil)
		_, task := f.schedule(t, f.asset(t), cost(100))

		result, err := f.svc.CompleteTask(ctx, owner, task.ID.Hex(), CompleteTaskInput{ActualCost: cost(160)})
		require.NoError(t, err)
		require.NotNil(t, result.Task.CostVariance)
		assert.False(t, result.Task.CostVariance.WithinBudget)
		assert.InDelta(t, 60.0, result.Task.CostVariance.OveragePercent, 1e-9)
		assert.Equal(t, 1, countType(f.store.Notifications(), models.NotificationCostOverrun))
	})

	t.Run("within budget raises nothing", func(t *testing.T) {
		f := newFixture(t, date(2025, 1, 1), nil)
		_, task := f.schedule(t, f.asset(t), cost(100))

		result, err := f.svc.CompleteTask(ctx, owner, task.ID.Hex(), CompleteTaskInput{ActualCost: cost(140)})
		require.NoError(t, err)
		assert.True(t, result.Task.CostVariance.WithinBudget)
		assert.Equal(t, 0, countType(f.store.Notifications(), models.NotificationCostOverrun))
	})

	t.Run("second completion conflicts", func(t *testing.T) {
		f := newFixture(t, date(2025, 1, 1), nil)
		_, task := f.schedule(t, f.asset(t), nil)

		_, err := f.svc.CompleteTask(ctx, owner, task.ID.Hex(), CompleteTaskInput{})
		require.NoError(t, err)
		_, err = f.svc.CompleteTask(ctx, owner, task.ID.Hex(), CompleteTaskInput{})
		assert.ErrorIs(t, err, ErrTaskCompleted)
	})

	t.Run("other user", func(t *testing.T) {
		f := newFixture(t, date(2025, 1, 1), nil)
		_, task := f.schedule(t, f.asset(t), nil)

		_, err := f.svc.CompleteTask(ctx, stranger, task.ID.Hex(), CompleteTaskInput{})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("dispatches immediately", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
			return n.Type == models.NotificationMaintenanceCompleted
		})).Return(nil).Once()

		f := newFixture(t, date(2025, 1, 1), dispatcher)
		_, task := f.schedule(t, f.asset(t), nil)
		_, err := f.svc.CompleteTask(ctx, owner, task.ID.Hex(), CompleteTaskInput{})
		require.NoError(t, err)

		dispatcher.AssertExpectations(t)
		pending, err := f.store.FindUndispatched(ctx, time.Now(), 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestGetTask_DueState(t *testing.T) {
	f := newFixture(t, date(2025, 1, 1), nil)
	_, task := f.schedule(t, f.asset(t), nil)

	tests := []struct {
		now      time.Time
		expected models.DueState
		days     int
	}{
		{date(2025, 3, 1), models.DueStateOnTime, 0},
		{date(2025, 3, 31), models.DueStateDueSoon, 0},
		{date(2025, 4, 1), models.DueStateDueSoon, 0},
		{date(2025, 4, 2), models.DueStateOverdue, 1},
	}
	for _, tt := range tests {
		t.Run(tt.now.Format("2006-01-02"), func(t *testing.T) {
			f.now = tt.now
			view, err := f.svc.GetTask(context.Background(), owner, task.ID.Hex())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, view.DueState)
			assert.Equal(t, tt.days, view.DaysOverdue)
		})
	}
}

func TestActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2025, 1, 1), nil)
	schedule, task := f.schedule(t, f.asset(t), nil)

	_, err := f.svc.CompleteTask(ctx, owner, task.ID.Hex(), CompleteTaskInput{})
	require.NoError(t, err)

	deactivated, err := f.svc.DeactivateSchedule(ctx, owner, schedule.ID.Hex())
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	tasks, err := f.svc.ListTasks(ctx, owner, schedule.ID.Hex())
	require.NoError(t, err)
	require.Len(t, tasks, 1, "only the completed task remains")
	assert.Equal(t, models.TaskStatusCompleted, tasks[0].Status)

	f.now = date(2025, 8, 15)
	activated, err := f.svc.ActivateSchedule(ctx, owner, schedule.ID.Hex())
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	open, err := f.store.FindOpenTaskForSchedule(ctx, schedule.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, date(2025, 9, 28), open.DueDate, "first grid date after reactivation")

	// Activating again keeps the single open task.
	_, err = f.svc.ActivateSchedule(ctx, owner, schedule.ID.Hex())
	require.NoError(t, err)
	tasks, err = f.svc.ListTasks(ctx, owner, schedule.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestUpdateSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2025, 1, 1), nil)
	schedule, task := f.schedule(t, f.asset(t), nil)

	t.Run("title only keeps the open task", func(t *testing.T) {
		title := "Replace HVAC filter"
		updated, err := f.svc.UpdateSchedule(ctx, owner, schedule.ID.Hex(), SchedulePatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)

		open, err := f.store.FindOpenTaskForSchedule(ctx, schedule.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, task.ID, open.ID)
	})

	t.Run("frequency change reprojects", func(t *testing.T) {
		freq := models.FrequencyMonthly
		_, err := f.svc.UpdateSchedule(ctx, owner, schedule.ID.Hex(), SchedulePatch{Frequency: &freq})
		require.NoError(t, err)

		open, err := f.store.FindOpenTaskForSchedule(ctx, schedule.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, date(2025, 1, 31), open.DueDate)
		assert.Len(t, f.store.Tasks(), 1)
	})

	t.Run("priority change reaches the open task", func(t *testing.T) {
		critical := models.PriorityCritical
		_, err := f.svc.UpdateSchedule(ctx, owner, schedule.ID.Hex(), SchedulePatch{Priority: &critical})
		require.NoError(t, err)

		open, err := f.store.FindOpenTaskForSchedule(ctx, schedule.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.PriorityCritical, open.Priority)
	})

	t.Run("invalid interval for custom", func(t *testing.T) {
		freq := models.FrequencyCustom
		zero := 0
		_, err := f.svc.UpdateSchedule(ctx, owner, schedule.ID.Hex(), SchedulePatch{Frequency: &freq, Interval: &zero})
		assert.ErrorIs(t, err, maintenance.ErrInvalidCadence)
	})

	t.Run("deactivate through update", func(t *testing.T) {
		inactive := false
		updated, err := f.svc.UpdateSchedule(ctx, owner, schedule.ID.Hex(), SchedulePatch{IsActive: &inactive})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
		assert.Empty(t, f.store.Tasks())
	})
}

func TestUpdateSchedule_PriorityDrivesDueState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2025, 1, 1), nil)
	schedule, task := f.schedule(t, f.asset(t), nil)
	require.Equal(t, date(2025, 4, 1), task.DueDate)

	critical := models.PriorityCritical
	updated, err := f.svc.UpdateSchedule(ctx, owner, schedule.ID.Hex(), SchedulePatch{Priority: &critical})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityCritical, updated.Priority)

	// HIGH allows a day of grace; CRITICAL is overdue at the due instant.
	f.now = task.DueDate
	view, err := f.svc.GetTask(ctx, owner, task.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, task.ID, view.ID)
	assert.Equal(t, models.PriorityCritical, view.Priority)
	assert.Equal(t, models.DueStateOverdue, view.DueState)
}

func TestCompleteTask_CostThresholdFollowsSchedulePriority(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2025, 1, 1), nil)
	schedule, task := f.schedule(t, f.asset(t), cost(100))

	// HIGH tolerates 50% over the estimate, LOW 100%.
	low := models.PriorityLow
	_, err := f.svc.UpdateSchedule(ctx, owner, schedule.ID.Hex(), SchedulePatch{Priority: &low})
	require.NoError(t, err)

	result, err := f.svc.CompleteTask(ctx, owner, task.ID.Hex(), CompleteTaskInput{ActualCost: cost(160)})
	require.NoError(t, err)
	require.NotNil(t, result.Task.CostVariance)
	assert.True(t, result.Task.CostVariance.WithinBudget)
	assert.Equal(t, 0, countType(f.store.Notifications(), models.NotificationCostOverrun))
}

func TestDeleteProperty_Cascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2025, 1, 1), nil)
	asset := f.asset(t)
	schedule, task := f.schedule(t, asset, nil)
	record := &models.ServiceRecord{Title: "Filter swap", Description: "Swapped filter", ServiceDate: date(2025, 1, 2), TaskID: &task.ID}
	require.NoError(t, f.svc.CreateServiceRecord(ctx, owner, asset.ID.Hex(), record))

	assert.ErrorIs(t, f.svc.DeleteProperty(ctx, stranger, asset.PropertyID.Hex()), ErrForbidden)
	require.NoError(t, f.svc.DeleteProperty(ctx, owner, asset.PropertyID.Hex()))

	_, err := f.store.FindAssetByID(ctx, asset.ID.Hex())
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = f.store.FindScheduleByID(ctx, schedule.ID.Hex())
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = f.store.FindServiceRecordByID(ctx, record.ID.Hex())
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Empty(t, f.store.Tasks())

	properties, err := f.svc.ListProperties(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, properties)
}

func TestServiceRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2025, 1, 1), nil)
	asset := f.asset(t)
	other := f.asset(t)
	_, task := f.schedule(t, other, nil)

	record := &models.ServiceRecord{Title: "Inspection", Description: "Annual inspection", ServiceDate: date(2025, 1, 5), Cost: cost(180)}
	require.NoError(t, f.svc.CreateServiceRecord(ctx, owner, asset.ID.Hex(), record))
	assert.Equal(t, asset.ID, record.AssetID)
	assert.Equal(t, owner.UserID, record.OwnerID)

	mismatched := &models.ServiceRecord{Title: "Wrong", Description: "Wrong asset", ServiceDate: date(2025, 1, 5), TaskID: &task.ID}
	assert.ErrorIs(t, f.svc.CreateServiceRecord(ctx, owner, asset.ID.Hex(), mismatched), ErrTaskMismatch)

	records, err := f.svc.ListServiceRecords(ctx, owner, asset.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = f.svc.GetServiceRecord(ctx, stranger, record.ID.Hex())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestNotificationsAndActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, date(2025, 1, 1), nil)

	n := &models.Notification{UserID: owner.UserID, Type: models.NotificationMaintenanceDue, Title: "Due"}
	require.NoError(t, f.store.InsertNotification(ctx, n))

	list, err := f.svc.ListNotifications(ctx, owner, true, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, f.svc.MarkNotificationRead(ctx, stranger, n.ID.Hex()), db.ErrNotFound)
	require.NoError(t, f.svc.MarkNotificationRead(ctx, owner, n.ID.Hex()))

	list, err = f.svc.ListNotifications(ctx, owner, true, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	f.svc.RecordActivity(ctx, owner, "CREATE_SCHEDULE", "maintenance_schedules", map[string]interface{}{"id": primitive.NewObjectID().Hex()}, "10.0.0.1")
	entries, err := f.svc.ListActivity(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "CREATE_SCHEDULE", entries[0].Action)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)

	_, err = f.svc.ListActivity(ctx, nil, 10)
	assert.ErrorIs(t, err, ErrForbidden)
}

func countType(notifications []models.Notification, typ models.NotificationType) int {
	n := 0
	for _, x := range notifications {
		if x.Type == typ {
			n++
		}
	}
	return n
}
