package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/propdocs-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConnectMongo_BadURI(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := ConnectMongo(ctx, "mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestInsert_NilCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("property", func(t *testing.T) {
		err := (&MongoPropertyCollection{}).InsertProperty(ctx, &models.Property{})
		assert.Error(t, err)
	})
	t.Run("asset", func(t *testing.T) {
		err := (&MongoAssetCollection{}).InsertAsset(ctx, &models.Asset{})
		assert.Error(t, err)
	})
	t.Run("schedule", func(t *testing.T) {
		err := (&MongoScheduleCollection{}).InsertSchedule(ctx, &models.MaintenanceSchedule{})
		assert.Error(t, err)
	})
	t.Run("task", func(t *testing.T) {
		err := (&MongoTaskCollection{}).InsertTask(ctx, &models.MaintenanceTask{})
		assert.Error(t, err)
	})
	t.Run("service record", func(t *testing.T) {
		err := (&MongoServiceRecordCollection{}).InsertServiceRecord(ctx, &models.ServiceRecord{})
		assert.Error(t, err)
	})
	t.Run("notification", func(t *testing.T) {
		err := (&MongoNotificationCollection{}).InsertNotification(ctx, &models.Notification{})
		assert.Error(t, err)
	})
	t.Run("activity", func(t *testing.T) {
		err := (&MongoActivityCollection{}).InsertActivity(ctx, &models.ActivityLog{})
		assert.Error(t, err)
	})
}

func TestFindByID_InvalidID(t *testing.T) {
	ctx := context.Background()

	_, err := (&MongoPropertyCollection{}).FindPropertyByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = (&MongoTaskCollection{}).FindTaskByID(ctx, "zzz")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = (&MongoTaskCollection{}).MarkOverdue(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestPageFilter(t *testing.T) {
	f := pageFilter(map[string]interface{}{"is_active": true}, primitive.NilObjectID)
	_, hasID := f["_id"]
	assert.False(t, hasID)

	after := primitive.NewObjectID()
	f = pageFilter(map[string]interface{}{"is_active": true}, after)
	assert.Contains(t, f, "_id")
}

// integrationStore connects to the database named by MONGO_URI and MONGO_DB
// and skips the test when none is reachable.
func integrationStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "propdocs_test"
	}
	database := client.Database(dbName + "_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() { _ = database.Drop(context.Background()) })

	store := NewStore(database)
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestTaskLifecycle_Integration(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	scheduleID := primitive.NewObjectID()
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	task := &models.MaintenanceTask{
		ScheduleID: scheduleID,
		AssetID:    primitive.NewObjectID(),
		OwnerID:    "user-1",
		Title:      "Flush water heater",
		DueDate:    due,
		Priority:   models.PriorityMedium,
	}
	require.NoError(t, store.Tasks.InsertTask(ctx, task))
	assert.Equal(t, models.TaskStatusPending, task.Status)

	t.Run("duplicate due date is rejected", func(t *testing.T) {
		err := store.Tasks.InsertTask(ctx, &models.MaintenanceTask{ScheduleID: scheduleID, DueDate: due, Priority: models.PriorityMedium})
		assert.ErrorIs(t, err, ErrDuplicateTask)
	})

	t.Run("priority follows schedule while open", func(t *testing.T) {
		require.NoError(t, store.Tasks.SetOpenTaskPriority(ctx, scheduleID.Hex(), models.PriorityCritical))
		got, err := store.Tasks.FindTaskByID(ctx, task.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.PriorityCritical, got.Priority)
	})

	t.Run("mark overdue only once", func(t *testing.T) {
		ok, err := store.Tasks.MarkOverdue(ctx, task.ID.Hex())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Tasks.MarkOverdue(ctx, task.ID.Hex())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("complete only once", func(t *testing.T) {
		cost := 120.0
		completion := models.TaskCompletion{CompletedAt: due.Add(48 * time.Hour), CompletedBy: "user-1", ActualCost: &cost}
		ok, err := store.Tasks.CompleteTask(ctx, task.ID.Hex(), completion)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Tasks.CompleteTask(ctx, task.ID.Hex(), completion)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := store.Tasks.FindTaskByID(ctx, task.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusCompleted, got.Status)
		require.NotNil(t, got.ActualCost)
		assert.Equal(t, 120.0, *got.ActualCost)
	})

	t.Run("filter by owner and window", func(t *testing.T) {
		from := due.Add(-24 * time.Hour)
		to := due.Add(24 * time.Hour)
		tasks, err := store.Tasks.FindTasks(ctx, TaskFilter{OwnerID: "user-1", DueFrom: &from, DueTo: &to})
		require.NoError(t, err)
		require.Len(t, tasks, 1)

		tasks, err = store.Tasks.FindTasks(ctx, TaskFilter{OwnerID: "user-1", Statuses: []models.TaskStatus{models.TaskStatusPending}})
		require.NoError(t, err)
		assert.Empty(t, tasks)

		tasks, err = store.Tasks.FindTasks(ctx, TaskFilter{OwnerID: "user-2"})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("open task lookup ignores completed", func(t *testing.T) {
		_, err := store.Tasks.FindOpenTaskForSchedule(ctx, scheduleID.Hex())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestNotificationDedupe_Integration(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	taskID := primitive.NewObjectID()
	offset := 7
	newReminder := func() *models.Notification {
		return &models.Notification{
			UserID:         "user-1",
			Type:           models.NotificationMaintenanceDue,
			Title:          "Maintenance due",
			DedupeKey:      models.TaskReminderKey(taskID, offset),
			SourceID:       taskID.Hex(),
			ReminderOffset: &offset,
		}
	}

	first := newReminder()
	require.NoError(t, store.Notifications.InsertNotification(ctx, first))

	err := store.Notifications.InsertNotification(ctx, newReminder())
	assert.True(t, errors.Is(err, ErrDuplicateNotification))

	offsets, err := store.Notifications.FindFiredOffsets(ctx, taskID.Hex(), models.NotificationMaintenanceDue)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, offsets)

	now := time.Now().UTC()
	pending, err := store.Notifications.FindUndispatched(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	ok, err := store.Notifications.ClaimDispatch(ctx, first.ID, now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Notifications.ClaimDispatch(ctx, first.ID, now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "a live claim blocks a second worker")

	pending, err = store.Notifications.FindUndispatched(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, store.Notifications.ReleaseDispatch(ctx, first.ID))
	ok, err = store.Notifications.ClaimDispatch(ctx, first.ID, now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Notifications.MarkDispatched(ctx, first.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Notifications.MarkDispatched(ctx, first.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Notifications.ClaimDispatch(ctx, first.ID, now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "dispatched notifications cannot be claimed")

	pending, err = store.Notifications.FindUndispatched(ctx, now.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
