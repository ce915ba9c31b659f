package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/propdocs-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var openStatuses = bson.A{models.TaskStatusPending, models.TaskStatusOverdue}

// MongoTaskCollection implements TaskCollection for MongoDB.
type MongoTaskCollection struct {
	Collection *mongo.Collection
}

// InsertTask inserts a maintenance task and sets its ID and timestamps.
func (c *MongoTaskCollection) InsertTask(ctx context.Context, task *models.MaintenanceTask) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now().UTC()
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	if _, err := c.Collection.InsertOne(ctx, task); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateTask
		}
		return err
	}
	return nil
}

// FindTaskByID finds a maintenance task by its ID.
func (c *MongoTaskCollection) FindTaskByID(ctx context.Context, id string) (*models.MaintenanceTask, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.MaintenanceTask](ctx, c.Collection, bson.M{"_id": oid}, "task")
}

// FindTasksBySchedule lists the tasks of a schedule in due date order.
func (c *MongoTaskCollection) FindTasksBySchedule(ctx context.Context, scheduleID string) ([]models.MaintenanceTask, error) {
	oid, err := objectID(scheduleID)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}})
	return findAll[models.MaintenanceTask](ctx, c.Collection, bson.M{"schedule_id": oid}, opts)
}

// FindOpenTaskForSchedule returns the earliest open task of a schedule.
func (c *MongoTaskCollection) FindOpenTaskForSchedule(ctx context.Context, scheduleID string) (*models.MaintenanceTask, error) {
	oid, err := objectID(scheduleID)
	if err != nil {
		return nil, err
	}
	var task models.MaintenanceTask
	err = c.Collection.FindOne(ctx,
		bson.M{"schedule_id": oid, "status": bson.M{"$in": openStatuses}},
		options.FindOne().SetSort(bson.D{{Key: "due_date", Value: 1}}),
	).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("open task %w", ErrNotFound)
		}
		return nil, err
	}
	return &task, nil
}

// FindOpenTasks pages through PENDING and OVERDUE tasks.
func (c *MongoTaskCollection) FindOpenTasks(ctx context.Context, afterID primitive.ObjectID, limit int) ([]models.MaintenanceTask, error) {
	filter := pageFilter(bson.M{"status": bson.M{"$in": openStatuses}}, afterID)
	return findAll[models.MaintenanceTask](ctx, c.Collection, filter, pageOptions(limit))
}

// FindTasks lists an owner's tasks matching filter in due date order.
func (c *MongoTaskCollection) FindTasks(ctx context.Context, filter TaskFilter) ([]models.MaintenanceTask, error) {
	query := bson.M{"owner_id": filter.OwnerID}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}
	if filter.Priority != "" {
		query["priority"] = filter.Priority
	}
	due := bson.M{}
	if filter.DueFrom != nil {
		due["$gte"] = *filter.DueFrom
	}
	if filter.DueTo != nil {
		due["$lt"] = *filter.DueTo
	}
	if len(due) > 0 {
		query["due_date"] = due
	}
	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return findAll[models.MaintenanceTask](ctx, c.Collection, query, opts)
}

// SetOpenTaskPriority copies a schedule's priority onto its open tasks.
func (c *MongoTaskCollection) SetOpenTaskPriority(ctx context.Context, scheduleID string, priority models.Priority) error {
	oid, err := objectID(scheduleID)
	if err != nil {
		return err
	}
	_, err = c.Collection.UpdateMany(ctx,
		bson.M{"schedule_id": oid, "status": bson.M{"$in": openStatuses}},
		bson.M{"$set": bson.M{"priority": priority, "updated_at": time.Now().UTC()}},
	)
	return err
}

// MarkOverdue moves a PENDING task to OVERDUE with a conditional update.
func (c *MongoTaskCollection) MarkOverdue(ctx context.Context, id string) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": oid, "status": models.TaskStatusPending},
		bson.M{"$set": bson.M{"status": models.TaskStatusOverdue, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

// CompleteTask moves an open task to COMPLETED with a conditional update.
func (c *MongoTaskCollection) CompleteTask(ctx context.Context, id string, completion models.TaskCompletion) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}

	set := bson.M{
		"status":       models.TaskStatusCompleted,
		"completed_at": completion.CompletedAt,
		"updated_at":   time.Now().UTC(),
	}
	if completion.CompletedBy != "" {
		set["completed_by"] = completion.CompletedBy
	}
	if completion.Notes != "" {
		set["notes"] = completion.Notes
	}
	if completion.ActualCost != nil {
		set["actual_cost"] = *completion.ActualCost
	}
	if completion.ActualTime != nil {
		set["actual_time"] = *completion.ActualTime
	}
	if completion.CostVariance != nil {
		set["cost_variance"] = completion.CostVariance
	}

	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": oid, "status": bson.M{"$in": openStatuses}},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

// DeleteOpenTasksBySchedule removes the PENDING and OVERDUE tasks of a
// schedule, keeping completed history.
func (c *MongoTaskCollection) DeleteOpenTasksBySchedule(ctx context.Context, scheduleID string) error {
	oid, err := objectID(scheduleID)
	if err != nil {
		return err
	}
	_, err = c.Collection.DeleteMany(ctx, bson.M{"schedule_id": oid, "status": bson.M{"$in": openStatuses}})
	return err
}

// DeleteTasksBySchedule removes every task of a schedule.
func (c *MongoTaskCollection) DeleteTasksBySchedule(ctx context.Context, scheduleID string) error {
	oid, err := objectID(scheduleID)
	if err != nil {
		return err
	}
	_, err = c.Collection.DeleteMany(ctx, bson.M{"schedule_id": oid})
	return err
}
