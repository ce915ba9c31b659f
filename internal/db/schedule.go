package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/propdocs-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoScheduleCollection implements ScheduleCollection for MongoDB.
type MongoScheduleCollection struct {
	Collection *mongo.Collection
}

// InsertSchedule inserts a maintenance schedule and sets its ID and timestamps.
func (c *MongoScheduleCollection) InsertSchedule(ctx context.Context, schedule *models.MaintenanceSchedule) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now().UTC()
	if schedule.ID.IsZero() {
		schedule.ID = primitive.NewObjectID()
	}
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, schedule)
	return err
}

// FindScheduleByID finds a maintenance schedule by its ID.
func (c *MongoScheduleCollection) FindScheduleByID(ctx context.Context, id string) (*models.MaintenanceSchedule, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.MaintenanceSchedule](ctx, c.Collection, bson.M{"_id": oid}, "schedule")
}

// FindSchedulesByAsset lists the schedules of an asset, active and inactive.
func (c *MongoScheduleCollection) FindSchedulesByAsset(ctx context.Context, assetID string) ([]models.MaintenanceSchedule, error) {
	oid, err := objectID(assetID)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return findAll[models.MaintenanceSchedule](ctx, c.Collection, bson.M{"asset_id": oid}, opts)
}

// FindActiveSchedules pages through active schedules.
func (c *MongoScheduleCollection) FindActiveSchedules(ctx context.Context, afterID primitive.ObjectID, limit int) ([]models.MaintenanceSchedule, error) {
	filter := pageFilter(bson.M{"is_active": true}, afterID)
	return findAll[models.MaintenanceSchedule](ctx, c.Collection, filter, pageOptions(limit))
}

// UpdateSchedule replaces a schedule by its ID.
func (c *MongoScheduleCollection) UpdateSchedule(ctx context.Context, id string, schedule models.MaintenanceSchedule) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	schedule.ID = oid
	schedule.UpdatedAt = time.Now().UTC()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": oid}, schedule)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("schedule %w", ErrNotFound)
	}
	return nil
}

// SetScheduleActive flips the soft-disable flag of a schedule.
func (c *MongoScheduleCollection) SetScheduleActive(ctx context.Context, id string, active bool) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("schedule %w", ErrNotFound)
	}
	return nil
}

// DeleteSchedule deletes a schedule by its ID. Tasks are not touched; callers
// delete them first.
func (c *MongoScheduleCollection) DeleteSchedule(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("schedule %w", ErrNotFound)
	}
	return nil
}
