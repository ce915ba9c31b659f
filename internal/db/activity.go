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

// MongoActivityCollection implements ActivityCollection for MongoDB.
type MongoActivityCollection struct {
	Collection *mongo.Collection
}

// InsertActivity appends an activity log entry.
func (c *MongoActivityCollection) InsertActivity(ctx context.Context, entry *models.ActivityLog) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := c.Collection.InsertOne(ctx, entry)
	return err
}

// FindActivityByUser lists a user's recent activity, newest first.
func (c *MongoActivityCollection) FindActivityByUser(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[models.ActivityLog](ctx, c.Collection, bson.M{"user_id": userID}, opts)
}
