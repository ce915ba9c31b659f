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

// MongoNotificationCollection implements NotificationCollection for MongoDB.
type MongoNotificationCollection struct {
	Collection *mongo.Collection
}

// InsertNotification inserts a notification. The unique dedupe_key index
// turns a second insert for the same reminder into ErrDuplicateNotification.
func (c *MongoNotificationCollection) InsertNotification(ctx context.Context, notification *models.Notification) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	notification.CreatedAt = time.Now().UTC()
	if _, err := c.Collection.InsertOne(ctx, notification); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateNotification, notification.DedupeKey)
		}
		return err
	}
	return nil
}

// FindNotificationsByUser lists a user's notifications, newest first.
func (c *MongoNotificationCollection) FindNotificationsByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	filter := bson.M{"user_id": userID}
	if unreadOnly {
		filter["is_read"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[models.Notification](ctx, c.Collection, filter, opts)
}

// MarkNotificationRead marks one of the user's notifications as read.
func (c *MongoNotificationCollection) MarkNotificationRead(ctx context.Context, id, userID string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("notification %w", ErrNotFound)
	}
	return nil
}

// FindFiredOffsets returns the reminder offsets already recorded for a source.
func (c *MongoNotificationCollection) FindFiredOffsets(ctx context.Context, sourceID string, notificationType models.NotificationType) ([]int, error) {
	opts := options.Find().SetProjection(bson.M{"reminder_offset": 1})
	fired, err := findAll[models.Notification](ctx, c.Collection, bson.M{
		"source_id":       sourceID,
		"type":            notificationType,
		"reminder_offset": bson.M{"$exists": true},
	}, opts)
	if err != nil {
		return nil, err
	}
	offsets := make([]int, 0, len(fired))
	for _, n := range fired {
		if n.ReminderOffset != nil {
			offsets = append(offsets, *n.ReminderOffset)
		}
	}
	return offsets, nil
}

// unclaimed matches notifications with no live dispatch claim at now.
func unclaimed(now time.Time) bson.A {
	return bson.A{
		bson.M{"claimed_until": nil},
		bson.M{"claimed_until": bson.M{"$lte": now}},
	}
}

// FindUndispatched returns notifications without a dispatch time or a live
// claim, oldest first.
func (c *MongoNotificationCollection) FindUndispatched(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[models.Notification](ctx, c.Collection, bson.M{
		"dispatched_at": nil,
		"$or":           unclaimed(now),
	}, opts)
}

// ClaimDispatch sets claimed_until on an undispatched notification whose
// previous claim, if any, has lapsed.
func (c *MongoNotificationCollection) ClaimDispatch(ctx context.Context, id primitive.ObjectID, now, until time.Time) (bool, error) {
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "dispatched_at": nil, "$or": unclaimed(now)},
		bson.M{"$set": bson.M{"claimed_until": until}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

// ReleaseDispatch clears the claim of an undispatched notification.
func (c *MongoNotificationCollection) ReleaseDispatch(ctx context.Context, id primitive.ObjectID) error {
	_, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "dispatched_at": nil},
		bson.M{"$unset": bson.M{"claimed_until": ""}},
	)
	return err
}

// MarkDispatched sets dispatched_at if it is not set yet.
func (c *MongoNotificationCollection) MarkDispatched(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	result, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "dispatched_at": nil},
		bson.M{
			"$set":   bson.M{"dispatched_at": at},
			"$unset": bson.M{"claimed_until": ""},
		},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}
