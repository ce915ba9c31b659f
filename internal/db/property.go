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

// MongoPropertyCollection implements PropertyCollection for MongoDB.
type MongoPropertyCollection struct {
	Collection *mongo.Collection
}

// InsertProperty inserts a property and sets its ID and timestamps.
func (c *MongoPropertyCollection) InsertProperty(ctx context.Context, property *models.Property) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now().UTC()
	if property.ID.IsZero() {
		property.ID = primitive.NewObjectID()
	}
	property.CreatedAt = now
	property.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, property)
	return err
}

// FindPropertyByID finds a property by its ID.
func (c *MongoPropertyCollection) FindPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.Property](ctx, c.Collection, bson.M{"_id": oid}, "property")
}

// FindPropertiesByOwner lists the properties of a user, newest first.
func (c *MongoPropertyCollection) FindPropertiesByOwner(ctx context.Context, ownerID string) ([]models.Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findAll[models.Property](ctx, c.Collection, bson.M{"owner_id": ownerID}, opts)
}

// CountPropertiesByOwner counts the properties of a user.
func (c *MongoPropertyCollection) CountPropertiesByOwner(ctx context.Context, ownerID string) (int, error) {
	n, err := c.Collection.CountDocuments(ctx, bson.M{"owner_id": ownerID})
	return int(n), err
}

// UpdateProperty replaces a property by its ID, keeping its creation time.
func (c *MongoPropertyCollection) UpdateProperty(ctx context.Context, id string, property models.Property) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	property.ID = oid
	property.UpdatedAt = time.Now().UTC()
	return replaceOne(ctx, c.Collection, oid, property, "property")
}

// DeleteProperty deletes a property by its ID.
func (c *MongoPropertyCollection) DeleteProperty(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("property %w", ErrNotFound)
	}
	return nil
}
