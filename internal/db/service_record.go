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

// MongoServiceRecordCollection implements ServiceRecordCollection for MongoDB.
type MongoServiceRecordCollection struct {
	Collection *mongo.Collection
}

// InsertServiceRecord inserts a service record.
func (c *MongoServiceRecordCollection) InsertServiceRecord(ctx context.Context, record *models.ServiceRecord) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	record.CreatedAt = time.Now().UTC()
	_, err := c.Collection.InsertOne(ctx, record)
	return err
}

// FindServiceRecordByID finds a service record by its ID.
func (c *MongoServiceRecordCollection) FindServiceRecordByID(ctx context.Context, id string) (*models.ServiceRecord, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.ServiceRecord](ctx, c.Collection, bson.M{"_id": oid}, "service record")
}

// FindServiceRecordsByAsset lists the service history of an asset, newest first.
func (c *MongoServiceRecordCollection) FindServiceRecordsByAsset(ctx context.Context, assetID string) ([]models.ServiceRecord, error) {
	oid, err := objectID(assetID)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "service_date", Value: -1}})
	return findAll[models.ServiceRecord](ctx, c.Collection, bson.M{"asset_id": oid}, opts)
}

// DeleteServiceRecordsByAsset removes the service history of a deleted asset.
func (c *MongoServiceRecordCollection) DeleteServiceRecordsByAsset(ctx context.Context, assetID string) error {
	oid, err := objectID(assetID)
	if err != nil {
		return err
	}
	_, err = c.Collection.DeleteMany(ctx, bson.M{"asset_id": oid})
	return err
}
