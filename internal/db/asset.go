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

// MongoAssetCollection implements AssetCollection for MongoDB.
type MongoAssetCollection struct {
	Collection *mongo.Collection
}

// InsertAsset inserts an asset and sets its ID and timestamps.
func (c *MongoAssetCollection) InsertAsset(ctx context.Context, asset *models.Asset) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now().UTC()
	if asset.ID.IsZero() {
		asset.ID = primitive.NewObjectID()
	}
	asset.CreatedAt = now
	asset.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, asset)
	return err
}

// FindAssetByID finds an asset by its ID.
func (c *MongoAssetCollection) FindAssetByID(ctx context.Context, id string) (*models.Asset, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.Asset](ctx, c.Collection, bson.M{"_id": oid}, "asset")
}

// FindAssetsByProperty lists the assets of a property.
func (c *MongoAssetCollection) FindAssetsByProperty(ctx context.Context, propertyID string) ([]models.Asset, error) {
	oid, err := objectID(propertyID)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.Asset](ctx, c.Collection, bson.M{"property_id": oid}, opts)
}

// CountAssetsByProperty counts the assets of a property.
func (c *MongoAssetCollection) CountAssetsByProperty(ctx context.Context, propertyID string) (int, error) {
	oid, err := objectID(propertyID)
	if err != nil {
		return 0, err
	}
	n, err := c.Collection.CountDocuments(ctx, bson.M{"property_id": oid})
	return int(n), err
}

// UpdateAsset replaces an asset by its ID.
func (c *MongoAssetCollection) UpdateAsset(ctx context.Context, id string, asset models.Asset) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	asset.ID = oid
	asset.UpdatedAt = time.Now().UTC()
	return replaceOne(ctx, c.Collection, oid, asset, "asset")
}

// FindAssetsWithWarrantyBetween pages through assets whose warranty expires in [from, to).
func (c *MongoAssetCollection) FindAssetsWithWarrantyBetween(ctx context.Context, from, to time.Time, afterID primitive.ObjectID, limit int) ([]models.Asset, error) {
	filter := pageFilter(bson.M{
		"warranty_expiry": bson.M{"$gte": from, "$lt": to},
	}, afterID)
	return findAll[models.Asset](ctx, c.Collection, filter, pageOptions(limit))
}

// DeleteAsset deletes an asset by its ID.
func (c *MongoAssetCollection) DeleteAsset(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("asset %w", ErrNotFound)
	}
	return nil
}
