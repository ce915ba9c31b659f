package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	PropertiesCollection     = "properties"
	AssetsCollection         = "assets"
	SchedulesCollection      = "maintenance_schedules"
	TasksCollection          = "maintenance_tasks"
	ServiceRecordsCollection = "service_records"
	NotificationsCollection  = "notifications"
	ActivityCollectionName   = "user_activity_logs"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// Store groups the Mongo-backed collections of one database.
type Store struct {
	Properties     *MongoPropertyCollection
	Assets         *MongoAssetCollection
	Schedules      *MongoScheduleCollection
	Tasks          *MongoTaskCollection
	ServiceRecords *MongoServiceRecordCollection
	Notifications  *MongoNotificationCollection
	Activity       *MongoActivityCollection

	database *mongo.Database
}

// NewStore binds the collections of database.
func NewStore(database *mongo.Database) *Store {
	return &Store{
		Properties:     &MongoPropertyCollection{Collection: database.Collection(PropertiesCollection)},
		Assets:         &MongoAssetCollection{Collection: database.Collection(AssetsCollection)},
		Schedules:      &MongoScheduleCollection{Collection: database.Collection(SchedulesCollection)},
		Tasks:          &MongoTaskCollection{Collection: database.Collection(TasksCollection)},
		ServiceRecords: &MongoServiceRecordCollection{Collection: database.Collection(ServiceRecordsCollection)},
		Notifications:  &MongoNotificationCollection{Collection: database.Collection(NotificationsCollection)},
		Activity:       &MongoActivityCollection{Collection: database.Collection(ActivityCollectionName)},
		database:       database,
	}
}

// EnsureIndexes creates the indexes the store relies on. The unique indexes
// are what make task creation and reminder firing idempotent across
// concurrent sweeps.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		PropertiesCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		AssetsCollection: {
			{Keys: bson.D{{Key: "property_id", Value: 1}}},
			{Keys: bson.D{{Key: "warranty_expiry", Value: 1}}},
		},
		SchedulesCollection: {
			{Keys: bson.D{{Key: "asset_id", Value: 1}}},
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "_id", Value: 1}}},
		},
		TasksCollection: {
			{
				Keys:    bson.D{{Key: "schedule_id", Value: 1}, {Key: "due_date", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("schedule_due_unique"),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "due_date", Value: 1}}},
		},
		ServiceRecordsCollection: {
			{Keys: bson.D{{Key: "asset_id", Value: 1}, {Key: "service_date", Value: -1}}},
		},
		NotificationsCollection: {
			{
				Keys:    bson.D{{Key: "dedupe_key", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true).SetName("dedupe_key_unique"),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "source_id", Value: 1}, {Key: "type", Value: 1}}},
			{Keys: bson.D{{Key: "dispatched_at", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		ActivityCollectionName: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for name, specs := range indexes {
		if _, err := s.database.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// pageFilter adds an _id cursor to filter for keyset pagination.
func pageFilter(filter bson.M, afterID primitive.ObjectID) bson.M {
	if !afterID.IsZero() {
		filter["_id"] = bson.M{"$gt": afterID}
	}
	return filter
}

func pageOptions(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, what string) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s %w", what, ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

// replaceOne replaces the document with id, reporting ErrNotFound when
// there is none.
func replaceOne(ctx context.Context, coll *mongo.Collection, oid primitive.ObjectID, doc interface{}, what string) error {
	result, err := coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.database.Client().Ping(ctx, nil)
}
