package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/skybox-io/skybox/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB client wrapper
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	dbName   string
}

// Connect establishes connection to MongoDB
func Connect(uri, dbName string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if dbName == "" {
		dbName = "skybox"
	}

	mongoDB := &MongoDB{
		client:   client,
		database: client.Database(dbName),
		dbName:   dbName,
	}

	if err := mongoDB.createIndexes(); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return mongoDB, nil
}

// Disconnect closes the MongoDB connection
func (m *MongoDB) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Database returns the database instance
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// Collection returns a collection instance
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// createIndexes creates all necessary indexes
func (m *MongoDB) createIndexes() error {
	ctx := context.Background()

	// Node indexes. The partial unique index over live siblings is the
	// race detector for concurrent same-name creates: exactly one insert
	// wins, the loser surfaces as a duplicate key error.
	nodeIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "parent_id", Value: 1}, {Key: "node_type", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(
				bson.M{"is_deleted": false},
			),
		},
		{Keys: bson.M{"parent_id": 1}},
		{Keys: bson.M{"owner_id": 1}},
		{Keys: bson.D{{Key: "is_deleted", Value: 1}, {Key: "scheduled_deletion_at", Value: 1}}},
		{Keys: bson.M{"created_at": -1}},
	}
	if _, err := m.Collection("nodes").Indexes().CreateMany(ctx, nodeIndexes); err != nil {
		return fmt.Errorf("failed to create node indexes: %w", err)
	}

	closureIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "ancestor_id", Value: 1}, {Key: "descendant_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"descendant_id": 1}},
	}
	if _, err := m.Collection("node_closure").Indexes().CreateMany(ctx, closureIndexes); err != nil {
		return fmt.Errorf("failed to create closure indexes: %w", err)
	}

	permissionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "node_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"user_id": 1}},
		{Keys: bson.M{"inherited_from": 1}},
	}
	if _, err := m.Collection("permissions").Indexes().CreateMany(ctx, permissionIndexes); err != nil {
		return fmt.Errorf("failed to create permission indexes: %w", err)
	}

	storageIndexes := []mongo.IndexModel{
		{Keys: bson.M{"user_id": 1}, Options: options.Index().SetUnique(true)},
	}
	if _, err := m.Collection("user_storage").Indexes().CreateMany(ctx, storageIndexes); err != nil {
		return fmt.Errorf("failed to create storage indexes: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{Keys: bson.M{"email": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"username": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"role": 1}},
	}
	if _, err := m.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	settingsIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := m.Collection("app_settings").Indexes().CreateMany(ctx, settingsIndexes); err != nil {
		return fmt.Errorf("failed to create settings indexes: %w", err)
	}

	return nil
}

// BaseRepository provides common repository functionality
type BaseRepository struct {
	collection *mongo.Collection
	mongodb    *MongoDB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(mongodb *MongoDB, collectionName string) *BaseRepository {
	return &BaseRepository{
		collection: mongodb.Collection(collectionName),
		mongodb:    mongodb,
	}
}

// Update updates a document matching filter with $set semantics
func (r *BaseRepository) Update(ctx context.Context, filter bson.M, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	update := bson.M{"$set": updates}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	if result.MatchedCount == 0 {
		return pkg.ErrNodeNotFound
	}

	return nil
}

// Delete removes a document matching filter
func (r *BaseRepository) Delete(ctx context.Context, filter bson.M) error {
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if result.DeletedCount == 0 {
		return pkg.ErrNodeNotFound
	}

	return nil
}

// List runs a paginated find into results and returns the total count
func (r *BaseRepository) List(ctx context.Context, filter bson.M, params *pkg.PaginationParams, results interface{}) (int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	opts := options.Find().
		SetSkip(int64(params.GetOffset())).
		SetLimit(int64(params.Limit)).
		SetSort(bson.M{params.Sort: params.GetSortDirection()})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to find documents: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, results); err != nil {
		return 0, fmt.Errorf("failed to decode documents: %w", err)
	}

	return total, nil
}

// objectIDsOf is a small helper for $in filters.
func objectIDsOf(ids []primitive.ObjectID) bson.M {
	return bson.M{"$in": ids}
}
