package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type storageRepository struct {
	*BaseRepository
}

// NewStorageRepository creates a new storage repository
func NewStorageRepository(mongodb *MongoDB) StorageRepository {
	return &storageRepository{
		BaseRepository: NewBaseRepository(mongodb, "user_storage"),
	}
}

// Create inserts a quota ledger record
func (r *storageRepository) Create(ctx context.Context, storage *models.UserStorage) error {
	storage.ID = primitive.NewObjectID()
	storage.CreatedAt = time.Now()
	storage.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, storage)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Ledger already exists; lazy creation races are benign.
			return nil
		}
		return fmt.Errorf("failed to create storage record: %w", err)
	}
	return nil
}

// GetByUserID retrieves the ledger for a user
func (r *storageRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.UserStorage, error) {
	var storage models.UserStorage
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&storage)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrStorageNotFound
		}
		return nil, fmt.Errorf("failed to get storage record: %w", err)
	}
	return &storage, nil
}

// IncrementUsed adds delta to used, flooring the result at zero. The floor
// keeps bookkeeping drift from driving the counter negative.
func (r *storageRepository) IncrementUsed(ctx context.Context, userID primitive.ObjectID, delta int64) error {
	pipeline := bson.A{
		bson.M{"$set": bson.M{
			"used":       bson.M{"$max": bson.A{int64(0), bson.M{"$add": bson.A{"$used", delta}}}},
			"updated_at": time.Now(),
		}},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, pipeline)
	if err != nil {
		return fmt.Errorf("failed to update used bytes: %w", err)
	}
	if result.MatchedCount == 0 {
		return pkg.ErrStorageNotFound
	}

	return nil
}

// AddBonus adds bonus capacity; the billing collaborator's hook
func (r *storageRepository) AddBonus(ctx context.Context, userID primitive.ObjectID, bytes int64) error {
	update := bson.M{
		"$inc": bson.M{"bonus_limit": bytes},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to add bonus: %w", err)
	}
	if result.MatchedCount == 0 {
		return pkg.ErrStorageNotFound
	}

	return nil
}

// ResetBonus clears bonus capacity
func (r *storageRepository) ResetBonus(ctx context.Context, userID primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{"bonus_limit": int64(0), "updated_at": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to reset bonus: %w", err)
	}
	if result.MatchedCount == 0 {
		return pkg.ErrStorageNotFound
	}

	return nil
}

// Delete removes the ledger when its user is deleted
func (r *storageRepository) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete storage record: %w", err)
	}
	return nil
}
