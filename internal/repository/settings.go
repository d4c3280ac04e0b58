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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type settingsRepository struct {
	*BaseRepository
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(mongodb *MongoDB) SettingsRepository {
	return &settingsRepository{
		BaseRepository: NewBaseRepository(mongodb, "app_settings"),
	}
}

// Get retrieves a single setting by category and key
func (r *settingsRepository) Get(ctx context.Context, category models.SettingsCategory, key string) (*models.AppSetting, error) {
	var setting models.AppSetting
	err := r.collection.FindOne(ctx, bson.M{"category": category, "key": key}).Decode(&setting)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrSettingNotFound
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &setting, nil
}

// Set creates or replaces a setting value
func (r *settingsRepository) Set(ctx context.Context, category models.SettingsCategory, key string, value interface{}, updatedBy primitive.ObjectID) error {
	now := time.Now()
	filter := bson.M{"category": category, "key": key}
	update := bson.M{
		"$set": bson.M{
			"value":      value,
			"updated_by": updatedBy,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"category":   category,
			"key":        key,
			"created_at": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}
