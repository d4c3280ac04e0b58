package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppSetting is a single key/value row of runtime configuration, unique on
// (category, key). Settings admins change at runtime live here; everything
// bootstrap-time lives in the YAML config file.
type AppSetting struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Category  SettingsCategory   `bson:"category" json:"category"`
	Key       string             `bson:"key" json:"key"`
	Value     interface{}        `bson:"value" json:"value"`
	UpdatedBy primitive.ObjectID `bson:"updated_by" json:"updatedBy"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

type SettingsCategory string

const (
	SettingsCategoryApp     SettingsCategory = "app"
	SettingsCategoryFiles   SettingsCategory = "files"
	SettingsCategoryStorage SettingsCategory = "storage"
)

// SettingKeyTrashRetentionDays is the app-wide trash retention fallback
// consulted when a user carries no override.
const SettingKeyTrashRetentionDays = "trash_retention_days"
