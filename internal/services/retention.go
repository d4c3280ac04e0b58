package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/repository"

	gocache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTrashRetentionDays is the fallback retention window when neither
// the user nor the application settings define one.
const DefaultTrashRetentionDays = 30

// RetentionService resolves how long trashed nodes are held before they
// become eligible for permanent deletion.
type RetentionService struct {
	userRepo     repository.UserRepository
	settingsRepo repository.SettingsRepository
	cache        *gocache.Cache
	logger       *pkg.Logger
}

// NewRetentionService creates a new retention service
func NewRetentionService(userRepo repository.UserRepository, settingsRepo repository.SettingsRepository, logger *pkg.Logger) *RetentionService {
	return &RetentionService{
		userRepo:     userRepo,
		settingsRepo: settingsRepo,
		cache:        gocache.New(5*time.Minute, 10*time.Minute),
		logger:       logger,
	}
}

// RetentionDays resolves the retention window for a user: the user's own
// override wins, then the application-wide setting, then the built-in
// default. Resolution never fails; lookup errors degrade to the next tier.
func (s *RetentionService) RetentionDays(ctx context.Context, userID primitive.ObjectID) int {
	cacheKey := "retention:" + userID.Hex()
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.(int)
	}

	days := s.resolve(ctx, userID)
	s.cache.Set(cacheKey, days, gocache.DefaultExpiration)
	return days
}

// ScheduledDeletionAt computes the purge deadline for a trash operation
// starting now.
func (s *RetentionService) ScheduledDeletionAt(ctx context.Context, userID primitive.ObjectID) time.Time {
	days := s.RetentionDays(ctx, userID)
	return time.Now().AddDate(0, 0, days)
}

// Invalidate drops the cached value for a user, for when their override or
// the global setting changes.
func (s *RetentionService) Invalidate(userID primitive.ObjectID) {
	s.cache.Delete("retention:" + userID.Hex())
}

func (s *RetentionService) resolve(ctx context.Context, userID primitive.ObjectID) int {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load user for retention lookup", map[string]interface{}{
			"user_id": userID.Hex(),
			"error":   err.Error(),
		})
	} else if user.TrashRetentionDays > 0 {
		return user.TrashRetentionDays
	}

	setting, err := s.settingsRepo.Get(ctx, models.SettingsCategoryFiles, models.SettingKeyTrashRetentionDays)
	if err != nil {
		if !errors.Is(err, pkg.ErrSettingNotFound) {
			s.logger.Warn("failed to load retention setting", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return DefaultTrashRetentionDays
	}

	days, ok := settingToDays(setting.Value)
	if !ok || days <= 0 {
		s.logger.Warn("retention setting has invalid value, using default", map[string]interface{}{
			"value": fmt.Sprintf("%v", setting.Value),
		})
		return DefaultTrashRetentionDays
	}

	return days
}

// settingToDays coerces the loosely-typed setting value. BSON round-trips
// integers as int32/int64 and JSON-sourced values arrive as float64.
func settingToDays(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		if n := pkg.Convert.StringToInt(v, 0); n > 0 {
			return n, true
		}
	}
	return 0, false
}
