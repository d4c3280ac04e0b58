package services

import (
	"context"
	"errors"
	"testing"

	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type retentionFixture struct {
	retention *RetentionService
	users     *fakeUserRepo
	settings  *fakeSettingsRepo
}

func newRetentionFixture(t *testing.T) *retentionFixture {
	t.Helper()
	users := newFakeUserRepo()
	settings := newFakeSettingsRepo()
	return &retentionFixture{
		retention: NewRetentionService(users, settings, pkg.NewLogger(pkg.LevelError)),
		users:     users,
		settings:  settings,
	}
}

func (f *retentionFixture) addUser(t *testing.T, retentionDays int) primitive.ObjectID {
	t.Helper()
	user := &models.User{
		Email:              primitive.NewObjectID().Hex() + "@example.com",
		Role:               models.RoleUser,
		Status:             models.StatusActive,
		TrashRetentionDays: retentionDays,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user.ID
}

func TestRetentionDaysDefault(t *testing.T) {
	f := newRetentionFixture(t)
	userID := f.addUser(t, 0)

	assert.Equal(t, DefaultTrashRetentionDays, f.retention.RetentionDays(context.Background(), userID))
}

func TestRetentionDaysUserOverrideWins(t *testing.T) {
	f := newRetentionFixture(t)
	ctx := context.Background()
	userID := f.addUser(t, 7)

	// Even with a global setting present, the user's own window wins.
	require.NoError(t, f.settings.Set(ctx, models.SettingsCategoryFiles, models.SettingKeyTrashRetentionDays, 90, primitive.NewObjectID()))

	assert.Equal(t, 7, f.retention.RetentionDays(ctx, userID))
}

func TestRetentionDaysGlobalSetting(t *testing.T) {
	f := newRetentionFixture(t)
	ctx := context.Background()
	userID := f.addUser(t, 0)

	require.NoError(t, f.settings.Set(ctx, models.SettingsCategoryFiles, models.SettingKeyTrashRetentionDays, 90, primitive.NewObjectID()))

	assert.Equal(t, 90, f.retention.RetentionDays(ctx, userID))
}

func TestRetentionDaysCoercesSettingValue(t *testing.T) {
	f := newRetentionFixture(t)
	ctx := context.Background()

	for _, value := range []interface{}{int32(45), int64(45), float64(45), "45"} {
		userID := f.addUser(t, 0)
		require.NoError(t, f.settings.Set(ctx, models.SettingsCategoryFiles, models.SettingKeyTrashRetentionDays, value, primitive.NewObjectID()))
		assert.Equal(t, 45, f.retention.RetentionDays(ctx, userID), "value %T(%v)", value, value)
	}
}

func TestRetentionDaysInvalidSettingFallsBack(t *testing.T) {
	f := newRetentionFixture(t)
	ctx := context.Background()

	for _, value := range []interface{}{"soon", -3, true} {
		userID := f.addUser(t, 0)
		require.NoError(t, f.settings.Set(ctx, models.SettingsCategoryFiles, models.SettingKeyTrashRetentionDays, value, primitive.NewObjectID()))
		assert.Equal(t, DefaultTrashRetentionDays, f.retention.RetentionDays(ctx, userID), "value %T(%v)", value, value)
	}
}

func TestRetentionDaysSettingLookupErrorFallsBack(t *testing.T) {
	f := newRetentionFixture(t)
	userID := f.addUser(t, 0)

	f.settings.failGet = errors.New("settings store down")

	// Resolution never fails, it degrades to the default.
	assert.Equal(t, DefaultTrashRetentionDays, f.retention.RetentionDays(context.Background(), userID))
}

func TestRetentionDaysUnknownUserFallsBack(t *testing.T) {
	f := newRetentionFixture(t)

	assert.Equal(t, DefaultTrashRetentionDays, f.retention.RetentionDays(context.Background(), primitive.NewObjectID()))
}

func TestRetentionDaysCaching(t *testing.T) {
	f := newRetentionFixture(t)
	ctx := context.Background()
	userID := f.addUser(t, 0)

	assert.Equal(t, DefaultTrashRetentionDays, f.retention.RetentionDays(ctx, userID))

	// A setting change is invisible until the cache entry is dropped.
	require.NoError(t, f.settings.Set(ctx, models.SettingsCategoryFiles, models.SettingKeyTrashRetentionDays, 60, primitive.NewObjectID()))
	assert.Equal(t, DefaultTrashRetentionDays, f.retention.RetentionDays(ctx, userID))

	f.retention.Invalidate(userID)
	assert.Equal(t, 60, f.retention.RetentionDays(ctx, userID))
}
