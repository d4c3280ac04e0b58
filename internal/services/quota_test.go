package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newQuotaService() (*QuotaService, *fakeStorageRepo) {
	repo := newFakeStorageRepo()
	return NewQuotaService(repo, pkg.NewLogger(pkg.LevelError)), repo
}

// wrappingStorageRepo decorates every error with context, the way a future
// repository change might; the services must keep matching sentinels
// through the wrapping.
type wrappingStorageRepo struct {
	*fakeStorageRepo
}

func (r *wrappingStorageRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.UserStorage, error) {
	ledger, err := r.fakeStorageRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return ledger, nil
}

func TestEnsureLedgerMatchesWrappedSentinel(t *testing.T) {
	repo := &wrappingStorageRepo{fakeStorageRepo: newFakeStorageRepo()}
	quota := NewQuotaService(repo, pkg.NewLogger(pkg.LevelError))
	ctx := context.Background()
	userID := primitive.NewObjectID()

	// The wrapped not-found still triggers lazy creation.
	ledger, err := quota.EnsureLedger(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBaseLimit, ledger.BaseLimit)
}

func TestEnsureLedgerCreatesOnFirstTouch(t *testing.T) {
	quota, _ := newQuotaService()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	ledger, err := quota.EnsureLedger(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBaseLimit, ledger.BaseLimit)
	assert.Zero(t, ledger.Used)
	assert.Zero(t, ledger.BonusLimit)

	// A second touch returns the same ledger.
	again, err := quota.EnsureLedger(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ID, again.ID)
}

func TestValidateCapacity(t *testing.T) {
	quota, _ := newQuotaService()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	// Exactly filling the ledger is allowed; one byte over is not.
	require.NoError(t, quota.ValidateCapacity(ctx, userID, models.DefaultBaseLimit))
	assert.ErrorIs(t, quota.ValidateCapacity(ctx, userID, models.DefaultBaseLimit+1), pkg.ErrStorageQuotaExceeded)

	require.NoError(t, quota.Increase(ctx, userID, models.DefaultBaseLimit-10))
	require.NoError(t, quota.ValidateCapacity(ctx, userID, 10))
	assert.ErrorIs(t, quota.ValidateCapacity(ctx, userID, 11), pkg.ErrStorageQuotaExceeded)
}

func TestValidateCapacityCountsBonus(t *testing.T) {
	quota, _ := newQuotaService()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	require.NoError(t, quota.AddBonus(ctx, userID, 100))
	require.NoError(t, quota.ValidateCapacity(ctx, userID, models.DefaultBaseLimit+100))
	assert.ErrorIs(t, quota.ValidateCapacity(ctx, userID, models.DefaultBaseLimit+101), pkg.ErrStorageQuotaExceeded)
}

func TestDecreaseFloorsAtZero(t *testing.T) {
	quota, repo := newQuotaService()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	_, err := quota.EnsureLedger(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, quota.Increase(ctx, userID, 100))

	// Releasing more than is recorded clamps instead of going negative.
	require.NoError(t, quota.Decrease(ctx, userID, 500))
	ledger, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, ledger.Used)
}

func TestIncreaseIgnoresNonPositive(t *testing.T) {
	quota, repo := newQuotaService()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	_, err := quota.EnsureLedger(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, quota.Increase(ctx, userID, 0))
	require.NoError(t, quota.Increase(ctx, userID, -5))
	require.NoError(t, quota.Decrease(ctx, userID, 0))

	ledger, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, ledger.Used)
}

func TestAddBonus(t *testing.T) {
	quota, repo := newQuotaService()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	assert.ErrorIs(t, quota.AddBonus(ctx, userID, 0), pkg.ErrInvalidInput)
	assert.ErrorIs(t, quota.AddBonus(ctx, userID, -1), pkg.ErrInvalidInput)

	// Bonus creates the ledger when needed and accumulates.
	require.NoError(t, quota.AddBonus(ctx, userID, 100))
	require.NoError(t, quota.AddBonus(ctx, userID, 50))
	ledger, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), ledger.BonusLimit)
	assert.Equal(t, models.DefaultBaseLimit+150, ledger.TotalLimit())
}

func TestResetBonus(t *testing.T) {
	quota, repo := newQuotaService()
	ctx := context.Background()
	userID := primitive.NewObjectID()

	// Resetting a user without a ledger is a no-op.
	require.NoError(t, quota.ResetBonus(ctx, userID))

	require.NoError(t, quota.AddBonus(ctx, userID, 100))
	require.NoError(t, quota.ResetBonus(ctx, userID))

	ledger, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, ledger.BonusLimit)
}
