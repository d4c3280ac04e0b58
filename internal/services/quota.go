package services

import (
	"context"
	"errors"

	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuotaService maintains the per-user storage ledger
type QuotaService struct {
	storageRepo repository.StorageRepository
	logger      *pkg.Logger
}

// NewQuotaService creates a new quota service
func NewQuotaService(storageRepo repository.StorageRepository, logger *pkg.Logger) *QuotaService {
	return &QuotaService{
		storageRepo: storageRepo,
		logger:      logger,
	}
}

// EnsureLedger returns the user's ledger, creating it with the default
// base limit on first touch.
func (s *QuotaService) EnsureLedger(ctx context.Context, userID primitive.ObjectID) (*models.UserStorage, error) {
	storage, err := s.storageRepo.GetByUserID(ctx, userID)
	if err == nil {
		return storage, nil
	}
	if !errors.Is(err, pkg.ErrStorageNotFound) {
		return nil, err
	}

	storage = &models.UserStorage{
		UserID:    userID,
		BaseLimit: models.DefaultBaseLimit,
	}
	if err := s.storageRepo.Create(ctx, storage); err != nil {
		return nil, err
	}

	// Create swallows duplicate-key races, so re-read for the winning row.
	return s.storageRepo.GetByUserID(ctx, userID)
}

// ValidateCapacity checks that the user can absorb size additional bytes.
// The limit is enforced here rather than as a database constraint, so a
// shrunk limit never blocks deletions on an already-over-quota account.
func (s *QuotaService) ValidateCapacity(ctx context.Context, userID primitive.ObjectID, size int64) error {
	storage, err := s.EnsureLedger(ctx, userID)
	if err != nil {
		return err
	}

	if storage.Used+size > storage.TotalLimit() {
		return pkg.ErrStorageQuotaExceeded.WithDetails(map[string]interface{}{
			"used":      storage.Used,
			"limit":     storage.TotalLimit(),
			"requested": size,
		})
	}

	return nil
}

// Increase records size bytes as consumed
func (s *QuotaService) Increase(ctx context.Context, userID primitive.ObjectID, size int64) error {
	if size <= 0 {
		return nil
	}
	return s.storageRepo.IncrementUsed(ctx, userID, size)
}

// Decrease releases size bytes. The ledger floors at zero.
func (s *QuotaService) Decrease(ctx context.Context, userID primitive.ObjectID, size int64) error {
	if size <= 0 {
		return nil
	}
	return s.storageRepo.IncrementUsed(ctx, userID, -size)
}

// AddBonus grants additional capacity, typically from the billing system
func (s *QuotaService) AddBonus(ctx context.Context, userID primitive.ObjectID, bytes int64) error {
	if bytes <= 0 {
		return pkg.ErrInvalidInput.WithDetails(map[string]interface{}{
			"reason": "bonus must be positive",
		})
	}
	if _, err := s.EnsureLedger(ctx, userID); err != nil {
		return err
	}
	return s.storageRepo.AddBonus(ctx, userID, bytes)
}

// ResetBonus revokes all bonus capacity, e.g. on subscription expiry.
// Used bytes are untouched; the account may end up over its limit, which
// only blocks further uploads.
func (s *QuotaService) ResetBonus(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.storageRepo.ResetBonus(ctx, userID); err != nil {
		if errors.Is(err, pkg.ErrStorageNotFound) {
			return nil
		}
		return err
	}
	return nil
}
