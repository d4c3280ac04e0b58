package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserStorage is the per-user quota ledger: byte limits and usage. Created
// lazily alongside the root folder, mutated additively on file creation and
// permanent deletion. Used never exceeds BaseLimit+BonusLimit at validation
// time and never drops below zero.
type UserStorage struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"userId"`
	BaseLimit  int64              `bson:"base_limit" json:"baseLimit"`
	BonusLimit int64              `bson:"bonus_limit" json:"bonusLimit"`
	Used       int64              `bson:"used" json:"used"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updatedAt"`
}

// TotalLimit is the capacity the ledger validates against.
func (s *UserStorage) TotalLimit() int64 {
	return s.BaseLimit + s.BonusLimit
}

// Available returns the bytes still usable before the quota trips.
func (s *UserStorage) Available() int64 {
	if avail := s.TotalLimit() - s.Used; avail > 0 {
		return avail
	}
	return 0
}

// DefaultBaseLimit is granted to every new ledger (10 GiB).
const DefaultBaseLimit = int64(10 << 30)
