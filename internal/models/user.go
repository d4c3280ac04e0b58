package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email" validate:"required,email"`
	Username      string             `bson:"username" json:"username" validate:"required,min=3,max=50"`
	Password      string             `bson:"password" json:"-"`
	FirstName     string             `bson:"first_name" json:"firstName"`
	LastName      string             `bson:"last_name" json:"lastName"`
	Role          UserRole           `bson:"role" json:"role"`
	Status        UserStatus         `bson:"status" json:"status"`
	EmailVerified bool               `bson:"email_verified" json:"emailVerified"`

	// TrashRetentionDays overrides the app-wide trash retention when
	// positive; zero means "use the global setting".
	TrashRetentionDays int `bson:"trash_retention_days" json:"trashRetentionDays"`

	LastLoginAt *time.Time `bson:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updatedAt"`
	DeletedAt   *time.Time `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
}

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusInactive  UserStatus = "inactive"
	StatusSuspended UserStatus = "suspended"
)

// IsAdmin reports whether the user bypasses permission filtering.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
