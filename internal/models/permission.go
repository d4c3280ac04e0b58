package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShareType records how a permission row came to exist.
type ShareType string

const (
	// ShareTypeDirect is an explicit grant created by a sharing action.
	ShareTypeDirect ShareType = "DIRECT"
	// ShareTypeInherited is a copy of an ancestor's grant taken at the
	// moment the descendant node was created.
	ShareTypeInherited ShareType = "INHERITED"
)

// Capabilities is the set of actions a grant allows.
type Capabilities struct {
	CanView bool `bson:"can_view" json:"canView"`
	CanEdit bool `bson:"can_edit" json:"canEdit"`
}

// Permission grants a user (or the public, when UserID is nil) capabilities
// on a node. At most one row exists per (node, user) pair. InheritedFrom is
// set only on INHERITED rows and points at the ancestor whose grant was
// copied.
type Permission struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	NodeID        primitive.ObjectID  `bson:"node_id" json:"nodeId"`
	UserID        *primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`
	Capabilities  Capabilities        `bson:"capabilities" json:"capabilities"`
	ShareType     ShareType           `bson:"share_type" json:"shareType"`
	InheritedFrom *primitive.ObjectID `bson:"inherited_from,omitempty" json:"inheritedFrom,omitempty"`
	GrantedBy     primitive.ObjectID  `bson:"granted_by" json:"grantedBy"`
	CreatedAt     time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updatedAt"`
}

// IsPublic reports whether the grant applies to unauthenticated access.
func (p *Permission) IsPublic() bool {
	return p.UserID == nil
}
