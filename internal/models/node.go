package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NodeType discriminates files from folders. Only folders may have children.
type NodeType string

const (
	NodeTypeFile   NodeType = "FILE"
	NodeTypeFolder NodeType = "FOLDER"
)

// FileNode is a single entry in a user's file tree. A node whose ID equals
// its owner's user ID and whose ParentID is nil is that user's root folder.
type FileNode struct {
	ID                  primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name                string              `bson:"name" json:"name" validate:"required,min=1,max=255"`
	NodeType            NodeType            `bson:"node_type" json:"nodeType"`
	ParentID            *primitive.ObjectID `bson:"parent_id,omitempty" json:"parentId,omitempty"`
	OwnerID             primitive.ObjectID  `bson:"owner_id" json:"ownerId"`
	IsDeleted           bool                `bson:"is_deleted" json:"isDeleted"`
	DeletedAt           *time.Time          `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
	ScheduledDeletionAt *time.Time          `bson:"scheduled_deletion_at,omitempty" json:"scheduledDeletionAt,omitempty"`
	Object              *StoredObject       `bson:"object,omitempty" json:"object,omitempty"`
	CreatedAt           time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time           `bson:"updated_at" json:"updatedAt"`
}

// IsFolder reports whether the node can hold children.
func (n *FileNode) IsFolder() bool {
	return n.NodeType == NodeTypeFolder
}

// IsRoot reports whether the node is the synthetic root of its owner's tree.
func (n *FileNode) IsRoot() bool {
	return n.ParentID == nil
}

// StoredObject points at the remote object backing a FILE node. The tree
// never touches raw bytes; only the key travels through the core.
type StoredObject struct {
	Key         string `bson:"key" json:"key"`
	Size        int64  `bson:"size" json:"size"`
	ContentType string `bson:"content_type" json:"contentType"`
	Bucket      string `bson:"bucket" json:"bucket"`
}

// ClosureEdge is a derived (ancestor, descendant, depth) record. The tree
// store maintains one self-edge per node (depth 0) plus one edge per
// ancestor, which makes ancestor and descendant listings single lookups.
type ClosureEdge struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AncestorID   primitive.ObjectID `bson:"ancestor_id" json:"ancestorId"`
	DescendantID primitive.ObjectID `bson:"descendant_id" json:"descendantId"`
	Depth        int                `bson:"depth" json:"depth"`
}

// RootFolderName is the stored name of a user's lazily created root folder.
const RootFolderName = "My Files"

// HomeLabel replaces the root folder's name in breadcrumb listings.
const HomeLabel = "Home"
