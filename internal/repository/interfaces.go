package repository

import (
	"context"
	"time"

	"github.com/skybox-io/skybox/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NodeFilter narrows child listings. Nil pointer fields mean "don't care".
type NodeFilter struct {
	Deleted  *bool
	NodeType *models.NodeType
	Keyword  string
	Page     int
	Limit    int
}

// NodeRepository is the tree store: FileNode rows plus the derived
// ancestor/descendant closure. All other components reference nodes by id.
type NodeRepository interface {
	// Create inserts the node and its closure edges: a depth-0 self edge
	// plus one edge per ancestor of the parent. A duplicate key on the
	// live-sibling index surfaces as ErrNodeAlreadyExists.
	Create(ctx context.Context, node *models.FileNode) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.FileNode, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	// Delete removes the node row and every closure edge referencing it.
	Delete(ctx context.Context, id primitive.ObjectID) error

	ListChildren(ctx context.Context, parentID primitive.ObjectID, filter *NodeFilter) ([]*models.FileNode, int64, error)
	// ListDescendants returns every node strictly below id, ordered
	// shallow to deep by closure depth.
	ListDescendants(ctx context.Context, id primitive.ObjectID) ([]*models.FileNode, error)
	// ListAncestors returns the chain from the root down to id itself.
	ListAncestors(ctx context.Context, id primitive.ObjectID) ([]*models.FileNode, error)
	// AncestorEdges returns the closure rows above id (self included),
	// carrying the depth needed for closest-ancestor-wins resolution.
	AncestorEdges(ctx context.Context, id primitive.ObjectID) ([]*models.ClosureEdge, error)

	HasLiveSibling(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, nodeType models.NodeType, name string) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]*models.FileNode, error)
}

// PermissionRepository persists access grants, unique per (node, user).
type PermissionRepository interface {
	Upsert(ctx context.Context, perm *models.Permission) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Permission, error)
	GetByNodeAndUser(ctx context.Context, nodeID primitive.ObjectID, userID *primitive.ObjectID) (*models.Permission, error)
	ListByNode(ctx context.Context, nodeID primitive.ObjectID) ([]*models.Permission, error)
	// ListForUserOnNodes returns the user's grants across the given node
	// set; used with the ancestor closure for effective permissions.
	ListForUserOnNodes(ctx context.Context, nodeIDs []primitive.ObjectID, userID *primitive.ObjectID) ([]*models.Permission, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByNode(ctx context.Context, nodeID primitive.ObjectID) error
}

// StorageRepository is the quota ledger store.
type StorageRepository interface {
	Create(ctx context.Context, storage *models.UserStorage) error
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.UserStorage, error)
	// IncrementUsed adds delta to used, flooring the result at zero.
	IncrementUsed(ctx context.Context, userID primitive.ObjectID, delta int64) error
	AddBonus(ctx context.Context, userID primitive.ObjectID, bytes int64) error
	ResetBonus(ctx context.Context, userID primitive.ObjectID) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

// UserRepository is the narrow user-directory contract the core needs.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
}

// SettingsRepository is the app-config collaborator contract.
type SettingsRepository interface {
	Get(ctx context.Context, category models.SettingsCategory, key string) (*models.AppSetting, error)
	Set(ctx context.Context, category models.SettingsCategory, key string, value interface{}, updatedBy primitive.ObjectID) error
}

// Repository aggregates all repositories
type Repository struct {
	Node       NodeRepository
	Permission PermissionRepository
	Storage    StorageRepository
	User       UserRepository
	Settings   SettingsRepository
}

// NewRepository wires every repository over a shared MongoDB handle.
func NewRepository(db *MongoDB) *Repository {
	return &Repository{
		Node:       NewNodeRepository(db),
		Permission: NewPermissionRepository(db),
		Storage:    NewStorageRepository(db),
		User:       NewUserRepository(db),
		Settings:   NewSettingsRepository(db),
	}
}
