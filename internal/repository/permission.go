package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type permissionRepository struct {
	*BaseRepository
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(mongodb *MongoDB) PermissionRepository {
	return &permissionRepository{
		BaseRepository: NewBaseRepository(mongodb, "permissions"),
	}
}

// Upsert creates or replaces the grant for (node, user)
func (r *permissionRepository) Upsert(ctx context.Context, perm *models.Permission) error {
	now := time.Now()
	if perm.CreatedAt.IsZero() {
		perm.CreatedAt = now
	}
	perm.UpdatedAt = now

	filter := bson.M{"node_id": perm.NodeID, "user_id": perm.UserID}
	update := bson.M{
		"$set": bson.M{
			"capabilities":   perm.Capabilities,
			"share_type":     perm.ShareType,
			"inherited_from": perm.InheritedFrom,
			"granted_by":     perm.GrantedBy,
			"updated_at":     perm.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"node_id":    perm.NodeID,
			"user_id":    perm.UserID,
			"created_at": perm.CreatedAt,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert permission: %w", err)
	}

	return nil
}

// GetByID retrieves a permission by ID
func (r *permissionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Permission, error) {
	var perm models.Permission
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&perm)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission by ID: %w", err)
	}
	return &perm, nil
}

// GetByNodeAndUser retrieves the single grant for a (node, user) pair
func (r *permissionRepository) GetByNodeAndUser(ctx context.Context, nodeID primitive.ObjectID, userID *primitive.ObjectID) (*models.Permission, error) {
	var perm models.Permission
	err := r.collection.FindOne(ctx, bson.M{"node_id": nodeID, "user_id": userID}).Decode(&perm)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &perm, nil
}

// ListByNode retrieves every grant on a node
func (r *permissionRepository) ListByNode(ctx context.Context, nodeID primitive.ObjectID) ([]*models.Permission, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"node_id": nodeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer cursor.Close(ctx)

	var perms []*models.Permission
	if err := cursor.All(ctx, &perms); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}

	return perms, nil
}

// ListForUserOnNodes retrieves the user's grants across a node set
func (r *permissionRepository) ListForUserOnNodes(ctx context.Context, nodeIDs []primitive.ObjectID, userID *primitive.ObjectID) ([]*models.Permission, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{
		"node_id": objectIDsOf(nodeIDs),
		"user_id": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions for user: %w", err)
	}
	defer cursor.Close(ctx)

	var perms []*models.Permission
	if err := cursor.All(ctx, &perms); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}

	return perms, nil
}

// Delete removes a grant by ID
func (r *permissionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	if result.DeletedCount == 0 {
		return pkg.ErrPermissionNotFound
	}
	return nil
}

// DeleteByNode removes every grant on a node (purge cascade)
func (r *permissionRepository) DeleteByNode(ctx context.Context, nodeID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"node_id": nodeID})
	if err != nil {
		return fmt.Errorf("failed to delete node permissions: %w", err)
	}
	return nil
}
