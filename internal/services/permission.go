package services

import (
	"context"

	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PermissionService maintains access grants consistent with the folder tree
type PermissionService struct {
	permRepo repository.PermissionRepository
	nodeRepo repository.NodeRepository
	logger   *pkg.Logger
}

// NewPermissionService creates a new permission service
func NewPermissionService(permRepo repository.PermissionRepository, nodeRepo repository.NodeRepository, logger *pkg.Logger) *PermissionService {
	return &PermissionService{
		permRepo: permRepo,
		nodeRepo: nodeRepo,
		logger:   logger,
	}
}

// UpsertDirectGrant creates or updates an explicit grant on a node. A nil
// userID records a public grant.
func (s *PermissionService) UpsertDirectGrant(ctx context.Context, nodeID primitive.ObjectID, userID *primitive.ObjectID, caps models.Capabilities, grantedBy primitive.ObjectID) (*models.Permission, error) {
	if _, err := s.nodeRepo.GetByID(ctx, nodeID); err != nil {
		return nil, err
	}

	perm := &models.Permission{
		NodeID:       nodeID,
		UserID:       userID,
		Capabilities: caps,
		ShareType:    models.ShareTypeDirect,
		GrantedBy:    grantedBy,
	}
	if err := s.permRepo.Upsert(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

// PropagateToChild copies every grant on the parent onto a freshly created
// child as INHERITED rows. This is a one-time copy at creation: later
// changes to the parent's grants do not flow to existing children.
func (s *PermissionService) PropagateToChild(ctx context.Context, parentID, childID primitive.ObjectID) error {
	grants, err := s.permRepo.ListByNode(ctx, parentID)
	if err != nil {
		return err
	}

	for _, grant := range grants {
		inherited := &models.Permission{
			NodeID:        childID,
			UserID:        grant.UserID,
			Capabilities:  grant.Capabilities,
			ShareType:     models.ShareTypeInherited,
			InheritedFrom: &parentID,
			GrantedBy:     grant.GrantedBy,
		}
		if err := s.permRepo.Upsert(ctx, inherited); err != nil {
			return err
		}
	}

	return nil
}

// GetEffectivePermission resolves the grant that governs a user's access to
// a node: it scans the node and its ancestors and returns the grant closest
// to the node itself.
func (s *PermissionService) GetEffectivePermission(ctx context.Context, nodeID primitive.ObjectID, userID *primitive.ObjectID) (*models.Permission, error) {
	edges, err := s.nodeRepo.AncestorEdges(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, pkg.ErrNodeNotFound
	}

	// Edges arrive sorted by depth ascending, self edge first.
	ancestorIDs := make([]primitive.ObjectID, 0, len(edges))
	depthOf := make(map[primitive.ObjectID]int, len(edges))
	for _, edge := range edges {
		ancestorIDs = append(ancestorIDs, edge.AncestorID)
		depthOf[edge.AncestorID] = edge.Depth
	}

	grants, err := s.permRepo.ListForUserOnNodes(ctx, ancestorIDs, userID)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, pkg.ErrPermissionNotFound
	}

	best := grants[0]
	for _, grant := range grants[1:] {
		if depthOf[grant.NodeID] < depthOf[best.NodeID] {
			best = grant
		}
	}
	return best, nil
}

// CanRemove reports whether a user may revoke a grant: the original
// grantor, the owner of the node the grant sits on, or an admin.
func (s *PermissionService) CanRemove(ctx context.Context, user *models.User, permissionID primitive.ObjectID) (bool, error) {
	perm, err := s.permRepo.GetByID(ctx, permissionID)
	if err != nil {
		return false, err
	}

	if user.IsAdmin() || perm.GrantedBy == user.ID {
		return true, nil
	}

	node, err := s.nodeRepo.GetByID(ctx, perm.NodeID)
	if err != nil {
		return false, err
	}
	return node.OwnerID == user.ID, nil
}

// RevokeGrant removes a grant after an authorization check
func (s *PermissionService) RevokeGrant(ctx context.Context, user *models.User, permissionID primitive.ObjectID) error {
	allowed, err := s.CanRemove(ctx, user, permissionID)
	if err != nil {
		return err
	}
	if !allowed {
		return pkg.ErrInsufficientPermissions
	}
	return s.permRepo.Delete(ctx, permissionID)
}

// ListGrants returns every grant on a node
func (s *PermissionService) ListGrants(ctx context.Context, nodeID primitive.ObjectID) ([]*models.Permission, error) {
	return s.permRepo.ListByNode(ctx, nodeID)
}

// RemoveAllForNode drops every grant on a node, used by the permanent
// delete cascade.
func (s *PermissionService) RemoveAllForNode(ctx context.Context, nodeID primitive.ObjectID) error {
	return s.permRepo.DeleteByNode(ctx, nodeID)
}
