package services

import (
	"context"
	"errors"
	"time"

	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NodeService orchestrates the node lifecycle: creation, trash, restore,
// permanent deletion and the retention sweep. Each step is individually
// consistent so a retried operation converges rather than corrupts.
type NodeService struct {
	nodeRepo    repository.NodeRepository
	permissions *PermissionService
	quota       *QuotaService
	retention   *RetentionService
	store       ObjectStore
	logger      *pkg.Logger
}

// NewNodeService creates a new node service
func NewNodeService(
	nodeRepo repository.NodeRepository,
	permissions *PermissionService,
	quota *QuotaService,
	retention *RetentionService,
	store ObjectStore,
	logger *pkg.Logger,
) *NodeService {
	return &NodeService{
		nodeRepo:    nodeRepo,
		permissions: permissions,
		quota:       quota,
		retention:   retention,
		store:       store,
		logger:      logger,
	}
}

// CreateFileRequest carries the metadata for a file creation. The bytes
// themselves go straight from the client to the object store.
type CreateFileRequest struct {
	Name        string `json:"name" validate:"required,nodename,max=255"`
	ParentID    string `json:"parent_id,omitempty" validate:"omitempty,objectid"`
	Size        int64  `json:"size" validate:"required,min=1"`
	ContentType string `json:"content_type" validate:"required"`
}

// CreateFolderRequest carries the metadata for a folder creation
type CreateFolderRequest struct {
	Name     string `json:"name" validate:"required,nodename,max=255"`
	ParentID string `json:"parent_id,omitempty" validate:"omitempty,objectid"`
}

// CreateFileResult pairs the new node with its upload slot
type CreateFileResult struct {
	Node *models.FileNode `json:"node"`
	Slot *UploadSlot      `json:"upload_slot"`
}

// EnsureRoot returns the user's root folder, creating it and the quota
// ledger on first touch. The root's ID equals the user's ID and its parent
// is nil; every read path that needs the root goes through here.
func (s *NodeService) EnsureRoot(ctx context.Context, userID primitive.ObjectID) (*models.FileNode, error) {
	root, err := s.nodeRepo.GetByID(ctx, userID)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, pkg.ErrNodeNotFound) {
		return nil, err
	}

	root = &models.FileNode{
		ID:       userID,
		Name:     models.RootFolderName,
		NodeType: models.NodeTypeFolder,
		ParentID: nil,
		OwnerID:  userID,
	}
	if err := s.nodeRepo.Create(ctx, root); err != nil {
		if errors.Is(err, pkg.ErrNodeAlreadyExists) {
			// Lost a concurrent initialization race.
			return s.nodeRepo.GetByID(ctx, userID)
		}
		return nil, err
	}

	if _, err := s.quota.EnsureLedger(ctx, userID); err != nil {
		return nil, err
	}

	return root, nil
}

// CreateFolder creates a folder under the given parent, defaulting to the
// owner's root. Grants on the parent are copied onto the new folder.
func (s *NodeService) CreateFolder(ctx context.Context, ownerID primitive.ObjectID, req *CreateFolderRequest) (*models.FileNode, error) {
	if err := pkg.DefaultValidator.Validate(req); err != nil {
		return nil, err
	}

	parent, err := s.resolveParent(ctx, ownerID, req.ParentID)
	if err != nil {
		return nil, err
	}

	name := pkg.Files.SanitizeFilename(req.Name)
	if err := s.checkSibling(ctx, ownerID, parent.ID, models.NodeTypeFolder, name); err != nil {
		return nil, err
	}

	node := &models.FileNode{
		Name:     name,
		NodeType: models.NodeTypeFolder,
		ParentID: &parent.ID,
		OwnerID:  ownerID,
	}
	if err := s.nodeRepo.Create(ctx, node); err != nil {
		return nil, err
	}

	if err := s.permissions.PropagateToChild(ctx, parent.ID, node.ID); err != nil {
		return nil, err
	}

	pkg.MetricNodesCreated.WithLabelValues(string(models.NodeTypeFolder)).Inc()
	return node, nil
}

// CreateFile creates a file node and returns an upload slot for its bytes.
// The slot is allocated before any local write: if allocation fails the
// create aborts with no node and no quota mutation.
func (s *NodeService) CreateFile(ctx context.Context, ownerID primitive.ObjectID, req *CreateFileRequest) (*CreateFileResult, error) {
	if err := pkg.DefaultValidator.Validate(req); err != nil {
		return nil, err
	}

	parent, err := s.resolveParent(ctx, ownerID, req.ParentID)
	if err != nil {
		return nil, err
	}

	name := pkg.Files.SanitizeFilename(req.Name)
	if err := s.checkSibling(ctx, ownerID, parent.ID, models.NodeTypeFile, name); err != nil {
		return nil, err
	}

	if err := s.quota.ValidateCapacity(ctx, ownerID, req.Size); err != nil {
		return nil, err
	}

	slot, err := s.store.AllocateUploadSlot(ctx, ownerID.Hex(), name, req.Size, req.ContentType)
	if err != nil {
		return nil, err
	}

	node := &models.FileNode{
		Name:     name,
		NodeType: models.NodeTypeFile,
		ParentID: &parent.ID,
		OwnerID:  ownerID,
		Object: &models.StoredObject{
			Key:         slot.Key,
			Bucket:      slot.Bucket,
			Size:        req.Size,
			ContentType: req.ContentType,
		},
	}
	if err := s.nodeRepo.Create(ctx, node); err != nil {
		return nil, err
	}

	if err := s.permissions.PropagateToChild(ctx, parent.ID, node.ID); err != nil {
		return nil, err
	}

	if err := s.quota.Increase(ctx, ownerID, req.Size); err != nil {
		return nil, err
	}

	pkg.MetricNodesCreated.WithLabelValues(string(models.NodeTypeFile)).Inc()
	return &CreateFileResult{Node: node, Slot: slot}, nil
}

// GetNode fetches a node by id
func (s *NodeService) GetNode(ctx context.Context, id primitive.ObjectID) (*models.FileNode, error) {
	return s.nodeRepo.GetByID(ctx, id)
}

// GetReadURL returns a short-lived download URL for a file node
func (s *NodeService) GetReadURL(ctx context.Context, id primitive.ObjectID) (string, error) {
	node, err := s.nodeRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if node.IsFolder() || node.Object == nil {
		return "", pkg.ErrInvalidInput.WithDetails(map[string]interface{}{
			"reason": "node has no stored object",
		})
	}
	return s.store.GetReadURL(ctx, node.Object.Bucket, node.Object.Key)
}

// ListChildren lists a folder's children with optional filters
func (s *NodeService) ListChildren(ctx context.Context, parentID primitive.ObjectID, filter *repository.NodeFilter) ([]*models.FileNode, int64, error) {
	parent, err := s.nodeRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, 0, err
	}
	if !parent.IsFolder() {
		return nil, 0, pkg.ErrInvalidParent
	}
	return s.nodeRepo.ListChildren(ctx, parentID, filter)
}

// Breadcrumbs returns the path from the root to the node, root first. The
// root folder is presented under its display label rather than its stored
// name.
func (s *NodeService) Breadcrumbs(ctx context.Context, id primitive.ObjectID) ([]*models.FileNode, error) {
	chain, err := s.nodeRepo.ListAncestors(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, pkg.ErrNodeNotFound
	}
	if chain[0].IsRoot() {
		chain[0].Name = models.HomeLabel
	}
	return chain, nil
}

// Delete is the public deletion entry point: a live node goes to the
// trash, a trashed node is purged. Deleting twice empties the trash for
// that item.
func (s *NodeService) Delete(ctx context.Context, id primitive.ObjectID) error {
	node, err := s.nodeRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if node.IsDeleted {
		return s.DeletePermanent(ctx, id)
	}
	return s.MoveToTrash(ctx, id)
}

// MoveToTrash marks the node and its whole subtree deleted. The purge
// deadline is computed once from the subtree root's owner and stamped on
// every descendant, so the tree expires as a unit regardless of who owns
// individual nodes inside it.
func (s *NodeService) MoveToTrash(ctx context.Context, id primitive.ObjectID) error {
	node, err := s.nodeRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if node.IsRoot() {
		return pkg.ErrRootImmutable
	}
	if node.IsDeleted {
		return nil
	}

	now := time.Now()
	scheduledAt := s.retention.ScheduledDeletionAt(ctx, node.OwnerID)
	updates := map[string]interface{}{
		"is_deleted":            true,
		"deleted_at":            now,
		"scheduled_deletion_at": scheduledAt,
	}

	// The node itself is marked before its descendants so a reader never
	// sees a live parent above trashed children.
	if err := s.nodeRepo.Update(ctx, id, updates); err != nil {
		return err
	}

	descendants, err := s.nodeRepo.ListDescendants(ctx, id)
	if err != nil {
		return err
	}
	for _, desc := range descendants {
		if err := s.nodeRepo.Update(ctx, desc.ID, updates); err != nil {
			return err
		}
	}

	pkg.MetricNodesTrashed.Inc()
	s.logger.Info("moved subtree to trash", map[string]interface{}{
		"node_id":      id.Hex(),
		"descendants":  len(descendants),
		"scheduled_at": scheduledAt,
	})
	return nil
}

// Restore brings a trashed subtree back to the live state
func (s *NodeService) Restore(ctx context.Context, id primitive.ObjectID) error {
	node, err := s.nodeRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !node.IsDeleted {
		return pkg.ErrNodeNotDeleted
	}

	updates := map[string]interface{}{
		"is_deleted":            false,
		"deleted_at":            nil,
		"scheduled_deletion_at": nil,
	}

	if err := s.nodeRepo.Update(ctx, id, updates); err != nil {
		return err
	}

	descendants, err := s.nodeRepo.ListDescendants(ctx, id)
	if err != nil {
		return err
	}
	for _, desc := range descendants {
		if err := s.nodeRepo.Update(ctx, desc.ID, updates); err != nil {
			return err
		}
	}

	return nil
}

// DeletePermanent removes a subtree for good: descendants deepest first,
// then the node itself. Remote object deletion is best effort and never
// blocks the local delete. Idempotent: a missing node counts as done, so
// overlapping sweeps or retries converge.
func (s *NodeService) DeletePermanent(ctx context.Context, id primitive.ObjectID) error {
	node, err := s.nodeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pkg.ErrNodeNotFound) {
			return nil
		}
		return err
	}
	if node.IsRoot() {
		return pkg.ErrRootImmutable
	}

	descendants, err := s.nodeRepo.ListDescendants(ctx, id)
	if err != nil {
		return err
	}

	// ListDescendants is shallow to deep; purge in reverse so no closure
	// row ever dangles under a deleted parent.
	for i := len(descendants) - 1; i >= 0; i-- {
		if err := s.purgeOne(ctx, descendants[i]); err != nil {
			return err
		}
	}
	return s.purgeOne(ctx, node)
}

// RunRetentionSweep purges every node whose retention window has elapsed.
// Failures are logged per node and never abort the sweep.
func (s *NodeService) RunRetentionSweep(ctx context.Context) error {
	pkg.MetricSweepRuns.Inc()

	expired, err := s.nodeRepo.ListExpired(ctx, time.Now())
	if err != nil {
		pkg.MetricSweepErrors.Inc()
		return err
	}

	var failed int
	for _, node := range expired {
		if err := s.DeletePermanent(ctx, node.ID); err != nil {
			failed++
			pkg.MetricSweepErrors.Inc()
			s.logger.Error("failed to purge expired node", map[string]interface{}{
				"node_id": node.ID.Hex(),
				"error":   err.Error(),
			})
		}
	}

	s.logger.Info("retention sweep finished", map[string]interface{}{
		"expired": len(expired),
		"failed":  failed,
	})
	return nil
}

func (s *NodeService) purgeOne(ctx context.Context, node *models.FileNode) error {
	if !node.IsFolder() && node.Object != nil {
		if err := s.store.DeleteObject(ctx, node.Object.Bucket, node.Object.Key); err != nil {
			s.logger.Warn("failed to delete remote object", map[string]interface{}{
				"node_id": node.ID.Hex(),
				"key":     node.Object.Key,
				"error":   err.Error(),
			})
		}
		if err := s.quota.Decrease(ctx, node.OwnerID, node.Object.Size); err != nil {
			return err
		}
	}

	if err := s.permissions.RemoveAllForNode(ctx, node.ID); err != nil {
		return err
	}

	if err := s.nodeRepo.Delete(ctx, node.ID); err != nil {
		if errors.Is(err, pkg.ErrNodeNotFound) {
			return nil
		}
		return err
	}

	pkg.MetricNodesPurged.Inc()
	return nil
}

// resolveParent loads and validates the creation parent. An empty parent
// id means the owner's root folder.
func (s *NodeService) resolveParent(ctx context.Context, ownerID primitive.ObjectID, parentID string) (*models.FileNode, error) {
	if parentID == "" {
		return s.EnsureRoot(ctx, ownerID)
	}

	id, err := primitive.ObjectIDFromHex(parentID)
	if err != nil {
		return nil, pkg.ErrInvalidParent
	}

	parent, err := s.nodeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pkg.ErrNodeNotFound) {
			return nil, pkg.ErrInvalidParent
		}
		return nil, err
	}
	if !parent.IsFolder() || parent.IsDeleted {
		return nil, pkg.ErrInvalidParent
	}
	return parent, nil
}

// checkSibling pre-checks the live-sibling name constraint. The unique
// index remains the authority under concurrency; this gives a clean error
// on the common path.
func (s *NodeService) checkSibling(ctx context.Context, ownerID, parentID primitive.ObjectID, nodeType models.NodeType, name string) error {
	exists, err := s.nodeRepo.HasLiveSibling(ctx, ownerID, &parentID, nodeType, name)
	if err != nil {
		return err
	}
	if exists {
		return pkg.ErrNodeAlreadyExists
	}
	return nil
}
