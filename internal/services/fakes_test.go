package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository implementations mirroring the MongoDB semantics the
// services rely on: closure-edge maintenance, the live-sibling uniqueness
// rule and the zero floor on the quota ledger.

type fakeNodeRepo struct {
	mu    sync.Mutex
	nodes map[primitive.ObjectID]*models.FileNode
	edges []*models.ClosureEdge
}

func newFakeNodeRepo() *fakeNodeRepo {
	return &fakeNodeRepo{nodes: make(map[primitive.ObjectID]*models.FileNode)}
}

func (r *fakeNodeRepo) Create(ctx context.Context, node *models.FileNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if node.ID.IsZero() {
		node.ID = primitive.NewObjectID()
	}
	for _, existing := range r.nodes {
		if !existing.IsDeleted && !node.IsDeleted &&
			existing.OwnerID == node.OwnerID &&
			samePointerID(existing.ParentID, node.ParentID) &&
			existing.NodeType == node.NodeType &&
			existing.Name == node.Name {
			return pkg.ErrNodeAlreadyExists
		}
	}

	node.CreatedAt = time.Now()
	node.UpdatedAt = time.Now()
	copied := *node
	r.nodes[node.ID] = &copied

	r.edges = append(r.edges, &models.ClosureEdge{AncestorID: node.ID, DescendantID: node.ID, Depth: 0})
	if node.ParentID != nil {
		for _, edge := range r.edges {
			if edge.DescendantID == *node.ParentID && edge.AncestorID != node.ID {
				r.edges = append(r.edges, &models.ClosureEdge{
					AncestorID:   edge.AncestorID,
					DescendantID: node.ID,
					Depth:        edge.Depth + 1,
				})
			}
		}
	}
	return nil
}

func (r *fakeNodeRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FileNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok {
		return nil, pkg.ErrNodeNotFound
	}
	copied := *node
	return &copied, nil
}

func (r *fakeNodeRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.nodes[id]
	if !ok {
		return pkg.ErrNodeNotFound
	}
	for key, value := range updates {
		switch key {
		case "is_deleted":
			node.IsDeleted = value.(bool)
		case "deleted_at":
			node.DeletedAt = toTimePtr(value)
		case "scheduled_deletion_at":
			node.ScheduledDeletionAt = toTimePtr(value)
		case "name":
			node.Name = value.(string)
		}
	}
	node.UpdatedAt = time.Now()
	return nil
}

func (r *fakeNodeRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[id]; !ok {
		return pkg.ErrNodeNotFound
	}
	delete(r.nodes, id)

	kept := r.edges[:0]
	for _, edge := range r.edges {
		if edge.AncestorID != id && edge.DescendantID != id {
			kept = append(kept, edge)
		}
	}
	r.edges = kept
	return nil
}

func (r *fakeNodeRepo) ListChildren(ctx context.Context, parentID primitive.ObjectID, filter *repository.NodeFilter) ([]*models.FileNode, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.FileNode
	for _, node := range r.nodes {
		if node.ParentID == nil || *node.ParentID != parentID {
			continue
		}
		if filter != nil {
			if filter.Deleted != nil && node.IsDeleted != *filter.Deleted {
				continue
			}
			if filter.NodeType != nil && node.NodeType != *filter.NodeType {
				continue
			}
			if filter.Keyword != "" && !strings.Contains(strings.ToLower(node.Name), strings.ToLower(filter.Keyword)) {
				continue
			}
		}
		copied := *node
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *fakeNodeRepo) ListDescendants(ctx context.Context, id primitive.ObjectID) ([]*models.FileNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	type hit struct {
		node  *models.FileNode
		depth int
	}
	var hits []hit
	for _, edge := range r.edges {
		if edge.AncestorID == id && edge.Depth > 0 {
			if node, ok := r.nodes[edge.DescendantID]; ok {
				copied := *node
				hits = append(hits, hit{&copied, edge.Depth})
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].depth < hits[j].depth })

	out := make([]*models.FileNode, len(hits))
	for i, h := range hits {
		out[i] = h.node
	}
	return out, nil
}

func (r *fakeNodeRepo) ListAncestors(ctx context.Context, id primitive.ObjectID) ([]*models.FileNode, error) {
	edges, err := r.AncestorEdges(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.FileNode, 0, len(edges))
	// Deepest ancestor edge is the root; reverse for root-first order.
	for i := len(edges) - 1; i >= 0; i-- {
		if node, ok := r.nodes[edges[i].AncestorID]; ok {
			copied := *node
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeNodeRepo) AncestorEdges(ctx context.Context, id primitive.ObjectID) ([]*models.ClosureEdge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.ClosureEdge
	for _, edge := range r.edges {
		if edge.DescendantID == id {
			copied := *edge
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Depth < out[j].Depth })
	return out, nil
}

func (r *fakeNodeRepo) HasLiveSibling(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, nodeType models.NodeType, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, node := range r.nodes {
		if !node.IsDeleted && node.OwnerID == ownerID && samePointerID(node.ParentID, parentID) &&
			node.NodeType == nodeType && node.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNodeRepo) ListExpired(ctx context.Context, now time.Time) ([]*models.FileNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FileNode
	for _, node := range r.nodes {
		if node.IsDeleted && node.ScheduledDeletionAt != nil && !node.ScheduledDeletionAt.After(now) {
			copied := *node
			out = append(out, &copied)
		}
	}
	return out, nil
}

func samePointerID(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func toTimePtr(value interface{}) *time.Time {
	if value == nil {
		return nil
	}
	t := value.(time.Time)
	return &t
}

type fakePermRepo struct {
	mu    sync.Mutex
	perms map[primitive.ObjectID]*models.Permission
}

func newFakePermRepo() *fakePermRepo {
	return &fakePermRepo{perms: make(map[primitive.ObjectID]*models.Permission)}
}

func (r *fakePermRepo) Upsert(ctx context.Context, perm *models.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.perms {
		if existing.NodeID == perm.NodeID && samePointerID(existing.UserID, perm.UserID) {
			existing.Capabilities = perm.Capabilities
			existing.ShareType = perm.ShareType
			existing.InheritedFrom = perm.InheritedFrom
			existing.GrantedBy = perm.GrantedBy
			existing.UpdatedAt = time.Now()
			*perm = *existing
			return nil
		}
	}
	if perm.ID.IsZero() {
		perm.ID = primitive.NewObjectID()
	}
	perm.CreatedAt = time.Now()
	perm.UpdatedAt = time.Now()
	copied := *perm
	r.perms[perm.ID] = &copied
	return nil
}

func (r *fakePermRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm, ok := r.perms[id]
	if !ok {
		return nil, pkg.ErrPermissionNotFound
	}
	copied := *perm
	return &copied, nil
}

func (r *fakePermRepo) GetByNodeAndUser(ctx context.Context, nodeID primitive.ObjectID, userID *primitive.ObjectID) (*models.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, perm := range r.perms {
		if perm.NodeID == nodeID && samePointerID(perm.UserID, userID) {
			copied := *perm
			return &copied, nil
		}
	}
	return nil, pkg.ErrPermissionNotFound
}

func (r *fakePermRepo) ListByNode(ctx context.Context, nodeID primitive.ObjectID) ([]*models.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Permission
	for _, perm := range r.perms {
		if perm.NodeID == nodeID {
			copied := *perm
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePermRepo) ListForUserOnNodes(ctx context.Context, nodeIDs []primitive.ObjectID, userID *primitive.ObjectID) ([]*models.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[primitive.ObjectID]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		wanted[id] = true
	}
	var out []*models.Permission
	for _, perm := range r.perms {
		if wanted[perm.NodeID] && samePointerID(perm.UserID, userID) {
			copied := *perm
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakePermRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.perms[id]; !ok {
		return pkg.ErrPermissionNotFound
	}
	delete(r.perms, id)
	return nil
}

func (r *fakePermRepo) DeleteByNode(ctx context.Context, nodeID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, perm := range r.perms {
		if perm.NodeID == nodeID {
			delete(r.perms, id)
		}
	}
	return nil
}

type fakeStorageRepo struct {
	mu      sync.Mutex
	ledgers map[primitive.ObjectID]*models.UserStorage
}

func newFakeStorageRepo() *fakeStorageRepo {
	return &fakeStorageRepo{ledgers: make(map[primitive.ObjectID]*models.UserStorage)}
}

func (r *fakeStorageRepo) Create(ctx context.Context, storage *models.UserStorage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ledgers[storage.UserID]; ok {
		return nil
	}
	storage.ID = primitive.NewObjectID()
	storage.CreatedAt = time.Now()
	storage.UpdatedAt = time.Now()
	copied := *storage
	r.ledgers[storage.UserID] = &copied
	return nil
}

func (r *fakeStorageRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.UserStorage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ledger, ok := r.ledgers[userID]
	if !ok {
		return nil, pkg.ErrStorageNotFound
	}
	copied := *ledger
	return &copied, nil
}

func (r *fakeStorageRepo) IncrementUsed(ctx context.Context, userID primitive.ObjectID, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ledger, ok := r.ledgers[userID]
	if !ok {
		return pkg.ErrStorageNotFound
	}
	ledger.Used += delta
	if ledger.Used < 0 {
		ledger.Used = 0
	}
	ledger.UpdatedAt = time.Now()
	return nil
}

func (r *fakeStorageRepo) AddBonus(ctx context.Context, userID primitive.ObjectID, bytes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ledger, ok := r.ledgers[userID]
	if !ok {
		return pkg.ErrStorageNotFound
	}
	ledger.BonusLimit += bytes
	return nil
}

func (r *fakeStorageRepo) ResetBonus(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ledger, ok := r.ledgers[userID]
	if !ok {
		return pkg.ErrStorageNotFound
	}
	ledger.BonusLimit = 0
	return nil
}

func (r *fakeStorageRepo) Delete(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ledgers, userID)
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return pkg.ErrUserAlreadyExists
		}
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pkg.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pkg.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pkg.ErrUserNotFound
	}
	if v, ok := updates["trash_retention_days"]; ok {
		user.TrashRetentionDays = v.(int)
	}
	if v, ok := updates["last_login_at"]; ok {
		user.LastLoginAt = toTimePtr(v)
	}
	return nil
}

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings map[string]*models.AppSetting
	failGet  error
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[string]*models.AppSetting)}
}

func settingKey(category models.SettingsCategory, key string) string {
	return string(category) + "/" + key
}

func (r *fakeSettingsRepo) Get(ctx context.Context, category models.SettingsCategory, key string) (*models.AppSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	setting, ok := r.settings[settingKey(category, key)]
	if !ok {
		return nil, pkg.ErrSettingNotFound
	}
	copied := *setting
	return &copied, nil
}

func (r *fakeSettingsRepo) Set(ctx context.Context, category models.SettingsCategory, key string, value interface{}, updatedBy primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[settingKey(category, key)] = &models.AppSetting{
		Category:  category,
		Key:       key,
		Value:     value,
		UpdatedBy: updatedBy,
		UpdatedAt: time.Now(),
	}
	return nil
}

// fakeObjectStore records calls and can be told to fail
type fakeObjectStore struct {
	mu          sync.Mutex
	allocated   []string
	deleted     []string
	failAlloc   error
	failDelete  error
	nextSlotSeq int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{}
}

func (s *fakeObjectStore) AllocateUploadSlot(ctx context.Context, ownerID string, filename string, size int64, contentType string) (*UploadSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAlloc != nil {
		return nil, s.failAlloc
	}
	s.nextSlotSeq++
	key := fmt.Sprintf("%s/object-%d", ownerID, s.nextSlotSeq)
	s.allocated = append(s.allocated, key)
	return &UploadSlot{
		Key:       key,
		Bucket:    "test-bucket",
		UploadURL: "https://upload.test/" + key,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (s *fakeObjectStore) GetReadURL(ctx context.Context, bucket, key string) (string, error) {
	return "https://read.test/" + key, nil
}

func (s *fakeObjectStore) DeleteObject(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete
	}
	s.deleted = append(s.deleted, key)
	return nil
}

// fakeSessionStore is an in-memory SessionStore
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*Session)}
}

func (s *fakeSessionStore) Save(ctx context.Context, session *Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *fakeSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, pkg.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *fakeSessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
