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

type nodeRepository struct {
	*BaseRepository
	closure *mongo.Collection
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(mongodb *MongoDB) NodeRepository {
	return &nodeRepository{
		BaseRepository: NewBaseRepository(mongodb, "nodes"),
		closure:        mongodb.Collection("node_closure"),
	}
}

// Create inserts a node and its closure edges
func (r *nodeRepository) Create(ctx context.Context, node *models.FileNode) error {
	if node.ID.IsZero() {
		node.ID = primitive.NewObjectID()
	}
	node.CreatedAt = time.Now()
	node.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, node)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pkg.ErrNodeAlreadyExists
		}
		return fmt.Errorf("failed to create node: %w", err)
	}

	edges := []interface{}{
		models.ClosureEdge{AncestorID: node.ID, DescendantID: node.ID, Depth: 0},
	}

	if node.ParentID != nil {
		parentEdges, err := r.AncestorEdges(ctx, *node.ParentID)
		if err != nil {
			r.collection.DeleteOne(ctx, bson.M{"_id": node.ID})
			return fmt.Errorf("failed to read parent closure: %w", err)
		}
		for _, e := range parentEdges {
			edges = append(edges, models.ClosureEdge{
				AncestorID:   e.AncestorID,
				DescendantID: node.ID,
				Depth:        e.Depth + 1,
			})
		}
	}

	if _, err := r.closure.InsertMany(ctx, edges); err != nil {
		// Compensate so a half-linked node never becomes visible.
		r.collection.DeleteOne(ctx, bson.M{"_id": node.ID})
		r.closure.DeleteMany(ctx, bson.M{"descendant_id": node.ID})
		return fmt.Errorf("failed to create closure edges: %w", err)
	}

	return nil
}

// GetByID retrieves a node by ID, trashed nodes included
func (r *nodeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FileNode, error) {
	var node models.FileNode
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&node)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrNodeNotFound
		}
		return nil, fmt.Errorf("failed to get node by ID: %w", err)
	}
	return &node, nil
}

// Update updates node fields
func (r *nodeRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return r.BaseRepository.Update(ctx, bson.M{"_id": id}, updates)
}

// Delete removes the node and every closure edge referencing it
func (r *nodeRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	if result.DeletedCount == 0 {
		return pkg.ErrNodeNotFound
	}

	_, err = r.closure.DeleteMany(ctx, bson.M{"$or": []bson.M{
		{"ancestor_id": id},
		{"descendant_id": id},
	}})
	if err != nil {
		return fmt.Errorf("failed to delete closure edges: %w", err)
	}

	return nil
}

// ListChildren retrieves direct children matching the filter
func (r *nodeRepository) ListChildren(ctx context.Context, parentID primitive.ObjectID, filter *NodeFilter) ([]*models.FileNode, int64, error) {
	query := bson.M{"parent_id": parentID}

	if filter != nil {
		if filter.Deleted != nil {
			query["is_deleted"] = *filter.Deleted
		}
		if filter.NodeType != nil {
			query["node_type"] = *filter.NodeType
		}
		if filter.Keyword != "" {
			query["name"] = bson.M{"$regex": primitive.Regex{Pattern: filter.Keyword, Options: "i"}}
		}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count children: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "node_type", Value: 1}, {Key: "name", Value: 1}})
	if filter != nil && filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		opts = opts.SetSkip(int64((page - 1) * filter.Limit)).SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list children: %w", err)
	}
	defer cursor.Close(ctx)

	var nodes []*models.FileNode
	if err := cursor.All(ctx, &nodes); err != nil {
		return nil, 0, fmt.Errorf("failed to decode children: %w", err)
	}

	return nodes, total, nil
}

// ListDescendants retrieves every node below id, shallow to deep
func (r *nodeRepository) ListDescendants(ctx context.Context, id primitive.ObjectID) ([]*models.FileNode, error) {
	opts := options.Find().SetSort(bson.M{"depth": 1})
	cursor, err := r.closure.Find(ctx, bson.M{
		"ancestor_id": id,
		"depth":       bson.M{"$gt": 0},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list descendant edges: %w", err)
	}
	defer cursor.Close(ctx)

	var edges []*models.ClosureEdge
	if err := cursor.All(ctx, &edges); err != nil {
		return nil, fmt.Errorf("failed to decode descendant edges: %w", err)
	}

	return r.nodesInEdgeOrder(ctx, edges, func(e *models.ClosureEdge) primitive.ObjectID {
		return e.DescendantID
	})
}

// ListAncestors retrieves the chain from the root down to id itself
func (r *nodeRepository) ListAncestors(ctx context.Context, id primitive.ObjectID) ([]*models.FileNode, error) {
	edges, err := r.AncestorEdges(ctx, id)
	if err != nil {
		return nil, err
	}

	// Larger depth means further up the tree; the root carries the
	// maximum depth, so root-first is descending depth order.
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	return r.nodesInEdgeOrder(ctx, edges, func(e *models.ClosureEdge) primitive.ObjectID {
		return e.AncestorID
	})
}

// AncestorEdges retrieves closure rows above id, self edge included
func (r *nodeRepository) AncestorEdges(ctx context.Context, id primitive.ObjectID) ([]*models.ClosureEdge, error) {
	opts := options.Find().SetSort(bson.M{"depth": 1})
	cursor, err := r.closure.Find(ctx, bson.M{"descendant_id": id}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ancestor edges: %w", err)
	}
	defer cursor.Close(ctx)

	var edges []*models.ClosureEdge
	if err := cursor.All(ctx, &edges); err != nil {
		return nil, fmt.Errorf("failed to decode ancestor edges: %w", err)
	}

	return edges, nil
}

// HasLiveSibling reports whether a live node with the same name and type
// already exists under the parent
func (r *nodeRepository) HasLiveSibling(ctx context.Context, ownerID primitive.ObjectID, parentID *primitive.ObjectID, nodeType models.NodeType, name string) (bool, error) {
	filter := bson.M{
		"owner_id":   ownerID,
		"parent_id":  parentID,
		"node_type":  nodeType,
		"name":       name,
		"is_deleted": false,
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check siblings: %w", err)
	}

	return count > 0, nil
}

// ListExpired retrieves trashed nodes whose scheduled deletion has passed
func (r *nodeRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.FileNode, error) {
	filter := bson.M{
		"is_deleted":            true,
		"scheduled_deletion_at": bson.M{"$ne": nil, "$lte": now},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired nodes: %w", err)
	}
	defer cursor.Close(ctx)

	var nodes []*models.FileNode
	if err := cursor.All(ctx, &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode expired nodes: %w", err)
	}

	return nodes, nil
}

// nodesInEdgeOrder fetches the nodes referenced by edges and returns them
// in the same order the edges were given
func (r *nodeRepository) nodesInEdgeOrder(ctx context.Context, edges []*models.ClosureEdge, pick func(*models.ClosureEdge) primitive.ObjectID) ([]*models.FileNode, error) {
	if len(edges) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, pick(e))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": objectIDsOf(ids)})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nodes: %w", err)
	}
	defer cursor.Close(ctx)

	byID := make(map[primitive.ObjectID]*models.FileNode, len(ids))
	var fetched []*models.FileNode
	if err := cursor.All(ctx, &fetched); err != nil {
		return nil, fmt.Errorf("failed to decode nodes: %w", err)
	}
	for _, n := range fetched {
		byID[n.ID] = n
	}

	nodes := make([]*models.FileNode, 0, len(ids))
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			nodes = append(nodes, n)
		}
	}

	return nodes, nil
}
