package handlers

import (
	"net/http"
	"strings"

	"github.com/skybox-io/skybox/internal/middleware"
	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/repository"
	"github.com/skybox-io/skybox/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NodeHandler exposes the node lifecycle over HTTP
type NodeHandler struct {
	nodes *services.NodeService
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(nodes *services.NodeService) *NodeHandler {
	return &NodeHandler{nodes: nodes}
}

// GetRoot returns the caller's root folder, creating it on first access
func (h *NodeHandler) GetRoot(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	root, err := h.nodes.EnsureRoot(c.Request.Context(), userID)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Root folder retrieved", root)
}

// CreateFolder creates a folder
func (h *NodeHandler) CreateFolder(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request data: "+err.Error())
		return
	}

	node, err := h.nodes.CreateFolder(c.Request.Context(), userID, &req)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.CreatedResponse(c, "Folder created", node)
}

// CreateFile creates a file node and returns its upload slot
func (h *NodeHandler) CreateFile(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.CreateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request data: "+err.Error())
		return
	}

	result, err := h.nodes.CreateFile(c.Request.Context(), userID, &req)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.CreatedResponse(c, "File created", result)
}

// GetNode returns a single node
func (h *NodeHandler) GetNode(c *gin.Context) {
	id, err := parseNodeID(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid node ID")
		return
	}

	node, err := h.nodes.GetNode(c.Request.Context(), id)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Node retrieved", node)
}

// ListChildren lists a folder's children
func (h *NodeHandler) ListChildren(c *gin.Context) {
	id, err := parseNodeID(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid node ID")
		return
	}

	params := pkg.NewPaginationParams(c)
	filter := &repository.NodeFilter{
		Keyword: strings.TrimSpace(c.Query("search")),
		Page:    params.Page,
		Limit:   params.Limit,
	}

	if state := c.Query("state"); state != "" {
		deleted := state == "trashed"
		filter.Deleted = &deleted
	}
	if t := c.Query("type"); t != "" {
		nodeType := models.NodeType(strings.ToUpper(t))
		filter.NodeType = &nodeType
	}

	children, total, err := h.nodes.ListChildren(c.Request.Context(), id, filter)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	result := pkg.NewPaginationResult(children, total, params)
	pkg.PaginatedResponse(c, "Children retrieved", result)
}

// Breadcrumbs returns the path from the root down to a node
func (h *NodeHandler) Breadcrumbs(c *gin.Context) {
	id, err := parseNodeID(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid node ID")
		return
	}

	chain, err := h.nodes.Breadcrumbs(c.Request.Context(), id)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Breadcrumbs retrieved", chain)
}

// Download returns a presigned read URL for a file
func (h *NodeHandler) Download(c *gin.Context) {
	id, err := parseNodeID(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid node ID")
		return
	}

	url, err := h.nodes.GetReadURL(c.Request.Context(), id)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Download URL generated", gin.H{
		"download_url": url,
	})
}

// Delete trashes a live node or purges an already-trashed one
func (h *NodeHandler) Delete(c *gin.Context) {
	id, err := parseNodeID(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid node ID")
		return
	}

	if err := h.nodes.Delete(c.Request.Context(), id); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.DeletedResponse(c, "Node deleted")
}

// Restore brings a trashed node back
func (h *NodeHandler) Restore(c *gin.Context) {
	id, err := parseNodeID(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid node ID")
		return
	}

	if err := h.nodes.Restore(c.Request.Context(), id); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Node restored", nil)
}

func parseNodeID(c *gin.Context) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.Param("id"))
}
