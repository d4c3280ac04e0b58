package handlers

import (
	"net/http"

	"github.com/skybox-io/skybox/internal/middleware"
	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShareHandler exposes permission grants over HTTP
type ShareHandler struct {
	permissions *services.PermissionService
}

// NewShareHandler creates a new share handler
func NewShareHandler(permissions *services.PermissionService) *ShareHandler {
	return &ShareHandler{permissions: permissions}
}

// GrantRequest represents a share request. An empty user ID creates a
// public grant.
type GrantRequest struct {
	UserID  string `json:"user_id,omitempty" validate:"omitempty,objectid"`
	CanView bool   `json:"can_view"`
	CanEdit bool   `json:"can_edit"`
}

// Grant creates or updates a direct grant on a node
func (h *ShareHandler) Grant(c *gin.Context) {
	grantor, ok := middleware.CurrentUserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	nodeID, err := parseNodeID(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid node ID")
		return
	}

	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request data: "+err.Error())
		return
	}
	if errs := pkg.DefaultValidator.Validate(&req); errs != nil {
		pkg.ValidationErrorResponse(c, errs)
		return
	}

	var userID *primitive.ObjectID
	if req.UserID != "" {
		id, err := primitive.ObjectIDFromHex(req.UserID)
		if err != nil {
			pkg.BadRequestResponse(c, "Invalid user ID")
			return
		}
		userID = &id
	}

	caps := models.Capabilities{CanView: req.CanView, CanEdit: req.CanEdit}
	perm, err := h.permissions.UpsertDirectGrant(c.Request.Context(), nodeID, userID, caps, grantor)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.CreatedResponse(c, "Grant created", perm)
}

// List returns every grant on a node
func (h *ShareHandler) List(c *gin.Context) {
	nodeID, err := parseNodeID(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid node ID")
		return
	}

	grants, err := h.permissions.ListGrants(c.Request.Context(), nodeID)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Grants retrieved", grants)
}

// Effective resolves the caller's effective permission on a node
func (h *ShareHandler) Effective(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	nodeID, err := parseNodeID(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid node ID")
		return
	}

	perm, err := h.permissions.GetEffectivePermission(c.Request.Context(), nodeID, &userID)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Effective permission resolved", perm)
}

// Revoke removes a grant
func (h *ShareHandler) Revoke(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	permID, err := primitive.ObjectIDFromHex(c.Param("permissionId"))
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid permission ID")
		return
	}

	if err := h.permissions.RevokeGrant(c.Request.Context(), user, permID); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.DeletedResponse(c, "Grant revoked")
}
