package handlers

import (
	"net/http"

	"github.com/skybox-io/skybox/internal/middleware"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler exposes login, logout and token refresh
type AuthHandler struct {
	auth *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login authenticates a user and issues a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request data: "+err.Error())
		return
	}

	result, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Login successful", result)
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a refresh token for a new pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request data: "+err.Error())
		return
	}

	tokens, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Token refreshed", tokens)
}

// Logout revokes the caller's session
func (h *AuthHandler) Logout(c *gin.Context) {
	value, exists := c.Get(middleware.ContextClaims)
	if !exists {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}
	claims, ok := value.(*pkg.TokenClaims)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	if err := h.auth.Logout(c.Request.Context(), claims.SessionID); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Logged out", nil)
}
