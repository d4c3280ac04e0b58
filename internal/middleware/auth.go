package middleware

import (
	"github.com/skybox-io/skybox/internal/models"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Context keys set by the auth middleware
const (
	ContextUserID = "user_id"
	ContextUser   = "user"
	ContextClaims = "claims"
)

// AuthMiddleware guards protected routes: it validates the bearer token,
// confirms the session is still alive and loads the user.
type AuthMiddleware struct {
	auth   *services.AuthService
	logger *pkg.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(auth *services.AuthService, logger *pkg.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		auth:   auth,
		logger: logger,
	}
}

// RequireAuth validates the access token and sets user context
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := pkg.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			pkg.UnauthorizedResponse(c, "Authorization header required")
			c.Abort()
			return
		}

		claims, err := m.auth.ValidateAccess(c.Request.Context(), token)
		if err != nil {
			m.logger.Debug("token validation failed", map[string]interface{}{
				"error": err.Error(),
			})
			pkg.HandleError(c, err)
			c.Abort()
			return
		}

		user, err := m.auth.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			pkg.UnauthorizedResponse(c, "User not found")
			c.Abort()
			return
		}

		if user.Status != models.StatusActive {
			m.logger.Warn("inactive user attempted access", map[string]interface{}{
				"user_id": user.ID.Hex(),
				"status":  user.Status,
			})
			pkg.ForbiddenResponse(c, "Account is not active")
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireAdmin allows only admin users through; must run after RequireAuth
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin() {
			pkg.ForbiddenResponse(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user from the request context
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// CurrentUserID returns the authenticated user's ID
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok
}
