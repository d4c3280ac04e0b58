package handlers

import (
	"github.com/skybox-io/skybox/internal/middleware"
	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the HTTP surface: auth endpoints, the node lifecycle and
// sharing, plus metrics. The API is deliberately thin glue over the
// services.
func NewRouter(
	authService *services.AuthService,
	nodeService *services.NodeService,
	permissionService *services.PermissionService,
	corsConfig *middleware.CORSConfig,
	logger *pkg.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(corsConfig))
	router.Use(middleware.RequestLogger(logger))

	authHandler := NewAuthHandler(authService)
	nodeHandler := NewNodeHandler(nodeService)
	shareHandler := NewShareHandler(permissionService)
	authMw := middleware.NewAuthMiddleware(authService, logger)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authMw.RequireAuth(), authHandler.Logout)
		}

		nodes := api.Group("/nodes", authMw.RequireAuth())
		{
			nodes.GET("/root", nodeHandler.GetRoot)
			nodes.POST("/folders", nodeHandler.CreateFolder)
			nodes.POST("/files", nodeHandler.CreateFile)
			nodes.GET("/:id", nodeHandler.GetNode)
			nodes.GET("/:id/children", nodeHandler.ListChildren)
			nodes.GET("/:id/breadcrumbs", nodeHandler.Breadcrumbs)
			nodes.GET("/:id/download", nodeHandler.Download)
			nodes.DELETE("/:id", nodeHandler.Delete)
			nodes.POST("/:id/restore", nodeHandler.Restore)

			nodes.POST("/:id/shares", shareHandler.Grant)
			nodes.GET("/:id/shares", shareHandler.List)
			nodes.GET("/:id/shares/effective", shareHandler.Effective)
		}

		shares := api.Group("/shares", authMw.RequireAuth())
		{
			shares.DELETE("/:permissionId", shareHandler.Revoke)
		}
	}

	return router
}
