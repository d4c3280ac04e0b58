package middleware

import (
	"time"

	"github.com/skybox-io/skybox/internal/pkg"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs every request with method, path, status and latency
func RequestLogger(logger *pkg.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := map[string]interface{}{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if userID, ok := CurrentUserID(c); ok {
			fields["user_id"] = userID.Hex()
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request failed", fields)
		case c.Writer.Status() >= 400:
			logger.Warn("request rejected", fields)
		default:
			logger.Info("request handled", fields)
		}
	}
}
