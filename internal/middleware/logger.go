package middleware

import (
	"time"

	"github.com/docurisk/backend/internal/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs every HTTP request with method, path, status and latency.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request", map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
	}
}
