package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trainhub/trainhub-server/internal/logger"
)

// Logging logs HTTP requests and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// Handle logs method, path, duration and status for each request.
func (l *Logging) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		l.logger.Info("request completed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)

		for _, ginErr := range c.Errors {
			l.logger.Error("request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"error", ginErr.Error(),
			)
		}
	}
}
