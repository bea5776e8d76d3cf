// Package middleware provides shared gin middleware for the HTTP layer.
package middleware

import (
	"time"

	"salesdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID attaches a request ID to the context so log lines from one
// request can be correlated. An inbound X-Request-ID is honored.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(string(logger.RequestIDKey), requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger logs every request with latency and status.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := float64(time.Since(start).Microseconds()) / 1000

		status := c.Writer.Status()
		if len(c.Errors) > 0 {
			log.HTTPError(c.Request.Method, c.FullPath(), status, c.Errors.Last(), c.ClientIP())
			return
		}
		log.HTTPRequest(c.Request.Method, c.FullPath(), status, latency, c.ClientIP())
	}
}
