// Package httpkit provides HTTP response utilities.
package httpkit

import (
	"time"

	"leadrouter_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID attaches a request id to the gin context and response headers,
// generating one when the client did not supply it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(string(logger.RequestIDKey), requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// RequestLogger logs every request with method, path, status and latency.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := float64(time.Since(start).Microseconds()) / 1000.0
		log.HTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), latency, c.ClientIP())
	}
}
