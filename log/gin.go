package log

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var httpLogger = GetLogger("HTTP")

// ContextKeyHijacked marks a connection taken over by a WebSocket handler
const ContextKeyHijacked = "connection_hijacked"

// MarkHijacked must be called before websocket.Accept so the request logger
// does not touch the hijacked writer.
func MarkHijacked(c *gin.Context) {
	c.Set(ContextKeyHijacked, true)
}

// IsHijacked checks if the connection has been marked as hijacked
func IsHijacked(c *gin.Context) bool {
	hijacked, exists := c.Get(ContextKeyHijacked)
	return exists && hijacked.(bool)
}

// GinLogger returns a Gin middleware that logs requests using zerolog
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		// Reading c.Writer.Status() on a hijacked connection writes headers
		if IsHijacked(c) {
			return
		}

		// Long-lived SSE streams are logged by their handler instead
		if strings.HasSuffix(path, "/notifications/stream") {
			return
		}

		latency := time.Since(start)
		status := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		if raw != "" {
			path = path + "?" + raw
		}

		// Log based on status code
		event := httpLogger.Info()
		if status >= 500 {
			event = httpLogger.Error()
		} else if status >= 400 {
			event = httpLogger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Str("ip", c.ClientIP())

		if errorMessage != "" {
			event.Str("error", errorMessage)
		}

		event.Msg("request")
	}
}
