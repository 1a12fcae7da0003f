package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	// API group
	api := r.Group("/api")
	api.Use(SecretKeyMiddleware(h.server.Config().SecretKey))

	// Session routes
	api.GET("/sessions", h.ListSessions)
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions/insights", h.GetSessionInsights)
	api.GET("/sessions/activity-heatmap", h.GetActivityHeatmap)
	api.GET("/sessions/:id", h.GetSession)
	api.DELETE("/sessions/:id", h.DeleteSession)
	api.POST("/sessions/:id/messages", h.AppendMessage)
	api.PUT("/sessions/:id/title", h.UpdateSessionTitle)

	// Notifications (SSE and WebSocket)
	api.GET("/notifications/stream", h.NotificationStream)
	api.GET("/notifications/ws", h.NotificationWebSocket)
}
