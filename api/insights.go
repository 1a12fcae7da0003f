package api

import (
	"github.com/gin-gonic/gin"
)

// GetSessionInsights handles GET /api/sessions/insights
func (h *Handlers) GetSessionInsights(c *gin.Context) {
	insights, err := h.server.DB().GetSessionInsights()
	if err != nil {
		sessionsLogger.Error().Err(err).Msg("failed to compute session insights")
		RespondInternalError(c, "Failed to get session insights")
		return
	}
	RespondData(c, insights)
}

// GetActivityHeatmap handles GET /api/sessions/activity-heatmap
func (h *Handlers) GetActivityHeatmap(c *gin.Context) {
	cells, err := h.server.DB().GetActivityHeatmap()
	if err != nil {
		sessionsLogger.Error().Err(err).Msg("failed to compute activity heatmap")
		RespondInternalError(c, "Failed to get activity heatmap")
		return
	}
	RespondList(c, cells)
}
