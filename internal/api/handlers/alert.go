package handlers

import (
	"net/http"
	"strconv"

	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/service"
	"github.com/gin-gonic/gin"
)

// AlertHandler handles alert HTTP requests
type AlertHandler struct {
	service service.AlertService
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(service service.AlertService) *AlertHandler {
	return &AlertHandler{
		service: service,
	}
}

// GetActiveAlerts handles GET /api/alerts/active
func (h *AlertHandler) GetActiveAlerts(c *gin.Context) {
	alerts, err := h.service.GetActiveAlerts(c.Request.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load active alerts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetRecentAlerts handles GET /api/alerts/recent
func (h *AlertHandler) GetRecentAlerts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	alerts, err := h.service.GetRecentAlerts(c.Request.Context(), limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load recent alerts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetPendingCounts handles GET /api/alerts/pending/count
func (h *AlertHandler) GetPendingCounts(c *gin.Context) {
	counts, err := h.service.GetPendingCounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, counts)
}
