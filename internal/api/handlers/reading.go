package handlers

import (
	"context"
	"net/http"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/ingest"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/gin-gonic/gin"
)

// ReadingIngester accepts validated readings into the pipeline
type ReadingIngester interface {
	HandleReading(ctx context.Context, reading *models.Reading) error
}

// ReadingHandler accepts telemetry over HTTP
type ReadingHandler struct {
	ingester ReadingIngester
}

func NewReadingHandler(ingester ReadingIngester) *ReadingHandler {
	return &ReadingHandler{ingester: ingester}
}

// PostReading handles POST /api/readings
func (h *ReadingHandler) PostReading(c *gin.Context) {
	var payload ingest.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reading, err := payload.ToReading()
	if err == nil {
		err = h.ingester.HandleReading(c.Request.Context(), reading)
	}

	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{
			"status":   "accepted",
			"deviceId": reading.DeviceID,
			"id":       reading.ID,
		})
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error().Err(err).Str("device_id", payload.DeviceID).Msg("Failed to accept reading")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
