package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/aqua-monitor/aqua-alert/internal/dispatch"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/aqua-monitor/aqua-alert/internal/service"
	"github.com/gin-gonic/gin"
)

// Dispatcher runs notification sweeps on demand
type Dispatcher interface {
	Dispatch(ctx context.Context, severity models.Severity) (dispatch.SweepResult, error)
	DispatchAll(ctx context.Context) (map[models.Severity]dispatch.SweepResult, error)
}

// DispatchHandler exposes dispatch status and manual sweeps
type DispatchHandler struct {
	service    service.AlertService
	dispatcher Dispatcher
}

func NewDispatchHandler(service service.AlertService, dispatcher Dispatcher) *DispatchHandler {
	return &DispatchHandler{
		service:    service,
		dispatcher: dispatcher,
	}
}

// GetStatus handles GET /api/dispatch/status
func (h *DispatchHandler) GetStatus(c *gin.Context) {
	status, err := h.service.GetDispatchStatus(c.Request.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build dispatch status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}

// Trigger handles POST /api/dispatch/:severity (warning, critical or all)
func (h *DispatchHandler) Trigger(c *gin.Context) {
	target := strings.ToLower(c.Param("severity"))
	// a sent batch must still be marked if the client goes away
	ctx := context.WithoutCancel(c.Request.Context())

	if target == "all" {
		results, err := h.dispatcher.DispatchAll(ctx)
		body := gin.H{"results": sweepsByName(results)}
		if err != nil {
			body["error"] = err.Error()
			c.JSON(http.StatusBadGateway, body)
			return
		}
		c.JSON(http.StatusOK, body)
		return
	}

	severity, err := models.ParseSeverity(target)
	if err != nil || !severity.IsAbnormal() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "severity must be warning, critical or all"})
		return
	}

	result, err := h.dispatcher.Dispatch(ctx, severity)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"result": result, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func sweepsByName(results map[models.Severity]dispatch.SweepResult) map[string]dispatch.SweepResult {
	out := make(map[string]dispatch.SweepResult, len(results))
	for sev, res := range results {
		out[sev.String()] = res
	}
	return out
}
