package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PredictionHealthChecker checks the remote prediction service
type PredictionHealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

type PredictionHandler struct {
	checker PredictionHealthChecker
}

func NewPredictionHandler(checker PredictionHealthChecker) *PredictionHandler {
	return &PredictionHandler{checker: checker}
}

// GetHealth handles GET /api/prediction/health
func (h *PredictionHandler) GetHealth(c *gin.Context) {
	status, code := "UP", http.StatusOK
	if !h.checker.HealthCheck(c.Request.Context()) {
		status, code = "DOWN", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
