package handlers

import (
	"net/http"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db      *gorm.DB
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		version: version,
	}
}

// GetHealth handles GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	dbErr := storage.HealthCheck(h.db)

	status := "healthy"
	code := http.StatusOK
	body := gin.H{}

	if dbErr != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		body["error"] = dbErr.Error()
	}

	body["status"] = status
	body["timestamp"] = time.Now().Format(time.RFC3339)
	body["database"] = gin.H{
		"connected": dbErr == nil,
		"dialect":   dialectOf(h.db),
	}
	c.JSON(code, body)
}

// GetLiveness handles GET /health/live
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// GetAPIInfo handles GET /api/info
func (h *HealthHandler) GetAPIInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "Aqua Alert",
		"version": h.version,
		"status":  "running",
	})
}

func dialectOf(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return ""
	}
	return db.Dialector.Name()
}
