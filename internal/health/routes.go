package health

import (
	"github.com/aqua-monitor/aqua-alert/internal/api/handlers"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterHealthRoutes registers health check and info endpoints
func RegisterHealthRoutes(router *gin.Engine, db *gorm.DB, version string) {
	healthHandler := handlers.NewHealthHandler(db, version)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/health/live", healthHandler.GetLiveness)
	router.GET("/api/info", healthHandler.GetAPIInfo)
}
