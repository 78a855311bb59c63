package api

import (
	"github.com/aqua-monitor/aqua-alert/internal/api/handlers"
	"github.com/aqua-monitor/aqua-alert/internal/app"
	"github.com/aqua-monitor/aqua-alert/internal/health"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all application routes using dependencies container
func RegisterRoutes(deps *app.Dependencies, router *gin.Engine) {
	// Health routes (no authentication required)
	health.RegisterHealthRoutes(router, deps.DB, deps.Version)

	alertHandler := handlers.NewAlertHandler(deps.AlertService)
	readingHandler := handlers.NewReadingHandler(deps.Ingester)
	dispatchHandler := handlers.NewDispatchHandler(deps.AlertService, deps.Dispatcher)
	predictionHandler := handlers.NewPredictionHandler(deps.Prediction)

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/readings", readingHandler.PostReading)

		alertGroup := apiGroup.Group("/alerts")
		{
			alertGroup.GET("/active", alertHandler.GetActiveAlerts)
			alertGroup.GET("/recent", alertHandler.GetRecentAlerts)
			alertGroup.GET("/pending/count", alertHandler.GetPendingCounts)
		}

		dispatchGroup := apiGroup.Group("/dispatch")
		{
			dispatchGroup.GET("/status", dispatchHandler.GetStatus)
			dispatchGroup.POST("/:severity", dispatchHandler.Trigger)
		}

		apiGroup.GET("/prediction/health", predictionHandler.GetHealth)
	}

	// WebSocket route
	handlers.RegisterWebSocketRoutes(router, deps.WSHub)
}
