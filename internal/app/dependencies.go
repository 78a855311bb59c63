package app

import (
	"fmt"

	"github.com/aqua-monitor/aqua-alert/internal/api/handlers"
	"github.com/aqua-monitor/aqua-alert/internal/service"
	"github.com/aqua-monitor/aqua-alert/internal/websocket"
	"gorm.io/gorm"
)

// Dependencies holds everything the HTTP surface needs
type Dependencies struct {
	DB           *gorm.DB
	AlertService service.AlertService
	Ingester     handlers.ReadingIngester
	Dispatcher   handlers.Dispatcher
	Prediction   handlers.PredictionHealthChecker
	WSHub        *websocket.Hub
	Version      string
}

// NewDependencies creates a new dependencies container with validation
func NewDependencies(
	db *gorm.DB,
	alertService service.AlertService,
	ingester handlers.ReadingIngester,
	dispatcher handlers.Dispatcher,
	prediction handlers.PredictionHealthChecker,
	wsHub *websocket.Hub,
	version string,
) (*Dependencies, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if alertService == nil {
		return nil, fmt.Errorf("alert service is required")
	}
	if ingester == nil {
		return nil, fmt.Errorf("reading ingester is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if prediction == nil {
		return nil, fmt.Errorf("prediction health checker is required")
	}
	if wsHub == nil {
		return nil, fmt.Errorf("websocket hub is required")
	}
	if version == "" {
		version = "dev"
	}

	return &Dependencies{
		DB:           db,
		AlertService: alertService,
		Ingester:     ingester,
		Dispatcher:   dispatcher,
		Prediction:   prediction,
		WSHub:        wsHub,
		Version:      version,
	}, nil
}
