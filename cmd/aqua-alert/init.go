package main

import (
	"context"

	"github.com/aqua-monitor/aqua-alert/internal/app"
	"github.com/aqua-monitor/aqua-alert/internal/config"
	"github.com/aqua-monitor/aqua-alert/internal/dispatch"
	"github.com/aqua-monitor/aqua-alert/internal/ingest"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/notifier"
	"github.com/aqua-monitor/aqua-alert/internal/pool"
	"github.com/aqua-monitor/aqua-alert/internal/prediction"
	"github.com/aqua-monitor/aqua-alert/internal/processor"
	"github.com/aqua-monitor/aqua-alert/internal/repository"
	"github.com/aqua-monitor/aqua-alert/internal/service"
	"github.com/aqua-monitor/aqua-alert/internal/storage"
	"github.com/aqua-monitor/aqua-alert/internal/websocket"
	"gorm.io/gorm"
)

type repositories struct {
	alerts   repository.AlertRepo
	devices  repository.DeviceRepo
	readings repository.ReadingRepo
}

// initDatabase opens the configured database; migrations run inside storage.Open
func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := storage.Open(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("driver", cfg.Driver).Msg("Database initialized")
	return db, nil
}

func initRepositories(db *gorm.DB) repositories {
	logger.Info().Msg("Repositories initialized (gorm)")
	return repositories{
		alerts:   repository.NewGormAlertRepo(db),
		devices:  repository.NewGormDeviceRepo(db),
		readings: repository.NewGormReadingRepo(db),
	}
}

// initEventBus initializes the alert lifecycle event bus
func initEventBus(ctx context.Context) *processor.EventBus {
	eventBus := processor.NewEventBus()
	eventBus.Start(ctx)
	logger.Info().Msg("Alert event bus started")
	return eventBus
}

// initWebSocketHub starts the realtime hub and relays alert events through it
func initWebSocketHub(ctx context.Context, cfg config.WebSocketConfig, eventBus *processor.EventBus) *websocket.Hub {
	wsHub := websocket.NewHub(cfg.AllowedOrigins)
	eventBus.Subscribe(wsHub)
	go wsHub.Run(ctx)
	logger.Info().Strs("allowed_origins", cfg.AllowedOrigins).Msg("WebSocket hub started")
	return wsHub
}

func initDispatchEngine(cfg *config.Config, repos repositories) *dispatch.Engine {
	sender := notifier.NewSender(cfg.Email)
	if cfg.Email.Enabled {
		logger.Info().
			Str("smtp_host", cfg.Email.SMTPHost).
			Str("to", cfg.Dispatch.Recipient).
			Msg("Email notifications enabled")
	} else {
		logger.Info().Msg("Email notifications disabled, batches will be logged only")
	}

	return dispatch.NewEngine(repos.alerts, repos.devices, repos.readings, sender,
		dispatch.NewRenderer(cfg.Dispatch.DashboardURL), cfg.Dispatch.Recipient)
}

func initScheduler(ctx context.Context, engine *dispatch.Engine, cfg config.DispatchConfig) (*dispatch.Scheduler, error) {
	scheduler, err := dispatch.NewScheduler(engine, cfg)
	if err != nil {
		return nil, err
	}
	scheduler.Start(ctx)
	logger.Info().
		Str("warning_schedule", cfg.WarningSchedule).
		Str("critical_schedule", cfg.CriticalSchedule).
		Msg("Dispatch schedules registered")
	return scheduler, nil
}

func initPredictionClient(cfg config.PredictionConfig) *prediction.Client {
	client := prediction.NewClient(cfg, prediction.NewJSONCodec())
	logger.Info().Str("base_url", cfg.BaseURL).Dur("timeout", cfg.Timeout()).Msg("Prediction client initialized")
	return client
}

// initStateMachine wires the alert state machine to the event bus and the immediate CRITICAL path
func initStateMachine(repos repositories, eventBus *processor.EventBus, engine *dispatch.Engine) *processor.AlertStateMachine {
	machine := processor.NewAlertStateMachine(repos.alerts, eventBus)
	machine.SetCriticalTrigger(engine)
	return machine
}

func initWorkerPool(ctx context.Context, cfg config.PoolConfig) *pool.WorkerPool {
	workerPool := pool.NewWorkerPool(cfg.Workers, cfg.QueueSize)
	workerPool.Start(ctx)
	logger.Info().Int("workers", cfg.Workers).Int("queue_size", cfg.QueueSize).Msg("Prediction worker pool started")
	return workerPool
}

// initSubscriber connects the MQTT adapter when enabled.
// A broker outage at startup leaves HTTP ingestion available.
func initSubscriber(ctx context.Context, cfg config.MQTTConfig, handler ingest.ReadingHandler) *ingest.Subscriber {
	if !cfg.Enabled {
		logger.Info().Msg("MQTT ingestion disabled in configuration")
		return nil
	}
	subscriber := ingest.NewSubscriber(cfg, handler)
	if err := subscriber.Start(ctx); err != nil {
		logger.Error().Err(err).Str("broker", cfg.Broker).Msg("MQTT ingestion unavailable")
		return nil
	}
	return subscriber
}

// initDependencies creates and validates the dependencies container
func initDependencies(
	db *gorm.DB,
	repos repositories,
	scheduler *dispatch.Scheduler,
	pipeline *processor.Pipeline,
	engine *dispatch.Engine,
	predictor *prediction.Client,
	wsHub *websocket.Hub,
) (*app.Dependencies, error) {
	alertService := service.NewAlertService(repos.alerts, scheduler)
	deps, err := app.NewDependencies(db, alertService, pipeline, engine, predictor, wsHub, version)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("Dependencies container initialized")
	return deps, nil
}

// closeDatabase closes the database connection
func closeDatabase(db *gorm.DB) {
	storage.Close(db)
	logger.Info().Msg("Database connection closed")
}
