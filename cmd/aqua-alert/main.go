package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/api"
	"github.com/aqua-monitor/aqua-alert/internal/app"
	"github.com/aqua-monitor/aqua-alert/internal/config"
	"github.com/aqua-monitor/aqua-alert/internal/dispatch"
	"github.com/aqua-monitor/aqua-alert/internal/ingest"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/pool"
	"github.com/aqua-monitor/aqua-alert/internal/processor"
	"github.com/aqua-monitor/aqua-alert/internal/websocket"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var version = "dev"

// Package-level variables for application components
var (
	cfg        *config.Config
	appCtx     context.Context
	appCancel  context.CancelFunc
	db         *gorm.DB
	eventBus   *processor.EventBus
	wsHub      *websocket.Hub
	workerPool *pool.WorkerPool
	engine     *dispatch.Engine
	scheduler  *dispatch.Scheduler
	subscriber *ingest.Subscriber
	deps       *app.Dependencies
)

func init() {
	// 1. Load configuration
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "configs/config.yaml"
	}
	var err error
	cfg, err = config.Load(path)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info().Str("version", version).Msg("Starting Aqua Alert...")

	// 3. Create application context for graceful shutdown
	appCtx, appCancel = context.WithCancel(context.Background())

	// 4. Initialize infrastructure (Database)
	db, err = initDatabase(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	repos := initRepositories(db)

	// 5. Realtime fan-out
	eventBus = initEventBus(appCtx)
	wsHub = initWebSocketHub(appCtx, cfg.WebSocket, eventBus)

	// 6. Notification path: sender, renderer, engine, scheduler
	engine = initDispatchEngine(cfg, repos)
	scheduler, err = initScheduler(appCtx, engine, cfg.Dispatch)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start dispatch scheduler")
	}

	// 7. Prediction path: client, state machine, orchestrator, worker pool
	predictor := initPredictionClient(cfg.Prediction)
	machine := initStateMachine(repos, eventBus, engine)
	workerPool = initWorkerPool(appCtx, cfg.Pool)
	pipeline := processor.NewPipeline(repos.devices, repos.readings, workerPool,
		processor.NewOrchestrator(predictor, wsHub, machine))
	logger.Info().Msg("Ingestion pipeline initialized")

	// 8. Telemetry subscription
	subscriber = initSubscriber(appCtx, cfg.MQTT, pipeline)

	logger.Info().Msg("Pipeline initialized: MQTT/HTTP → Prediction → Alerts → WebSocket + Email")

	// 9. Create dependencies container
	deps, err = initDependencies(db, repos, scheduler, pipeline, engine, predictor, wsHub)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create dependencies container")
	}
}

func main() {
	defer appCancel()

	// Setup HTTP server
	srv := setupHTTPServer()

	// Start HTTP server in background
	startServer(srv)

	logger.Info().Msg("Aqua Alert is running")

	// Wait for shutdown signal
	waitForShutdown()

	// Graceful cleanup
	shutdown(srv)
}

func setupHTTPServer() *http.Server {
	gin.SetMode(gin.ReleaseMode)
	appEngine := gin.New()
	appEngine.Use(gin.Recovery())

	api.RegisterRoutes(deps, appEngine)

	return &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        appEngine,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

func startServer(srv *http.Server) {
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
}

func waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutting down server...")
}

func shutdown(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop accepting readings first
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if subscriber != nil {
		subscriber.Stop()
	}

	// Let in-flight predictions finish within the grace period; queued ones are dropped
	graceCtx, graceCancel := context.WithTimeout(context.Background(), cfg.Pool.ShutdownGrace())
	defer graceCancel()
	if err := workerPool.StopWithTimeout(graceCtx); err != nil {
		logger.Warn().Err(err).Msg("Worker pool did not drain before the grace period")
	}

	// Stop the remaining components in reverse order
	logger.Info().Msg("Stopping pipeline components...")
	scheduler.Stop()
	appCancel()
	eventBus.Stop()
	logger.Info().Msg("All pipeline components stopped")

	// Close database connection
	closeDatabase(db)

	logger.Info().Msg("Server exited successfully")
}
