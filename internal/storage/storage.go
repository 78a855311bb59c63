package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/config"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured database and prepares the schema
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		return openPostgres(cfg)
	case DriverSQLite:
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func openPostgres(cfg config.DatabaseConfig) (*gorm.DB, error) {
	// Log connection attempt (without password)
	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("user", cfg.User).
		Str("database", cfg.Database).
		Str("sslmode", cfg.SSLMode).
		Msg("Connecting to PostgreSQL database...")

	db, err := gorm.Open(postgres.Open(cfg.ConnectionString()), gormConfig())
	if err != nil {
		logger.Error().
			Err(err).
			Str("host", cfg.Host).
			Int("port", cfg.Port).
			Str("database", cfg.Database).
			Msg("Failed to connect to PostgreSQL")
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxConnections())
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections())
	sqlDB.SetConnMaxLifetime(cfg.ConnectionLifetime())

	if err := sqlDB.Ping(); err != nil {
		logger.Error().
			Err(err).
			Str("host", cfg.Host).
			Int("port", cfg.Port).
			Msg("Failed to ping PostgreSQL")
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections()).
		Int("max_idle_connections", cfg.MaxIdleConnections()).
		Dur("connection_lifetime", cfg.ConnectionLifetime()).
		Msg("Successfully connected to PostgreSQL")

	if cfg.AutoMigrate {
		if err := RunMigrations(cfg); err != nil {
			logger.Warn().Err(err).Msg("Failed to run migrations automatically")
		}
	}

	return db, nil
}

// OpenSQLite opens a SQLite database and auto-migrates the schema.
// ":memory:" is limited to one connection so every query sees the same database.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	logger.Info().Str("path", path).Msg("SQLite database ready")
	return db, nil
}

// AutoMigrate creates the pipeline tables from the gorm models
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Device{}, &models.Reading{}, &models.Alert{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// RunMigrations applies the versioned SQL migrations with golang-migrate
func RunMigrations(cfg config.DatabaseConfig) error {
	m, err := migrate.New(cfg.MigrationSourceURL(), cfg.MigrationDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info().Msg("No new migrations to apply")
	} else {
		logger.Info().Msg("Database migrations applied successfully")
	}
	return nil
}

// HealthCheck checks if the database connection is healthy
func HealthCheck(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database instance is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func Close(db *gorm.DB) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	sqlDB.Close()
}
