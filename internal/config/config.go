package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Email      EmailConfig      `yaml:"email"`
	Prediction PredictionConfig `yaml:"prediction"`
	Pool       PoolConfig       `yaml:"pool"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
}

type ServerConfig struct {
	ReadTimeout  int `yaml:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout"`
	Port         int `yaml:"port"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // postgres or sqlite
	AutoMigrate bool   `yaml:"auto_migrate"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"sslmode"`
	SQLitePath  string `yaml:"sqlite_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type EmailConfig struct {
	Enabled            bool   `yaml:"enabled"`
	SMTPHost           string `yaml:"smtp_host"`
	SMTPPort           int    `yaml:"smtp_port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	From               string `yaml:"from"`
	SendTimeoutSeconds int    `yaml:"send_timeout_seconds"`
}

// PredictionConfig points at the remote water-quality model service
type PredictionConfig struct {
	BaseURL        string `yaml:"base_url"`
	Endpoint       string `yaml:"endpoint"`
	HealthPath     string `yaml:"health_path"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PoolConfig sizes the prediction worker pool
type PoolConfig struct {
	Workers              int `yaml:"workers"`
	QueueSize            int `yaml:"queue_size"`
	ShutdownGraceSeconds int `yaml:"shutdown_grace_seconds"`
}

// DispatchConfig controls batched alert notifications.
// Schedules are six-field cron expressions (seconds first).
type DispatchConfig struct {
	Recipient        string `yaml:"recipient"`
	WarningSchedule  string `yaml:"warning_schedule"`
	CriticalSchedule string `yaml:"critical_schedule"`
	DashboardURL     string `yaml:"dashboard_url"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      int    `yaml:"qos"`
}

type WebSocketConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// overrideFromEnv overrides config values with environment variables
func overrideFromEnv(cfg *Config) {
	// Server configuration
	if port := os.Getenv("SERVER_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &cfg.Server.Port)
	}
	if readTimeout := os.Getenv("SERVER_READ_TIMEOUT"); readTimeout != "" {
		fmt.Sscanf(readTimeout, "%d", &cfg.Server.ReadTimeout)
	}
	if writeTimeout := os.Getenv("SERVER_WRITE_TIMEOUT"); writeTimeout != "" {
		fmt.Sscanf(writeTimeout, "%d", &cfg.Server.WriteTimeout)
	}

	// Database configuration
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		cfg.Database.Driver = driver
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &cfg.Database.Port)
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("POSTGRES_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		cfg.Database.Database = db
	}
	if sslmode := os.Getenv("POSTGRES_SSLMODE"); sslmode != "" {
		cfg.Database.SSLMode = sslmode
	}
	if autoMigrate := os.Getenv("DB_AUTO_MIGRATE"); autoMigrate != "" {
		cfg.Database.AutoMigrate = strings.ToLower(autoMigrate) == "true"
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		cfg.Database.SQLitePath = path
	}

	// Logging configuration
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	// Email configuration
	if enabled := os.Getenv("EMAIL_ENABLED"); enabled != "" {
		cfg.Email.Enabled = strings.ToLower(enabled) == "true"
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		cfg.Email.SMTPHost = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &cfg.Email.SMTPPort)
	}
	if from := os.Getenv("SMTP_FROM"); from != "" {
		cfg.Email.From = from
	}
	if username := os.Getenv("SMTP_USERNAME"); username != "" {
		cfg.Email.Username = username
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		cfg.Email.Password = password
	}
	if timeout := os.Getenv("SMTP_SEND_TIMEOUT"); timeout != "" {
		fmt.Sscanf(timeout, "%d", &cfg.Email.SendTimeoutSeconds)
	}

	// Prediction service
	if url := os.Getenv("AI_SERVER_URL"); url != "" {
		cfg.Prediction.BaseURL = url
	}
	if endpoint := os.Getenv("AI_PREDICTION_ENDPOINT"); endpoint != "" {
		cfg.Prediction.Endpoint = endpoint
	}
	if timeout := os.Getenv("AI_SERVER_TIMEOUT"); timeout != "" {
		fmt.Sscanf(timeout, "%d", &cfg.Prediction.TimeoutSeconds)
	}

	// Worker pool
	if workers := os.Getenv("POOL_WORKERS"); workers != "" {
		fmt.Sscanf(workers, "%d", &cfg.Pool.Workers)
	}
	if queue := os.Getenv("POOL_QUEUE_SIZE"); queue != "" {
		fmt.Sscanf(queue, "%d", &cfg.Pool.QueueSize)
	}

	// Dispatch
	if recipient := os.Getenv("ALERT_EMAIL_RECIPIENT"); recipient != "" {
		cfg.Dispatch.Recipient = recipient
	}
	if schedule := os.Getenv("DISPATCH_WARNING_SCHEDULE"); schedule != "" {
		cfg.Dispatch.WarningSchedule = schedule
	}
	if schedule := os.Getenv("DISPATCH_CRITICAL_SCHEDULE"); schedule != "" {
		cfg.Dispatch.CriticalSchedule = schedule
	}

	// MQTT
	if enabled := os.Getenv("MQTT_ENABLED"); enabled != "" {
		cfg.MQTT.Enabled = strings.ToLower(enabled) == "true"
	}
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		cfg.MQTT.Broker = broker
	}
	if topic := os.Getenv("MQTT_TOPIC"); topic != "" {
		cfg.MQTT.Topic = topic
	}

	if origins := os.Getenv("WS_ALLOWED_ORIGINS"); origins != "" {
		cfg.WebSocket.AllowedOrigins = strings.Split(origins, ",")
	}
}

// applyDefaults fills in zero values
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "aqua-alert.db"
	}
	if cfg.Prediction.Endpoint == "" {
		cfg.Prediction.Endpoint = "/predict/all_with_sensors"
	}
	if cfg.Prediction.HealthPath == "" {
		cfg.Prediction.HealthPath = "/health"
	}
	if cfg.Email.SendTimeoutSeconds <= 0 {
		cfg.Email.SendTimeoutSeconds = 30
	}
	if cfg.Prediction.TimeoutSeconds <= 0 {
		cfg.Prediction.TimeoutSeconds = 10
	}
	if cfg.Pool.Workers <= 0 {
		cfg.Pool.Workers = 3
	}
	if cfg.Pool.QueueSize <= 0 {
		cfg.Pool.QueueSize = 10
	}
	if cfg.Pool.ShutdownGraceSeconds <= 0 {
		cfg.Pool.ShutdownGraceSeconds = 60
	}
	if cfg.Dispatch.Recipient == "" {
		cfg.Dispatch.Recipient = "admin@company.com"
	}
	if cfg.Dispatch.WarningSchedule == "" {
		cfg.Dispatch.WarningSchedule = "0 0 * * * *"
	}
	if cfg.Dispatch.CriticalSchedule == "" {
		cfg.Dispatch.CriticalSchedule = "0 */5 * * * *"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "water/sensors"
	}
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present (env vars take priority)
	overrideFromEnv(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// ConnectionString returns the PostgreSQL connection string
func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

// MaxConnections returns max connections (default 25)
func (d DatabaseConfig) MaxConnections() int {
	return 25
}

// MaxIdleConnections returns max idle connections (default 5)
func (d DatabaseConfig) MaxIdleConnections() int {
	return 5
}

// ConnectionLifetime returns connection lifetime (default 5 minutes)
func (d DatabaseConfig) ConnectionLifetime() time.Duration {
	return 5 * time.Minute
}

// MigrationSourceURL returns the migration source URL
func (d DatabaseConfig) MigrationSourceURL() string {
	return "file://migrations"
}

// MigrationDatabaseURL returns the database URL for migrations
func (d DatabaseConfig) MigrationDatabaseURL() string {
	password := strings.ReplaceAll(d.Password, "@", "%40")
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, password, d.Host, d.Port, d.Database, d.SSLMode)
}

// SendTimeout returns the deadline for one SMTP delivery
func (e EmailConfig) SendTimeout() time.Duration {
	if e.SendTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.SendTimeoutSeconds) * time.Second
}

// Timeout returns the prediction call timeout
func (p PredictionConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// ShutdownGrace returns how long in-flight predictions may drain on shutdown
func (p PoolConfig) ShutdownGrace() time.Duration {
	return time.Duration(p.ShutdownGraceSeconds) * time.Second
}
