// Package config provides configuration management for the CryptoSentinel service.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App           AppConfig           `mapstructure:"app" validate:"required"`
	Server        ServerConfig        `mapstructure:"server" validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database"`
	PriceSource   PriceSourceConfig   `mapstructure:"price_source" validate:"required"`
	Prediction    PredictionConfig    `mapstructure:"prediction" validate:"required"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler" validate:"required"`
	Ledger        LedgerConfig        `mapstructure:"ledger" validate:"required"`
	Drift         DriftConfig         `mapstructure:"drift" validate:"required"`
	Alerts        AlertsConfig        `mapstructure:"alerts" validate:"required"`
	Registry      RegistryConfig      `mapstructure:"registry" validate:"required"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Events        EventsConfig        `mapstructure:"events"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	DataDir     string `mapstructure:"data_dir" validate:"required"`
}

// ServerConfig represents the HTTP API server
type ServerConfig struct {
	Port                string `mapstructure:"port" validate:"required,numeric"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds" validate:"required,gt=0"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds" validate:"required,gt=0"`
}

// DatabaseConfig represents database connection configuration.
// When Enabled is false the remote ledger mirror, model registry and
// feature store fall back to their local implementations.
type DatabaseConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required_if=Enabled true"`
	User               string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
}

// PriceSourceConfig represents the market data API
type PriceSourceConfig struct {
	BaseURL               string  `mapstructure:"base_url" validate:"required,url"`
	CoinID                string  `mapstructure:"coin_id" validate:"required"`
	VsCurrency            string  `mapstructure:"vs_currency" validate:"required"`
	Symbol                string  `mapstructure:"symbol" validate:"required"`
	APIKey                string  `mapstructure:"api_key"`
	TimeoutSeconds        int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries            int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit             float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	CircuitBreakerMax     int     `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
	QuoteCacheSeconds     int     `mapstructure:"quote_cache_seconds" validate:"gte=0"`
	HistoryHours          int     `mapstructure:"history_hours" validate:"required,gt=0,lte=168"`
	InferenceHistoryHours int     `mapstructure:"inference_history_hours" validate:"required,gt=0,lte=168"`
}

// PredictionConfig represents prediction, validation and training parameters
type PredictionConfig struct {
	HorizonMinutes     int     `mapstructure:"horizon_minutes" validate:"required,gt=0"`
	TolerancePct       float64 `mapstructure:"tolerance_pct" validate:"gte=0"`
	MatchWindowMinutes int     `mapstructure:"match_window_minutes" validate:"required,gt=0"`
	SamplingMinutes    int     `mapstructure:"sampling_minutes" validate:"required,gt=0"`
	MinTrainingRows    int     `mapstructure:"min_training_rows" validate:"required,gt=0"`
	TrainingRowLimit   int     `mapstructure:"training_row_limit" validate:"required,gtfield=MinTrainingRows"`
	NClusters          int     `mapstructure:"n_clusters" validate:"required,gt=0"`
	RSIPeriod          int     `mapstructure:"rsi_period" validate:"required,gt=1"`
	MACDFast           int     `mapstructure:"macd_fast" validate:"required,gt=0"`
	MACDSlow           int     `mapstructure:"macd_slow" validate:"required,gtfield=MACDFast"`
	MACDSignal         int     `mapstructure:"macd_signal" validate:"required,gt=0"`
}

// SchedulerConfig represents the independent scheduling lanes
type SchedulerConfig struct {
	Enabled                  bool `mapstructure:"enabled"`
	RunOnStart               bool `mapstructure:"run_on_start"`
	FeatureIntervalMinutes   int  `mapstructure:"feature_interval_minutes" validate:"required,gt=0"`
	TrainingIntervalMinutes  int  `mapstructure:"training_interval_minutes" validate:"required,gt=0"`
	InferenceIntervalMinutes int  `mapstructure:"inference_interval_minutes" validate:"required,gt=0"`
	TrainingTimeoutMinutes   int  `mapstructure:"training_timeout_minutes" validate:"required,gt=0"`
}

// LedgerConfig represents the prediction and alert ledgers
type LedgerConfig struct {
	Capacity            int    `mapstructure:"capacity" validate:"required,gt=0"`
	AlertCapacity       int    `mapstructure:"alert_capacity" validate:"required,gt=0"`
	FilePath            string `mapstructure:"file_path" validate:"required"`
	RemoteMirrorEnabled bool   `mapstructure:"remote_mirror_enabled"`
	RehydrateLimit      int    `mapstructure:"rehydrate_limit" validate:"required,gt=0"`
	RehydrateHours      int    `mapstructure:"rehydrate_hours" validate:"required,gt=0"`
}

// DriftConfig represents drift detection parameters
type DriftConfig struct {
	Threshold float64  `mapstructure:"threshold" validate:"required,gt=0,lte=1"`
	PValue    float64  `mapstructure:"p_value" validate:"required,gt=0,lt=1"`
	Methods   []string `mapstructure:"methods" validate:"required,min=1,dive,driftmethod"`
	MinRows   int      `mapstructure:"min_rows" validate:"required,gt=1"`
}

// AlertsConfig represents alert rule thresholds
type AlertsConfig struct {
	PriceChangeMediumPct float64 `mapstructure:"price_change_medium_pct" validate:"required,gt=0"`
	PriceChangeHighPct   float64 `mapstructure:"price_change_high_pct" validate:"required,gt=0"`
	VolatilityMedium     float64 `mapstructure:"volatility_medium" validate:"required,gt=0"`
	VolatilityHigh       float64 `mapstructure:"volatility_high" validate:"required,gt=0"`
	DeviationPct         float64 `mapstructure:"deviation_pct" validate:"required,gt=0"`
	DrawdownMediumPct    float64 `mapstructure:"drawdown_medium_pct" validate:"required,gt=0"`
	DrawdownHighPct      float64 `mapstructure:"drawdown_high_pct" validate:"required,gt=0"`
}

// RegistryConfig represents local and remote model bundle storage
type RegistryConfig struct {
	ModelName      string `mapstructure:"model_name" validate:"required"`
	ModelDir       string `mapstructure:"model_dir" validate:"required"`
	ActiveModelDir string `mapstructure:"active_model_dir" validate:"required"`
	RemoteEnabled  bool   `mapstructure:"remote_enabled"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// EventsConfig represents domain event publishing
type EventsConfig struct {
	KafkaEnabled bool     `mapstructure:"kafka_enabled"`
	Brokers      []string `mapstructure:"brokers" validate:"required_if=KafkaEnabled true"`
	Topic        string   `mapstructure:"topic" validate:"required_if=KafkaEnabled true"`
}

// NotificationsConfig represents alert notification channels
type NotificationsConfig struct {
	DiscordWebhookURL string `mapstructure:"discord_webhook_url" validate:"omitempty,url"`
	SlackWebhookURL   string `mapstructure:"slack_webhook_url" validate:"omitempty,url"`
	TelegramBotToken  string `mapstructure:"telegram_bot_token"`
	TelegramChatID    int64  `mapstructure:"telegram_chat_id"`
	MinSeverity       string `mapstructure:"min_severity" validate:"omitempty,oneof=medium high"`
}

// TracingConfig represents AWS X-Ray tracing
type TracingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DaemonAddr string `mapstructure:"daemon_addr" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Horizon returns the prediction horizon.
func (c *PredictionConfig) Horizon() time.Duration {
	return time.Duration(c.HorizonMinutes) * time.Minute
}

// MatchWindow returns the tolerance used when matching realized prices to a target time.
func (c *PredictionConfig) MatchWindow() time.Duration {
	return time.Duration(c.MatchWindowMinutes) * time.Minute
}

// HorizonPeriods returns how many sampling periods the horizon spans.
func (c *PredictionConfig) HorizonPeriods() int {
	periods := c.HorizonMinutes / c.SamplingMinutes
	if periods < 1 {
		return 1
	}
	return periods
}

// Timeout returns the price source request timeout.
func (c *PriceSourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NotificationsEnabled reports whether any alert channel is configured.
func (c *NotificationsConfig) NotificationsEnabled() bool {
	return c.DiscordWebhookURL != "" || c.SlackWebhookURL != "" || (c.TelegramBotToken != "" && c.TelegramChatID != 0)
}
