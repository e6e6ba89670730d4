package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "CRYPTO_SENTINEL"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return unmarshal(v)
}

// LoadWithDefaults loads configuration with default values for every field.
// A missing config file is tolerated; an optional .env file is loaded first.
func LoadWithDefaults(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	SetDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// SetDefaults registers the default value of every configuration key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "crypto-sentinel")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.data_dir", "./data")

	v.SetDefault("server.port", "8000")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 60)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "crypto_sentinel")
	v.SetDefault("database.user", "sentinel")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("price_source.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price_source.coin_id", "bitcoin")
	v.SetDefault("price_source.vs_currency", "usd")
	v.SetDefault("price_source.symbol", "BTCUSDT")
	v.SetDefault("price_source.api_key", "")
	v.SetDefault("price_source.timeout_seconds", 10)
	v.SetDefault("price_source.max_retries", 3)
	v.SetDefault("price_source.rate_limit", 0.5)
	v.SetDefault("price_source.circuit_breaker_max", 5)
	v.SetDefault("price_source.quote_cache_seconds", 30)
	v.SetDefault("price_source.history_hours", 24)
	v.SetDefault("price_source.inference_history_hours", 6)

	v.SetDefault("prediction.horizon_minutes", 30)
	v.SetDefault("prediction.tolerance_pct", 0.1)
	v.SetDefault("prediction.match_window_minutes", 5)
	v.SetDefault("prediction.sampling_minutes", 5)
	v.SetDefault("prediction.min_training_rows", 50)
	v.SetDefault("prediction.training_row_limit", 1000)
	v.SetDefault("prediction.n_clusters", 4)
	v.SetDefault("prediction.rsi_period", 14)
	v.SetDefault("prediction.macd_fast", 12)
	v.SetDefault("prediction.macd_slow", 26)
	v.SetDefault("prediction.macd_signal", 9)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("scheduler.feature_interval_minutes", 5)
	v.SetDefault("scheduler.training_interval_minutes", 30)
	v.SetDefault("scheduler.inference_interval_minutes", 5)
	v.SetDefault("scheduler.training_timeout_minutes", 20)

	v.SetDefault("ledger.capacity", 50)
	v.SetDefault("ledger.alert_capacity", 100)
	v.SetDefault("ledger.file_path", "./data/predictions_history.json")
	v.SetDefault("ledger.remote_mirror_enabled", true)
	v.SetDefault("ledger.rehydrate_limit", 50)
	v.SetDefault("ledger.rehydrate_hours", 2)

	v.SetDefault("drift.threshold", 0.3)
	v.SetDefault("drift.p_value", 0.05)
	v.SetDefault("drift.methods", []string{"domain_classifier", "ks_test"})
	v.SetDefault("drift.min_rows", 20)

	v.SetDefault("alerts.price_change_medium_pct", 5.0)
	v.SetDefault("alerts.price_change_high_pct", 10.0)
	v.SetDefault("alerts.volatility_medium", 0.5)
	v.SetDefault("alerts.volatility_high", 0.8)
	v.SetDefault("alerts.deviation_pct", 3.0)
	v.SetDefault("alerts.drawdown_medium_pct", 10.0)
	v.SetDefault("alerts.drawdown_high_pct", 20.0)

	v.SetDefault("registry.model_name", "crypto_model_bundle")
	v.SetDefault("registry.model_dir", "./models/saved")
	v.SetDefault("registry.active_model_dir", "./models/active")
	v.SetDefault("registry.remote_enabled", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("events.kafka_enabled", false)
	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", "crypto-sentinel.events")

	v.SetDefault("notifications.discord_webhook_url", "")
	v.SetDefault("notifications.slack_webhook_url", "")
	v.SetDefault("notifications.telegram_bot_token", "")
	v.SetDefault("notifications.telegram_chat_id", 0)
	v.SetDefault("notifications.min_severity", "high")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.daemon_addr", "127.0.0.1:2000")
}

// ReloadFromEnv reloads the configuration when CRYPTO_SENTINEL_CONFIG_PATH is set
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv(envPrefix + "_CONFIG_PATH"); envPath != "" {
		newCfg, err := LoadWithDefaults(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}

	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}
