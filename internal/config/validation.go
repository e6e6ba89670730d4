package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Drift detection methods accepted in drift.methods, in the order they are tried.
const (
	DriftMethodDomainClassifier = "domain_classifier"
	DriftMethodKSTest           = "ks_test"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("driftmethod", validateDriftMethod)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateDriftMethod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case DriftMethodDomainClassifier, DriftMethodKSTest:
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Alerts.PriceChangeHighPct <= cfg.Alerts.PriceChangeMediumPct {
		return fmt.Errorf("alerts.price_change_high_pct must exceed price_change_medium_pct")
	}
	if cfg.Alerts.VolatilityHigh <= cfg.Alerts.VolatilityMedium {
		return fmt.Errorf("alerts.volatility_high must exceed volatility_medium")
	}
	if cfg.Alerts.DrawdownHighPct <= cfg.Alerts.DrawdownMediumPct {
		return fmt.Errorf("alerts.drawdown_high_pct must exceed drawdown_medium_pct")
	}

	if cfg.Prediction.TolerancePct >= 100 {
		return fmt.Errorf("prediction.tolerance_pct must be below 100")
	}

	if cfg.Scheduler.InferenceIntervalMinutes > cfg.Prediction.HorizonMinutes {
		return fmt.Errorf("scheduler.inference_interval_minutes cannot exceed prediction.horizon_minutes")
	}

	if cfg.Database.Enabled {
		if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
		if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
			return fmt.Errorf("max_idle_connections cannot exceed max_connections")
		}
	}

	if cfg.Notifications.TelegramBotToken != "" && cfg.Notifications.TelegramChatID == 0 {
		return fmt.Errorf("notifications.telegram_chat_id is required when a telegram bot token is set")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.StructNamespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte", "gtfield":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "driftmethod":
			fmt.Fprintf(&b, "- Field '%s' must be one of: %s, %s\n", field, DriftMethodDomainClassifier, DriftMethodKSTest)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}
