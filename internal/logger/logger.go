// Package logger provides a wrapper around logrus for structured logging.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a new configured logger instance.
// The ENVIRONMENT variable selects the production JSON format.
func NewLogger(logLevel string) *logrus.Logger {
	return NewLoggerForEnvironment(logLevel, os.Getenv("ENVIRONMENT"))
}

// NewLoggerForEnvironment creates a logger for the named environment.
func NewLoggerForEnvironment(logLevel, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if environment == "production" || os.Getenv("ENVIRONMENT") == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logger.Warnf("Invalid log level '%s', defaulting to info", logLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
