// Package main provides the entry point for the CryptoSentinel server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/api"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/app"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/metrics"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/scheduler"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/tracing"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig(ctx, *configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := app.NewLogger(cfg)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("CryptoSentinel starting")

	if err := tracing.Initialize(tracing.Config{
		ServiceName:    cfg.App.Name,
		ServiceVersion: Version,
		Enabled:        cfg.Tracing.Enabled,
		DaemonAddr:     cfg.Tracing.DaemonAddr,
	}, appLog); err != nil {
		appLog.WithError(err).Warn("Tracing disabled")
	}

	a, err := app.Build(ctx, cfg, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to build components")
	}
	defer a.Close()

	a.Service.Init(ctx)

	sched := scheduler.New(appLog)
	if err := a.Service.RegisterLanes(sched); err != nil {
		appLog.WithError(err).Fatal("Failed to register scheduler lanes")
	}

	apiCfg := api.Config{
		ServiceName:  cfg.App.Name,
		Version:      Version,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		Logger:       appLog,
		Hub:          a.Hub,
	}
	if a.DB != nil {
		apiCfg.DB = a.DB
	}
	server := api.NewServer(apiCfg, a.Service)
	if err := server.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start API server")
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, appLog)
	}

	if cfg.Scheduler.Enabled {
		if err := sched.Start(cfg.Scheduler.RunOnStart); err != nil {
			appLog.WithError(err).Fatal("Failed to start scheduler")
		}
	} else {
		appLog.Info("Scheduler disabled; pipelines run only on demand")
	}

	server.SetReady(true)
	appLog.WithField("port", cfg.Server.Port).Info("CryptoSentinel is running")

	<-ctx.Done()
	appLog.Info("Shutdown signal received")
	server.SetReady(false)

	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Failed to stop scheduler")
	}
	if err := server.Shutdown(); err != nil {
		appLog.WithError(err).Error("Failed to shut down API server")
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Failed to shut down metrics server")
		}
		cancel()
	}

	// scheduled runs persist as they go; this covers on-demand ones
	a.Ledger.Persist(context.Background())
	appLog.Info("CryptoSentinel stopped")
}

func startMetricsServer(port int, path string, appLog *logrus.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		appLog.WithFields(logrus.Fields{"port": port, "path": path}).Info("Metrics server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Error("Metrics server error")
		}
	}()
	return srv
}
