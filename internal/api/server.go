// Package api serves the sentinel's JSON HTTP API, health probes and the
// websocket event stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/features"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/ml"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/service"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/tracing"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	HealthCheck(ctx context.Context) error
}

// Service is what the routes read from and trigger.
type Service interface {
	CurrentPrice(ctx context.Context) (*models.PriceQuote, error)
	PriceHistory(ctx context.Context, hours int) ([]models.PricePoint, error)
	CurrentPrediction(ctx context.Context) (*models.PredictionRecord, error)
	PredictionHistory(limit int) []*models.PredictionRecord
	Accuracy() models.AccuracySummary
	ValidateNow(ctx context.Context) service.ValidationReport
	ModelMetadata() (*models.ModelInfo, error)
	Drift() (models.DriftReport, bool)
	DriftReports(limit int) []models.DriftReport
	DriftSummary() models.DriftSummary
	MarketData(ctx context.Context) (*models.MarketSnapshot, error)
	ModelImportance(name string) (*ml.FeatureImportance, error)
	Explainability(ctx context.Context) (*ml.Explanation, error)
	Trend(ctx context.Context) (features.TrendReport, error)
	EDA(ctx context.Context) (*features.EDAReport, error)
	Alerts(limit int) []models.AlertRecord
	AlertSummary() models.AlertSummary
	RunPipeline(ctx context.Context, name string) (interface{}, error)
	Status() models.PipelineStatus
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Config holds the configuration for the API server.
type Config struct {
	ServiceName  string
	Version      string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *logrus.Logger
	DB           DatabasePinger
	Hub          *Hub
}

// Server is the HTTP API server.
type Server struct {
	serviceName  string
	version      string
	port         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	svc          Service
	db           DatabasePinger
	hub          *Hub
	server       *http.Server
	logger       *logrus.Entry
	mu           sync.RWMutex
	ready        bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// NewServer creates a new API server. The server starts not ready.
func NewServer(cfg Config, svc Service) *Server {
	port := cfg.Port
	if port == "" {
		port = "8000"
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	return &Server{
		serviceName:  cfg.ServiceName,
		version:      cfg.Version,
		port:         port,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		svc:          svc,
		db:           cfg.DB,
		hub:          cfg.Hub,
		logger:       cfg.Logger.WithField("component", "api"),
	}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /live", s.handleLive)

	mux.HandleFunc("GET /price/current", s.handleCurrentPrice)
	mux.HandleFunc("GET /price/history", s.handlePriceHistory)
	mux.HandleFunc("GET /price/market", s.handleMarketData)

	mux.HandleFunc("GET /prediction/current", s.handleCurrentPrediction)
	mux.HandleFunc("GET /prediction/history", s.handlePredictionHistory)
	mux.HandleFunc("GET /prediction/accuracy", s.handleAccuracy)
	mux.HandleFunc("POST /prediction/validate", s.handleValidate)

	mux.HandleFunc("GET /model/metrics", s.handleModelMetrics)
	mux.HandleFunc("GET /model/importance", s.handleModelImportance)
	mux.HandleFunc("GET /model/explainability", s.handleExplainability)

	mux.HandleFunc("GET /analysis/trend", s.handleTrend)
	mux.HandleFunc("GET /analysis/eda", s.handleEDA)

	mux.HandleFunc("GET /drift", s.handleDrift)
	mux.HandleFunc("GET /drift/reports", s.handleDriftReports)
	mux.HandleFunc("GET /drift/summary", s.handleDriftSummary)

	mux.HandleFunc("GET /alerts", s.handleAlerts)
	mux.HandleFunc("GET /alerts/summary", s.handleAlertSummary)

	mux.HandleFunc("POST /pipeline/{name}", s.handleRunPipeline)
	mux.HandleFunc("GET /pipeline/status", s.handlePipelineStatus)

	traced := tracing.Middleware(s.serviceName, mux)
	if s.hub == nil {
		return s.recoverer(traced)
	}

	// the websocket stream hijacks the connection and stays outside tracing
	root := http.NewServeMux()
	root.Handle("GET /ws/events", s.hub)
	root.Handle("/", traced)
	return s.recoverer(root)
}

// Start starts the server in the background and shuts it down when ctx ends.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithFields(logrus.Fields{
			"port":    s.port,
			"service": s.serviceName,
		}).Info("API server starting")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.logger.WithError(err).Warn("API server shutdown incomplete")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server and disconnects websocket
// clients. Only the first call has an effect.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.shutdownOnce.Do(func() {
		s.logger.Info("API server shutting down")
		if s.hub != nil {
			s.hub.Close()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.shutdownErr = s.server.Shutdown(ctx)
	})
	return s.shutdownErr
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.WithFields(logrus.Fields{
					"path":  r.URL.Path,
					"panic": fmt.Sprint(rec),
				}).Error("Handler panicked")
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// handleHealth handles the /health endpoint - basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
	})
}

// handleLive handles the /live endpoint - kubernetes liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: s.serviceName})
}

// handleReady handles the /ready endpoint - checks database connectivity.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !s.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := s.db.HealthCheck(ctx); err != nil {
			allHealthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	response := ReadyResponse{
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	if allHealthy {
		response.Status = "ok"
		writeJSON(w, http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	writeJSON(w, http.StatusServiceUnavailable, response)
}
