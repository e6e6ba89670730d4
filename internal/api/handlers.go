package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/ml"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/predictor"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/scheduler"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/service"
)

const (
	defaultLimit      = 20
	maxLimit          = 100
	defaultHours      = 24
	maxHours          = 168
	defaultDriftLimit = 10
	maxDriftLimit     = 50
)

// queryInt reads an integer query parameter bounded to [lo, hi].
func queryInt(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %d and %d", name, lo, hi)
	}
	return v, nil
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, predictor.ErrNotAvailable),
		errors.Is(err, service.ErrModelsNotLoaded),
		errors.Is(err, ml.ErrNotExplainable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrPriceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, scheduler.ErrUnknownLane),
		errors.Is(err, ml.ErrUnknownModel):
		return http.StatusNotFound
	case errors.Is(err, scheduler.ErrLaneBusy):
		return http.StatusConflict
	case errors.Is(err, ml.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	}
	writeError(w, status, err.Error())
}

func (s *Server) handleCurrentPrice(w http.ResponseWriter, r *http.Request) {
	quote, err := s.svc.CurrentPrice(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	hours, err := queryInt(r, "hours", defaultHours, 1, maxHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := s.svc.PriceHistory(r.Context(), hours)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleCurrentPrediction(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.CurrentPrediction(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePredictionHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.svc.PredictionHistory(limit))
}

func (s *Server) handleAccuracy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Accuracy())
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ValidateNow(r.Context()))
}

func (s *Server) handleModelMetrics(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.ModelMetadata()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.svc.MarketData(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleModelImportance(w http.ResponseWriter, r *http.Request) {
	importance, err := s.svc.ModelImportance(r.URL.Query().Get("model_name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importance)
}

func (s *Server) handleExplainability(w http.ResponseWriter, r *http.Request) {
	explanation, err := s.svc.Explainability(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, explanation)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	trend, err := s.svc.Trend(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (s *Server) handleEDA(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.EDA(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDriftReports(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultDriftLimit, 1, maxDriftLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.svc.DriftReports(limit))
}

func (s *Server) handleDriftSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.DriftSummary())
}

func (s *Server) handleDrift(w http.ResponseWriter, r *http.Request) {
	report, _ := s.svc.Drift()
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Alerts(limit))
}

func (s *Server) handleAlertSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.AlertSummary())
}

func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.RunPipeline(r.Context(), r.PathValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}
