package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/datasource"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newEngine(capacity int, opts ...Option) *Engine {
	return NewEngine(DefaultThresholds(), capacity, quietLogger(), opts...)
}

func ptr(v float64) *float64 {
	return &v
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Name() string {
	return "mock"
}

func (m *mockNotifier) Notify(ctx context.Context, alert models.AlertRecord) error {
	return m.Called(alert.Type, alert.Severity).Error(0)
}

func TestEvaluatePriceChange(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		fired    bool
		severity models.Severity
		message  string
	}{
		{"below threshold", 104, 100, false, "", ""},
		{"exactly five percent", 105, 100, false, "", ""},
		{"medium rise", 107, 100, true, models.SeverityMedium, "Significant price change: +7.00%"},
		{"high drop", 88, 100, true, models.SeverityHigh, "Significant price change: -12.00%"},
		{"no previous price", 200, 0, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := newEngine(10).Evaluate(context.Background(), tt.current, tt.previous, nil, nil)
			if !tt.fired {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, models.AlertPriceChange, alerts[0].Type)
			assert.Equal(t, tt.severity, alerts[0].Severity)
			assert.Equal(t, tt.message, alerts[0].Message)
		})
	}
}

func TestEvaluateVolatility(t *testing.T) {
	tests := []struct {
		name       string
		volatility *float64
		fired      bool
		severity   models.Severity
	}{
		{"unknown", nil, false, ""},
		{"calm", ptr(0.3), false, ""},
		{"elevated", ptr(0.65), true, models.SeverityMedium},
		{"extreme", ptr(0.95), true, models.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := newEngine(10).Evaluate(context.Background(), 100, 100, nil, tt.volatility)
			if !tt.fired {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, models.AlertHighVolatility, alerts[0].Type)
			assert.Equal(t, tt.severity, alerts[0].Severity)
		})
	}
}

func TestEvaluatePredictionDeviation(t *testing.T) {
	e := newEngine(10)

	near := e.Evaluate(context.Background(), 50000, 50000, &models.PredictionRecord{PredictedPrice: 51000}, nil)
	assert.Empty(t, near)

	far := e.Evaluate(context.Background(), 50000, 50000, &models.PredictionRecord{PredictedPrice: 52000}, nil)
	require.Len(t, far, 1)
	assert.Equal(t, models.AlertPredictionDeviation, far[0].Type)
	assert.Equal(t, models.SeverityMedium, far[0].Severity)
	assert.Equal(t, 4.0, far[0].Metrics["deviation_percent"])
	assert.Equal(t, "Price deviating from prediction: 4.00%", far[0].Message)
}

func TestEvaluateAllRulesFireTogether(t *testing.T) {
	e := newEngine(10)

	alerts := e.Evaluate(context.Background(), 100, 80, &models.PredictionRecord{PredictedPrice: 50}, ptr(0.9))

	require.Len(t, alerts, 3)
	assert.Equal(t, models.AlertPriceChange, alerts[0].Type)
	assert.Equal(t, models.AlertHighVolatility, alerts[1].Type)
	assert.Equal(t, models.AlertPredictionDeviation, alerts[2].Type)
	assert.Equal(t, 3, e.Len())
}

func TestCheckDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		peak     float64
		fired    bool
		severity models.Severity
	}{
		{"no peak", 100, 0, false, ""},
		{"small", 95, 100, false, ""},
		{"exactly ten", 90, 100, false, ""},
		{"medium", 85, 100, true, models.SeverityMedium},
		{"high", 70, 100, true, models.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(10)
			alert := e.CheckDrawdown(context.Background(), tt.current, tt.peak)
			if !tt.fired {
				assert.Nil(t, alert)
				assert.Zero(t, e.Len())
				return
			}
			require.NotNil(t, alert)
			assert.Equal(t, models.AlertDrawdown, alert.Type)
			assert.Equal(t, tt.severity, alert.Severity)
			assert.Equal(t, 1, e.Len())
		})
	}
}

func TestHistoryIsBounded(t *testing.T) {
	e := newEngine(3)
	for i := 0; i < 5; i++ {
		e.CheckDrawdown(context.Background(), float64(80-i), 100)
	}

	history := e.History(0)
	require.Len(t, history, 3)
	assert.Equal(t, 22.0, history[0].Metrics["drawdown_percent"])
	assert.Equal(t, 24.0, history[2].Metrics["drawdown_percent"])

	latest := e.History(2)
	require.Len(t, latest, 2)
	assert.Equal(t, 23.0, latest[0].Metrics["drawdown_percent"])
}

func TestHistoryDoesNotShareMetrics(t *testing.T) {
	e := newEngine(5)
	fired := e.CheckDrawdown(context.Background(), 80, 100)
	require.NotNil(t, fired)
	fired.Metrics["drawdown_percent"] = -1

	first := e.History(0)
	require.Len(t, first, 1)
	first[0].Metrics["drawdown_percent"] = -2

	again := e.History(0)
	assert.Equal(t, 20.0, again[0].Metrics["drawdown_percent"])
}

func TestSummaryAndClear(t *testing.T) {
	e := newEngine(10)

	empty := e.Summary()
	assert.Zero(t, empty.TotalAlerts)
	assert.NotNil(t, empty.ByType)

	e.Evaluate(context.Background(), 100, 80, nil, ptr(0.6))
	e.CheckDrawdown(context.Background(), 70, 100)

	summary := e.Summary()
	assert.Equal(t, 3, summary.TotalAlerts)
	assert.Equal(t, 2, summary.HighSeverity)
	assert.Equal(t, map[models.AlertType]int{
		models.AlertPriceChange:    1,
		models.AlertHighVolatility: 1,
		models.AlertDrawdown:       1,
	}, summary.ByType)

	e.Clear()
	assert.Zero(t, e.Summary().TotalAlerts)
	assert.Empty(t, e.History(10))
}

func TestNotificationSeverityFilter(t *testing.T) {
	notifier := &mockNotifier{}
	notifier.On("Notify", models.AlertDrawdown, models.SeverityHigh).Return(errors.New("channel down"))

	e := newEngine(10, WithNotifiers(models.SeverityHigh, notifier))
	e.CheckDrawdown(context.Background(), 85, 100)
	alert := e.CheckDrawdown(context.Background(), 70, 100)

	require.NotNil(t, alert)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
	assert.Equal(t, 2, e.Len())
}

func TestWebhookNotifiers(t *testing.T) {
	tests := []struct {
		name  string
		build func(url string, client Poster) *WebhookNotifier
		field string
	}{
		{"discord", NewDiscordNotifier, "content"},
		{"slack", NewSlackNotifier, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload map[string]string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			client := datasource.NewRateLimitedHTTPClient(datasource.HTTPClientConfig{
				Timeout:           time.Second,
				RetryWaitMin:      time.Millisecond,
				RetryWaitMax:      time.Millisecond,
				RateLimit:         100,
				CircuitBreakerMax: 5,
			}, nil)
			notifier := tt.build(server.URL, client)

			err := notifier.Notify(context.Background(), models.AlertRecord{
				Type:     models.AlertDrawdown,
				Severity: models.SeverityHigh,
				Message:  "Drawdown from peak: 30.00%",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.name, notifier.Name())
			assert.Equal(t, "[high] drawdown: Drawdown from peak: 30.00%", payload[tt.field])
		})
	}
}

func TestWebhookNotifierRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL, datasource.NewRateLimitedHTTPClient(datasource.HTTPClientConfig{
		Timeout:           time.Second,
		RateLimit:         100,
		CircuitBreakerMax: 5,
	}, nil))

	err := notifier.Notify(context.Background(), models.AlertRecord{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

type fakeSender struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifier(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewTelegramNotifierWithSender(sender, 42)

	err := notifier.Notify(context.Background(), models.AlertRecord{
		Type:     models.AlertPriceChange,
		Severity: models.SeverityMedium,
		Message:  "Significant price change: +7.00%",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Equal(t, "[medium] price_change: Significant price change: +7.00%", sender.sent[0].Text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, notifier.Notify(ctx, models.AlertRecord{}), context.Canceled)
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, models.SeverityMedium, ParseSeverity("medium"))
	assert.Equal(t, models.SeverityHigh, ParseSeverity("high"))
	assert.Equal(t, models.SeverityHigh, ParseSeverity(""))
}
