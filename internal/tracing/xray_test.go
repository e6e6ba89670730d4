package tracing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type okHandler struct{}

func (okHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestDisabledTracingIsNoop(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	require.NoError(t, Initialize(Config{ServiceName: "crypto-sentinel"}, log))
	assert.False(t, Enabled())

	ctx := context.Background()
	got, span := Start(ctx, "feature_pipeline")
	assert.Equal(t, ctx, got)
	assert.NotPanics(t, func() {
		span.Annotate("rows", 12)
		span.End(errors.New("boom"))
	})

	h := Middleware("crypto-sentinel", okHandler{})
	assert.Equal(t, okHandler{}, h)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestZeroSpan(t *testing.T) {
	var span Span
	assert.NotPanics(t, func() { span.End(nil) })
}
