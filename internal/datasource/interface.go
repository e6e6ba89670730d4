package datasource

import (
	"context"
	"errors"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// PriceSource defines the interface for fetching market prices from an external provider
type PriceSource interface {
	// CurrentPrice retrieves the latest quote including the 24h change
	CurrentPrice(ctx context.Context) (*models.PriceQuote, error)

	// History retrieves realized prices covering the last hours, ascending by time
	History(ctx context.Context, hours float64) ([]models.PricePoint, error)

	// MarketData retrieves the 24h market summary (cap, volume, range)
	MarketData(ctx context.Context) (*models.MarketSnapshot, error)

	// Name returns the name of the data source
	Name() string
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap returns the underlying error
func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeCircuitOpen          = "circuit_open"
)

var (
	// ErrCircuitOpen is returned while the client's circuit breaker rejects requests
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrInvalidData is returned when a provider response cannot be used
	ErrInvalidData = errors.New("invalid data format")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorCode extracts the DataSourceError code from err, or "" when err is not one.
func ErrorCode(err error) string {
	var dsErr DataSourceError
	if errors.As(err, &dsErr) {
		return dsErr.Code
	}
	return ""
}
