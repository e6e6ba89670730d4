package datasource

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/config"
)

// NewHTTPClientFromConfig builds the rate-limited client used for the price source
func NewHTTPClientFromConfig(cfg config.PriceSourceConfig, logger *logrus.Logger) *RateLimitedHTTPClient {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = cfg.Timeout()
	httpCfg.MaxRetries = cfg.MaxRetries
	httpCfg.RateLimit = cfg.RateLimit
	httpCfg.CircuitBreakerMax = cfg.CircuitBreakerMax
	return NewRateLimitedHTTPClient(httpCfg, logger)
}

// NewPriceSource creates the configured PriceSource
func NewPriceSource(cfg config.PriceSourceConfig, logger *logrus.Logger) PriceSource {
	return NewCoinGeckoClient(NewHTTPClientFromConfig(cfg, logger), CoinGeckoConfig{
		BaseURL:    cfg.BaseURL,
		CoinID:     cfg.CoinID,
		VsCurrency: cfg.VsCurrency,
		APIKey:     cfg.APIKey,
		QuoteTTL:   time.Duration(cfg.QuoteCacheSeconds) * time.Second,
	}, logger)
}
