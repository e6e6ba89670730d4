package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

const (
	coinGeckoSourceName = "coingecko"
	quoteCacheKey       = "quote"
	marketCacheKey      = "market"
)

// CoinGeckoConfig configures the CoinGecko client
type CoinGeckoConfig struct {
	BaseURL    string
	CoinID     string
	VsCurrency string
	APIKey     string
	QuoteTTL   time.Duration
}

// CoinGeckoClient implements PriceSource for the CoinGecko REST API
type CoinGeckoClient struct {
	httpClient *RateLimitedHTTPClient
	cfg        CoinGeckoConfig
	quotes     *cache.Cache
	logger     *logrus.Entry
}

type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

type currencyAmounts map[string]float64

type coinResponse struct {
	MarketData struct {
		CurrentPrice             currencyAmounts `json:"current_price"`
		MarketCap                currencyAmounts `json:"market_cap"`
		TotalVolume              currencyAmounts `json:"total_volume"`
		High24h                  currencyAmounts `json:"high_24h"`
		Low24h                   currencyAmounts `json:"low_24h"`
		PriceChange24h           float64         `json:"price_change_24h"`
		PriceChangePercentage24h float64         `json:"price_change_percentage_24h"`
	} `json:"market_data"`
}

// NewCoinGeckoClient creates a new CoinGecko API client
func NewCoinGeckoClient(httpClient *RateLimitedHTTPClient, cfg CoinGeckoConfig, logger *logrus.Logger) *CoinGeckoClient {
	var quotes *cache.Cache
	if cfg.QuoteTTL > 0 {
		quotes = cache.New(cfg.QuoteTTL, cfg.QuoteTTL*2)
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &CoinGeckoClient{
		httpClient: httpClient,
		cfg:        cfg,
		quotes:     quotes,
		logger:     logger.WithField("source", coinGeckoSourceName),
	}
}

// Name returns the data source name
func (c *CoinGeckoClient) Name() string {
	return coinGeckoSourceName
}

// CurrentPrice retrieves the spot price and 24h change, served from cache while fresh
func (c *CoinGeckoClient) CurrentPrice(ctx context.Context) (*models.PriceQuote, error) {
	if c.quotes != nil {
		if cached, ok := c.quotes.Get(quoteCacheKey); ok {
			quote := cached.(models.PriceQuote)
			return &quote, nil
		}
	}

	params := url.Values{}
	params.Set("ids", c.cfg.CoinID)
	params.Set("vs_currencies", c.cfg.VsCurrency)
	params.Set("include_24hr_change", "true")

	var body map[string]map[string]float64
	if err := c.getJSON(ctx, "/simple/price", params, &body); err != nil {
		return nil, err
	}

	coin, ok := body[c.cfg.CoinID]
	if !ok {
		return nil, NewDataSourceError(coinGeckoSourceName, ErrCodeNotFound, "coin missing from response", ErrInvalidData)
	}
	price, ok := coin[c.cfg.VsCurrency]
	if !ok || price <= 0 {
		return nil, NewDataSourceError(coinGeckoSourceName, ErrCodeInvalidData, "price missing from response", ErrInvalidData)
	}
	changePct := coin[c.cfg.VsCurrency+"_24h_change"]

	quote := models.PriceQuote{
		Price:            models.RoundPrice(price),
		Change24h:        models.RoundPrice(price * changePct / 100),
		ChangePercent24h: models.RoundPrice(changePct),
		FetchedAt:        time.Now().UTC(),
	}

	if c.quotes != nil {
		c.quotes.SetDefault(quoteCacheKey, quote)
	}

	return &quote, nil
}

// History retrieves the market chart for the last hours, ascending by timestamp
func (c *CoinGeckoClient) History(ctx context.Context, hours float64) ([]models.PricePoint, error) {
	if hours <= 0 {
		return nil, NewDataSourceError(coinGeckoSourceName, ErrCodeInvalidData, "hours must be positive", ErrInvalidData)
	}

	params := url.Values{}
	params.Set("vs_currency", c.cfg.VsCurrency)
	params.Set("days", strconv.FormatFloat(hours/24, 'f', -1, 64))

	var body marketChartResponse
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(c.cfg.CoinID)+"/market_chart", params, &body); err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(body.Prices))
	for _, pair := range body.Prices {
		if len(pair) < 2 {
			continue
		}
		points = append(points, models.PricePoint{
			Timestamp: time.UnixMilli(int64(pair[0])).UTC(),
			Price:     models.RoundPrice(pair[1]),
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	c.logger.WithFields(logrus.Fields{
		"hours":  hours,
		"points": len(points),
	}).Debug("Fetched price history")

	return points, nil
}

// MarketData retrieves the coin's market summary, served from cache while fresh
func (c *CoinGeckoClient) MarketData(ctx context.Context) (*models.MarketSnapshot, error) {
	if c.quotes != nil {
		if cached, ok := c.quotes.Get(marketCacheKey); ok {
			snapshot := cached.(models.MarketSnapshot)
			return &snapshot, nil
		}
	}

	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")

	var body coinResponse
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(c.cfg.CoinID), params, &body); err != nil {
		return nil, err
	}

	md := body.MarketData
	price := md.CurrentPrice[c.cfg.VsCurrency]
	if price <= 0 {
		return nil, NewDataSourceError(coinGeckoSourceName, ErrCodeInvalidData, "market data missing price", ErrInvalidData)
	}

	snapshot := models.MarketSnapshot{
		Price:            models.RoundPrice(price),
		MarketCap:        md.MarketCap[c.cfg.VsCurrency],
		TotalVolume:      md.TotalVolume[c.cfg.VsCurrency],
		High24h:          models.RoundPrice(md.High24h[c.cfg.VsCurrency]),
		Low24h:           models.RoundPrice(md.Low24h[c.cfg.VsCurrency]),
		Change24h:        models.RoundPrice(md.PriceChange24h),
		ChangePercent24h: models.Round(md.PriceChangePercentage24h, 4),
		FetchedAt:        time.Now().UTC(),
	}

	if c.quotes != nil {
		c.quotes.SetDefault(marketCacheKey, snapshot)
	}
	return &snapshot, nil
}

func (c *CoinGeckoClient) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.cfg.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewDataSourceError(coinGeckoSourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return NewDataSourceError(coinGeckoSourceName, ErrCodeCircuitOpen, "request rejected", err)
		}
		return NewDataSourceError(coinGeckoSourceName, ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(coinGeckoSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewDataSourceError(coinGeckoSourceName, ErrCodeAuthenticationFailed, "request not authorized", nil)
	case resp.StatusCode == http.StatusNotFound:
		return NewDataSourceError(coinGeckoSourceName, ErrCodeNotFound, "resource not found", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewDataSourceError(coinGeckoSourceName, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewDataSourceError(coinGeckoSourceName, ErrCodeInvalidData, "failed to parse response", err)
	}
	return nil
}
