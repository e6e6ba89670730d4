package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one realized price observation.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

type pricePointJSON struct {
	TimestampMs int64   `json:"timestamp"`
	Price       float64 `json:"price"`
	Time        string  `json:"time"`
}

// MarshalJSON encodes the timestamp as epoch milliseconds.
func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(pricePointJSON{
		TimestampMs: p.Timestamp.UnixMilli(),
		Price:       p.Price,
		Time:        p.Timestamp.UTC().Format("03:04 PM"),
	})
}

// UnmarshalJSON decodes the epoch milliseconds form.
func (p *PricePoint) UnmarshalJSON(data []byte) error {
	var raw pricePointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Timestamp = time.UnixMilli(raw.TimestampMs).UTC()
	p.Price = raw.Price
	return nil
}

// PriceQuote is the current market price.
type PriceQuote struct {
	Price            float64   `json:"current_price"`
	Change24h        float64   `json:"change_24h"`
	ChangePercent24h float64   `json:"change_percent_24h"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// PreviousPrice estimates the price 24 hours ago.
func (q PriceQuote) PreviousPrice() float64 {
	return q.Price - q.Change24h
}

// MarketSnapshot is the coin's 24h market summary.
type MarketSnapshot struct {
	Price            float64   `json:"current_price"`
	MarketCap        float64   `json:"market_cap"`
	TotalVolume      float64   `json:"total_volume"`
	High24h          float64   `json:"high_24h"`
	Low24h           float64   `json:"low_24h"`
	Change24h        float64   `json:"price_change_24h"`
	ChangePercent24h float64   `json:"price_change_percentage_24h"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// RoundPrice rounds a price to cents.
func RoundPrice(v float64) float64 {
	return Round(v, 2)
}
