package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single day in a snapshot's historical series
type PricePoint struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Provenance records where and when a snapshot was fetched
type Provenance struct {
	Source     string    `json:"source"`
	FetchTime  time.Time `json:"fetch_time"`
	DataPoints int       `json:"data_points"`
}

// Snapshot is a point-in-time bundle of market data for a symbol.
// Created fresh per analysis call and never persisted directly; only
// derived fields end up in AnalysisRecord and Insight.
type Snapshot struct {
	Symbol             string          `json:"symbol"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	PriceChangePercent float64         `json:"price_change_percent"`
	Volume             int64           `json:"volume"`
	Historical         []PricePoint    `json:"historical"`
	// Fundamentals is sparse: absent metrics are simply omitted
	Fundamentals map[string]any `json:"fundamentals"`
	Meta         Provenance     `json:"meta"`
}
