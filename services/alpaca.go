package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// AlpacaProvider fetches market data from the Alpaca Market Data API
type AlpacaProvider struct {
	tradeClient *alpaca.Client
	dataClient  *marketdata.Client
}

// NewAlpacaProvider creates a new Alpaca provider
func NewAlpacaProvider(apiKey, apiSecret, baseURL string) *AlpacaProvider {
	tradeClient := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &AlpacaProvider{
		tradeClient: tradeClient,
		dataClient:  dataClient,
	}
}

// Name returns the provider name used in provenance and error messages
func (p *AlpacaProvider) Name() string { return "alpaca" }

// FetchSeries returns a snapshot built from daily bars plus the latest trade
func (p *AlpacaProvider) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (*models.Snapshot, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "bars")
	timer := metrics.NewTimer()

	bars, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() ([]marketdata.Bar, error) {
		return p.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
		})
	})
	timer.ObserveExternalAPI(BreakerAlpaca, "bars")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "bars", categorizeAPIError(err))
		return nil, p.normalizeError(symbol, err)
	}

	if len(bars) == 0 {
		return nil, &models.InvalidSymbolError{Symbol: symbol, Reason: "no historical data available (possibly delisted)"}
	}

	points := make([]models.PricePoint, 0, len(bars))
	for _, bar := range bars {
		points = append(points, models.PricePoint{
			Date:   bar.Timestamp.UTC().Truncate(24 * time.Hour),
			Open:   decimal.NewFromFloat(bar.Open),
			High:   decimal.NewFromFloat(bar.High),
			Low:    decimal.NewFromFloat(bar.Low),
			Close:  decimal.NewFromFloat(bar.Close),
			Volume: int64(bar.Volume),
		})
	}

	latest := points[len(points)-1]
	currentPrice := latest.Close
	volume := latest.Volume

	// Prefer the latest trade price when the market is open
	if trade, err := p.dataClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{}); err == nil && trade.Price > 0 {
		currentPrice = decimal.NewFromFloat(trade.Price)
	}

	changePercent := 0.0
	if len(points) >= 2 {
		prevClose := points[len(points)-2].Close
		if !prevClose.IsZero() {
			changePercent, _ = currentPrice.Sub(prevClose).Div(prevClose).Mul(decimal.NewFromInt(100)).Float64()
		}
	}

	observability.Debug("fetched alpaca series",
		"symbol", symbol,
		"data_points", len(points))

	return &models.Snapshot{
		Symbol:             symbol,
		CurrentPrice:       currentPrice,
		PriceChangePercent: changePercent,
		Volume:             volume,
		Historical:         points,
		// Alpaca's data API carries no company fundamentals
		Fundamentals: map[string]any{},
		Meta: models.Provenance{
			Source:     p.Name(),
			FetchTime:  time.Now().UTC(),
			DataPoints: len(points),
		},
	}, nil
}

// Validate reports whether the symbol is a known tradable asset with a
// non-empty trailing five-day history.
func (p *AlpacaProvider) Validate(ctx context.Context, symbol string) (bool, error) {
	asset, err := p.tradeClient.GetAsset(symbol)
	if err != nil {
		return false, fmt.Errorf("failed to get asset %s: %w", symbol, err)
	}
	if asset == nil || !asset.Tradable {
		return false, nil
	}

	end := time.Now().UTC()
	bars, err := p.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     end.AddDate(0, 0, -5),
		End:       end,
	})
	if err != nil {
		return false, err
	}
	return len(bars) > 0, nil
}

// normalizeError maps Alpaca API errors into the shared taxonomy
func (p *AlpacaProvider) normalizeError(symbol string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found") || strings.Contains(msg, "invalid symbol"):
		return &models.InvalidSymbolError{Symbol: symbol, Reason: msg}
	case strings.Contains(msg, "too many requests") || strings.Contains(msg, "429"):
		return &models.RateLimitError{Provider: p.Name(), RetryAfter: time.Minute}
	default:
		return &models.DataFetchError{Symbol: symbol, Reason: msg, Provider: p.Name()}
	}
}
