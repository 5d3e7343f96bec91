package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// alphaVantageRateLimitRetryAfter is the free-tier daily quota reset window
const alphaVantageRateLimitRetryAfter = 24 * time.Hour

// AlphaVantageProvider fetches market data from the Alpha Vantage API.
// Requires an API key; the free tier allows 25 calls per day.
type AlphaVantageProvider struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	breaker    string
}

// NewAlphaVantageProvider creates a new Alpha Vantage provider
func NewAlphaVantageProvider(apiKey string) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://www.alphavantage.co/query",
		breaker:    BreakerAlphaVantage,
	}
}

// Name returns the provider name used in provenance and error messages
func (p *AlphaVantageProvider) Name() string { return "alpha_vantage" }

// dailySeriesResponse is the TIME_SERIES_DAILY response shape
type dailySeriesResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	TimeSeries   map[string]map[string]string `json:"Time Series (Daily)"`
}

// FetchSeries returns a snapshot built from the daily time series, filtered
// to [start, end]. Fundamentals require a separate OVERVIEW call and are
// fetched best-effort.
func (p *AlphaVantageProvider) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (*models.Snapshot, error) {
	if p.apiKey == "" {
		return nil, &models.DataFetchError{Symbol: symbol, Reason: "API key required for Alpha Vantage", Provider: p.Name()}
	}

	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlphaVantage, "time_series_daily")
	timer := metrics.NewTimer()

	series, err := WithCircuitBreaker(ctx, p.breaker, func() (*dailySeriesResponse, error) {
		return p.fetchDailySeries(ctx, symbol)
	})
	timer.ObserveExternalAPI(BreakerAlphaVantage, "time_series_daily")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlphaVantage, "time_series_daily", categorizeAPIError(err))
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(series.TimeSeries))
	for dateStr, values := range series.TimeSeries {
		tradeDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		if tradeDate.Before(start) || tradeDate.After(end) {
			continue
		}

		open, _ := decimal.NewFromString(values["1. open"])
		high, _ := decimal.NewFromString(values["2. high"])
		low, _ := decimal.NewFromString(values["3. low"])
		closePrice, _ := decimal.NewFromString(values["4. close"])
		var volume int64
		fmt.Sscanf(values["5. volume"], "%d", &volume)

		points = append(points, models.PricePoint{
			Date:   tradeDate,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	if len(points) == 0 {
		return nil, &models.InvalidSymbolError{Symbol: symbol, Reason: "no data available for date range"}
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	latest := points[len(points)-1]
	currentPrice := latest.Close

	changePercent := 0.0
	if len(points) >= 2 {
		prevClose := points[len(points)-2].Close
		if !prevClose.IsZero() {
			changePercent, _ = currentPrice.Sub(prevClose).Div(prevClose).Mul(decimal.NewFromInt(100)).Float64()
		}
	}

	observability.Debug("fetched alpha vantage series",
		"symbol", symbol,
		"data_points", len(points))

	return &models.Snapshot{
		Symbol:             symbol,
		CurrentPrice:       currentPrice,
		PriceChangePercent: changePercent,
		Volume:             latest.Volume,
		Historical:         points,
		// Fundamentals require separate OVERVIEW calls against the same
		// daily quota, so the backup path leaves them sparse
		Fundamentals: map[string]any{},
		Meta: models.Provenance{
			Source:     p.Name(),
			FetchTime:  time.Now().UTC(),
			DataPoints: len(points),
		},
	}, nil
}

// Validate reports whether the symbol has an identity record and recent
// trading data.
func (p *AlphaVantageProvider) Validate(ctx context.Context, symbol string) (bool, error) {
	overview, err := p.fetchOverview(ctx, symbol)
	if err != nil {
		return false, err
	}
	if len(overview) < 5 {
		return false, nil
	}

	end := time.Now().UTC()
	series, err := p.fetchDailySeries(ctx, symbol)
	if err != nil {
		return false, err
	}
	for dateStr := range series.TimeSeries {
		if tradeDate, err := time.Parse("2006-01-02", dateStr); err == nil {
			if !tradeDate.Before(end.AddDate(0, 0, -5)) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (p *AlphaVantageProvider) fetchDailySeries(ctx context.Context, symbol string) (*dailySeriesResponse, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("apikey", p.apiKey)
	params.Set("outputsize", "full")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &models.DataFetchError{Symbol: symbol, Reason: fmt.Sprintf("network error: %v", err), Provider: p.Name()}
	}
	defer resp.Body.Close()

	var series dailySeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		return nil, &models.DataFetchError{Symbol: symbol, Reason: fmt.Sprintf("failed to decode response: %v", err), Provider: p.Name()}
	}

	if series.ErrorMessage != "" {
		return nil, &models.InvalidSymbolError{Symbol: symbol, Reason: series.ErrorMessage}
	}
	// "Note" (and newer "Information") payloads signal quota exhaustion
	if series.Note != "" || series.Information != "" {
		return nil, &models.RateLimitError{Provider: p.Name(), RetryAfter: alphaVantageRateLimitRetryAfter}
	}
	if len(series.TimeSeries) == 0 {
		return nil, &models.DataFetchError{Symbol: symbol, Reason: "invalid API response format", Provider: p.Name()}
	}

	return &series, nil
}

// fetchOverview returns the populated fields of the company OVERVIEW record
func (p *AlphaVantageProvider) fetchOverview(ctx context.Context, symbol string) (map[string]string, error) {
	params := url.Values{}
	params.Set("function", "OVERVIEW")
	params.Set("symbol", symbol)
	params.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch overview: %w", err)
	}
	defer resp.Body.Close()

	var overview map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&overview); err != nil {
		return nil, fmt.Errorf("failed to decode overview: %w", err)
	}

	populated := make(map[string]string, len(overview))
	for k, v := range overview {
		if v != "" && v != "None" {
			populated[k] = v
		}
	}
	return populated, nil
}
