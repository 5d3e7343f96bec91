package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// YahooProvider fetches market data from the Yahoo Finance public API
type YahooProvider struct {
	httpClient *http.Client
	baseURL    string
	breaker    string
}

// NewYahooProvider creates a new Yahoo Finance provider
func NewYahooProvider() *YahooProvider {
	return &YahooProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://query1.finance.yahoo.com",
		breaker:    BreakerYahoo,
	}
}

// Name returns the provider name used in provenance and error messages
func (p *YahooProvider) Name() string { return "yahoo" }

// yahooChart is the response structure from the Yahoo Finance chart API
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				ChartPreviousClose  float64 `json:"chartPreviousClose"`
				RegularMarketVolume int64   `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []any `json:"open"`
					High   []any `json:"high"`
					Low    []any `json:"low"`
					Close  []any `json:"close"`
					Volume []any `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooQuoteSummary is the response structure from the quoteSummary API
type yahooQuoteSummary struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail        map[string]json.RawMessage `json:"summaryDetail"`
			DefaultKeyStatistics map[string]json.RawMessage `json:"defaultKeyStatistics"`
			AssetProfile         struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// toFloat converts a Yahoo numeric value that may be null
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// FetchSeries returns a snapshot built from the chart API, with fundamentals
// from quoteSummary when available (a quoteSummary failure is not fatal:
// fundamentals are sparse by contract).
func (p *YahooProvider) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (*models.Snapshot, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerYahoo, "chart")
	timer := metrics.NewTimer()

	chart, err := WithCircuitBreaker(ctx, p.breaker, func() (*yahooChart, error) {
		return p.fetchChart(ctx, symbol, start, end)
	})
	timer.ObserveExternalAPI(BreakerYahoo, "chart")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerYahoo, "chart", categorizeAPIError(err))
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, &models.InvalidSymbolError{Symbol: symbol, Reason: "no historical data available (possibly delisted)"}
	}

	quote := result.Indicators.Quote[0]
	points := make([]models.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		points = append(points, models.PricePoint{
			Date:   time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:   decimal.NewFromFloat(toFloat(at(quote.Open, i))),
			High:   decimal.NewFromFloat(toFloat(at(quote.High, i))),
			Low:    decimal.NewFromFloat(toFloat(at(quote.Low, i))),
			Close:  decimal.NewFromFloat(toFloat(at(quote.Close, i))),
			Volume: int64(toFloat(at(quote.Volume, i))),
		})
	}

	if len(points) == 0 {
		return nil, &models.InvalidSymbolError{Symbol: symbol, Reason: "no historical data available (possibly delisted)"}
	}

	currentPrice := result.Meta.RegularMarketPrice
	if currentPrice == 0 {
		// Use the last close when the market price is not populated
		currentPrice, _ = points[len(points)-1].Close.Float64()
	}

	changePercent := 0.0
	if prev := result.Meta.ChartPreviousClose; prev != 0 {
		changePercent = (currentPrice - prev) / prev * 100
	}

	volume := result.Meta.RegularMarketVolume
	if volume == 0 {
		volume = points[len(points)-1].Volume
	}

	fundamentals := p.fetchFundamentals(ctx, symbol)

	observability.Debug("fetched yahoo series",
		"symbol", symbol,
		"data_points", len(points),
		"fundamental_keys", len(fundamentals))

	return &models.Snapshot{
		Symbol:             symbol,
		CurrentPrice:       decimal.NewFromFloat(currentPrice),
		PriceChangePercent: changePercent,
		Volume:             volume,
		Historical:         points,
		Fundamentals:       fundamentals,
		Meta: models.Provenance{
			Source:     p.Name(),
			FetchTime:  time.Now().UTC(),
			DataPoints: len(points),
		},
	}, nil
}

// Validate reports whether the symbol has a populated profile and a
// non-empty trailing five-day history.
func (p *YahooProvider) Validate(ctx context.Context, symbol string) (bool, error) {
	fundamentals := p.fetchFundamentals(ctx, symbol)
	if len(fundamentals) < 5 {
		return false, nil
	}

	end := time.Now().UTC()
	chart, err := p.fetchChart(ctx, symbol, end.AddDate(0, 0, -5), end)
	if err != nil {
		return false, err
	}
	result := chart.Chart.Result[0]
	return len(result.Timestamp) > 0, nil
}

func (p *YahooProvider) fetchChart(ctx context.Context, symbol string, start, end time.Time) (*yahooChart, error) {
	// period2 is exclusive; extend one day so the end date is included
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		p.baseURL, url.PathEscape(symbol), start.Unix(), end.AddDate(0, 0, 1).Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build chart request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (stock-analyzer)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &models.DataFetchError{Symbol: symbol, Reason: fmt.Sprintf("network error: %v", err), Provider: p.Name()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &models.RateLimitError{Provider: p.Name(), RetryAfter: time.Minute}
	}

	var chart yahooChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, &models.DataFetchError{Symbol: symbol, Reason: fmt.Sprintf("failed to decode chart response: %v", err), Provider: p.Name()}
	}

	if chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return nil, &models.InvalidSymbolError{Symbol: symbol, Reason: chart.Chart.Error.Description}
		}
		return nil, &models.DataFetchError{Symbol: symbol, Reason: chart.Chart.Error.Description, Provider: p.Name()}
	}

	if len(chart.Chart.Result) == 0 {
		return nil, &models.InvalidSymbolError{Symbol: symbol, Reason: "symbol not found or has no data"}
	}

	return &chart, nil
}

// fetchFundamentals returns whatever metrics quoteSummary exposes; errors
// yield an empty map rather than failing the snapshot.
func (p *YahooProvider) fetchFundamentals(ctx context.Context, symbol string) map[string]any {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=summaryDetail,defaultKeyStatistics,assetProfile",
		p.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return map[string]any{}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (stock-analyzer)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		observability.Debug("quoteSummary fetch failed", "symbol", symbol, "error", err)
		return map[string]any{}
	}
	defer resp.Body.Close()

	var summary yahooQuoteSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return map[string]any{}
	}
	if summary.QuoteSummary.Error != nil || len(summary.QuoteSummary.Result) == 0 {
		return map[string]any{}
	}

	result := summary.QuoteSummary.Result[0]
	fundamentals := map[string]any{}

	addRaw := func(key string, raw json.RawMessage) {
		var wrapped struct {
			Raw any `json:"raw"`
		}
		if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Raw != nil {
			fundamentals[key] = wrapped.Raw
		}
	}

	for src, dst := range map[string]string{
		"marketCap":     "market_cap",
		"trailingPE":    "pe_ratio",
		"forwardPE":     "forward_pe",
		"dividendYield": "dividend_yield",
		"beta":          "beta",
	} {
		if raw, ok := result.SummaryDetail[src]; ok {
			addRaw(dst, raw)
		}
	}
	if raw, ok := result.SummaryDetail["fiftyTwoWeekHigh"]; ok {
		addRaw("52week_high", raw)
	}
	if raw, ok := result.SummaryDetail["fiftyTwoWeekLow"]; ok {
		addRaw("52week_low", raw)
	}
	if result.AssetProfile.Sector != "" {
		fundamentals["sector"] = result.AssetProfile.Sector
	}
	if result.AssetProfile.Industry != "" {
		fundamentals["industry"] = result.AssetProfile.Industry
	}

	return fundamentals
}

// at indexes a possibly-short Yahoo value slice
func at(values []any, i int) any {
	if i < len(values) {
		return values[i]
	}
	return nil
}
