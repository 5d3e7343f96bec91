package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// MarketDataProvider is a named, pluggable source of market data. Provider
// implementations normalize their native error vocabularies into the shared
// taxonomy (invalid-symbol, rate-limited, data-fetch) before returning.
type MarketDataProvider interface {
	Name() string
	FetchSeries(ctx context.Context, symbol string, start, end time.Time) (*models.Snapshot, error)
	Validate(ctx context.Context, symbol string) (bool, error)
}

// defaultHistoryDays is the trailing window fetched when no range is given
const defaultHistoryDays = 30

// Fetcher fetches market data from a primary provider with automatic
// fallback to a backup provider on recoverable failure.
type Fetcher struct {
	primary MarketDataProvider
	backup  MarketDataProvider // nil disables fallback
}

// NewFetcher creates a Fetcher. backup may be nil to disable fallback.
func NewFetcher(primary, backup MarketDataProvider) *Fetcher {
	return &Fetcher{primary: primary, backup: backup}
}

// Fetch returns a snapshot for the symbol covering [start, end]. Zero times
// default to a trailing 30-day window ending today. Invalid-symbol and
// rate-limit failures are never retried and never fall back; any other
// primary failure triggers the backup provider when one is configured.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, start, end time.Time) (*models.Snapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, &models.InvalidSymbolError{Symbol: symbol, Reason: "symbol must be a non-empty string"}
	}

	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return nil, fmt.Errorf("invalid date range: start date must be before or equal to end date")
	}
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -defaultHistoryDays)
	}

	observability.Debug("fetching market data",
		"symbol", symbol,
		"provider", f.primary.Name(),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"))

	snapshot, primaryErr := f.primary.FetchSeries(ctx, symbol, start, end)
	if primaryErr == nil {
		return snapshot, nil
	}

	var invalidErr *models.InvalidSymbolError
	var rateErr *models.RateLimitError
	if errors.As(primaryErr, &invalidErr) || errors.As(primaryErr, &rateErr) {
		observability.Warn("non-recoverable error fetching symbol",
			"symbol", symbol,
			"provider", f.primary.Name(),
			"error", primaryErr)
		return nil, primaryErr
	}

	if f.backup == nil {
		return nil, &models.DataFetchError{
			Symbol:   symbol,
			Reason:   primaryErr.Error(),
			Provider: f.primary.Name(),
		}
	}

	observability.Warn("primary provider failed, trying backup",
		"symbol", symbol,
		"primary", f.primary.Name(),
		"backup", f.backup.Name(),
		"error", primaryErr)
	observability.GetMetrics().RecordProviderFallback(f.primary.Name(), f.backup.Name())

	snapshot, backupErr := f.backup.FetchSeries(ctx, symbol, start, end)
	if backupErr != nil {
		return nil, &models.DataFetchError{
			Symbol: symbol,
			Reason: fmt.Sprintf("both providers failed. Primary (%s): %v. Backup (%s): %v",
				f.primary.Name(), primaryErr, f.backup.Name(), backupErr),
		}
	}

	return snapshot, nil
}

// categorizeAPIError categorizes an error for metrics labeling
func categorizeAPIError(err error) string {
	if err == nil {
		return "none"
	}
	var invalidErr *models.InvalidSymbolError
	var rateErr *models.RateLimitError
	switch {
	case errors.As(err, &invalidErr):
		return "invalid_symbol"
	case errors.As(err, &rateErr):
		return "rate_limit"
	case strings.Contains(err.Error(), "circuit breaker"):
		return "circuit_breaker"
	case strings.Contains(err.Error(), "context deadline"), strings.Contains(err.Error(), "timeout"):
		return "timeout"
	case strings.Contains(err.Error(), "network"), strings.Contains(err.Error(), "connection"):
		return "network"
	default:
		return "other"
	}
}

// ValidateSymbol reports whether the symbol exists and has recent trading
// data. Provider failures are treated as "invalid", never propagated.
func (f *Fetcher) ValidateSymbol(ctx context.Context, symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return false
	}

	ok, err := f.primary.Validate(ctx, symbol)
	if err != nil {
		observability.Debug("symbol validation failed",
			"symbol", symbol,
			"provider", f.primary.Name(),
			"error", err)
		return false
	}
	return ok
}
