package models

import (
	"fmt"
	"time"
)

// InvalidSymbolError means the symbol does not exist, is delisted, or is
// malformed. Never retried and never falls back to another provider.
type InvalidSymbolError struct {
	Symbol string
	Reason string
}

func (e *InvalidSymbolError) Error() string {
	return fmt.Sprintf("invalid stock symbol %q: %s", e.Symbol, e.Reason)
}

// RateLimitError means a provider's quota was exhausted. Not retried at the
// gateway level; RetryAfter is a hint for the caller.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s (retry after %s)", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Provider)
}

// DataFetchError means market data could not be fetched, after any
// configured fallback was exhausted.
type DataFetchError struct {
	Symbol   string
	Reason   string
	Provider string
}

func (e *DataFetchError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("failed to fetch data for %q from %s: %s", e.Symbol, e.Provider, e.Reason)
	}
	return fmt.Sprintf("failed to fetch data for %q: %s", e.Symbol, e.Reason)
}

// AnalysisError means the LLM side of an analysis failed after retries
type AnalysisError struct {
	Symbol string
	Reason string
	Model  string
}

func (e *AnalysisError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("analysis failed for %q (model: %s): %s", e.Symbol, e.Model, e.Reason)
	}
	return fmt.Sprintf("analysis failed for %q: %s", e.Symbol, e.Reason)
}

// StorageError wraps a persistence failure. Always surfaced, never
// silently swallowed.
type StorageError struct {
	Operation string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %q failed: %v", e.Operation, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
