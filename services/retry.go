package services

import (
	"context"
	"math"
	"math/rand"
	"time"

	"stock-analyzer/observability"
)

// RetryConfig controls the bounded retry loop around a fallible operation
type RetryConfig struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool

	// Retryable decides whether an error triggers another attempt.
	// Nil means every error is retryable.
	Retryable func(error) bool

	// OnRetry is invoked before each retry with the failure, the 0-indexed
	// attempt that failed, and the computed delay. Used by callers for
	// structured logging; never by the engine itself.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultLLMRetryConfig is the policy wrapped around every LLM provider
var DefaultLLMRetryConfig = RetryConfig{
	MaxAttempts:     3,
	BaseDelay:       2 * time.Second,
	MaxDelay:        30 * time.Second,
	ExponentialBase: 2.0,
	Jitter:          true,
}

// Backoff computes the delay after the given 0-indexed failed attempt:
// min(base * exponentialBase^attempt, max), optionally perturbed by uniform
// jitter of ±25%, never negative.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	base := c.ExponentialBase
	if base <= 0 {
		base = 2.0
	}

	delay := float64(c.BaseDelay) * math.Pow(base, float64(attempt))
	if max := float64(c.MaxDelay); c.MaxDelay > 0 && delay > max {
		delay = max
	}

	if c.Jitter {
		jitterRange := delay * 0.25
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// WithRetry invokes fn up to MaxAttempts times. Non-retryable errors
// propagate immediately; on exhaustion the last error is returned unchanged.
// Backoff sleeps are cancellable through ctx.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}

		if attempt == cfg.MaxAttempts-1 {
			observability.Warn("all retry attempts exhausted",
				"attempts", cfg.MaxAttempts,
				"error", err)
			break
		}

		delay := cfg.Backoff(attempt)
		observability.Debug("retrying after backoff",
			"attempt", attempt+1,
			"max_attempts", cfg.MaxAttempts,
			"delay", delay,
			"error", err)

		if cfg.OnRetry != nil {
			cfg.OnRetry(err, attempt, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}
