package analyzer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// BatchOptions controls how a batch run executes
type BatchOptions struct {
	// Parallelism is the maximum number of concurrent analyses.
	// Values of 1 or less run sequentially.
	Parallelism int

	// ContinueOnError keeps the batch going after individual failures.
	// When false the batch stops dispatching after the first failure.
	ContinueOnError bool

	// Force bypasses cached results for every symbol in the batch
	Force bool

	// Date is the analysis date for every symbol. Zero means today.
	Date time.Time
}

// AnalyzeBatch analyzes a list of symbols. Results preserve input order and
// contain only attempted symbols: a fail-fast stop leaves the remaining
// symbols out entirely, so Total can exceed the number of results.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, symbols []string, opts BatchOptions) *models.BatchResult {
	start := time.Now()

	observability.Info("starting batch analysis",
		"symbols", len(symbols),
		"parallelism", opts.Parallelism,
		"continue_on_error", opts.ContinueOnError)

	var results []models.SymbolResult
	if opts.Parallelism <= 1 {
		results = a.runSequential(ctx, symbols, opts)
	} else {
		results = a.runParallel(ctx, symbols, opts)
	}

	batch := &models.BatchResult{
		Total:    len(symbols),
		Duration: time.Since(start),
		Results:  results,
	}
	for _, r := range results {
		if r.Status == "success" {
			batch.SuccessCount++
		} else {
			batch.FailureCount++
		}
	}

	observability.Info("batch analysis complete",
		"total", batch.Total,
		"success", batch.SuccessCount,
		"failed", batch.FailureCount,
		"duration", batch.Duration)

	return batch
}

func (a *Analyzer) runSequential(ctx context.Context, symbols []string, opts BatchOptions) []models.SymbolResult {
	var results []models.SymbolResult

	for _, symbol := range symbols {
		result := a.analyzeOne(ctx, symbol, opts)
		results = append(results, result)
		if result.Status == "error" && !opts.ContinueOnError {
			break
		}
	}

	return results
}

// runParallel dispatches analyses through a semaphore of size Parallelism.
// In fail-fast mode a failure flag stops further dispatch; analyses already
// in flight run to completion and their results are kept.
func (a *Analyzer) runParallel(ctx context.Context, symbols []string, opts BatchOptions) []models.SymbolResult {
	sem := make(chan struct{}, opts.Parallelism)
	slots := make([]*models.SymbolResult, len(symbols))

	var wg sync.WaitGroup
	var failed atomic.Bool

	for i, symbol := range symbols {
		if !opts.ContinueOnError && failed.Load() {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()

			result := a.analyzeOne(ctx, symbol, opts)
			slots[i] = &result
			if result.Status == "error" {
				failed.Store(true)
			}
		}(i, symbol)
	}

	wg.Wait()

	results := make([]models.SymbolResult, 0, len(symbols))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	return results
}

func (a *Analyzer) analyzeOne(ctx context.Context, symbol string, opts BatchOptions) models.SymbolResult {
	_, err := a.Analyze(ctx, symbol, opts.Date, opts.Force)
	if err != nil {
		return models.SymbolResult{Symbol: symbol, Status: "error", ErrorMessage: err.Error()}
	}
	return models.SymbolResult{Symbol: symbol, Status: "success"}
}
