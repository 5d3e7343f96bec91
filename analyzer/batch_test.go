package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-analyzer/models"
)

func TestAnalyzeBatch_SequentialAllSucceed(t *testing.T) {
	a, _, _, _ := newTestAnalyzer()
	symbols := []string{"AAPL", "MSFT", "GOOG"}

	result := a.AnalyzeBatch(context.Background(), symbols, BatchOptions{Date: testDate})

	if result.Total != 3 || result.SuccessCount != 3 || result.FailureCount != 0 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if len(result.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(result.Results))
	}
	for i, symbol := range symbols {
		if result.Results[i].Symbol != symbol {
			t.Errorf("result %d = %q, want %q (input order)", i, result.Results[i].Symbol, symbol)
		}
	}
}

func TestAnalyzeBatch_ContinueOnError(t *testing.T) {
	a, _, fetcher, _ := newTestAnalyzer()
	fetcher.errs = map[string]error{"INVALID": &models.InvalidSymbolError{Symbol: "INVALID", Reason: "not found"}}

	result := a.AnalyzeBatch(context.Background(), []string{"AAPL", "INVALID", "MSFT"}, BatchOptions{
		Date:            testDate,
		ContinueOnError: true,
	})

	if result.Total != 3 || result.SuccessCount != 2 || result.FailureCount != 1 {
		t.Errorf("unexpected counts: total=%d success=%d failure=%d",
			result.Total, result.SuccessCount, result.FailureCount)
	}
	if len(result.Results) != 3 {
		t.Fatalf("expected all symbols attempted, got %d results", len(result.Results))
	}
	if result.Results[1].Status != "error" || result.Results[1].ErrorMessage == "" {
		t.Errorf("expected failure details for INVALID, got %+v", result.Results[1])
	}
}

func TestAnalyzeBatch_FailFastStopsDispatch(t *testing.T) {
	a, _, fetcher, _ := newTestAnalyzer()
	fetcher.errs = map[string]error{"BAD": errors.New("boom")}

	result := a.AnalyzeBatch(context.Background(), []string{"AAPL", "BAD", "MSFT", "GOOG", "AMZN"}, BatchOptions{
		Date: testDate,
	})

	if result.Total != 5 {
		t.Errorf("Total should count all requested symbols, got %d", result.Total)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected exactly 2 attempted symbols, got %d", len(result.Results))
	}
	if result.Results[0].Symbol != "AAPL" || result.Results[0].Status != "success" {
		t.Errorf("unexpected first result: %+v", result.Results[0])
	}
	if result.Results[1].Symbol != "BAD" || result.Results[1].Status != "error" {
		t.Errorf("unexpected second result: %+v", result.Results[1])
	}
	if result.SuccessCount != 1 || result.FailureCount != 1 {
		t.Errorf("unexpected counts: success=%d failure=%d", result.SuccessCount, result.FailureCount)
	}
}

func TestAnalyzeBatch_ParallelPreservesInputOrder(t *testing.T) {
	a, _, _, _ := newTestAnalyzer()
	symbols := []string{"AAPL", "MSFT", "GOOG", "AMZN", "META", "NVDA"}

	result := a.AnalyzeBatch(context.Background(), symbols, BatchOptions{
		Date:            testDate,
		Parallelism:     3,
		ContinueOnError: true,
	})

	if result.SuccessCount != len(symbols) {
		t.Fatalf("expected all to succeed, got %+v", result)
	}
	for i, symbol := range symbols {
		if result.Results[i].Symbol != symbol {
			t.Errorf("result %d = %q, want %q (input order)", i, result.Results[i].Symbol, symbol)
		}
	}
}

func TestAnalyzeBatch_ParallelContinueOnError(t *testing.T) {
	a, _, fetcher, _ := newTestAnalyzer()
	fetcher.errs = map[string]error{
		"BAD1": errors.New("boom"),
		"BAD2": errors.New("boom"),
	}
	symbols := []string{"AAPL", "BAD1", "MSFT", "BAD2", "GOOG"}

	result := a.AnalyzeBatch(context.Background(), symbols, BatchOptions{
		Date:            testDate,
		Parallelism:     2,
		ContinueOnError: true,
	})

	if result.Total != 5 || result.SuccessCount != 3 || result.FailureCount != 2 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if len(result.Results) != 5 {
		t.Errorf("expected all symbols attempted, got %d results", len(result.Results))
	}
}

func TestAnalyzeBatch_ParallelFailFast(t *testing.T) {
	a, _, fetcher, _ := newTestAnalyzer()
	fetcher.errs = map[string]error{"BAD": errors.New("boom")}
	fetcher.delay = 30 * time.Millisecond
	symbols := []string{"BAD", "AAPL", "MSFT", "GOOG", "AMZN", "META", "NVDA", "TSLA"}

	result := a.AnalyzeBatch(context.Background(), symbols, BatchOptions{
		Date:        testDate,
		Parallelism: 2,
	})

	if result.Total != 8 {
		t.Errorf("Total should count all requested symbols, got %d", result.Total)
	}
	if result.FailureCount != 1 {
		t.Errorf("expected 1 failure, got %d", result.FailureCount)
	}
	// In-flight analyses may complete, but dispatch must stop early
	if len(result.Results) == len(symbols) {
		t.Error("expected fail-fast to skip some symbols")
	}
	for i := 1; i < len(result.Results); i++ {
		prev, cur := result.Results[i-1].Symbol, result.Results[i].Symbol
		if indexOf(symbols, prev) >= indexOf(symbols, cur) {
			t.Errorf("results out of input order: %q before %q", prev, cur)
		}
	}
}

func TestAnalyzeBatch_EmptyInput(t *testing.T) {
	a, _, _, _ := newTestAnalyzer()

	result := a.AnalyzeBatch(context.Background(), nil, BatchOptions{Date: testDate})

	if result.Total != 0 || len(result.Results) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
