package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stock-analyzer/models"
)

// mockStorage is an in-memory Storage for analyzer tests
type mockStorage struct {
	mu       sync.Mutex
	records  map[string]*models.AnalysisRecord
	insights map[string][]models.Insight

	saveRecordErr  error
	getRecordErr   error
	saveInsightErr error

	saveRecordCalls  int
	saveInsightCalls int
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		records:  map[string]*models.AnalysisRecord{},
		insights: map[string][]models.Insight{},
	}
}

func recordKey(symbol string, date time.Time) string {
	return symbol + "|" + date.Format("2006-01-02")
}

func (s *mockStorage) SaveAnalysisRecord(ctx context.Context, rec *models.AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveRecordCalls++
	if err := ctx.Err(); err != nil {
		return &models.StorageError{Operation: "save_analysis", Err: err}
	}
	if s.saveRecordErr != nil {
		return s.saveRecordErr
	}
	copied := *rec
	s.records[recordKey(rec.Symbol, rec.AnalysisDate)] = &copied
	return nil
}

func (s *mockStorage) GetAnalysisRecord(ctx context.Context, symbol string, date time.Time) (*models.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getRecordErr != nil {
		return nil, s.getRecordErr
	}
	rec, ok := s.records[recordKey(symbol, date)]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (s *mockStorage) UpdateAnalysisRecord(ctx context.Context, rec *models.AnalysisRecord, patch models.AnalysisRecordPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[recordKey(rec.Symbol, rec.AnalysisDate)]
	if !ok {
		return &models.StorageError{Operation: "update_analysis", Err: fmt.Errorf("no record for %s", rec.Symbol)}
	}
	if patch.Status != nil {
		stored.Status = *patch.Status
		rec.Status = *patch.Status
	}
	if patch.PriceSnapshot != nil {
		stored.PriceSnapshot = *patch.PriceSnapshot
		rec.PriceSnapshot = *patch.PriceSnapshot
	}
	if patch.PriceChangePercent != nil {
		stored.PriceChangePercent = patch.PriceChangePercent
		rec.PriceChangePercent = patch.PriceChangePercent
	}
	if patch.Volume != nil {
		stored.Volume = patch.Volume
		rec.Volume = patch.Volume
	}
	if patch.ErrorMessage != nil {
		stored.ErrorMessage = *patch.ErrorMessage
		rec.ErrorMessage = *patch.ErrorMessage
	}
	if patch.DurationSeconds != nil {
		stored.DurationSeconds = *patch.DurationSeconds
		rec.DurationSeconds = *patch.DurationSeconds
	}
	return nil
}

func (s *mockStorage) SaveInsight(ctx context.Context, insight *models.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveInsightCalls++
	if s.saveInsightErr != nil {
		return s.saveInsightErr
	}
	s.insights[insight.Symbol] = append([]models.Insight{*insight}, s.insights[insight.Symbol]...)
	return nil
}

func (s *mockStorage) GetLatestInsights(ctx context.Context, symbol string, limit int) ([]models.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.insights[symbol]
	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}
	out := make([]models.Insight, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *mockStorage) record(symbol string, date time.Time) *models.AnalysisRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[recordKey(symbol, date)]
}

// mockFetcher returns a canned snapshot, or per-symbol errors. A non-zero
// delay slows successful fetches to make concurrency observable.
type mockFetcher struct {
	mu         sync.Mutex
	errs       map[string]error
	delay      time.Duration
	fetchCalls int
	lastStart  time.Time
	lastEnd    time.Time
}

func (f *mockFetcher) Fetch(ctx context.Context, symbol string, start, end time.Time) (*models.Snapshot, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.lastStart, f.lastEnd = start, end
	err := f.errs[symbol]
	delay := f.delay
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	points := make([]models.PricePoint, 25)
	for i := range points {
		points[i] = models.PricePoint{
			Date:   end.AddDate(0, 0, i-len(points)),
			Close:  decimal.NewFromFloat(150.0),
			Volume: 1000000,
		}
	}
	return &models.Snapshot{
		Symbol:             symbol,
		CurrentPrice:       decimal.NewFromFloat(150.25),
		PriceChangePercent: 1.5,
		Volume:             55000000,
		Historical:         points,
		Fundamentals:       map[string]any{"pe_ratio": 28.5, "market_cap": 2.5e12, "beta": 1.2, "sector": "Technology"},
		Meta:               models.Provenance{Source: "yahoo", DataPoints: len(points)},
	}, nil
}

// mockLLM returns canned analysis text
type mockLLM struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

const mockAnalysisText = `**Summary:**
Strong momentum with healthy volume.

**Trend Analysis:**
Uptrend intact above the 50-day average.

**Risk Factors:**
- Stretched valuation
- Sector rotation risk

**Opportunities:**
- Product cycle tailwind
- Margin expansion
`

func (m *mockLLM) Analyze(ctx context.Context, prompt string, snapshot *models.Snapshot, systemPrompt string) (*models.LLMResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	text := m.text
	if text == "" {
		text = mockAnalysisText
	}
	return &models.LLMResponse{
		Text:       text,
		TokensUsed: 350,
		Model:      "mock-model",
		Metadata:   map[string]any{"stop_reason": "end_turn"},
	}, nil
}

func (m *mockLLM) CountTokens(text string) int { return len(text) / 4 }

func (m *mockLLM) Model() string { return "mock-model" }
