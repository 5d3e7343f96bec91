package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AnalysisStatus represents the terminal state of an analysis attempt
type AnalysisStatus string

const (
	AnalysisStatusSuccess AnalysisStatus = "success"
	AnalysisStatusFailed  AnalysisStatus = "failed"
	AnalysisStatusPending AnalysisStatus = "pending"
)

// ConfidenceLevel is the data-quality label attached to an insight
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Rank orders confidence levels (low < medium < high) for comparisons
func (c ConfidenceLevel) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// AnalysisRecord tracks one analysis attempt for a (symbol, date) pair.
// At most one record exists per pair; re-runs upsert over the previous one.
type AnalysisRecord struct {
	ID                 uuid.UUID       `json:"id"`
	Symbol             string          `json:"symbol"`
	AnalysisDate       time.Time       `json:"analysis_date"`
	Status             AnalysisStatus  `json:"status"`
	PriceSnapshot      decimal.Decimal `json:"price_snapshot"`
	PriceChangePercent *float64        `json:"price_change_percent,omitempty"`
	Volume             *int64          `json:"volume,omitempty"`
	ErrorMessage       string          `json:"error_message,omitempty"`
	DurationSeconds    float64         `json:"duration_seconds"`
	CreatedAt          time.Time       `json:"created_at"`
}

// NewAnalysisRecord creates a pending record for a symbol and date
func NewAnalysisRecord(symbol string, date time.Time) *AnalysisRecord {
	return &AnalysisRecord{
		ID:           uuid.New(),
		Symbol:       symbol,
		AnalysisDate: date,
		Status:       AnalysisStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
}

// AnalysisRecordPatch is a partial update for an analysis record. Only
// non-nil fields are applied by the repository.
type AnalysisRecordPatch struct {
	Status             *AnalysisStatus
	PriceSnapshot      *decimal.Decimal
	PriceChangePercent *float64
	Volume             *int64
	ErrorMessage       *string
	DurationSeconds    *float64
}

// Insight is the structured, persisted output of one successful analysis.
// Rows are append-only: a forced re-analysis creates a new row rather than
// mutating the old one.
type Insight struct {
	ID            uuid.UUID       `json:"id"`
	AnalysisID    uuid.UUID       `json:"analysis_id"`
	Symbol        string          `json:"symbol"`
	AnalysisDate  time.Time       `json:"analysis_date"`
	Summary       string          `json:"summary"`
	TrendAnalysis string          `json:"trend_analysis"`
	RiskFactors   []string        `json:"risk_factors"`
	Opportunities []string        `json:"opportunities"`
	Confidence    ConfidenceLevel `json:"confidence_level"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LLMResponse is the raw result of one model completion call
type LLMResponse struct {
	Text       string         `json:"text"`
	TokensUsed int            `json:"tokens_used"`
	Model      string         `json:"model"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// SymbolResult is the per-symbol outcome of a batch run
type SymbolResult struct {
	Symbol       string `json:"symbol"`
	Status       string `json:"status"` // "success" or "error"
	ErrorMessage string `json:"error_message,omitempty"`
}

// BatchResult aggregates a batch analysis run. Results preserves input
// symbol order and contains attempted symbols only, so in fail-fast mode
// SuccessCount+FailureCount may be less than Total.
type BatchResult struct {
	Total        int            `json:"total"`
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	Duration     time.Duration  `json:"duration"`
	Results      []SymbolResult `json:"results"`
}
