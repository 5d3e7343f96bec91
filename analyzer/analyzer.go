package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"stock-analyzer/models"
	"stock-analyzer/observability"
	"stock-analyzer/repository"
	"stock-analyzer/services"
)

// DataFetcher provides market data snapshots for a symbol and date range
type DataFetcher interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) (*models.Snapshot, error)
}

// Storage is the slice of persistence the analyzer depends on
type Storage interface {
	SaveAnalysisRecord(ctx context.Context, rec *models.AnalysisRecord) error
	GetAnalysisRecord(ctx context.Context, symbol string, date time.Time) (*models.AnalysisRecord, error)
	UpdateAnalysisRecord(ctx context.Context, rec *models.AnalysisRecord, patch models.AnalysisRecordPatch) error
	SaveInsight(ctx context.Context, insight *models.Insight) error
	GetLatestInsights(ctx context.Context, symbol string, limit int) ([]models.Insight, error)
}

// Compile-time checks against the concrete implementations
var (
	_ DataFetcher = (*services.Fetcher)(nil)
	_ Storage     = (repository.StorageInterface)(nil)
)

// defaultAnalysisWindowDays is the trailing history window when none is
// configured
const defaultAnalysisWindowDays = 30

// Analyzer coordinates the analysis workflow: fetch market data, generate
// insight text through the LLM, extract structure, persist the result.
type Analyzer struct {
	llm         services.LLMClient
	fetcher     DataFetcher
	storage     Storage
	historyDays int
}

// New creates an Analyzer from its three collaborators. historyDays is the
// trailing market-data window fetched per analysis; values of 0 or less use
// the 30-day default.
func New(llm services.LLMClient, fetcher DataFetcher, storage Storage, historyDays int) *Analyzer {
	if historyDays <= 0 {
		historyDays = defaultAnalysisWindowDays
	}
	return &Analyzer{llm: llm, fetcher: fetcher, storage: storage, historyDays: historyDays}
}

// Analyze runs one analysis for a symbol. A zero date means today (UTC).
// Successful runs for the same (symbol, date) pair are served from storage
// unless force is set or the stored summary looks stale.
//
// Every failure is recorded as a failed analysis before the error is
// returned.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, date time.Time, force bool) (*models.Insight, error) {
	if date.IsZero() {
		date = time.Now().UTC().Truncate(24 * time.Hour)
	}
	start := time.Now()

	metrics := observability.GetMetrics()
	metrics.RecordAnalysisRequest(symbol)
	timer := metrics.NewTimer()

	observability.Info("starting analysis", "symbol", symbol, "date", date.Format("2006-01-02"), "force", force)

	existing, err := a.storage.GetAnalysisRecord(ctx, symbol, date)
	if err != nil {
		return nil, a.recordFailure(ctx, symbol, date, uuid.Nil, start, timer, err)
	}

	if !force && existing != nil && existing.Status == models.AnalysisStatusSuccess {
		insights, err := a.storage.GetLatestInsights(ctx, symbol, 1)
		if err != nil {
			return nil, a.recordFailure(ctx, symbol, date, existing.ID, start, timer, err)
		}
		if len(insights) > 0 {
			if !IsStaleSummary(insights[0].Summary) {
				observability.Info("returning cached analysis", "symbol", symbol, "date", date.Format("2006-01-02"))
				metrics.RecordCacheHit(symbol)
				return &insights[0], nil
			}
			observability.Warn("stored summary looks stale, regenerating", "symbol", symbol)
		}
	}

	rec := models.NewAnalysisRecord(symbol, date)
	if existing != nil {
		rec.ID = existing.ID
	}
	if err := a.storage.SaveAnalysisRecord(ctx, rec); err != nil {
		return nil, a.recordFailure(ctx, symbol, date, rec.ID, start, timer, err)
	}

	insight, err := a.run(ctx, rec, date, start)
	if err != nil {
		return nil, a.recordFailure(ctx, symbol, date, rec.ID, start, timer, err)
	}

	timer.ObserveAnalysis(symbol, string(models.AnalysisStatusSuccess))
	observability.Info("analysis complete",
		"symbol", symbol,
		"confidence", insight.Confidence,
		"duration", time.Since(start))

	return insight, nil
}

// run performs the fetch / generate / extract / persist pipeline for a
// pending analysis record.
func (a *Analyzer) run(ctx context.Context, rec *models.AnalysisRecord, date time.Time, start time.Time) (*models.Insight, error) {
	symbol := rec.Symbol

	snapshot, err := a.fetcher.Fetch(ctx, symbol, date.AddDate(0, 0, -a.historyDays), date)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(snapshot)
	observability.Debug("prompt generated", "symbol", symbol, "length", len(prompt))

	response, err := a.llm.Analyze(ctx, prompt, snapshot, SystemPrompt)
	if err != nil {
		return nil, err
	}

	summary, trend := ExtractSummaryAndTrend(response.Text)
	riskFactors := ExtractBulletSection(response.Text, "Risk Factors")
	opportunities := ExtractBulletSection(response.Text, "Opportunities")
	confidence := DetermineConfidence(snapshot, response.Text)

	duration := time.Since(start).Seconds()

	status := models.AnalysisStatusSuccess
	errMsg := ""
	patch := models.AnalysisRecordPatch{
		Status:             &status,
		PriceSnapshot:      &snapshot.CurrentPrice,
		PriceChangePercent: &snapshot.PriceChangePercent,
		Volume:             &snapshot.Volume,
		ErrorMessage:       &errMsg,
		DurationSeconds:    &duration,
	}
	if err := a.storage.UpdateAnalysisRecord(ctx, rec, patch); err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"llm_model":        response.Model,
		"tokens_used":      response.TokensUsed,
		"duration_seconds": duration,
		"data_source":      snapshot.Meta.Source,
	}
	for k, v := range response.Metadata {
		metadata[k] = v
	}

	insight := &models.Insight{
		ID:            uuid.New(),
		AnalysisID:    rec.ID,
		Symbol:        symbol,
		AnalysisDate:  date,
		Summary:       summary,
		TrendAnalysis: trend,
		RiskFactors:   riskFactors,
		Opportunities: opportunities,
		Confidence:    confidence,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}
	if err := a.storage.SaveInsight(ctx, insight); err != nil {
		return nil, err
	}

	observability.GetMetrics().RecordInsightConfidence(string(confidence))
	observability.Info("insight saved",
		"symbol", symbol,
		"model", response.Model,
		"tokens_used", response.TokensUsed)

	return insight, nil
}

// recordFailure persists a failed analysis record and returns the original
// failure, wrapped as an AnalysisError when it carries no domain type of
// its own. Persistence errors during failure recording are logged, never
// allowed to mask the analysis failure.
func (a *Analyzer) recordFailure(ctx context.Context, symbol string, date time.Time, id uuid.UUID, start time.Time, timer *observability.Timer, cause error) error {
	duration := time.Since(start).Seconds()

	timer.ObserveAnalysis(symbol, string(models.AnalysisStatusFailed))
	observability.GetMetrics().RecordAnalysisError(symbol, errorType(cause))
	observability.Error("analysis failed", "symbol", symbol, "duration_seconds", duration, "error", cause)

	rec := models.NewAnalysisRecord(symbol, date)
	if id != uuid.Nil {
		rec.ID = id
	}
	rec.Status = models.AnalysisStatusFailed
	rec.ErrorMessage = cause.Error()
	rec.DurationSeconds = duration

	// The failed record must land even when the analysis died of the
	// caller's cancellation, so the write runs on a detached context.
	persistCtx := context.WithoutCancel(ctx)
	if err := a.storage.SaveAnalysisRecord(persistCtx, rec); err != nil {
		observability.Error("failed to persist failure record", "symbol", symbol, "error", err)
	}

	if isDomainError(cause) {
		return cause
	}
	return &models.AnalysisError{Symbol: symbol, Reason: cause.Error(), Model: "unknown"}
}

// isDomainError reports whether err already carries one of the typed
// failures callers branch on
func isDomainError(err error) bool {
	var invalidSymbol *models.InvalidSymbolError
	var rateLimit *models.RateLimitError
	var dataFetch *models.DataFetchError
	var analysis *models.AnalysisError
	var storage *models.StorageError

	return errors.As(err, &invalidSymbol) ||
		errors.As(err, &rateLimit) ||
		errors.As(err, &dataFetch) ||
		errors.As(err, &analysis) ||
		errors.As(err, &storage)
}

// errorType maps an error to its metrics label
func errorType(err error) string {
	var invalidSymbol *models.InvalidSymbolError
	var rateLimit *models.RateLimitError
	var dataFetch *models.DataFetchError
	var analysis *models.AnalysisError
	var storage *models.StorageError

	switch {
	case errors.As(err, &invalidSymbol):
		return "invalid_symbol"
	case errors.As(err, &rateLimit):
		return "rate_limit"
	case errors.As(err, &dataFetch):
		return "data_fetch"
	case errors.As(err, &analysis):
		return "analysis"
	case errors.As(err, &storage):
		return "storage"
	default:
		return "other"
	}
}
