package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// SaveInsight appends a new insight row. Insights are never updated in
// place; a forced re-analysis produces an additional row.
func (r *Repository) SaveInsight(ctx context.Context, insight *models.Insight) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", "analysis_insights")

	riskJSON, err := json.Marshal(insight.RiskFactors)
	if err != nil {
		return &models.StorageError{Operation: "save_insight", Err: fmt.Errorf("failed to marshal risk_factors: %w", err)}
	}
	oppJSON, err := json.Marshal(insight.Opportunities)
	if err != nil {
		return &models.StorageError{Operation: "save_insight", Err: fmt.Errorf("failed to marshal opportunities: %w", err)}
	}
	metaJSON, err := json.Marshal(insight.Metadata)
	if err != nil {
		return &models.StorageError{Operation: "save_insight", Err: fmt.Errorf("failed to marshal metadata: %w", err)}
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO analysis_insights (id, analysis_id, symbol, analysis_date, summary,
			trend_analysis, risk_factors, opportunities, confidence_level, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, insight.ID, insight.AnalysisID, insight.Symbol, insight.AnalysisDate, insight.Summary,
		insight.TrendAnalysis, riskJSON, oppJSON, insight.Confidence, metaJSON, insight.CreatedAt)

	if err != nil {
		metrics.RecordDBError("insert", "analysis_insights")
		return &models.StorageError{Operation: "save_insight", Err: err}
	}

	return nil
}

// GetLatestInsights returns the most recent insights for a symbol, newest
// first. A limit of 0 or less defaults to 10.
func (r *Repository) GetLatestInsights(ctx context.Context, symbol string, limit int) ([]models.Insight, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "analysis_insights")

	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, analysis_id, symbol, analysis_date, summary,
			   trend_analysis, risk_factors, opportunities, confidence_level, metadata, created_at
		FROM analysis_insights
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		metrics.RecordDBError("select", "analysis_insights")
		return nil, &models.StorageError{Operation: "get_latest_insights", Err: err}
	}
	defer rows.Close()

	var insights []models.Insight
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			metrics.RecordDBError("select", "analysis_insights")
			return nil, &models.StorageError{Operation: "get_latest_insights", Err: err}
		}
		insights = append(insights, *insight)
	}

	return insights, nil
}

// GetInsightByAnalysisID returns the insight attached to an analysis run,
// or (nil, nil) when none exists.
func (r *Repository) GetInsightByAnalysisID(ctx context.Context, analysisID string) (*models.Insight, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		SELECT id, analysis_id, symbol, analysis_date, summary,
			   trend_analysis, risk_factors, opportunities, confidence_level, metadata, created_at
		FROM analysis_insights
		WHERE analysis_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, analysisID)

	insight, err := scanInsight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StorageError{Operation: "get_insight", Err: err}
	}

	return insight, nil
}

// scanInsight scans an insight row into an Insight struct
func scanInsight(row pgx.Row) (*models.Insight, error) {
	var insight models.Insight
	var riskJSON, oppJSON, metaJSON []byte

	err := row.Scan(&insight.ID, &insight.AnalysisID, &insight.Symbol, &insight.AnalysisDate, &insight.Summary,
		&insight.TrendAnalysis, &riskJSON, &oppJSON, &insight.Confidence, &metaJSON, &insight.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(riskJSON) > 0 {
		if err := json.Unmarshal(riskJSON, &insight.RiskFactors); err != nil {
			insight.RiskFactors = nil
		}
	}
	if len(oppJSON) > 0 {
		if err := json.Unmarshal(oppJSON, &insight.Opportunities); err != nil {
			insight.Opportunities = nil
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &insight.Metadata); err != nil {
			insight.Metadata = nil
		}
	}

	return &insight, nil
}
