package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

// SaveAnalysisRecord upserts an analysis record keyed on (symbol, analysis_date).
// Re-running an analysis for the same pair replaces the previous attempt.
func (r *Repository) SaveAnalysisRecord(ctx context.Context, rec *models.AnalysisRecord) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("upsert", "stock_analyses")

	_, err := r.db.Exec(ctx, `
		INSERT INTO stock_analyses (id, symbol, analysis_date, status, price_snapshot,
			price_change_percent, volume, error_message, duration_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (symbol, analysis_date) DO UPDATE SET
			status = EXCLUDED.status,
			price_snapshot = EXCLUDED.price_snapshot,
			price_change_percent = EXCLUDED.price_change_percent,
			volume = EXCLUDED.volume,
			error_message = EXCLUDED.error_message,
			duration_seconds = EXCLUDED.duration_seconds,
			created_at = EXCLUDED.created_at
	`, rec.ID, rec.Symbol, rec.AnalysisDate, rec.Status, rec.PriceSnapshot,
		rec.PriceChangePercent, rec.Volume, rec.ErrorMessage, rec.DurationSeconds, rec.CreatedAt)

	if err != nil {
		metrics.RecordDBError("upsert", "stock_analyses")
		return &models.StorageError{Operation: "save_analysis", Err: err}
	}

	return nil
}

// GetAnalysisRecord returns the record for a (symbol, date) pair, or
// (nil, nil) when no record exists.
func (r *Repository) GetAnalysisRecord(ctx context.Context, symbol string, date time.Time) (*models.AnalysisRecord, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "stock_analyses")

	row := r.db.QueryRow(ctx, `
		SELECT id, symbol, analysis_date, status, price_snapshot,
			   price_change_percent, volume, error_message, duration_seconds, created_at
		FROM stock_analyses
		WHERE symbol = $1 AND analysis_date = $2
	`, symbol, date)

	rec, err := scanAnalysisRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", "stock_analyses")
		return nil, &models.StorageError{Operation: "get_analysis", Err: err}
	}

	return rec, nil
}

// UpdateAnalysisRecord applies the non-nil fields of the patch to the record
// with the given ID. A nil field leaves the column untouched.
func (r *Repository) UpdateAnalysisRecord(ctx context.Context, rec *models.AnalysisRecord, patch models.AnalysisRecordPatch) error {
	if err := r.checkDB(); err != nil {
		return err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("update", "stock_analyses")

	var sets []string
	var args []any
	args = append(args, rec.ID)

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		addSet("status", *patch.Status)
		rec.Status = *patch.Status
	}
	if patch.PriceSnapshot != nil {
		addSet("price_snapshot", *patch.PriceSnapshot)
		rec.PriceSnapshot = *patch.PriceSnapshot
	}
	if patch.PriceChangePercent != nil {
		addSet("price_change_percent", *patch.PriceChangePercent)
		rec.PriceChangePercent = patch.PriceChangePercent
	}
	if patch.Volume != nil {
		addSet("volume", *patch.Volume)
		rec.Volume = patch.Volume
	}
	if patch.ErrorMessage != nil {
		addSet("error_message", *patch.ErrorMessage)
		rec.ErrorMessage = *patch.ErrorMessage
	}
	if patch.DurationSeconds != nil {
		addSet("duration_seconds", *patch.DurationSeconds)
		rec.DurationSeconds = *patch.DurationSeconds
	}

	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE stock_analyses SET %s WHERE id = $1", strings.Join(sets, ", "))
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		metrics.RecordDBError("update", "stock_analyses")
		return &models.StorageError{Operation: "update_analysis", Err: err}
	}
	if tag.RowsAffected() == 0 {
		metrics.RecordDBError("update", "stock_analyses")
		return &models.StorageError{Operation: "update_analysis", Err: fmt.Errorf("no analysis record with id %s", rec.ID)}
	}

	return nil
}

// GetAnalysisHistory returns the most recent analysis records for a symbol,
// newest first.
func (r *Repository) GetAnalysisHistory(ctx context.Context, symbol string, limit int) ([]models.AnalysisRecord, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}
	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", "stock_analyses")

	if limit <= 0 {
		limit = 30
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, symbol, analysis_date, status, price_snapshot,
			   price_change_percent, volume, error_message, duration_seconds, created_at
		FROM stock_analyses
		WHERE symbol = $1
		ORDER BY analysis_date DESC
		LIMIT $2
	`, symbol, limit)
	if err != nil {
		metrics.RecordDBError("select", "stock_analyses")
		return nil, &models.StorageError{Operation: "get_analysis_history", Err: err}
	}
	defer rows.Close()

	var records []models.AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysisRecord(rows)
		if err != nil {
			metrics.RecordDBError("select", "stock_analyses")
			return nil, &models.StorageError{Operation: "get_analysis_history", Err: err}
		}
		records = append(records, *rec)
	}

	return records, nil
}

// scanAnalysisRecord scans an analysis row into an AnalysisRecord struct
func scanAnalysisRecord(row pgx.Row) (*models.AnalysisRecord, error) {
	var rec models.AnalysisRecord
	err := row.Scan(&rec.ID, &rec.Symbol, &rec.AnalysisDate, &rec.Status, &rec.PriceSnapshot,
		&rec.PriceChangePercent, &rec.Volume, &rec.ErrorMessage, &rec.DurationSeconds, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
