package repository

import (
	"context"

	"stock-analyzer/models"
	"stock-analyzer/observability"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stock_analyses (
	id UUID PRIMARY KEY,
	symbol TEXT NOT NULL,
	analysis_date DATE NOT NULL,
	status TEXT NOT NULL,
	price_snapshot NUMERIC(18, 4),
	price_change_percent DOUBLE PRECISION,
	volume BIGINT,
	error_message TEXT NOT NULL DEFAULT '',
	duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (symbol, analysis_date)
);

CREATE TABLE IF NOT EXISTS analysis_insights (
	id UUID PRIMARY KEY,
	analysis_id UUID NOT NULL REFERENCES stock_analyses(id) ON DELETE CASCADE,
	symbol TEXT NOT NULL,
	analysis_date DATE NOT NULL,
	summary TEXT NOT NULL,
	trend_analysis TEXT NOT NULL DEFAULT '',
	risk_factors JSONB NOT NULL DEFAULT '[]',
	opportunities JSONB NOT NULL DEFAULT '[]',
	confidence_level TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_stock_analyses_symbol_date
	ON stock_analyses (symbol, analysis_date DESC);

CREATE INDEX IF NOT EXISTS idx_analysis_insights_symbol_created
	ON analysis_insights (symbol, created_at DESC);
`

// InitSchema creates the tables and indexes if they do not exist
func (r *Repository) InitSchema(ctx context.Context) error {
	if err := r.checkDB(); err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return &models.StorageError{Operation: "init_schema", Err: err}
	}

	observability.Info("database schema initialized")
	return nil
}
