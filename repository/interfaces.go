package repository

import (
	"context"
	"time"

	"stock-analyzer/models"
)

// StorageInterface defines all persistence operations the analyzer needs
type StorageInterface interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error
	InitSchema(ctx context.Context) error

	// Analysis records
	SaveAnalysisRecord(ctx context.Context, rec *models.AnalysisRecord) error
	GetAnalysisRecord(ctx context.Context, symbol string, date time.Time) (*models.AnalysisRecord, error)
	UpdateAnalysisRecord(ctx context.Context, rec *models.AnalysisRecord, patch models.AnalysisRecordPatch) error
	GetAnalysisHistory(ctx context.Context, symbol string, limit int) ([]models.AnalysisRecord, error)

	// Insights
	SaveInsight(ctx context.Context, insight *models.Insight) error
	GetLatestInsights(ctx context.Context, symbol string, limit int) ([]models.Insight, error)
	GetInsightByAnalysisID(ctx context.Context, analysisID string) (*models.Insight, error)
}

// Compile-time interface verification
var _ StorageInterface = (*Repository)(nil)
