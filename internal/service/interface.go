package service

import (
	"context"

	"github.com/godilite/inspection-analytics/internal/analytics"
	"github.com/godilite/inspection-analytics/internal/insight"
	"github.com/godilite/inspection-analytics/internal/repository/models"
)

// EvaluationStore is the storage collaborator the service reads from.
type EvaluationStore interface {
	FetchEvaluations(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error)
	ResolveLocationNames(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error)
	ResolveUserNames(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error)
}

// RecordNormalizer turns raw rows into records.
type RecordNormalizer interface {
	NormalizeAll(rows []models.EvaluationRow) []analytics.EvaluationRecord
}

// InsightSynthesizer never fails; degraded answers are still answers.
type InsightSynthesizer interface {
	Synthesize(ctx context.Context, in insight.Input) insight.Response
}
