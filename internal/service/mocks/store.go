package mocks

import (
	"context"
	"errors"

	"github.com/godilite/inspection-analytics/internal/repository/models"
)

// MockEvaluationStore is a mock implementation of the EvaluationStore interface
// for testing the service layer.
type MockEvaluationStore struct {
	FetchEvaluationsFunc     func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error)
	ResolveLocationNamesFunc func(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error)
	ResolveUserNamesFunc     func(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error)
}

// FetchEvaluations implements the EvaluationStore interface
func (m *MockEvaluationStore) FetchEvaluations(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
	if m.FetchEvaluationsFunc != nil {
		return m.FetchEvaluationsFunc(ctx, q)
	}
	return nil, errors.New("FetchEvaluationsFunc not implemented")
}

// ResolveLocationNames implements the EvaluationStore interface
func (m *MockEvaluationStore) ResolveLocationNames(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error) {
	if m.ResolveLocationNamesFunc != nil {
		return m.ResolveLocationNamesFunc(ctx, ids)
	}
	return map[int64]models.NamedEntity{}, nil
}

// ResolveUserNames implements the EvaluationStore interface
func (m *MockEvaluationStore) ResolveUserNames(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error) {
	if m.ResolveUserNamesFunc != nil {
		return m.ResolveUserNamesFunc(ctx, ids)
	}
	return map[int64]models.NamedEntity{}, nil
}
