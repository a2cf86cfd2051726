package mocks

import (
	"context"
	"errors"

	"github.com/godilite/inspection-analytics/internal/insight"
)

// MockOracle is a function-based mock of insight.Oracle.
type MockOracle struct {
	NameValue   string
	AnalyzeFunc func(ctx context.Context, in insight.Input) (insight.Analysis, error)
}

// Name implements the Oracle interface
func (m *MockOracle) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// Analyze implements the Oracle interface
func (m *MockOracle) Analyze(ctx context.Context, in insight.Input) (insight.Analysis, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, in)
	}
	return insight.Analysis{}, errors.New("AnalyzeFunc not implemented")
}
