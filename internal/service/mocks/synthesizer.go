package mocks

import (
	"context"

	"github.com/godilite/inspection-analytics/internal/insight"
)

// MockInsightSynthesizer is a function-based mock of the InsightSynthesizer interface.
type MockInsightSynthesizer struct {
	SynthesizeFunc func(ctx context.Context, in insight.Input) insight.Response
}

// Synthesize implements the InsightSynthesizer interface
func (m *MockInsightSynthesizer) Synthesize(ctx context.Context, in insight.Input) insight.Response {
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, in)
	}
	return insight.Response{Source: "mock", OverallHealth: insight.OverallHealth(in.Aggregate)}
}
