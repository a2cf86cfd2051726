package insight_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godilite/inspection-analytics/internal/analytics"
	"github.com/godilite/inspection-analytics/internal/insight"
	"github.com/godilite/inspection-analytics/internal/insight/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleInput() insight.Input {
	return insight.Input{
		Aggregate: analytics.AggregateResult{
			TotalEvaluations:  4,
			TotalTasks:        10,
			CompletedTasks:    5,
			CompletionRatePct: 50,
			AverageRating:     4.0,
			AverageRatingPct:  100,
			ActiveLocations:   2,
			ActiveUsers:       2,
		},
		Comments: []string{"Floor was dirty near the entrance", "Broken soap dispenser"},
	}
}

// TestSynthesize_OracleTimeout covers an oracle that never answers in time.
func TestSynthesize_OracleTimeout(t *testing.T) {
	blocking := &mocks.MockOracle{
		NameValue: "slow",
		AnalyzeFunc: func(ctx context.Context, in insight.Input) (insight.Analysis, error) {
			// Ignores ctx on purpose; the synthesizer must still return on time.
			time.Sleep(500 * time.Millisecond)
			return insight.Analysis{}, nil
		},
	}
	s := insight.NewSynthesizer(blocking, 20*time.Millisecond, zap.NewNop())
	in := sampleInput()

	start := time.Now()
	resp := s.Synthesize(context.Background(), in)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 400*time.Millisecond)
	assert.Equal(t, "local", resp.Source)
	assert.NotEmpty(t, resp.Insights)
	assert.NotEmpty(t, resp.Strengths)
	assert.NotEmpty(t, resp.Weaknesses)
	assert.NotEmpty(t, resp.Recommendations)
	assert.Equal(t, insight.OverallHealth(in.Aggregate), resp.OverallHealth)
	assert.Equal(t, insight.HealthFair, resp.OverallHealth)

	t.Run("healthy data still lists a weakness", func(t *testing.T) {
		healthy := insight.Input{Aggregate: analytics.AggregateResult{
			TotalEvaluations:  6,
			TotalTasks:        30,
			CompletedTasks:    30,
			CompletionRatePct: 100,
			AverageRating:     3.9,
			AverageRatingPct:  97.5,
			ActiveLocations:   2,
			ActiveUsers:       2,
		}}

		resp := s.Synthesize(context.Background(), healthy)

		assert.Equal(t, "local", resp.Source)
		assert.Equal(t, insight.HealthExcellent, resp.OverallHealth)
		assert.NotEmpty(t, resp.Strengths)
		assert.Equal(t, []string{"Average rating is 0.10 short of the top score."}, resp.Weaknesses)
		assert.NotEmpty(t, resp.Recommendations)
	})
}

func TestSynthesize_OracleSuccess(t *testing.T) {
	remote := &mocks.MockOracle{
		NameValue: "gemini",
		AnalyzeFunc: func(ctx context.Context, in insight.Input) (insight.Analysis, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return insight.Analysis{
				Insights: []insight.Insight{
					{Kind: insight.KindConcern, Title: "Restrooms", Description: "Restrooms lag behind", ImpactLevel: insight.ImpactHigh, ActionItems: []string{"Deep clean restrooms"}},
					{Kind: insight.KindAchievement, Title: "Lobby", Description: "Lobby is spotless", ImpactLevel: insight.ImpactLow},
				},
			}, nil
		},
	}
	s := insight.NewSynthesizer(remote, time.Second, zap.NewNop())

	resp := s.Synthesize(context.Background(), sampleInput())

	assert.Equal(t, "gemini", resp.Source)
	require.Len(t, resp.Insights, 2)
	assert.Equal(t, []string{"Lobby is spotless"}, resp.Strengths)
	assert.Equal(t, []string{"Restrooms lag behind"}, resp.Weaknesses)
	assert.Equal(t, []string{"Deep clean restrooms"}, resp.Recommendations)
	assert.NotNil(t, resp.Insights[1].ActionItems)
	assert.Equal(t, insight.HealthFair, resp.OverallHealth)
}

func TestSynthesize_OracleErrorFallsBack(t *testing.T) {
	errs := []error{
		insight.ErrNoCredentials,
		insight.ErrOracleUnavailable,
		errors.New("quota exceeded"),
	}

	for _, e := range errs {
		t.Run(e.Error(), func(t *testing.T) {
			remote := &mocks.MockOracle{
				AnalyzeFunc: func(ctx context.Context, in insight.Input) (insight.Analysis, error) {
					return insight.Analysis{}, e
				},
			}
			s := insight.NewSynthesizer(remote, time.Second, zap.NewNop())

			resp := s.Synthesize(context.Background(), sampleInput())

			assert.Equal(t, "local", resp.Source)
			assert.NotEmpty(t, resp.Insights)
		})
	}
}

func TestSynthesize_NoRemoteUsesLocal(t *testing.T) {
	s := insight.NewSynthesizer(nil, 0, nil)

	resp := s.Synthesize(context.Background(), sampleInput())

	assert.Equal(t, "local", resp.Source)
	assert.Empty(t, resp.Hint)
}

func TestSynthesize_EmptyResultSet(t *testing.T) {
	called := false
	remote := &mocks.MockOracle{
		AnalyzeFunc: func(ctx context.Context, in insight.Input) (insight.Analysis, error) {
			called = true
			return insight.Analysis{}, nil
		},
	}
	s := insight.NewSynthesizer(remote, time.Second, zap.NewNop())

	resp := s.Synthesize(context.Background(), insight.Input{})

	assert.False(t, called)
	assert.Equal(t, insight.NoDataHint, resp.Hint)
	assert.Equal(t, insight.SourceNone, resp.Source)
	assert.NotNil(t, resp.Insights)
	assert.Empty(t, resp.Insights)
	assert.NotNil(t, resp.Recommendations)
	assert.Equal(t, insight.HealthPoor, resp.OverallHealth)
}

func TestOverallHealth(t *testing.T) {
	cases := []struct {
		name       string
		completion float64
		rating     float64
		want       insight.Health
	}{
		{"excellent", 90, 3.5, insight.HealthExcellent},
		{"high completion lower rating", 95, 3.2, insight.HealthGood},
		{"good", 75, 3.0, insight.HealthGood},
		{"fair", 50, 2.5, insight.HealthFair},
		{"high rating low completion", 40, 4, insight.HealthPoor},
		{"zeros", 0, 0, insight.HealthPoor},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			agg := analytics.AggregateResult{CompletionRatePct: tc.completion, AverageRating: tc.rating}
			assert.Equal(t, tc.want, insight.OverallHealth(agg))
		})
	}
}
