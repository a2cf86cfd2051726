package insight

import (
	"context"
	"errors"

	"github.com/godilite/inspection-analytics/internal/analytics"
)

type Kind string

const (
	KindAchievement Kind = "achievement"
	KindConcern     Kind = "concern"
	KindTrend       Kind = "trend"
)

func (k Kind) valid() bool {
	return k == KindAchievement || k == KindConcern || k == KindTrend
}

type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

type Insight struct {
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImpactLevel Impact   `json:"impactLevel"`
	ActionItems []string `json:"actionItems"`
}

// Analysis is what an Oracle produces. Remote and local oracles return the same shape.
type Analysis struct {
	Insights        []Insight `json:"insights"`
	Strengths       []string  `json:"strengths"`
	Weaknesses      []string  `json:"weaknesses"`
	Recommendations []string  `json:"recommendations"`
}

// Input is everything an oracle may look at.
type Input struct {
	Aggregate  analytics.AggregateResult
	Categories []analytics.CategoryResult
	Trend      *analytics.TrendSummary
	Comments   []string
}

type Health string

const (
	HealthExcellent Health = "excellent"
	HealthGood      Health = "good"
	HealthFair      Health = "fair"
	HealthPoor      Health = "poor"
)

const (
	SourceNone  = "none"
	NoDataHint  = "no data in range"
	localSource = "local"
)

type Response struct {
	Insights        []Insight                 `json:"insights"`
	Strengths       []string                  `json:"strengths"`
	Weaknesses      []string                  `json:"weaknesses"`
	Recommendations []string                  `json:"recommendations"`
	OverallHealth   Health                    `json:"overallHealth"`
	Source          string                    `json:"source"`
	Hint            string                    `json:"hint,omitempty"`
	Statistics      analytics.AggregateResult `json:"statistics"`
}

var (
	ErrOracleUnavailable = errors.New("text analysis oracle unavailable")
	ErrNoCredentials     = errors.New("oracle credentials not configured")
)

// Oracle produces qualitative analysis from statistics and free-text comments.
type Oracle interface {
	Name() string
	Analyze(ctx context.Context, in Input) (Analysis, error)
}

// OverallHealth classifies purely on numeric thresholds, independent of which oracle ran.
func OverallHealth(agg analytics.AggregateResult) Health {
	switch {
	case agg.CompletionRatePct >= 90 && agg.AverageRating >= 3.5:
		return HealthExcellent
	case agg.CompletionRatePct >= 75 && agg.AverageRating >= 3.0:
		return HealthGood
	case agg.CompletionRatePct >= 50 && agg.AverageRating >= 2.5:
		return HealthFair
	default:
		return HealthPoor
	}
}

// finalize fills the derived lists from the insights when an oracle left them empty
// and guarantees non-nil slices so both paths serialize identically.
func finalize(a Analysis) Analysis {
	if a.Insights == nil {
		a.Insights = []Insight{}
	}
	for i := range a.Insights {
		if a.Insights[i].ActionItems == nil {
			a.Insights[i].ActionItems = []string{}
		}
	}

	if len(a.Strengths) == 0 {
		a.Strengths = collect(a.Insights, KindAchievement, func(in Insight) []string { return []string{in.Description} })
	}
	if len(a.Weaknesses) == 0 {
		a.Weaknesses = collect(a.Insights, KindConcern, func(in Insight) []string { return []string{in.Description} })
	}
	if len(a.Recommendations) == 0 {
		a.Recommendations = collect(a.Insights, "", func(in Insight) []string { return in.ActionItems })
	}
	return a
}

// collect gathers unique strings from insights of the given kind, or of every kind when kind is empty.
func collect(insights []Insight, kind Kind, fn func(Insight) []string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, in := range insights {
		if kind != "" && in.Kind != kind {
			continue
		}
		for _, s := range fn(in) {
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
