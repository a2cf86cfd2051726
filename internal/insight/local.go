package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/godilite/inspection-analytics/internal/analytics"
)

type band string

const (
	bandExcellent        band = "excellent"
	bandGood             band = "good"
	bandAverage          band = "average"
	bandNeedsImprovement band = "needs_improvement"
)

func bandOf(pct float64) band {
	switch {
	case pct >= 85:
		return bandExcellent
	case pct >= 70:
		return bandGood
	case pct >= 50:
		return bandAverage
	default:
		return bandNeedsImprovement
	}
}

var (
	positiveKeywords = []string{
		"excellent", "clean", "good", "great", "tidy", "spotless", "well maintained", "fresh",
		"ممتاز", "نظيف", "جيد", "مرتب",
	}
	negativeKeywords = []string{
		"dirty", "broken", "missing", "damaged", "stain", "smell", "odor", "leak", "poor", "late", "dust", "trash",
		"متسخ", "مكسور", "ناقص", "تالف", "رائحة", "تسريب", "سيء", "غبار",
	}
)

// LocalHeuristic is the deterministic fallback oracle: keyword sentiment counting
// plus threshold-keyed narrative templates.
type LocalHeuristic struct{}

func NewLocalHeuristic() *LocalHeuristic { return &LocalHeuristic{} }

func (LocalHeuristic) Name() string { return localSource }

// Analyze never fails and ignores ctx.
func (LocalHeuristic) Analyze(_ context.Context, in Input) (Analysis, error) {
	var insights []Insight
	agg := in.Aggregate

	insights = append(insights, completionInsight(agg))
	if agg.AverageRating > 0 {
		insights = append(insights, ratingInsight(agg))
	}
	insights = append(insights, categoryInsights(in.Categories)...)
	if s, ok := sentimentInsight(in.Comments); ok {
		insights = append(insights, s)
	}
	if in.Trend != nil {
		if t, ok := trendInsight(*in.Trend); ok {
			insights = append(insights, t)
		}
	}

	a := finalize(Analysis{Insights: insights})
	if len(a.Strengths) == 0 && agg.TotalEvaluations > 0 {
		a.Strengths = []string{fmt.Sprintf("%d evaluations were recorded across %d locations.", agg.TotalEvaluations, agg.ActiveLocations)}
	}
	if len(a.Weaknesses) == 0 && agg.TotalEvaluations > 0 {
		a.Weaknesses = []string{weakestArea(agg, in.Categories)}
	}
	if len(a.Recommendations) == 0 {
		a.Recommendations = []string{"Maintain the current inspection cadence and standards."}
	}
	return a, nil
}

// weakestArea names the largest remaining gap when no concern was raised.
func weakestArea(agg analytics.AggregateResult, categories []analytics.CategoryResult) string {
	var lowest *analytics.CategoryResult
	for i := range categories {
		c := &categories[i]
		if c.AverageRating <= 0 || c.CategoryLabel == "" {
			continue
		}
		if lowest == nil || c.AverageRating < lowest.AverageRating ||
			(c.AverageRating == lowest.AverageRating && c.CategoryLabel < lowest.CategoryLabel) {
			lowest = c
		}
	}
	switch {
	case lowest != nil && lowest.AverageRating < analytics.MaxRating:
		return fmt.Sprintf("%s is the lowest rated area at %.2f of 4.", lowest.CategoryLabel, lowest.AverageRating)
	case agg.CompletionRatePct < 100:
		return fmt.Sprintf("%.2f%% of checklist items remain open.", 100-agg.CompletionRatePct)
	case agg.AverageRating > 0 && agg.AverageRating < analytics.MaxRating:
		return fmt.Sprintf("Average rating is %.2f short of the top score.", analytics.RoundHalfUp(analytics.MaxRating-agg.AverageRating))
	default:
		return "No significant weaknesses were identified in this period."
	}
}

func completionInsight(agg analytics.AggregateResult) Insight {
	pct := agg.CompletionRatePct
	switch bandOf(pct) {
	case bandExcellent:
		return Insight{
			Kind:        KindAchievement,
			Title:       "Excellent checklist completion",
			Description: fmt.Sprintf("%.2f%% of checklist items were completed across %d evaluations.", pct, agg.TotalEvaluations),
			ImpactLevel: ImpactLow,
			ActionItems: []string{},
		}
	case bandGood:
		return Insight{
			Kind:        KindAchievement,
			Title:       "Good checklist completion",
			Description: fmt.Sprintf("%.2f%% of checklist items were completed; a small share is still left open.", pct),
			ImpactLevel: ImpactLow,
			ActionItems: []string{"Follow up on the remaining open checklist items."},
		}
	case bandAverage:
		return Insight{
			Kind:        KindConcern,
			Title:       "Checklist completion below target",
			Description: fmt.Sprintf("Only %.2f%% of checklist items were completed.", pct),
			ImpactLevel: ImpactMedium,
			ActionItems: []string{
				"Review incomplete checklist items with site supervisors.",
				"Confirm staffing covers every scheduled task.",
			},
		}
	default:
		return Insight{
			Kind:        KindConcern,
			Title:       "Checklist completion needs improvement",
			Description: fmt.Sprintf("Checklist completion is at %.2f%%, well below acceptable levels.", pct),
			ImpactLevel: ImpactHigh,
			ActionItems: []string{
				"Audit why checklist items are being skipped.",
				"Schedule refresher training for inspection staff.",
			},
		}
	}
}

func ratingInsight(agg analytics.AggregateResult) Insight {
	pct := agg.AverageRatingPct
	switch bandOf(pct) {
	case bandExcellent:
		return Insight{
			Kind:        KindAchievement,
			Title:       "Excellent quality ratings",
			Description: fmt.Sprintf("Average rating is %.2f of 4 (%.2f%%).", agg.AverageRating, pct),
			ImpactLevel: ImpactLow,
			ActionItems: []string{},
		}
	case bandGood:
		return Insight{
			Kind:        KindAchievement,
			Title:       "Good quality ratings",
			Description: fmt.Sprintf("Average rating is %.2f of 4 (%.2f%%).", agg.AverageRating, pct),
			ImpactLevel: ImpactLow,
			ActionItems: []string{"Share practices from the highest rated locations."},
		}
	case bandAverage:
		return Insight{
			Kind:        KindConcern,
			Title:       "Average quality ratings",
			Description: fmt.Sprintf("Average rating is %.2f of 4 (%.2f%%), leaving room for improvement.", agg.AverageRating, pct),
			ImpactLevel: ImpactMedium,
			ActionItems: []string{"Focus supervision on the lowest rated checklist categories."},
		}
	default:
		return Insight{
			Kind:        KindConcern,
			Title:       "Quality ratings need improvement",
			Description: fmt.Sprintf("Average rating is %.2f of 4 (%.2f%%).", agg.AverageRating, pct),
			ImpactLevel: ImpactHigh,
			ActionItems: []string{
				"Run corrective inspections at poorly rated locations.",
				"Review cleaning standards and materials with service providers.",
			},
		}
	}
}

func categoryInsights(categories []analytics.CategoryResult) []Insight {
	rated := make([]analytics.CategoryResult, 0, len(categories))
	for _, c := range categories {
		if c.AverageRating > 0 && c.CategoryLabel != "" {
			rated = append(rated, c)
		}
	}
	if len(rated) < 2 {
		return nil
	}
	sort.SliceStable(rated, func(i, j int) bool {
		if rated[i].AverageRating != rated[j].AverageRating {
			return rated[i].AverageRating < rated[j].AverageRating
		}
		return rated[i].CategoryLabel < rated[j].CategoryLabel
	})

	var out []Insight
	weakest, strongest := rated[0], rated[len(rated)-1]
	if weakest.AverageRating < 3.0 {
		out = append(out, Insight{
			Kind:        KindConcern,
			Title:       fmt.Sprintf("%s is the lowest rated category", weakest.CategoryLabel),
			Description: fmt.Sprintf("%s averages %.2f of 4.", weakest.CategoryLabel, weakest.AverageRating),
			ImpactLevel: ImpactMedium,
			ActionItems: []string{fmt.Sprintf("Prioritize corrective work on %s.", weakest.CategoryLabel)},
		})
	}
	if strongest.AverageRating >= 3.5 {
		out = append(out, Insight{
			Kind:        KindAchievement,
			Title:       fmt.Sprintf("%s is the strongest category", strongest.CategoryLabel),
			Description: fmt.Sprintf("%s averages %.2f of 4.", strongest.CategoryLabel, strongest.AverageRating),
			ImpactLevel: ImpactLow,
			ActionItems: []string{},
		})
	}
	return out
}

type keywordCount struct {
	keyword string
	count   int
}

func countKeywords(text string, keywords []string) (int, []keywordCount) {
	total := 0
	var hits []keywordCount
	for _, kw := range keywords {
		if n := strings.Count(text, kw); n > 0 {
			total += n
			hits = append(hits, keywordCount{keyword: kw, count: n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].keyword < hits[j].keyword
	})
	return total, hits
}

func sentimentInsight(comments []string) (Insight, bool) {
	if len(comments) == 0 {
		return Insight{}, false
	}
	text := strings.ToLower(strings.Join(comments, "\n"))
	pos, _ := countKeywords(text, positiveKeywords)
	neg, negHits := countKeywords(text, negativeKeywords)

	switch {
	case neg > pos:
		top := make([]string, 0, 3)
		for i := 0; i < len(negHits) && i < 3; i++ {
			top = append(top, negHits[i].keyword)
		}
		impact := ImpactMedium
		if neg >= 2*pos+3 {
			impact = ImpactHigh
		}
		return Insight{
			Kind:        KindConcern,
			Title:       "Inspector comments flag recurring issues",
			Description: fmt.Sprintf("Comments mention problems %d times (most often: %s).", neg, strings.Join(top, ", ")),
			ImpactLevel: impact,
			ActionItems: []string{"Address the issues most frequently raised in inspector comments."},
		}, true
	case pos > neg:
		return Insight{
			Kind:        KindAchievement,
			Title:       "Inspector comments are mostly positive",
			Description: fmt.Sprintf("Comments contain %d positive mentions against %d negative ones.", pos, neg),
			ImpactLevel: ImpactLow,
			ActionItems: []string{},
		}, true
	default:
		return Insight{}, false
	}
}

func trendInsight(t analytics.TrendSummary) (Insight, bool) {
	switch t.Trend {
	case analytics.TrendImproving:
		return Insight{
			Kind:        KindTrend,
			Title:       "Performance is improving",
			Description: fmt.Sprintf("Average rating changed by %+.2f and completion by %+.2f points over the period.", t.RatingChange, t.CompletionChange),
			ImpactLevel: ImpactMedium,
			ActionItems: []string{},
		}, true
	case analytics.TrendDeclining:
		return Insight{
			Kind:        KindTrend,
			Title:       "Performance is declining",
			Description: fmt.Sprintf("Average rating changed by %+.2f and completion by %+.2f points over the period.", t.RatingChange, t.CompletionChange),
			ImpactLevel: ImpactHigh,
			ActionItems: []string{"Investigate what changed at sites with falling scores."},
		}, true
	default:
		return Insight{}, false
	}
}
