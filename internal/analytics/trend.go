package analytics

import (
	"math"
	"sort"
)

// Thresholds in hundredths; points carry values rounded to 2 decimals.
const (
	trendRatingThreshold     = 10  // 0.1 on the 0..4 scale
	trendCompletionThreshold = 500 // 5 percentage points
)

// BuildTrend groups records by calendar date and returns one point per date
// present, in ascending date order, plus the trend summary.
func BuildTrend(records []EvaluationRecord) TrendSeries {
	byDate := make(map[string][]EvaluationRecord)
	for _, r := range records {
		byDate[r.EvaluationDate] = append(byDate[r.EvaluationDate], r)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	// ISO dates sort lexically.
	sort.Strings(dates)

	points := make([]TrendPoint, 0, len(dates))
	for _, d := range dates {
		agg := Aggregate(byDate[d])
		points = append(points, TrendPoint{
			Date:              d,
			CompletionRatePct: agg.CompletionRatePct,
			AverageRating:     agg.AverageRating,
			EvaluationsCount:  agg.TotalEvaluations,
			TasksCount:        agg.TotalTasks,
		})
	}

	return TrendSeries{
		Points:  points,
		Summary: Summarize(points),
	}
}

// ClassifyTrend compares the first and last points. Fewer than two points is always stable.
func ClassifyTrend(points []TrendPoint) TrendDirection {
	if len(points) < 2 {
		return TrendStable
	}
	first, last := points[0], points[len(points)-1]
	ratingDelta := hundredths(last.AverageRating) - hundredths(first.AverageRating)
	completionDelta := hundredths(last.CompletionRatePct) - hundredths(first.CompletionRatePct)

	switch {
	case ratingDelta > trendRatingThreshold || completionDelta > trendCompletionThreshold:
		return TrendImproving
	case ratingDelta < -trendRatingThreshold || completionDelta < -trendCompletionThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// hundredths converts a 2-decimal value to an exact integer count of hundredths.
func hundredths(v float64) int64 {
	return int64(math.Round(v * 100))
}

// Summarize derives the trend direction and the best and worst periods by average rating.
// Ties keep the earliest date.
func Summarize(points []TrendPoint) TrendSummary {
	summary := TrendSummary{Trend: ClassifyTrend(points)}
	if len(points) == 0 {
		return summary
	}

	best, worst := 0, 0
	for i := 1; i < len(points); i++ {
		if points[i].AverageRating > points[best].AverageRating {
			best = i
		}
		if points[i].AverageRating < points[worst].AverageRating {
			worst = i
		}
	}
	bestPoint, worstPoint := points[best], points[worst]
	summary.BestPeriod = &bestPoint
	summary.WorstPeriod = &worstPoint

	if len(points) > 1 {
		first, last := points[0], points[len(points)-1]
		summary.RatingChange = RoundHalfUp(last.AverageRating - first.AverageRating)
		summary.CompletionChange = RoundHalfUp(last.CompletionRatePct - first.CompletionRatePct)
	}
	return summary
}
