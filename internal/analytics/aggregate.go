package analytics

import (
	"math"
	"sort"
)

// roundingEpsilon absorbs binary representation error so that e.g. 1.005 rounds to 1.01.
const roundingEpsilon = 1e-9

// RoundHalfUp rounds v to two decimals, halves rounding up. Every reported
// percentage and average goes through here so all consumers agree.
func RoundHalfUp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Floor(v*100+0.5+roundingEpsilon) / 100
}

// RatingPct maps a reported 0..4 rating onto 0..100. Callers pass the already
// rounded rating so the percentage can be recomputed from the response.
func RatingPct(rating float64) float64 {
	return RoundHalfUp(rating / MaxRating * 100)
}

type itemTally struct {
	total     int
	completed int
	rated     int
	ratingSum float64
}

func (t *itemTally) add(it EvaluationItem) {
	t.total++
	if it.Completed {
		t.completed++
	}
	if it.Rating > 0 {
		t.rated++
		t.ratingSum += it.Rating
	}
}

func (t itemTally) completionPct() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.completed) / float64(t.total) * 100
}

func (t itemTally) averageRating() float64 {
	if t.rated == 0 {
		return 0
	}
	return t.ratingSum / float64(t.rated)
}

// Aggregate computes the scalar KPIs over records. Unrated items count toward
// completion but never toward the rating average.
func Aggregate(records []EvaluationRecord) AggregateResult {
	var tally itemTally
	locations := make(map[int64]struct{})
	users := make(map[int64]struct{})

	for _, r := range records {
		locations[r.LocationID] = struct{}{}
		users[r.EvaluatorID] = struct{}{}
		for _, it := range r.Items {
			tally.add(it)
		}
	}

	avg := RoundHalfUp(tally.averageRating())
	return AggregateResult{
		TotalEvaluations:  len(records),
		TotalTasks:        tally.total,
		CompletedTasks:    tally.completed,
		CompletionRatePct: RoundHalfUp(tally.completionPct()),
		AverageRating:     avg,
		AverageRatingPct:  RatingPct(avg),
		ActiveLocations:   len(locations),
		ActiveUsers:       len(users),
	}
}

// AggregateByCategory breaks the item multiset down by category label, ordered by label.
func AggregateByCategory(records []EvaluationRecord) []CategoryResult {
	tallies := make(map[string]*itemTally)
	for _, r := range records {
		for _, it := range r.Items {
			t, ok := tallies[it.CategoryLabel]
			if !ok {
				t = &itemTally{}
				tallies[it.CategoryLabel] = t
			}
			t.add(it)
		}
	}

	out := make([]CategoryResult, 0, len(tallies))
	for label, t := range tallies {
		avg := RoundHalfUp(t.averageRating())
		out = append(out, CategoryResult{
			CategoryLabel:     label,
			TotalTasks:        t.total,
			CompletionRatePct: RoundHalfUp(t.completionPct()),
			AverageRating:     avg,
			AverageRatingPct:  RatingPct(avg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CategoryLabel < out[j].CategoryLabel
	})
	return out
}
