package analytics

import "sort"

const maxNeedsAttention = 3

// BandFor buckets an average rating on the 0..4 scale.
func BandFor(rating float64) PerformanceBand {
	switch {
	case rating >= 3.5:
		return BandExcellent
	case rating >= 3.0:
		return BandGood
	case rating >= 2.5:
		return BandAverage
	default:
		return BandPoor
	}
}

// Compare ranks locations and evaluators separately over the same record set.
// Either name map may be nil.
func Compare(records []EvaluationRecord, locationNames, userNames Names) ComparisonResponse {
	locations := rankSubjects(records, SubjectLocation, func(r EvaluationRecord) int64 { return r.LocationID }, locationNames)
	users := rankSubjects(records, SubjectUser, func(r EvaluationRecord) int64 { return r.EvaluatorID }, userNames)

	return ComparisonResponse{
		Locations: locations,
		Users:     users,
		Summary:   summarizeComparison(locations, users),
	}
}

func rankSubjects(records []EvaluationRecord, kind SubjectType, keyFn func(EvaluationRecord) int64, names Names) []ComparisonEntry {
	groups := make(map[int64][]EvaluationRecord)
	for _, r := range records {
		id := keyFn(r)
		groups[id] = append(groups[id], r)
	}

	entries := make([]ComparisonEntry, 0, len(groups))
	for id, group := range groups {
		metrics := Aggregate(group)
		e := ComparisonEntry{
			SubjectID:       id,
			SubjectType:     kind,
			Metrics:         metrics,
			PerformanceBand: BandFor(metrics.AverageRating),
		}
		if n, ok := names[id]; ok {
			e.NameAr, e.NameEn = n.Ar, n.En
		}
		entries = append(entries, e)
	}

	sortEntries(entries)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func sortEntries(entries []ComparisonEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Metrics.AverageRating != entries[j].Metrics.AverageRating {
			return entries[i].Metrics.AverageRating > entries[j].Metrics.AverageRating
		}
		return entries[i].SubjectID < entries[j].SubjectID
	})
}

func summarizeComparison(locations, users []ComparisonEntry) ComparisonSummary {
	summary := ComparisonSummary{NeedsAttention: []ComparisonEntry{}}

	// Overall rank-1: best rating across both lists, locations win exact ties.
	switch {
	case len(locations) > 0 && len(users) > 0:
		top := locations[0]
		if users[0].Metrics.AverageRating > top.Metrics.AverageRating {
			top = users[0]
		}
		summary.TopPerformer = &top
	case len(locations) > 0:
		top := locations[0]
		summary.TopPerformer = &top
	case len(users) > 0:
		top := users[0]
		summary.TopPerformer = &top
	}

	// There is no prior-period baseline per subject, so "most improved" is the
	// first excellent-band subject.
	for _, list := range [][]ComparisonEntry{locations, users} {
		if summary.MostImproved != nil {
			break
		}
		for _, e := range list {
			if e.PerformanceBand == BandExcellent {
				e := e
				summary.MostImproved = &e
				break
			}
		}
	}

	for _, list := range [][]ComparisonEntry{locations, users} {
		for _, e := range list {
			if len(summary.NeedsAttention) == maxNeedsAttention {
				return summary
			}
			if e.PerformanceBand == BandPoor {
				summary.NeedsAttention = append(summary.NeedsAttention, e)
			}
		}
	}
	return summary
}
