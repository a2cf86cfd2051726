package analytics

import "time"

// MaxRating is the top of the 0..4 checklist rating scale. A rating of 0 means "not yet rated".
const MaxRating = 4.0

type EvaluationRecord struct {
	ID          int64
	TenantID    int64
	LocationID  int64
	EvaluatorID int64
	// EvaluationDate is the calendar date in YYYY-MM-DD form.
	EvaluationDate string
	// EvaluationTimestamp is nil for legacy rows that only carried a date.
	EvaluationTimestamp *time.Time
	Items               []EvaluationItem
	GeneralNotes        string
}

// SortKey returns the instant used to order records. Records without a timestamp
// sort at local midnight of their evaluation date.
func (r EvaluationRecord) SortKey(loc *time.Location) time.Time {
	if r.EvaluationTimestamp != nil {
		return *r.EvaluationTimestamp
	}
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(time.DateOnly, r.EvaluationDate, loc)
	if err != nil {
		return time.Time{}
	}
	return d
}

type EvaluationItem struct {
	TemplateRef   string
	CategoryLabel string
	// Rating is 0..4. For items with sub-items it is the mean of the rated sub-items.
	Rating    float64
	Completed bool
	Comment   string
	SubItems  []EvaluationSubItem
}

type EvaluationSubItem struct {
	Label  string
	Rating float64
}

type AggregateResult struct {
	TotalEvaluations  int     `json:"totalEvaluations"`
	TotalTasks        int     `json:"totalTasks"`
	CompletedTasks    int     `json:"completedTasks"`
	CompletionRatePct float64 `json:"completionRatePct"`
	AverageRating     float64 `json:"averageRating0to4"`
	AverageRatingPct  float64 `json:"averageRatingPct"`
	ActiveLocations   int     `json:"activeLocations"`
	ActiveUsers       int     `json:"activeUsers"`
}

type CategoryResult struct {
	CategoryLabel     string  `json:"categoryLabel"`
	TotalTasks        int     `json:"totalTasks"`
	CompletionRatePct float64 `json:"completionRatePct"`
	AverageRating     float64 `json:"averageRating0to4"`
	AverageRatingPct  float64 `json:"averageRatingPct"`
}

type TrendPoint struct {
	Date              string  `json:"date"`
	CompletionRatePct float64 `json:"completionRatePct"`
	AverageRating     float64 `json:"averageRating"`
	EvaluationsCount  int     `json:"evaluationsCount"`
	TasksCount        int     `json:"tasksCount"`
}

type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

type TrendSummary struct {
	Trend            TrendDirection `json:"trend"`
	BestPeriod       *TrendPoint    `json:"bestPeriod,omitempty"`
	WorstPeriod      *TrendPoint    `json:"worstPeriod,omitempty"`
	RatingChange     float64        `json:"ratingChange"`
	CompletionChange float64        `json:"completionChange"`
}

type TrendSeries struct {
	Points  []TrendPoint `json:"points"`
	Summary TrendSummary `json:"summary"`
}

type SubjectType string

const (
	SubjectLocation SubjectType = "location"
	SubjectUser     SubjectType = "user"
)

type PerformanceBand string

const (
	BandExcellent PerformanceBand = "excellent"
	BandGood      PerformanceBand = "good"
	BandAverage   PerformanceBand = "average"
	BandPoor      PerformanceBand = "poor"
)

type ComparisonEntry struct {
	SubjectID       int64           `json:"subjectId"`
	SubjectType     SubjectType     `json:"subjectType"`
	NameAr          string          `json:"nameAr,omitempty"`
	NameEn          string          `json:"nameEn,omitempty"`
	Metrics         AggregateResult `json:"currentPeriodMetrics"`
	Rank            int             `json:"rank"`
	PerformanceBand PerformanceBand `json:"performanceBand"`
}

type ComparisonSummary struct {
	TopPerformer   *ComparisonEntry  `json:"topPerformer,omitempty"`
	MostImproved   *ComparisonEntry  `json:"mostImproved,omitempty"`
	NeedsAttention []ComparisonEntry `json:"needsAttention"`
}

type ComparisonResponse struct {
	Locations []ComparisonEntry `json:"locations"`
	Users     []ComparisonEntry `json:"users"`
	Summary   ComparisonSummary `json:"summary"`
}

// DisplayName carries both display names of a location or user.
type DisplayName struct {
	Ar string
	En string
}

// Names maps subject ids to display names for one subject type.
type Names map[int64]DisplayName
