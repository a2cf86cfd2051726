package service

import (
	"github.com/godilite/inspection-analytics/internal/analytics"
	"github.com/godilite/inspection-analytics/internal/insight"
)

// OverviewResponse is the aggregate for the filtered range plus a per-category breakdown.
type OverviewResponse struct {
	analytics.AggregateResult
	Categories []analytics.CategoryResult `json:"categories"`
}

type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// PeriodChange compares the filtered range with the preceding range of equal length.
type PeriodChange struct {
	CurrentRange              DateRange `json:"currentRange"`
	PreviousRange             DateRange `json:"previousRange"`
	CurrentAverageRatingPct   float64   `json:"currentAverageRatingPct"`
	PreviousAverageRatingPct  float64   `json:"previousAverageRatingPct"`
	AverageRatingChangePct    float64   `json:"averageRatingChangePct"`
	CurrentCompletionRatePct  float64   `json:"currentCompletionRatePct"`
	PreviousCompletionRatePct float64   `json:"previousCompletionRatePct"`
	CompletionRateChangePct   float64   `json:"completionRateChangePct"`
}

// ExportRow is one checklist item of one evaluation, flattened for spreadsheet and PDF
// exporters.
type ExportRow struct {
	LocationID      int64   `json:"locationId"`
	LocationNameAr  string  `json:"locationNameAr"`
	LocationNameEn  string  `json:"locationNameEn"`
	EvaluationID    int64   `json:"evaluationId"`
	EvaluationDate  string  `json:"evaluationDate"`
	EvaluatorID     int64   `json:"evaluatorId"`
	EvaluatorNameAr string  `json:"evaluatorNameAr"`
	EvaluatorNameEn string  `json:"evaluatorNameEn"`
	TemplateRef     string  `json:"templateRef"`
	CategoryLabel   string  `json:"categoryLabel"`
	Completed       bool    `json:"completed"`
	Rating          float64 `json:"rating"`
	RatingPct       float64 `json:"ratingPct"`
	SubItemsCount   int     `json:"subItemsCount"`
	Comment         string  `json:"comment"`
}

// ExportBundle carries every report section computed from one snapshot.
type ExportBundle struct {
	Filters    DateRange                    `json:"filters"`
	Overview   OverviewResponse             `json:"overview"`
	Trends     analytics.TrendSeries        `json:"trends"`
	Comparison analytics.ComparisonResponse `json:"comparison"`
	Insights   insight.Response             `json:"insights"`
	Rows       []ExportRow                  `json:"rows"`
}
