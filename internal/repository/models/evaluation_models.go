package models

import (
	"database/sql"
	"time"
)

// EvaluationRow is one persisted evaluation in either historical shape. Legacy rows
// populate Tasks, current rows populate EvaluationItems.
type EvaluationRow struct {
	ID              int64
	TenantID        int64
	LocationID      int64
	EvaluatorID     int64
	EvaluationDate  string
	EvaluationTime  sql.NullString
	Tasks           sql.NullString
	EvaluationItems sql.NullString
	GeneralNotes    sql.NullString
}

// LegacyTask is one element of the flat tasks JSON array.
type LegacyTask struct {
	TaskID        string  `json:"taskId"`
	Name          string  `json:"name"`
	CategoryLabel string  `json:"categoryLabel"`
	Completed     bool    `json:"completed"`
	Rating        float64 `json:"rating"`
	Comment       string  `json:"comment"`
}

// EvaluationItemDoc is one element of the nested evaluation_items JSON array.
type EvaluationItemDoc struct {
	TemplateID     string             `json:"templateId"`
	CategoryLabel  string             `json:"categoryLabel"`
	Rating         float64            `json:"rating"`
	Completed      bool               `json:"completed"`
	Comment        string             `json:"comment"`
	SubTaskRatings []SubTaskRatingDoc `json:"subTaskRatings"`
}

type SubTaskRatingDoc struct {
	Label  string  `json:"label"`
	Rating float64 `json:"rating"`
}

// EvaluationQuery selects evaluations for one tenant (or all tenants) over an
// inclusive calendar-date range.
type EvaluationQuery struct {
	AllTenants   bool
	TenantID     int64
	StartDate    time.Time
	EndDate      time.Time
	LocationIDs  []int64
	EvaluatorIDs []int64
}

// NamedEntity is a location or user with its display names.
type NamedEntity struct {
	ID            int64
	TenantID      int64
	DisplayNameAr string
	DisplayNameEn string
}
