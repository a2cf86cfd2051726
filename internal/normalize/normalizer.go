package normalize

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/godilite/inspection-analytics/internal/analytics"
	"github.com/godilite/inspection-analytics/internal/repository/models"
	"go.uber.org/zap"
)

type Shape string

const (
	ShapeEmpty  Shape = "empty"
	ShapeLegacy Shape = "legacy_tasks"
	ShapeNested Shape = "evaluation_items"
)

// timestampLayouts are tried in order when parsing evaluation_time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Normalizer converts persisted rows of either historical shape into EvaluationRecords.
// It is the only component aware of the two shapes.
type Normalizer struct {
	logger *zap.Logger
	loc    *time.Location
}

// New creates a Normalizer. loc is the tenant-local zone used for date-only rows.
func New(logger *zap.Logger, loc *time.Location) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{
		logger: logger.Named("normalizer"),
		loc:    loc,
	}
}

// DetectShape reports which historical shape a row carries.
func DetectShape(row models.EvaluationRow) Shape {
	if nonEmptyJSON(row.EvaluationItems) {
		return ShapeNested
	}
	if nonEmptyJSON(row.Tasks) {
		return ShapeLegacy
	}
	return ShapeEmpty
}

func nonEmptyJSON(s sql.NullString) bool {
	if !s.Valid {
		return false
	}
	str := strings.TrimSpace(s.String)
	return str != "" && str != "null" && str != "[]"
}

// Normalize converts one row. ok is false only when the row has no usable evaluation
// date; malformed item structures degrade to an empty item list instead.
func (n *Normalizer) Normalize(row models.EvaluationRow) (analytics.EvaluationRecord, bool) {
	date, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(firstN(row.EvaluationDate, 10)), n.loc)
	if err != nil {
		n.logger.Warn("skipping evaluation with unparsable date",
			zap.Int64("evaluation_id", row.ID),
			zap.String("evaluation_date", row.EvaluationDate),
			zap.Error(err))
		return analytics.EvaluationRecord{}, false
	}

	rec := analytics.EvaluationRecord{
		ID:             row.ID,
		TenantID:       row.TenantID,
		LocationID:     row.LocationID,
		EvaluatorID:    row.EvaluatorID,
		EvaluationDate: date.Format(time.DateOnly),
		Items:          []analytics.EvaluationItem{},
	}
	if row.GeneralNotes.Valid {
		rec.GeneralNotes = strings.TrimSpace(row.GeneralNotes.String)
	}
	if row.EvaluationTime.Valid {
		if ts, ok := parseTimestamp(row.EvaluationTime.String); ok {
			rec.EvaluationTimestamp = &ts
		}
	}

	shape := DetectShape(row)
	switch shape {
	case ShapeNested:
		items, err := n.nestedItems(row)
		if err != nil {
			n.malformed(row, shape, err)
			break
		}
		rec.Items = items
	case ShapeLegacy:
		items, err := n.legacyItems(row)
		if err != nil {
			n.malformed(row, shape, err)
			break
		}
		rec.Items = items
	}
	return rec, true
}

// NormalizeAll converts a batch. It never fails; unusable rows are logged and dropped.
func (n *Normalizer) NormalizeAll(rows []models.EvaluationRow) []analytics.EvaluationRecord {
	out := make([]analytics.EvaluationRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := n.Normalize(row); ok {
			out = append(out, rec)
		}
	}
	return out
}

func (n *Normalizer) malformed(row models.EvaluationRow, shape Shape, err error) {
	n.logger.Warn("malformed evaluation structure, using empty item list",
		zap.Int64("evaluation_id", row.ID),
		zap.Int64("tenant_id", row.TenantID),
		zap.String("shape", string(shape)),
		zap.Error(err))
}

func (n *Normalizer) legacyItems(row models.EvaluationRow) ([]analytics.EvaluationItem, error) {
	var tasks []models.LegacyTask
	if err := json.Unmarshal([]byte(row.Tasks.String), &tasks); err != nil {
		return nil, err
	}

	items := make([]analytics.EvaluationItem, 0, len(tasks))
	for _, t := range tasks {
		rating := n.clampRating(row.ID, t.Rating)
		label := t.CategoryLabel
		if label == "" {
			label = t.Name
		}
		items = append(items, analytics.EvaluationItem{
			TemplateRef:   t.TaskID,
			CategoryLabel: label,
			Rating:        rating,
			Completed:     t.Completed || rating > 0,
			Comment:       strings.TrimSpace(t.Comment),
			SubItems:      []analytics.EvaluationSubItem{},
		})
	}
	return items, nil
}

func (n *Normalizer) nestedItems(row models.EvaluationRow) ([]analytics.EvaluationItem, error) {
	var docs []models.EvaluationItemDoc
	if err := json.Unmarshal([]byte(row.EvaluationItems.String), &docs); err != nil {
		return nil, err
	}

	items := make([]analytics.EvaluationItem, 0, len(docs))
	for _, d := range docs {
		it := analytics.EvaluationItem{
			TemplateRef:   d.TemplateID,
			CategoryLabel: d.CategoryLabel,
			Comment:       strings.TrimSpace(d.Comment),
			SubItems:      make([]analytics.EvaluationSubItem, 0, len(d.SubTaskRatings)),
		}

		if len(d.SubTaskRatings) == 0 {
			it.Rating = n.clampRating(row.ID, d.Rating)
		} else {
			// Sub-item derived rating wins over the stored parent rating.
			var sum float64
			var rated int
			for _, s := range d.SubTaskRatings {
				r := n.clampRating(row.ID, s.Rating)
				it.SubItems = append(it.SubItems, analytics.EvaluationSubItem{Label: s.Label, Rating: r})
				if r > 0 {
					sum += r
					rated++
				}
			}
			if rated > 0 {
				it.Rating = sum / float64(rated)
			}
		}
		it.Completed = d.Completed || it.Rating > 0
		items = append(items, it)
	}
	return items, nil
}

func (n *Normalizer) clampRating(id int64, r float64) float64 {
	if r < 0 || r > analytics.MaxRating {
		n.logger.Warn("rating out of range, treating as unrated",
			zap.Int64("evaluation_id", id),
			zap.Float64("rating", r))
		return 0
	}
	return r
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
