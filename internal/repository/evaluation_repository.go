package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/godilite/inspection-analytics/internal/repository/models"
)

const dateLayout = "2006-01-02"

type EvaluationRepository struct {
	db *sql.DB
}

func NewEvaluationRepository(db *sql.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// FetchEvaluations returns raw rows in either historical shape. The date range is
// inclusive and compared on the calendar date prefix of evaluation_date.
func (r *EvaluationRepository) FetchEvaluations(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "substr(e.evaluation_date, 1, 10) >= ?", "substr(e.evaluation_date, 1, 10) <= ?")
	args = append(args, q.StartDate.Format(dateLayout), q.EndDate.Format(dateLayout))

	if !q.AllTenants {
		where = append(where, "e.tenant_id = ?")
		args = append(args, q.TenantID)
	}
	if len(q.LocationIDs) > 0 {
		where = append(where, "e.location_id IN ("+placeholders(len(q.LocationIDs))+")")
		args = appendIDs(args, q.LocationIDs)
	}
	if len(q.EvaluatorIDs) > 0 {
		where = append(where, "e.evaluator_id IN ("+placeholders(len(q.EvaluatorIDs))+")")
		args = appendIDs(args, q.EvaluatorIDs)
	}

	query := `
		SELECT
			e.id,
			e.tenant_id,
			e.location_id,
			e.evaluator_id,
			e.evaluation_date,
			e.evaluation_time,
			e.tasks,
			e.evaluation_items,
			e.general_notes
		FROM evaluations AS e
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY e.evaluation_date, e.id
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query FetchEvaluations: %w", err)
	}
	defer rows.Close()

	var results []models.EvaluationRow
	for rows.Next() {
		var row models.EvaluationRow
		if err := rows.Scan(
			&row.ID, &row.TenantID, &row.LocationID, &row.EvaluatorID,
			&row.EvaluationDate, &row.EvaluationTime, &row.Tasks, &row.EvaluationItems, &row.GeneralNotes,
		); err != nil {
			return nil, fmt.Errorf("scan FetchEvaluations row: %w", err)
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate FetchEvaluations: %w", err)
	}
	return results, nil
}

// ResolveLocationNames looks up display names for the given location ids. Unknown ids
// are absent from the result.
func (r *EvaluationRepository) ResolveLocationNames(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error) {
	return r.resolveNames(ctx, "locations", ids)
}

// ResolveUserNames looks up display names for the given user ids.
func (r *EvaluationRepository) ResolveUserNames(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error) {
	return r.resolveNames(ctx, "users", ids)
}

// table is always one of the fixed names above, never caller input.
func (r *EvaluationRepository) resolveNames(ctx context.Context, table string, ids []int64) (map[int64]models.NamedEntity, error) {
	results := make(map[int64]models.NamedEntity, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	query := fmt.Sprintf(`
		SELECT id, tenant_id, COALESCE(display_name_ar, ''), COALESCE(display_name_en, '')
		FROM %s
		WHERE id IN (%s)
	`, table, placeholders(len(ids)))

	rows, err := r.db.QueryContext(ctx, query, appendIDs(nil, ids)...)
	if err != nil {
		return nil, fmt.Errorf("query resolve %s names: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.NamedEntity
		if err := rows.Scan(&e.ID, &e.TenantID, &e.DisplayNameAr, &e.DisplayNameEn); err != nil {
			return nil, fmt.Errorf("scan %s name row: %w", table, err)
		}
		results[e.ID] = e
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s names: %w", table, err)
	}
	return results, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func appendIDs(args []any, ids []int64) []any {
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}
