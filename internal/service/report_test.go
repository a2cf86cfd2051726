package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/godilite/inspection-analytics/internal/analytics"
	"github.com/godilite/inspection-analytics/internal/insight"
	"github.com/godilite/inspection-analytics/internal/normalize"
	"github.com/godilite/inspection-analytics/internal/repository/models"
	"github.com/godilite/inspection-analytics/internal/scope"
	"github.com/godilite/inspection-analytics/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	manager    = scope.Caller{Role: scope.RoleManager, TenantID: 10, UserID: 1}
	superAdmin = scope.Caller{Role: scope.RoleSuperAdmin, UserID: 2}
	march      = RawFilters{StartDate: "2025-03-01", EndDate: "2025-03-31"}
)

func legacyRow(id, loc, user int64, date, tasks string) models.EvaluationRow {
	return models.EvaluationRow{
		ID:             id,
		TenantID:       10,
		LocationID:     loc,
		EvaluatorID:    user,
		EvaluationDate: date,
		Tasks:          sql.NullString{String: tasks, Valid: true},
	}
}

func nestedRow(id, loc, user int64, date, items string) models.EvaluationRow {
	return models.EvaluationRow{
		ID:              id,
		TenantID:        10,
		LocationID:      loc,
		EvaluatorID:     user,
		EvaluationDate:  date,
		EvaluationItems: sql.NullString{String: items, Valid: true},
	}
}

// sampleRows: location 1 rated 4,3,2 on day one; location 2 rated 4 on day two
// via sub-items with one unrated sub-item. Every item ends up completed.
func sampleRows() []models.EvaluationRow {
	return []models.EvaluationRow{
		legacyRow(1, 1, 7, "2025-03-01", `[
			{"taskId":"a","name":"Floor","categoryLabel":"Cleaning","completed":true,"rating":4,"comment":"dirty corner"},
			{"taskId":"b","name":"Glass","categoryLabel":"Cleaning","completed":true,"rating":3},
			{"taskId":"c","name":"Bins","categoryLabel":"Waste","completed":true,"rating":2}
		]`),
		nestedRow(2, 2, 8, "2025-03-02", `[
			{"templateId":"t1","categoryLabel":"Restrooms","completed":false,"comment":"soap missing",
			 "subTaskRatings":[{"label":"sinks","rating":4},{"label":"mirrors","rating":0}]}
		]`),
	}
}

func newTestService(store EvaluationStore, synth InsightSynthesizer) *ReportService {
	if synth == nil {
		synth = insight.NewSynthesizer(nil, time.Second, zap.NewNop())
	}
	return NewReportService(store, normalize.New(zap.NewNop(), time.UTC), synth, zap.NewNop())
}

func storeWith(rows []models.EvaluationRow) *mocks.MockEvaluationStore {
	return &mocks.MockEvaluationStore{
		FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
			return rows, nil
		},
	}
}

// TestNewReportService tests the constructor
func TestNewReportService(t *testing.T) {
	store := &mocks.MockEvaluationStore{}
	norm := normalize.New(nil, nil)
	synth := &mocks.MockInsightSynthesizer{}

	t.Run("valid parameters", func(t *testing.T) {
		logger := zap.NewNop()
		svc := NewReportService(store, norm, synth, logger)

		assert.Equal(t, store, svc.storage)
		assert.Equal(t, logger, svc.logger)
	})

	t.Run("nil dependencies panic", func(t *testing.T) {
		assert.Panics(t, func() { NewReportService(nil, norm, synth, nil) })
		assert.Panics(t, func() { NewReportService(store, nil, synth, nil) })
		assert.Panics(t, func() { NewReportService(store, norm, nil, nil) })
	})

	t.Run("nil logger gets default", func(t *testing.T) {
		svc := NewReportService(store, norm, synth, nil)
		assert.NotNil(t, svc.logger)
	})
}

func TestOverview(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates and breaks down by category", func(t *testing.T) {
		svc := newTestService(storeWith(sampleRows()), nil)

		got, err := svc.Overview(ctx, manager, march)

		require.NoError(t, err)
		assert.Equal(t, 2, got.TotalEvaluations)
		assert.Equal(t, 4, got.TotalTasks)
		assert.Equal(t, 100.0, got.CompletionRatePct)
		assert.Equal(t, 3.25, got.AverageRating)
		assert.Equal(t, 81.25, got.AverageRatingPct)
		assert.Equal(t, 2, got.ActiveLocations)
		assert.Equal(t, 2, got.ActiveUsers)

		require.Len(t, got.Categories, 3)
		assert.Equal(t, "Cleaning", got.Categories[0].CategoryLabel)
		assert.Equal(t, 3.5, got.Categories[0].AverageRating)
		assert.Equal(t, "Restrooms", got.Categories[1].CategoryLabel)
		assert.Equal(t, 4.0, got.Categories[1].AverageRating)
		assert.Equal(t, 100.0, got.Categories[1].CompletionRatePct)
	})

	t.Run("empty range is all zeros", func(t *testing.T) {
		svc := newTestService(storeWith(nil), nil)

		got, err := svc.Overview(ctx, manager, march)

		require.NoError(t, err)
		assert.Equal(t, analytics.AggregateResult{}, got.AggregateResult)
		assert.NotNil(t, got.Categories)
		assert.Empty(t, got.Categories)
	})

	t.Run("invalid filter never reaches storage", func(t *testing.T) {
		store := &mocks.MockEvaluationStore{
			FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
				t.Fatal("storage must not be called")
				return nil, nil
			},
		}
		svc := newTestService(store, nil)

		_, err := svc.Overview(ctx, manager, RawFilters{StartDate: "2025-03-05", EndDate: "2025-03-01"})

		assert.ErrorIs(t, err, ErrInvalidFilter)
	})

	t.Run("storage failure", func(t *testing.T) {
		store := &mocks.MockEvaluationStore{
			FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
				return nil, errors.New("disk I/O error")
			},
		}
		svc := newTestService(store, nil)

		_, err := svc.Overview(ctx, manager, march)

		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "disk I/O error")
	})

	t.Run("storage call carries a deadline", func(t *testing.T) {
		store := &mocks.MockEvaluationStore{
			FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
				_, ok := ctx.Deadline()
				assert.True(t, ok)
				return nil, nil
			},
		}
		_, err := newTestService(store, nil).Overview(ctx, manager, march)
		require.NoError(t, err)
	})
}

func TestScopeIsAppliedToStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("non elevated caller is pinned to own tenant", func(t *testing.T) {
		var got models.EvaluationQuery
		store := &mocks.MockEvaluationStore{
			FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
				got = q
				return nil, nil
			},
		}
		raw := march
		raw.TenantID = "99"

		_, err := newTestService(store, nil).Overview(ctx, manager, raw)

		require.NoError(t, err)
		assert.False(t, got.AllTenants)
		assert.Equal(t, int64(10), got.TenantID)
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got.StartDate)
		assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), got.EndDate)
	})

	t.Run("elevated caller without tenant sees all tenants", func(t *testing.T) {
		var got models.EvaluationQuery
		store := &mocks.MockEvaluationStore{
			FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
				got = q
				return nil, nil
			},
		}

		_, err := newTestService(store, nil).Trends(ctx, superAdmin, march)

		require.NoError(t, err)
		assert.True(t, got.AllTenants)
	})

	t.Run("granted caller is narrowed to grants", func(t *testing.T) {
		var got models.EvaluationQuery
		store := &mocks.MockEvaluationStore{
			FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
				got = q
				return nil, nil
			},
		}
		supervisor := scope.Caller{Role: scope.RoleSupervisor, TenantID: 10, GrantedLocationIDs: []int64{3, 4}}
		raw := march
		raw.LocationIDs = []string{"4", "5"}
		raw.UserIDs = []string{"7"}

		_, err := newTestService(store, nil).Overview(ctx, supervisor, raw)

		require.NoError(t, err)
		assert.Equal(t, []int64{4}, got.LocationIDs)
		assert.Equal(t, []int64{7}, got.EvaluatorIDs)
	})

	t.Run("empty grant set never queries storage", func(t *testing.T) {
		store := &mocks.MockEvaluationStore{
			FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
				t.Fatal("storage must not be called")
				return nil, nil
			},
		}
		inspector := scope.Caller{Role: scope.RoleInspector, TenantID: 10}

		resp, err := newTestService(store, nil).Insights(ctx, inspector, march)

		require.NoError(t, err)
		assert.Equal(t, insight.NoDataHint, resp.Hint)
	})
}

func TestTrends(t *testing.T) {
	svc := newTestService(storeWith(sampleRows()), nil)

	got, err := svc.Trends(context.Background(), manager, march)

	require.NoError(t, err)
	require.Len(t, got.Points, 2)
	assert.Equal(t, "2025-03-01", got.Points[0].Date)
	assert.Equal(t, 3.0, got.Points[0].AverageRating)
	assert.Equal(t, 4.0, got.Points[1].AverageRating)
	assert.Equal(t, analytics.TrendImproving, got.Summary.Trend)
	require.NotNil(t, got.Summary.BestPeriod)
	assert.Equal(t, "2025-03-02", got.Summary.BestPeriod.Date)
}

func TestComparison(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks with names", func(t *testing.T) {
		store := storeWith(sampleRows())
		store.ResolveLocationNamesFunc = func(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error) {
			assert.Equal(t, []int64{1, 2}, ids)
			return map[int64]models.NamedEntity{
				2: {ID: 2, DisplayNameAr: "دورات المياه", DisplayNameEn: "Restrooms"},
			}, nil
		}
		store.ResolveUserNamesFunc = func(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error) {
			assert.Equal(t, []int64{7, 8}, ids)
			return map[int64]models.NamedEntity{7: {ID: 7, DisplayNameEn: "Sara"}}, nil
		}

		got, err := newTestService(store, nil).Comparison(ctx, manager, march)

		require.NoError(t, err)
		require.Len(t, got.Locations, 2)
		assert.Equal(t, int64(2), got.Locations[0].SubjectID)
		assert.Equal(t, "Restrooms", got.Locations[0].NameEn)
		assert.Equal(t, analytics.BandExcellent, got.Locations[0].PerformanceBand)
		assert.Equal(t, int64(1), got.Locations[1].SubjectID)
		assert.Equal(t, analytics.BandGood, got.Locations[1].PerformanceBand)
		assert.Equal(t, "Sara", got.Users[1].NameEn)
		require.NotNil(t, got.Summary.TopPerformer)
		assert.Equal(t, analytics.SubjectLocation, got.Summary.TopPerformer.SubjectType)
	})

	t.Run("name lookup failure is a storage failure", func(t *testing.T) {
		store := storeWith(sampleRows())
		store.ResolveUserNamesFunc = func(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error) {
			return nil, errors.New("users table locked")
		}

		_, err := newTestService(store, nil).Comparison(ctx, manager, march)

		assert.ErrorIs(t, err, ErrStorageFailure)
	})

	t.Run("no records skips name lookup", func(t *testing.T) {
		store := storeWith(nil)
		store.ResolveLocationNamesFunc = func(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error) {
			t.Fatal("names must not be resolved")
			return nil, nil
		}

		got, err := newTestService(store, nil).Comparison(ctx, manager, march)

		require.NoError(t, err)
		assert.Empty(t, got.Locations)
		assert.Nil(t, got.Summary.TopPerformer)
	})
}

func TestInsights(t *testing.T) {
	ctx := context.Background()

	t.Run("passes statistics and comments to the synthesizer", func(t *testing.T) {
		var got insight.Input
		synth := &mocks.MockInsightSynthesizer{
			SynthesizeFunc: func(ctx context.Context, in insight.Input) insight.Response {
				got = in
				return insight.Response{Source: "mock"}
			},
		}
		rows := sampleRows()
		rows[0].GeneralNotes = sql.NullString{String: "  overall fine  ", Valid: true}

		resp, err := newTestService(storeWith(rows), synth).Insights(ctx, manager, march)

		require.NoError(t, err)
		assert.Equal(t, "mock", resp.Source)
		assert.Equal(t, 2, got.Aggregate.TotalEvaluations)
		assert.Len(t, got.Categories, 3)
		require.NotNil(t, got.Trend)
		assert.Equal(t, analytics.TrendImproving, got.Trend.Trend)
		assert.Equal(t, []string{"dirty corner", "overall fine", "soap missing"}, got.Comments)
	})

	t.Run("local heuristic answers without an oracle", func(t *testing.T) {
		resp, err := newTestService(storeWith(sampleRows()), nil).Insights(ctx, manager, march)

		require.NoError(t, err)
		assert.Equal(t, "local", resp.Source)
		assert.NotEmpty(t, resp.Insights)
		assert.Equal(t, insight.HealthGood, resp.OverallHealth)
	})

	t.Run("empty range carries the hint", func(t *testing.T) {
		resp, err := newTestService(storeWith(nil), nil).Insights(ctx, manager, march)

		require.NoError(t, err)
		assert.Equal(t, insight.NoDataHint, resp.Hint)
		assert.Equal(t, insight.HealthPoor, resp.OverallHealth)
	})
}

func TestPeriodChange(t *testing.T) {
	ctx := context.Background()

	t.Run("compares with the preceding range", func(t *testing.T) {
		var queries []models.EvaluationQuery
		store := &mocks.MockEvaluationStore{
			FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
				queries = append(queries, q)
				if q.StartDate.Month() == time.March {
					return sampleRows(), nil
				}
				return []models.EvaluationRow{
					legacyRow(9, 1, 7, "2025-02-10", `[{"taskId":"a","completed":true,"rating":2},{"taskId":"b","completed":false}]`),
				}, nil
			},
		}
		raw := RawFilters{StartDate: "2025-03-01", EndDate: "2025-03-10"}

		got, err := newTestService(store, nil).PeriodChange(ctx, manager, raw)

		require.NoError(t, err)
		require.Len(t, queries, 2)
		assert.Equal(t, DateRange{StartDate: "2025-03-01", EndDate: "2025-03-10"}, got.CurrentRange)
		assert.Equal(t, DateRange{StartDate: "2025-02-19", EndDate: "2025-02-28"}, got.PreviousRange)
		assert.Equal(t, queries[0].TenantID, queries[1].TenantID)

		assert.Equal(t, 81.25, got.CurrentAverageRatingPct)
		assert.Equal(t, 50.0, got.PreviousAverageRatingPct)
		assert.Equal(t, 62.5, got.AverageRatingChangePct)
		assert.Equal(t, 100.0, got.CurrentCompletionRatePct)
		assert.Equal(t, 50.0, got.PreviousCompletionRatePct)
		assert.Equal(t, 100.0, got.CompletionRateChangePct)
	})

	t.Run("no previous data counts as full growth", func(t *testing.T) {
		store := &mocks.MockEvaluationStore{
			FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
				if q.StartDate.Month() == time.March {
					return sampleRows(), nil
				}
				return nil, nil
			},
		}

		got, err := newTestService(store, nil).PeriodChange(ctx, manager, march)

		require.NoError(t, err)
		assert.Equal(t, DateRange{StartDate: "2025-01-29", EndDate: "2025-02-28"}, got.PreviousRange)
		assert.Equal(t, 100.0, got.AverageRatingChangePct)
		assert.Equal(t, 0.0, got.PreviousCompletionRatePct)
	})

	t.Run("previous period storage failure", func(t *testing.T) {
		store := &mocks.MockEvaluationStore{
			FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
				if q.StartDate.Month() == time.March {
					return sampleRows(), nil
				}
				return nil, errors.New("timeout")
			},
		}

		_, err := newTestService(store, nil).PeriodChange(ctx, manager, march)

		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "previous period")
	})
}

func TestExportRows(t *testing.T) {
	store := storeWith([]models.EvaluationRow{
		legacyRow(5, 2, 7, "2025-03-03", `[{"taskId":"x","categoryLabel":"Lobby","completed":true,"rating":3}]`),
		sampleRows()[0],
		legacyRow(4, 1, 8, "2025-03-01", `[{"taskId":"y","categoryLabel":"Lobby","rating":1}]`),
	})
	store.ResolveLocationNamesFunc = func(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error) {
		return map[int64]models.NamedEntity{1: {ID: 1, DisplayNameAr: "الردهة", DisplayNameEn: "Lobby"}}, nil
	}

	rows, err := newTestService(store, nil).ExportRows(context.Background(), manager, march)

	require.NoError(t, err)
	require.Len(t, rows, 5)
	// Location 1 first, evaluation 1 before 4 on the same date, items in order.
	assert.Equal(t, []int64{1, 1, 1, 4, 5}, []int64{rows[0].EvaluationID, rows[1].EvaluationID, rows[2].EvaluationID, rows[3].EvaluationID, rows[4].EvaluationID})
	assert.Equal(t, "a", rows[0].TemplateRef)
	assert.Equal(t, "c", rows[2].TemplateRef)
	assert.Equal(t, "Lobby", rows[0].LocationNameEn)
	assert.Equal(t, "الردهة", rows[3].LocationNameAr)
	assert.Equal(t, "", rows[4].LocationNameEn)
	assert.Equal(t, 100.0, rows[0].RatingPct)
	assert.Equal(t, "dirty corner", rows[0].Comment)
	// Rated items count as completed.
	assert.True(t, rows[3].Completed)
	assert.Equal(t, 25.0, rows[3].RatingPct)
}

func TestExportBundle(t *testing.T) {
	ctx := context.Background()

	t.Run("every section from one fetch", func(t *testing.T) {
		fetches := 0
		store := &mocks.MockEvaluationStore{
			FetchEvaluationsFunc: func(ctx context.Context, q models.EvaluationQuery) ([]models.EvaluationRow, error) {
				fetches++
				return sampleRows(), nil
			},
		}

		got, err := newTestService(store, nil).ExportBundle(ctx, manager, march)

		require.NoError(t, err)
		assert.Equal(t, 1, fetches)
		assert.Equal(t, DateRange{StartDate: "2025-03-01", EndDate: "2025-03-31"}, got.Filters)
		assert.Equal(t, 2, got.Overview.TotalEvaluations)
		assert.Len(t, got.Trends.Points, 2)
		assert.Len(t, got.Comparison.Locations, 2)
		assert.Equal(t, "local", got.Insights.Source)
		assert.Len(t, got.Rows, 4)
	})

	t.Run("name lookup failure fails the bundle", func(t *testing.T) {
		store := storeWith(sampleRows())
		store.ResolveLocationNamesFunc = func(ctx context.Context, ids []int64) (map[int64]models.NamedEntity, error) {
			return nil, errors.New("locations table missing")
		}

		_, err := newTestService(store, nil).ExportBundle(ctx, manager, march)

		assert.ErrorIs(t, err, ErrStorageFailure)
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, err := newTestService(storeWith(nil), nil).ExportBundle(ctx, manager, RawFilters{StartDate: "yesterday"})
		assert.ErrorIs(t, err, ErrInvalidFilter)
	})
}
