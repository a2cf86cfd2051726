package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/godilite/inspection-analytics/internal/analytics"
	"github.com/godilite/inspection-analytics/internal/insight"
	"github.com/godilite/inspection-analytics/internal/repository/models"
	"github.com/godilite/inspection-analytics/internal/scope"
)

const (
	dbTimeout = 5 * time.Second
)

// ReportService composes normalization, scoping and the analytics engines into the
// dashboard and export queries.
type ReportService struct {
	storage     EvaluationStore
	normalizer  RecordNormalizer
	synthesizer InsightSynthesizer
	logger      *zap.Logger
}

// NewReportService creates a new ReportService instance.
func NewReportService(storage EvaluationStore, normalizer RecordNormalizer, synthesizer InsightSynthesizer, logger *zap.Logger) *ReportService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if normalizer == nil {
		panic("normalizer must not be nil")
	}
	if synthesizer == nil {
		panic("synthesizer must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &ReportService{
		storage:     storage,
		normalizer:  normalizer,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// snapshot is the scoped, normalized record set one request works on.
type snapshot struct {
	filters Filters
	scope   scope.Scope
	records []analytics.EvaluationRecord
}

func (s *ReportService) load(ctx context.Context, caller scope.Caller, raw RawFilters) (snapshot, error) {
	f, err := ParseFilters(raw)
	if err != nil {
		return snapshot{}, err
	}

	sc := scope.Resolve(caller, scope.Request{
		TenantID:     f.TenantID,
		LocationIDs:  f.LocationIDs,
		EvaluatorIDs: f.UserIDs,
	})

	records, err := s.fetch(ctx, sc, f.Start, f.End)
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{filters: f, scope: sc, records: records}, nil
}

func (s *ReportService) fetch(ctx context.Context, sc scope.Scope, start, end time.Time) ([]analytics.EvaluationRecord, error) {
	if sc.Empty {
		return nil, nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.storage.FetchEvaluations(dbCtx, models.EvaluationQuery{
		AllTenants:   sc.AllTenants,
		TenantID:     sc.TenantID,
		StartDate:    start,
		EndDate:      end,
		LocationIDs:  sc.LocationIDs,
		EvaluatorIDs: sc.EvaluatorIDs,
	})
	if err != nil {
		s.logger.Error("failed to fetch evaluations",
			zap.Bool("all_tenants", sc.AllTenants),
			zap.Int64("tenant_id", sc.TenantID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	records := s.normalizer.NormalizeAll(rows)
	s.logger.Debug("loaded evaluations",
		zap.Int64("tenant_id", sc.TenantID),
		zap.Int("rows", len(rows)),
		zap.Int("records", len(records)),
		zap.String("start", start.Format(time.DateOnly)),
		zap.String("end", end.Format(time.DateOnly)))
	return records, nil
}

// Overview returns the aggregate metrics plus the per-category breakdown.
func (s *ReportService) Overview(ctx context.Context, caller scope.Caller, raw RawFilters) (OverviewResponse, error) {
	snap, err := s.load(ctx, caller, raw)
	if err != nil {
		return OverviewResponse{}, err
	}
	return overview(snap.records), nil
}

// Trends returns the per-day series and its summary.
func (s *ReportService) Trends(ctx context.Context, caller scope.Caller, raw RawFilters) (analytics.TrendSeries, error) {
	snap, err := s.load(ctx, caller, raw)
	if err != nil {
		return analytics.TrendSeries{}, err
	}
	return analytics.BuildTrend(snap.records), nil
}

// Comparison ranks the locations and evaluators present in the range.
func (s *ReportService) Comparison(ctx context.Context, caller scope.Caller, raw RawFilters) (analytics.ComparisonResponse, error) {
	snap, err := s.load(ctx, caller, raw)
	if err != nil {
		return analytics.ComparisonResponse{}, err
	}
	locNames, userNames, err := s.resolveNames(ctx, snap.records)
	if err != nil {
		return analytics.ComparisonResponse{}, err
	}
	return analytics.Compare(snap.records, locNames, userNames), nil
}

// Insights synthesizes qualitative findings. Oracle trouble never surfaces as an error.
func (s *ReportService) Insights(ctx context.Context, caller scope.Caller, raw RawFilters) (insight.Response, error) {
	snap, err := s.load(ctx, caller, raw)
	if err != nil {
		return insight.Response{}, err
	}
	return s.synthesizer.Synthesize(ctx, insightInput(snap.records)), nil
}

// PeriodChange compares the range with the immediately preceding range of the same length.
func (s *ReportService) PeriodChange(ctx context.Context, caller scope.Caller, raw RawFilters) (PeriodChange, error) {
	snap, err := s.load(ctx, caller, raw)
	if err != nil {
		return PeriodChange{}, err
	}

	prevEnd := snap.filters.Start.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -(snap.filters.Days() - 1))
	previous, err := s.fetch(ctx, snap.scope, prevStart, prevEnd)
	if err != nil {
		return PeriodChange{}, fmt.Errorf("previous period: %w", err)
	}

	cur := analytics.Aggregate(snap.records)
	prev := analytics.Aggregate(previous)

	return PeriodChange{
		CurrentRange:              dateRange(snap.filters.Start, snap.filters.End),
		PreviousRange:             dateRange(prevStart, prevEnd),
		CurrentAverageRatingPct:   cur.AverageRatingPct,
		PreviousAverageRatingPct:  prev.AverageRatingPct,
		AverageRatingChangePct:    changePct(cur.AverageRatingPct, prev.AverageRatingPct),
		CurrentCompletionRatePct:  cur.CompletionRatePct,
		PreviousCompletionRatePct: prev.CompletionRatePct,
		CompletionRateChangePct:   changePct(cur.CompletionRatePct, prev.CompletionRatePct),
	}, nil
}

// ExportRows returns the flattened per-location, per-item projection.
func (s *ReportService) ExportRows(ctx context.Context, caller scope.Caller, raw RawFilters) ([]ExportRow, error) {
	snap, err := s.load(ctx, caller, raw)
	if err != nil {
		return nil, err
	}
	locNames, userNames, err := s.resolveNames(ctx, snap.records)
	if err != nil {
		return nil, err
	}
	return exportRows(snap.records, locNames, userNames), nil
}

// ExportBundle computes every report section from a single fetched snapshot. The
// sections are independent so they run concurrently; the insight oracle call
// dominates the latency.
func (s *ReportService) ExportBundle(ctx context.Context, caller scope.Caller, raw RawFilters) (ExportBundle, error) {
	snap, err := s.load(ctx, caller, raw)
	if err != nil {
		return ExportBundle{}, err
	}

	bundle := ExportBundle{Filters: dateRange(snap.filters.Start, snap.filters.End)}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		bundle.Overview = overview(snap.records)
		return nil
	})
	g.Go(func() error {
		bundle.Trends = analytics.BuildTrend(snap.records)
		return nil
	})
	g.Go(func() error {
		bundle.Insights = s.synthesizer.Synthesize(gctx, insightInput(snap.records))
		return nil
	})
	g.Go(func() error {
		locNames, userNames, err := s.resolveNames(gctx, snap.records)
		if err != nil {
			return err
		}
		bundle.Comparison = analytics.Compare(snap.records, locNames, userNames)
		bundle.Rows = exportRows(snap.records, locNames, userNames)
		return nil
	})

	if err := g.Wait(); err != nil {
		return ExportBundle{}, err
	}
	return bundle, nil
}

// resolveNames looks up display names for every subject present in records.
func (s *ReportService) resolveNames(ctx context.Context, records []analytics.EvaluationRecord) (analytics.Names, analytics.Names, error) {
	locIDs, userIDs := subjectIDs(records)
	if len(locIDs) == 0 && len(userIDs) == 0 {
		return analytics.Names{}, analytics.Names{}, nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var locs, users map[int64]models.NamedEntity
	g, gctx := errgroup.WithContext(dbCtx)
	g.Go(func() error {
		var err error
		locs, err = s.storage.ResolveLocationNames(gctx, locIDs)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.storage.ResolveUserNames(gctx, userIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to resolve subject names", zap.Error(err))
		return nil, nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return toNames(locs), toNames(users), nil
}

func subjectIDs(records []analytics.EvaluationRecord) (locations, users []int64) {
	seenLoc := make(map[int64]struct{})
	seenUser := make(map[int64]struct{})
	for _, r := range records {
		if _, ok := seenLoc[r.LocationID]; !ok {
			seenLoc[r.LocationID] = struct{}{}
			locations = append(locations, r.LocationID)
		}
		if _, ok := seenUser[r.EvaluatorID]; !ok {
			seenUser[r.EvaluatorID] = struct{}{}
			users = append(users, r.EvaluatorID)
		}
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i] < locations[j] })
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return locations, users
}

func toNames(entities map[int64]models.NamedEntity) analytics.Names {
	names := make(analytics.Names, len(entities))
	for id, e := range entities {
		names[id] = analytics.DisplayName{Ar: e.DisplayNameAr, En: e.DisplayNameEn}
	}
	return names
}

func overview(records []analytics.EvaluationRecord) OverviewResponse {
	return OverviewResponse{
		AggregateResult: analytics.Aggregate(records),
		Categories:      analytics.AggregateByCategory(records),
	}
}

// insightInput collects the statistics and every non-blank comment and general note.
func insightInput(records []analytics.EvaluationRecord) insight.Input {
	in := insight.Input{
		Aggregate:  analytics.Aggregate(records),
		Categories: analytics.AggregateByCategory(records),
	}
	if len(records) > 0 {
		summary := analytics.BuildTrend(records).Summary
		in.Trend = &summary
	}
	for _, r := range records {
		for _, it := range r.Items {
			if c := strings.TrimSpace(it.Comment); c != "" {
				in.Comments = append(in.Comments, c)
			}
		}
		if n := strings.TrimSpace(r.GeneralNotes); n != "" {
			in.Comments = append(in.Comments, n)
		}
	}
	return in
}

// exportRows orders by location, then evaluation date and id, keeping item order.
func exportRows(records []analytics.EvaluationRecord, locNames, userNames analytics.Names) []ExportRow {
	sorted := make([]analytics.EvaluationRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		if a.EvaluationDate != b.EvaluationDate {
			return a.EvaluationDate < b.EvaluationDate
		}
		return a.ID < b.ID
	})

	rows := []ExportRow{}
	for _, r := range sorted {
		loc, user := locNames[r.LocationID], userNames[r.EvaluatorID]
		for _, it := range r.Items {
			rows = append(rows, ExportRow{
				LocationID:      r.LocationID,
				LocationNameAr:  loc.Ar,
				LocationNameEn:  loc.En,
				EvaluationID:    r.ID,
				EvaluationDate:  r.EvaluationDate,
				EvaluatorID:     r.EvaluatorID,
				EvaluatorNameAr: user.Ar,
				EvaluatorNameEn: user.En,
				TemplateRef:     it.TemplateRef,
				CategoryLabel:   it.CategoryLabel,
				Completed:       it.Completed,
				Rating:          analytics.RoundHalfUp(it.Rating),
				RatingPct:       analytics.RatingPct(analytics.RoundHalfUp(it.Rating)),
				SubItemsCount:   len(it.SubItems),
				Comment:         it.Comment,
			})
		}
	}
	return rows
}

func dateRange(start, end time.Time) DateRange {
	return DateRange{StartDate: start.Format(time.DateOnly), EndDate: end.Format(time.DateOnly)}
}

// changePct is the relative change from prev to cur. A move from zero to a positive
// value counts as 100%.
func changePct(cur, prev float64) float64 {
	switch {
	case prev > 0:
		return analytics.RoundHalfUp((cur - prev) / prev * 100)
	case cur > 0:
		return 100
	default:
		return 0
	}
}
