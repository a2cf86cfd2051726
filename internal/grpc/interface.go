package grpc

import (
	"context"
	"time"

	"github.com/godilite/inspection-analytics/internal/analytics"
	"github.com/godilite/inspection-analytics/internal/insight"
	"github.com/godilite/inspection-analytics/internal/scope"
	"github.com/godilite/inspection-analytics/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type ReportService interface {
	Overview(ctx context.Context, caller scope.Caller, raw service.RawFilters) (service.OverviewResponse, error)
	Trends(ctx context.Context, caller scope.Caller, raw service.RawFilters) (analytics.TrendSeries, error)
	Comparison(ctx context.Context, caller scope.Caller, raw service.RawFilters) (analytics.ComparisonResponse, error)
	Insights(ctx context.Context, caller scope.Caller, raw service.RawFilters) (insight.Response, error)
	PeriodChange(ctx context.Context, caller scope.Caller, raw service.RawFilters) (service.PeriodChange, error)
	ExportRows(ctx context.Context, caller scope.Caller, raw service.RawFilters) ([]service.ExportRow, error)
	ExportBundle(ctx context.Context, caller scope.Caller, raw service.RawFilters) (service.ExportBundle, error)
}
