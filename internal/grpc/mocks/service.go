package mocks

import (
	"context"
	"errors"

	"github.com/godilite/inspection-analytics/internal/analytics"
	"github.com/godilite/inspection-analytics/internal/insight"
	"github.com/godilite/inspection-analytics/internal/scope"
	"github.com/godilite/inspection-analytics/internal/service"
)

// MockReportService is a mock implementation of the ReportService interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockReportService struct {
	OverviewFunc     func(ctx context.Context, caller scope.Caller, raw service.RawFilters) (service.OverviewResponse, error)
	TrendsFunc       func(ctx context.Context, caller scope.Caller, raw service.RawFilters) (analytics.TrendSeries, error)
	ComparisonFunc   func(ctx context.Context, caller scope.Caller, raw service.RawFilters) (analytics.ComparisonResponse, error)
	InsightsFunc     func(ctx context.Context, caller scope.Caller, raw service.RawFilters) (insight.Response, error)
	PeriodChangeFunc func(ctx context.Context, caller scope.Caller, raw service.RawFilters) (service.PeriodChange, error)
	ExportRowsFunc   func(ctx context.Context, caller scope.Caller, raw service.RawFilters) ([]service.ExportRow, error)
	ExportBundleFunc func(ctx context.Context, caller scope.Caller, raw service.RawFilters) (service.ExportBundle, error)
}

// Overview implements the ReportService interface
func (m *MockReportService) Overview(ctx context.Context, caller scope.Caller, raw service.RawFilters) (service.OverviewResponse, error) {
	if m.OverviewFunc != nil {
		return m.OverviewFunc(ctx, caller, raw)
	}
	return service.OverviewResponse{}, errors.New("OverviewFunc not implemented")
}

// Trends implements the ReportService interface
func (m *MockReportService) Trends(ctx context.Context, caller scope.Caller, raw service.RawFilters) (analytics.TrendSeries, error) {
	if m.TrendsFunc != nil {
		return m.TrendsFunc(ctx, caller, raw)
	}
	return analytics.TrendSeries{}, errors.New("TrendsFunc not implemented")
}

// Comparison implements the ReportService interface
func (m *MockReportService) Comparison(ctx context.Context, caller scope.Caller, raw service.RawFilters) (analytics.ComparisonResponse, error) {
	if m.ComparisonFunc != nil {
		return m.ComparisonFunc(ctx, caller, raw)
	}
	return analytics.ComparisonResponse{}, errors.New("ComparisonFunc not implemented")
}

// Insights implements the ReportService interface
func (m *MockReportService) Insights(ctx context.Context, caller scope.Caller, raw service.RawFilters) (insight.Response, error) {
	if m.InsightsFunc != nil {
		return m.InsightsFunc(ctx, caller, raw)
	}
	return insight.Response{}, errors.New("InsightsFunc not implemented")
}

// PeriodChange implements the ReportService interface
func (m *MockReportService) PeriodChange(ctx context.Context, caller scope.Caller, raw service.RawFilters) (service.PeriodChange, error) {
	if m.PeriodChangeFunc != nil {
		return m.PeriodChangeFunc(ctx, caller, raw)
	}
	return service.PeriodChange{}, errors.New("PeriodChangeFunc not implemented")
}

// ExportRows implements the ReportService interface
func (m *MockReportService) ExportRows(ctx context.Context, caller scope.Caller, raw service.RawFilters) ([]service.ExportRow, error) {
	if m.ExportRowsFunc != nil {
		return m.ExportRowsFunc(ctx, caller, raw)
	}
	return nil, errors.New("ExportRowsFunc not implemented")
}

// ExportBundle implements the ReportService interface
func (m *MockReportService) ExportBundle(ctx context.Context, caller scope.Caller, raw service.RawFilters) (service.ExportBundle, error) {
	if m.ExportBundleFunc != nil {
		return m.ExportBundleFunc(ctx, caller, raw)
	}
	return service.ExportBundle{}, errors.New("ExportBundleFunc not implemented")
}
