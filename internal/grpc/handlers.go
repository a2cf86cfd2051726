package grpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/inspection-analytics/internal/scope"
	"github.com/godilite/inspection-analytics/internal/service"
)

const (
	defaultCacheDuration = 2 * time.Minute
	defaultGRPCTimeout   = 15 * time.Second
)

type CacheKeyType string

const (
	cacheKeyOverview     CacheKeyType = "grpc:overview"
	cacheKeyTrends       CacheKeyType = "grpc:trends"
	cacheKeyComparison   CacheKeyType = "grpc:comparison"
	cacheKeyInsights     CacheKeyType = "grpc:insights"
	cacheKeyPeriodChange CacheKeyType = "grpc:period_change"
	cacheKeyExportRows   CacheKeyType = "grpc:export_rows"
	cacheKeyExportBundle CacheKeyType = "grpc:export_bundle"
)

type GRPCHandlers struct {
	UnimplementedAnalyticsServer
	reports  ReportService
	cache    Cacher
	logger   *zap.Logger
	sfGroup  singleflight.Group
	cacheTTL time.Duration
}

// NewGRPCHandlers initializes the gRPC handlers. cache may be nil, in which case
// every request is computed directly.
func NewGRPCHandlers(reports ReportService, cache Cacher, logger *zap.Logger, ttl time.Duration) *GRPCHandlers {
	if reports == nil {
		panic("nil ReportService provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &GRPCHandlers{
		reports:  reports,
		cache:    cache,
		logger:   logger.Named("grpc-handler"),
		cacheTTL: ttl,
	}
}

// normalizeKey derives the cache key from everything that can change the answer:
// the caller's visibility (role class, tenant, grants) and the filters.
func normalizeKey(prefix CacheKeyType, caller scope.Caller, raw service.RawFilters) string {
	tenant := "t" + strconv.FormatInt(caller.TenantID, 10)
	if caller.Role.Elevated() {
		tenant = "all"
		if t := strings.TrimSpace(raw.TenantID); t != "" {
			tenant = "t" + t
		}
	}

	grants := append([]int64(nil), caller.GrantedLocationIDs...)
	sort.Slice(grants, func(i, j int) bool { return grants[i] < grants[j] })

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%v|", caller.Role, caller.TenantID, grants)
	fmt.Fprintf(&b, "%s|%s|%s|", strings.TrimSpace(raw.StartDate), strings.TrimSpace(raw.EndDate), strings.TrimSpace(raw.TenantID))
	fmt.Fprintf(&b, "%v|%v", sortedTrimmed(raw.LocationIDs), sortedTrimmed(raw.UserIDs))

	return fmt.Sprintf("%s:%s:%016x", prefix, tenant, xxhash.Sum64String(b.String()))
}

func sortedTrimmed(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	sort.Strings(out)
	return out
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrInvalidFilter):
		s.logger.Info("invalid filter", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

// serve runs one report query behind the read-through cache and converts the result.
func serve[T any](ctx context.Context, s *GRPCHandlers, op string, prefix CacheKeyType, wrapKey string, req *structpb.Struct, fn func(context.Context, scope.Caller, service.RawFilters) (T, error)) (*structpb.Struct, error) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing caller identity")
	}
	raw := decodeFilters(req)

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	fetch := func(fetchCtx context.Context) (T, error) {
		return fn(fetchCtx, caller, raw)
	}

	var (
		result T
		err    error
	)
	if s.cache == nil {
		result, err = fetch(ctx)
	} else {
		result, err = FindAndCache(ctx, s.cache, &s.sfGroup, op, normalizeKey(prefix, caller, raw), s.cacheTTL, s.logger, fetch)
	}
	if err != nil {
		return nil, s.handleError(ctx, op, err)
	}

	out, err := encode(result, wrapKey)
	if err != nil {
		return nil, s.handleError(ctx, op, err)
	}
	return out, nil
}

func (s *GRPCHandlers) GetOverview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, s, "GetOverview", cacheKeyOverview, "", req, s.reports.Overview)
}

func (s *GRPCHandlers) GetTrends(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, s, "GetTrends", cacheKeyTrends, "", req, s.reports.Trends)
}

func (s *GRPCHandlers) GetComparison(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, s, "GetComparison", cacheKeyComparison, "", req, s.reports.Comparison)
}

func (s *GRPCHandlers) GetInsights(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, s, "GetInsights", cacheKeyInsights, "", req, s.reports.Insights)
}

func (s *GRPCHandlers) GetPeriodChange(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, s, "GetPeriodChange", cacheKeyPeriodChange, "", req, s.reports.PeriodChange)
}

func (s *GRPCHandlers) GetExportRows(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, s, "GetExportRows", cacheKeyExportRows, "rows", req, s.reports.ExportRows)
}

func (s *GRPCHandlers) GetExportBundle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return serve(ctx, s, "GetExportBundle", cacheKeyExportBundle, "", req, s.reports.ExportBundle)
}
