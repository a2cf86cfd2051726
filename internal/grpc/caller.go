package grpc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/godilite/inspection-analytics/internal/scope"
)

// Metadata keys set by the authentication proxy in front of this service.
const (
	MDCallerRole         = "x-caller-role"
	MDTenantID           = "x-tenant-id"
	MDUserID             = "x-user-id"
	MDGrantedLocationIDs = "x-granted-location-ids"
)

type callerKey struct{}

// WithCaller stores the authenticated caller in ctx.
func WithCaller(ctx context.Context, c scope.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller stored by WithCaller.
func CallerFromContext(ctx context.Context) (scope.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(scope.Caller)
	return c, ok
}

// CallerInterceptor turns authentication metadata into a scope.Caller for every
// EvaluationAnalytics method. Other services (health, reflection) pass through.
func CallerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := "/" + ServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		caller, err := callerFromMetadata(md)
		if err != nil {
			logger.Warn("rejecting request without valid caller identity",
				zap.String("method", info.FullMethod),
				zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, "missing or invalid caller identity")
		}
		return handler(WithCaller(ctx, caller), req)
	}
}

func callerFromMetadata(md metadata.MD) (scope.Caller, error) {
	role := first(md, MDCallerRole)
	if role == "" {
		return scope.Caller{}, fmt.Errorf("%s is required", MDCallerRole)
	}
	c := scope.Caller{Role: scope.ParseRole(role)}

	var err error
	if c.TenantID, err = parseID(first(md, MDTenantID)); err != nil {
		return scope.Caller{}, fmt.Errorf("%s: %w", MDTenantID, err)
	}
	if c.UserID, err = parseID(first(md, MDUserID)); err != nil {
		return scope.Caller{}, fmt.Errorf("%s: %w", MDUserID, err)
	}
	for _, v := range md.Get(MDGrantedLocationIDs) {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := parseID(part)
			if err != nil {
				return scope.Caller{}, fmt.Errorf("%s: %w", MDGrantedLocationIDs, err)
			}
			c.GrantedLocationIDs = append(c.GrantedLocationIDs, id)
		}
	}
	return c, nil
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// parseID accepts an empty string as 0.
func parseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
