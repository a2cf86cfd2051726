package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name. Requests and responses are
// google.protobuf.Struct values holding the camelCase JSON form of the report DTOs.
const ServiceName = "inspection.analytics.v1.EvaluationAnalytics"

// AnalyticsServer is the server API for the EvaluationAnalytics service.
type AnalyticsServer interface {
	GetOverview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTrends(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetComparison(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetInsights(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPeriodChange(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetExportRows(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetExportBundle(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedAnalyticsServer can be embedded to satisfy AnalyticsServer.
type UnimplementedAnalyticsServer struct{}

func (UnimplementedAnalyticsServer) GetOverview(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOverview not implemented")
}
func (UnimplementedAnalyticsServer) GetTrends(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTrends not implemented")
}
func (UnimplementedAnalyticsServer) GetComparison(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetComparison not implemented")
}
func (UnimplementedAnalyticsServer) GetInsights(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetInsights not implemented")
}
func (UnimplementedAnalyticsServer) GetPeriodChange(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPeriodChange not implemented")
}
func (UnimplementedAnalyticsServer) GetExportRows(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetExportRows not implemented")
}
func (UnimplementedAnalyticsServer) GetExportBundle(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetExportBundle not implemented")
}

// RegisterAnalyticsServer registers srv on s.
func RegisterAnalyticsServer(s grpc.ServiceRegistrar, srv AnalyticsServer) {
	s.RegisterService(&AnalyticsServiceDesc, srv)
}

type structMethod func(AnalyticsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler(method string, call structMethod) methodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnalyticsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnalyticsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AnalyticsServiceDesc is the grpc.ServiceDesc for the EvaluationAnalytics service.
var AnalyticsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalyticsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOverview", Handler: unaryHandler("GetOverview", AnalyticsServer.GetOverview)},
		{MethodName: "GetTrends", Handler: unaryHandler("GetTrends", AnalyticsServer.GetTrends)},
		{MethodName: "GetComparison", Handler: unaryHandler("GetComparison", AnalyticsServer.GetComparison)},
		{MethodName: "GetInsights", Handler: unaryHandler("GetInsights", AnalyticsServer.GetInsights)},
		{MethodName: "GetPeriodChange", Handler: unaryHandler("GetPeriodChange", AnalyticsServer.GetPeriodChange)},
		{MethodName: "GetExportRows", Handler: unaryHandler("GetExportRows", AnalyticsServer.GetExportRows)},
		{MethodName: "GetExportBundle", Handler: unaryHandler("GetExportBundle", AnalyticsServer.GetExportBundle)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inspection/analytics/v1/analytics.proto",
}

// AnalyticsClient calls the EvaluationAnalytics service.
type AnalyticsClient struct {
	cc grpc.ClientConnInterface
}

func NewAnalyticsClient(cc grpc.ClientConnInterface) *AnalyticsClient {
	return &AnalyticsClient{cc: cc}
}

// Call invokes method (for example "GetOverview") with req.
func (c *AnalyticsClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
