package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "bui.ledger.v1.Query"

// QueryServer is the server API for the read-only ledger query service.
//
// Requests and replies use protobuf well-known types so this package does not
// require a protoc/codegen toolchain. The service is described in query.proto.
type QueryServer interface {
	VerifyStake(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	BlockExists(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	TokenURI(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.StringValue, error)
	BlockForToken(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error)
	Listing(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error)
	Listings(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	VerifyOrigin(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	OriginsFor(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	License(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Balance(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// UnimplementedQueryServer can be embedded to have forward compatible implementations.
type UnimplementedQueryServer struct{}

func (UnimplementedQueryServer) VerifyStake(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyStake not implemented")
}
func (UnimplementedQueryServer) BlockExists(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method BlockExists not implemented")
}
func (UnimplementedQueryServer) TokenURI(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method TokenURI not implemented")
}
func (UnimplementedQueryServer) BlockForToken(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method BlockForToken not implemented")
}
func (UnimplementedQueryServer) Listing(context.Context, *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Listing not implemented")
}
func (UnimplementedQueryServer) Listings(context.Context, *structpb.Struct) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Listings not implemented")
}
func (UnimplementedQueryServer) VerifyOrigin(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyOrigin not implemented")
}
func (UnimplementedQueryServer) OriginsFor(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method OriginsFor not implemented")
}
func (UnimplementedQueryServer) License(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method License not implemented")
}
func (UnimplementedQueryServer) Balance(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Balance not implemented")
}

// RegisterQueryServer registers the query service on a gRPC server.
func RegisterQueryServer(s grpc.ServiceRegistrar, srv QueryServer) {
	s.RegisterService(&Query_ServiceDesc, srv)
}

// QueryClient is the client API for the query service.
type QueryClient interface {
	VerifyStake(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	BlockExists(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	TokenURI(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	BlockForToken(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.Struct, error)
	Listing(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.Struct, error)
	Listings(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error)
	VerifyOrigin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	OriginsFor(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error)
	License(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Balance(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type queryClient struct{ cc grpc.ClientConnInterface }

func NewQueryClient(cc grpc.ClientConnInterface) QueryClient { return &queryClient{cc: cc} }

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, service, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+service+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *queryClient) VerifyStake(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.BoolValue](ctx, c.cc, ServiceName, "VerifyStake", in, opts)
}

func (c *queryClient) BlockExists(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.BoolValue](ctx, c.cc, ServiceName, "BlockExists", in, opts)
}

func (c *queryClient) TokenURI(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, ServiceName, "TokenURI", in, opts)
}

func (c *queryClient) BlockForToken(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, ServiceName, "BlockForToken", in, opts)
}

func (c *queryClient) Listing(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, ServiceName, "Listing", in, opts)
}

func (c *queryClient) Listings(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke[structpb.ListValue](ctx, c.cc, ServiceName, "Listings", in, opts)
}

func (c *queryClient) VerifyOrigin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.BoolValue](ctx, c.cc, ServiceName, "VerifyOrigin", in, opts)
}

func (c *queryClient) OriginsFor(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke[structpb.ListValue](ctx, c.cc, ServiceName, "OriginsFor", in, opts)
}

func (c *queryClient) License(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, ServiceName, "License", in, opts)
}

func (c *queryClient) Balance(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, ServiceName, "Balance", in, opts)
}

// unary builds a grpc.MethodDesc for one method of a service whose server
// interface is S.
func unary[S any, Req any, Resp any](service, method string, fn func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return fn(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Query_ServiceDesc is the grpc.ServiceDesc for the query service.
var Query_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QueryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ServiceName, "VerifyStake", QueryServer.VerifyStake),
		unary(ServiceName, "BlockExists", QueryServer.BlockExists),
		unary(ServiceName, "TokenURI", QueryServer.TokenURI),
		unary(ServiceName, "BlockForToken", QueryServer.BlockForToken),
		unary(ServiceName, "Listing", QueryServer.Listing),
		unary(ServiceName, "Listings", QueryServer.Listings),
		unary(ServiceName, "VerifyOrigin", QueryServer.VerifyOrigin),
		unary(ServiceName, "OriginsFor", QueryServer.OriginsFor),
		unary(ServiceName, "License", QueryServer.License),
		unary(ServiceName, "Balance", QueryServer.Balance),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "query.proto",
}
