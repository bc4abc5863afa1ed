package gate

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "gatekeeper.v1.GateAdmin"
	// GetStatusMethod is the full method name of GetStatus.
	GetStatusMethod = "/" + ServiceName + "/GetStatus"
	// ListSubscribersMethod is the full method name of ListSubscribers.
	ListSubscribersMethod = "/" + ServiceName + "/ListSubscribers"
)

// AdminServer is the server API of the admin service.
type AdminServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	ListSubscribers(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes the admin service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by gRPC convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    getStatusHandler,
		},
		{
			MethodName: "ListSubscribers",
			Handler:    listSubscribersHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gatekeeper/v1/admin.proto",
}

// RegisterAdminServer registers srv on registrar.
func RegisterAdminServer(registrar grpc.ServiceRegistrar, srv AdminServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

//nolint:revive // Signature fixed by grpc.MethodHandler.
func getStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AdminServer).GetStatus(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetStatusMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServer).GetStatus(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

//nolint:revive // Signature fixed by grpc.MethodHandler.
func listSubscribersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AdminServer).ListSubscribers(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ListSubscribersMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdminServer).ListSubscribers(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

// AdminClient calls the admin service.
type AdminClient struct {
	// cc is the underlying connection.
	cc grpc.ClientConnInterface
}

// NewAdminClient wraps an established connection.
func NewAdminClient(cc grpc.ClientConnInterface) *AdminClient {
	return &AdminClient{
		cc: cc,
	}
}

// GetStatus fetches the controller snapshot.
func (c *AdminClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStatusMethod, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// ListSubscribers fetches the current subscriptions.
func (c *AdminClient) ListSubscribers(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListSubscribersMethod, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
