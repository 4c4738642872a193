package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName     = "parlay.model.v1.ModelService"
	scoreFullMethod = "/" + serviceName + "/Score"
)

// ModelServer is the server side of the model service. Requests and responses
// are structpb.Struct documents so no generated stubs are needed.
type ModelServer interface {
	Score(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func scoreHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ModelServer).Score(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: scoreFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ModelServer).Score(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the model service for grpc.Server registration
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ModelServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Score", Handler: scoreHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "parlay/model/v1/model.proto",
}

// RegisterModelServer registers srv on s
func RegisterModelServer(s grpc.ServiceRegistrar, srv ModelServer) {
	s.RegisterService(&ServiceDesc, srv)
}
