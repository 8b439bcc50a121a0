package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "intercept.v1.SimulationService"

const (
	runMethod           = "/" + ServiceName + "/Run"
	listScenariosMethod = "/" + ServiceName + "/ListScenarios"
	addScenariosMethod  = "/" + ServiceName + "/AddScenarios"
)

// SimulationServer is the server API. Messages are google.protobuf.Struct
// documents whose shape is given by the request and response types in
// this package.
type SimulationServer interface {
	Run(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListScenarios(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddScenarios(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes SimulationService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Run", Handler: unaryHandler(runMethod, SimulationServer.Run)},
		{MethodName: "ListScenarios", Handler: unaryHandler(listScenariosMethod, SimulationServer.ListScenarios)},
		{MethodName: "AddScenarios", Handler: unaryHandler(addScenariosMethod, SimulationServer.AddScenarios)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "intercept/v1/simulation.proto",
}

// RegisterSimulationServer registers srv on s.
func RegisterSimulationServer(s grpc.ServiceRegistrar, srv SimulationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(SimulationServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SimulationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SimulationServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
