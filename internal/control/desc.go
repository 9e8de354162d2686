package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "jellyj.control.v1.Control"

const (
	methodToggle     = "/" + serviceName + "/Toggle"
	methodRequest    = "/" + serviceName + "/Request"
	methodWatchTrace = "/" + serviceName + "/WatchTrace"
)

// controlServer is the handler contract behind serviceDesc. Messages are
// structpb.Struct so the envelope stays the JSON shape clients already know.
type controlServer interface {
	Toggle(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Request(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	WatchTrace(in *structpb.Struct, stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*controlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Toggle", Handler: unaryHandler(methodToggle, controlServer.Toggle)},
		{MethodName: "Request", Handler: unaryHandler(methodRequest, controlServer.Request)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchTrace", Handler: watchTraceHandler, ServerStreams: true},
	},
	Metadata: "jellyj/control/v1/control.proto",
}

func unaryHandler(fullMethod string, call func(controlServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(controlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(controlServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchTraceHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(controlServer).WatchTrace(in, stream)
}
