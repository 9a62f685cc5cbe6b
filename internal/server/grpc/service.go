package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tracekeeper.ContactService"

// Full method names, as seen by interceptors and used by clients.
const (
	MethodTemporaryIDs   = "/" + ServiceName + "/TemporaryIDs"
	MethodUpload         = "/" + ServiceName + "/Upload"
	MethodUploadStatus   = "/" + ServiceName + "/UploadStatus"
	MethodExposureStatus = "/" + ServiceName + "/ExposureStatus"
)

// ContactServiceServer is the server API of tracekeeper.ContactService.
// Payloads are google.protobuf.Struct documents shaped like the HTTP API.
type ContactServiceServer interface {
	TemporaryIDs(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Upload(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UploadStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ExposureStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func RegisterContactServiceServer(s grpc.ServiceRegistrar, srv ContactServiceServer) {
	s.RegisterService(&contactServiceDesc, srv)
}

func emptyHandler(method string, call func(ContactServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ContactServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(ContactServiceServer), ctx, req.(*emptypb.Empty))
		})
	}
}

func uploadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContactServiceServer).Upload(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodUpload}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ContactServiceServer).Upload(ctx, req.(*structpb.Struct))
	})
}

var contactServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ContactServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "TemporaryIDs",
			Handler:    emptyHandler(MethodTemporaryIDs, ContactServiceServer.TemporaryIDs),
		},
		{
			MethodName: "Upload",
			Handler:    uploadHandler,
		},
		{
			MethodName: "UploadStatus",
			Handler:    emptyHandler(MethodUploadStatus, ContactServiceServer.UploadStatus),
		},
		{
			MethodName: "ExposureStatus",
			Handler:    emptyHandler(MethodExposureStatus, ContactServiceServer.ExposureStatus),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tracekeeper/contacts.proto",
}
