package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// AuthServiceName is the fully qualified name of the auth service.
const AuthServiceName = "tokenkeeper.v1.Auth"

// Full method names, as seen by interceptors.
const (
	MethodAuthenticate = "/" + AuthServiceName + "/Authenticate"
	MethodRefresh      = "/" + AuthServiceName + "/Refresh"
	MethodRevoke       = "/" + AuthServiceName + "/Revoke"
	MethodValidate     = "/" + AuthServiceName + "/Validate"
	MethodLogout       = "/" + AuthServiceName + "/Logout"
	MethodLogoutAll    = "/" + AuthServiceName + "/LogoutAll"
)

// AuthServer is the server API for the auth service. Messages are
// google.protobuf.Struct so clients need no generated stubs.
type AuthServer interface {
	Authenticate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Revoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	LogoutAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type authMethod func(srv AuthServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// AuthServiceDesc describes the auth service for grpc.Server registration.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Authenticate", Handler: unaryHandler(MethodAuthenticate, AuthServer.Authenticate)},
		{MethodName: "Refresh", Handler: unaryHandler(MethodRefresh, AuthServer.Refresh)},
		{MethodName: "Revoke", Handler: unaryHandler(MethodRevoke, AuthServer.Revoke)},
		{MethodName: "Validate", Handler: unaryHandler(MethodValidate, AuthServer.Validate)},
		{MethodName: "Logout", Handler: unaryHandler(MethodLogout, AuthServer.Logout)},
		{MethodName: "LogoutAll", Handler: unaryHandler(MethodLogoutAll, AuthServer.LogoutAll)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tokenkeeper/v1/auth.proto",
}

// RegisterAuthServer registers srv on s.
func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

func unaryHandler(fullMethod string, call authMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
