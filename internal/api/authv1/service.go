package authv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "cms.auth.v1.AuthService"

// Full method names, as seen by interceptors.
const (
	MethodRegister             = "/" + ServiceName + "/Register"
	MethodVerifyRegistration   = "/" + ServiceName + "/VerifyRegistration"
	MethodLogin                = "/" + ServiceName + "/Login"
	MethodMe                   = "/" + ServiceName + "/Me"
	MethodLogout               = "/" + ServiceName + "/Logout"
	MethodForgotPassword       = "/" + ServiceName + "/ForgotPassword"
	MethodVerifyForgotPassword = "/" + ServiceName + "/VerifyForgotPassword"
	MethodResetPassword        = "/" + ServiceName + "/ResetPassword"
)

// AuthServiceServer is the server API of AuthService.
type AuthServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	VerifyRegistration(context.Context, *VerifyRegistrationRequest) (*VerifyRegistrationResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Me(context.Context, *MeRequest) (*MeResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	ForgotPassword(context.Context, *ForgotPasswordRequest) (*ForgotPasswordResponse, error)
	VerifyForgotPassword(context.Context, *VerifyForgotPasswordRequest) (*VerifyForgotPasswordResponse, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*ResetPasswordResponse, error)
}

// UnimplementedAuthServiceServer can be embedded to satisfy AuthServiceServer.
type UnimplementedAuthServiceServer struct{}

func (UnimplementedAuthServiceServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedAuthServiceServer) VerifyRegistration(context.Context, *VerifyRegistrationRequest) (*VerifyRegistrationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyRegistration not implemented")
}
func (UnimplementedAuthServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedAuthServiceServer) Me(context.Context, *MeRequest) (*MeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Me not implemented")
}
func (UnimplementedAuthServiceServer) Logout(context.Context, *LogoutRequest) (*LogoutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}
func (UnimplementedAuthServiceServer) ForgotPassword(context.Context, *ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ForgotPassword not implemented")
}
func (UnimplementedAuthServiceServer) VerifyForgotPassword(context.Context, *VerifyForgotPasswordRequest) (*VerifyForgotPasswordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyForgotPassword not implemented")
}
func (UnimplementedAuthServiceServer) ResetPassword(context.Context, *ResetPasswordRequest) (*ResetPasswordResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResetPassword not implemented")
}

// unary adapts a typed method to a grpc.MethodHandler.
func unary[Req, Resp any](fullMethod string, call func(AuthServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes AuthService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(MethodRegister, AuthServiceServer.Register)},
		{MethodName: "VerifyRegistration", Handler: unary(MethodVerifyRegistration, AuthServiceServer.VerifyRegistration)},
		{MethodName: "Login", Handler: unary(MethodLogin, AuthServiceServer.Login)},
		{MethodName: "Me", Handler: unary(MethodMe, AuthServiceServer.Me)},
		{MethodName: "Logout", Handler: unary(MethodLogout, AuthServiceServer.Logout)},
		{MethodName: "ForgotPassword", Handler: unary(MethodForgotPassword, AuthServiceServer.ForgotPassword)},
		{MethodName: "VerifyForgotPassword", Handler: unary(MethodVerifyForgotPassword, AuthServiceServer.VerifyForgotPassword)},
		{MethodName: "ResetPassword", Handler: unary(MethodResetPassword, AuthServiceServer.ResetPassword)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cms/auth/v1/auth",
}

// RegisterAuthServiceServer registers srv on s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
