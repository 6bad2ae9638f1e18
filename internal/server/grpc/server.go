// Package grpcserver exposes the cms.auth.v1 gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"strings"

	"github.com/and161185/cms-auth/internal/api/authv1"
	"github.com/and161185/cms-auth/internal/errs"
	"github.com/and161185/cms-auth/internal/model"
	"github.com/and161185/cms-auth/internal/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Server wires the auth service into gRPC handlers.
type Server struct {
	authv1.UnimplementedAuthServiceServer
	auth service.AuthService
}

// New constructs a gRPC server with an injected auth service.
func New(auth service.AuthService) *Server {
	return &Server{auth: auth}
}

// Register creates or refreshes a pending account and returns its verification token.
func (s *Server) Register(ctx context.Context, req *authv1.RegisterRequest) (*authv1.RegisterResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "empty email/password")
	}
	tok, err := s.auth.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Username:  req.Username,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &authv1.RegisterResponse{Token: tok}, nil
}

// VerifyRegistration confirms the emailed code and activates the account.
func (s *Server) VerifyRegistration(ctx context.Context, req *authv1.VerifyRegistrationRequest) (*authv1.VerifyRegistrationResponse, error) {
	p, err := s.auth.VerifyRegistration(ctx, req.Token, req.Code)
	if err != nil {
		return nil, toStatus(err)
	}
	return &authv1.VerifyRegistrationResponse{User: toUser(p)}, nil
}

func remoteIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// Login authenticates a user and returns a session token with the profile.
func (s *Server) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "empty email/password")
	}
	res, err := s.auth.Login(ctx, req.Email, req.Password, remoteIP(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &authv1.LoginResponse{Token: res.Token, User: toUser(res.Profile)}, nil
}

// Me returns the profile behind the bearer session token.
func (s *Server) Me(ctx context.Context, _ *authv1.MeRequest) (*authv1.MeResponse, error) {
	if u, ok := UserFromCtx(ctx); ok {
		return &authv1.MeResponse{User: toUser(u)}, nil
	}
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	p, err := s.auth.VerifyAccessToken(ctx, tok)
	if err != nil {
		return nil, toStatus(err)
	}
	return &authv1.MeResponse{User: toUser(p)}, nil
}

// Logout revokes the bearer token.
func (s *Server) Logout(ctx context.Context, _ *authv1.LogoutRequest) (*authv1.LogoutResponse, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	if err := s.auth.Logout(ctx, tok); err != nil {
		return nil, toStatus(err)
	}
	return &authv1.LogoutResponse{}, nil
}

// ForgotPassword emails a reset code and returns the reset token.
func (s *Server) ForgotPassword(ctx context.Context, req *authv1.ForgotPasswordRequest) (*authv1.ForgotPasswordResponse, error) {
	if req.Email == "" {
		return nil, status.Error(codes.InvalidArgument, "empty email")
	}
	tok, err := s.auth.ForgotPassword(ctx, req.Email)
	if err != nil {
		return nil, toStatus(err)
	}
	return &authv1.ForgotPasswordResponse{Token: tok}, nil
}

// VerifyForgotPassword exchanges a reset token and code for a password change token.
func (s *Server) VerifyForgotPassword(ctx context.Context, req *authv1.VerifyForgotPasswordRequest) (*authv1.VerifyForgotPasswordResponse, error) {
	tok, err := s.auth.VerifyForgotPassword(ctx, req.Token, req.Code)
	if err != nil {
		return nil, toStatus(err)
	}
	return &authv1.VerifyForgotPasswordResponse{Token: tok}, nil
}

// ResetPassword sets a new password using a verified reset token.
func (s *Server) ResetPassword(ctx context.Context, req *authv1.ResetPasswordRequest) (*authv1.ResetPasswordResponse, error) {
	if err := s.auth.ResetPassword(ctx, req.Token, req.Password); err != nil {
		return nil, toStatus(err)
	}
	return &authv1.ResetPasswordResponse{}, nil
}

// toStatus maps service errors onto gRPC codes. Internal causes never reach the client.
func toStatus(err error) error {
	switch {
	case errors.Is(err, errs.ErrAuthorization), errors.Is(err, errs.ErrToken):
		return status.Error(codes.Unauthenticated, errs.Message(err, "unauthorized"))
	case errors.Is(err, errs.ErrValidation):
		return status.Error(codes.InvalidArgument, errs.Message(err, "invalid argument"))
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, errs.Message(err, "rate limited"))
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Error(codes.Internal, "internal")
	}
}

func toUser(p model.UserProfile) authv1.User {
	return authv1.User{
		ID:         p.ID.String(),
		Email:      p.Email,
		Username:   p.Username,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Avatar:     p.Avatar,
		Phone:      p.Phone,
		IsVerified: p.IsVerified,
		OnBanned:   p.OnBanned,
		Role:       string(p.Role),
	}
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
