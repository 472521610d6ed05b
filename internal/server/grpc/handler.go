package grpc

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// authService adapts GRPCServer to pb.AuthServiceServer.
type authService struct {
	pb.UnimplementedAuthServiceServer
	*GRPCServer
}

var _ pb.AuthServiceServer = (*authService)(nil)

func (s *authService) Signup(ctx context.Context, req *pb.SignupRequest) (*pb.TokenPairResponse, error) {

	email, err := validateCredentials(req.GetEmail(), req.GetPassword())
	if err != nil {
		return nil, err
	}

	tokens, err := s.users.Signup(ctx, email, req.GetPassword())
	if err != nil {
		return nil, s.mapError(ctx, err)
	}

	return toTokenPairResponse(tokens), nil
}

func (s *authService) Signin(ctx context.Context, req *pb.SigninRequest) (*pb.TokenPairResponse, error) {

	email, err := validateCredentials(req.GetEmail(), req.GetPassword())
	if err != nil {
		return nil, err
	}

	tokens, err := s.users.Signin(ctx, email, req.GetPassword())
	if err != nil {
		return nil, s.mapError(ctx, err)
	}

	return toTokenPairResponse(tokens), nil
}

func (s *authService) Logout(ctx context.Context, _ *pb.LogoutRequest) (*pb.LogoutResponse, error) {

	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	done, err := s.users.Logout(ctx, userID)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}

	return &pb.LogoutResponse{Success: done}, nil
}

func (s *authService) Refresh(ctx context.Context, _ *pb.RefreshRequest) (*pb.TokenPairResponse, error) {

	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	token, ok := refreshTokenFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	tokens, err := s.users.Refresh(ctx, userID, token)
	if err != nil {
		return nil, s.mapError(ctx, err)
	}

	return toTokenPairResponse(tokens), nil
}

func (s *authService) Ping(ctx context.Context, _ *pb.PingRequest) (*pb.PingResponse, error) {
	return &pb.PingResponse{Status: "OK"}, nil
}

// mapError turns workflow rejections into PermissionDenied and hides
// everything else behind a generic Internal status.
func (s *GRPCServer) mapError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.PermissionDenied, "email already taken")
	case errors.Is(err, common.ErrUserNotFound):
		return status.Error(codes.PermissionDenied, "user not found")
	case errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.PermissionDenied, "invalid credentials")
	case errors.Is(err, common.ErrAccessDenied):
		return status.Error(codes.PermissionDenied, "access denied")
	}

	s.logger.Error(ctx, "request failed", "error", err.Error())
	return status.Error(codes.Internal, "internal error")
}

// validateCredentials checks that both fields are present, that the
// password fits bcrypt and that the email is a bare address. It returns
// the trimmed email.
func validateCredentials(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", status.Error(codes.InvalidArgument, "email is required")
	}
	if password == "" {
		return "", status.Error(codes.InvalidArgument, "password is required")
	}
	if len(password) > maxPasswordBytes {
		return "", status.Error(codes.InvalidArgument, "password is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", status.Error(codes.InvalidArgument, "invalid email")
	}
	return email, nil
}

func toTokenPairResponse(t *models.TokenPair) *pb.TokenPairResponse {
	return &pb.TokenPairResponse{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
}
