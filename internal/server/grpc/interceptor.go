package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	UserIDKey       ctxKey = "userID"
	RefreshTokenKey ctxKey = "refreshToken"
)

// guard names the metadata header and secret a method is protected by.
type guard struct {
	header string
	secret []byte
}

func (s *GRPCServer) guards() map[string]guard {
	return map[string]guard{
		pb.AuthService_Logout_FullMethodName:  {header: common.AccessTokenHeaderName, secret: s.accessSecret},
		pb.AuthService_Refresh_FullMethodName: {header: common.RefreshTokenHeaderName, secret: s.refreshSecret},
	}
}

// tokenInterceptor verifies the token of guarded methods and stores the
// caller's user id (and, for refresh, the raw token) in the context.
func (s *GRPCServer) tokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	g, ok := s.guards()[info.FullMethod]
	if !ok {
		return handler(ctx, req)
	}

	token := tokenFromMetadata(ctx, g.header)
	if len(token) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.tokens.Parse(token, g.secret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	ctx = context.WithValue(ctx, UserIDKey, userID)
	if g.header == common.RefreshTokenHeaderName {
		ctx = context.WithValue(ctx, RefreshTokenKey, token)
	}

	return handler(ctx, req)
}

// loggingInterceptor records every call and the status code it ended with.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Info(ctx, "request failed", "method", info.FullMethod, "code", status.Code(err).String())
		return resp, err
	}
	s.logger.Debug(ctx, "request served", "method", info.FullMethod)
	return resp, nil
}

func tokenFromMetadata(ctx context.Context, header string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(header)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func userIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

func refreshTokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(RefreshTokenKey).(string)
	return t, ok && t != ""
}
