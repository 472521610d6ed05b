// Package grpc exposes the auth workflow as gophauth.AuthService.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// UserService is the part of services.UserService the transport calls.
type UserService interface {
	Signup(ctx context.Context, email, password string) (*models.TokenPair, error)
	Signin(ctx context.Context, email, password string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID int64) (bool, error)
	Refresh(ctx context.Context, userID int64, refreshToken string) (*models.TokenPair, error)
}

// TokenParser verifies tokens presented in request metadata.
type TokenParser interface {
	Parse(token string, secret []byte) (*auth.Claims, error)
}

type GRPCServer struct {
	address       string
	users         UserService
	tokens        TokenParser
	accessSecret  []byte
	refreshSecret []byte
	logger        logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, us UserService, tp TokenParser, accessSecret, refreshSecret string) *GRPCServer {
	return &GRPCServer{
		address:       a,
		logger:        l.With("module", "grpc_server"),
		users:         us,
		tokens:        tp,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.tokenInterceptor),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)

	pb.RegisterAuthServiceServer(srv, &authService{GRPCServer: s})

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(pb.AuthService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
