package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// CartService is the name the cart client reports in the health service.
const CartService = "storefront.Cart"

type Config struct {
	Host string `json:"host" env:"STOREFRONT_GRPC_HOST"`
}

func (c Config) Enabled() bool {
	return c.Host != ""
}

// Server exposes the standard gRPC health service so supervisors can probe
// a running client.
type Server struct {
	cfg        Config
	grpcServer *grpc.Server
	health     *health.Server
	lis        net.Listener
	logger     *zap.Logger
}

func NewGRPCServer(cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		cfg:    cfg,
		health: health.NewServer(),
		logger: logger,
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s.grpcServer != nil {
		return errors.New("server is already running")
	}

	lis, err := net.Listen("tcp", s.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Host, err)
	}
	s.lis = lis

	s.grpcServer = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	reflection.Register(s.grpcServer)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(CartService, healthpb.HealthCheckResponse_SERVING)

	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			s.logger.Error("failed to serve", zap.Error(err))
		}
	}()

	s.logger.Info("gRPC server is running", zap.String("addr", lis.Addr().String()))

	return nil
}

// Addr is the bound address, useful when the configured port is 0.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

// SetServing flips the cart service status, e.g. while the backend is down.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(CartService, status)
}

func (s *Server) Stop(ctx context.Context) error {
	if s.grpcServer == nil {
		return errors.New("server is not running")
	}
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.grpcServer.Stop()
		return ctx.Err()
	}
}
