// Package health serves the standard gRPC health service. Every capability
// is reported as its own service so probes can tell which one is missing.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	health *health.Server
	grpc   *grpc.Server
	log    *slog.Logger
}

func New(log *slog.Logger) *Server {
	hs := health.NewServer()
	gs := grpc.NewServer()

	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{
		health: hs,
		grpc:   gs,
		log:    log,
	}
}

// SetCapability reports the capability as serving when it is available.
func (s *Server) SetCapability(name string, available bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if available {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus(name, status)
}

// Serve listens on addr and serves until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return s.ServeListener(ctx, lis)
}

func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.log.InfoContext(ctx, "Health server is started",
		"addr", lis.Addr().String())

	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

// Stop marks every service as not serving and stops the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
