// Package grpcapi exposes the standard gRPC health service so that
// orchestrators and load balancers can probe the lock server.
package grpcapi

import (
	"context"
	"errors"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// LockServiceName is the health-check service name for the lock API.
const LockServiceName = "doorlock.v1.LockService"

type Dependencies struct {
	Logger zerolog.Logger
	Addr   string
}

type Server struct {
	addr       string
	logger     zerolog.Logger
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer builds the gRPC server. Both the overall server ("") and
// LockServiceName start as NOT_SERVING until the first successful probe.
func NewServer(d Dependencies) *Server {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{
		addr:       d.Addr,
		logger:     d.Logger.With().Str("component", "grpcapi").Logger(),
		grpcServer: gs,
		health:     hs,
	}
	s.SetServing(false)
	return s
}

// SetServing flips the health status of every service this server reports.
func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(LockServiceName, status)
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("grpc listening")
	err := s.grpcServer.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Shutdown marks everything NOT_SERVING, then stops gracefully. If ctx
// expires first, in-flight RPCs are cut off.
func (s *Server) Shutdown(ctx context.Context) error {
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
		<-done
		return ctx.Err()
	}
}
