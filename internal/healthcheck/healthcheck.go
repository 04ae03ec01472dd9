// Package healthcheck exposes the standard gRPC health service for load balancers
// that probe over gRPC instead of GET /api/health.
package healthcheck

import (
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the generate API.
const ServiceName = "edublink.v1.Generate"

// Server serves grpc.health.v1 on its own listener.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// New creates a health server. The generate service reports SERVING only when
// keyConfigured is true, since every generate call fails without a key.
func New(keyConfigured bool, logger *zap.Logger) *Server {
	gs := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 5 * time.Minute,
			Time:              30 * time.Second,
			Timeout:           5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	status := healthpb.HealthCheckResponse_SERVING
	if !keyConfigured {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus(ServiceName, status)

	return &Server{grpc: gs, health: hs, logger: logger}
}

// Serve blocks until Stop is called or the listener fails.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc health server listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains open streams.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
