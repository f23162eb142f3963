package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	apphealth "intern-portal/backend/pkg/health"
	"intern-portal/backend/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Server exposes the standard gRPC health service. The overall status ("")
// follows Checker.IsSystemHealthy; each component is also published under
// its own name.
type Server struct {
	grpc    *grpc.Server
	health  *health.Server
	checker *apphealth.Checker
	log     *logger.Logger
}

// New creates the server. Nothing listens until Serve or Start.
func New(checker *apphealth.Checker, log *logger.Logger) *Server {
	s := &Server{
		health:  health.NewServer(),
		checker: checker,
		log:     log,
	}
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(s.logUnary))
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.Sync()
	return s
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.log.Debug("gRPC call completed",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start).String(),
	)
	return resp, err
}

// Sync copies the checker's current view into the health service
func (s *Server) Sync() {
	overall := healthpb.HealthCheckResponse_SERVING
	if !s.checker.IsSystemHealthy() {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)

	for name, component := range s.checker.GetStatus() {
		st := healthpb.HealthCheckResponse_SERVING
		if component.Status == apphealth.StatusDown {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		s.health.SetServingStatus(name, st)
	}
}

// Run keeps the health service in sync until ctx is cancelled
func (s *Server) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sync()
		}
	}
}

// Serve blocks serving on lis
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Start listens on addr and serves in the background
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		s.log.Info("gRPC server listening", "address", addr)
		if err := s.grpc.Serve(lis); err != nil {
			s.log.LogError(err, "gRPC server stopped")
		}
	}()
	return nil
}

// Stop marks everything NOT_SERVING and drains in-flight calls
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
