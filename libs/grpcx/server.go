package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/glowbook/clinicavail/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer is a gRPC server exposing the standard health service, whose
// status tracks the same dependency checks as /readyz.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	logger *slog.Logger
	checks []runtime.ReadyCheck
}

func NewHealthServer(logger *slog.Logger, checks ...runtime.ReadyCheck) *HealthServer {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			UnaryServerRequestIDInterceptor(),
			UnaryServerLoggingInterceptor(logger),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &HealthServer{srv: srv, health: hs, logger: logger, checks: checks}
}

// Refresh re-runs the dependency checks and publishes the overall serving status.
func (s *HealthServer) Refresh(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if failures := runtime.CheckAll(ctx, 2*time.Second, s.checks...); len(failures) > 0 {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		s.logger.Warn("dependency checks failing", "failures", failures)
	}
	s.health.SetServingStatus("", st)
}

// Serve listens on addr, refreshes health every interval and stops gracefully when ctx ends.
func (s *HealthServer) Serve(ctx context.Context, addr string, interval time.Duration) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s.Refresh(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.health.Shutdown()
				s.srv.GracefulStop()
				return
			case <-ticker.C:
				s.Refresh(ctx)
			}
		}
	}()

	go func() {
		s.logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := s.srv.Serve(lis); err != nil {
			s.logger.Error("grpc server error", "err", err)
		}
	}()
	return nil
}
