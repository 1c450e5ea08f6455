// Package grpc serves the standard gRPC health protocol for the image host,
// driven by the same upstream probes as GET /api/health.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/server/health"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name clients probe for.
const ServiceName = "repopix.ImageHost"

// Prober produces health reports on an interval.
type Prober interface {
	Watch(ctx context.Context, interval time.Duration, fn func(health.Report))
}

type GRPCServer struct {
	address  string
	prober   Prober
	interval time.Duration
	logger   logging.Logger
	health   *grpchealth.Server
}

func NewGRPCServer(a string, l logging.Logger, p Prober, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		prober:   p,
		interval: interval,
		health:   grpchealth.NewServer(),
	}
}

// apply maps a report onto the serving status of both the overall server
// ("") and ServiceName.
func (s *GRPCServer) apply(ctx context.Context, r health.Report) {
	st := healthpb.HealthCheckResponse_SERVING
	if !r.Healthy() {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		s.logger.Warn(ctx, "health degraded", "status", r.Status)
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *GRPCServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	if s.prober != nil {
		go s.prober.Watch(ctx, s.interval, func(r health.Report) { s.apply(ctx, r) })
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
