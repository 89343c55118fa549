package main

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// listenHealth binds the health port, or returns a nil listener when the service is disabled.
func listenHealth(port int) (net.Listener, error) {
	if port == 0 {
		return nil, nil
	}
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("can't listen on grpc health port %d: %w", port, err)
	}
	return lis, nil
}

// serveHealth runs the gRPC health service on lis until ctx is done. On shutdown every service is
// reported NOT_SERVING before the server stops.
func serveHealth(ctx context.Context, lis net.Listener, logger log.Logger) error {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	stop := context.AfterFunc(ctx, func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	})
	defer stop()

	level.Info(logger).Log("msg", "Starting gRPC health server", "addr", lis.Addr())
	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc health server failed: %w", err)
	}
	return nil
}
