// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package control provides the gRPC control plane for process management.
// It exposes the standard grpc.health.v1 health service on a loopback
// address; the status subcommand dials it to report on a running process.
package control

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/samber/oops"
)

// Service name registered with the health server. The empty name covers
// whole-process probes; this one scopes readiness to the API.
const ServiceName = "gatehouse.api"

// GRPCServer runs the control-plane gRPC server.
type GRPCServer struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
}

// NewGRPCServer creates a control server. Readiness starts as NOT_SERVING
// until SetReady is called.
func NewGRPCServer() *GRPCServer {
	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return &GRPCServer{
		grpcServer: grpcServer,
		health:     healthServer,
	}
}

// SetReady flips the advertised health status.
func (s *GRPCServer) SetReady(ready bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Start begins listening on addr. It returns an error channel that receives
// the server's exit error; the channel receives exactly one value when the
// server stops.
func (s *GRPCServer) Start(addr string) (<-chan error, error) {
	// Prevent double-start which would leak the first listener
	if s.listener != nil {
		return nil, oops.Errorf("control server already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, oops.With("addr", addr).Wrap(err)
	}
	s.listener = listener

	errCh := make(chan error, 1)
	go func() {
		serveErr := s.grpcServer.Serve(listener)
		if serveErr != nil {
			slog.Error("control server error", "error", serveErr)
		}
		errCh <- serveErr
	}()

	slog.Info("control server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the control server.
func (s *GRPCServer) Stop(_ context.Context) error {
	s.health.Shutdown()
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	return nil
}

// Addr returns the address the server is listening on, or empty if not
// running.
func (s *GRPCServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// CheckHealth dials a control server and returns the advertised status of
// the API service.
func CheckHealth(ctx context.Context, addr string, timeout time.Duration) (string, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return "", oops.With("addr", addr).Wrap(err)
	}
	defer conn.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{
		Service: ServiceName,
	})
	if err != nil {
		return "", oops.Code("CONTROL_UNREACHABLE").With("addr", addr).Wrap(err)
	}

	return resp.GetStatus().String(), nil
}
