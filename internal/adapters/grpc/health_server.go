package grpc

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service names reported by the health server
const (
	ServiceTrips = "fishtrack.trips"
	ServiceFuel  = "fishtrack.fuel"
)

// HealthServer exposes the standard gRPC health protocol. The overall status
// and one status per batch job are tracked.
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
}

// NewHealthServer listens on address (host:port)
func NewHealthServer(address string) (*HealthServer, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	server := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	for _, service := range []string{"", ServiceTrips, ServiceFuel} {
		hs.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
	}

	return &HealthServer{server: server, health: hs, listener: listener}, nil
}

// Addr returns the bound address
func (s *HealthServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Start serves in the background
func (s *HealthServer) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(s.listener); err != nil {
			errCh <- fmt.Errorf("gRPC health server error: %w", err)
		}
		close(errCh)
	}()
	return errCh
}

// SetServing updates the status of one job. The overall status follows the
// trip pipeline.
func (s *HealthServer) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(service, status)
	if service == ServiceTrips {
		s.health.SetServingStatus("", status)
	}
}

// Stop marks everything NOT_SERVING and drains in-flight checks
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
