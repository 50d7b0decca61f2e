package grpc

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/adapters/metrics"
	"github.com/andrescamacho/fishtrack-go/internal/application/logging"
)

// DaemonServer hosts the long-running fishtrack process: the job scheduler,
// the gRPC health service and, when enabled, the metrics HTTP server
type DaemonServer struct {
	scheduler       *JobScheduler
	health          *HealthServer
	metricsServer   *metrics.Server
	shutdownTimeout time.Duration

	// Shutdown coordination
	shutdownChan chan os.Signal
	done         chan struct{}
	stopOnce     sync.Once
}

// NewDaemonServer creates a new daemon server instance. metricsServer may be nil.
func NewDaemonServer(scheduler *JobScheduler, health *HealthServer, metricsServer *metrics.Server, shutdownTimeout time.Duration) *DaemonServer {
	server := &DaemonServer{
		scheduler:       scheduler,
		health:          health,
		metricsServer:   metricsServer,
		shutdownTimeout: shutdownTimeout,
		shutdownChan:    make(chan os.Signal, 1),
		done:            make(chan struct{}),
	}

	// Setup signal handling
	signal.Notify(server.shutdownChan, os.Interrupt, syscall.SIGTERM)

	return server
}

// Start serves until a shutdown signal, Stop, or a server error
func (s *DaemonServer) Start(ctx context.Context) error {
	logger := logging.LoggerFromContext(ctx)
	logger.Log("INFO", "Daemon started", map[string]interface{}{
		"action":         "start_daemon",
		"health_address": s.health.Addr().String(),
	})

	go s.handleShutdown()

	healthErr := s.health.Start()
	var metricsErr <-chan error
	if s.metricsServer != nil {
		metricsErr = s.metricsServer.Start()
	}

	runCtx, cancel := context.WithCancel(ctx)
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		s.scheduler.Run(runCtx)
	}()

	var serveErr error
	select {
	case err, ok := <-healthErr:
		if ok {
			serveErr = err
		}
	case err, ok := <-metricsErr:
		if ok {
			serveErr = err
		}
	case <-s.done:
	case <-ctx.Done():
	}

	logger.Log("INFO", "Initiating graceful shutdown", map[string]interface{}{
		"action": "stop_daemon",
	})

	// the running pass observes cancellation between vessels
	cancel()
	select {
	case <-schedulerDone:
	case <-time.After(s.shutdownTimeout):
		logger.Log("WARNING", "Scheduler did not stop within shutdown timeout", map[string]interface{}{
			"action":  "stop_daemon",
			"timeout": s.shutdownTimeout.String(),
		})
	}

	s.health.Stop()
	if s.metricsServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancelShutdown()
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil && serveErr == nil {
			serveErr = fmt.Errorf("failed to stop metrics server: %w", err)
		}
	}
	signal.Stop(s.shutdownChan)
	return serveErr
}

// Stop requests a graceful shutdown
func (s *DaemonServer) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// handleShutdown turns the first signal into Stop
func (s *DaemonServer) handleShutdown() {
	select {
	case <-s.shutdownChan:
		s.Stop()
	case <-s.done:
	}
}
