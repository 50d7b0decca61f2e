package grpc

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/application/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/application/logging"
	"github.com/andrescamacho/fishtrack-go/internal/application/mediator"
	"github.com/andrescamacho/fishtrack-go/internal/application/trips"
)

// HealthReporter receives the outcome of every job run
type HealthReporter interface {
	SetServing(service string, serving bool)
}

// JobScheduler runs a trip pass followed by a fuel run on every tick. Runs
// never overlap: a tick that fires while a run is in progress is dropped.
// The fuel command rate-limits itself, most ticks only run trips.
type JobScheduler struct {
	mediator   mediator.Mediator
	health     HealthReporter
	interval   time.Duration
	vesselIDs  []int64
	runOnStart bool
	healthy    atomic.Bool
}

// NewJobScheduler creates a scheduler. health may be nil.
func NewJobScheduler(med mediator.Mediator, health HealthReporter, interval time.Duration, vesselIDs []int64, runOnStart bool) *JobScheduler {
	s := &JobScheduler{
		mediator:   med,
		health:     health,
		interval:   interval,
		vesselIDs:  vesselIDs,
		runOnStart: runOnStart,
	}
	s.healthy.Store(true)
	return s
}

// Run blocks until ctx is cancelled
func (s *JobScheduler) Run(ctx context.Context) {
	logger := logging.LoggerFromContext(ctx)
	logger.Log("INFO", "Job scheduler started", map[string]interface{}{
		"action":   "start_scheduler",
		"interval": s.interval.String(),
	})

	if s.runOnStart {
		s.Tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log("INFO", "Job scheduler stopped", map[string]interface{}{
				"action": "stop_scheduler",
			})
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one trip pass and one fuel run
func (s *JobScheduler) Tick(ctx context.Context) {
	logger := logging.LoggerFromContext(ctx)

	_, err := s.mediator.Send(ctx, &trips.RunTripsPipelineCommand{VesselIDs: s.vesselIDs})
	s.report(ServiceTrips, err)
	if err != nil {
		logger.Log("ERROR", "Trip pipeline pass failed", map[string]interface{}{
			"action": "run_trips",
			"error":  err.Error(),
		})
	}
	if ctx.Err() != nil {
		return
	}

	_, err = s.mediator.Send(ctx, &fuel.RunFuelEstimationCommand{VesselIDs: s.vesselIDs})
	s.report(ServiceFuel, err)
	if err != nil {
		logger.Log("ERROR", "Fuel estimation failed", map[string]interface{}{
			"action": "run_fuel",
			"error":  err.Error(),
		})
	}
}

// Healthy reports whether the last trip pass succeeded
func (s *JobScheduler) Healthy() bool {
	return s.healthy.Load()
}

func (s *JobScheduler) report(service string, err error) {
	if service == ServiceTrips {
		s.healthy.Store(err == nil)
	}
	if s.health != nil {
		s.health.SetServing(service, err == nil)
	}
}
