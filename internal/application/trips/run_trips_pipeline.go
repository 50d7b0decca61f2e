package trips

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/andrescamacho/fishtrack-go/internal/adapters/metrics"
	"github.com/andrescamacho/fishtrack-go/internal/application/logging"
	"github.com/andrescamacho/fishtrack-go/internal/application/mediator"
	"github.com/andrescamacho/fishtrack-go/internal/domain/run"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
)

// RunTripsPipelineCommand runs one trip pipeline pass, optionally restricted to
// a vessel subset
type RunTripsPipelineCommand struct {
	VesselIDs []int64
}

// RunTripsPipelineResponse carries the pass report and the persisted run id
type RunTripsPipelineResponse struct {
	RunID  string
	Report PassReport
}

// RunTripsPipelineHandler executes RunTripsPipelineCommand
type RunTripsPipelineHandler struct {
	driver *Driver
	runs   run.Repository
	clock  shared.Clock
}

func NewRunTripsPipelineHandler(driver *Driver, runs run.Repository, clock shared.Clock) *RunTripsPipelineHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &RunTripsPipelineHandler{driver: driver, runs: runs, clock: clock}
}

// Handle runs the pass and records it. A pass-level failure is returned after
// the failed run has been persisted.
func (h *RunTripsPipelineHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*RunTripsPipelineCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	pipelineRun := run.NewPipelineRun(uuid.NewString(), run.KindTrips, h.clock)
	logger := logging.WithFields(logging.LoggerFromContext(ctx), map[string]interface{}{
		"run_id": pipelineRun.ID(),
	})
	ctx = logging.WithLogger(ctx, logger)

	if err := pipelineRun.Start(); err != nil {
		return nil, err
	}

	report, passErr := h.driver.RunPass(ctx, cmd.VesselIDs)
	if report == nil {
		report = &PassReport{}
	}

	counters := report.Counters()
	if passErr != nil {
		_ = pipelineRun.Fail(counters, passErr)
	} else {
		_ = pipelineRun.Complete(counters)
	}
	metrics.RecordPassCompletion(string(run.KindTrips), string(pipelineRun.Status()), pipelineRun.Runtime().Seconds())

	if err := h.runs.AddRun(ctx, pipelineRun); err != nil {
		logger.Log("ERROR", "Failed to persist pipeline run", map[string]interface{}{
			"action": "add_run",
			"error":  err.Error(),
		})
	}

	if passErr != nil {
		return nil, fmt.Errorf("trip pipeline pass failed: %w", passErr)
	}
	return &RunTripsPipelineResponse{RunID: pipelineRun.ID(), Report: *report}, nil
}

// Counters converts the report into persisted run counters
func (r *PassReport) Counters() run.Counters {
	return run.Counters{
		VesselsProcessed:     r.Vessels,
		TripsCreated:         r.TripsCreated,
		ConflictsResolved:    r.ConflictsResolved,
		NoPriorState:         r.NoPriorState,
		Resets:               r.Resets,
		UnprocessedCompleted: r.UnprocessedCompleted,
		Failures:             r.Failures,
	}
}
