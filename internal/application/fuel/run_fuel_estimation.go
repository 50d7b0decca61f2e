package fuel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/andrescamacho/fishtrack-go/internal/adapters/metrics"
	"github.com/andrescamacho/fishtrack-go/internal/application/logging"
	"github.com/andrescamacho/fishtrack-go/internal/application/mediator"
	domainFuel "github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/run"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

const (
	// DefaultRunInterval is the minimum time between two fuel runs
	DefaultRunInterval = 5 * time.Hour
	// DefaultWorkers bounds how many vessels are estimated concurrently
	DefaultWorkers = 4

	// writeChunkDays is how many day rows are written per insert
	writeChunkDays   = 32
	progressInterval = 10 * time.Second
)

// VesselSource lists the vessels to estimate
type VesselSource interface {
	AllVessels(ctx context.Context) ([]*vessel.Vessel, error)
}

// RunFuelEstimationCommand estimates fuel for every day lacking an estimate, up
// to yesterday (UTC). Force ignores the run interval.
type RunFuelEstimationCommand struct {
	VesselIDs []int64
	Force     bool
}

// RunFuelEstimationResponse summarises a fuel run
type RunFuelEstimationResponse struct {
	RunID     string
	Skipped   bool
	Estimates int
	Failures  int
}

// Config tunes the fuel job
type Config struct {
	Workers     int
	RunInterval time.Duration
}

// RunFuelEstimationHandler executes RunFuelEstimationCommand
type RunFuelEstimationHandler struct {
	vessels   VesselSource
	store     domainFuel.Store
	runs      run.Repository
	estimator *domainFuel.Estimator
	clock     shared.Clock
	config    Config
}

func NewRunFuelEstimationHandler(
	vessels VesselSource,
	store domainFuel.Store,
	runs run.Repository,
	estimator *domainFuel.Estimator,
	clock shared.Clock,
	config Config,
) *RunFuelEstimationHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.RunInterval <= 0 {
		config.RunInterval = DefaultRunInterval
	}
	return &RunFuelEstimationHandler{
		vessels:   vessels,
		store:     store,
		runs:      runs,
		estimator: estimator,
		clock:     clock,
		config:    config,
	}
}

func (h *RunFuelEstimationHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*RunFuelEstimationCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	now := h.clock.Now()
	logger := logging.LoggerFromContext(ctx)

	if !cmd.Force {
		last, err := h.runs.LastRun(ctx, run.KindFuel)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch last fuel run: %w", err)
		}
		if last != nil && last.FinishedAt() != nil && now.Sub(*last.FinishedAt()) < h.config.RunInterval {
			logger.Log("INFO", "Fuel estimation skipped, last run too recent", map[string]interface{}{
				"action":      "skip_fuel_run",
				"last_run_id": last.ID(),
				"finished_at": last.FinishedAt().Format(time.RFC3339),
			})
			return &RunFuelEstimationResponse{Skipped: true}, nil
		}
	}

	pipelineRun := run.NewPipelineRun(uuid.NewString(), run.KindFuel, h.clock)
	logger = logging.WithFields(logger, map[string]interface{}{"run_id": pipelineRun.ID()})
	ctx = logging.WithLogger(ctx, logger)
	if err := pipelineRun.Start(); err != nil {
		return nil, err
	}

	counters, runErr := h.estimateAll(ctx, cmd.VesselIDs, shared.StartOfDay(now).AddDate(0, 0, -1))
	if runErr != nil {
		_ = pipelineRun.Fail(counters, runErr)
	} else {
		_ = pipelineRun.Complete(counters)
	}
	metrics.RecordPassCompletion(string(run.KindFuel), string(pipelineRun.Status()), pipelineRun.Runtime().Seconds())

	if err := h.runs.AddRun(ctx, pipelineRun); err != nil {
		logger.Log("ERROR", "Failed to persist pipeline run", map[string]interface{}{
			"action": "add_run",
			"error":  err.Error(),
		})
	}
	if runErr != nil {
		return nil, fmt.Errorf("fuel estimation failed: %w", runErr)
	}

	logger.Log("INFO", "Fuel estimation completed", map[string]interface{}{
		"action":    "complete_fuel_run",
		"vessels":   counters.VesselsProcessed,
		"estimates": counters.FuelEstimates,
		"failures":  counters.Failures,
	})
	return &RunFuelEstimationResponse{
		RunID:     pipelineRun.ID(),
		Estimates: counters.FuelEstimates,
		Failures:  counters.Failures,
	}, nil
}

// estimateAll fans the vessels over a bounded errgroup. Vessel failures are
// logged and counted, they never cancel the group.
func (h *RunFuelEstimationHandler) estimateAll(ctx context.Context, vesselIDs []int64, lastDay time.Time) (run.Counters, error) {
	logger := logging.LoggerFromContext(ctx)

	all, err := h.vessels.AllVessels(ctx)
	if err != nil {
		return run.Counters{}, fmt.Errorf("failed to fetch vessels: %w", err)
	}
	vessels := selectVessels(all, vesselIDs)

	var (
		mu       sync.Mutex
		counters = run.Counters{VesselsProcessed: len(vessels)}
		done     int
		progress = rate.Sometimes{Interval: progressInterval}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.Workers)
	for _, v := range vessels {
		g.Go(func() error {
			n, err := h.estimateVessel(gctx, v, lastDay)

			mu.Lock()
			defer mu.Unlock()
			done++
			counters.FuelEstimates += n
			if err != nil {
				counters.Failures++
				logger.Log("ERROR", "Fuel estimation failed, vessel skipped", map[string]interface{}{
					"action":    "estimate_vessel",
					"vessel_id": v.ID,
					"error":     err.Error(),
				})
			}
			progress.Do(func() {
				logger.Log("INFO", "Fuel estimation progress", map[string]interface{}{
					"action":    "fuel_progress",
					"done":      done,
					"total":     len(vessels),
					"estimates": counters.FuelEstimates,
				})
			})
			return nil
		})
	}
	err = g.Wait()
	metrics.RecordFuelEstimates(counters.FuelEstimates)
	if err != nil {
		return counters, err
	}
	return counters, ctx.Err()
}

// estimateVessel writes one row per missing day, in chunks
func (h *RunFuelEstimationHandler) estimateVessel(ctx context.Context, v *vessel.Vessel, lastDay time.Time) (int, error) {
	if !v.HasEngines() {
		return 0, nil
	}

	params := domainFuel.ParamsFromVessel(v)
	maxCargo, err := h.store.VesselMaxCargoWeight(ctx, v.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch max cargo weight: %w", err)
	}
	if maxCargo != nil {
		params.MaxCargoWeight = maxCargo
	}

	dates, err := h.store.DatesToEstimate(ctx, v.ID, v.EngineVersion, lastDay)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch dates to estimate: %w", err)
	}

	written := 0
	for start := 0; start < len(dates); start += writeChunkDays {
		end := start + writeChunkDays
		if end > len(dates) {
			end = len(dates)
		}
		// each chunk owns a fresh buffer
		chunk := make([]domainFuel.DayEstimate, 0, end-start)
		for _, date := range dates[start:end] {
			estimate, err := h.estimateDay(ctx, v, params, date)
			if err != nil {
				return written, err
			}
			chunk = append(chunk, estimate)
		}
		if err := h.store.AddFuelEstimates(ctx, chunk); err != nil {
			return written, fmt.Errorf("failed to add fuel estimates: %w", err)
		}
		written += len(chunk)
	}
	return written, nil
}

func selectVessels(vessels []*vessel.Vessel, ids []int64) []*vessel.Vessel {
	if len(ids) == 0 {
		return vessels
	}
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []*vessel.Vessel
	for _, v := range vessels {
		if wanted[v.ID] {
			out = append(out, v)
		}
	}
	return out
}
