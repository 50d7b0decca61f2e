package trips

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andrescamacho/fishtrack-go/internal/adapters/metrics"
	"github.com/andrescamacho/fishtrack-go/internal/application/logging"
	"github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// ErrWorkerPoolExhausted aborts a pass once every worker has crashed
var ErrWorkerPoolExhausted = errors.New("trip pipeline worker pool exhausted")

// DefaultWorkers is the pool size when none is configured
const DefaultWorkers = 4

type taskKind int

const (
	taskNew taskKind = iota
	taskUnprocessed
)

func (k taskKind) String() string {
	if k == taskNew {
		return "new"
	}
	return "unprocessed"
}

type task struct {
	kind   taskKind
	vessel *vessel.Vessel
}

type taskResult struct {
	task      task
	assembly  *AssemblyResult
	created   int
	completed int
	err       error
	crashed   bool
}

// PassReport holds the aggregate counters of one pipeline pass
type PassReport struct {
	Vessels              int
	TripsCreated         int
	ConflictsResolved    int
	NoPriorState         int
	Resets               int
	UnprocessedCompleted int
	Failures             int
	WorkerCrashes        int
}

// DriverConfig tunes the concurrent driver
type DriverConfig struct {
	Workers             int
	BatchSize           int
	PortProximityMeters float64
}

// Driver fans the two passes over the vessel set with a bounded worker pool.
// Workers talk to the coordinator only through channels.
type Driver struct {
	store     trip.Store
	assembler *ConflictAwareAssembler
	estimator *fuel.Estimator
	config    DriverConfig
}

func NewDriver(store trip.Store, estimator *fuel.Estimator, config DriverConfig) *Driver {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultUnprocessedBatchSize
	}
	if config.PortProximityMeters <= 0 {
		config.PortProximityMeters = DefaultPortProximityMeters
	}
	return &Driver{
		store:     store,
		assembler: NewConflictAwareAssembler(store),
		estimator: estimator,
		config:    config,
	}
}

// RunPass runs both passes over the vessels. An empty filter selects every vessel.
func (d *Driver) RunPass(ctx context.Context, vesselIDs []int64) (*PassReport, error) {
	logger := logging.LoggerFromContext(ctx)

	vessels, err := d.store.AllVessels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vessels: %w", err)
	}
	vessels = filterVessels(vessels, vesselIDs)

	ports, err := d.store.Ports(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ports: %w", err)
	}
	dockPoints, err := d.store.DockPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dock points: %w", err)
	}
	pipeline := NewPipeline(
		d.store,
		shared.NewPortDirectory(ports, dockPoints),
		d.estimator,
		WithBatchSize(d.config.BatchSize),
		WithPortProximity(d.config.PortProximityMeters),
	)

	report := &PassReport{Vessels: len(vessels)}
	if len(vessels) == 0 {
		return report, nil
	}

	workers := d.config.Workers
	if workers > len(vessels) {
		workers = len(vessels)
	}

	logger.Log("INFO", "Trip pipeline pass started", map[string]interface{}{
		"action":  "start_pass",
		"vessels": len(vessels),
		"workers": workers,
	})

	// both channels hold every vessel so neither side can block on capacity
	tasks := make(chan task, len(vessels))
	results := make(chan taskResult, len(vessels))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.worker(ctx, pipeline, tasks, results)
		}()
	}
	defer func() {
		close(tasks)
		go func() {
			wg.Wait()
			close(results)
		}()
		go func() {
			for range results {
			}
		}()
	}()

	for _, v := range vessels {
		tasks <- task{kind: taskNew, vessel: v}
	}

	pending := len(vessels)
	for pending > 0 {
		select {
		case <-ctx.Done():
			return report, ctx.Err()

		case r := <-results:
			v := r.task.vessel
			if r.crashed {
				report.WorkerCrashes++
				report.Failures++
				pending--
				logger.Log("ERROR", "Trip pipeline worker crashed", map[string]interface{}{
					"action":    "worker_crash",
					"vessel_id": v.ID,
					"task":      r.task.kind.String(),
					"error":     r.err.Error(),
				})
				if report.WorkerCrashes >= workers {
					return report, ErrWorkerPoolExhausted
				}
				continue
			}

			if r.err != nil {
				report.Failures++
				pending--
				logVesselFailure(logger, v, r.task.kind, r.err)
				metrics.RecordVesselOutcome(r.task.kind.String(), "failed")
				continue
			}

			switch r.task.kind {
			case taskNew:
				report.TripsCreated += r.created
				switch r.assembly.State.Kind {
				case trip.StateConflict:
					report.ConflictsResolved++
				case trip.StateNoPriorState:
					report.NoPriorState++
				case trip.StateQueuedReset:
					report.Resets++
				}
				metrics.RecordTripsCreated(r.assembly.Kind.String(), string(r.assembly.State.Kind), r.created)
				metrics.RecordVesselOutcome(r.task.kind.String(), "succeeded")
				// pass 2 for a vessel starts only once pass 1 has persisted
				tasks <- task{kind: taskUnprocessed, vessel: v}
			case taskUnprocessed:
				report.UnprocessedCompleted += r.completed
				metrics.RecordVesselOutcome(r.task.kind.String(), "succeeded")
				pending--
			}
		}
	}

	logger.Log("INFO", "Trip pipeline pass completed", map[string]interface{}{
		"action":                "complete_pass",
		"vessels":               report.Vessels,
		"trips_created":         report.TripsCreated,
		"conflicts_resolved":    report.ConflictsResolved,
		"no_prior_state":        report.NoPriorState,
		"resets":                report.Resets,
		"unprocessed_completed": report.UnprocessedCompleted,
		"failures":              report.Failures,
	})
	return report, nil
}

// worker executes tasks until the channel closes or it crashes. A crashed
// worker reports once and exits.
func (d *Driver) worker(ctx context.Context, pipeline *Pipeline, tasks <-chan task, results chan<- taskResult) {
	for t := range tasks {
		r := d.execute(ctx, pipeline, t)
		results <- r
		if r.crashed {
			return
		}
	}
}

func (d *Driver) execute(ctx context.Context, pipeline *Pipeline, t task) (r taskResult) {
	r.task = t
	defer func() {
		if p := recover(); p != nil {
			r.crashed = true
			r.err = fmt.Errorf("panic: %v", p)
		}
	}()

	if err := ctx.Err(); err != nil {
		r.err = err
		return r
	}

	switch t.kind {
	case taskNew:
		r.assembly, r.created, r.err = d.processNew(ctx, pipeline, t.vessel)
	case taskUnprocessed:
		r.completed, r.err = d.processUnprocessed(ctx, pipeline, t.vessel)
	}
	if r.err != nil {
		r.err = shared.NewVesselError(t.vessel.ID, t.kind.String(), r.err)
	}
	return r
}

// processNew assembles new trips of a vessel, runs the full pipeline on each
// and persists them as one set
func (d *Driver) processNew(ctx context.Context, pipeline *Pipeline, v *vessel.Vessel) (*AssemblyResult, int, error) {
	kind := trip.PreferredAssembler(v)
	result, err := d.assembler.Assemble(ctx, v, kind)
	if err != nil {
		return nil, 0, err
	}

	if len(result.Trips) == 0 {
		switch result.State.Kind {
		case trip.StateQueuedReset:
			if err := d.store.NukeTrips(ctx, v.ID, kind); err != nil {
				return nil, 0, fmt.Errorf("failed to nuke trips: %w", err)
			}
		case trip.StateConflict:
			set := trip.TripSet{VesselID: v.ID, Assembler: kind, Strategy: result.Strategy, State: result.State}
			if err := d.store.AddTripSet(ctx, set); err != nil {
				return nil, 0, fmt.Errorf("failed to clear conflict: %w", err)
			}
		}
		if kind.HasCurrentTrip() {
			if err := d.store.SetCurrentTrip(ctx, v.ID); err != nil {
				return nil, 0, fmt.Errorf("failed to set current trip: %w", err)
			}
		}
		return result, 0, nil
	}

	set := trip.TripSet{
		VesselID:  v.ID,
		Assembler: kind,
		Strategy:  result.Strategy,
		State:     result.State,
		Trips:     make([]trip.Trip, 0, len(result.Trips)),
	}
	for _, n := range result.Trips {
		id, err := d.store.ReserveTripID(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to reserve trip id: %w", err)
		}
		processed, err := pipeline.ProcessNew(ctx, v, trip.FromNew(id, v.ID, kind, n))
		if err != nil {
			return nil, 0, err
		}
		set.Trips = append(set.Trips, processed)
	}

	if err := d.store.AddTripSet(ctx, set); err != nil {
		return nil, 0, fmt.Errorf("failed to add trip set: %w", err)
	}
	if kind.HasCurrentTrip() {
		if err := d.store.SetCurrentTrip(ctx, v.ID); err != nil {
			return nil, 0, fmt.Errorf("failed to set current trip: %w", err)
		}
	}
	if err := d.store.RefreshDetailedTrips(ctx, v.ID); err != nil {
		return nil, 0, fmt.Errorf("failed to refresh detailed trips: %w", err)
	}
	return result, len(set.Trips), nil
}

func (d *Driver) processUnprocessed(ctx context.Context, pipeline *Pipeline, v *vessel.Vessel) (int, error) {
	completed, err := pipeline.DrainUnprocessed(ctx, v, d.store)
	if err != nil {
		return completed, err
	}
	if completed > 0 {
		if err := d.store.RefreshDetailedTrips(ctx, v.ID); err != nil {
			return completed, fmt.Errorf("failed to refresh detailed trips: %w", err)
		}
	}
	return completed, nil
}

func logVesselFailure(logger logging.Logger, v *vessel.Vessel, kind taskKind, err error) {
	metadata := map[string]interface{}{
		"action":    "process_vessel",
		"vessel_id": v.ID,
		"task":      kind.String(),
		"error":     err.Error(),
	}
	var conflict *shared.TripConflictError
	if errors.As(err, &conflict) {
		metadata["action"] = "trip_conflict"
		logger.Log("ERROR", "Unexpected trip conflict, vessel skipped", metadata)
		return
	}
	logger.Log("ERROR", "Vessel processing failed, vessel skipped", metadata)
}

func filterVessels(vessels []*vessel.Vessel, ids []int64) []*vessel.Vessel {
	if len(ids) == 0 {
		return vessels
	}
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := make([]*vessel.Vessel, 0, len(ids))
	for _, v := range vessels {
		if _, ok := wanted[v.ID]; ok {
			out = append(out, v)
		}
	}
	return out
}
