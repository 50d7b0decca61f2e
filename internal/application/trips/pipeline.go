package trips

import (
	"context"
	"fmt"

	"github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// DefaultUnprocessedBatchSize bounds how many trips one drain query returns
const DefaultUnprocessedBatchSize = 100

// Pipeline applies the computation steps, in declared order, to trips
type Pipeline struct {
	store              trip.PipelineInbound
	ports              *shared.PortDirectory
	estimator          *fuel.Estimator
	proximityThreshold float64
	batchSize          int
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithBatchSize sets the unprocessed drain batch size
func WithBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithPortProximity sets the precision step threshold in meters
func WithPortProximity(meters float64) PipelineOption {
	return func(p *Pipeline) {
		if meters > 0 {
			p.proximityThreshold = meters
		}
	}
}

func NewPipeline(store trip.PipelineInbound, ports *shared.PortDirectory, estimator *fuel.Estimator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:              store,
		ports:              ports,
		estimator:          estimator,
		proximityThreshold: DefaultPortProximityMeters,
		batchSize:          DefaultUnprocessedBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes steps [from..] on the unit
func (p *Pipeline) Run(u *TripProcessingUnit, from trip.ComputationStep) {
	for _, step := range trip.ComputationSteps {
		if step < from {
			continue
		}
		u.Trip.Statuses.Set(step, p.runStep(step, u))
	}
}

func (p *Pipeline) runStep(step trip.ComputationStep, u *TripProcessingUnit) trip.ProcessingStatus {
	switch step {
	case trip.StepPrecision:
		return precision(u, p.ports, p.proximityThreshold)
	case trip.StepDistance:
		return distance(u)
	case trip.StepPositionLayers:
		return positionLayers(u, p.estimator)
	case trip.StepCargoWeight:
		return cargoWeight(u)
	case trip.StepFuelConsumption:
		return fuelConsumption(u, p.estimator)
	default:
		return trip.StatusAttempted
	}
}

// setState seeds the slot of step from an already persisted trip
func setState(step trip.ComputationStep, u *TripProcessingUnit, persisted *trip.Trip) {
	switch step {
	case trip.StepPrecision:
		u.Trip.PrecisePeriod = persisted.PrecisePeriod
	case trip.StepDistance:
		u.Trip.Distance = persisted.Distance
		u.Trip.TrackCoverage = persisted.TrackCoverage
	case trip.StepPositionLayers:
		u.Trip.PrunedPositions = persisted.PrunedPositions
		u.Trip.Track = persisted.Track
	case trip.StepCargoWeight:
		// cargo annotations travel with the persisted track
	case trip.StepFuelConsumption:
		u.Trip.FuelLiters = persisted.FuelLiters
	}
	u.Trip.Statuses.Set(step, persisted.Statuses.Get(step))
}

// ProcessNew runs every step on a freshly assembled trip
func (p *Pipeline) ProcessNew(ctx context.Context, v *vessel.Vessel, t trip.Trip) (trip.Trip, error) {
	t.ClearSlots()
	u, err := loadUnit(ctx, p.store, v, t)
	if err != nil {
		return trip.Trip{}, err
	}
	p.Run(u, trip.StepPrecision)
	return u.Trip, nil
}

// Resume rebuilds a persisted trip from step onward, seeding earlier slots
// from what is already stored
func (p *Pipeline) Resume(ctx context.Context, v *vessel.Vessel, persisted trip.Trip, from trip.ComputationStep) (trip.Trip, error) {
	if first, ok := persisted.Statuses.FirstIncomplete(); ok && first < from {
		from = first
	}

	fresh := persisted
	fresh.ClearSlots()
	u, err := loadUnit(ctx, p.store, v, fresh)
	if err != nil {
		return trip.Trip{}, err
	}
	for _, step := range trip.ComputationSteps {
		if step < from {
			setState(step, u, &persisted)
		}
	}
	p.Run(u, from)
	return u.Trip, nil
}

// DrainUnprocessed resumes every trip of the vessel with an unprocessed step,
// batch by batch, until a full sweep over the steps finds nothing
func (p *Pipeline) DrainUnprocessed(ctx context.Context, v *vessel.Vessel, out trip.Outbound) (int, error) {
	completed := 0
	for {
		sweep := 0
		for _, step := range trip.ComputationSteps {
			for {
				batch, err := p.store.TripsWithUnprocessedStep(ctx, v.ID, step, p.batchSize)
				if err != nil {
					return completed, fmt.Errorf("failed to fetch trips with unprocessed %s: %w", step, err)
				}
				if len(batch) == 0 {
					break
				}
				for _, persisted := range batch {
					processed, err := p.Resume(ctx, v, persisted, step)
					if err != nil {
						return completed, err
					}
					if err := out.UpdateTrip(ctx, trip.UpdateFromTrip(&processed)); err != nil {
						return completed, fmt.Errorf("failed to update trip %d: %w", processed.ID, err)
					}
					completed++
					sweep++
				}
			}
		}
		if sweep == 0 {
			return completed, nil
		}
	}
}
