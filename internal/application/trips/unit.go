package trips

import (
	"context"
	"fmt"

	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// TripProcessingUnit is a trip together with the inputs every computation step
// reads. Steps write only their own slot of Trip.
type TripProcessingUnit struct {
	Vessel        *vessel.Vessel
	Trip          trip.Trip
	Positions     []vessel.Position
	Hauls         []vessel.Haul
	LandingWeight float64
}

// loadUnit fetches the inputs of a trip. The trip slots are taken as given.
func loadUnit(ctx context.Context, store trip.PipelineInbound, v *vessel.Vessel, t trip.Trip) (*TripProcessingUnit, error) {
	positions, err := store.TripPositions(ctx, v, t.Period)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track of trip %d: %w", t.ID, err)
	}
	vessel.SortPositions(positions)

	hauls, err := store.TripHauls(ctx, v.ID, t.Period)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch hauls of trip %d: %w", t.ID, err)
	}

	weight, err := store.LandingWeight(ctx, v.ID, t.LandingCoverage)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch landing weight of trip %d: %w", t.ID, err)
	}

	return &TripProcessingUnit{
		Vessel:        v,
		Trip:          t,
		Positions:     positions,
		Hauls:         hauls,
		LandingWeight: weight,
	}, nil
}
