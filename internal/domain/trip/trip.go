package trip

import (
	"fmt"
	"sort"
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// NewTrip is a trip boundary produced by an assembler, before any computation
// step has run
type NewTrip struct {
	Period          shared.DateRange
	PeriodExtended  shared.DateRange
	LandingCoverage shared.DateRange
	StartPortID     *string
	EndPortID       *string
	StartEventID    *int64
	EndEventID      *int64
}

// TripPosition is a pruned track position annotated by the cargo and fuel steps
type TripPosition struct {
	vessel.Position
	CumulativeCargoWeight float64 `json:"cumulative_cargo_weight"`
	InsideHaul            bool    `json:"inside_haul"`
	CumulativeFuelLiters  float64 `json:"cumulative_fuel_liters"`
}

// Trip is a committed trip together with the output slot of every computation step
type Trip struct {
	ID        int64
	VesselID  int64
	Assembler AssemblerKind

	Period          shared.DateRange
	PeriodExtended  shared.DateRange
	LandingCoverage shared.DateRange
	StartPortID     *string
	EndPortID       *string
	StartEventID    *int64
	EndEventID      *int64

	// Precision slot
	PrecisePeriod *shared.DateRange
	// Distance slot
	Distance      *float64
	TrackCoverage *float64
	// PositionLayers slot, annotated in place by CargoWeight and FuelConsumption
	Track           []TripPosition
	PrunedPositions PruneCounts
	// FuelConsumption slot
	FuelLiters *float64

	Statuses StepStatuses
}

// FromNew builds an unprocessed trip from assembler output
func FromNew(id, vesselID int64, kind AssemblerKind, n NewTrip) Trip {
	return Trip{
		ID:              id,
		VesselID:        vesselID,
		Assembler:       kind,
		Period:          n.Period,
		PeriodExtended:  n.PeriodExtended,
		LandingCoverage: n.LandingCoverage,
		StartPortID:     n.StartPortID,
		EndPortID:       n.EndPortID,
		StartEventID:    n.StartEventID,
		EndEventID:      n.EndEventID,
		Statuses:        UnprocessedStatuses(),
	}
}

// Boundary returns the assembler-owned part of the trip
func (t *Trip) Boundary() NewTrip {
	return NewTrip{
		Period:          t.Period,
		PeriodExtended:  t.PeriodExtended,
		LandingCoverage: t.LandingCoverage,
		StartPortID:     t.StartPortID,
		EndPortID:       t.EndPortID,
		StartEventID:    t.StartEventID,
		EndEventID:      t.EndEventID,
	}
}

// EffectivePeriod returns the precise period when refined, the period otherwise
func (t *Trip) EffectivePeriod() shared.DateRange {
	if t.PrecisePeriod != nil {
		return *t.PrecisePeriod
	}
	return t.Period
}

// ClearSlots resets every step output, keeping the boundary
func (t *Trip) ClearSlots() {
	t.PrecisePeriod = nil
	t.Distance = nil
	t.TrackCoverage = nil
	t.Track = nil
	t.PrunedPositions = PruneCounts{}
	t.FuelLiters = nil
	t.Statuses = UnprocessedStatuses()
}

func (t *Trip) String() string {
	return fmt.Sprintf("Trip(%d, vessel=%d, %s, %s)", t.ID, t.VesselID, t.Assembler, t.Period)
}

// SortTrips orders trips by period start
func SortTrips(trips []Trip) {
	sort.SliceStable(trips, func(i, j int) bool {
		return trips[i].Period.Start.Before(trips[j].Period.Start)
	})
}

// CheckContiguous verifies that sorted trips do not overlap: each trip ends at or
// before the start of the next one
func CheckContiguous(trips []Trip) error {
	sorted := make([]Trip, len(trips))
	copy(sorted, trips)
	SortTrips(sorted)
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		if prev.Period.End.After(next.Period.Start) || prev.Period.Overlaps(next.Period) {
			return fmt.Errorf("trips %d and %d overlap: %s, %s", prev.ID, next.ID, prev.Period, next.Period)
		}
	}
	return nil
}

// TripSet is the unit of persistence for one vessel/assembler assembly
type TripSet struct {
	VesselID  int64
	Assembler AssemblerKind
	Strategy  TripsConflictStrategy
	// State is the assembler state the set was computed in. Persistence uses it
	// to clear the handled conflict or reset.
	State State
	Trips []Trip
}

// TripUpdate carries the step outputs of an existing trip after a resumed
// pipeline run
type TripUpdate struct {
	TripID          int64
	PrecisePeriod   *shared.DateRange
	Distance        *float64
	TrackCoverage   *float64
	Track           []TripPosition
	PrunedPositions PruneCounts
	FuelLiters      *float64
	Statuses        StepStatuses
}

// UpdateFromTrip extracts the step outputs of a processed trip
func UpdateFromTrip(t *Trip) TripUpdate {
	return TripUpdate{
		TripID:          t.ID,
		PrecisePeriod:   t.PrecisePeriod,
		Distance:        t.Distance,
		TrackCoverage:   t.TrackCoverage,
		Track:           t.Track,
		PrunedPositions: t.PrunedPositions,
		FuelLiters:      t.FuelLiters,
		Statuses:        t.Statuses,
	}
}

// CurrentTrip is the open trip of an ERS vessel: a departure with no arrival yet
type CurrentTrip struct {
	VesselID         int64
	DepartureEventID int64
	DepartureTime    time.Time
	DeparturePortID  *string
}
