package trip

import (
	"context"
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// VesselRepository supplies the read-only inputs shared by a whole pass
type VesselRepository interface {
	AllVessels(ctx context.Context) ([]*vessel.Vessel, error)
	Ports(ctx context.Context) ([]shared.Port, error)
	DockPoints(ctx context.Context) ([]shared.DockPoint, error)
}

// AssemblerInbound is what the conflict-aware assembler reads
type AssemblerInbound interface {
	TripCalculationTimer(ctx context.Context, vesselID int64, kind AssemblerKind) (*CalculationTimer, error)
	// TripPriorToTimestamp returns the latest trip starting strictly before ts, nil if none
	TripPriorToTimestamp(ctx context.Context, vesselID int64, ts time.Time, kind AssemblerKind) (*Trip, error)
	AllVesselEvents(ctx context.Context, vesselID int64, kind AssemblerKind) ([]vessel.Event, error)
	RelevantEvents(ctx context.Context, vesselID int64, period shared.DateRange, kind AssemblerKind) ([]vessel.Event, error)
}

// PipelineInbound is what the computation steps read
type PipelineInbound interface {
	TripPositions(ctx context.Context, v *vessel.Vessel, period shared.DateRange) ([]vessel.Position, error)
	TripHauls(ctx context.Context, vesselID int64, period shared.DateRange) ([]vessel.Haul, error)
	// LandingWeight is the total living weight landed inside the coverage
	LandingWeight(ctx context.Context, vesselID int64, coverage shared.DateRange) (float64, error)
	TripsWithUnprocessedStep(ctx context.Context, vesselID int64, step ComputationStep, limit int) ([]Trip, error)
}

// Outbound persists assembled and processed trips
type Outbound interface {
	ReserveTripID(ctx context.Context) (int64, error)
	AddTripSet(ctx context.Context, set TripSet) error
	NukeTrips(ctx context.Context, vesselID int64, kind AssemblerKind) error
	UpdateTrip(ctx context.Context, update TripUpdate) error
	SetCurrentTrip(ctx context.Context, vesselID int64) error
	RefreshDetailedTrips(ctx context.Context, vesselID int64) error
}

// Store is the full event store adapter used by the trip pipeline
type Store interface {
	VesselRepository
	AssemblerInbound
	PipelineInbound
	Outbound
}
