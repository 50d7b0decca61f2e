package fuel

import (
	"context"
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// DayEstimate is the fuel burned by one vessel on one UTC calendar day, for
// one version of its engine parameters
type DayEstimate struct {
	VesselID      int64
	Date          time.Time
	EngineVersion int
	Liters        float64
	AISPositions  int
	VMSPositions  int
}

// Store is what the day-bucketed fuel job reads and writes
type Store interface {
	// FuelEstimationPositions returns the vessel's positions in the range, ordered by timestamp
	FuelEstimationPositions(ctx context.Context, v *vessel.Vessel, r shared.DateRange) ([]vessel.Position, error)
	VesselMaxCargoWeight(ctx context.Context, vesselID int64) (*float64, error)
	// DatesToEstimate returns the days up to and including end that lack an
	// estimate for the given engine version
	DatesToEstimate(ctx context.Context, vesselID int64, engineVersion int, end time.Time) ([]time.Time, error)
	TripsInRange(ctx context.Context, vesselID int64, r shared.DateRange) ([]trip.Trip, error)
	AddFuelEstimates(ctx context.Context, estimates []DayEstimate) error
}

// PointsFromPositions converts raw positions into estimator points
func PointsFromPositions(positions []vessel.Position) []Point {
	points := make([]Point, len(positions))
	for i, p := range positions {
		points[i] = Point{
			Timestamp:       p.Timestamp,
			Latitude:        p.Latitude,
			Longitude:       p.Longitude,
			SpeedOverGround: p.SpeedOverGround,
			ActiveGear:      p.ActiveGear,
		}
	}
	return points
}

// PointsFromTrack converts an annotated trip track into estimator points
func PointsFromTrack(track []trip.TripPosition) []Point {
	points := make([]Point, len(track))
	for i, p := range track {
		points[i] = Point{
			Timestamp:             p.Timestamp,
			Latitude:              p.Latitude,
			Longitude:             p.Longitude,
			SpeedOverGround:       p.SpeedOverGround,
			CumulativeCargoWeight: p.CumulativeCargoWeight,
			InsideHaul:            p.InsideHaul,
			ActiveGear:            p.ActiveGear,
		}
	}
	return points
}

// CumulativeAt returns the cumulative fuel of a trip track at t, interpolating
// linearly between the surrounding positions and clamping outside the track
func CumulativeAt(track []trip.TripPosition, t time.Time) float64 {
	if len(track) == 0 {
		return 0
	}
	if !t.After(track[0].Timestamp) {
		return track[0].CumulativeFuelLiters
	}
	for i := 1; i < len(track); i++ {
		cur := track[i]
		if t.After(cur.Timestamp) {
			continue
		}
		prev := track[i-1]
		span := cur.Timestamp.Sub(prev.Timestamp).Seconds()
		if span <= 0 {
			return cur.CumulativeFuelLiters
		}
		frac := t.Sub(prev.Timestamp).Seconds() / span
		return prev.CumulativeFuelLiters + frac*(cur.CumulativeFuelLiters-prev.CumulativeFuelLiters)
	}
	return track[len(track)-1].CumulativeFuelLiters
}
