package fuel

import (
	"context"
	"fmt"
	"time"

	domainFuel "github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// estimateDay computes the fuel burned on one UTC day. Inside a trip with a
// fuel curve the trip's cumulative delta is reused; outside trips the
// estimator runs on each contiguous chunk of positions.
func (h *RunFuelEstimationHandler) estimateDay(ctx context.Context, v *vessel.Vessel, params domainFuel.Params, date time.Time) (domainFuel.DayEstimate, error) {
	day := shared.ClosedOpen(date, date.Add(24*time.Hour))
	estimate := domainFuel.DayEstimate{
		VesselID:      v.ID,
		Date:          date,
		EngineVersion: v.EngineVersion,
	}

	positions, err := h.store.FuelEstimationPositions(ctx, v, day)
	if err != nil {
		return estimate, fmt.Errorf("failed to fetch positions for %s: %w", date.Format(time.DateOnly), err)
	}
	trips, err := h.store.TripsInRange(ctx, v.ID, day)
	if err != nil {
		return estimate, fmt.Errorf("failed to fetch trips for %s: %w", date.Format(time.DateOnly), err)
	}

	for _, p := range positions {
		switch p.Source {
		case vessel.PositionSourceAIS:
			estimate.AISPositions++
		case vessel.PositionSourceVMS:
			estimate.VMSPositions++
		}
	}

	estimate.Liters = splitDay(h.estimator, params, day, positions, trips)
	return estimate, nil
}

// splitDay sums trip deltas and fresh estimates of the positions outside trips
func splitDay(estimator *domainFuel.Estimator, params domainFuel.Params, day shared.DateRange, positions []vessel.Position, trips []trip.Trip) float64 {
	var estimated []trip.Trip
	for _, t := range trips {
		if t.FuelLiters != nil && len(t.Track) > 0 {
			estimated = append(estimated, t)
		}
	}

	liters := 0.0
	for _, t := range estimated {
		lo, hi := t.Period.Start, t.Period.End
		if lo.Before(day.Start) {
			lo = day.Start
		}
		if hi.After(day.End) {
			hi = day.End
		}
		if !hi.After(lo) {
			continue
		}
		liters += domainFuel.CumulativeAt(t.Track, hi) - domainFuel.CumulativeAt(t.Track, lo)
	}

	var chunk []vessel.Position
	flush := func() {
		if len(chunk) >= 2 {
			liters += estimator.Estimate(domainFuel.PointsFromPositions(chunk), params).Total
		}
		chunk = nil
	}
	for _, p := range positions {
		if insideAny(estimated, p.Timestamp) {
			flush()
			continue
		}
		chunk = append(chunk, p)
	}
	flush()

	return liters
}

func insideAny(trips []trip.Trip, ts time.Time) bool {
	for _, t := range trips {
		if t.Period.Contains(ts) {
			return true
		}
	}
	return false
}
