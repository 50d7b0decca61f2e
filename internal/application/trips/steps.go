package trips

import (
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

const (
	// DefaultPortProximityMeters is how close a position must be to a port or
	// dock point to count as being in port
	DefaultPortProximityMeters = 1000.0
	// trackCoverageMaxGap is the largest gap between positions still counted as covered
	trackCoverageMaxGap = time.Hour
)

// precision refines the trip period to the positions where the vessel actually
// left its start port and reached its end port
func precision(u *TripProcessingUnit, ports *shared.PortDirectory, threshold float64) trip.ProcessingStatus {
	u.Trip.PrecisePeriod = nil

	period := u.Trip.Period
	positions := inside(u.Positions, period)
	startTargets := ports.Targets(deref(u.Trip.StartPortID))
	endTargets := ports.Targets(deref(u.Trip.EndPortID))
	if len(positions) < 2 || (len(startTargets) == 0 && len(endTargets) == 0) {
		return trip.StatusAttempted
	}

	near := func(p vessel.Position, targets []shared.Point) bool {
		d, ok := shared.NearestDistance(p.Point(), targets)
		return ok && d <= threshold
	}

	start, end := period.Start, period.End
	startBound, endBound := period.StartBound, period.EndBound
	refined := false

	if len(startTargets) > 0 {
		last := -1
		for i, p := range positions {
			if !near(p, startTargets) {
				break
			}
			last = i
		}
		if last >= 0 {
			start = positions[last].Timestamp
			startBound = shared.BoundInclusive
			refined = true
		}
	}

	if len(endTargets) > 0 {
		first := -1
		for i := len(positions) - 1; i >= 0; i-- {
			if !near(positions[i], endTargets) {
				break
			}
			first = i
		}
		if first >= 0 {
			end = positions[first].Timestamp
			endBound = shared.BoundInclusive
			refined = true
		}
	}

	if !refined || !end.After(start) {
		return trip.StatusAttempted
	}

	// an unrefined side keeps the bound of the assembled period
	precise := shared.DateRange{Start: start, End: end, StartBound: startBound, EndBound: endBound}
	u.Trip.PrecisePeriod = &precise
	return trip.StatusSuccessful
}

// distance sums the great-circle track length inside the effective period and
// the share of the period covered by positions
func distance(u *TripProcessingUnit) trip.ProcessingStatus {
	u.Trip.Distance = nil
	u.Trip.TrackCoverage = nil

	period := u.Trip.EffectivePeriod()
	positions := inside(u.Positions, period)
	if len(positions) < 2 {
		return trip.StatusAttempted
	}

	meters := 0.0
	var covered time.Duration
	for i := 1; i < len(positions); i++ {
		if d, err := shared.DistanceMeters(positions[i-1].Point(), positions[i].Point()); err == nil {
			meters += d
		}
		if gap := positions[i].Timestamp.Sub(positions[i-1].Timestamp); gap <= trackCoverageMaxGap {
			covered += gap
		}
	}

	coverage := 0.0
	if total := period.Duration(); total > 0 {
		coverage = covered.Seconds() / total.Seconds()
		if coverage > 1 {
			coverage = 1
		}
	}

	u.Trip.Distance = &meters
	u.Trip.TrackCoverage = &coverage
	return trip.StatusSuccessful
}

// positionLayers prunes duplicate timestamps, then unrealistic speeds
func positionLayers(u *TripProcessingUnit, estimator *fuel.Estimator) trip.ProcessingStatus {
	u.Trip.Track = nil
	u.Trip.PrunedPositions = trip.PruneCounts{}

	positions := inside(u.Positions, u.Trip.EffectivePeriod())
	if len(positions) == 0 {
		return trip.StatusAttempted
	}

	deduped := make([]vessel.Position, 0, len(positions))
	for i, p := range positions {
		if i > 0 && p.Timestamp.Equal(positions[i-1].Timestamp) {
			u.Trip.PrunedPositions.DuplicateTimestamps++
			continue
		}
		deduped = append(deduped, p)
	}

	kept := estimator.Prune(fuel.PointsFromPositions(deduped))
	track := make([]trip.TripPosition, 0, len(deduped))
	for i, p := range deduped {
		if !kept[i] {
			u.Trip.PrunedPositions.UnrealisticSpeed++
			continue
		}
		track = append(track, trip.TripPosition{Position: p})
	}

	u.Trip.Track = track
	return trip.StatusSuccessful
}

// cargoWeight distributes caught weight over the track. Hauls give the weight
// on board once each haul has ended; without hauls the landed weight grows
// linearly over the track.
func cargoWeight(u *TripProcessingUnit) trip.ProcessingStatus {
	if len(u.Trip.Track) == 0 {
		return trip.StatusAttempted
	}
	track := make([]trip.TripPosition, len(u.Trip.Track))
	copy(track, u.Trip.Track)
	defer func() { u.Trip.Track = track }()

	for i := range track {
		track[i].CumulativeCargoWeight = 0
		track[i].InsideHaul = false
	}

	if len(u.Hauls) > 0 {
		for i := range track {
			ts := track[i].Timestamp
			for _, h := range u.Hauls {
				if h.Period.Contains(ts) {
					track[i].InsideHaul = true
				}
				if !h.Period.Unbounded() && !h.Period.End.After(ts) {
					track[i].CumulativeCargoWeight += h.LivingWeight
				}
			}
		}
		return trip.StatusSuccessful
	}

	if u.LandingWeight <= 0 {
		return trip.StatusAttempted
	}

	first, last := track[0].Timestamp, track[len(track)-1].Timestamp
	span := last.Sub(first).Seconds()
	for i := range track {
		if span <= 0 {
			track[i].CumulativeCargoWeight = u.LandingWeight
			continue
		}
		track[i].CumulativeCargoWeight = u.LandingWeight * track[i].Timestamp.Sub(first).Seconds() / span
	}
	return trip.StatusSuccessful
}

// fuelConsumption stamps the cumulative fuel curve on the annotated track
func fuelConsumption(u *TripProcessingUnit, estimator *fuel.Estimator) trip.ProcessingStatus {
	u.Trip.FuelLiters = nil

	track := make([]trip.TripPosition, len(u.Trip.Track))
	copy(track, u.Trip.Track)
	for i := range track {
		track[i].CumulativeFuelLiters = 0
	}
	u.Trip.Track = track

	if !u.Vessel.HasEngines() || len(track) < 2 {
		return trip.StatusAttempted
	}

	res := estimator.Estimate(fuel.PointsFromTrack(track), fuel.ParamsFromVessel(u.Vessel))
	for i := range track {
		track[i].CumulativeFuelLiters = res.Cumulative[i]
	}
	total := res.Total
	u.Trip.FuelLiters = &total
	return trip.StatusSuccessful
}

// inside returns the positions contained in r, keeping order
func inside(positions []vessel.Position, r shared.DateRange) []vessel.Position {
	out := make([]vessel.Position, 0, len(positions))
	for _, p := range positions {
		if r.Contains(p.Timestamp) {
			out = append(out, p)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
