package trips

import (
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// FirstLandingTripDuration is how far back the very first landing trip starts
const FirstLandingTripDuration = 24 * time.Hour

// LandingsAssembler builds (previous landing, landing] trips from landing receipts
type LandingsAssembler struct{}

func (a *LandingsAssembler) Kind() trip.AssemblerKind {
	return trip.AssemblerLandings
}

// Assemble closes one trip per distinct landing timestamp after the boundary
func (a *LandingsAssembler) Assemble(seed Seed, events []vessel.Event) (*Assembled, error) {
	events = eventsOfType(events, vessel.EventTypeLanding)

	var boundary *time.Time
	var previousEventID *int64
	var previousPortID *string
	switch {
	case seed.Fixed != nil:
		b := seed.Fixed.Period.End
		boundary = &b
		previousEventID = seed.Fixed.EndEventID
		previousPortID = seed.Fixed.EndPortID
	case seed.Reassembling != nil && seed.Reassembling.Period.StartBound == shared.BoundExclusive:
		b := seed.Reassembling.Period.Start
		boundary = &b
		previousEventID = seed.Reassembling.StartEventID
		previousPortID = seed.Reassembling.StartPortID
	}

	out := &Assembled{}
	for i := 0; i < len(events); {
		// landings sharing a timestamp are one boundary; the last id represents it
		j := i
		for j+1 < len(events) && events[j+1].Timestamp.Equal(events[i].Timestamp) {
			j++
		}
		ts := events[i].Timestamp
		last := events[j]
		i = j + 1

		if boundary != nil && !ts.After(*boundary) {
			continue
		}

		var period shared.DateRange
		if boundary == nil {
			period = shared.Closed(ts.Add(-FirstLandingTripDuration), ts)
		} else {
			period = shared.OpenClosed(*boundary, ts)
		}

		out.Trips = append(out.Trips, trip.NewTrip{
			Period:          period,
			PeriodExtended:  period,
			LandingCoverage: period,
			StartPortID:     previousPortID,
			EndPortID:       last.PortID,
			StartEventID:    previousEventID,
			EndEventID:      int64Ptr(last.ID),
		})

		b := ts
		boundary = &b
		previousEventID = int64Ptr(last.ID)
		previousPortID = last.PortID
	}
	return out, nil
}
