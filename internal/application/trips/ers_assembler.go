package trips

import (
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// ErsAssembler builds [departure, arrival) trips from ERS messages
type ErsAssembler struct{}

func (a *ErsAssembler) Kind() trip.AssemblerKind {
	return trip.AssemblerErs
}

type ersPair struct {
	departure vessel.Event
	arrival   vessel.Event
}

// Assemble pairs each departure with the next arrival. A departure while a trip
// is open and an arrival without an open departure are ignored. A trailing
// open departure is the vessel's current trip and is not emitted.
func (a *ErsAssembler) Assemble(seed Seed, events []vessel.Event) (*Assembled, error) {
	events = eventsOfType(events, vessel.EventTypeDeparture, vessel.EventTypeArrival)
	vessel.SortPortCalls(events)

	var pairs []ersPair
	var open *vessel.Event
	for i := range events {
		ev := events[i]
		switch ev.Type {
		case vessel.EventTypeDeparture:
			if open == nil {
				open = &ev
			}
		case vessel.EventTypeArrival:
			if open == nil {
				continue
			}
			if ev.Timestamp.After(open.Timestamp) {
				pairs = append(pairs, ersPair{departure: *open, arrival: ev})
			}
			open = nil
		}
	}

	// nextStart is the departure that bounds the landing coverage of a trip
	nextStart := func(i int) *time.Time {
		if i < len(pairs) {
			ts := pairs[i].departure.Timestamp
			return &ts
		}
		if open != nil {
			ts := open.Timestamp
			return &ts
		}
		return nil
	}

	out := &Assembled{}

	var previousEnd *time.Time
	switch {
	case seed.Fixed != nil:
		end := seed.Fixed.Period.End
		previousEnd = &end
		expected := ersCoverage(seed.Fixed.Period.Start, nextStart(0))
		if !seed.Fixed.LandingCoverage.Equal(expected) {
			corrected := seed.Fixed.Boundary()
			corrected.LandingCoverage = expected
			out.Trips = append(out.Trips, corrected)
			override := trip.Replace(seed.Fixed.Period.End)
			out.Override = &override
		}
	case seed.Reassembling != nil:
		start := seed.Reassembling.PeriodExtended.Start
		previousEnd = &start
	}

	for i, p := range pairs {
		start, end := p.departure.Timestamp, p.arrival.Timestamp
		extendedStart := start
		if previousEnd != nil && previousEnd.Before(start) {
			extendedStart = *previousEnd
		}
		out.Trips = append(out.Trips, trip.NewTrip{
			Period:          shared.ClosedOpen(start, end),
			PeriodExtended:  shared.ClosedOpen(extendedStart, end),
			LandingCoverage: ersCoverage(start, nextStart(i+1)),
			StartPortID:     p.departure.PortID,
			EndPortID:       p.arrival.PortID,
			StartEventID:    int64Ptr(p.departure.ID),
			EndEventID:      int64Ptr(p.arrival.ID),
		})
		e := end
		previousEnd = &e
	}
	return out, nil
}

func ersCoverage(start time.Time, next *time.Time) shared.DateRange {
	if next == nil {
		return shared.From(start)
	}
	return shared.ClosedOpen(start, *next)
}
