package trips

import (
	"fmt"

	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// Seed is the committed context an assembler continues from. At most one of
// Fixed and Reassembling is set; neither is set when all events are replayed.
type Seed struct {
	// Fixed is the latest committed trip untouched by the new events. It is not
	// re-emitted unless its landing coverage has to change.
	Fixed *trip.Trip
	// Reassembling is a committed trip invalidated by a conflict. Its own events
	// are part of the input and it is rebuilt from scratch.
	Reassembling *trip.Trip
}

// Assembled is the output of boundary detection
type Assembled struct {
	Trips []trip.NewTrip
	// Override is the conflict strategy the assembler kind requires, if any
	Override *trip.TripsConflictStrategy
}

// Assembler turns ordered events into trip boundaries for one assembler kind
type Assembler interface {
	Kind() trip.AssemblerKind
	Assemble(seed Seed, events []vessel.Event) (*Assembled, error)
}

// NewAssembler returns the boundary detection of a kind
func NewAssembler(kind trip.AssemblerKind) (Assembler, error) {
	switch kind {
	case trip.AssemblerErs:
		return &ErsAssembler{}, nil
	case trip.AssemblerLandings:
		return &LandingsAssembler{}, nil
	default:
		return nil, fmt.Errorf("unsupported assembler kind %s", kind)
	}
}

func eventsOfType(events []vessel.Event, types ...vessel.EventType) []vessel.Event {
	out := make([]vessel.Event, 0, len(events))
	for _, e := range events {
		for _, t := range types {
			if e.Type == t {
				out = append(out, e)
				break
			}
		}
	}
	vessel.SortEvents(out)
	return out
}

func int64Ptr(v int64) *int64 {
	return &v
}
