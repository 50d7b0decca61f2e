package trip

import (
	"fmt"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// AssemblerKind is the boundary-detection strategy used to turn events into trips
type AssemblerKind int

const (
	// AssemblerLandings builds trips between consecutive landing receipts
	AssemblerLandings AssemblerKind = 1
	// AssemblerErs builds trips from ERS departure and arrival reports
	AssemblerErs AssemblerKind = 2
)

// AssemblerKinds lists every assembler kind in a stable order
var AssemblerKinds = []AssemblerKind{AssemblerLandings, AssemblerErs}

func (k AssemblerKind) String() string {
	switch k {
	case AssemblerLandings:
		return "landings"
	case AssemblerErs:
		return "ers"
	default:
		return fmt.Sprintf("AssemblerKind(%d)", int(k))
	}
}

// EventTypes returns the vessel event types the assembler consumes
func (k AssemblerKind) EventTypes() []vessel.EventType {
	switch k {
	case AssemblerLandings:
		return []vessel.EventType{vessel.EventTypeLanding}
	case AssemblerErs:
		return []vessel.EventType{vessel.EventTypeDeparture, vessel.EventTypeArrival}
	default:
		return nil
	}
}

// HasCurrentTrip reports whether the kind has a notion of an open, current trip
func (k AssemblerKind) HasCurrentTrip() bool {
	return k == AssemblerErs
}

// ParseAssemblerKind parses "landings" or "ers"
func ParseAssemblerKind(s string) (AssemblerKind, error) {
	switch s {
	case "landings":
		return AssemblerLandings, nil
	case "ers":
		return AssemblerErs, nil
	default:
		return 0, shared.NewValidationError("assembler", fmt.Sprintf("unknown assembler kind %q", s))
	}
}

// PreferredAssembler picks the assembler kind for a vessel
func PreferredAssembler(v *vessel.Vessel) AssemblerKind {
	if v.ReportsErs {
		return AssemblerErs
	}
	return AssemblerLandings
}
