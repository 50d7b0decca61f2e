package trip

import (
	"fmt"
	"time"
)

// CalculationTimer is the watermark of trip computation for one vessel/assembler
type CalculationTimer struct {
	VesselID  int64
	Assembler AssemblerKind
	// Timestamp is the end of the latest committed trip, nil when none exist
	Timestamp *time.Time
	// Conflict is the earliest instant at which committed trips were invalidated
	Conflict *time.Time
	// QueuedReset forces a full recomputation
	QueuedReset bool
}

// StateKind enumerates the mutually exclusive assembler states
type StateKind string

const (
	StateNoPriorState         StateKind = "NO_PRIOR_STATE"
	StateTripCalculationTimer StateKind = "TRIP_CALCULATION_TIMER"
	StateConflict             StateKind = "CONFLICT"
	StateQueuedReset          StateKind = "QUEUED_RESET"
)

// State is what the assembler must do for one vessel in this pass
type State struct {
	Kind StateKind
	// Timestamp is the timer value for StateTripCalculationTimer and the
	// conflict instant for StateConflict
	Timestamp time.Time
}

// DetermineState computes the state from the timer.
// Priority: queued reset, conflict, timer, no prior state.
func DetermineState(timer *CalculationTimer) State {
	switch {
	case timer == nil:
		return State{Kind: StateNoPriorState}
	case timer.QueuedReset:
		return State{Kind: StateQueuedReset}
	case timer.Conflict != nil:
		return State{Kind: StateConflict, Timestamp: *timer.Conflict}
	case timer.Timestamp != nil:
		return State{Kind: StateTripCalculationTimer, Timestamp: *timer.Timestamp}
	default:
		return State{Kind: StateNoPriorState}
	}
}

// FetchesAllEvents reports whether the state ignores previous trips entirely
func (s State) FetchesAllEvents() bool {
	return s.Kind == StateNoPriorState || s.Kind == StateQueuedReset
}

func (s State) String() string {
	switch s.Kind {
	case StateConflict, StateTripCalculationTimer:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Timestamp.Format(time.RFC3339))
	default:
		return string(s.Kind)
	}
}
