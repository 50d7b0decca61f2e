package trip

import (
	"fmt"
	"time"
)

// ConflictStrategyKind enumerates how a new trip set relates to committed trips
type ConflictStrategyKind string

const (
	// ConflictStrategyReplace deletes committed trips ending at or after At
	ConflictStrategyReplace ConflictStrategyKind = "REPLACE"
	// ConflictStrategyReplaceAll deletes every committed trip of the vessel/assembler
	ConflictStrategyReplaceAll ConflictStrategyKind = "REPLACE_ALL"
	// ConflictStrategyError inserts; any overlap is a defect
	ConflictStrategyError ConflictStrategyKind = "ERROR"
)

// TripsConflictStrategy is chosen by the assembler, never configured
type TripsConflictStrategy struct {
	Kind ConflictStrategyKind
	At   time.Time
}

// Replace returns Replace{at}
func Replace(at time.Time) TripsConflictStrategy {
	return TripsConflictStrategy{Kind: ConflictStrategyReplace, At: at.UTC()}
}

// ReplaceAll returns ReplaceAll
func ReplaceAll() TripsConflictStrategy {
	return TripsConflictStrategy{Kind: ConflictStrategyReplaceAll}
}

// ErrorOnConflict returns Error
func ErrorOnConflict() TripsConflictStrategy {
	return TripsConflictStrategy{Kind: ConflictStrategyError}
}

// Deletes reports whether committed trips may be removed by this strategy
func (s TripsConflictStrategy) Deletes() bool {
	return s.Kind == ConflictStrategyReplace || s.Kind == ConflictStrategyReplaceAll
}

// Supersedes reports whether a committed trip ending at end is removed
func (s TripsConflictStrategy) Supersedes(end time.Time) bool {
	switch s.Kind {
	case ConflictStrategyReplaceAll:
		return true
	case ConflictStrategyReplace:
		return !end.Before(s.At)
	default:
		return false
	}
}

func (s TripsConflictStrategy) String() string {
	if s.Kind == ConflictStrategyReplace {
		return fmt.Sprintf("Replace{at: %s}", s.At.Format(time.RFC3339))
	}
	return string(s.Kind)
}

// ResolveConflictStrategy is the decision table between the assembler state and
// an optional strategy supplied by the assembler kind:
//
//	QueuedReset                         -> ReplaceAll, override ignored
//	Conflict(c)                         -> override, else Replace{c}
//	NoPriorState, TripCalculationTimer  -> override, else Error
func ResolveConflictStrategy(state State, override *TripsConflictStrategy) TripsConflictStrategy {
	switch state.Kind {
	case StateQueuedReset:
		return ReplaceAll()
	case StateConflict:
		if override != nil {
			return *override
		}
		return Replace(state.Timestamp)
	default:
		if override != nil {
			return *override
		}
		return ErrorOnConflict()
	}
}
