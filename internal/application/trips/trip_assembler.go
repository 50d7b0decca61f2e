package trips

import (
	"context"
	"fmt"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// AssemblyResult is what one vessel's assembly produced in this pass
type AssemblyResult struct {
	Kind     trip.AssemblerKind
	State    trip.State
	Strategy trip.TripsConflictStrategy
	Trips    []trip.NewTrip
}

// ConflictAwareAssembler decides which window of events to (re)assemble from
// the calculation timer and hands it to the boundary detection of the kind
type ConflictAwareAssembler struct {
	store trip.AssemblerInbound
}

func NewConflictAwareAssembler(store trip.AssemblerInbound) *ConflictAwareAssembler {
	return &ConflictAwareAssembler{store: store}
}

// Assemble computes the new trips of a vessel for one assembler kind
func (a *ConflictAwareAssembler) Assemble(ctx context.Context, v *vessel.Vessel, kind trip.AssemblerKind) (*AssemblyResult, error) {
	assembler, err := NewAssembler(kind)
	if err != nil {
		return nil, err
	}

	timer, err := a.store.TripCalculationTimer(ctx, v.ID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trip calculation timer: %w", err)
	}
	state := trip.DetermineState(timer)

	seed, events, err := a.window(ctx, v.ID, kind, state)
	if err != nil {
		return nil, err
	}

	assembled, err := assembler.Assemble(seed, events)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble %s trips: %w", kind, err)
	}

	return &AssemblyResult{
		Kind:     kind,
		State:    state,
		Strategy: trip.ResolveConflictStrategy(state, assembled.Override),
		Trips:    assembled.Trips,
	}, nil
}

// window returns the seed and the events to feed to boundary detection
func (a *ConflictAwareAssembler) window(ctx context.Context, vesselID int64, kind trip.AssemblerKind, state trip.State) (Seed, []vessel.Event, error) {
	if state.FetchesAllEvents() {
		events, err := a.allEvents(ctx, vesselID, kind)
		return Seed{}, events, err
	}

	prior, err := a.store.TripPriorToTimestamp(ctx, vesselID, state.Timestamp, kind)
	if err != nil {
		return Seed{}, nil, fmt.Errorf("failed to fetch trip prior to %s: %w", state.Timestamp, err)
	}
	if prior == nil {
		// the conflict predates every committed trip
		events, err := a.allEvents(ctx, vesselID, kind)
		return Seed{}, events, err
	}

	if state.Kind == trip.StateConflict && !prior.Period.End.Before(state.Timestamp) {
		events, err := a.relevantEvents(ctx, vesselID, shared.From(prior.Period.Start), kind)
		return Seed{Reassembling: prior}, events, err
	}

	events, err := a.relevantEvents(ctx, vesselID, shared.From(prior.Period.End), kind)
	return Seed{Fixed: prior}, events, err
}

func (a *ConflictAwareAssembler) allEvents(ctx context.Context, vesselID int64, kind trip.AssemblerKind) ([]vessel.Event, error) {
	events, err := a.store.AllVesselEvents(ctx, vesselID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vessel events: %w", err)
	}
	return events, nil
}

func (a *ConflictAwareAssembler) relevantEvents(ctx context.Context, vesselID int64, period shared.DateRange, kind trip.AssemblerKind) ([]vessel.Event, error) {
	events, err := a.store.RelevantEvents(ctx, vesselID, period, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events in %s: %w", period, err)
	}
	return events, nil
}
