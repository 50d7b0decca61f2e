package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
)

type tripAssemblerStateContext struct {
	state    trip.State
	override *trip.TripsConflictStrategy
	strategy trip.TripsConflictStrategy
	statuses trip.StepStatuses
	trips    []trip.Trip
	parseErr error
}

func (sc *tripAssemblerStateContext) reset() {
	sc.state = trip.State{}
	sc.override = nil
	sc.strategy = trip.TripsConflictStrategy{}
	sc.statuses = trip.UnprocessedStatuses()
	sc.trips = nil
	sc.parseErr = nil
}

// InitializeTripAssemblerStateScenario registers assembler state step definitions
func InitializeTripAssemblerStateScenario(ctx *godog.ScenarioContext) {
	sc := &tripAssemblerStateContext{}

	ctx.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
		sc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a calculation timer at "([^"]*)" with conflict "([^"]*)" and queued reset "(true|false)"$`, sc.aCalculationTimer)
	ctx.Step(`^no calculation timer$`, sc.noCalculationTimer)
	ctx.Step(`^the assembler state "([^"]*)" at "([^"]*)"$`, sc.theAssemblerState)
	ctx.Step(`^the assembler overrides the strategy with "([^"]*)"$`, sc.theAssemblerOverrides)
	ctx.Step(`^the conflict strategy "([^"]*)"$`, sc.theConflictStrategy)
	ctx.Step(`^a trip whose computation steps all succeeded$`, sc.aTripWhoseStepsSucceeded)
	ctx.Step(`^committed trips "([^"]*)" and "([^"]*)"$`, sc.committedTrips)

	// When steps
	ctx.Step(`^the "([^"]*)" step of the trip is invalidated$`, sc.theStepIsInvalidated)
	ctx.Step(`^the (step|assembler) name "([^"]*)" is parsed$`, sc.theNameIsParsed)

	// Then steps
	ctx.Step(`^the assembler state should be "([^"]*)"$`, sc.theStateShouldBe)
	ctx.Step(`^the assembler state should be anchored at "([^"]*)"$`, sc.theStateShouldBeAnchoredAt)
	ctx.Step(`^the conflict strategy should be "([^"]*)"$`, sc.theStrategyShouldBe)
	ctx.Step(`^a committed trip ending at "([^"]*)" should be (removed|kept)$`, sc.aTripEndingAtShouldBe)
	ctx.Step(`^the "([^"]*)" step of the trip should be "([^"]*)"$`, sc.theStepShouldBe)
	ctx.Step(`^the first incomplete step of the trip should be "([^"]*)"$`, sc.theFirstIncompleteStepShouldBe)
	ctx.Step(`^the committed trips should not overlap$`, sc.theTripsShouldNotOverlap)
	ctx.Step(`^the committed trips should overlap$`, sc.theTripsShouldOverlap)
	ctx.Step(`^the name should be accepted$`, sc.theNameShouldBeAccepted)
	ctx.Step(`^the name should be rejected as an invalid "([^"]*)"$`, sc.theNameShouldBeRejected)
}

// parseOptionalTime reads "-" as no instant
func parseOptionalTime(s string) (*time.Time, error) {
	if s == "-" || s == "" {
		return nil, nil
	}
	t, err := time.Parse(rangeTimeLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseStrategy reads "ERROR", "REPLACE_ALL" or "REPLACE <instant>"
func parseStrategy(s string) (trip.TripsConflictStrategy, error) {
	switch {
	case s == string(trip.ConflictStrategyError):
		return trip.ErrorOnConflict(), nil
	case s == string(trip.ConflictStrategyReplaceAll):
		return trip.ReplaceAll(), nil
	case strings.HasPrefix(s, string(trip.ConflictStrategyReplace)+" "):
		at, err := time.Parse(rangeTimeLayout, strings.TrimPrefix(s, string(trip.ConflictStrategyReplace)+" "))
		if err != nil {
			return trip.TripsConflictStrategy{}, err
		}
		return trip.Replace(at), nil
	default:
		return trip.TripsConflictStrategy{}, fmt.Errorf("unknown conflict strategy %q", s)
	}
}

// ============================================================================
// Given steps
// ============================================================================

func (sc *tripAssemblerStateContext) aCalculationTimer(timer, conflict, reset string) error {
	ts, err := parseOptionalTime(timer)
	if err != nil {
		return err
	}
	c, err := parseOptionalTime(conflict)
	if err != nil {
		return err
	}
	sc.state = trip.DetermineState(&trip.CalculationTimer{
		VesselID:    1,
		Assembler:   trip.AssemblerErs,
		Timestamp:   ts,
		Conflict:    c,
		QueuedReset: reset == "true",
	})
	return nil
}

func (sc *tripAssemblerStateContext) noCalculationTimer() error {
	sc.state = trip.DetermineState(nil)
	return nil
}

func (sc *tripAssemblerStateContext) theAssemblerState(kind, anchor string) error {
	at, err := parseOptionalTime(anchor)
	if err != nil {
		return err
	}
	sc.state = trip.State{Kind: trip.StateKind(kind)}
	if at != nil {
		sc.state.Timestamp = *at
	}
	return nil
}

func (sc *tripAssemblerStateContext) theAssemblerOverrides(override string) error {
	if override == "-" {
		sc.override = nil
		return nil
	}
	s, err := parseStrategy(override)
	if err != nil {
		return err
	}
	sc.override = &s
	return nil
}

func (sc *tripAssemblerStateContext) theConflictStrategy(s string) error {
	strategy, err := parseStrategy(s)
	if err != nil {
		return err
	}
	sc.strategy = strategy
	return nil
}

func (sc *tripAssemblerStateContext) aTripWhoseStepsSucceeded() error {
	for _, step := range trip.ComputationSteps {
		sc.statuses.Set(step, trip.StatusSuccessful)
	}
	return nil
}

func (sc *tripAssemblerStateContext) committedTrips(first, second string) error {
	sc.trips = nil
	for i, notation := range []string{first, second} {
		period, err := parseDateRange(notation)
		if err != nil {
			return err
		}
		sc.trips = append(sc.trips, trip.FromNew(int64(i+1), 1, trip.AssemblerErs, trip.NewTrip{
			Period:         period,
			PeriodExtended: period,
		}))
	}
	return nil
}

// ============================================================================
// When steps
// ============================================================================

func (sc *tripAssemblerStateContext) theStepIsInvalidated(name string) error {
	step, err := trip.ParseComputationStep(name)
	if err != nil {
		return err
	}
	sc.statuses.InvalidateFrom(step)
	return nil
}

func (sc *tripAssemblerStateContext) theNameIsParsed(what, name string) error {
	if what == "step" {
		_, sc.parseErr = trip.ParseComputationStep(name)
	} else {
		_, sc.parseErr = trip.ParseAssemblerKind(name)
	}
	return nil
}

// ============================================================================
// Then steps
// ============================================================================

func (sc *tripAssemblerStateContext) theNameShouldBeAccepted() error {
	if sc.parseErr != nil {
		return fmt.Errorf("expected the name to parse, got %w", sc.parseErr)
	}
	return nil
}

func (sc *tripAssemblerStateContext) theNameShouldBeRejected(field string) error {
	var invalid *shared.ValidationError
	if !errors.As(sc.parseErr, &invalid) {
		return fmt.Errorf("expected a validation error, got %v", sc.parseErr)
	}
	if invalid.Field != field {
		return fmt.Errorf("expected invalid %q, got invalid %q", field, invalid.Field)
	}
	return nil
}

func (sc *tripAssemblerStateContext) theStateShouldBe(expected string) error {
	if string(sc.state.Kind) != expected {
		return fmt.Errorf("expected assembler state %s, got %s", expected, sc.state)
	}
	return nil
}

func (sc *tripAssemblerStateContext) theStateShouldBeAnchoredAt(anchor string) error {
	at, err := parseOptionalTime(anchor)
	if err != nil {
		return err
	}
	if at == nil {
		if !sc.state.Timestamp.IsZero() {
			return fmt.Errorf("expected no anchor, got %s", sc.state)
		}
		return nil
	}
	if !sc.state.Timestamp.Equal(*at) {
		return fmt.Errorf("expected state anchored at %s, got %s", anchor, sc.state)
	}
	return nil
}

func (sc *tripAssemblerStateContext) theStrategyShouldBe(expected string) error {
	want, err := parseStrategy(expected)
	if err != nil {
		return err
	}
	got := trip.ResolveConflictStrategy(sc.state, sc.override)
	if got.Kind != want.Kind || !got.At.Equal(want.At) {
		return fmt.Errorf("expected strategy %s, got %s", want, got)
	}
	return nil
}

func (sc *tripAssemblerStateContext) aTripEndingAtShouldBe(end, verdict string) error {
	t, err := time.Parse(rangeTimeLayout, end)
	if err != nil {
		return err
	}
	removed := sc.strategy.Supersedes(t)
	if removed != (verdict == "removed") {
		return fmt.Errorf("expected %s to leave a trip ending at %s %s", sc.strategy, end, verdict)
	}
	return nil
}

func (sc *tripAssemblerStateContext) theStepShouldBe(name, expected string) error {
	step, err := trip.ParseComputationStep(name)
	if err != nil {
		return err
	}
	if got := sc.statuses.Get(step); string(got) != expected {
		return fmt.Errorf("expected step %s to be %s, got %s", name, expected, got)
	}
	return nil
}

func (sc *tripAssemblerStateContext) theFirstIncompleteStepShouldBe(expected string) error {
	step, ok := sc.statuses.FirstIncomplete()
	if !ok {
		return fmt.Errorf("expected %s to be incomplete, every step has run", expected)
	}
	if step.String() != expected {
		return fmt.Errorf("expected first incomplete step %s, got %s", expected, step)
	}
	return nil
}

func (sc *tripAssemblerStateContext) theTripsShouldNotOverlap() error {
	return trip.CheckContiguous(sc.trips)
}

func (sc *tripAssemblerStateContext) theTripsShouldOverlap() error {
	if err := trip.CheckContiguous(sc.trips); err == nil {
		return fmt.Errorf("expected the trips to overlap")
	}
	return nil
}
