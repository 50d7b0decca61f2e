package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	appFuel "github.com/andrescamacho/fishtrack-go/internal/application/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/application/logging"
	"github.com/andrescamacho/fishtrack-go/internal/application/mediator"
	"github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
	"github.com/andrescamacho/fishtrack-go/test/helpers"
)

// fuelEstimationContext holds state for day-bucketed fuel scenarios
type fuelEstimationContext struct {
	store    *helpers.MemoryStore
	logger   *helpers.CapturingLogger
	clock    *shared.MockClock
	mediator mediator.Mediator
	vessels  map[int64]*vessel.Vessel
	trips    map[int64]trip.Trip

	response *appFuel.RunFuelEstimationResponse
	err      error
}

func (fc *fuelEstimationContext) reset() {
	fc.store = helpers.NewMemoryStore()
	fc.logger = helpers.NewCapturingLogger()
	fc.clock = shared.NewMockClock(helpers.MustParseTime("2024-06-01 00:00"))
	fc.vessels = make(map[int64]*vessel.Vessel)
	fc.trips = make(map[int64]trip.Trip)
	fc.response = nil
	fc.err = nil

	fc.mediator = mediator.NewMediator()
	handler := appFuel.NewRunFuelEstimationHandler(fc.store, fc.store, fc.store, fuel.NewEstimator(), fc.clock, appFuel.Config{
		Workers:     2,
		RunInterval: 5 * time.Hour,
	})
	_ = mediator.RegisterHandler[*appFuel.RunFuelEstimationCommand](fc.mediator, handler)
}

// InitializeFuelEstimationScenario registers fuel estimation step definitions
func InitializeFuelEstimationScenario(ctx *godog.ScenarioContext) {
	fc := &fuelEstimationContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		fc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a "(maru|holtrop)" fuel vessel (\d+)$`, fc.aFuelVessel)
	ctx.Step(`^a fuel vessel (\d+) without engines$`, fc.aFuelVesselWithoutEngines)
	ctx.Step(`^fuel vessel (\d+) sailed (\d+) hours at (\d+) knots from "([^"]*)"$`, fc.vesselSailed)
	ctx.Step(`^fuel vessel (\d+) trawled on a trip from "([^"]*)" to "([^"]*)"$`, fc.vesselTrawledOnTrip)
	ctx.Step(`^the engine parameters of fuel vessel (\d+) change$`, fc.engineParametersChange)
	ctx.Step(`^(\d+) hours pass$`, fc.hoursPass)

	// When steps
	ctx.Step(`^fuel estimation runs$`, fc.fuelEstimationRuns)
	ctx.Step(`^fuel estimation is forced$`, fc.fuelEstimationIsForced)

	// Then steps
	ctx.Step(`^the fuel run should be skipped$`, fc.runShouldBeSkipped)
	ctx.Step(`^the fuel run should write (\d+) estimates?$`, fc.runShouldWriteEstimates)
	ctx.Step(`^fuel vessel (\d+) should have (\d+) day estimates?$`, fc.vesselShouldHaveEstimates)
	ctx.Step(`^fuel vessel (\d+) should have (\d+) day estimates? for engine version (\d+)$`, fc.vesselShouldHaveVersionEstimates)
	ctx.Step(`^fuel vessel (\d+) should have burned fuel on "([^"]*)"$`, fc.vesselShouldHaveBurnedFuel)
	ctx.Step(`^fuel vessel (\d+) should have burned no fuel on "([^"]*)"$`, fc.vesselShouldHaveBurnedNoFuel)
	ctx.Step(`^the estimate of fuel vessel (\d+) on "([^"]*)" should follow its trip curve from "([^"]*)" to "([^"]*)"$`, fc.estimateShouldFollowTripCurve)
	ctx.Step(`^the day estimates of fuel vessel (\d+) should add up to its trip fuel$`, fc.dayEstimatesShouldAddUpToTrip)
	ctx.Step(`^the estimate of fuel vessel (\d+) on "([^"]*)" should count (\d+) AIS positions?$`, fc.estimateShouldCountAIS)
}

// ============================================================================
// Given steps
// ============================================================================

func (fc *fuelEstimationContext) aFuelVessel(model string, id int64) error {
	var v *vessel.Vessel
	switch vessel.FuelModel(model) {
	case vessel.FuelModelHoltrop:
		v = helpers.CreateTestHoltropVessel(id, true)
	default:
		v = helpers.CreateTestMaruVessel(id)
	}
	fc.vessels[id] = v
	fc.store.AddVessel(v)
	return nil
}

func (fc *fuelEstimationContext) aFuelVesselWithoutEngines(id int64) error {
	v := helpers.CreateTestMaruVessel(id)
	v.Engines = nil
	fc.vessels[id] = v
	fc.store.AddVessel(v)
	return nil
}

func (fc *fuelEstimationContext) vesselSailed(id int64, hours, knots int, start string) error {
	v, ok := fc.vessels[id]
	if !ok {
		return fmt.Errorf("vessel %d not registered", id)
	}
	track := helpers.Track(helpers.MustParseTime(start), hours+1, time.Hour, float64(knots))
	return fc.store.AddPositions(context.Background(), v, track)
}

// vesselTrawledOnTrip commits a trip over the vessel's positions whose fuel
// curve was computed with the gear in the water, as the trip pipeline would
// after matching hauls
func (fc *fuelEstimationContext) vesselTrawledOnTrip(id int64, start, end string) error {
	v, ok := fc.vessels[id]
	if !ok {
		return fmt.Errorf("vessel %d not registered", id)
	}
	ctx := context.Background()
	period := shared.ClosedOpen(helpers.MustParseTime(start), helpers.MustParseTime(end))

	positions, err := fc.store.FuelEstimationPositions(ctx, v, period)
	if err != nil {
		return err
	}
	if len(positions) < 2 {
		return fmt.Errorf("vessel %d has %d positions inside the trip", id, len(positions))
	}
	track := make([]trip.TripPosition, len(positions))
	for i, p := range positions {
		track[i] = trip.TripPosition{Position: p, InsideHaul: true}
	}
	curve := fuel.NewEstimator().Estimate(fuel.PointsFromTrack(track), fuel.ParamsFromVessel(v))
	for i := range track {
		track[i].CumulativeFuelLiters = curve.Cumulative[i]
	}

	tripID, err := fc.store.ReserveTripID(ctx)
	if err != nil {
		return err
	}
	t := trip.FromNew(tripID, id, trip.AssemblerErs, trip.NewTrip{
		Period:          period,
		PeriodExtended:  period,
		LandingCoverage: shared.From(period.Start),
	})
	t.Track = track
	total := curve.Total
	t.FuelLiters = &total

	if err := fc.store.AddTripSet(ctx, trip.TripSet{
		VesselID:  id,
		Assembler: trip.AssemblerErs,
		Strategy:  trip.ErrorOnConflict(),
		State:     trip.State{Kind: trip.StateNoPriorState},
		Trips:     []trip.Trip{t},
	}); err != nil {
		return err
	}
	fc.trips[id] = t
	return nil
}

func (fc *fuelEstimationContext) engineParametersChange(id int64) error {
	v, ok := fc.vessels[id]
	if !ok {
		return fmt.Errorf("vessel %d not registered", id)
	}
	updated := *v
	updated.EngineVersion++
	updated.Engines = []vessel.Engine{{Kind: vessel.EngineKindMain, PowerKW: 650, SFC: 210}}
	fc.vessels[id] = &updated
	fc.store.AddVessel(&updated)
	return nil
}

func (fc *fuelEstimationContext) hoursPass(hours int) error {
	fc.clock.Advance(time.Duration(hours) * time.Hour)
	return nil
}

// ============================================================================
// When steps
// ============================================================================

func (fc *fuelEstimationContext) fuelEstimationRuns() error {
	return fc.run(false)
}

func (fc *fuelEstimationContext) fuelEstimationIsForced() error {
	return fc.run(true)
}

func (fc *fuelEstimationContext) run(force bool) error {
	ctx := logging.WithLogger(context.Background(), fc.logger)
	resp, err := fc.mediator.Send(ctx, &appFuel.RunFuelEstimationCommand{Force: force})
	fc.err = err
	fc.response = nil
	if err == nil {
		fc.response = resp.(*appFuel.RunFuelEstimationResponse)
	}
	return nil
}

// ============================================================================
// Then steps
// ============================================================================

func (fc *fuelEstimationContext) runShouldBeSkipped() error {
	if fc.err != nil {
		return fmt.Errorf("fuel run failed: %w", fc.err)
	}
	if !fc.response.Skipped {
		return fmt.Errorf("expected the fuel run to be skipped, it wrote %d estimates", fc.response.Estimates)
	}
	return nil
}

func (fc *fuelEstimationContext) runShouldWriteEstimates(expected int) error {
	if fc.err != nil {
		return fmt.Errorf("fuel run failed: %w", fc.err)
	}
	if fc.response.Skipped {
		return fmt.Errorf("expected the fuel run to execute, it was skipped")
	}
	if fc.response.Estimates != expected {
		return fmt.Errorf("expected %d estimates, got %d", expected, fc.response.Estimates)
	}
	return nil
}

func (fc *fuelEstimationContext) vesselShouldHaveEstimates(id int64, expected int) error {
	if got := len(fc.store.Estimates(id)); got != expected {
		return fmt.Errorf("expected %d day estimates, got %d", expected, got)
	}
	return nil
}

func (fc *fuelEstimationContext) vesselShouldHaveVersionEstimates(id int64, expected, version int) error {
	got := 0
	for _, e := range fc.store.Estimates(id) {
		if e.EngineVersion == version {
			got++
		}
	}
	if got != expected {
		return fmt.Errorf("expected %d day estimates for engine version %d, got %d", expected, version, got)
	}
	return nil
}

func (fc *fuelEstimationContext) vesselShouldHaveBurnedFuel(id int64, date string) error {
	e, err := fc.estimate(id, date)
	if err != nil {
		return err
	}
	if e.Liters <= 0 {
		return fmt.Errorf("expected fuel burned on %s, got %.2f liters", date, e.Liters)
	}
	return nil
}

func (fc *fuelEstimationContext) vesselShouldHaveBurnedNoFuel(id int64, date string) error {
	e, err := fc.estimate(id, date)
	if err != nil {
		return err
	}
	if e.Liters != 0 {
		return fmt.Errorf("expected no fuel burned on %s, got %.2f liters", date, e.Liters)
	}
	return nil
}

func (fc *fuelEstimationContext) estimateShouldCountAIS(id int64, date string, expected int) error {
	e, err := fc.estimate(id, date)
	if err != nil {
		return err
	}
	if e.AISPositions != expected {
		return fmt.Errorf("expected %d AIS positions on %s, got %d", expected, date, e.AISPositions)
	}
	return nil
}

func (fc *fuelEstimationContext) estimateShouldFollowTripCurve(id int64, date, from, to string) error {
	t, ok := fc.trips[id]
	if !ok {
		return fmt.Errorf("vessel %d has no trip", id)
	}
	e, err := fc.estimate(id, date)
	if err != nil {
		return err
	}
	expected := fuel.CumulativeAt(t.Track, helpers.MustParseTime(to)) - fuel.CumulativeAt(t.Track, helpers.MustParseTime(from))
	if expected <= 0 || !closeTo(e.Liters, expected) {
		return fmt.Errorf("expected %.4f liters on %s from the trip curve, got %.4f", expected, date, e.Liters)
	}
	return nil
}

func (fc *fuelEstimationContext) dayEstimatesShouldAddUpToTrip(id int64) error {
	t, ok := fc.trips[id]
	if !ok || t.FuelLiters == nil {
		return fmt.Errorf("vessel %d has no estimated trip", id)
	}
	v := fc.vessels[id]
	sum := 0.0
	for _, e := range fc.store.Estimates(id) {
		if e.EngineVersion == v.EngineVersion {
			sum += e.Liters
		}
	}
	if !closeTo(sum, *t.FuelLiters) {
		return fmt.Errorf("day estimates sum to %.4f liters, the trip burned %.4f", sum, *t.FuelLiters)
	}
	return nil
}

func (fc *fuelEstimationContext) estimate(id int64, date string) (fuel.DayEstimate, error) {
	day := helpers.MustParseTime(date)
	v, ok := fc.vessels[id]
	if !ok {
		return fuel.DayEstimate{}, fmt.Errorf("vessel %d not registered", id)
	}
	for _, e := range fc.store.Estimates(id) {
		if e.Date.Equal(day) && e.EngineVersion == v.EngineVersion {
			return e, nil
		}
	}
	return fuel.DayEstimate{}, fmt.Errorf("no estimate for vessel %d on %s", id, date)
}
