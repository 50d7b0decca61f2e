package steps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/fishtrack-go/internal/application/logging"
	"github.com/andrescamacho/fishtrack-go/internal/application/mediator"
	"github.com/andrescamacho/fishtrack-go/internal/application/trips"
	"github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
	"github.com/andrescamacho/fishtrack-go/test/helpers"
)

// tripAssemblyContext holds state for trip assembly scenarios
type tripAssemblyContext struct {
	store   *helpers.MemoryStore
	logger  *helpers.CapturingLogger
	clock   *shared.MockClock
	workers int
	vessels map[int64]*vessel.Vessel
	ports   map[string]shared.Port
	tracks  map[int64][]vessel.Position

	response *trips.RunTripsPipelineResponse
	err      error
}

func (tc *tripAssemblyContext) reset() {
	tc.store = helpers.NewMemoryStore()
	tc.logger = helpers.NewCapturingLogger()
	tc.clock = shared.NewMockClock(helpers.MustParseTime("2024-06-01 00:00"))
	tc.workers = trips.DefaultWorkers
	tc.vessels = make(map[int64]*vessel.Vessel)
	tc.ports = make(map[string]shared.Port)
	tc.tracks = make(map[int64][]vessel.Position)
	tc.response = nil
	tc.err = nil
}

// InitializeTripAssemblyScenario registers trip assembly step definitions
func InitializeTripAssemblyScenario(ctx *godog.ScenarioContext) {
	tc := &tripAssemblyContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an ERS vessel (\d+)$`, tc.anERSVessel)
	ctx.Step(`^a landings vessel (\d+)$`, tc.aLandingsVessel)
	ctx.Step(`^vessel (\d+) departed from "([^"]*)" at "([^"]*)"$`, tc.vesselDeparted)
	ctx.Step(`^vessel (\d+) arrived at "([^"]*)" at "([^"]*)"$`, tc.vesselArrived)
	ctx.Step(`^vessel (\d+) landed (\d+) kg at "([^"]*)"$`, tc.vesselLanded)
	ctx.Step(`^a reset is queued for vessel (\d+)$`, tc.aResetIsQueued)
	ctx.Step(`^the calculation timer of vessel (\d+) is rewound to "([^"]*)"$`, tc.timerIsRewound)
	ctx.Step(`^reading the events of vessel (\d+) fails$`, tc.readingEventsFails)
	ctx.Step(`^the worker processing vessel (\d+) crashes$`, tc.workerCrashes)
	ctx.Step(`^the trip pipeline uses (\d+) workers?$`, tc.pipelineUsesWorkers)
	ctx.Step(`^port "([^"]*)" lies at latitude ([-\d.]+) and longitude ([-\d.]+)$`, tc.portLiesAt)
	ctx.Step(`^vessel (\d+) lay in port "([^"]*)" from "([^"]*)" for (\d+) hours?$`, tc.vesselLayInPort)
	ctx.Step(`^vessel (\d+) steamed east from "([^"]*)" for (\d+) hours? at (\d+) knots$`, tc.vesselSteamedEast)
	ctx.Step(`^vessel (\d+) reported its "([^"]*)" position twice$`, tc.vesselReportedPositionTwice)
	ctx.Step(`^vessel (\d+) hauled (\d+) kg between "([^"]*)" and "([^"]*)"$`, tc.vesselHauled)

	// When steps
	ctx.Step(`^the trip pipeline runs$`, tc.theTripPipelineRuns)
	ctx.Step(`^the trip pipeline runs for vessel (\d+)$`, tc.theTripPipelineRunsForVessel)

	// Then steps
	ctx.Step(`^vessel (\d+) should have (\d+) trips?$`, tc.vesselShouldHaveTrips)
	ctx.Step(`^trip (\d+) of vessel (\d+) should span "([^"]*)" to "([^"]*)"$`, tc.tripShouldSpan)
	ctx.Step(`^trip (\d+) of vessel (\d+) should cover landings from "([^"]*)" to "([^"]*)"$`, tc.tripShouldCoverLandings)
	ctx.Step(`^trip (\d+) of vessel (\d+) should cover every landing from "([^"]*)"$`, tc.tripShouldCoverLandingsFrom)
	ctx.Step(`^the trips of vessel (\d+) should not overlap$`, tc.tripsShouldNotOverlap)
	ctx.Step(`^every trip of vessel (\d+) should have all steps processed$`, tc.allStepsProcessed)
	ctx.Step(`^the calculation timer of vessel (\d+) should be at "([^"]*)"$`, tc.timerShouldBeAt)
	ctx.Step(`^vessel (\d+) should have a conflict at "([^"]*)"$`, tc.shouldHaveConflictAt)
	ctx.Step(`^vessel (\d+) should have no pending conflict$`, tc.shouldHaveNoConflict)
	ctx.Step(`^vessel (\d+) should have no queued reset$`, tc.shouldHaveNoQueuedReset)
	ctx.Step(`^vessel (\d+) should have a current trip departing at "([^"]*)"$`, tc.shouldHaveCurrentTrip)
	ctx.Step(`^vessel (\d+) should have no current trip$`, tc.shouldHaveNoCurrentTrip)
	ctx.Step(`^the pass should report (\d+) trips? created$`, tc.passShouldReportTripsCreated)
	ctx.Step(`^the pass should report (\d+) conflicts? resolved$`, tc.passShouldReportConflicts)
	ctx.Step(`^the pass should report (\d+) resets?$`, tc.passShouldReportResets)
	ctx.Step(`^the pass should report (\d+) failures?$`, tc.passShouldReportFailures)
	ctx.Step(`^the pass should fail because the worker pool is exhausted$`, tc.passShouldFailPoolExhausted)
	ctx.Step(`^an unexpected trip conflict should be logged for vessel (\d+)$`, tc.tripConflictShouldBeLogged)
	ctx.Step(`^the pass should be recorded as "([^"]*)"$`, tc.passShouldBeRecordedAs)
	ctx.Step(`^trip (\d+) of vessel (\d+) should have the precise period "([^"]*)"$`, tc.tripShouldHavePrecisePeriod)
	ctx.Step(`^the precise period of trip (\d+) of vessel (\d+) should not contain "([^"]*)"$`, tc.precisePeriodShouldNotContain)
	ctx.Step(`^trip (\d+) of vessel (\d+) should have no precise period$`, tc.tripShouldHaveNoPrecisePeriod)
	ctx.Step(`^trip (\d+) of vessel (\d+) should have travelled between (\d+) and (\d+) nautical miles$`, tc.tripShouldHaveTravelled)
	ctx.Step(`^trip (\d+) of vessel (\d+) should have pruned (\d+) duplicate positions?$`, tc.tripShouldHavePrunedDuplicates)
	ctx.Step(`^trip (\d+) of vessel (\d+) should carry (\d+) kg at the end of its track$`, tc.tripShouldCarry)
	ctx.Step(`^trip (\d+) of vessel (\d+) should have (\d+) track positions? inside a haul$`, tc.tripShouldHavePositionsInsideHaul)
	ctx.Step(`^trip (\d+) of vessel (\d+) should have burned fuel along a non-decreasing curve$`, tc.tripShouldHaveBurnedFuel)
	ctx.Step(`^the "([^"]*)" step of trip (\d+) of vessel (\d+) should be "([^"]*)"$`, tc.tripStepShouldBe)
	ctx.Step(`^resuming trip (\d+) of vessel (\d+) from any step should rebuild the same trip$`, tc.resumingFromAnyStepRebuildsTrip)
}

// ============================================================================
// Given steps
// ============================================================================

func (tc *tripAssemblyContext) anERSVessel(id int64) error {
	v := helpers.CreateTestErsVessel(id)
	tc.vessels[id] = v
	tc.store.AddVessel(v)
	return nil
}

func (tc *tripAssemblyContext) aLandingsVessel(id int64) error {
	v := helpers.CreateTestLandingsVessel(id)
	tc.vessels[id] = v
	tc.store.AddVessel(v)
	return nil
}

func (tc *tripAssemblyContext) vesselDeparted(id int64, port, ts string) error {
	return tc.store.AddVesselEvents(context.Background(), []vessel.Event{helpers.Departure(id, ts, port)})
}

func (tc *tripAssemblyContext) vesselArrived(id int64, port, ts string) error {
	return tc.store.AddVesselEvents(context.Background(), []vessel.Event{helpers.Arrival(id, ts, port)})
}

func (tc *tripAssemblyContext) vesselLanded(id int64, weight int, ts string) error {
	return tc.store.AddLandings(context.Background(), []vessel.Landing{helpers.Landing(id, ts, float64(weight))})
}

func (tc *tripAssemblyContext) aResetIsQueued(id int64) error {
	kind, err := tc.kindOf(id)
	if err != nil {
		return err
	}
	return tc.store.QueueReset(context.Background(), id, kind)
}

func (tc *tripAssemblyContext) timerIsRewound(id int64, ts string) error {
	kind, err := tc.kindOf(id)
	if err != nil {
		return err
	}
	at := helpers.MustParseTime(ts)
	tc.store.SetTimer(trip.CalculationTimer{VesselID: id, Assembler: kind, Timestamp: &at})
	return nil
}

func (tc *tripAssemblyContext) readingEventsFails(id int64) error {
	tc.store.FailVessel(id, errors.New("connection reset by peer"))
	return nil
}

func (tc *tripAssemblyContext) workerCrashes(id int64) error {
	tc.store.PanicVessel(id, "corrupt vessel row")
	return nil
}

func (tc *tripAssemblyContext) pipelineUsesWorkers(n int) error {
	tc.workers = n
	return nil
}

func (tc *tripAssemblyContext) portLiesAt(id string, lat, lon float64) error {
	tc.ports[id] = shared.Port{ID: id, Name: id, Coordinates: &shared.Point{Latitude: lat, Longitude: lon}}
	ports := make([]shared.Port, 0, len(tc.ports))
	for _, p := range tc.ports {
		ports = append(ports, p)
	}
	tc.store.SetPorts(ports, nil)
	return nil
}

func (tc *tripAssemblyContext) vesselLayInPort(id int64, portID, from string, hours int) error {
	v, ok := tc.vessels[id]
	if !ok {
		return fmt.Errorf("vessel %d not registered", id)
	}
	port, ok := tc.ports[portID]
	if !ok || port.Coordinates == nil {
		return fmt.Errorf("port %s has no coordinates", portID)
	}
	start := helpers.MustParseTime(from)
	positions := make([]vessel.Position, hours)
	for i := range positions {
		idle := 0.0
		positions[i] = vessel.Position{
			Timestamp:       start.Add(time.Duration(i) * time.Hour),
			Latitude:        port.Coordinates.Latitude,
			Longitude:       port.Coordinates.Longitude,
			SpeedOverGround: &idle,
			Source:          vessel.PositionSourceAIS,
		}
	}
	return tc.addPositions(v, positions)
}

func (tc *tripAssemblyContext) vesselSteamedEast(id int64, from string, hours, knots int) error {
	v, ok := tc.vessels[id]
	if !ok {
		return fmt.Errorf("vessel %d not registered", id)
	}
	return tc.addPositions(v, helpers.Track(helpers.MustParseTime(from), hours+1, time.Hour, float64(knots)))
}

func (tc *tripAssemblyContext) vesselReportedPositionTwice(id int64, ts string) error {
	v, ok := tc.vessels[id]
	if !ok {
		return fmt.Errorf("vessel %d not registered", id)
	}
	at := helpers.MustParseTime(ts)
	for _, p := range tc.tracks[id] {
		if p.Timestamp.Equal(at) {
			return tc.addPositions(v, []vessel.Position{p})
		}
	}
	return fmt.Errorf("vessel %d has no position at %s", id, ts)
}

func (tc *tripAssemblyContext) vesselHauled(id int64, weight int, start, end string) error {
	return tc.store.AddHauls(context.Background(), []vessel.Haul{{
		VesselID:     id,
		Period:       shared.Closed(helpers.MustParseTime(start), helpers.MustParseTime(end)),
		LivingWeight: float64(weight),
		GearGroup:    vessel.GearGroupTrawl,
	}})
}

func (tc *tripAssemblyContext) addPositions(v *vessel.Vessel, positions []vessel.Position) error {
	tc.tracks[v.ID] = append(tc.tracks[v.ID], positions...)
	return tc.store.AddPositions(context.Background(), v, positions)
}

// ============================================================================
// When steps
// ============================================================================

func (tc *tripAssemblyContext) theTripPipelineRuns() error {
	return tc.runPass(nil)
}

func (tc *tripAssemblyContext) theTripPipelineRunsForVessel(id int64) error {
	return tc.runPass([]int64{id})
}

func (tc *tripAssemblyContext) runPass(vesselIDs []int64) error {
	driver := trips.NewDriver(tc.store, fuel.NewEstimator(), trips.DriverConfig{Workers: tc.workers})
	med := mediator.NewMediator()
	handler := trips.NewRunTripsPipelineHandler(driver, tc.store, tc.clock)
	if err := mediator.RegisterHandler[*trips.RunTripsPipelineCommand](med, handler); err != nil {
		return err
	}

	ctx := logging.WithLogger(context.Background(), tc.logger)
	resp, err := med.Send(ctx, &trips.RunTripsPipelineCommand{VesselIDs: vesselIDs})
	tc.err = err
	tc.response = nil
	if err == nil {
		tc.response = resp.(*trips.RunTripsPipelineResponse)
	}
	tc.clock.Advance(time.Minute)
	return nil
}

// ============================================================================
// Then steps
// ============================================================================

func (tc *tripAssemblyContext) vesselShouldHaveTrips(id int64, expected int) error {
	committed, err := tc.trips(id)
	if err != nil {
		return err
	}
	if len(committed) != expected {
		return fmt.Errorf("expected %d trips, got %d: %v", expected, len(committed), committed)
	}
	return nil
}

func (tc *tripAssemblyContext) tripShouldSpan(n int, id int64, start, end string) error {
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	if !t.Period.Start.Equal(helpers.MustParseTime(start)) || !t.Period.End.Equal(helpers.MustParseTime(end)) {
		return fmt.Errorf("expected trip %d to span %s to %s, got %s", n, start, end, t.Period)
	}
	return nil
}

func (tc *tripAssemblyContext) tripShouldCoverLandings(n int, id int64, start, end string) error {
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	expected := shared.ClosedOpen(helpers.MustParseTime(start), helpers.MustParseTime(end))
	if !t.LandingCoverage.Equal(expected) {
		return fmt.Errorf("expected landing coverage %s, got %s", expected, t.LandingCoverage)
	}
	return nil
}

func (tc *tripAssemblyContext) tripShouldCoverLandingsFrom(n int, id int64, start string) error {
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	expected := shared.From(helpers.MustParseTime(start))
	if !t.LandingCoverage.Equal(expected) {
		return fmt.Errorf("expected landing coverage %s, got %s", expected, t.LandingCoverage)
	}
	return nil
}

func (tc *tripAssemblyContext) tripsShouldNotOverlap(id int64) error {
	committed, err := tc.trips(id)
	if err != nil {
		return err
	}
	return trip.CheckContiguous(committed)
}

func (tc *tripAssemblyContext) allStepsProcessed(id int64) error {
	committed, err := tc.trips(id)
	if err != nil {
		return err
	}
	for _, t := range committed {
		if step, ok := t.Statuses.FirstIncomplete(); ok {
			return fmt.Errorf("trip %d has unprocessed step %s", t.ID, step)
		}
	}
	return nil
}

func (tc *tripAssemblyContext) timerShouldBeAt(id int64, ts string) error {
	timer, err := tc.timer(id)
	if err != nil {
		return err
	}
	if timer == nil || timer.Timestamp == nil {
		return fmt.Errorf("expected calculation timer at %s, got none", ts)
	}
	if !timer.Timestamp.Equal(helpers.MustParseTime(ts)) {
		return fmt.Errorf("expected calculation timer at %s, got %s", ts, timer.Timestamp.Format(time.RFC3339))
	}
	return nil
}

func (tc *tripAssemblyContext) shouldHaveConflictAt(id int64, ts string) error {
	timer, err := tc.timer(id)
	if err != nil {
		return err
	}
	if timer == nil || timer.Conflict == nil {
		return fmt.Errorf("expected conflict at %s, got none", ts)
	}
	if !timer.Conflict.Equal(helpers.MustParseTime(ts)) {
		return fmt.Errorf("expected conflict at %s, got %s", ts, timer.Conflict.Format(time.RFC3339))
	}
	return nil
}

func (tc *tripAssemblyContext) shouldHaveNoConflict(id int64) error {
	timer, err := tc.timer(id)
	if err != nil {
		return err
	}
	if timer != nil && timer.Conflict != nil {
		return fmt.Errorf("expected no conflict, got %s", timer.Conflict.Format(time.RFC3339))
	}
	return nil
}

func (tc *tripAssemblyContext) shouldHaveNoQueuedReset(id int64) error {
	timer, err := tc.timer(id)
	if err != nil {
		return err
	}
	if timer != nil && timer.QueuedReset {
		return fmt.Errorf("expected the queued reset to be cleared")
	}
	return nil
}

func (tc *tripAssemblyContext) shouldHaveCurrentTrip(id int64, ts string) error {
	current := tc.store.CurrentTrip(id)
	if current == nil {
		return fmt.Errorf("expected a current trip for vessel %d", id)
	}
	if !current.DepartureTime.Equal(helpers.MustParseTime(ts)) {
		return fmt.Errorf("expected current trip departing at %s, got %s", ts, current.DepartureTime.Format(time.RFC3339))
	}
	return nil
}

func (tc *tripAssemblyContext) shouldHaveNoCurrentTrip(id int64) error {
	if current := tc.store.CurrentTrip(id); current != nil {
		return fmt.Errorf("expected no current trip, got departure at %s", current.DepartureTime.Format(time.RFC3339))
	}
	return nil
}

func (tc *tripAssemblyContext) passShouldReportTripsCreated(expected int) error {
	report, err := tc.report()
	if err != nil {
		return err
	}
	if report.TripsCreated != expected {
		return fmt.Errorf("expected %d trips created, got %d", expected, report.TripsCreated)
	}
	return nil
}

func (tc *tripAssemblyContext) passShouldReportConflicts(expected int) error {
	report, err := tc.report()
	if err != nil {
		return err
	}
	if report.ConflictsResolved != expected {
		return fmt.Errorf("expected %d conflicts resolved, got %d", expected, report.ConflictsResolved)
	}
	return nil
}

func (tc *tripAssemblyContext) passShouldReportResets(expected int) error {
	report, err := tc.report()
	if err != nil {
		return err
	}
	if report.Resets != expected {
		return fmt.Errorf("expected %d resets, got %d", expected, report.Resets)
	}
	return nil
}

func (tc *tripAssemblyContext) passShouldReportFailures(expected int) error {
	report, err := tc.report()
	if err != nil {
		return err
	}
	if report.Failures != expected {
		return fmt.Errorf("expected %d failures, got %d", expected, report.Failures)
	}
	return nil
}

func (tc *tripAssemblyContext) passShouldFailPoolExhausted() error {
	if tc.err == nil {
		return fmt.Errorf("expected the pass to fail")
	}
	if !errors.Is(tc.err, trips.ErrWorkerPoolExhausted) {
		return fmt.Errorf("expected worker pool exhaustion, got: %v", tc.err)
	}
	return nil
}

func (tc *tripAssemblyContext) tripConflictShouldBeLogged(id int64) error {
	for _, e := range tc.logger.Entries(logging.LevelError) {
		if e.Metadata["action"] == "trip_conflict" && e.Metadata["vessel_id"] == id {
			return nil
		}
	}
	return fmt.Errorf("expected a trip_conflict error log for vessel %d", id)
}

func (tc *tripAssemblyContext) passShouldBeRecordedAs(status string) error {
	runs := tc.store.Runs()
	if len(runs) == 0 {
		return fmt.Errorf("expected a recorded pipeline run")
	}
	last := runs[len(runs)-1]
	if string(last.Status()) != status {
		return fmt.Errorf("expected run status %s, got %s", status, last.Status())
	}
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func (tc *tripAssemblyContext) tripShouldHavePrecisePeriod(n int, id int64, notation string) error {
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	if t.PrecisePeriod == nil {
		return fmt.Errorf("trip %d has no precise period", t.ID)
	}
	expected, err := parseDateRange(notation)
	if err != nil {
		return err
	}
	if !t.PrecisePeriod.Equal(expected) {
		return fmt.Errorf("expected precise period %s, got %s", expected, t.PrecisePeriod)
	}
	return nil
}

func (tc *tripAssemblyContext) precisePeriodShouldNotContain(n int, id int64, ts string) error {
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	if t.PrecisePeriod == nil {
		return fmt.Errorf("trip %d has no precise period", t.ID)
	}
	if t.PrecisePeriod.Contains(helpers.MustParseTime(ts)) {
		return fmt.Errorf("precise period %s should not contain %s", t.PrecisePeriod, ts)
	}
	return nil
}

func (tc *tripAssemblyContext) tripShouldHaveNoPrecisePeriod(n int, id int64) error {
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	if t.PrecisePeriod != nil {
		return fmt.Errorf("expected no precise period, got %s", t.PrecisePeriod)
	}
	return nil
}

func (tc *tripAssemblyContext) tripShouldHaveTravelled(n int, id int64, low, high int) error {
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	if t.Distance == nil {
		return fmt.Errorf("trip %d has no distance", t.ID)
	}
	nm := *t.Distance / shared.MetersPerNauticalMile
	if nm < float64(low) || nm > float64(high) {
		return fmt.Errorf("expected between %d and %d nautical miles, got %.2f", low, high, nm)
	}
	return nil
}

func (tc *tripAssemblyContext) tripShouldHavePrunedDuplicates(n int, id int64, expected int) error {
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	if got := t.PrunedPositions.DuplicateTimestamps; got != expected {
		return fmt.Errorf("expected %d duplicate positions pruned, got %d", expected, got)
	}
	return nil
}

func (tc *tripAssemblyContext) tripShouldCarry(n int, id int64, expected int) error {
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	if len(t.Track) == 0 {
		return fmt.Errorf("trip %d has no track", t.ID)
	}
	got := t.Track[len(t.Track)-1].CumulativeCargoWeight
	if math.Abs(got-float64(expected)) > 1e-6 {
		return fmt.Errorf("expected %d kg on board at the end of the track, got %.2f", expected, got)
	}
	return nil
}

func (tc *tripAssemblyContext) tripShouldHavePositionsInsideHaul(n int, id int64, expected int) error {
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	got := 0
	for _, p := range t.Track {
		if p.InsideHaul {
			got++
		}
	}
	if got != expected {
		return fmt.Errorf("expected %d track positions inside a haul, got %d", expected, got)
	}
	return nil
}

func (tc *tripAssemblyContext) tripShouldHaveBurnedFuel(n int, id int64) error {
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	if t.FuelLiters == nil || *t.FuelLiters <= 0 {
		return fmt.Errorf("expected trip %d to have burned fuel, got %v", t.ID, t.FuelLiters)
	}
	for i := 1; i < len(t.Track); i++ {
		if t.Track[i].CumulativeFuelLiters < t.Track[i-1].CumulativeFuelLiters {
			return fmt.Errorf("fuel curve of trip %d decreases at %s", t.ID, t.Track[i].Timestamp.Format(time.RFC3339))
		}
	}
	last := t.Track[len(t.Track)-1].CumulativeFuelLiters
	if math.Abs(last-*t.FuelLiters) > 1e-6 {
		return fmt.Errorf("expected the curve to end at the trip total %.4f, got %.4f", *t.FuelLiters, last)
	}
	return nil
}

func (tc *tripAssemblyContext) tripStepShouldBe(stepName string, n int, id int64, expected string) error {
	step, err := trip.ParseComputationStep(stepName)
	if err != nil {
		return err
	}
	t, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	if got := t.Statuses.Get(step); string(got) != expected {
		return fmt.Errorf("expected step %s of trip %d to be %s, got %s", stepName, t.ID, expected, got)
	}
	return nil
}

func (tc *tripAssemblyContext) resumingFromAnyStepRebuildsTrip(n int, id int64) error {
	committed, err := tc.nthTrip(id, n)
	if err != nil {
		return err
	}
	v, ok := tc.vessels[id]
	if !ok {
		return fmt.Errorf("vessel %d not registered", id)
	}

	ctx := context.Background()
	ports, err := tc.store.Ports(ctx)
	if err != nil {
		return err
	}
	dockPoints, err := tc.store.DockPoints(ctx)
	if err != nil {
		return err
	}
	pipeline := trips.NewPipeline(tc.store, shared.NewPortDirectory(ports, dockPoints), fuel.NewEstimator())

	full, err := pipeline.ProcessNew(ctx, v, committed)
	if err != nil {
		return err
	}
	if _, ok := full.Statuses.FirstIncomplete(); ok {
		return fmt.Errorf("trip %d left steps unprocessed: %+v", full.ID, full.Statuses)
	}

	for _, step := range trip.ComputationSteps {
		persisted := full
		persisted.Statuses.InvalidateFrom(step)
		resumed, err := pipeline.Resume(ctx, v, persisted, step)
		if err != nil {
			return err
		}
		if !reflect.DeepEqual(resumed, full) {
			return fmt.Errorf("resuming from %s rebuilt %+v, full run gave %+v", step, resumed, full)
		}
	}
	return nil
}

func (tc *tripAssemblyContext) kindOf(id int64) (trip.AssemblerKind, error) {
	v, ok := tc.vessels[id]
	if !ok {
		return 0, fmt.Errorf("vessel %d not registered", id)
	}
	return trip.PreferredAssembler(v), nil
}

func (tc *tripAssemblyContext) trips(id int64) ([]trip.Trip, error) {
	kind, err := tc.kindOf(id)
	if err != nil {
		return nil, err
	}
	return tc.store.Trips(id, kind), nil
}

func (tc *tripAssemblyContext) nthTrip(id int64, n int) (trip.Trip, error) {
	committed, err := tc.trips(id)
	if err != nil {
		return trip.Trip{}, err
	}
	if n < 1 || n > len(committed) {
		return trip.Trip{}, fmt.Errorf("vessel %d has %d trips, no trip %d", id, len(committed), n)
	}
	return committed[n-1], nil
}

func (tc *tripAssemblyContext) timer(id int64) (*trip.CalculationTimer, error) {
	kind, err := tc.kindOf(id)
	if err != nil {
		return nil, err
	}
	return tc.store.Timer(id, kind), nil
}

func (tc *tripAssemblyContext) report() (*trips.PassReport, error) {
	if tc.err != nil {
		return nil, fmt.Errorf("pass failed: %w", tc.err)
	}
	if tc.response == nil {
		return nil, fmt.Errorf("the trip pipeline has not run")
	}
	return &tc.response.Report, nil
}
