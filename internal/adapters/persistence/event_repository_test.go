package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
	"github.com/andrescamacho/fishtrack-go/test/helpers"
)

func TestEventRepository_AddVesselEventsAssignsIDs(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	events := []vessel.Event{
		helpers.Departure(1, "2024-01-01 06:00", "NOBGO"),
		helpers.Arrival(1, "2024-01-03 18:00", "NOBGO"),
	}

	// Act
	err := store.AddVesselEvents(context.Background(), events)

	// Assert
	require.NoError(t, err)
	assert.NotZero(t, events[0].ID)
	assert.Greater(t, events[1].ID, events[0].ID)
}

func TestEventRepository_RelevantEventsFiltersByKindAndPeriod(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddVesselEvents(ctx, []vessel.Event{
		helpers.Arrival(1, "2024-01-03 18:00", "NOBGO"),
		helpers.Departure(1, "2024-01-01 06:00", "NOBGO"),
		helpers.Departure(1, "2024-01-05 06:00", "NOBGO"),
		helpers.Departure(2, "2024-01-02 06:00", "NOAES"),
	}))
	require.NoError(t, store.AddLandings(ctx, []vessel.Landing{helpers.Landing(1, "2024-01-04 08:00", 500)}))

	// Act
	all, err1 := store.AllVesselEvents(ctx, 1, trip.AssemblerErs)
	since, err2 := store.RelevantEvents(ctx, 1, shared.From(helpers.MustParseTime("2024-01-03 18:00")), trip.AssemblerErs)
	landings, err3 := store.AllVesselEvents(ctx, 1, trip.AssemblerLandings)

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)
	require.Len(t, all, 3)
	assert.Equal(t, vessel.EventTypeDeparture, all[0].Type, "events are ordered by timestamp")
	assert.Len(t, since, 2, "the period start is inclusive")
	require.Len(t, landings, 1)
	assert.Equal(t, vessel.EventTypeLanding, landings[0].Type)
}

func TestEventRepository_LateEventRegistersConflict(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00"),
		ersTrip(t, store, 1, "2024-01-05 06:00", "2024-01-07 12:00"))

	// Act - an event after the timer is not a conflict
	require.NoError(t, store.AddVesselEvents(ctx, []vessel.Event{helpers.Departure(1, "2024-01-09 06:00", "NOAES")}))

	// Assert
	timer, err := store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	assert.Nil(t, timer.Conflict)

	// Act - a late event inside committed history
	require.NoError(t, store.AddVesselEvents(ctx, []vessel.Event{helpers.Arrival(1, "2024-01-06 00:00", "NOSVG")}))

	// Assert
	timer, err = store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	require.NotNil(t, timer.Conflict)
	assert.True(t, timer.Conflict.Equal(helpers.MustParseTime("2024-01-06 00:00")))
	assert.Equal(t, trip.StateConflict, trip.DetermineState(timer).Kind)

	// Act - a later late event keeps the earliest conflict
	require.NoError(t, store.AddVesselEvents(ctx, []vessel.Event{helpers.Departure(1, "2024-01-06 12:00", "NOSVG")}))

	// Assert
	timer, err = store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	assert.True(t, timer.Conflict.Equal(helpers.MustParseTime("2024-01-06 00:00")))

	// Act - an earlier one moves it back
	require.NoError(t, store.AddVesselEvents(ctx, []vessel.Event{helpers.Arrival(1, "2024-01-02 00:00", "NOSVG")}))

	// Assert
	timer, err = store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	assert.True(t, timer.Conflict.Equal(helpers.MustParseTime("2024-01-02 00:00")))
}

func TestEventRepository_EventAtTimerIsAConflict(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00"))

	// Act
	require.NoError(t, store.AddVesselEvents(ctx, []vessel.Event{helpers.Departure(1, "2024-01-03 18:00", "NOBGO")}))

	// Assert
	timer, err := store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	require.NotNil(t, timer.Conflict)
	assert.True(t, timer.Conflict.Equal(helpers.MustParseTime("2024-01-03 18:00")))
}

func TestEventRepository_HandledConflictIsCleared(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00"))
	require.NoError(t, store.AddVesselEvents(ctx, []vessel.Event{helpers.Arrival(1, "2024-01-02 00:00", "NOSVG")}))
	conflictAt := helpers.MustParseTime("2024-01-02 00:00")

	// Act
	commit(t, store, 1, trip.Replace(conflictAt), trip.State{Kind: trip.StateConflict, Timestamp: conflictAt},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-02 00:00"))

	// Assert
	timer, err := store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	assert.Nil(t, timer.Conflict)
	assert.True(t, timer.Timestamp.Equal(conflictAt))
}

func TestEventRepository_ConflictArrivingDuringAssemblyIsKept(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00"),
		ersTrip(t, store, 1, "2024-01-05 06:00", "2024-01-07 12:00"))
	require.NoError(t, store.AddVesselEvents(ctx, []vessel.Event{helpers.Arrival(1, "2024-01-06 00:00", "NOSVG")}))
	handled := helpers.MustParseTime("2024-01-06 00:00")

	// an earlier event lands while the pass works on the first conflict
	require.NoError(t, store.AddVesselEvents(ctx, []vessel.Event{helpers.Arrival(1, "2024-01-02 00:00", "NOSVG")}))

	// Act
	commit(t, store, 1, trip.Replace(handled), trip.State{Kind: trip.StateConflict, Timestamp: handled},
		ersTrip(t, store, 1, "2024-01-05 06:00", "2024-01-06 00:00"))

	// Assert
	timer, err := store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	require.NotNil(t, timer.Conflict)
	assert.True(t, timer.Conflict.Equal(helpers.MustParseTime("2024-01-02 00:00")))
}

func TestEventRepository_LandingsReopenCargoStep(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	processed := ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00")
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState}, processed)
	for _, step := range trip.ComputationSteps {
		processed.Statuses.Set(step, trip.StatusSuccessful)
	}
	require.NoError(t, store.UpdateTrip(ctx, trip.UpdateFromTrip(&processed)))

	// Act
	err := store.AddLandings(ctx, []vessel.Landing{helpers.Landing(1, "2024-01-04 08:00", 700)})

	// Assert
	require.NoError(t, err)
	trips, err := store.Trips(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, trip.StatusSuccessful, trips[0].Statuses.Get(trip.StepPositionLayers))
	assert.Equal(t, trip.StatusUnprocessed, trips[0].Statuses.Get(trip.StepCargoWeight))
	assert.Equal(t, trip.StatusUnprocessed, trips[0].Statuses.Get(trip.StepFuelConsumption))

	weight, err := store.LandingWeight(ctx, 1, trips[0].LandingCoverage)
	require.NoError(t, err)
	assert.InDelta(t, 700.0, weight, 1e-9)
}

func TestEventRepository_PositionsReopenEveryStep(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	v := helpers.CreateTestErsVessel(1)
	processed := ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00")
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState}, processed)
	for _, step := range trip.ComputationSteps {
		processed.Statuses.Set(step, trip.StatusSuccessful)
	}
	require.NoError(t, store.UpdateTrip(ctx, trip.UpdateFromTrip(&processed)))

	// Act
	err := store.AddPositions(ctx, v, helpers.Track(helpers.MustParseTime("2024-01-02 00:00"), 4, 30*time.Minute, 8))

	// Assert
	require.NoError(t, err)
	unprocessed, err := store.TripsWithUnprocessedStep(ctx, 1, trip.StepPrecision, 10)
	require.NoError(t, err)
	assert.Len(t, unprocessed, 1)

	positions, err := store.TripPositions(ctx, v, processed.Period)
	require.NoError(t, err)
	assert.Len(t, positions, 4)
}
