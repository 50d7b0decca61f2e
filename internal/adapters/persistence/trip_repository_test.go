package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/fishtrack-go/internal/adapters/persistence"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/trip"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
	"github.com/andrescamacho/fishtrack-go/test/helpers"
)

// ersTrip reserves an id and builds an unprocessed [start, end) trip
func ersTrip(t *testing.T, store *persistence.Store, vesselID int64, start, end string) trip.Trip {
	t.Helper()
	id, err := store.ReserveTripID(context.Background())
	require.NoError(t, err)

	period := shared.ClosedOpen(helpers.MustParseTime(start), helpers.MustParseTime(end))
	return trip.FromNew(id, vesselID, trip.AssemblerErs, trip.NewTrip{
		Period:          period,
		PeriodExtended:  period,
		LandingCoverage: shared.From(period.Start),
	})
}

func commit(t *testing.T, store *persistence.Store, vesselID int64, strategy trip.TripsConflictStrategy, state trip.State, trips ...trip.Trip) {
	t.Helper()
	err := store.AddTripSet(context.Background(), trip.TripSet{
		VesselID:  vesselID,
		Assembler: trip.AssemblerErs,
		Strategy:  strategy,
		State:     state,
		Trips:     trips,
	})
	require.NoError(t, err)
}

func TestTripRepository_AddTripSetAdvancesTimer(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	first := ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00")
	second := ersTrip(t, store, 1, "2024-01-05 06:00", "2024-01-07 12:00")

	// Act
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState}, second, first)

	// Assert
	trips, err := store.Trips(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, first.ID, trips[0].ID)
	assert.True(t, trips[0].Period.Equal(first.Period))
	assert.Equal(t, trip.StatusUnprocessed, trips[1].Statuses.Get(trip.StepPrecision))

	timer, err := store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	require.NotNil(t, timer)
	require.NotNil(t, timer.Timestamp)
	assert.True(t, timer.Timestamp.Equal(helpers.MustParseTime("2024-01-07 12:00")))
	assert.Nil(t, timer.Conflict)
	assert.False(t, timer.QueuedReset)
}

func TestTripRepository_ErrorStrategyRejectsOverlapAtomically(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00"))

	later := ersTrip(t, store, 1, "2024-01-05 06:00", "2024-01-07 12:00")
	overlapping := ersTrip(t, store, 1, "2024-01-02 00:00", "2024-01-04 00:00")

	// Act
	err := store.AddTripSet(ctx, trip.TripSet{
		VesselID:  1,
		Assembler: trip.AssemblerErs,
		Strategy:  trip.ErrorOnConflict(),
		State:     trip.State{Kind: trip.StateTripCalculationTimer, Timestamp: helpers.MustParseTime("2024-01-03 18:00")},
		Trips:     []trip.Trip{later, overlapping},
	})

	// Assert
	var conflict *shared.TripConflictError
	require.True(t, errors.As(err, &conflict), "expected TripConflictError, got %v", err)
	assert.Equal(t, int64(1), conflict.VesselID)

	trips, err := store.Trips(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	assert.Len(t, trips, 1, "a rejected set must not leave partial writes")
}

func TestTripRepository_TouchingTripsDoNotConflict(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00"))
	next := ersTrip(t, store, 1, "2024-01-03 18:00", "2024-01-04 18:00")

	// Act
	err := store.AddTripSet(context.Background(), trip.TripSet{
		VesselID:  1,
		Assembler: trip.AssemblerErs,
		Strategy:  trip.ErrorOnConflict(),
		State:     trip.State{Kind: trip.StateTripCalculationTimer, Timestamp: helpers.MustParseTime("2024-01-03 18:00")},
		Trips:     []trip.Trip{next},
	})

	// Assert
	assert.NoError(t, err)
}

func TestTripRepository_ReplaceDeletesTripsEndingAtOrAfter(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	first := ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00")
	second := ersTrip(t, store, 1, "2024-01-05 06:00", "2024-01-07 12:00")
	third := ersTrip(t, store, 1, "2024-01-09 06:00", "2024-01-11 12:00")
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState}, first, second, third)

	conflictAt := helpers.MustParseTime("2024-01-06 00:00")
	rebuilt := ersTrip(t, store, 1, "2024-01-05 06:00", "2024-01-06 00:00")

	// Act
	commit(t, store, 1, trip.Replace(conflictAt), trip.State{Kind: trip.StateConflict, Timestamp: conflictAt}, rebuilt)

	// Assert
	trips, err := store.Trips(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, first.ID, trips[0].ID)
	assert.Equal(t, rebuilt.ID, trips[1].ID)

	timer, err := store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	assert.True(t, timer.Timestamp.Equal(conflictAt), "timer follows the latest remaining trip")
}

func TestTripRepository_ReplaceAllClearsQueuedReset(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00"),
		ersTrip(t, store, 1, "2024-01-05 06:00", "2024-01-07 12:00"))
	require.NoError(t, store.QueueReset(ctx, 1, trip.AssemblerErs))

	timer, err := store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	require.True(t, timer.QueuedReset)
	assert.Equal(t, trip.StateQueuedReset, trip.DetermineState(timer).Kind)

	// Act
	commit(t, store, 1, trip.ReplaceAll(), trip.State{Kind: trip.StateQueuedReset},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-07 12:00"))

	// Assert
	trips, err := store.Trips(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	assert.Len(t, trips, 1)

	timer, err = store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	assert.False(t, timer.QueuedReset)
	assert.Nil(t, timer.Conflict)
}

func TestTripRepository_NukeTripsRemovesTimer(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00"))
	require.NoError(t, store.RefreshDetailedTrips(ctx, 1))

	// Act
	err := store.NukeTrips(ctx, 1, trip.AssemblerErs)

	// Assert
	require.NoError(t, err)
	trips, err := store.Trips(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	assert.Empty(t, trips)

	timer, err := store.TripCalculationTimer(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	assert.Nil(t, timer)

	detailed, err := store.DetailedTrips(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, detailed)
}

func TestTripRepository_ReserveTripIDIsMonotonic(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()

	// Act
	first, err1 := store.ReserveTripID(ctx)
	second, err2 := store.ReserveTripID(ctx)

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Greater(t, second, first)
}

func TestTripRepository_TripPriorToTimestamp(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	first := ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00")
	second := ersTrip(t, store, 1, "2024-01-05 06:00", "2024-01-07 12:00")
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState}, first, second)

	// Act
	beforeAll, err1 := store.TripPriorToTimestamp(ctx, 1, helpers.MustParseTime("2024-01-01 06:00"), trip.AssemblerErs)
	inside, err2 := store.TripPriorToTimestamp(ctx, 1, helpers.MustParseTime("2024-01-02 00:00"), trip.AssemblerErs)
	atTimer, err3 := store.TripPriorToTimestamp(ctx, 1, helpers.MustParseTime("2024-01-07 12:00"), trip.AssemblerErs)

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)
	assert.Nil(t, beforeAll, "the start is exclusive")
	require.NotNil(t, inside)
	assert.Equal(t, first.ID, inside.ID)
	require.NotNil(t, atTimer)
	assert.Equal(t, second.ID, atTimer.ID)
}

func TestTripRepository_UpdateTripAndUnprocessedSteps(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	processed := ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00")
	pending := ersTrip(t, store, 1, "2024-01-05 06:00", "2024-01-07 12:00")
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState}, processed, pending)

	distance := 12_500.0
	liters := 340.0
	processed.Distance = &distance
	processed.FuelLiters = &liters
	for _, step := range trip.ComputationSteps {
		processed.Statuses.Set(step, trip.StatusSuccessful)
	}
	processed.Statuses.Set(trip.StepPrecision, trip.StatusAttempted)

	// Act
	err := store.UpdateTrip(ctx, trip.UpdateFromTrip(&processed))

	// Assert
	require.NoError(t, err)

	unprocessed, err := store.TripsWithUnprocessedStep(ctx, 1, trip.StepFuelConsumption, 10)
	require.NoError(t, err)
	require.Len(t, unprocessed, 1)
	assert.Equal(t, pending.ID, unprocessed[0].ID)

	trips, err := store.Trips(ctx, 1, trip.AssemblerErs)
	require.NoError(t, err)
	require.NotNil(t, trips[0].Distance)
	assert.InDelta(t, distance, *trips[0].Distance, 1e-9)
	assert.Equal(t, trip.StatusAttempted, trips[0].Statuses.Get(trip.StepPrecision))
}

func TestTripRepository_UpdateUnknownTripFails(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)

	// Act
	err := store.UpdateTrip(context.Background(), trip.TripUpdate{TripID: 999, Statuses: trip.UnprocessedStatuses()})

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "trip not found")
}

func TestTripRepository_SetCurrentTrip(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	events := []vessel.Event{
		helpers.Departure(1, "2024-01-01 06:00", "NOBGO"),
		helpers.Arrival(1, "2024-01-03 18:00", "NOBGO"),
		helpers.Departure(1, "2024-01-05 06:00", "NOBGO"),
	}
	require.NoError(t, store.AddVesselEvents(ctx, events))
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00"))

	// Act
	err := store.SetCurrentTrip(ctx, 1)

	// Assert
	require.NoError(t, err)
	current, err := store.CurrentTrip(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, events[2].ID, current.DepartureEventID)
	assert.True(t, current.DepartureTime.Equal(helpers.MustParseTime("2024-01-05 06:00")))
	require.NotNil(t, current.DeparturePortID)
	assert.Equal(t, "NOBGO", *current.DeparturePortID)

	// Act - the vessel returns to port
	require.NoError(t, store.AddVesselEvents(ctx, []vessel.Event{helpers.Arrival(1, "2024-01-07 12:00", "NOAES")}))
	require.NoError(t, store.SetCurrentTrip(ctx, 1))

	// Assert
	current, err = store.CurrentTrip(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestTripRepository_SetCurrentTripDepartureAtArrivalInstant(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	events := []vessel.Event{
		helpers.Departure(1, "2024-01-01 06:00", "NOBGO"),
		helpers.Departure(1, "2024-01-03 18:00", "NOBGO"),
		helpers.Arrival(1, "2024-01-03 18:00", "NOBGO"),
	}
	require.NoError(t, store.AddVesselEvents(ctx, events))
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00"))

	// Act
	err := store.SetCurrentTrip(ctx, 1)

	// Assert
	require.NoError(t, err)
	current, err := store.CurrentTrip(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, events[1].ID, current.DepartureEventID)
}

func TestTripRepository_TripsInRangeOverlapsDay(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-02 00:00"),
		ersTrip(t, store, 1, "2024-01-02 18:00", "2024-01-03 06:00"))
	day := helpers.MustParseTime("2024-01-02 00:00")

	// Act
	trips, err := store.TripsInRange(ctx, 1, shared.ClosedOpen(day, day.Add(24*time.Hour)))

	// Assert
	require.NoError(t, err)
	require.Len(t, trips, 1, "a trip ending at midnight does not belong to the next day")
	assert.True(t, trips[0].Period.Start.Equal(helpers.MustParseTime("2024-01-02 18:00")))
}

func TestTripRepository_RefreshDetailedTrips(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	commit(t, store, 1, trip.ErrorOnConflict(), trip.State{Kind: trip.StateNoPriorState},
		ersTrip(t, store, 1, "2024-01-01 06:00", "2024-01-03 18:00"))
	require.NoError(t, store.AddLandings(ctx, []vessel.Landing{
		helpers.Landing(1, "2024-01-04 08:00", 1200),
		helpers.Landing(1, "2024-01-04 09:00", 300),
	}))
	require.NoError(t, store.AddHauls(ctx, []vessel.Haul{{
		VesselID:     1,
		Period:       shared.ClosedOpen(helpers.MustParseTime("2024-01-02 00:00"), helpers.MustParseTime("2024-01-02 04:00")),
		LivingWeight: 900,
		GearGroup:    vessel.GearGroupTrawl,
	}}))

	// Act
	err := store.RefreshDetailedTrips(ctx, 1)

	// Assert
	require.NoError(t, err)
	detailed, err := store.DetailedTrips(ctx, 1)
	require.NoError(t, err)
	require.Len(t, detailed, 1)
	assert.InDelta(t, 1500.0, detailed[0].LandingWeight, 1e-9)
	assert.Equal(t, 1, detailed[0].HaulCount)
	assert.InDelta(t, 900.0, detailed[0].HaulWeight, 1e-9)
}
