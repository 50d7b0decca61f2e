package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/test/helpers"
)

func TestFuelEstimateRepository_DatesToEstimateStartsAtFirstPosition(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	v := helpers.CreateTestMaruVessel(5)
	require.NoError(t, store.SaveVessel(ctx, v))
	require.NoError(t, store.AddPositions(ctx, v, helpers.Track(helpers.MustParseTime("2024-05-28 13:00"), 3, time.Hour, 8)))

	// Act
	dates, err := store.DatesToEstimate(ctx, v.ID, v.EngineVersion, helpers.MustParseTime("2024-05-31 00:00"))

	// Assert
	require.NoError(t, err)
	require.Len(t, dates, 4)
	assert.True(t, dates[0].Equal(helpers.MustParseTime("2024-05-28")))
	assert.True(t, dates[3].Equal(helpers.MustParseTime("2024-05-31")))
}

func TestFuelEstimateRepository_DatesToEstimateWithoutPositions(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	v := helpers.CreateTestMaruVessel(5)
	require.NoError(t, store.SaveVessel(ctx, v))

	// Act
	dates, err := store.DatesToEstimate(ctx, v.ID, v.EngineVersion, helpers.MustParseTime("2024-05-31"))

	// Assert
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestFuelEstimateRepository_DatesToEstimateUnknownVessel(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)

	// Act
	_, err := store.DatesToEstimate(context.Background(), 99, 1, helpers.MustParseTime("2024-05-31"))

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vessel not found")
}

func TestFuelEstimateRepository_EstimatedDatesAreSkippedPerEngineVersion(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	v := helpers.CreateTestMaruVessel(5)
	require.NoError(t, store.SaveVessel(ctx, v))
	require.NoError(t, store.AddPositions(ctx, v, helpers.Track(helpers.MustParseTime("2024-05-29 10:00"), 2, time.Hour, 8)))
	end := helpers.MustParseTime("2024-05-31")

	// Act
	err := store.AddFuelEstimates(ctx, []fuel.DayEstimate{
		{VesselID: v.ID, Date: helpers.MustParseTime("2024-05-29"), EngineVersion: 1, Liters: 120, AISPositions: 2},
		{VesselID: v.ID, Date: helpers.MustParseTime("2024-05-30"), EngineVersion: 1, Liters: 0},
	})

	// Assert
	require.NoError(t, err)

	remaining, err := store.DatesToEstimate(ctx, v.ID, 1, end)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.True(t, remaining[0].Equal(end))

	nextVersion, err := store.DatesToEstimate(ctx, v.ID, 2, end)
	require.NoError(t, err)
	assert.Len(t, nextVersion, 3, "a new engine version starts from scratch")
}

func TestFuelEstimateRepository_AddFuelEstimatesUpserts(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	day := helpers.MustParseTime("2024-05-29")
	require.NoError(t, store.AddFuelEstimates(ctx, []fuel.DayEstimate{
		{VesselID: 5, Date: day, EngineVersion: 1, Liters: 120, AISPositions: 2},
	}))

	// Act
	err := store.AddFuelEstimates(ctx, []fuel.DayEstimate{
		{VesselID: 5, Date: day.Add(6 * time.Hour), EngineVersion: 1, Liters: 180, AISPositions: 3, VMSPositions: 1},
		{VesselID: 5, Date: day, EngineVersion: 2, Liters: 90},
	})

	// Assert
	require.NoError(t, err)
	estimates, err := store.FuelEstimates(ctx, 5, shared.Closed(day, day))
	require.NoError(t, err)
	require.Len(t, estimates, 2)
	assert.Equal(t, 1, estimates[0].EngineVersion)
	assert.InDelta(t, 180.0, estimates[0].Liters, 1e-9)
	assert.Equal(t, 3, estimates[0].AISPositions)
	assert.Equal(t, 1, estimates[0].VMSPositions)
	assert.True(t, estimates[0].Date.Equal(day), "dates are stored as the start of the day")
	assert.Equal(t, 2, estimates[1].EngineVersion)
}

func TestFuelEstimateRepository_FuelEstimatesFiltersByRange(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddFuelEstimates(ctx, []fuel.DayEstimate{
		{VesselID: 5, Date: helpers.MustParseTime("2024-05-28"), EngineVersion: 1, Liters: 10},
		{VesselID: 5, Date: helpers.MustParseTime("2024-05-29"), EngineVersion: 1, Liters: 20},
		{VesselID: 5, Date: helpers.MustParseTime("2024-05-30"), EngineVersion: 1, Liters: 30},
		{VesselID: 6, Date: helpers.MustParseTime("2024-05-29"), EngineVersion: 1, Liters: 40},
	}))

	// Act
	estimates, err := store.FuelEstimates(ctx, 5, shared.ClosedOpen(helpers.MustParseTime("2024-05-29"), helpers.MustParseTime("2024-05-30")))

	// Assert
	require.NoError(t, err)
	require.Len(t, estimates, 1)
	assert.InDelta(t, 20.0, estimates[0].Liters, 1e-9)
}
