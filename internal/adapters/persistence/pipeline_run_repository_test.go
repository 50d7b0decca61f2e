package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/fishtrack-go/internal/domain/run"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/test/helpers"
)

func finishedRun(t *testing.T, clock *shared.MockClock, id string, kind run.Kind, failure error) *run.PipelineRun {
	t.Helper()
	pr := run.NewPipelineRun(id, kind, clock)
	require.NoError(t, pr.Start())
	clock.Advance(time.Minute)
	if failure != nil {
		require.NoError(t, pr.Fail(run.Counters{Failures: 1}, failure))
	} else {
		require.NoError(t, pr.Complete(run.Counters{VesselsProcessed: 2, FuelEstimates: 4}))
	}
	clock.Advance(time.Hour)
	return pr
}

func TestPipelineRunRepository_LastRunWithoutHistory(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)

	// Act
	last, err := store.LastRun(context.Background(), run.KindFuel)

	// Assert
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestPipelineRunRepository_LastRunIgnoresFailedRuns(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	clock := shared.NewMockClock(helpers.MustParseTime("2024-06-01 00:00"))
	require.NoError(t, store.AddRun(ctx, finishedRun(t, clock, "fuel-1", run.KindFuel, nil)))
	require.NoError(t, store.AddRun(ctx, finishedRun(t, clock, "fuel-2", run.KindFuel, nil)))
	require.NoError(t, store.AddRun(ctx, finishedRun(t, clock, "fuel-3", run.KindFuel, errors.New("database unavailable"))))
	require.NoError(t, store.AddRun(ctx, finishedRun(t, clock, "trips-1", run.KindTrips, nil)))

	// Act
	last, err := store.LastRun(ctx, run.KindFuel)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "fuel-2", last.ID())
	assert.Equal(t, shared.LifecycleStatusCompleted, last.Status())
	assert.Equal(t, 4, last.Counters().FuelEstimates)
	require.NotNil(t, last.FinishedAt())
	assert.True(t, last.FinishedAt().Equal(helpers.MustParseTime("2024-06-01 01:02")))
}

func TestPipelineRunRepository_ListRunsNewestFirst(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	clock := shared.NewMockClock(helpers.MustParseTime("2024-06-01 00:00"))
	for _, id := range []string{"trips-1", "trips-2", "trips-3"} {
		require.NoError(t, store.AddRun(ctx, finishedRun(t, clock, id, run.KindTrips, nil)))
	}
	require.NoError(t, store.AddRun(ctx, finishedRun(t, clock, "trips-4", run.KindTrips, errors.New("worker pool exhausted"))))

	// Act
	runs, err := store.ListRuns(ctx, run.KindTrips, 2)

	// Assert
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "trips-4", runs[0].ID())
	assert.Equal(t, shared.LifecycleStatusFailed, runs[0].Status())
	assert.Equal(t, "worker pool exhausted", runs[0].Error())
	assert.Equal(t, "trips-3", runs[1].ID())
}

func TestPipelineRunRepository_AddRunUpdatesExistingRow(t *testing.T) {
	// Arrange
	store := helpers.NewTestStore(t)
	ctx := context.Background()
	clock := shared.NewMockClock(helpers.MustParseTime("2024-06-01 00:00"))
	pr := run.NewPipelineRun("trips-1", run.KindTrips, clock)
	require.NoError(t, pr.Start())
	require.NoError(t, store.AddRun(ctx, pr))

	// Act
	clock.Advance(time.Minute)
	require.NoError(t, pr.Complete(run.Counters{TripsCreated: 7}))
	require.NoError(t, store.AddRun(ctx, pr))

	// Assert
	runs, err := store.ListRuns(ctx, run.KindTrips, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, shared.LifecycleStatusCompleted, runs[0].Status())
	assert.Equal(t, 7, runs[0].Counters().TripsCreated)
}
