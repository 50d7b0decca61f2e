package steps

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/fishtrack-go/internal/domain/fuel"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
	"github.com/andrescamacho/fishtrack-go/test/helpers"
)

type fuelEstimatorContext struct {
	estimator *fuel.Estimator
	params    fuel.Params
	points    []fuel.Point
	result    fuel.Result
	hauling   fuel.Result
}

func (ec *fuelEstimatorContext) reset() {
	ec.estimator = fuel.NewEstimator()
	ec.params = fuel.Params{}
	ec.points = nil
	ec.result = fuel.Result{}
	ec.hauling = fuel.Result{}
}

// InitializeFuelEstimatorScenario registers estimator step definitions
func InitializeFuelEstimatorScenario(ctx *godog.ScenarioContext) {
	ec := &fuelEstimatorContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		ec.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an estimator profile for a "(maru|holtrop)" vessel$`, ec.anEstimatorProfile)
	ctx.Step(`^an estimator profile for a "holtrop" vessel without hull dimensions$`, ec.aHoltropProfileWithoutHull)
	ctx.Step(`^an estimator profile for a "maru" vessel without engines$`, ec.aProfileWithoutEngines)
	ctx.Step(`^an estimator track of (\d+) hourly points? at (\d+) knots$`, ec.anEstimatorTrack)
	ctx.Step(`^point (\d+) of the estimator track jumps (\d+) degrees north$`, ec.pointJumpsNorth)

	// When steps
	ctx.Step(`^the track is estimated$`, ec.theTrackIsEstimated)
	ctx.Step(`^the track is estimated while steaming and while hauling$`, ec.theTrackIsEstimatedBothWays)

	// Then steps
	ctx.Step(`^the cumulative fuel should start at zero and never decrease$`, ec.cumulativeShouldBeMonotonic)
	ctx.Step(`^the estimated total should be positive$`, ec.totalShouldBePositive)
	ctx.Step(`^the estimated total should be zero$`, ec.totalShouldBeZero)
	ctx.Step(`^the estimator should have used the "([^"]*)" model$`, ec.shouldHaveUsedModel)
	ctx.Step(`^the estimator should have pruned (\d+) points?$`, ec.shouldHavePruned)
	ctx.Step(`^point (\d+) of the estimator track should be dropped$`, ec.pointShouldBeDropped)
	ctx.Step(`^the hauling estimate should exceed the steaming estimate$`, ec.haulingShouldExceedSteaming)
	ctx.Step(`^the estimate should equal a single segment from the first to the last point$`, ec.estimateShouldEqualSingleSegment)
	ctx.Step(`^the final cumulative fuel should equal the sum of the kept segments$`, ec.finalCumulativeShouldEqualKeptSegments)
}

// ============================================================================
// Given steps
// ============================================================================

func (ec *fuelEstimatorContext) anEstimatorProfile(model string) error {
	if vessel.FuelModel(model) == vessel.FuelModelHoltrop {
		ec.params = fuel.ParamsFromVessel(helpers.CreateTestHoltropVessel(1, true))
		return nil
	}
	ec.params = fuel.ParamsFromVessel(helpers.CreateTestMaruVessel(1))
	return nil
}

func (ec *fuelEstimatorContext) aHoltropProfileWithoutHull() error {
	ec.params = fuel.ParamsFromVessel(helpers.CreateTestHoltropVessel(1, false))
	return nil
}

func (ec *fuelEstimatorContext) aProfileWithoutEngines() error {
	v := helpers.CreateTestMaruVessel(1)
	v.Engines = nil
	ec.params = fuel.ParamsFromVessel(v)
	return nil
}

func (ec *fuelEstimatorContext) anEstimatorTrack(count, knots int) error {
	start := helpers.MustParseTime("2024-05-30 00:00")
	ec.points = fuel.PointsFromPositions(helpers.Track(start, count, time.Hour, float64(knots)))
	return nil
}

func (ec *fuelEstimatorContext) pointJumpsNorth(n, degrees int) error {
	if n < 1 || n > len(ec.points) {
		return fmt.Errorf("track has no point %d", n)
	}
	ec.points[n-1].Latitude += float64(degrees)
	return nil
}

// ============================================================================
// When steps
// ============================================================================

func (ec *fuelEstimatorContext) theTrackIsEstimated() error {
	ec.result = ec.estimator.Estimate(ec.points, ec.params)
	return nil
}

func (ec *fuelEstimatorContext) theTrackIsEstimatedBothWays() error {
	ec.result = ec.estimator.Estimate(ec.points, ec.params)

	gear := "bottom trawl"
	hauling := make([]fuel.Point, len(ec.points))
	copy(hauling, ec.points)
	for i := range hauling {
		hauling[i].ActiveGear = &gear
	}
	ec.hauling = ec.estimator.Estimate(hauling, ec.params)
	return nil
}

// ============================================================================
// Then steps
// ============================================================================

func (ec *fuelEstimatorContext) cumulativeShouldBeMonotonic() error {
	if len(ec.result.Cumulative) != len(ec.points) {
		return fmt.Errorf("expected %d cumulative values, got %d", len(ec.points), len(ec.result.Cumulative))
	}
	if len(ec.result.Cumulative) > 0 && ec.result.Cumulative[0] != 0 {
		return fmt.Errorf("expected the curve to start at zero, got %.4f", ec.result.Cumulative[0])
	}
	for i := 1; i < len(ec.result.Cumulative); i++ {
		if ec.result.Cumulative[i] < ec.result.Cumulative[i-1] {
			return fmt.Errorf("cumulative fuel decreased at point %d: %.4f < %.4f",
				i+1, ec.result.Cumulative[i], ec.result.Cumulative[i-1])
		}
	}
	return nil
}

func (ec *fuelEstimatorContext) totalShouldBePositive() error {
	if ec.result.Total <= 0 {
		return fmt.Errorf("expected a positive total, got %.4f", ec.result.Total)
	}
	return nil
}

func (ec *fuelEstimatorContext) totalShouldBeZero() error {
	if ec.result.Total != 0 {
		return fmt.Errorf("expected zero fuel, got %.4f", ec.result.Total)
	}
	return nil
}

func (ec *fuelEstimatorContext) shouldHaveUsedModel(model string) error {
	if string(ec.result.Model) != model {
		return fmt.Errorf("expected the %s model, got %s", model, ec.result.Model)
	}
	return nil
}

func (ec *fuelEstimatorContext) shouldHavePruned(expected int) error {
	if ec.result.Pruned != expected {
		return fmt.Errorf("expected %d pruned points, got %d", expected, ec.result.Pruned)
	}
	return nil
}

func (ec *fuelEstimatorContext) pointShouldBeDropped(n int) error {
	if n < 1 || n > len(ec.result.Kept) {
		return fmt.Errorf("track has no point %d", n)
	}
	if ec.result.Kept[n-1] {
		return fmt.Errorf("expected point %d to be dropped", n)
	}
	return nil
}

func (ec *fuelEstimatorContext) haulingShouldExceedSteaming() error {
	if ec.hauling.Total <= ec.result.Total {
		return fmt.Errorf("expected hauling (%.4f) to exceed steaming (%.4f)", ec.hauling.Total, ec.result.Total)
	}
	return nil
}

func (ec *fuelEstimatorContext) estimateShouldEqualSingleSegment() error {
	if len(ec.points) < 2 {
		return fmt.Errorf("track has %d points, no segment", len(ec.points))
	}
	direct := ec.estimator.Estimate([]fuel.Point{ec.points[0], ec.points[len(ec.points)-1]}, ec.params)
	if !closeTo(ec.result.Total, direct.Total) {
		return fmt.Errorf("expected %.6f, the single segment burns %.6f", ec.result.Total, direct.Total)
	}
	return nil
}

func (ec *fuelEstimatorContext) finalCumulativeShouldEqualKeptSegments() error {
	if len(ec.result.Cumulative) == 0 {
		return fmt.Errorf("nothing was estimated")
	}

	sum := 0.0
	last := -1
	for i, kept := range ec.result.Kept {
		if !kept {
			continue
		}
		if last >= 0 {
			sum += ec.estimator.Estimate([]fuel.Point{ec.points[last], ec.points[i]}, ec.params).Total
		}
		last = i
	}

	final := ec.result.Cumulative[len(ec.result.Cumulative)-1]
	if !closeTo(final, sum) || !closeTo(final, ec.result.Total) {
		return fmt.Errorf("final cumulative %.6f, kept segments sum to %.6f, total %.6f", final, sum, ec.result.Total)
	}
	return nil
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}
