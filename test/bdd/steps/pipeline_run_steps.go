package steps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/fishtrack-go/internal/domain/run"
	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
)

type pipelineRunContext struct {
	run             *run.PipelineRun
	clock           *shared.MockClock
	transitionError error
}

func (rc *pipelineRunContext) reset() {
	rc.run = nil
	rc.clock = shared.NewMockClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	rc.transitionError = nil
}

// InitializePipelineRunScenario registers pipeline run lifecycle step definitions
func InitializePipelineRunScenario(ctx *godog.ScenarioContext) {
	rc := &pipelineRunContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		rc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a new "(trips|fuel)" pipeline run$`, rc.aNewPipelineRun)

	// When steps
	ctx.Step(`^the pipeline run starts$`, rc.theRunStarts)
	ctx.Step(`^(\d+) seconds pass on the run clock$`, rc.secondsPass)
	ctx.Step(`^the pipeline run completes with (\d+) trips? created$`, rc.theRunCompletes)
	ctx.Step(`^the pipeline run fails with "([^"]*)"$`, rc.theRunFails)

	// Then steps
	ctx.Step(`^the pipeline run status should be "([^"]*)"$`, rc.statusShouldBe)
	ctx.Step(`^the pipeline run runtime should be (\d+) seconds$`, rc.runtimeShouldBe)
	ctx.Step(`^the pipeline run should count (\d+) trips? created$`, rc.shouldCountTripsCreated)
	ctx.Step(`^the pipeline run error should be "([^"]*)"$`, rc.errorShouldBe)
	ctx.Step(`^the pipeline run transition should be rejected$`, rc.transitionShouldBeRejected)
}

// Given steps

func (rc *pipelineRunContext) aNewPipelineRun(kind string) error {
	rc.run = run.NewPipelineRun(kind+"-1", run.Kind(kind), rc.clock)
	return nil
}

// When steps

func (rc *pipelineRunContext) theRunStarts() error {
	rc.transitionError = rc.run.Start()
	return nil
}

func (rc *pipelineRunContext) secondsPass(seconds int) error {
	rc.clock.Advance(time.Duration(seconds) * time.Second)
	return nil
}

func (rc *pipelineRunContext) theRunCompletes(trips int) error {
	rc.transitionError = rc.run.Complete(run.Counters{TripsCreated: trips})
	return nil
}

func (rc *pipelineRunContext) theRunFails(message string) error {
	rc.transitionError = rc.run.Fail(run.Counters{Failures: 1}, errors.New(message))
	return nil
}

// Then steps

func (rc *pipelineRunContext) statusShouldBe(expected string) error {
	if got := rc.run.Status(); string(got) != expected {
		return fmt.Errorf("expected status %s, got %s", expected, got)
	}
	return nil
}

func (rc *pipelineRunContext) runtimeShouldBe(seconds int) error {
	expected := time.Duration(seconds) * time.Second
	if got := rc.run.Runtime(); got != expected {
		return fmt.Errorf("expected runtime %s, got %s", expected, got)
	}
	return nil
}

func (rc *pipelineRunContext) shouldCountTripsCreated(expected int) error {
	if got := rc.run.Counters().TripsCreated; got != expected {
		return fmt.Errorf("expected %d trips created, got %d", expected, got)
	}
	return nil
}

func (rc *pipelineRunContext) errorShouldBe(expected string) error {
	if got := rc.run.Error(); got != expected {
		return fmt.Errorf("expected error %q, got %q", expected, got)
	}
	return nil
}

func (rc *pipelineRunContext) transitionShouldBeRejected() error {
	if rc.transitionError == nil {
		return fmt.Errorf("expected the transition to be rejected")
	}
	return nil
}
