package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
)

const rangeTimeLayout = "2006-01-02 15:04"

type dateRangeContext struct {
	rng shared.DateRange
	err error
}

func (dc *dateRangeContext) reset() {
	dc.rng = shared.DateRange{}
	dc.err = nil
}

// InitializeDateRangeScenario registers date range step definitions
func InitializeDateRangeScenario(ctx *godog.ScenarioContext) {
	dc := &dateRangeContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		dc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the date range "([^"]*)"$`, dc.theDateRange)

	// When steps
	ctx.Step(`^a date range from "([^"]*)" to "([^"]*)" is created$`, dc.aDateRangeIsCreated)

	// Then steps
	ctx.Step(`^the date range should contain "([^"]*)"$`, dc.shouldContain)
	ctx.Step(`^the date range should not contain "([^"]*)"$`, dc.shouldNotContain)
	ctx.Step(`^the date range should overlap "([^"]*)"$`, dc.shouldOverlap)
	ctx.Step(`^the date range should not overlap "([^"]*)"$`, dc.shouldNotOverlap)
	ctx.Step(`^the date range should be rejected as invalid$`, dc.shouldBeRejected)
}

// parseDateRange reads interval notation such as "[2024-01-01 06:00, ∞)"
func parseDateRange(s string) (shared.DateRange, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return shared.DateRange{}, fmt.Errorf("invalid range %q", s)
	}
	open, closing := s[0], s[len(s)-1]
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return shared.DateRange{}, fmt.Errorf("invalid range %q", s)
	}

	start, err := time.Parse(rangeTimeLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return shared.DateRange{}, fmt.Errorf("invalid range start: %w", err)
	}
	startBound := shared.BoundInclusive
	if open == '(' {
		startBound = shared.BoundExclusive
	}

	endText := strings.TrimSpace(parts[1])
	if endText == "∞" {
		return shared.DateRange{Start: start, StartBound: startBound, EndBound: shared.BoundUnbounded}, nil
	}
	end, err := time.Parse(rangeTimeLayout, endText)
	if err != nil {
		return shared.DateRange{}, fmt.Errorf("invalid range end: %w", err)
	}
	endBound := shared.BoundExclusive
	if closing == ']' {
		endBound = shared.BoundInclusive
	}
	return shared.NewDateRange(start, end, startBound, endBound)
}

// ============================================================================
// Given / When steps
// ============================================================================

func (dc *dateRangeContext) theDateRange(notation string) error {
	rng, err := parseDateRange(notation)
	if err != nil {
		return err
	}
	dc.rng = rng
	return nil
}

func (dc *dateRangeContext) aDateRangeIsCreated(start, end string) error {
	s, err := time.Parse(rangeTimeLayout, start)
	if err != nil {
		return err
	}
	e, err := time.Parse(rangeTimeLayout, end)
	if err != nil {
		return err
	}
	dc.rng, dc.err = shared.NewDateRange(s, e, shared.BoundInclusive, shared.BoundInclusive)
	return nil
}

// ============================================================================
// Then steps
// ============================================================================

func (dc *dateRangeContext) shouldContain(instant string) error {
	t, err := time.Parse(rangeTimeLayout, instant)
	if err != nil {
		return err
	}
	if !dc.rng.Contains(t) {
		return fmt.Errorf("expected %s to contain %s", dc.rng, instant)
	}
	return nil
}

func (dc *dateRangeContext) shouldNotContain(instant string) error {
	t, err := time.Parse(rangeTimeLayout, instant)
	if err != nil {
		return err
	}
	if dc.rng.Contains(t) {
		return fmt.Errorf("expected %s not to contain %s", dc.rng, instant)
	}
	return nil
}

func (dc *dateRangeContext) shouldOverlap(notation string) error {
	other, err := parseDateRange(notation)
	if err != nil {
		return err
	}
	if !dc.rng.Overlaps(other) || !other.Overlaps(dc.rng) {
		return fmt.Errorf("expected %s and %s to overlap", dc.rng, other)
	}
	return nil
}

func (dc *dateRangeContext) shouldNotOverlap(notation string) error {
	other, err := parseDateRange(notation)
	if err != nil {
		return err
	}
	if dc.rng.Overlaps(other) || other.Overlaps(dc.rng) {
		return fmt.Errorf("expected %s and %s not to overlap", dc.rng, other)
	}
	return nil
}

func (dc *dateRangeContext) shouldBeRejected() error {
	var invalid *shared.InvalidRangeError
	if !errors.As(dc.err, &invalid) {
		return fmt.Errorf("expected an invalid range error, got %v", dc.err)
	}
	return nil
}
