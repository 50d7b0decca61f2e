package trip

import (
	"fmt"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
)

// ComputationStep is one enrichment stage of the trip pipeline. The set is
// closed and the declared order is the execution order.
type ComputationStep int

const (
	StepPrecision ComputationStep = iota
	StepDistance
	StepPositionLayers
	StepCargoWeight
	StepFuelConsumption
)

// ComputationSteps lists every step in execution order
var ComputationSteps = []ComputationStep{
	StepPrecision,
	StepDistance,
	StepPositionLayers,
	StepCargoWeight,
	StepFuelConsumption,
}

func (s ComputationStep) String() string {
	switch s {
	case StepPrecision:
		return "precision"
	case StepDistance:
		return "distance"
	case StepPositionLayers:
		return "position_layers"
	case StepCargoWeight:
		return "cargo_weight"
	case StepFuelConsumption:
		return "fuel_consumption"
	default:
		return fmt.Sprintf("ComputationStep(%d)", int(s))
	}
}

// ParseComputationStep is the inverse of String
func ParseComputationStep(s string) (ComputationStep, error) {
	for _, step := range ComputationSteps {
		if step.String() == s {
			return step, nil
		}
	}
	return 0, shared.NewValidationError("step", fmt.Sprintf("unknown computation step %q", s))
}

// ProcessingStatus is the tri-state outcome of a step for one trip
type ProcessingStatus string

const (
	StatusUnprocessed ProcessingStatus = "unprocessed"
	// StatusAttempted means the step ran but its input was insufficient
	StatusAttempted  ProcessingStatus = "attempted"
	StatusSuccessful ProcessingStatus = "successful"
)

// Done reports whether the step has run, successfully or not
func (s ProcessingStatus) Done() bool {
	return s == StatusAttempted || s == StatusSuccessful
}

// StepStatuses holds one status per computation step
type StepStatuses struct {
	Precision       ProcessingStatus
	Distance        ProcessingStatus
	PositionLayers  ProcessingStatus
	CargoWeight     ProcessingStatus
	FuelConsumption ProcessingStatus
}

// UnprocessedStatuses returns statuses with every step unprocessed
func UnprocessedStatuses() StepStatuses {
	return StepStatuses{
		Precision:       StatusUnprocessed,
		Distance:        StatusUnprocessed,
		PositionLayers:  StatusUnprocessed,
		CargoWeight:     StatusUnprocessed,
		FuelConsumption: StatusUnprocessed,
	}
}

func (s StepStatuses) Get(step ComputationStep) ProcessingStatus {
	switch step {
	case StepPrecision:
		return s.Precision
	case StepDistance:
		return s.Distance
	case StepPositionLayers:
		return s.PositionLayers
	case StepCargoWeight:
		return s.CargoWeight
	case StepFuelConsumption:
		return s.FuelConsumption
	default:
		return StatusUnprocessed
	}
}

func (s *StepStatuses) Set(step ComputationStep, status ProcessingStatus) {
	switch step {
	case StepPrecision:
		s.Precision = status
	case StepDistance:
		s.Distance = status
	case StepPositionLayers:
		s.PositionLayers = status
	case StepCargoWeight:
		s.CargoWeight = status
	case StepFuelConsumption:
		s.FuelConsumption = status
	}
}

// FirstIncomplete returns the earliest step that has not run
func (s StepStatuses) FirstIncomplete() (ComputationStep, bool) {
	for _, step := range ComputationSteps {
		if !s.Get(step).Done() {
			return step, true
		}
	}
	return 0, false
}

// InvalidateFrom marks step and every later step as unprocessed
func (s *StepStatuses) InvalidateFrom(step ComputationStep) {
	for _, st := range ComputationSteps {
		if st >= step {
			s.Set(st, StatusUnprocessed)
		}
	}
}

// PruneCounts records how many raw positions each position layer removed
type PruneCounts struct {
	DuplicateTimestamps int `json:"duplicate_timestamps"`
	UnrealisticSpeed    int `json:"unrealistic_speed"`
}

// Total returns the number of pruned positions
func (p PruneCounts) Total() int {
	return p.DuplicateTimestamps + p.UnrealisticSpeed
}
