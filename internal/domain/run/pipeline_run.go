package run

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
)

// Kind identifies the batch job a run belongs to
type Kind string

const (
	KindTrips Kind = "trips"
	KindFuel  Kind = "fuel"
)

// Counters are the aggregate numbers a batch pass reports
type Counters struct {
	VesselsProcessed     int `json:"vessels_processed"`
	TripsCreated         int `json:"trips_created"`
	ConflictsResolved    int `json:"conflicts_resolved"`
	NoPriorState         int `json:"no_prior_state"`
	Resets               int `json:"resets"`
	UnprocessedCompleted int `json:"unprocessed_completed"`
	FuelEstimates        int `json:"fuel_estimates"`
	Failures             int `json:"failures"`
}

// PipelineRun is one execution of a batch job
type PipelineRun struct {
	id        string
	kind      Kind
	counters  Counters
	lifecycle *shared.LifecycleStateMachine
}

// NewPipelineRun creates a pending run
func NewPipelineRun(id string, kind Kind, clock shared.Clock) *PipelineRun {
	return &PipelineRun{
		id:        id,
		kind:      kind,
		lifecycle: shared.NewLifecycleStateMachine(clock),
	}
}

// RestorePipelineRun rebuilds a run read from storage
func RestorePipelineRun(id string, kind Kind, status shared.LifecycleStatus, startedAt, finishedAt *time.Time, counters Counters, lastError string) *PipelineRun {
	r := NewPipelineRun(id, kind, nil)
	var err error
	if lastError != "" {
		err = fmt.Errorf("%s", lastError)
	}
	r.lifecycle.RecoverFromPersistence(status, startedAt, finishedAt, err)
	r.counters = counters
	return r
}

func (r *PipelineRun) ID() string                     { return r.id }
func (r *PipelineRun) Kind() Kind                     { return r.kind }
func (r *PipelineRun) Counters() Counters             { return r.counters }
func (r *PipelineRun) Status() shared.LifecycleStatus { return r.lifecycle.Status() }
func (r *PipelineRun) StartedAt() *time.Time          { return r.lifecycle.StartedAt() }
func (r *PipelineRun) FinishedAt() *time.Time         { return r.lifecycle.StoppedAt() }
func (r *PipelineRun) Runtime() time.Duration         { return r.lifecycle.RuntimeDuration() }

func (r *PipelineRun) Error() string {
	if err := r.lifecycle.LastError(); err != nil {
		return err.Error()
	}
	return ""
}

func (r *PipelineRun) Start() error {
	return r.lifecycle.Start()
}

// Complete finishes the run with its counters
func (r *PipelineRun) Complete(counters Counters) error {
	if err := r.lifecycle.Complete(); err != nil {
		return err
	}
	r.counters = counters
	return nil
}

// Fail finishes the run with whatever was counted before the failure
func (r *PipelineRun) Fail(counters Counters, cause error) error {
	if err := r.lifecycle.Fail(cause); err != nil {
		return err
	}
	r.counters = counters
	return nil
}

// Repository persists runs. LastRun drives the fuel job rate limit.
type Repository interface {
	// LastRun returns the latest completed run of the kind, nil if none
	LastRun(ctx context.Context, kind Kind) (*PipelineRun, error)
	AddRun(ctx context.Context, r *PipelineRun) error
}
