package shared

import (
	"fmt"
	"time"
)

// LifecycleStatus represents the state of a batch run
type LifecycleStatus string

const (
	LifecycleStatusPending   LifecycleStatus = "PENDING"
	LifecycleStatusRunning   LifecycleStatus = "RUNNING"
	LifecycleStatusCompleted LifecycleStatus = "COMPLETED"
	LifecycleStatusFailed    LifecycleStatus = "FAILED"
)

// LifecycleStateMachine manages PENDING → RUNNING → COMPLETED/FAILED.
// Timestamps come from the injected clock.
type LifecycleStateMachine struct {
	status    LifecycleStatus
	startedAt *time.Time
	stoppedAt *time.Time
	lastError error
	clock     Clock
}

// NewLifecycleStateMachine creates a state machine in PENDING state
func NewLifecycleStateMachine(clock Clock) *LifecycleStateMachine {
	if clock == nil {
		clock = NewRealClock()
	}
	return &LifecycleStateMachine{status: LifecycleStatusPending, clock: clock}
}

func (sm *LifecycleStateMachine) Status() LifecycleStatus { return sm.status }
func (sm *LifecycleStateMachine) StartedAt() *time.Time   { return sm.startedAt }
func (sm *LifecycleStateMachine) StoppedAt() *time.Time   { return sm.stoppedAt }
func (sm *LifecycleStateMachine) LastError() error        { return sm.lastError }

// Start transitions from PENDING to RUNNING
func (sm *LifecycleStateMachine) Start() error {
	if sm.status != LifecycleStatusPending {
		return fmt.Errorf("cannot start from %s state", sm.status)
	}
	now := sm.clock.Now()
	sm.status = LifecycleStatusRunning
	sm.startedAt = &now
	return nil
}

// Complete transitions from RUNNING to COMPLETED
func (sm *LifecycleStateMachine) Complete() error {
	if sm.status != LifecycleStatusRunning {
		return fmt.Errorf("cannot complete from %s state", sm.status)
	}
	now := sm.clock.Now()
	sm.status = LifecycleStatusCompleted
	sm.stoppedAt = &now
	return nil
}

// Fail transitions to FAILED from any non-terminal state
func (sm *LifecycleStateMachine) Fail(err error) error {
	if sm.IsFinished() {
		return fmt.Errorf("cannot fail from %s state", sm.status)
	}
	now := sm.clock.Now()
	sm.status = LifecycleStatusFailed
	sm.lastError = err
	sm.stoppedAt = &now
	return nil
}

// IsFinished returns true once the run has completed or failed
func (sm *LifecycleStateMachine) IsFinished() bool {
	return sm.status == LifecycleStatusCompleted || sm.status == LifecycleStatusFailed
}

// RuntimeDuration is how long the run has been or was running
func (sm *LifecycleStateMachine) RuntimeDuration() time.Duration {
	if sm.startedAt == nil {
		return 0
	}
	end := sm.clock.Now()
	if sm.stoppedAt != nil {
		end = *sm.stoppedAt
	}
	return end.Sub(*sm.startedAt)
}

// RecoverFromPersistence restores state read from storage
func (sm *LifecycleStateMachine) RecoverFromPersistence(status LifecycleStatus, startedAt, stoppedAt *time.Time, lastError error) {
	sm.status = status
	sm.startedAt = startedAt
	sm.stoppedAt = stoppedAt
	sm.lastError = lastError
}
