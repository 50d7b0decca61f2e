package shared

import (
	"fmt"
	"time"
)

// DomainError is the base error type for all domain errors
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// ValidationError rejects an unknown or malformed input value
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Vessel errors

// VesselError wraps a failure that happened while processing a single vessel.
// The pipeline isolates these: the vessel is skipped and the pass continues.
type VesselError struct {
	*DomainError
	VesselID int64
	Err      error
}

func NewVesselError(vesselID int64, op string, err error) *VesselError {
	return &VesselError{
		DomainError: &DomainError{Message: fmt.Sprintf("vessel %d: %s: %v", vesselID, op, err)},
		VesselID:    vesselID,
		Err:         err,
	}
}

func (e *VesselError) Unwrap() error {
	return e.Err
}

// TripConflictError signals that new trips overlapped committed trips while the
// conflict strategy said no conflict was expected. It is a defect upstream, not a
// storage failure.
type TripConflictError struct {
	*DomainError
	VesselID      int64
	ExistingStart time.Time
	ExistingEnd   time.Time
}

func NewTripConflictError(vesselID int64, existingStart, existingEnd time.Time) *TripConflictError {
	return &TripConflictError{
		DomainError: &DomainError{Message: fmt.Sprintf(
			"vessel %d: new trip overlaps committed trip [%s, %s] without a declared conflict",
			vesselID,
			existingStart.Format(time.RFC3339),
			existingEnd.Format(time.RFC3339),
		)},
		VesselID:      vesselID,
		ExistingStart: existingStart,
		ExistingEnd:   existingEnd,
	}
}

// InvalidRangeError is returned when a DateRange would end before it starts
type InvalidRangeError struct {
	*DomainError
	Start time.Time
	End   time.Time
}

func NewInvalidRangeError(start, end time.Time) *InvalidRangeError {
	return &InvalidRangeError{
		DomainError: &DomainError{Message: fmt.Sprintf("invalid range: end %s precedes start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))},
		Start: start,
		End:   end,
	}
}
