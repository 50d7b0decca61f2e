package shared

import (
	"fmt"
	"time"
)

// Bound describes how one side of a DateRange treats its instant
type Bound string

const (
	BoundInclusive Bound = "inclusive"
	BoundExclusive Bound = "exclusive"
	BoundUnbounded Bound = "unbounded"
)

// DateRange is an immutable time interval with explicit bounds.
//
// ERS trips are [start, end), landing trips are (previous landing, landing],
// and open-ended queries use an unbounded end.
type DateRange struct {
	Start      time.Time
	End        time.Time
	StartBound Bound
	EndBound   Bound
}

// NewDateRange creates a range, rejecting an end that precedes the start
func NewDateRange(start, end time.Time, startBound, endBound Bound) (DateRange, error) {
	if startBound != BoundUnbounded && endBound != BoundUnbounded && end.Before(start) {
		return DateRange{}, NewInvalidRangeError(start, end)
	}
	return DateRange{
		Start:      start.UTC(),
		End:        end.UTC(),
		StartBound: startBound,
		EndBound:   endBound,
	}, nil
}

// ClosedOpen returns [start, end)
func ClosedOpen(start, end time.Time) DateRange {
	return DateRange{Start: start.UTC(), End: end.UTC(), StartBound: BoundInclusive, EndBound: BoundExclusive}
}

// OpenClosed returns (start, end]
func OpenClosed(start, end time.Time) DateRange {
	return DateRange{Start: start.UTC(), End: end.UTC(), StartBound: BoundExclusive, EndBound: BoundInclusive}
}

// Closed returns [start, end]
func Closed(start, end time.Time) DateRange {
	return DateRange{Start: start.UTC(), End: end.UTC(), StartBound: BoundInclusive, EndBound: BoundInclusive}
}

// From returns [start, ∞)
func From(start time.Time) DateRange {
	return DateRange{Start: start.UTC(), StartBound: BoundInclusive, EndBound: BoundUnbounded}
}

// Unbounded reports whether the range has no end
func (r DateRange) Unbounded() bool {
	return r.EndBound == BoundUnbounded
}

// Contains reports whether t lies inside the range
func (r DateRange) Contains(t time.Time) bool {
	switch r.StartBound {
	case BoundInclusive:
		if t.Before(r.Start) {
			return false
		}
	case BoundExclusive:
		if !t.After(r.Start) {
			return false
		}
	}
	switch r.EndBound {
	case BoundInclusive:
		return !t.After(r.End)
	case BoundExclusive:
		return t.Before(r.End)
	}
	return true
}

// Overlaps reports whether the two ranges share any instant.
// Ranges that only touch at an excluded endpoint do not overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.endsAfterStartOf(other) && other.endsAfterStartOf(r)
}

func (r DateRange) endsAfterStartOf(other DateRange) bool {
	if r.Unbounded() || other.StartBound == BoundUnbounded {
		return true
	}
	if r.End.After(other.Start) {
		return true
	}
	if r.End.Equal(other.Start) {
		return r.EndBound == BoundInclusive && other.StartBound == BoundInclusive
	}
	return false
}

// Duration returns the length of a bounded range, zero when unbounded
func (r DateRange) Duration() time.Duration {
	if r.Unbounded() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Equal compares instants and bounds
func (r DateRange) Equal(other DateRange) bool {
	if r.StartBound != other.StartBound || r.EndBound != other.EndBound {
		return false
	}
	if !r.Start.Equal(other.Start) {
		return false
	}
	return r.Unbounded() || r.End.Equal(other.End)
}

func (r DateRange) String() string {
	open := "["
	if r.StartBound == BoundExclusive {
		open = "("
	}
	if r.Unbounded() {
		return fmt.Sprintf("%s%s, ∞)", open, r.Start.Format(time.RFC3339))
	}
	closing := ")"
	if r.EndBound == BoundInclusive {
		closing = "]"
	}
	return fmt.Sprintf("%s%s, %s%s", open, r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339), closing)
}
