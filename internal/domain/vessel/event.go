package vessel

import (
	"sort"
	"time"
)

// EventType discriminates the facts in a vessel timeline
type EventType string

const (
	EventTypeDeparture EventType = "departure"
	EventTypeArrival   EventType = "arrival"
	EventTypeLanding   EventType = "landing"
	EventTypeHaul      EventType = "haul"
)

// Event is one fact in a vessel's timeline. Ordering is by Timestamp with ID as
// tiebreaker.
type Event struct {
	ID       int64
	VesselID int64
	Type     EventType
	// Timestamp is the reported timestamp of the fact
	Timestamp time.Time
	// EstimatedTimestamp is the estimate carried by ERS messages, if any
	EstimatedTimestamp *time.Time
	PortID             *string
}

// Less orders events by timestamp, then id
func (e Event) Less(other Event) bool {
	if e.Timestamp.Equal(other.Timestamp) {
		return e.ID < other.ID
	}
	return e.Timestamp.Before(other.Timestamp)
}

// SortEvents sorts events in timeline order, in place
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Less(events[j])
	})
}

// SortPortCalls sorts ERS events in timeline order with arrivals ahead of
// departures sharing their timestamp, so a port call reported at one instant
// closes the open trip before the next one starts
func SortPortCalls(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if ra, rb := a.Type == EventTypeArrival, b.Type == EventTypeArrival; ra != rb {
			return ra
		}
		return a.ID < b.ID
	})
}
