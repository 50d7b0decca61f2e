package helpers

import (
	"fmt"
	"sync"
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// MustParseTime parses an RFC3339 timestamp or a "2006-01-02 15:04" shorthand, in UTC
func MustParseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	panic(fmt.Sprintf("invalid test timestamp %q", s))
}

// CreateTestErsVessel builds a vessel whose trips come from ERS departures and arrivals
func CreateTestErsVessel(id int64) *vessel.Vessel {
	v := CreateTestMaruVessel(id)
	v.ReportsErs = true
	return v
}

// CreateTestLandingsVessel builds a vessel whose trips come from landing receipts
func CreateTestLandingsVessel(id int64) *vessel.Vessel {
	v := CreateTestMaruVessel(id)
	v.ReportsErs = false
	return v
}

// CreateTestMaruVessel builds a vessel with one main engine estimated by the
// load-factor curve
func CreateTestMaruVessel(id int64) *vessel.Vessel {
	callSign := fmt.Sprintf("LK%03d", id)
	mmsi := int32(257000000 + id)
	serviceSpeed := 10.0
	return &vessel.Vessel{
		ID:       id,
		Name:     fmt.Sprintf("Test Vessel %d", id),
		MMSI:     &mmsi,
		CallSign: &callSign,
		Engines: []vessel.Engine{
			{Kind: vessel.EngineKindMain, PowerKW: 500, SFC: 220},
		},
		ServiceSpeed:  &serviceSpeed,
		FuelModel:     vessel.FuelModelMaru,
		GearGroup:     vessel.GearGroupTrawl,
		EngineVersion: 1,
	}
}

// CreateTestHoltropVessel builds a vessel estimated by the resistance model.
// withHull false leaves the hull out, which forces the fallback model.
func CreateTestHoltropVessel(id int64, withHull bool) *vessel.Vessel {
	v := CreateTestMaruVessel(id)
	v.FuelModel = vessel.FuelModelHoltrop
	if withHull {
		v.Hull = &vessel.Hull{Length: 30, Breadth: 8, Draught: 4}
	}
	return v
}

// Departure builds an ERS departure event
func Departure(vesselID int64, ts string, portID string) vessel.Event {
	return ersEvent(vesselID, vessel.EventTypeDeparture, ts, portID)
}

// Arrival builds an ERS arrival event
func Arrival(vesselID int64, ts string, portID string) vessel.Event {
	return ersEvent(vesselID, vessel.EventTypeArrival, ts, portID)
}

func ersEvent(vesselID int64, eventType vessel.EventType, ts string, portID string) vessel.Event {
	ev := vessel.Event{
		VesselID:  vesselID,
		Type:      eventType,
		Timestamp: MustParseTime(ts),
	}
	if portID != "" {
		p := portID
		ev.PortID = &p
	}
	return ev
}

// Landing builds a landing receipt
func Landing(vesselID int64, ts string, weight float64) vessel.Landing {
	return vessel.Landing{
		VesselID:     vesselID,
		Timestamp:    MustParseTime(ts),
		LivingWeight: weight,
	}
}

// Track builds positions a fixed interval apart, moving east along a parallel
// at the given speed in knots
func Track(start time.Time, count int, interval time.Duration, knots float64) []vessel.Position {
	const metersPerDegreeAtEquator = 111_320.0
	positions := make([]vessel.Position, count)
	lon := 5.0
	for i := range positions {
		speed := knots
		positions[i] = vessel.Position{
			Timestamp:       start.Add(time.Duration(i) * interval),
			Latitude:        0,
			Longitude:       lon,
			SpeedOverGround: &speed,
			Source:          vessel.PositionSourceAIS,
		}
		lon += knots * 1852 * interval.Hours() / metersPerDegreeAtEquator
	}
	return positions
}

// LogEntry is one captured log line
type LogEntry struct {
	Level    string
	Message  string
	Metadata map[string]interface{}
}

// CapturingLogger records every entry for later assertions
type CapturingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewCapturingLogger() *CapturingLogger {
	return &CapturingLogger{}
}

func (l *CapturingLogger) Log(level, message string, metadata map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Message: message, Metadata: metadata})
}

// Entries returns the captured entries at a level, every entry when level is empty
func (l *CapturingLogger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// HasAction reports whether an entry at level carries the action field
func (l *CapturingLogger) HasAction(level, action string) bool {
	for _, e := range l.Entries(level) {
		if e.Metadata["action"] == action {
			return true
		}
	}
	return false
}
