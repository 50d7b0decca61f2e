package vessel

import (
	"sort"
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
)

// PositionSource tells which tracking system produced a position
type PositionSource string

const (
	PositionSourceAIS PositionSource = "ais"
	PositionSourceVMS PositionSource = "vms"
)

// Position is a timestamped sample of a vessel track
type Position struct {
	Timestamp       time.Time      `json:"timestamp"`
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	SpeedOverGround *float64       `json:"speed_over_ground,omitempty"`
	ActiveGear      *string        `json:"active_gear,omitempty"`
	Source          PositionSource `json:"source"`
}

// Point returns the coordinate of the position
func (p Position) Point() shared.Point {
	return shared.Point{Latitude: p.Latitude, Longitude: p.Longitude}
}

// SortPositions sorts positions by timestamp, in place
func SortPositions(positions []Position) {
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].Timestamp.Before(positions[j].Timestamp)
	})
}
