package vessel

import "time"

// Landing is a landing receipt: catch delivered at a port
type Landing struct {
	ID           int64
	VesselID     int64
	Timestamp    time.Time
	LivingWeight float64
	PortID       *string
}
