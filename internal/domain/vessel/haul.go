package vessel

import "github.com/andrescamacho/fishtrack-go/internal/domain/shared"

// GearGroup is the coarse gear classification used by fuel models
type GearGroup string

const (
	GearGroupUnknown  GearGroup = ""
	GearGroupTrawl    GearGroup = "trawl"
	GearGroupSeine    GearGroup = "seine"
	GearGroupNet      GearGroup = "net"
	GearGroupLongLine GearGroup = "longline"
	GearGroupPot      GearGroup = "pot"
)

// Haul is one fishing operation reported in an ERS DCA message
type Haul struct {
	ID           int64
	VesselID     int64
	Period       shared.DateRange
	LivingWeight float64
	GearGroup    GearGroup
}
