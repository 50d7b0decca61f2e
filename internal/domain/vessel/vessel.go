package vessel

import "fmt"

// DefaultServiceSpeed is the empty-load service speed in knots used when a
// vessel has none configured
const DefaultServiceSpeed = 12.0

// FuelModel selects the physical sub-model used to estimate fuel for a vessel
type FuelModel string

const (
	// FuelModelMaru is the empirical load-factor curve
	FuelModelMaru FuelModel = "maru"
	// FuelModelHoltrop is the resistance based model, needs hull dimensions
	FuelModelHoltrop FuelModel = "holtrop"
)

// EngineKind distinguishes propulsion from auxiliary engines
type EngineKind string

const (
	EngineKindMain      EngineKind = "main"
	EngineKindAuxiliary EngineKind = "auxiliary"
)

// Engine is one engine specification of a vessel
type Engine struct {
	Kind EngineKind `json:"kind"`
	// PowerKW is the installed power in kilowatts
	PowerKW float64 `json:"power_kw"`
	// SFC is the specific fuel consumption in g/kWh
	SFC float64 `json:"sfc"`
}

// Hull holds the dimensions the Holtrop model needs, in meters
type Hull struct {
	Length  float64 `json:"length"`
	Breadth float64 `json:"breadth"`
	Draught float64 `json:"draught"`
}

// Vessel is a fishing vessel as seen by one pipeline pass. It is never mutated
// while a pass is running.
type Vessel struct {
	ID       int64
	Name     string
	MMSI     *int32
	CallSign *string

	Engines                 []Engine
	Hull                    *Hull
	MaxCargoWeight          *float64
	ServiceSpeed            *float64
	DegreeOfElectrification *float64
	FuelModel               FuelModel
	GearGroup               GearGroup
	EngineVersion           int

	// ReportsErs is true when the vessel is obliged to send ERS messages; such
	// vessels have their trips assembled from departures and arrivals
	ReportsErs bool
}

// EffectiveServiceSpeed returns the configured service speed or the default
func (v *Vessel) EffectiveServiceSpeed() float64 {
	if v.ServiceSpeed != nil && *v.ServiceSpeed > 0 {
		return *v.ServiceSpeed
	}
	return DefaultServiceSpeed
}

// MainEngine returns the first main engine, if any
func (v *Vessel) MainEngine() (Engine, bool) {
	for _, e := range v.Engines {
		if e.Kind == EngineKindMain {
			return e, true
		}
	}
	return Engine{}, false
}

// HasEngines reports whether fuel can be estimated at all
func (v *Vessel) HasEngines() bool {
	for _, e := range v.Engines {
		if e.PowerKW > 0 && e.SFC > 0 {
			return true
		}
	}
	return false
}

func (v *Vessel) String() string {
	if v.CallSign != nil {
		return fmt.Sprintf("Vessel(%d, %s)", v.ID, *v.CallSign)
	}
	return fmt.Sprintf("Vessel(%d)", v.ID)
}
