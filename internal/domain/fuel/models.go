package fuel

import (
	"math"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

// Holtrop constants
const (
	seawaterDensity     = 1025.0   // kg/m3
	seawaterViscosity   = 1.188e-6 // m2/s at 15 C
	gravity             = 9.81
	blockCoefficient    = 0.55
	formFactor          = 1.2
	propulsiveEff       = 0.55
	waveCoefficientBase = 0.0015
)

var holtropHaulFactors = map[vessel.GearGroup]float64{
	vessel.GearGroupTrawl:    1.6,
	vessel.GearGroupSeine:    1.3,
	vessel.GearGroupLongLine: 1.1,
	vessel.GearGroupNet:      1.05,
}

const holtropDefaultHaulFactor = 1.2

type segmentModel interface {
	// segment returns liters burned between two accepted points, never negative
	segment(from, to Point) float64
}

// selectModel picks the sub-model once per run. Holtrop needs hull dimensions
// and a main engine, otherwise the whole run uses Maru.
func selectModel(params Params) vessel.FuelModel {
	if params.Model != vessel.FuelModelHoltrop || params.Hull == nil {
		return vessel.FuelModelMaru
	}
	h := params.Hull
	if h.Length <= 0 || h.Breadth <= 0 || h.Draught <= 0 {
		return vessel.FuelModelMaru
	}
	for _, e := range params.Engines {
		if e.Kind == vessel.EngineKindMain && e.PowerKW > 0 && e.SFC > 0 {
			return vessel.FuelModelHoltrop
		}
	}
	return vessel.FuelModelMaru
}

func newSegmentModel(model vessel.FuelModel, params Params) segmentModel {
	if model == vessel.FuelModelHoltrop {
		return &holtropModel{params: params}
	}
	return &maruModel{params: params}
}

// segmentInput is the shared part of both models
type segmentInput struct {
	seconds float64
	speed   float64
	service float64
	lf      float64
	hauling bool
}

func prepareSegment(params Params, from, to Point) (segmentInput, bool) {
	seconds := to.Timestamp.Sub(from.Timestamp).Seconds()
	if seconds <= 0 {
		return segmentInput{}, false
	}
	speed, ok := segmentSpeed(from, to, seconds)
	if !ok {
		return segmentInput{}, false
	}
	service := serviceSpeed(params, from, to)
	if service <= 0 {
		return segmentInput{}, false
	}
	return segmentInput{
		seconds: seconds,
		speed:   speed,
		service: service,
		lf:      loadFactor(speed, service),
		hauling: from.hauling() || to.hauling(),
	}, true
}

func electrificationShare(params Params) float64 {
	return 1 - clamp(params.DegreeOfElectrification, 0, 1)
}

// maruEngineLiters is the empirical curve for one engine
func maruEngineLiters(e vessel.Engine, lf, seconds, haulFactor, electrification float64) float64 {
	if e.PowerKW <= 0 || e.SFC <= 0 {
		return 0
	}
	kwh := lf * e.PowerKW * seconds * haulFactor * engineLoadShare / 3600 * electrification
	return adjustedSFC(e.SFC, lf) * kwh / gramsPerLiter
}

type maruModel struct {
	params Params
}

func (m *maruModel) segment(from, to Point) float64 {
	in, ok := prepareSegment(m.params, from, to)
	if !ok {
		return 0
	}
	haulFactor := 1.0
	if in.hauling {
		haulFactor = maruHaulFactor
	}
	elec := electrificationShare(m.params)
	liters := 0.0
	for _, e := range m.params.Engines {
		liters += maruEngineLiters(e, in.lf, in.seconds, haulFactor, elec)
	}
	return liters
}

// holtropModel derives main-engine brake power from calm-water resistance.
// Auxiliary engines follow the Maru curve.
type holtropModel struct {
	params Params
}

func (m *holtropModel) segment(from, to Point) float64 {
	in, ok := prepareSegment(m.params, from, to)
	if !ok {
		return 0
	}
	haulFactor := 1.0
	if in.hauling {
		haulFactor = holtropHaulFactor(m.params.GearGroup)
	}
	elec := electrificationShare(m.params)

	liters := 0.0
	mainDone := false
	for _, e := range m.params.Engines {
		if e.Kind == vessel.EngineKindMain && !mainDone && e.PowerKW > 0 && e.SFC > 0 {
			mainDone = true
			brake := math.Min(brakePowerKW(m.params.Hull, in.speed)*haulFactor, e.PowerKW)
			lf := clamp(brake/e.PowerKW, 0, maxLoadFactor)
			kwh := lf * e.PowerKW * in.seconds / 3600 * elec
			liters += adjustedSFC(e.SFC, lf) * kwh / gramsPerLiter
			continue
		}
		liters += maruEngineLiters(e, in.lf, in.seconds, haulFactor, elec)
	}
	return liters
}

func holtropHaulFactor(g vessel.GearGroup) float64 {
	if f, ok := holtropHaulFactors[g]; ok {
		return f
	}
	return holtropDefaultHaulFactor
}

// brakePowerKW is the brake power needed to hold speed (knots) in calm water.
//
// Friction follows ITTC-57, wetted surface follows Denny-Mumford, and the wave
// term grows with the fourth power of the Froude number.
func brakePowerKW(h *vessel.Hull, knots float64) float64 {
	v := knots / shared.MetersPerSecondToKnots
	if v <= 0 {
		return 0
	}
	volume := blockCoefficient * h.Length * h.Breadth * h.Draught
	wetted := 1.7*h.Length*h.Draught + volume/h.Draught

	// ITTC-57 is meaningless near log10(Re) = 2
	re := math.Max(v*h.Length/seawaterViscosity, 1e4)
	cf := 0.075 / math.Pow(math.Log10(re)-2, 2)
	fn := v / math.Sqrt(gravity*h.Length)
	cw := waveCoefficientBase * math.Pow(fn/0.3, 4)

	dynamic := 0.5 * seawaterDensity * v * v * wetted
	resistance := dynamic*cf*formFactor + dynamic*cw
	effectiveKW := resistance * v / 1000
	return effectiveKW / propulsiveEff
}
