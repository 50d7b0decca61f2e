package fuel

import (
	"math"
	"time"

	"github.com/andrescamacho/fishtrack-go/internal/domain/shared"
	"github.com/andrescamacho/fishtrack-go/internal/domain/vessel"
)

const (
	// DefaultMaxKnots is the vendor-observed outlier bound for GPS glitches
	DefaultMaxKnots = 70.0

	fullLoadSpeedRatio = 0.9
	maxLoadFactor      = 0.98
	engineLoadShare    = 0.85
	gramsPerLiter      = 850.0
	maruHaulFactor     = 1.5
)

// Point is one track sample as seen by the estimator
type Point struct {
	Timestamp             time.Time
	Latitude              float64
	Longitude             float64
	SpeedOverGround       *float64
	CumulativeCargoWeight float64
	InsideHaul            bool
	ActiveGear            *string
}

func (p Point) coordinates() shared.Point {
	return shared.Point{Latitude: p.Latitude, Longitude: p.Longitude}
}

// hauling is true inside an ERS haul or when the tracker reports active gear
func (p Point) hauling() bool {
	return p.InsideHaul || p.ActiveGear != nil
}

// Params are the vessel parameters the estimator needs. They are fixed for a run.
type Params struct {
	Engines                 []vessel.Engine
	Hull                    *vessel.Hull
	ServiceSpeed            float64
	MaxCargoWeight          *float64
	DegreeOfElectrification float64
	Model                   vessel.FuelModel
	GearGroup               vessel.GearGroup
}

// ParamsFromVessel extracts estimator parameters from a vessel
func ParamsFromVessel(v *vessel.Vessel) Params {
	p := Params{
		Engines:        v.Engines,
		Hull:           v.Hull,
		ServiceSpeed:   v.EffectiveServiceSpeed(),
		MaxCargoWeight: v.MaxCargoWeight,
		Model:          v.FuelModel,
		GearGroup:      v.GearGroup,
	}
	if v.DegreeOfElectrification != nil {
		p.DegreeOfElectrification = *v.DegreeOfElectrification
	}
	return p
}

// Result is the output of one estimation
type Result struct {
	// Cumulative has one entry per input point, non-decreasing, starting at 0
	Cumulative []float64
	// Kept is false for points dropped by unrealistic-speed pruning
	Kept  []bool
	Total float64
	// Pruned is the number of points dropped
	Pruned int
	// Model is the sub-model actually used for the run
	Model vessel.FuelModel
}

// Estimator converts a position track into a cumulative fuel curve. It is
// stateless and safe for concurrent use.
type Estimator struct {
	maxKnots float64
}

// Option configures an Estimator
type Option func(*Estimator)

// WithMaxKnots overrides the unrealistic-speed threshold
func WithMaxKnots(knots float64) Option {
	return func(e *Estimator) {
		if knots > 0 {
			e.maxKnots = knots
		}
	}
}

func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{maxKnots: DefaultMaxKnots}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxKnots returns the pruning threshold
func (e *Estimator) MaxKnots() float64 {
	return e.maxKnots
}

// Estimate runs pruning and per-segment fuel over points, which must be ordered
// by timestamp. Tracks with fewer than two usable points yield zero.
func (e *Estimator) Estimate(points []Point, params Params) Result {
	res := Result{
		Cumulative: make([]float64, len(points)),
		Kept:       e.Prune(points),
		Model:      selectModel(params),
	}
	for _, kept := range res.Kept {
		if !kept {
			res.Pruned++
		}
	}

	model := newSegmentModel(res.Model, params)
	total := 0.0
	last := -1
	for i := range points {
		if res.Kept[i] {
			if last >= 0 {
				total += model.segment(points[last], points[i])
			}
			last = i
		}
		res.Cumulative[i] = total
	}
	res.Total = total
	return res
}

// Prune walks the track keeping a last-accepted pointer and drops every point
// whose speed from the last accepted point exceeds the threshold
func (e *Estimator) Prune(points []Point) []bool {
	kept := make([]bool, len(points))
	last := -1
	for i, p := range points {
		if last < 0 {
			kept[i] = true
			last = i
			continue
		}
		if e.unrealistic(points[last], p) {
			continue
		}
		kept[i] = true
		last = i
	}
	return kept
}

func (e *Estimator) unrealistic(from, to Point) bool {
	seconds := to.Timestamp.Sub(from.Timestamp).Seconds()
	if seconds <= 0 {
		return false
	}
	meters, err := shared.DistanceMeters(from.coordinates(), to.coordinates())
	if err != nil {
		return false
	}
	return shared.SpeedKnots(meters, seconds) > e.maxKnots
}

// segmentSpeed returns the speed over a segment in knots. ok is false when no
// speed can be derived and the segment must be skipped.
func segmentSpeed(from, to Point, seconds float64) (float64, bool) {
	meters, err := shared.DistanceMeters(from.coordinates(), to.coordinates())
	if err == nil {
		return shared.SpeedKnots(meters, seconds), true
	}
	switch {
	case from.SpeedOverGround != nil && to.SpeedOverGround != nil:
		return (*from.SpeedOverGround + *to.SpeedOverGround) / 2, true
	case from.SpeedOverGround != nil:
		return *from.SpeedOverGround, true
	case to.SpeedOverGround != nil:
		return *to.SpeedOverGround, true
	default:
		return 0, false
	}
}

// serviceSpeed interpolates from the empty-load service speed down to the
// full-load speed by the average cargo weight of the segment
func serviceSpeed(params Params, from, to Point) float64 {
	base := params.ServiceSpeed
	if base <= 0 {
		base = vessel.DefaultServiceSpeed
	}
	if params.MaxCargoWeight == nil || *params.MaxCargoWeight <= 0 {
		return base
	}
	avg := (from.CumulativeCargoWeight + to.CumulativeCargoWeight) / 2
	ratio := clamp(avg / *params.MaxCargoWeight, 0, 1)
	full := base * fullLoadSpeedRatio
	return base - (base-full)*ratio
}

func loadFactor(speed, service float64) float64 {
	if service <= 0 {
		return 0
	}
	return clamp(math.Pow(speed/service, 3), 0, maxLoadFactor)
}

func adjustedSFC(sfc, lf float64) float64 {
	return sfc * (0.455*lf*lf - 0.71*lf + 1.28)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
