package shared

import (
	"errors"
	"math"
)

const (
	earthRadiusMeters = 6371000

	// MetersPerSecondToKnots converts m/s to knots
	MetersPerSecondToKnots = 1.943844
	MetersPerNauticalMile  = 1852.0
)

// ErrDegenerateCoordinates is returned when a great-circle distance cannot be computed
var ErrDegenerateCoordinates = errors.New("degenerate coordinates")

// Point is a WGS84 coordinate
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is finite and inside the WGS84 domain
func (p Point) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) || math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Haversine calculates the distance between two points in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// DistanceMeters returns the great-circle distance between two points,
// or ErrDegenerateCoordinates when either point is outside the WGS84 domain
func DistanceMeters(from, to Point) (float64, error) {
	if !from.Valid() || !to.Valid() {
		return 0, ErrDegenerateCoordinates
	}
	d := Haversine(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, ErrDegenerateCoordinates
	}
	return d, nil
}

// SpeedKnots converts a distance covered in the given number of seconds to knots
func SpeedKnots(meters, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return meters / seconds * MetersPerSecondToKnots
}
