// Package geomath provides the pure angular and great-circle arithmetic
// behind the qibla compass: initial bearing, haversine distance, angular
// difference, sensor accuracy classification, and heading smoothing.
//
// All functions operate on a spherical Earth approximation (R = 6371 km,
// no ellipsoid correction). Haversine error against the ellipsoid is
// about 0.5%, which is acceptable for display purposes.
package geomath

import (
	"math"

	"minaret/internal/types"
)

// EarthRadiusKm is the mean Earth radius used by the spherical model.
const EarthRadiusKm = 6371.0

// degToRad converts degrees to radians.
func degToRad(d float64) float64 { return d * math.Pi / 180 }

// radToDeg converts radians to degrees.
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

// Bearing returns the initial great-circle bearing from one coordinate
// toward another, in degrees clockwise from north, normalized to [0, 360).
//
// When the two coordinates coincide the formula degenerates to
// atan2(0, 0) = 0; callers that care should check Distance first and
// surface a neutral reading instead of a misleading bearing.
func Bearing(from, to types.Coordinate) float64 {
	lat1 := degToRad(from.Latitude)
	lat2 := degToRad(to.Latitude)
	deltaLon := degToRad(to.Longitude - from.Longitude)

	y := math.Sin(deltaLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(deltaLon)

	return NormalizeDegrees(radToDeg(math.Atan2(y, x)))
}

// Distance returns the haversine great-circle distance between two
// coordinates in kilometers.
func Distance(from, to types.Coordinate) float64 {
	lat1 := degToRad(from.Latitude)
	lat2 := degToRad(to.Latitude)
	deltaLat := degToRad(to.Latitude - from.Latitude)
	deltaLon := degToRad(to.Longitude - from.Longitude)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// AngularDifference returns the smallest angle between two compass
// directions, in degrees within [0, 180]. Symmetric in its arguments.
func AngularDifference(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// NormalizeDegrees wraps an angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	m := math.Mod(deg, 360)
	if m < 0 {
		m += 360
	}
	return m
}
