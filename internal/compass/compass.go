// Package compass turns device locations and heading samples into qibla
// readings: the bearing to the Kaaba, the distance to it, and an
// alignment status derived from the smoothed device heading.
package compass

import (
	"minaret/internal/geomath"
	"minaret/internal/types"
)

// Alignment classifies how closely the device heading points at the
// qibla bearing.
type Alignment string

const (
	AlignmentFound       Alignment = "found"
	AlignmentVeryGood    Alignment = "very_good"
	AlignmentApproaching Alignment = "approaching"
	AlignmentSearching   Alignment = "searching"
)

// Alignment thresholds in degrees of angular difference.
const (
	foundThreshold       = 3.0
	veryGoodThreshold    = 8.0
	approachingThreshold = 20.0
)

// atTargetKm is the distance under which the bearing is degenerate: the
// user is effectively standing at the target and every direction faces it.
const atTargetKm = 0.1

// classifyAlignment buckets an angular difference in [0, 180].
func classifyAlignment(diff float64) Alignment {
	switch {
	case diff < foundThreshold:
		return AlignmentFound
	case diff < veryGoodThreshold:
		return AlignmentVeryGood
	case diff < approachingThreshold:
		return AlignmentApproaching
	default:
		return AlignmentSearching
	}
}

// Bearing is the static geometry of a location relative to the target:
// everything derivable without a heading sensor.
type Bearing struct {
	QiblaBearing float64 `json:"qibla_bearing"`
	DistanceKm   float64 `json:"distance_km"`
	AtTarget     bool    `json:"at_target"`
}

// Service computes qibla geometry for arbitrary locations. The target
// defaults to the Kaaba; it is parameterized only for tests.
type Service struct {
	target types.Coordinate
}

// NewService creates a compass service pointing at the Kaaba.
func NewService() *Service {
	return &Service{target: types.MeccaCoordinate}
}

// NewServiceWithTarget creates a service pointing at an arbitrary
// coordinate. Testing only.
func NewServiceWithTarget(target types.Coordinate) *Service {
	return &Service{target: target}
}

// Bearing computes the qibla bearing and great-circle distance from the
// given location.
func (s *Service) Bearing(from types.Coordinate) Bearing {
	distance := geomath.Distance(from, s.target)
	return Bearing{
		QiblaBearing: geomath.Bearing(from, s.target),
		DistanceKm:   distance,
		AtTarget:     distance < atTargetKm,
	}
}

// NewTracker starts a heading-tracking session for the given location.
func (s *Service) NewTracker(from types.Coordinate) *Tracker {
	return &Tracker{
		bearing:  s.Bearing(from),
		smoother: geomath.NewSmoother(0),
	}
}
