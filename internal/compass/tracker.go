package compass

import (
	"minaret/internal/geomath"
	"minaret/internal/types"
)

// Reading is one processed compass frame: the smoothed heading, its
// offset from the qibla bearing, and the resulting alignment status.
type Reading struct {
	QiblaBearing      float64             `json:"qibla_bearing"`
	Heading           float64             `json:"heading"`
	AngularDifference float64             `json:"angular_difference"`
	Alignment         Alignment           `json:"alignment"`
	Accuracy          types.AccuracyClass `json:"accuracy"`
	DistanceKm        float64             `json:"distance_km"`
	AtTarget          bool                `json:"at_target"`
}

// Tracker processes a single device's heading stream against a fixed
// location. Not safe for concurrent use; each stream owns one Tracker.
type Tracker struct {
	bearing  Bearing
	smoother *geomath.Smoother
}

// Process consumes one raw heading sample and returns the updated
// reading.
//
// Unreliable samples do not feed the smoother: a miscalibrated sensor
// must not drag the needle, so the last trustworthy heading is held and
// the status pinned to searching. At the target itself the bearing is
// degenerate and the reading reports found regardless of heading.
func (t *Tracker) Process(sample types.HeadingSample) Reading {
	r := Reading{
		QiblaBearing: t.bearing.QiblaBearing,
		Accuracy:     sample.Accuracy,
		DistanceKm:   t.bearing.DistanceKm,
		AtTarget:     t.bearing.AtTarget,
	}

	if sample.Accuracy == types.AccuracyUnreliable {
		r.Heading = t.smoother.Current()
		r.AngularDifference = geomath.AngularDifference(r.Heading, r.QiblaBearing)
		r.Alignment = AlignmentSearching
		if t.bearing.AtTarget {
			r.Alignment = AlignmentFound
			r.AngularDifference = 0
		}
		return r
	}

	r.Heading = t.smoother.Update(sample.Heading)

	if t.bearing.AtTarget {
		r.AngularDifference = 0
		r.Alignment = AlignmentFound
		return r
	}

	r.AngularDifference = geomath.AngularDifference(r.Heading, r.QiblaBearing)
	r.Alignment = classifyAlignment(r.AngularDifference)
	return r
}
