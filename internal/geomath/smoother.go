package geomath

// defaultSmoothingFactor is the per-sample weight of the newest heading.
// Chosen to damp sensor jitter at typical sensor cadence without making
// the needle feel laggy.
const defaultSmoothingFactor = 0.25

// Smoother is an exponential low-pass filter over compass headings.
// It interpolates along the shortest angular path, so a jump from 359
// to 1 degrees moves through 0, not backwards through 180.
//
// Status classification must consume the smoothed value, never the raw
// sample; otherwise alignment status oscillates with sensor noise.
// Not safe for concurrent use; each heading stream owns one Smoother.
type Smoother struct {
	factor  float64
	current float64
	primed  bool
}

// NewSmoother returns a Smoother with the given per-sample weight in
// (0, 1]. Out-of-range values fall back to the default.
func NewSmoother(factor float64) *Smoother {
	if factor <= 0 || factor > 1 {
		factor = defaultSmoothingFactor
	}
	return &Smoother{factor: factor}
}

// Update feeds one raw heading sample and returns the new smoothed
// heading in [0, 360). The first sample primes the filter directly.
func (s *Smoother) Update(raw float64) float64 {
	raw = NormalizeDegrees(raw)
	if !s.primed {
		s.current = raw
		s.primed = true
		return s.current
	}

	// Signed shortest-path delta in (-180, 180].
	delta := raw - s.current
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}

	s.current = NormalizeDegrees(s.current + s.factor*delta)
	return s.current
}

// Current returns the smoothed heading without consuming a sample.
// Returns 0 before the first sample.
func (s *Smoother) Current() float64 {
	return s.current
}

// Primed reports whether at least one sample has been consumed.
func (s *Smoother) Primed() bool {
	return s.primed
}
