package compass

import (
	"math"
	"testing"

	"minaret/internal/types"
)

var istanbul = types.Coordinate{Latitude: 41.0082, Longitude: 28.9784}

func TestServiceBearing_Istanbul(t *testing.T) {
	s := NewService()
	b := s.Bearing(istanbul)

	// From Istanbul the Kaaba lies roughly south-southeast.
	if b.QiblaBearing < 145 || b.QiblaBearing > 165 {
		t.Errorf("qibla bearing = %.2f, want within [145, 165]", b.QiblaBearing)
	}
	if b.DistanceKm < 2300 || b.DistanceKm > 2600 {
		t.Errorf("distance = %.1f km, want roughly 2400", b.DistanceKm)
	}
	if b.AtTarget {
		t.Error("Istanbul must not read as at-target")
	}
}

func TestServiceBearing_AtKaabaIsDegenerate(t *testing.T) {
	s := NewService()
	b := s.Bearing(types.MeccaCoordinate)

	if !b.AtTarget {
		t.Error("the target coordinate itself must read as at-target")
	}
	if b.DistanceKm > 0.001 {
		t.Errorf("distance = %f km, want ~0", b.DistanceKm)
	}
}

func TestClassifyAlignment(t *testing.T) {
	tests := []struct {
		diff float64
		want Alignment
	}{
		{0, AlignmentFound},
		{2.9, AlignmentFound},
		{3, AlignmentVeryGood},
		{7.9, AlignmentVeryGood},
		{8, AlignmentApproaching},
		{19.9, AlignmentApproaching},
		{20, AlignmentSearching},
		{180, AlignmentSearching},
	}
	for _, tt := range tests {
		if got := classifyAlignment(tt.diff); got != tt.want {
			t.Errorf("classifyAlignment(%.1f) = %s, want %s", tt.diff, got, tt.want)
		}
	}
}

func TestTracker_ConvergesToFound(t *testing.T) {
	s := NewService()
	tr := s.NewTracker(istanbul)
	target := s.Bearing(istanbul).QiblaBearing

	// Keep pointing exactly at the qibla; smoothing converges to it.
	var r Reading
	for i := 0; i < 50; i++ {
		r = tr.Process(types.HeadingSample{Heading: target, Accuracy: types.AccuracyHigh})
	}

	if r.Alignment != AlignmentFound {
		t.Errorf("alignment = %s after convergence, want found", r.Alignment)
	}
	if r.AngularDifference >= 3 {
		t.Errorf("angular difference = %.2f, want < 3", r.AngularDifference)
	}
}

func TestTracker_OppositeHeadingIsSearching(t *testing.T) {
	s := NewService()
	tr := s.NewTracker(istanbul)
	target := s.Bearing(istanbul).QiblaBearing

	r := tr.Process(types.HeadingSample{
		Heading:  math.Mod(target+180, 360),
		Accuracy: types.AccuracyHigh,
	})
	if r.Alignment != AlignmentSearching {
		t.Errorf("alignment = %s for opposite heading, want searching", r.Alignment)
	}
	if math.Abs(r.AngularDifference-180) > 0.01 {
		t.Errorf("angular difference = %.2f, want 180", r.AngularDifference)
	}
}

func TestTracker_UnreliableSampleHoldsHeading(t *testing.T) {
	s := NewService()
	tr := s.NewTracker(istanbul)
	target := s.Bearing(istanbul).QiblaBearing

	first := tr.Process(types.HeadingSample{Heading: target, Accuracy: types.AccuracyHigh})

	// A garbage sample must not move the needle, and pins searching.
	r := tr.Process(types.HeadingSample{Heading: target + 90, Accuracy: types.AccuracyUnreliable})
	if r.Heading != first.Heading {
		t.Errorf("heading moved from %.2f to %.2f on unreliable sample", first.Heading, r.Heading)
	}
	if r.Alignment != AlignmentSearching {
		t.Errorf("alignment = %s for unreliable sample, want searching", r.Alignment)
	}
	if r.Accuracy != types.AccuracyUnreliable {
		t.Errorf("accuracy = %s, want unreliable", r.Accuracy)
	}
}

func TestTracker_AtTargetAlwaysFound(t *testing.T) {
	s := NewService()
	tr := s.NewTracker(types.MeccaCoordinate)

	for _, heading := range []float64{0, 90, 180, 270} {
		r := tr.Process(types.HeadingSample{Heading: heading, Accuracy: types.AccuracyHigh})
		if r.Alignment != AlignmentFound {
			t.Errorf("heading %.0f at target: alignment = %s, want found", heading, r.Alignment)
		}
		if r.AngularDifference != 0 {
			t.Errorf("heading %.0f at target: difference = %.2f, want 0", heading, r.AngularDifference)
		}
	}
}

func TestTracker_SmoothingDampsJitter(t *testing.T) {
	s := NewService()
	tr := s.NewTracker(istanbul)
	target := s.Bearing(istanbul).QiblaBearing

	for i := 0; i < 50; i++ {
		tr.Process(types.HeadingSample{Heading: target, Accuracy: types.AccuracyHigh})
	}

	// One noisy 30-degree spike moves the smoothed heading only a
	// fraction of the way.
	r := tr.Process(types.HeadingSample{Heading: target + 30, Accuracy: types.AccuracyMedium})
	if r.AngularDifference >= 15 {
		t.Errorf("single spike moved difference to %.2f, want damped below 15", r.AngularDifference)
	}
}
