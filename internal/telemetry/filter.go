package telemetry

import (
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/shared/geo"
)

// RejectReason explains why a sample was dropped. Rejection is an expected
// filtering outcome, not an error.
type RejectReason string

const (
	RejectNone            RejectReason = ""
	RejectNoPosition      RejectReason = "no_position"
	RejectPoorAccuracy    RejectReason = "poor_accuracy"
	RejectBelowNoiseFloor RejectReason = "below_noise_floor"
)

// Decision is the outcome of filtering one candidate sample against the
// last accepted reference position.
type Decision struct {
	Accepted bool
	Reason   RejectReason

	// DistanceM is the haversine distance from the reference, valid only
	// when Accepted and a reference existed (first fix contributes zero).
	DistanceM float64

	// AltitudeUsable reports whether the fix's altitude passed the
	// vertical accuracy gate. A sample can count for distance while its
	// altitude is excluded from elevation accumulation.
	AltitudeUsable bool
}

// Filter rejects noisy or low-quality raw samples before aggregation.
type Filter struct {
	horizontalAccuracyMaxM float64
	verticalAccuracyMaxM   float64
	noiseFloorM            float64
}

func NewFilter(horizontalAccuracyMaxM, verticalAccuracyMaxM, noiseFloorM float64) *Filter {
	return &Filter{
		horizontalAccuracyMaxM: horizontalAccuracyMaxM,
		verticalAccuracyMaxM:   verticalAccuracyMaxM,
		noiseFloorM:            noiseFloorM,
	}
}

// Evaluate applies the rejection rules in order: missing position, then
// horizontal accuracy, then noise floor against the reference. The first
// fix after a (re)set reference always passes and contributes no distance.
func (f *Filter) Evaluate(candidate Sample, reference *Position) Decision {
	pos := candidate.Position
	if pos == nil {
		return Decision{Reason: RejectNoPosition}
	}

	altOK := pos.VerticalAccuracy <= f.verticalAccuracyMaxM

	if reference == nil {
		return Decision{Accepted: true, AltitudeUsable: altOK}
	}

	if pos.HorizontalAccuracy > f.horizontalAccuracyMaxM {
		return Decision{Reason: RejectPoorAccuracy}
	}

	d := geo.DistanceM(reference.Lat, reference.Lon, pos.Lat, pos.Lon)
	if d < f.noiseFloorM {
		return Decision{Reason: RejectBelowNoiseFloor}
	}

	return Decision{Accepted: true, DistanceM: d, AltitudeUsable: altOK}
}
