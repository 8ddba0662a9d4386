package telemetry

import (
	"testing"
	"time"
)

func fix(lat, lon, hAcc, vAcc float64) Sample {
	return Sample{
		Timestamp: time.Now(),
		Position: &Position{
			Lat:                lat,
			Lon:                lon,
			HorizontalAccuracy: hAcc,
			VerticalAccuracy:   vAcc,
		},
	}
}

func TestFirstFixAlwaysAccepted(t *testing.T) {
	f := NewFilter(30, 50, 2)

	// even terrible accuracy passes when there is no reference yet
	d := f.Evaluate(fix(45.9, 6.8, 500, 500), nil)
	if !d.Accepted {
		t.Fatalf("expected first fix accepted, got %v", d.Reason)
	}
	if d.DistanceM != 0 {
		t.Fatalf("first fix must contribute zero distance, got %v", d.DistanceM)
	}
	if d.AltitudeUsable {
		t.Fatalf("expected altitude gated by vertical accuracy")
	}
}

func TestPoorAccuracyRejectedRegardlessOfDistance(t *testing.T) {
	f := NewFilter(30, 50, 2)
	ref := &Position{Lat: 0, Lon: 0}

	// moved ~1km but accuracy is worse than the gate
	d := f.Evaluate(fix(0.009, 0, 31, 10), ref)
	if d.Accepted || d.Reason != RejectPoorAccuracy {
		t.Fatalf("expected poor accuracy rejection, got %+v", d)
	}
}

func TestNoiseFloorRejection(t *testing.T) {
	f := NewFilter(30, 50, 2)
	ref := &Position{Lat: 0, Lon: 0}

	// ~1m of movement sits under the 2m noise floor
	d := f.Evaluate(fix(0.000009, 0, 5, 10), ref)
	if d.Accepted || d.Reason != RejectBelowNoiseFloor {
		t.Fatalf("expected noise floor rejection, got %+v", d)
	}
}

func TestAcceptedBeyondNoiseFloor(t *testing.T) {
	f := NewFilter(30, 50, 2)
	ref := &Position{Lat: 0, Lon: 0}

	// ~10m of movement
	d := f.Evaluate(fix(0.00009, 0, 5, 10), ref)
	if !d.Accepted {
		t.Fatalf("expected accept, got %v", d.Reason)
	}
	if d.DistanceM < 9 || d.DistanceM > 11 {
		t.Fatalf("expected ~10m, got %v", d.DistanceM)
	}
	if !d.AltitudeUsable {
		t.Fatalf("expected altitude usable at 10m vertical accuracy")
	}
}

func TestVerticalGateIndependent(t *testing.T) {
	f := NewFilter(30, 50, 2)
	ref := &Position{Lat: 0, Lon: 0}

	// accepted for distance, altitude excluded
	d := f.Evaluate(fix(0.00009, 0, 5, 51), ref)
	if !d.Accepted {
		t.Fatalf("expected accept, got %v", d.Reason)
	}
	if d.AltitudeUsable {
		t.Fatalf("expected altitude excluded at 51m vertical accuracy")
	}
}

func TestTickSampleRejected(t *testing.T) {
	f := NewFilter(30, 50, 2)
	d := f.Evaluate(Sample{Timestamp: time.Now(), Tick: true}, nil)
	if d.Accepted || d.Reason != RejectNoPosition {
		t.Fatalf("expected no-position rejection, got %+v", d)
	}
}
