package geo

import "testing"

func TestDistanceM(t *testing.T) {
	// Chamonix (45.9237, 6.8694) to Courmayeur (45.7967, 6.9689) ~ 16 km
	d := DistanceM(45.9237, 6.8694, 45.7967, 6.9689)
	if d < 14000 || d > 18000 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestDistanceMZero(t *testing.T) {
	if d := DistanceM(45.9, 6.8, 45.9, 6.8); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}

func TestDistanceMSmallStep(t *testing.T) {
	// ~0.00009 deg of latitude is roughly 10 m
	d := DistanceM(0, 0, 0.00009, 0)
	if d < 9 || d > 11 {
		t.Fatalf("expected ~10m, got %v", d)
	}
}
