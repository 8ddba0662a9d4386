package telemetry

import "time"

// Position is a single GPS fix. Accuracy fields are radii in meters as
// reported by the device; larger means worse.
type Position struct {
	Lat                float64 `json:"lat"`
	Lon                float64 `json:"lon"`
	AltitudeM          float64 `json:"altitude_m"`
	HorizontalAccuracy float64 `json:"horizontal_accuracy_m"`
	VerticalAccuracy   float64 `json:"vertical_accuracy_m"`
}

// Sample is one raw input event: either a location fix or a bare clock
// tick. Samples are immutable and consumed exactly once by the filter.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Position  *Position `json:"position,omitempty"`
	Tick      bool      `json:"tick,omitempty"`
}
