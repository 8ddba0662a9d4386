package metrics

import (
	"time"

	"github.com/ivoyovchev/climbingtracker99-sub004/internal/telemetry"
)

// Split summarizes one completed distance unit. Immutable once appended.
type Split struct {
	Index           int           `json:"index"`
	DistanceM       float64       `json:"distance_m"`
	Duration        time.Duration `json:"duration"`
	Pace            time.Duration `json:"pace"` // duration per full unit
	ElevationDeltaM float64       `json:"elevation_delta_m"`
}

// WindowPoint is one accepted sample inside the current incomplete unit,
// kept so current-pace queries need no re-derivation from full history.
type WindowPoint struct {
	Elapsed   time.Duration `json:"elapsed"`
	DistanceM float64       `json:"distance_m"`
}

// State holds everything the aggregator accumulates for a GPS session.
// It is the serializable half of the aggregator; tuning lives on Aggregator.
type State struct {
	TotalDistanceM float64             `json:"total_distance_m"`
	ElevationGainM float64             `json:"elevation_gain_m"`
	ElevationLossM float64             `json:"elevation_loss_m"`
	LastAccepted   *telemetry.Position `json:"last_accepted,omitempty"`

	// Accrual toward the next split, reset at each unit boundary.
	UnitDistanceM    float64       `json:"unit_distance_m"`
	UnitElevationM   float64       `json:"unit_elevation_m"`
	UnitStartElapsed time.Duration `json:"unit_start_elapsed"`

	Splits []Split       `json:"splits"`
	Window []WindowPoint `json:"window,omitempty"`

	RejectedSamples int `json:"rejected_samples"`
}

// Aggregator consumes accepted samples and maintains running distance,
// elevation and per-unit splits for one GPS session.
type Aggregator struct {
	state         State
	unitM         float64
	caloriesPerKm float64
}

func NewAggregator(unitM, caloriesPerKm float64) *Aggregator {
	return &Aggregator{unitM: unitM, caloriesPerKm: caloriesPerKm}
}

// Restore rebuilds an aggregator around previously snapshotted state.
func Restore(state State, unitM, caloriesPerKm float64) *Aggregator {
	return &Aggregator{state: state, unitM: unitM, caloriesPerKm: caloriesPerKm}
}

func (a *Aggregator) State() State { return a.state }

// ResetReference clears the last accepted position so the next fix
// re-establishes the baseline. Called on resume to avoid a spurious
// distance jump across the pause gap.
func (a *Aggregator) ResetReference() {
	a.state.LastAccepted = nil
}

func (a *Aggregator) NoteRejected() {
	a.state.RejectedSamples++
}

// Apply folds one accepted sample into the running totals. activeElapsed is
// the session's accumulated active duration at the time of the sample.
// Returns any splits completed by this sample, in order.
func (a *Aggregator) Apply(dec telemetry.Decision, pos *telemetry.Position, activeElapsed time.Duration) []Split {
	s := &a.state

	if dec.AltitudeUsable && s.LastAccepted != nil {
		delta := pos.AltitudeM - s.LastAccepted.AltitudeM
		if delta > 0 {
			s.ElevationGainM += delta
		} else {
			s.ElevationLossM += -delta
		}
		s.UnitElevationM += delta
	}

	s.TotalDistanceM += dec.DistanceM
	s.UnitDistanceM += dec.DistanceM
	s.LastAccepted = pos
	if dec.DistanceM > 0 {
		s.Window = append(s.Window, WindowPoint{Elapsed: activeElapsed, DistanceM: dec.DistanceM})
	}

	var completed []Split
	for s.UnitDistanceM >= a.unitM {
		split := Split{
			Index:           len(s.Splits) + 1,
			DistanceM:       a.unitM,
			Duration:        activeElapsed - s.UnitStartElapsed,
			ElevationDeltaM: s.UnitElevationM,
		}
		split.Pace = split.Duration
		s.Splits = append(s.Splits, split)
		s.UnitDistanceM -= a.unitM
		s.UnitElevationM = 0
		s.UnitStartElapsed = activeElapsed
		s.Window = s.Window[:0]
		completed = append(completed, split)
	}
	return completed
}

// AveragePace returns the mean duration per unit over the whole session,
// zero when no distance has accrued.
func (a *Aggregator) AveragePace(activeElapsed time.Duration) time.Duration {
	if a.state.TotalDistanceM <= 0 {
		return 0
	}
	perMeter := float64(activeElapsed) / a.state.TotalDistanceM
	return time.Duration(perMeter * a.unitM)
}

// CurrentPace derives pace from the rolling window over the incomplete
// unit, zero when the window holds fewer than two points.
func (a *Aggregator) CurrentPace() time.Duration {
	w := a.state.Window
	if len(w) < 2 {
		return 0
	}
	var dist float64
	for _, p := range w[1:] {
		dist += p.DistanceM
	}
	span := w[len(w)-1].Elapsed - w[0].Elapsed
	if dist <= 0 || span <= 0 {
		return 0
	}
	return time.Duration(float64(span) / dist * a.unitM)
}

// AverageSpeedMps is meters per second over active time.
func (a *Aggregator) AverageSpeedMps(activeElapsed time.Duration) float64 {
	if activeElapsed <= 0 {
		return 0
	}
	return a.state.TotalDistanceM / activeElapsed.Seconds()
}

// Calories is a linear estimate from distance only. An approximation, not
// personalized.
func (a *Aggregator) Calories() float64 {
	return a.state.TotalDistanceM / 1000 * a.caloriesPerKm
}
