package session

import (
	"time"

	"github.com/ivoyovchev/climbingtracker99-sub004/internal/metrics"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/timer"
)

// Finalize converts accumulated state into the immutable summary record.
// Pure transformation: derived fields are computed once here and frozen.
// A session with zero distance or zero sets still finalizes, with
// zero-valued metrics.
func Finalize(sess Session, ms *metrics.State, plan *timer.Plan, ts *timer.State, cfg Config) FinalizedRecord {
	cfg = cfg.withDefaults()

	rec := FinalizedRecord{
		SessionID:      sess.ID,
		UserID:         sess.UserID,
		Kind:           sess.Kind,
		StartedAt:      sess.StartedAt,
		ActiveDuration: sess.ActiveDuration,
	}
	if sess.FinishedAt != nil {
		rec.FinishedAt = *sess.FinishedAt
	}

	if ms != nil {
		rec.DistanceM = ms.TotalDistanceM
		rec.ElevationGainM = ms.ElevationGainM
		rec.ElevationLossM = ms.ElevationLossM
		rec.Splits = append([]metrics.Split(nil), ms.Splits...)

		if cfg.IncludePartialSplit && ms.UnitDistanceM > 0 {
			partial := metrics.Split{
				Index:           len(rec.Splits) + 1,
				DistanceM:       ms.UnitDistanceM,
				Duration:        sess.ActiveDuration - ms.UnitStartElapsed,
				ElevationDeltaM: ms.UnitElevationM,
			}
			// pace extrapolated to a full unit so partials compare
			// against completed splits
			partial.Pace = time.Duration(float64(partial.Duration) / ms.UnitDistanceM * cfg.SplitUnitM)
			rec.Splits = append(rec.Splits, partial)
		}

		if ms.TotalDistanceM > 0 {
			rec.AveragePace = time.Duration(float64(sess.ActiveDuration) / ms.TotalDistanceM * cfg.SplitUnitM)
		}
		if sess.ActiveDuration > 0 {
			rec.AverageSpeedMps = ms.TotalDistanceM / sess.ActiveDuration.Seconds()
		}
		rec.Calories = ms.TotalDistanceM / 1000 * cfg.CaloriesPerKm
	}

	if ts != nil && plan != nil {
		rec.Exercise = plan.Exercise
		rec.PlanName = plan.Name
		rec.CompletedSets = append([]timer.SetRecord(nil), ts.CompletedSets...)
	}

	return rec
}

func (c *Controller) finalizeLocked() FinalizedRecord {
	var ms *metrics.State
	if c.agg != nil {
		state := c.agg.State()
		ms = &state
	}
	var plan *timer.Plan
	var ts *timer.State
	if c.eng != nil {
		p := c.eng.Plan()
		s := c.eng.State()
		plan, ts = &p, &s
	}
	return Finalize(c.session, ms, plan, ts, c.cfg)
}
