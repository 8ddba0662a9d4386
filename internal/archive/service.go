package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ivoyovchev/climbingtracker99-sub004/internal/db"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/session"
)

// Service is the storage collaborator for finalized session records. The
// engine hands a record over on finish and keeps no reference afterwards.
type Service struct {
	db db.Querier
}

func NewService(querier db.Querier) *Service {
	return &Service{db: querier}
}

// SaveFinalized persists one immutable finalized record. Splits and sets
// are stored as JSONB alongside the scalar summary columns.
func (s *Service) SaveFinalized(ctx context.Context, rec session.FinalizedRecord) error {
	splits, err := json.Marshal(rec.Splits)
	if err != nil {
		return fmt.Errorf("encoding splits: %w", err)
	}
	sets, err := json.Marshal(rec.CompletedSets)
	if err != nil {
		return fmt.Errorf("encoding sets: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO finalized_sessions
			(id, user_id, kind, started_at, finished_at, active_duration_ms,
			 distance_m, elevation_gain_m, elevation_loss_m,
			 average_pace_ms, average_speed_mps, calories,
			 exercise, plan_name, splits, completed_sets)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		rec.SessionID, rec.UserID, string(rec.Kind), rec.StartedAt, rec.FinishedAt,
		rec.ActiveDuration.Milliseconds(),
		rec.DistanceM, rec.ElevationGainM, rec.ElevationLossM,
		rec.AveragePace.Milliseconds(), rec.AverageSpeedMps, rec.Calories,
		string(rec.Exercise), rec.PlanName, splits, sets,
	)
	return err
}

// Summary is the stored shape returned to listing queries.
type Summary struct {
	SessionID        string  `json:"session_id"`
	Kind             string  `json:"kind"`
	DistanceM        float64 `json:"distance_m"`
	Calories         float64 `json:"calories"`
	ActiveDurationMs int64   `json:"active_duration_ms"`
}

// ListByUser returns finalized session summaries, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, kind, COALESCE(distance_m,0), COALESCE(calories,0), active_duration_ms
		FROM finalized_sessions
		WHERE user_id=$1
		ORDER BY finished_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.SessionID, &sum.Kind, &sum.DistanceM, &sum.Calories, &sum.ActiveDurationMs); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
