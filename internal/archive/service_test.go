package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"

	"github.com/ivoyovchev/climbingtracker99-sub004/internal/metrics"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/session"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/timer"
)

var errArchive = errors.New("archive error")

func finalizedRecord() session.FinalizedRecord {
	finished := time.Date(2026, 8, 20, 11, 0, 0, 0, time.UTC)
	return session.FinalizedRecord{
		SessionID:       "session-1",
		UserID:          "user-1",
		Kind:            session.KindGPS,
		StartedAt:       finished.Add(-time.Hour),
		FinishedAt:      finished,
		ActiveDuration:  55 * time.Minute,
		DistanceM:       8000,
		ElevationGainM:  420,
		ElevationLossM:  180,
		Splits:          []metrics.Split{{Index: 1, DistanceM: 1000, Duration: 6 * time.Minute, Pace: 6 * time.Minute}},
		AveragePace:     411 * time.Second,
		AverageSpeedMps: 2.42,
		Calories:        496,
	}
}

func TestSaveFinalized(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	rec := finalizedRecord()
	mock.ExpectExec(`INSERT INTO finalized_sessions`).
		WithArgs(rec.SessionID, rec.UserID, "gps", rec.StartedAt, rec.FinishedAt,
			rec.ActiveDuration.Milliseconds(),
			rec.DistanceM, rec.ElevationGainM, rec.ElevationLossM,
			rec.AveragePace.Milliseconds(), rec.AverageSpeedMps, rec.Calories,
			"", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock)
	if err := svc.SaveFinalized(context.Background(), rec); err != nil {
		t.Fatalf("save finalized: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveFinalizedExercise(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	rec := session.FinalizedRecord{
		SessionID:      "session-2",
		UserID:         "user-1",
		Kind:           session.KindExercise,
		Exercise:       timer.ExerciseHangboard,
		PlanName:       "repeaters",
		ActiveDuration: 10 * time.Minute,
		CompletedSets: []timer.SetRecord{
			{Index: 1, Duration: 7 * time.Second, Payload: timer.SetPayload{Kind: timer.ExerciseHangboard}},
		},
	}

	mock.ExpectExec(`INSERT INTO finalized_sessions`).
		WithArgs(rec.SessionID, rec.UserID, "exercise", rec.StartedAt, rec.FinishedAt,
			rec.ActiveDuration.Milliseconds(),
			0.0, 0.0, 0.0, int64(0), 0.0, 0.0,
			"hangboard", "repeaters", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock)
	if err := svc.SaveFinalized(context.Background(), rec); err != nil {
		t.Fatalf("save finalized: %v", err)
	}
}

func TestSaveFinalizedError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO finalized_sessions`).
		WillReturnError(errArchive)

	svc := NewService(mock)
	if err := svc.SaveFinalized(context.Background(), finalizedRecord()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, kind, COALESCE\(distance_m,0\), COALESCE\(calories,0\), active_duration_ms`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "kind", "distance_m", "calories", "active_duration_ms"}).
			AddRow("session-1", "gps", 8000.0, 496.0, int64(3300000)))

	svc := NewService(mock)
	sessions, err := svc.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != "session-1" {
		t.Fatalf("unexpected result: %+v", sessions)
	}
}

func TestListByUserQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, kind`).
		WithArgs("user-1").
		WillReturnError(errArchive)

	svc := NewService(mock)
	if _, err := svc.ListByUser(context.Background(), "user-1"); err == nil {
		t.Fatalf("expected error")
	}
}
