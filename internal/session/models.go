package session

import (
	"errors"
	"time"

	"github.com/ivoyovchev/climbingtracker99-sub004/internal/metrics"
	"github.com/ivoyovchev/climbingtracker99-sub004/internal/timer"
)

type Kind string

const (
	KindGPS      Kind = "gps"
	KindExercise Kind = "exercise"
)

type State string

const (
	StateIdle      State = "idle"
	StateActive    State = "active"
	StatePaused    State = "paused"
	StateFinished  State = "finished"
	StateCancelled State = "cancelled"
)

func (s State) Terminal() bool {
	return s == StateFinished || s == StateCancelled
}

// Invalid-transition failures. Callers must reconcile with the current
// state rather than retry blindly.
var (
	ErrAlreadyActive   = errors.New("session already active")
	ErrNotActive       = errors.New("session not active")
	ErrNotPaused       = errors.New("session not paused")
	ErrNoActiveSession = errors.New("no active session")
	ErrUnknownSession  = errors.New("unknown session")
	ErrNotRecoverable  = errors.New("no recoverable session")
)

// Session is one live or completed activity. Mutated only by its
// Controller.
type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id,omitempty"`
	Kind       Kind       `json:"kind"`
	State      State      `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Time spent in Active, excluding paused intervals. Accrued from
	// wall-clock ticks, so it keeps counting through GPS signal loss.
	ActiveDuration time.Duration `json:"active_duration"`
}

type EventType string

const (
	EventStarted        EventType = "started"
	EventPaused         EventType = "paused"
	EventResumed        EventType = "resumed"
	EventFinished       EventType = "finished"
	EventCancelled      EventType = "cancelled"
	EventRecovered      EventType = "recovered"
	EventSplitCompleted EventType = "split_completed"
	EventPhaseComplete  EventType = "phase_complete"
)

// Event is emitted on every state transition and on split/phase
// completions, for collaborators driving live displays and cues.
type Event struct {
	Type      EventType        `json:"type"`
	SessionID string           `json:"session_id"`
	At        time.Time        `json:"at"`
	State     State            `json:"state,omitempty"`
	Split     *metrics.Split   `json:"split,omitempty"`
	Phase     *timer.Event     `json:"phase,omitempty"`
	Record    *FinalizedRecord `json:"record,omitempty"`
}

// Publisher receives session events. *stream.Hub satisfies it.
type Publisher interface {
	Publish(sessionID string, v any)
}

// LiveView is the read-only consistent state returned to live displays.
type LiveView struct {
	SessionID      string        `json:"session_id"`
	Kind           Kind          `json:"kind"`
	State          State         `json:"state"`
	StartedAt      time.Time     `json:"started_at"`
	ActiveDuration time.Duration `json:"active_duration"`

	// GPS sessions.
	DistanceM       float64         `json:"distance_m,omitempty"`
	ElevationGainM  float64         `json:"elevation_gain_m,omitempty"`
	ElevationLossM  float64         `json:"elevation_loss_m,omitempty"`
	Splits          []metrics.Split `json:"splits,omitempty"`
	AveragePace     time.Duration   `json:"average_pace,omitempty"`
	CurrentPace     time.Duration   `json:"current_pace,omitempty"`
	AverageSpeedMps float64         `json:"average_speed_mps,omitempty"`
	Calories        float64         `json:"calories,omitempty"`

	// Exercise sessions.
	Phase          timer.PhaseKind   `json:"phase,omitempty"`
	PhaseRemaining time.Duration     `json:"phase_remaining,omitempty"`
	CompletedSets  []timer.SetRecord `json:"completed_sets,omitempty"`
	ConfiguredSets int               `json:"configured_sets,omitempty"`
}

// FinalizedRecord is the immutable summary produced when a session
// finishes. Corrections require a new session.
type FinalizedRecord struct {
	SessionID      string        `json:"session_id"`
	UserID         string        `json:"user_id,omitempty"`
	Kind           Kind          `json:"kind"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	ActiveDuration time.Duration `json:"active_duration"`

	DistanceM       float64         `json:"distance_m,omitempty"`
	ElevationGainM  float64         `json:"elevation_gain_m,omitempty"`
	ElevationLossM  float64         `json:"elevation_loss_m,omitempty"`
	Splits          []metrics.Split `json:"splits,omitempty"`
	AveragePace     time.Duration   `json:"average_pace,omitempty"`
	AverageSpeedMps float64         `json:"average_speed_mps,omitempty"`
	Calories        float64         `json:"calories,omitempty"`

	Exercise      timer.ExerciseKind `json:"exercise,omitempty"`
	PlanName      string             `json:"plan_name,omitempty"`
	CompletedSets []timer.SetRecord  `json:"completed_sets,omitempty"`
}

// snapshotState is the versioned envelope body written to the snapshot
// store: the session plus whichever engine state its kind owns.
type snapshotState struct {
	Session Session        `json:"session"`
	Metrics *metrics.State `json:"metrics,omitempty"`
	Timer   *timerSnapshot `json:"timer,omitempty"`
}

type timerSnapshot struct {
	Plan  timer.Plan  `json:"plan"`
	State timer.State `json:"state"`
}
