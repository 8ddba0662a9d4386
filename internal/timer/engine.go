package timer

import (
	"errors"
	"time"
)

type PhaseKind string

const (
	PhasePrep PhaseKind = "prep"
	PhaseWork PhaseKind = "work"
	PhaseRest PhaseKind = "rest"
	PhaseIdle PhaseKind = "idle"
)

var (
	ErrNotUserTerminable = errors.New("current phase is not user terminable")
	ErrNotWorkPhase      = errors.New("current phase is not a work phase")
	ErrSequenceComplete  = errors.New("phase sequence already complete")
)

// Phase is one interval in an exercise's configured sequence. Duration 0
// means open-ended: the phase only advances through SkipPhase or
// CompleteSetEarly.
type Phase struct {
	Kind           PhaseKind     `json:"kind"`
	Duration       time.Duration `json:"duration"`
	UserTerminable bool          `json:"user_terminable"`
}

// SetRecord is the outcome of one completed work phase.
type SetRecord struct {
	Index    int           `json:"index"`
	Duration time.Duration `json:"duration"`
	Payload  SetPayload    `json:"payload"`
}

// Event is emitted on every phase transition, for cue triggering and live
// displays.
type Event struct {
	Phase     PhaseKind  `json:"phase"`
	Skipped   bool       `json:"skipped,omitempty"`
	Set       *SetRecord `json:"set,omitempty"`
	NextPhase PhaseKind  `json:"next_phase"`
}

// State is the serializable part of the engine.
type State struct {
	PhaseIndex     int           `json:"phase_index"`
	PhaseRemaining time.Duration `json:"phase_remaining"`
	PhaseElapsed   time.Duration `json:"phase_elapsed"`
	CompletedSets  []SetRecord   `json:"completed_sets"`
}

// Engine drives one exercise session's phase sequence. It is agnostic to
// the meaning of the payload it stamps onto completed sets.
type Engine struct {
	plan  Plan
	state State
}

func NewEngine(plan Plan) *Engine {
	e := &Engine{plan: plan}
	if len(plan.Phases) > 0 {
		e.state.PhaseRemaining = plan.Phases[0].Duration
	}
	return e
}

// RestoreEngine rebuilds an engine around snapshotted state.
func RestoreEngine(plan Plan, state State) *Engine {
	return &Engine{plan: plan, state: state}
}

func (e *Engine) State() State { return e.state }
func (e *Engine) Plan() Plan   { return e.plan }

// Phase reports the current phase kind, PhaseIdle once the sequence is
// exhausted.
func (e *Engine) Phase() PhaseKind {
	if e.done() {
		return PhaseIdle
	}
	return e.plan.Phases[e.state.PhaseIndex].Kind
}

// PhaseRemaining is the countdown for the current phase, zero for
// open-ended phases and once idle.
func (e *Engine) PhaseRemaining() time.Duration {
	if e.done() {
		return 0
	}
	return e.state.PhaseRemaining
}

func (e *Engine) done() bool {
	return e.state.PhaseIndex >= len(e.plan.Phases)
}

// Tick advances the countdown by elapsed. Each zero-crossing transitions
// exactly one phase; a large elapsed may cross several phases, never more
// than once each. Open-ended phases accrue elapsed time and never
// transition on their own.
func (e *Engine) Tick(elapsed time.Duration) []Event {
	var events []Event
	for elapsed > 0 && !e.done() {
		phase := e.plan.Phases[e.state.PhaseIndex]
		if phase.Duration == 0 {
			e.state.PhaseElapsed += elapsed
			return events
		}

		if elapsed < e.state.PhaseRemaining {
			e.state.PhaseRemaining -= elapsed
			e.state.PhaseElapsed += elapsed
			return events
		}

		elapsed -= e.state.PhaseRemaining
		events = append(events, e.completePhase(phase.Duration, false, e.plan.DefaultPayload))
	}
	return events
}

// SkipPhase ends the current phase immediately. Only phases marked user
// terminable may be skipped; a skipped work phase still records its set
// with the time actually spent.
func (e *Engine) SkipPhase() (Event, error) {
	if e.done() {
		return Event{}, ErrSequenceComplete
	}
	phase := e.plan.Phases[e.state.PhaseIndex]
	if !phase.UserTerminable {
		return Event{}, ErrNotUserTerminable
	}
	ev := e.completePhase(e.elapsedInPhase(phase), true, e.plan.DefaultPayload)
	return ev, nil
}

// CompleteSetEarly ends the current work phase now, recording the given
// payload instead of the plan default.
func (e *Engine) CompleteSetEarly(payload SetPayload) (Event, error) {
	if e.done() {
		return Event{}, ErrSequenceComplete
	}
	phase := e.plan.Phases[e.state.PhaseIndex]
	if phase.Kind != PhaseWork {
		return Event{}, ErrNotWorkPhase
	}
	if !phase.UserTerminable {
		return Event{}, ErrNotUserTerminable
	}
	ev := e.completePhase(e.elapsedInPhase(phase), true, payload)
	return ev, nil
}

func (e *Engine) elapsedInPhase(phase Phase) time.Duration {
	if phase.Duration == 0 {
		return e.state.PhaseElapsed
	}
	return phase.Duration - e.state.PhaseRemaining
}

func (e *Engine) completePhase(duration time.Duration, skipped bool, payload SetPayload) Event {
	phase := e.plan.Phases[e.state.PhaseIndex]

	ev := Event{Phase: phase.Kind, Skipped: skipped}
	if phase.Kind == PhaseWork {
		rec := SetRecord{
			Index:    len(e.state.CompletedSets) + 1,
			Duration: duration,
			Payload:  payload,
		}
		e.state.CompletedSets = append(e.state.CompletedSets, rec)
		ev.Set = &rec
	}

	e.state.PhaseIndex++
	e.state.PhaseElapsed = 0
	e.state.PhaseRemaining = 0
	if !e.done() {
		e.state.PhaseRemaining = e.plan.Phases[e.state.PhaseIndex].Duration
	}
	ev.NextPhase = e.Phase()
	return ev
}
