package timer

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Plan is the configured phase sequence for one exercise session.
type Plan struct {
	Name           string       `json:"name"`
	Exercise       ExerciseKind `json:"exercise"`
	Phases         []Phase      `json:"phases"`
	DefaultPayload SetPayload   `json:"default_payload"`
}

// ConfiguredSets counts the work phases in the sequence. The engine can
// never record more sets than this.
func (p Plan) ConfiguredSets() int {
	n := 0
	for _, ph := range p.Phases {
		if ph.Kind == PhaseWork {
			n++
		}
	}
	return n
}

// PlanSpec is the declarative shape for exercise plans, accepted both as
// YAML documents and JSON request bodies. Durations are in seconds; zero
// work seconds means open-ended work phases advanced by the user.
type PlanSpec struct {
	Name        string       `json:"name" yaml:"name"`
	Exercise    ExerciseKind `json:"exercise" yaml:"exercise"`
	PrepSeconds int          `json:"prep_seconds" yaml:"prep_seconds"`
	PrepEachSet bool         `json:"prep_each_set" yaml:"prep_each_set"`
	Sets        int          `json:"sets" yaml:"sets"`
	WorkSeconds int          `json:"work_seconds" yaml:"work_seconds"`
	RestSeconds int          `json:"rest_seconds" yaml:"rest_seconds"`
	Payload     SetPayload   `json:"payload" yaml:"payload"`
}

// Build expands the spec into the concrete phase sequence: prep before the
// first work phase only (unless prep_each_set), rest between sets, no
// trailing rest.
func (s PlanSpec) Build() (Plan, error) {
	if s.Sets <= 0 {
		return Plan{}, fmt.Errorf("plan %q: sets must be positive", s.Name)
	}
	if s.Exercise == "" {
		return Plan{}, fmt.Errorf("plan %q: exercise is required", s.Name)
	}

	prep := time.Duration(s.PrepSeconds) * time.Second
	work := time.Duration(s.WorkSeconds) * time.Second
	rest := time.Duration(s.RestSeconds) * time.Second

	p := Plan{Name: s.Name, Exercise: s.Exercise, DefaultPayload: s.Payload}
	for i := 0; i < s.Sets; i++ {
		if i > 0 && rest > 0 {
			p.Phases = append(p.Phases, Phase{Kind: PhaseRest, Duration: rest, UserTerminable: true})
		}
		if prep > 0 && (i == 0 || s.PrepEachSet) {
			p.Phases = append(p.Phases, Phase{Kind: PhasePrep, Duration: prep, UserTerminable: true})
		}
		p.Phases = append(p.Phases, Phase{Kind: PhaseWork, Duration: work, UserTerminable: true})
	}
	return p, nil
}

// ParsePlan reads a YAML plan document.
func ParsePlan(data []byte) (Plan, error) {
	var spec PlanSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Plan{}, fmt.Errorf("parsing plan: %w", err)
	}
	return spec.Build()
}

// IntervalPlan builds the common shape programmatically: optional prep
// once before the first work phase, then sets alternating work and rest.
func IntervalPlan(name string, exercise ExerciseKind, sets int, prep, work, rest time.Duration, payload SetPayload) Plan {
	p := Plan{Name: name, Exercise: exercise, DefaultPayload: payload}
	if prep > 0 {
		p.Phases = append(p.Phases, Phase{Kind: PhasePrep, Duration: prep, UserTerminable: true})
	}
	for i := 0; i < sets; i++ {
		if i > 0 && rest > 0 {
			p.Phases = append(p.Phases, Phase{Kind: PhaseRest, Duration: rest, UserTerminable: true})
		}
		p.Phases = append(p.Phases, Phase{Kind: PhaseWork, Duration: work, UserTerminable: true})
	}
	return p
}

// OpenPlan builds a sequence of user-terminated work phases, for exercises
// advanced manually (e.g. a boulder circuit where each attempt ends on
// "next set").
func OpenPlan(name string, exercise ExerciseKind, sets int, rest time.Duration, payload SetPayload) Plan {
	p := Plan{Name: name, Exercise: exercise, DefaultPayload: payload}
	for i := 0; i < sets; i++ {
		if i > 0 && rest > 0 {
			p.Phases = append(p.Phases, Phase{Kind: PhaseRest, Duration: rest, UserTerminable: true})
		}
		p.Phases = append(p.Phases, Phase{Kind: PhaseWork, Duration: 0, UserTerminable: true})
	}
	return p
}
