package timer

// ExerciseKind tags the per-exercise payload variant carried through to
// completed sets. The engine never inspects payload contents.
type ExerciseKind string

const (
	ExerciseHangboard ExerciseKind = "hangboard"
	ExerciseBoulder   ExerciseKind = "boulder"
	ExerciseStrength  ExerciseKind = "strength"
)

type HangboardSet struct {
	EdgeMM        int     `json:"edge_mm" yaml:"edge_mm"`
	AddedWeightKg float64 `json:"added_weight_kg" yaml:"added_weight_kg"`
	Grip          string  `json:"grip" yaml:"grip"`
}

type BoulderSet struct {
	Grade string `json:"grade" yaml:"grade"`
	Sent  bool   `json:"sent" yaml:"sent"`
}

type StrengthSet struct {
	WeightKg float64 `json:"weight_kg" yaml:"weight_kg"`
	Reps     int     `json:"reps" yaml:"reps"`
}

// SetPayload is a tagged variant over exercise kind. Exactly one of the
// pointer fields matching Kind is expected to be set.
type SetPayload struct {
	Kind      ExerciseKind  `json:"kind" yaml:"kind"`
	Hangboard *HangboardSet `json:"hangboard,omitempty" yaml:"hangboard,omitempty"`
	Boulder   *BoulderSet   `json:"boulder,omitempty" yaml:"boulder,omitempty"`
	Strength  *StrengthSet  `json:"strength,omitempty" yaml:"strength,omitempty"`
}
