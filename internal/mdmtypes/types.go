// Package mdmtypes holds the shared value types passed between pipeline
// components: the raw event, the encoded state vectors, candidate actions,
// moral scores, the mutable cross-call context, and the trace record.
package mdmtypes

// StateKeys is the fixed alphabetical ordering of the nine moral/contextual
// dimensions read out of an Event. Every component that touches a state
// vector indexes it by this order; it is the canonical contract for
// state_hash equality (spec.md §3).
var StateKeys = [9]string{
	"compassion",
	"context",
	"empathy",
	"harm_sens",
	"justice",
	"physical",
	"responsibility",
	"risk",
	"social",
}

// Event is the raw input mapping: string keys to numeric scalars. Only the
// StateKeys fields are consumed by the core; additional keys are ignored by
// the encoder but may still be referenced elsewhere (e.g. entity_id).
type Event map[string]float64

// Action is the four-scalar candidate the pipeline scores and selects
// between: [severity, compassion, intervention, delay], each in [0,1].
type Action [4]float64

const (
	ActSeverity = iota
	ActCompassion
	ActIntervention
	ActDelay
)

// MoralScores is the {W, J, H, C} evaluation of a single Action.
type MoralScores struct {
	W float64
	J float64
	H float64
	C float64
}

// Weights are the selector objective coefficients: S = alpha*W + beta*J -
// gamma*H + delta*C.
type Weights struct {
	Alpha float64
	Beta  float64
	Gamma float64
	Delta float64
}

// Objective evaluates the selector objective for a single score record.
func (w Weights) Objective(s MoralScores) float64 {
	return w.Alpha*s.W + w.Beta*s.J - w.Gamma*s.H + w.Delta*s.C
}

// DefaultWeights mirrors the reference pipeline's default selector weights.
func DefaultWeights() Weights {
	return Weights{Alpha: 1.0, Beta: 1.0, Gamma: 1.0, Delta: 1.0}
}

// Context is the mutable, externally-owned state threaded across pipeline
// calls for a single event stream. It has single-writer semantics: a
// concurrent stream must own its own Context (spec.md §5).
type Context struct {
	CUSHistory         []float64
	DriverHistory      []string
	ExternalConfidence *float64
	AssertInvariants   bool
}

// Scored pairs a candidate Action with its evaluated MoralScores.
type Scored struct {
	Action Action
	Scores MoralScores
}

// TraceStep is one recorded event in the pipeline's step log.
type TraceStep struct {
	Step      int            `json:"step"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data"`
}

// Trace is the full versioned step log for one pipeline call.
type Trace struct {
	Version int         `json:"version"`
	Steps   []TraceStep `json:"steps"`
}

const TraceVersion = 1
