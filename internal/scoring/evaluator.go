// Package scoring implements the Moral Evaluator (spec.md §4.C): a pure,
// deterministic, continuous function from (state vector, action) to
// {W, J, H, C}, plus an injectable private-hook strategy that can replace
// the reference formula.
package scoring

import (
	"math"

	"github.com/aegiskernel/mdm/internal/mdmtypes"
)

// StateVector indexes state.Encoded.Vector by name for readability at the
// call sites below, avoiding a hard dependency from this package on the
// state package (the evaluator only needs the nine raw scalars, not the
// encoder's bookkeeping).
type StateVector = [9]float64

// field indices into StateVector, matching mdmtypes.StateKeys order.
const (
	fCompassion = iota
	fContext
	fEmpathy
	fHarmSens
	fJustice
	fPhysical
	fResponsibility
	fRisk
	fSocial
)

// Evaluate is the reference Moral Evaluator. It is deterministic,
// side-effect-free, and continuous in the action vector (a small change in
// action produces a proportional change in scores, so soft clamping has a
// proportional effect per spec.md §4.C).
func Evaluate(x StateVector, a mdmtypes.Action) mdmtypes.MoralScores {
	severity, compassionAct, intervention, delay := a[0], a[1], a[2], a[3]

	w := clamp01(0.45*x[fCompassion] + 0.25*x[fEmpathy] + 0.30*compassionAct*(1-0.5*severity))
	j := clamp01(0.5*x[fJustice] + 0.3*x[fResponsibility] + 0.2*(1-severity))
	h := clamp01(0.5*x[fRisk] + 0.3*x[fHarmSens] + 0.2*severity*(1-delay) - 0.15*compassionAct)
	c := clamp01(0.4*compassionAct + 0.3*x[fContext] + 0.3*x[fSocial] - 0.1*intervention)

	return mdmtypes.MoralScores{W: w, J: j, H: h, C: c}
}

// Hook is the private-model strategy signature: same inputs as the
// reference evaluator, returning (scores, err). A non-nil err means the
// reference result is used for that call; it is never fatal — see
// EvaluateWithHook. Absence of a private model is a nil Hook.
type Hook func(x StateVector, a mdmtypes.Action) (mdmtypes.MoralScores, error)

// EvaluateWithHook evaluates via hook if non-nil, falling back to the
// reference Evaluate on absence (hook == nil) or on any error returned by
// hook (fail-closed: the reference result is used and onHookError, if
// non-nil, is invoked for logging — mirroring reference_model_generic.py's
// compute_proposal_private, which returns None on ImportError and a safe
// HOLD-equivalent on any other exception, never raising).
func EvaluateWithHook(x StateVector, a mdmtypes.Action, hook Hook, onHookError func(error)) mdmtypes.MoralScores {
	if hook == nil {
		return Evaluate(x, a)
	}
	scores, err := hook(x, a)
	if err != nil {
		if onHookError != nil {
			onHookError(err)
		}
		return Evaluate(x, a)
	}
	return scores
}

// Sigmoid is exposed for components (confidence, generic reference scoring
// variants) that need the same logistic curve the reference evaluator's
// sibling formulas use.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
