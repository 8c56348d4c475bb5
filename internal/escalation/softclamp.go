package escalation

import "github.com/aegiskernel/mdm/internal/mdmtypes"

// ClampParams carries the soft-clamp projection coefficients, resolved
// from Config.
type ClampParams struct {
	Alpha float64
	Beta  float64
	Gamma float64
}

// Rescorer scores a clamped action from scratch; callers pass the same
// evaluator used for the original candidate generation so the clamped
// action's scores are never derived incrementally.
type Rescorer func(a mdmtypes.Action) mdmtypes.MoralScores

// ClampResult is the outcome of a soft-clamp application.
type ClampResult struct {
	Applied         bool
	Action          mdmtypes.Action
	Scores          mdmtypes.MoralScores
	DeltaConfidence float64
}

// ApplySoftClamp projects the selected action toward safeAction, scaled
// by cus (the cumulative uncertainty score) and the three clamp
// coefficients, then rescores the projected action from scratch. It is
// only meaningful to call this when level == 1 and fail-safe did not
// fire; callers are responsible for that gate (spec.md §4.J).
//
// The projection weight per axis: severity and delay move by Alpha,
// compassion by Beta, and intervention by Gamma.
func ApplySoftClamp(selected mdmtypes.Action, safe mdmtypes.Action, cus float64, p ClampParams, rescore Rescorer, originalConfidence float64, confidenceOf func(mdmtypes.MoralScores) float64) ClampResult {
	weight := clamp01(cus)

	clamped := mdmtypes.Action{
		lerp(selected[mdmtypes.ActSeverity], safe[mdmtypes.ActSeverity], weight*p.Alpha),
		lerp(selected[mdmtypes.ActCompassion], safe[mdmtypes.ActCompassion], weight*p.Beta),
		lerp(selected[mdmtypes.ActIntervention], safe[mdmtypes.ActIntervention], weight*p.Gamma),
		lerp(selected[mdmtypes.ActDelay], safe[mdmtypes.ActDelay], weight*p.Alpha),
	}

	scores := rescore(clamped)
	newConfidence := confidenceOf(scores)

	return ClampResult{
		Applied:         true,
		Action:          clamped,
		Scores:          scores,
		DeltaConfidence: newConfidence - originalConfidence,
	}
}

func lerp(from, to, weight float64) float64 {
	weight = clamp01(weight)
	return clamp01(from + (to-from)*weight)
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
