// Package failsafe implements the Fail-Safe component (spec.md §4.F),
// grounded directly on the reference engine's fail_safe(): evaluated on
// the selected action's J and H, never on the worst-over-grid values.
package failsafe

import "github.com/aegiskernel/mdm/internal/mdmtypes"

// Result is the fail-safe outcome.
type Result struct {
	Override        bool
	SafeAction      mdmtypes.Action
	HumanEscalation bool
	Trigger         string // "" if Override is false
}

const (
	TriggerJAndH = "J_critical+H_critical"
	TriggerJ     = "J_critical"
	TriggerH     = "H_critical"
)

// Evaluate applies the fail-safe rule to the selected action's scores.
// safeAction is copied into the result on override; it is never shared by
// reference so callers can't mutate the caller's safe-action constant.
func Evaluate(scores mdmtypes.MoralScores, jCritical, hCritical float64, safeAction mdmtypes.Action) Result {
	switch {
	case scores.J < jCritical && scores.H > hCritical:
		return Result{Override: true, SafeAction: safeAction, HumanEscalation: true, Trigger: TriggerJAndH}
	case scores.J < jCritical:
		return Result{Override: true, SafeAction: safeAction, HumanEscalation: true, Trigger: TriggerJ}
	case scores.H > hCritical:
		return Result{Override: true, SafeAction: safeAction, HumanEscalation: true, Trigger: TriggerH}
	default:
		return Result{Override: false}
	}
}
