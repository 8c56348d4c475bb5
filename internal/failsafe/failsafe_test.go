package failsafe

import (
	"testing"

	"github.com/aegiskernel/mdm/internal/mdmtypes"
)

func TestEvaluate_NoOverrideWithinBounds(t *testing.T) {
	r := Evaluate(mdmtypes.MoralScores{J: 0.8, H: 0.2}, 0.3, 0.6, mdmtypes.Action{})
	if r.Override {
		t.Errorf("expected no override, got trigger %q", r.Trigger)
	}
}

func TestEvaluate_JCriticalOnly(t *testing.T) {
	r := Evaluate(mdmtypes.MoralScores{J: 0.1, H: 0.2}, 0.3, 0.6, mdmtypes.Action{1, 2, 3, 4})
	if !r.Override || r.Trigger != TriggerJ {
		t.Errorf("expected J_critical override, got override=%v trigger=%q", r.Override, r.Trigger)
	}
	if r.SafeAction != (mdmtypes.Action{1, 2, 3, 4}) {
		t.Errorf("expected safe action copied through, got %v", r.SafeAction)
	}
	if !r.HumanEscalation {
		t.Error("expected HumanEscalation true on override")
	}
}

func TestEvaluate_HCriticalOnly(t *testing.T) {
	r := Evaluate(mdmtypes.MoralScores{J: 0.8, H: 0.9}, 0.3, 0.6, mdmtypes.Action{})
	if !r.Override || r.Trigger != TriggerH {
		t.Errorf("expected H_critical override, got override=%v trigger=%q", r.Override, r.Trigger)
	}
}

func TestEvaluate_BothCriticalTakesPrecedence(t *testing.T) {
	r := Evaluate(mdmtypes.MoralScores{J: 0.1, H: 0.9}, 0.3, 0.6, mdmtypes.Action{})
	if !r.Override || r.Trigger != TriggerJAndH {
		t.Errorf("expected combined trigger, got override=%v trigger=%q", r.Override, r.Trigger)
	}
}
