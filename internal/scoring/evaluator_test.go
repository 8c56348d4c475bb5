package scoring

import (
	"errors"
	"testing"

	"github.com/aegiskernel/mdm/internal/mdmtypes"
)

func TestEvaluate_ScoresClampedToUnitInterval(t *testing.T) {
	x := StateVector{1, 1, 1, 1, 1, 1, 1, 1, 1}
	a := mdmtypes.Action{1, 1, 1, 1}
	s := Evaluate(x, a)
	for name, v := range map[string]float64{"W": s.W, "J": s.J, "H": s.H, "C": s.C} {
		if v < 0 || v > 1 {
			t.Errorf("%s out of [0,1]: %v", name, v)
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	x := StateVector{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
	a := mdmtypes.Action{0.2, 0.4, 0.6, 0.8}
	first := Evaluate(x, a)
	second := Evaluate(x, a)
	if first != second {
		t.Errorf("expected deterministic scores, got %v vs %v", first, second)
	}
}

func TestEvaluateWithHook_NilHookFallsBackToReference(t *testing.T) {
	x := StateVector{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	a := mdmtypes.Action{0.5, 0.5, 0.5, 0.5}
	got := EvaluateWithHook(x, a, nil, nil)
	want := Evaluate(x, a)
	if got != want {
		t.Errorf("expected fallback to Evaluate, got %v want %v", got, want)
	}
}

func TestEvaluateWithHook_ErrorIsFailClosedToReference(t *testing.T) {
	x := StateVector{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	a := mdmtypes.Action{0.5, 0.5, 0.5, 0.5}

	var loggedErr error
	hook := func(x StateVector, a mdmtypes.Action) (mdmtypes.MoralScores, error) {
		return mdmtypes.MoralScores{}, errors.New("private model unavailable")
	}

	got := EvaluateWithHook(x, a, hook, func(err error) { loggedErr = err })
	want := Evaluate(x, a)
	if got != want {
		t.Errorf("expected fail-closed fallback to Evaluate, got %v want %v", got, want)
	}
	if loggedErr == nil {
		t.Error("expected onHookError to be invoked with the hook's error")
	}
}

func TestEvaluateWithHook_SuccessfulHookIsUsed(t *testing.T) {
	x := StateVector{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	a := mdmtypes.Action{0.5, 0.5, 0.5, 0.5}
	custom := mdmtypes.MoralScores{W: 0.9, J: 0.9, H: 0.1, C: 0.9}

	hook := func(x StateVector, a mdmtypes.Action) (mdmtypes.MoralScores, error) {
		return custom, nil
	}

	got := EvaluateWithHook(x, a, hook, nil)
	if got != custom {
		t.Errorf("expected hook result used, got %v want %v", got, custom)
	}
}
