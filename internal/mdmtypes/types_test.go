package mdmtypes

import (
	"math"
	"testing"
)

func TestWeights_ObjectiveCombinesScoresLinearly(t *testing.T) {
	w := Weights{Alpha: 2, Beta: 1, Gamma: 3, Delta: 0.5}
	s := MoralScores{W: 0.5, J: 0.4, H: 0.2, C: 0.8}

	got := w.Objective(s)
	want := 2*0.5 + 1*0.4 - 3*0.2 + 0.5*0.8
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Objective() = %v, want %v", got, want)
	}
}

func TestDefaultWeights_AreAllUnity(t *testing.T) {
	w := DefaultWeights()
	if w.Alpha != 1 || w.Beta != 1 || w.Gamma != 1 || w.Delta != 1 {
		t.Errorf("expected all-unity default weights, got %+v", w)
	}
}

func TestStateKeys_AreSortedAndUnique(t *testing.T) {
	seen := map[string]bool{}
	for i, k := range StateKeys {
		if seen[k] {
			t.Errorf("duplicate state key %q", k)
		}
		seen[k] = true
		if i > 0 && StateKeys[i-1] >= k {
			t.Errorf("state keys not in strict alphabetical order: %q before %q", StateKeys[i-1], k)
		}
	}
	if len(StateKeys) != 9 {
		t.Errorf("expected 9 state keys, got %d", len(StateKeys))
	}
}
