package action

import (
	"testing"

	"github.com/aegiskernel/mdm/internal/mdmtypes"
)

func TestGenerate_DeterministicAcrossCalls(t *testing.T) {
	weights := mdmtypes.DefaultWeights()
	score := func(a mdmtypes.Action) mdmtypes.MoralScores {
		return mdmtypes.MoralScores{W: a[0], J: a[1], H: a[2], C: a[3]}
	}

	first := Generate(0.25, 0.1, 3, weights, score)
	second := Generate(0.25, 0.1, 3, weights, score)

	if len(first) != len(second) {
		t.Fatalf("expected deterministic candidate count, got %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Action != second[i].Action {
			t.Errorf("candidate %d differs between calls: %v vs %v", i, first[i].Action, second[i].Action)
		}
	}
}

func TestGenerate_NoDuplicateActions(t *testing.T) {
	weights := mdmtypes.DefaultWeights()
	score := func(a mdmtypes.Action) mdmtypes.MoralScores {
		return mdmtypes.MoralScores{W: a[0], J: a[1], H: a[2], C: a[3]}
	}

	out := Generate(0.25, 0.1, 3, weights, score)
	seen := make(map[mdmtypes.Action]bool, len(out))
	for _, s := range out {
		if seen[s.Action] {
			t.Errorf("duplicate action found: %v", s.Action)
		}
		seen[s.Action] = true
	}
}

func TestGenerate_AllActionsWithinUnitCube(t *testing.T) {
	weights := mdmtypes.DefaultWeights()
	score := func(a mdmtypes.Action) mdmtypes.MoralScores {
		return mdmtypes.MoralScores{W: a[0], J: a[1], H: a[2], C: a[3]}
	}

	out := Generate(0.25, 0.1, 3, weights, score)
	for _, s := range out {
		for axis, v := range s.Action {
			if v < 0 || v > 1 {
				t.Errorf("action axis %d out of [0,1]: %v", axis, v)
			}
		}
	}
}

func TestGrid_CoversAxisEndpoints(t *testing.T) {
	g := grid(0.5)
	hasZero, hasOne := false, false
	for _, a := range g {
		if a == (mdmtypes.Action{0, 0, 0, 0}) {
			hasZero = true
		}
		if a == (mdmtypes.Action{1, 1, 1, 1}) {
			hasOne = true
		}
	}
	if !hasZero || !hasOne {
		t.Error("expected grid to include both the all-zero and all-one corners")
	}
}

func TestRoundAction_RoundsToSixDecimals(t *testing.T) {
	in := mdmtypes.Action{0.1234567, 0.1234561, 0, 1}
	out := roundAction(in)
	if out[0] != 0.123457 {
		t.Errorf("expected 0.123457, got %v", out[0])
	}
	if out[1] != 0.123456 {
		t.Errorf("expected 0.123456, got %v", out[1])
	}
}
