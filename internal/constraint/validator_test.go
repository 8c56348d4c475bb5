package constraint

import (
	"reflect"
	"testing"

	"github.com/aegiskernel/mdm/internal/mdmtypes"
)

func testBox() Box {
	return Box{JMin: 0.5, HMax: 0.5, CMin: 0.3, CMax: 0.9}
}

func TestCheck_ValidWithinBox(t *testing.T) {
	r := Check(mdmtypes.MoralScores{J: 0.6, H: 0.4, C: 0.5}, testBox())
	if !r.Valid {
		t.Errorf("expected valid, got violations %v", r.Violations)
	}
	if r.Margin <= 0 {
		t.Errorf("expected positive margin, got %v", r.Margin)
	}
}

func TestCheck_FlagsEveryViolatedBound(t *testing.T) {
	r := Check(mdmtypes.MoralScores{J: 0.1, H: 0.9, C: 1.0}, testBox())
	if r.Valid {
		t.Fatal("expected invalid")
	}
	want := []string{TagJBelowMin, TagHAboveMax, TagCAboveMax}
	if !reflect.DeepEqual(r.Violations, want) {
		t.Errorf("expected violations %v, got %v", want, r.Violations)
	}
	if r.Margin >= 0 {
		t.Errorf("expected negative margin on violation, got %v", r.Margin)
	}
}

func TestCheck_CBelowMin(t *testing.T) {
	r := Check(mdmtypes.MoralScores{J: 0.6, H: 0.4, C: 0.1}, testBox())
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if len(r.Violations) != 1 || r.Violations[0] != TagCBelowMin {
		t.Errorf("expected only C_below_min, got %v", r.Violations)
	}
}

func TestCheck_MarginIsTightestBound(t *testing.T) {
	r := Check(mdmtypes.MoralScores{J: 0.51, H: 0.1, C: 0.5}, testBox())
	wantMargin := 0.01 // J margin (0.51-0.5) is tighter than H margin (0.4) etc.
	if diff := r.Margin - wantMargin; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected margin %v, got %v", wantMargin, r.Margin)
	}
}

func TestAggregate_CountsValidAndTags(t *testing.T) {
	results := []Result{
		{Valid: true},
		{Valid: false, Violations: []string{TagJBelowMin}},
		{Valid: false, Violations: []string{TagJBelowMin, TagHAboveMax}},
	}
	validCount, counts := Aggregate(results)
	if validCount != 1 {
		t.Errorf("expected validCount 1, got %d", validCount)
	}
	if counts[TagJBelowMin] != 2 {
		t.Errorf("expected TagJBelowMin count 2, got %d", counts[TagJBelowMin])
	}
	if counts[TagHAboveMax] != 1 {
		t.Errorf("expected TagHAboveMax count 1, got %d", counts[TagHAboveMax])
	}
}

func TestSortedReasonKeys(t *testing.T) {
	counts := map[string]int{TagHAboveMax: 1, TagCBelowMin: 2, TagJBelowMin: 3}
	got := SortedReasonKeys(counts)
	want := []string{TagCBelowMin, TagHAboveMax, TagJBelowMin}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected sorted keys %v, got %v", want, got)
	}
}
