// Package constraint implements the Constraint Validator (spec.md §4.D):
// rejects actions whose scores fall outside [J_min, H_max, C_min, C_max],
// tagging each violation and aggregating deterministic counts.
package constraint

import (
	"sort"

	"github.com/aegiskernel/mdm/internal/mdmtypes"
)

// Box is the allowed score region.
type Box struct {
	JMin, HMax, CMin, CMax float64
}

// Result is the per-action validation outcome.
type Result struct {
	Valid      bool
	Violations []string
	// Margin is the signed distance of (J,H,C) from the box interior: the
	// minimum over all four bounds of (value - threshold) in the direction
	// that makes compliance positive. Negative iff any bound is violated.
	Margin float64
}

// violation tags, fixed set per spec.md §4.D.
const (
	TagJBelowMin = "J_below_min"
	TagHAboveMax = "H_above_max"
	TagCBelowMin = "C_below_min"
	TagCAboveMax = "C_above_max"
)

// Check validates a single scored action against box.
func Check(s mdmtypes.MoralScores, box Box) Result {
	var violations []string

	jMargin := s.J - box.JMin
	hMargin := box.HMax - s.H
	cMinMargin := s.C - box.CMin
	cMaxMargin := box.CMax - s.C

	if jMargin < 0 {
		violations = append(violations, TagJBelowMin)
	}
	if hMargin < 0 {
		violations = append(violations, TagHAboveMax)
	}
	if cMinMargin < 0 {
		violations = append(violations, TagCBelowMin)
	}
	if cMaxMargin < 0 {
		violations = append(violations, TagCAboveMax)
	}

	margin := jMargin
	for _, m := range []float64{hMargin, cMinMargin, cMaxMargin} {
		if m < margin {
			margin = m
		}
	}

	return Result{
		Valid:      len(violations) == 0,
		Violations: violations,
		Margin:     margin,
	}
}

// Aggregate builds the invalid_reason_counts map over a batch of results
// and returns the count of valid candidates. The map itself is unordered;
// callers that need a stable order use SortedReasonKeys.
func Aggregate(results []Result) (validCount int, invalidReasonCounts map[string]int) {
	invalidReasonCounts = map[string]int{}
	for _, r := range results {
		if r.Valid {
			validCount++
			continue
		}
		for _, tag := range r.Violations {
			invalidReasonCounts[tag]++
		}
	}
	return validCount, invalidReasonCounts
}

// SortedReasonKeys returns invalidReasonCounts' keys in sorted order, for
// deterministic serialization.
func SortedReasonKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
