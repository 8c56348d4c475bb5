// Package escalation implements the Escalation Resolver (spec.md §4.I) and
// Soft-Clamp (spec.md §4.J).
package escalation

import (
	"sort"
	"strings"
)

// Driver priority, fixed (spec.md §4.I): primary driver is the first
// element after sorting by this priority. Unknown drivers sort last.
var driverPriority = []string{
	"fail_safe",
	"no_valid_candidates",
	"h_critical",
	"constraint_violation",
	"as_norm",
	"temporal_drift",
	"confidence",
}

func priorityIndex(driver string) int {
	lower := strings.ToLower(driver)
	for i, p := range driverPriority {
		if strings.Contains(lower, p) {
			return i
		}
	}
	return len(driverPriority)
}

// BaseThresholds carries the resolver's threshold inputs, independent of
// fail-safe/no-valid-candidates (those are applied afterward as hard
// overrides by Resolve).
type BaseThresholds struct {
	HCritical                    float64
	ConfidenceLowEscalationLevel int
	ConfidenceEscalationForce    float64
}

// BaseLevelAndDriver derives the level/driver pair from confidence,
// constraint margin, the selected action's H, and the AS-norm soft
// trigger — before any fail-safe or no-valid-candidates override is
// applied.
func BaseLevelAndDriver(effectiveConfidence, constraintMargin, hSelected float64, asNormTrigger bool, t BaseThresholds) (level int, driver string) {
	switch {
	case hSelected > t.HCritical:
		return 2, "h_critical"
	case constraintMargin < 0:
		return 2, "constraint_violation"
	case effectiveConfidence < t.ConfidenceEscalationForce:
		return 2, "confidence"
	case asNormTrigger:
		return 1, "as_norm"
	case effectiveConfidence < 0.5:
		return t.ConfidenceLowEscalationLevel, "confidence"
	default:
		return 0, "none"
	}
}

// Resolve applies the hard overrides (fail-safe, then no-valid-candidates
// are mutually exclusive — fail-safe always wins if both conditions were
// somehow set, matching the reference engine's ordering) and appends any
// subordinate drift driver, then sorts by priority to find the primary
// driver.
func Resolve(baseLevel int, baseDriver string, failSafeOverride bool, noValidCandidates bool, driftApplied bool, driftDriver string) (level int, drivers []string, primary string) {
	switch {
	case failSafeOverride:
		return 2, []string{"fail_safe"}, "fail_safe"
	case noValidCandidates:
		return 2, []string{"no_valid_candidates"}, "no_valid_candidates"
	}

	level = baseLevel
	drivers = []string{baseDriver}

	if driftApplied && driftDriver != "none" {
		drivers = append(drivers, "temporal_drift:"+driftDriver)
		if level < 1 {
			level = 1
		}
	}

	sort.SliceStable(drivers, func(i, j int) bool {
		return priorityIndex(drivers[i]) < priorityIndex(drivers[j])
	})

	primary = "none"
	if len(drivers) > 0 {
		primary = drivers[0]
	}
	return level, drivers, primary
}
