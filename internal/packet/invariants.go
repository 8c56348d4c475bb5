package packet

import "strings"

// CheckInvariants validates the fixed coupling rules between fail-safe,
// escalation level, clamp, and constraint margin that every emitted
// packet must satisfy (spec.md §7). Hard invariants return a non-nil
// *InvariantViolation with Soft == false; the single soft invariant
// (constraint margin below zero) returns Soft == true and must be logged
// by the caller rather than treated as fatal.
//
// Every violation is collected rather than returning on the first, so a
// caller that wants to log every broken rule at once can range over the
// result; callers that only care whether emission should be blocked can
// filter for !Soft.
func CheckInvariants(p Packet) []*InvariantViolation {
	var violations []*InvariantViolation
	drivers := p.MDM.EscalationDrivers

	if containsDriver(drivers, "fail_safe") {
		if p.MDM.Level != 2 {
			violations = append(violations, &InvariantViolation{
				Name: "fail_safe_implies_level_2", Detail: "fail_safe driver present but escalation level != 2",
			})
		}
		if p.MDM.EscalationAction != "HOLD_REVIEW" {
			violations = append(violations, &InvariantViolation{
				Name: "fail_safe_implies_hold_review", Detail: "fail_safe driver present but escalation_action != HOLD_REVIEW",
			})
		}
		if p.MDM.SoftClamp {
			violations = append(violations, &InvariantViolation{
				Name: "fail_safe_excludes_clamp", Detail: "fail_safe driver present but soft_clamp is true",
			})
		}
	}

	if containsDriver(drivers, "no_valid_candidates") {
		if p.MDM.Level != 2 {
			violations = append(violations, &InvariantViolation{
				Name: "no_valid_candidates_implies_level_2", Detail: "no_valid_candidates driver present but escalation level != 2",
			})
		}
		if p.MDM.ValidCandidateCount != 0 {
			violations = append(violations, &InvariantViolation{
				Name: "no_valid_candidates_implies_zero_valid", Detail: "no_valid_candidates driver present but valid_candidate_count != 0",
			})
		}
	}

	if p.MDM.Level == 1 && !p.MDM.SoftClamp {
		violations = append(violations, &InvariantViolation{
			Name: "level_1_implies_clamp", Detail: "escalation level == 1 but soft_clamp is false",
		})
	}

	if p.MDM.Level == 0 && p.MDM.EscalationDriver != "none" {
		violations = append(violations, &InvariantViolation{
			Name: "level_0_implies_no_driver", Detail: "escalation level == 0 but escalation_driver != \"none\"",
		})
	}

	if p.MDM.ConstraintMargin < 0 && !containsAny(drivers, "fail_safe", "no_valid_candidates") {
		if !containsDriver(drivers, "constraint_violation") {
			violations = append(violations, &InvariantViolation{
				Name:   "negative_margin_implies_constraint_violation_driver",
				Detail: "constraint_margin < 0 but no driver names constraint_violation",
				Soft:   true,
			})
		}
	}

	return violations
}

// HardViolations filters out the soft invariant, leaving only the
// violations that must block emission.
func HardViolations(violations []*InvariantViolation) []*InvariantViolation {
	var out []*InvariantViolation
	for _, v := range violations {
		if !v.Soft {
			out = append(out, v)
		}
	}
	return out
}

func containsDriver(drivers []string, name string) bool {
	for _, d := range drivers {
		if strings.Contains(strings.ToLower(d), name) {
			return true
		}
	}
	return false
}

func containsAny(drivers []string, names ...string) bool {
	for _, n := range names {
		if containsDriver(drivers, n) {
			return true
		}
	}
	return false
}
