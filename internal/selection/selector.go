// Package selection implements the Selector (spec.md §4.E): Pareto
// frontier over (-H, J, W, C) with a strict lexicographic tie-break, or a
// no-valid-candidates fallback to the configured safe action.
package selection

import (
	"github.com/aegiskernel/mdm/internal/constraint"
	"github.com/aegiskernel/mdm/internal/mdmtypes"
)

// Candidate is a scored action paired with its constraint-check result,
// input to the selector.
type Candidate struct {
	Action mdmtypes.Scored
	Check  constraint.Result
}

// Result is the selector's outcome.
type Result struct {
	Action       mdmtypes.Action
	Scores       *mdmtypes.MoralScores // nil iff Reason == ReasonNoValidFallback
	Reason       string
	FrontierSize int
	ParetoGap    *float64
	// Margin is the chosen candidate's constraint.Result.Margin (the
	// tie-break's primary key). Zero when Reason == ReasonNoValidFallback,
	// since the safe-action fallback was never constraint-checked here.
	Margin float64
}

const (
	ReasonNoValidFallback = "no_valid_fallback"
	ReasonSingle          = "single"
	ReasonParetoTiebreak  = "pareto_tiebreak"
)

// Select runs the Pareto-frontier selection over the valid candidates in
// cands. safeAction is returned (with Reason=ReasonNoValidFallback,
// FrontierSize=0, ParetoGap=nil) when no candidate is valid.
func Select(cands []Candidate, weights mdmtypes.Weights, safeAction mdmtypes.Action) Result {
	var valid []Candidate
	for _, c := range cands {
		if c.Check.Valid {
			valid = append(valid, c)
		}
	}

	if len(valid) == 0 {
		return Result{
			Action:       safeAction,
			Scores:       nil,
			Reason:       ReasonNoValidFallback,
			FrontierSize: 0,
			ParetoGap:    nil,
		}
	}

	frontier := paretoFrontier(valid)
	sortFrontier(frontier, weights)

	best := frontier[0]
	bestScores := best.Action.Scores
	reason := ReasonSingle
	var gap *float64
	if len(frontier) > 1 {
		reason = ReasonParetoTiebreak
		g := weights.Objective(bestScores) - weights.Objective(frontier[1].Action.Scores)
		gap = &g
	}

	return Result{
		Action:       best.Action.Action,
		Scores:       &bestScores,
		Reason:       reason,
		FrontierSize: len(frontier),
		ParetoGap:    gap,
		Margin:       best.Check.Margin,
	}
}

// paretoFrontier returns the non-dominated subset of cands over the
// objective space (-H, J, W, C) — maximizing all four. A candidate p
// dominates q if p is >= q on every axis and > on at least one.
func paretoFrontier(cands []Candidate) []Candidate {
	var frontier []Candidate
	for i, p := range cands {
		dominated := false
		for j, q := range cands {
			if i == j {
				continue
			}
			if dominates(q.Action.Scores, p.Action.Scores) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, p)
		}
	}
	return frontier
}

func dominates(a, b mdmtypes.MoralScores) bool {
	axesA := [4]float64{-a.H, a.J, a.W, a.C}
	axesB := [4]float64{-b.H, b.J, b.W, b.C}
	strictlyBetter := false
	for i := range axesA {
		if axesA[i] < axesB[i] {
			return false
		}
		if axesA[i] > axesB[i] {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}

// sortFrontier orders the frontier by the tie-break: constraint_margin
// descending, H ascending, J descending, W descending, C descending.
func sortFrontier(frontier []Candidate, weights mdmtypes.Weights) {
	less := func(i, j int) bool {
		a, b := frontier[i], frontier[j]
		if a.Check.Margin != b.Check.Margin {
			return a.Check.Margin > b.Check.Margin
		}
		if a.Action.Scores.H != b.Action.Scores.H {
			return a.Action.Scores.H < b.Action.Scores.H
		}
		if a.Action.Scores.J != b.Action.Scores.J {
			return a.Action.Scores.J > b.Action.Scores.J
		}
		if a.Action.Scores.W != b.Action.Scores.W {
			return a.Action.Scores.W > b.Action.Scores.W
		}
		return a.Action.Scores.C > b.Action.Scores.C
	}
	insertionSort(frontier, less)
}

func insertionSort(s []Candidate, less func(i, j int) bool) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
