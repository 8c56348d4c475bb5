// Package action implements the Action Generator (spec.md §4.B): a coarse
// grid over the four action axes, scored and refined around the top
// candidates, deduplicated by rounding.
package action

import (
	"math"
	"sort"

	"github.com/aegiskernel/mdm/internal/mdmtypes"
)

// Scorer evaluates a single candidate action — the Moral Evaluator
// (component C) is injected here rather than imported, keeping the
// generator a pure function of its inputs plus the scoring callback.
type Scorer func(a mdmtypes.Action) mdmtypes.MoralScores

// Generate builds the coarse grid at stepSize (default 0.25 on [0,1] per
// axis), scores every coarse action with score and the selector objective
// weights, expands a local grid around the top refineTopN coarse actions
// at refineStep, and returns the deduplicated union (both coarse and
// refined) rounded to 6 decimals. Output is a finite, restartable sequence
// — purely a function of its inputs.
func Generate(stepSize, refineStep float64, refineTopN int, weights mdmtypes.Weights, score Scorer) []mdmtypes.Scored {
	coarse := grid(stepSize)
	scoredCoarse := make([]mdmtypes.Scored, len(coarse))
	for i, a := range coarse {
		scoredCoarse[i] = mdmtypes.Scored{Action: a, Scores: score(a)}
	}

	sort.SliceStable(scoredCoarse, func(i, j int) bool {
		return weights.Objective(scoredCoarse[i].Scores) > weights.Objective(scoredCoarse[j].Scores)
	})

	top := scoredCoarse
	if len(top) > refineTopN {
		top = top[:refineTopN]
	}

	seen := make(map[mdmtypes.Action]bool, len(coarse))
	var out []mdmtypes.Scored
	add := func(s mdmtypes.Scored) {
		key := roundAction(s.Action)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, mdmtypes.Scored{Action: key, Scores: score(key)})
	}

	for _, s := range scoredCoarse {
		add(s)
	}
	for _, t := range top {
		for _, a := range refineAround(t.Action, refineStep) {
			add(mdmtypes.Scored{Action: a})
		}
	}

	return out
}

// grid enumerates the Cartesian product over the four axes with the given
// step on [0,1], inclusive of 1.0.
func grid(step float64) []mdmtypes.Action {
	vals := axisValues(step)
	var out []mdmtypes.Action
	for _, a0 := range vals {
		for _, a1 := range vals {
			for _, a2 := range vals {
				for _, a3 := range vals {
					out = append(out, mdmtypes.Action{a0, a1, a2, a3})
				}
			}
		}
	}
	return out
}

func axisValues(step float64) []float64 {
	if step <= 0 {
		step = 0.25
	}
	var out []float64
	for v := 0.0; v <= 1.0+1e-9; v += step {
		out = append(out, clamp01(v))
	}
	return out
}

// refineAround builds a local grid in a ball of the given step around
// center, clamped to [0,1] on each axis.
func refineAround(center mdmtypes.Action, step float64) []mdmtypes.Action {
	deltas := []float64{-step, 0, step}
	var out []mdmtypes.Action
	for _, d0 := range deltas {
		for _, d1 := range deltas {
			for _, d2 := range deltas {
				for _, d3 := range deltas {
					out = append(out, mdmtypes.Action{
						clamp01(center[0] + d0),
						clamp01(center[1] + d1),
						clamp01(center[2] + d2),
						clamp01(center[3] + d3),
					})
				}
			}
		}
	}
	return out
}

func roundAction(a mdmtypes.Action) mdmtypes.Action {
	var out mdmtypes.Action
	for i, v := range a {
		out[i] = math.Round(v*1e6) / 1e6
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
