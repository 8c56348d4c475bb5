// Package replay implements replay verification and the sensitivity
// check (spec.md §4.M): extracting the raw state back out of a packet's
// trace, re-running the pipeline over it, and comparing the result at
// one of three fidelity levels.
package replay

import (
	"fmt"

	"github.com/aegiskernel/mdm/internal/hashutil"
	"github.com/aegiskernel/mdm/internal/mdmtypes"
	"github.com/aegiskernel/mdm/internal/packet"
	"github.com/aegiskernel/mdm/internal/pipeline"
)

// Mode selects how strictly two decisions must agree to count as a
// faithful replay.
type Mode int

const (
	// ModeAction requires only that the selected action matches.
	ModeAction Mode = iota
	// ModeHash requires state_hash, config_hash, and trace_hash to all
	// match — the strictest, bitwise-deterministic check.
	ModeHash
	// ModeEthics requires the four moral scores to match within
	// tolerance, tolerating cosmetic trace differences.
	ModeEthics
)

const scoreTolerance = 1e-6

// ExtractRawState scans a trace for its step-0 raw_state event and
// reconstructs the event it recorded, mirroring the reference engine's
// extract_raw_state: the trace stores the raw event in plaintext
// specifically so a packet can be replayed without the caller re-supplying
// it. The event's data survives either as a live mdmtypes.Event (replaying
// in the same process that built the packet) or as the map[string]any a
// JSON round trip produces (replaying a packet loaded from storage).
func ExtractRawState(tr mdmtypes.Trace) (mdmtypes.Event, error) {
	for _, step := range tr.Steps {
		if step.Step != 0 || step.EventType != "raw_state" {
			continue
		}
		raw, ok := step.Data["event"]
		if !ok {
			return nil, fmt.Errorf("replay: raw_state step carries no event data")
		}
		switch v := raw.(type) {
		case mdmtypes.Event:
			return v, nil
		case map[string]float64:
			return mdmtypes.Event(v), nil
		case map[string]any:
			ev := make(mdmtypes.Event, len(v))
			for k, val := range v {
				f, ok := val.(float64)
				if !ok {
					return nil, fmt.Errorf("replay: raw_state field %q is not numeric", k)
				}
				ev[k] = f
			}
			return ev, nil
		default:
			return nil, fmt.Errorf("replay: raw_state event has unexpected type %T", raw)
		}
	}
	return nil, fmt.Errorf("replay: trace has no step-0 raw_state event")
}

// ExtractAction returns the packet's recorded final action, for callers
// that only need the decision output without re-running the pipeline.
func ExtractAction(p packet.Packet) mdmtypes.Action {
	return p.MDM.Action
}

// Result is the outcome of one replay comparison.
type Result struct {
	Mode    Mode
	Matched bool
	Detail  string
}

// Replay extracts the step-0 raw_state event from original's trace,
// re-runs pl over it with a fresh context, and compares the result
// against original under mode.
func Replay(pl *pipeline.Pipeline, original packet.Packet, mode Mode) (Result, error) {
	ev, err := ExtractRawState(original.Trace)
	if err != nil {
		return Result{}, err
	}

	ctx := &mdmtypes.Context{}
	out, err := pl.Decide(ev, ctx)
	if err != nil {
		return Result{}, fmt.Errorf("replay: decide: %w", err)
	}
	replayed := packet.Build(out, original.ConfigProfile, packet.Envelope{
		RunID: original.RunID, Ts: original.Ts, Source: original.Source,
		EntityID: original.EntityID, External: original.External,
		Input: original.Input, Review: original.Review,
	})

	switch mode {
	case ModeHash:
		replayedTraceHash, err := hashutil.HashValue(replayed.Trace)
		if err != nil {
			return Result{}, fmt.Errorf("replay: hash replayed trace: %w", err)
		}
		originalTraceHash, err := hashutil.HashValue(original.Trace)
		if err != nil {
			return Result{}, fmt.Errorf("replay: hash original trace: %w", err)
		}
		stateMatch := replayed.MDM.StateHash == original.MDM.StateHash
		configMatch := replayed.MDM.ConfigHash == original.MDM.ConfigHash
		traceMatch := replayedTraceHash == originalTraceHash
		matched := stateMatch && configMatch && traceMatch
		detail := "hash triple matches"
		if !matched {
			detail = fmt.Sprintf("hash mismatch: state %v config %v trace %v", stateMatch, configMatch, traceMatch)
		}
		return Result{Mode: mode, Matched: matched, Detail: detail}, nil

	case ModeEthics:
		matched := approxEqual(replayed.MDM.Scores.W, original.MDM.Scores.W) &&
			approxEqual(replayed.MDM.Scores.J, original.MDM.Scores.J) &&
			approxEqual(replayed.MDM.Scores.H, original.MDM.Scores.H) &&
			approxEqual(replayed.MDM.Scores.C, original.MDM.Scores.C)
		detail := "scores match within tolerance"
		if !matched {
			detail = "scores diverge beyond tolerance"
		}
		return Result{Mode: mode, Matched: matched, Detail: detail}, nil

	default: // ModeAction
		matched := replayed.MDM.Action == original.MDM.Action
		detail := "selected action matches"
		if !matched {
			detail = "selected action differs"
		}
		return Result{Mode: mode, Matched: matched, Detail: detail}, nil
	}
}

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= scoreTolerance
}

// SensitivityResult summarizes a perturbation sweep over the nine state
// keys.
type SensitivityResult struct {
	FlipCount      int
	LevelFlipCount int
	Perturbations  int
}

// RunSensitivityCheck perturbs each of the nine state keys in ev by +eps
// and -eps (clamped to [0,1]), re-runs the pipeline for each variant, and
// counts how many flip the selected action or the escalation level
// relative to the unperturbed baseline.
func RunSensitivityCheck(pl *pipeline.Pipeline, ev mdmtypes.Event, eps float64) (SensitivityResult, error) {
	baseline, err := pl.Decide(ev, &mdmtypes.Context{})
	if err != nil {
		return SensitivityResult{}, fmt.Errorf("replay: baseline decide: %w", err)
	}

	var result SensitivityResult
	for _, key := range mdmtypes.StateKeys {
		for _, delta := range []float64{eps, -eps} {
			perturbed := make(mdmtypes.Event, len(ev))
			for k, v := range ev {
				perturbed[k] = v
			}
			perturbed[key] = clamp01(perturbed[key] + delta)

			out, err := pl.Decide(perturbed, &mdmtypes.Context{})
			if err != nil {
				return SensitivityResult{}, fmt.Errorf("replay: perturbed decide (%s): %w", key, err)
			}
			result.Perturbations++
			if out.FinalAction != baseline.FinalAction {
				result.FlipCount++
			}
			if out.Level != baseline.Level {
				result.LevelFlipCount++
			}
		}
	}
	return result, nil
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
