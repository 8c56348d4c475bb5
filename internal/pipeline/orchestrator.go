// Package pipeline wires components A through J into the single
// synchronous call spec.md §5 describes: encode, generate, score, validate,
// select, fail-safe, confidence, drift, escalate, clamp — recording a trace
// and the three hashes (state, config, trace) along the way.
package pipeline

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/aegiskernel/mdm/internal/action"
	"github.com/aegiskernel/mdm/internal/confidence"
	"github.com/aegiskernel/mdm/internal/config"
	"github.com/aegiskernel/mdm/internal/constraint"
	"github.com/aegiskernel/mdm/internal/drift"
	"github.com/aegiskernel/mdm/internal/escalation"
	"github.com/aegiskernel/mdm/internal/failsafe"
	"github.com/aegiskernel/mdm/internal/hashutil"
	"github.com/aegiskernel/mdm/internal/mdmtypes"
	"github.com/aegiskernel/mdm/internal/scoring"
	"github.com/aegiskernel/mdm/internal/selection"
	"github.com/aegiskernel/mdm/internal/state"
)

// Pipeline is the constructed, reusable orchestrator. It holds no
// per-event mutable state; the caller's mdmtypes.Context carries that
// across calls.
type Pipeline struct {
	cfg  *config.Config
	hook scoring.Hook
	log  *zap.Logger
}

// New builds a Pipeline bound to cfg. hook may be nil (reference evaluator
// only); log may be nil, in which case a no-op logger is used.
func New(cfg *config.Config, hook scoring.Hook, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, hook: hook, log: log}
}

// Output is everything one Decide call produces: the final action, every
// intermediate component result a packet builder or replay check needs,
// and the three canonical hashes.
type Output struct {
	Encoded state.Encoded

	Candidates   []selection.Candidate
	ValidCount   int
	InvalidCount map[string]int

	Selection selection.Result

	FailSafe failsafe.Result

	RawAction   mdmtypes.Action
	FinalAction mdmtypes.Action
	FinalScores mdmtypes.MoralScores

	WorstJ float64
	WorstH float64

	Confidence          confidence.Result
	EffectiveConfidence float64
	ConfidenceSource    string
	ExternalConfidence  *float64

	Drift drift.Result

	Level              int
	Drivers            []string
	PrimaryDriver      string
	DriverHistoryAlarm bool

	Clamp *escalation.ClampResult

	StateHash  string
	ConfigHash string
	TraceHash  string

	Trace mdmtypes.Trace
}

// Decide runs one full pipeline call over ev, mutating ctx's history
// fields (CUSHistory, DriverHistory) in place for the caller's next call.
//
// Trace steps are recorded in the fixed, closed event-type order spec.md
// §3 enumerates: raw_state, state_encoded, actions_generated, moral_scores,
// constraint, fail_safe, selection. The selection step is logged last,
// once the final action is known (after any fail-safe override and
// soft-clamp), the same way the reference engine folds its escalation and
// uncertainty bookkeeping into one trailing log call rather than emitting
// a step per component.
func (p *Pipeline) Decide(ev mdmtypes.Event, ctx *mdmtypes.Context) (*Output, error) {
	cfg := p.cfg
	trace := mdmtypes.Trace{Version: mdmtypes.TraceVersion}
	step := -1
	record := func(eventType string, data map[string]any) {
		step++
		trace.Steps = append(trace.Steps, mdmtypes.TraceStep{Step: step, EventType: eventType, Data: data})
	}

	evCopy := make(mdmtypes.Event, len(ev))
	for k, v := range ev {
		evCopy[k] = v
	}
	record("raw_state", map[string]any{"event": evCopy})

	// A. State Encoder.
	enc := state.Encode(ev)
	stateHash, err := hashutil.HashValue(map[string]any{"vector": enc.Vector[:]})
	if err != nil {
		return nil, fmt.Errorf("pipeline: hash state: %w", err)
	}
	record("state_encoded", map[string]any{
		"input_quality":        enc.InputQuality,
		"evidence_consistency": enc.EvidenceConsistency,
		"missing_fields":       state.MissingFields(enc),
	})

	// B + C. Action Generator, scoring each candidate via the Moral
	// Evaluator (with private hook, fail-closed).
	scorer := func(a mdmtypes.Action) mdmtypes.MoralScores {
		return scoring.EvaluateWithHook(enc.Vector, a, p.hook, func(err error) {
			p.log.Warn("moral evaluator hook failed, falling back to reference", zap.Error(err))
		})
	}
	scored := action.Generate(cfg.CoarseStep, cfg.RefineStep, cfg.RefineTopN, cfg.Weights, scorer)
	record("actions_generated", map[string]any{"count": len(scored)})

	scoredData := make([]map[string]any, len(scored))
	worstJ := math.Inf(1)
	worstH := math.Inf(-1)
	for i, s := range scored {
		scoredData[i] = map[string]any{
			"action": s.Action,
			"W":      s.Scores.W, "J": s.Scores.J, "H": s.Scores.H, "C": s.Scores.C,
		}
		if s.Scores.J < worstJ {
			worstJ = s.Scores.J
		}
		if s.Scores.H > worstH {
			worstH = s.Scores.H
		}
	}
	record("moral_scores", map[string]any{"candidates": scoredData})

	// D. Constraint Validator.
	box := constraint.Box{JMin: cfg.JMin, HMax: cfg.HMax, CMin: cfg.CMin, CMax: cfg.CMax}
	candidates := make([]selection.Candidate, len(scored))
	checks := make([]constraint.Result, len(scored))
	for i, s := range scored {
		c := constraint.Check(s.Scores, box)
		checks[i] = c
		candidates[i] = selection.Candidate{Action: s, Check: c}
	}
	validCount, invalidCounts := constraint.Aggregate(checks)
	record("constraint", map[string]any{
		"valid_count":          validCount,
		"invalid_count":        len(checks) - validCount,
		"invalid_reason_counts": invalidCounts,
	})

	// E. Selector (tentative — may still be overridden by fail-safe below).
	sel := selection.Select(candidates, cfg.Weights, cfg.SafeAction)
	finalAction := sel.Action
	var finalScores mdmtypes.MoralScores
	if sel.Scores != nil {
		finalScores = *sel.Scores
	} else {
		finalScores = scorer(cfg.SafeAction)
	}

	// F. Fail-Safe, evaluated on the tentatively selected action's scores
	// (falling back to the worst J/H across the full grid when nothing
	// survived constraint validation).
	fsScores := finalScores
	if sel.Scores == nil {
		fsScores = mdmtypes.MoralScores{J: worstJ, H: worstH}
	}
	fs := failsafe.Evaluate(fsScores, cfg.JCritical, cfg.HCritical, cfg.SafeAction)
	record("fail_safe", map[string]any{
		"override":         fs.Override,
		"human_escalation": fs.HumanEscalation,
		"trigger":          fs.Trigger,
	})

	constraintMargin := sel.Margin
	if fs.Override {
		finalAction = fs.SafeAction
		finalScores = scorer(finalAction)
		constraintMargin = constraint.Check(finalScores, box).Margin
	}
	rawAction := finalAction

	// G. Confidence & Uncertainty, over every valid candidate's objective
	// score (the full valid set, not just the frontier).
	var validObjectives []float64
	for _, c := range candidates {
		if c.Check.Valid {
			validObjectives = append(validObjectives, cfg.Weights.Objective(c.Action.Scores))
		}
	}
	selectedObjective := cfg.Weights.Objective(finalScores)
	confCfg := confidence.Config{
		BaseConfidence:        cfg.BaseConfidence,
		MarginFactor:          cfg.MarginFactor,
		ConfidenceGradient:    cfg.ConfidenceGradient,
		CUSWeightHI:           cfg.CUSWeightHI,
		CUSWeightDENorm:       cfg.CUSWeightDENorm,
		CUSWeightASComplement: cfg.CUSWeightASComplement,
		ASSoftThreshold:       cfg.ASSoftThreshold,
		ForceThreshold:        cfg.ConfidenceEscalationForce,
	}
	conf := confidence.Compute(selectedObjective, constraintMargin, validObjectives, confCfg)
	effConf, confSource := confidence.EffectiveConfidence(conf.Confidence, ctx.ExternalConfidence, enc.InputQuality)

	// H. Temporal Drift.
	ctx.CUSHistory = drift.UpdateCUSHistory(ctx.CUSHistory, conf.CUS, cfg.CUSMeanWindow)
	driftResult := drift.Evaluate(ctx.CUSHistory, cfg.DeltaCUSThreshold, cfg.CUSMeanThreshold, cfg.DriftMinHistory)

	// I. Escalation Resolver.
	baseLevel, baseDriver := escalation.BaseLevelAndDriver(
		effConf, constraintMargin, finalScores.H, conf.SuggestEscalation,
		escalation.BaseThresholds{
			HCritical:                    cfg.HCritical,
			ConfidenceLowEscalationLevel: cfg.ConfidenceLowEscalationLevel,
			ConfidenceEscalationForce:    cfg.ConfidenceEscalationForce,
		},
	)
	level, drivers, primary := escalation.Resolve(baseLevel, baseDriver, fs.Override, sel.Reason == selection.ReasonNoValidFallback, driftResult.Applied, driftResult.Driver)
	ctx.DriverHistory = drift.UpdateDriverHistory(ctx.DriverHistory, primary)
	driverAlarm := drift.DriverHistoryAlarm(ctx.DriverHistory)

	// J. Soft-Clamp: only at level 1 and only when fail-safe did not fire.
	var clampResult *escalation.ClampResult
	if level == 1 && !fs.Override {
		cr := escalation.ApplySoftClamp(
			finalAction, cfg.SafeAction, conf.CUS,
			escalation.ClampParams{Alpha: cfg.SoftClampAlpha, Beta: cfg.SoftClampBeta, Gamma: cfg.SoftClampGamma},
			scorer, effConf,
			func(s mdmtypes.MoralScores) float64 {
				newConf := confidence.Compute(cfg.Weights.Objective(s), constraintMargin, validObjectives, confCfg)
				v, _ := confidence.EffectiveConfidence(newConf.Confidence, ctx.ExternalConfidence, enc.InputQuality)
				return v
			},
		)
		clampResult = &cr
		finalAction = cr.Action
		finalScores = cr.Scores
		constraintMargin = constraint.Check(finalScores, box).Margin
	}

	selectionData := map[string]any{
		"action":        finalAction,
		"reason":        sel.Reason,
		"override":      fs.Override,
		"frontier_size": sel.FrontierSize,
		"pareto_gap":    sel.ParetoGap,
		"scores": map[string]any{
			"W": finalScores.W, "J": finalScores.J, "H": finalScores.H, "C": finalScores.C,
		},
		"confidence":        effConf,
		"constraint_margin": constraintMargin,
		"uncertainty": map[string]any{
			"hi": conf.HI, "de": conf.DE, "de_norm": conf.DENorm,
			"cus": conf.CUS, "divergence": conf.Divergence,
			"n_candidates": conf.NCandidates, "score_best": conf.ScoreBest,
			"score_second": conf.ScoreSecond, "action_spread_raw": conf.ActionSpreadRaw,
			"as": conf.AS, "as_norm": conf.ASNorm, "as_norm_missing": conf.ASNormMissing,
		},
		"escalation":        level,
		"soft_safe_applied": clampResult != nil,
		"temporal_drift": map[string]any{
			"delta_cus": driftResult.DeltaCUS, "cus_mean": driftResult.CUSMean,
			"driver": driftResult.Driver, "applied": driftResult.Applied,
			"history_len": driftResult.HistoryLen,
		},
	}
	record("selection", selectionData)

	configHash, err := hashutil.HashValue(cfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline: hash config: %w", err)
	}
	traceHash, err := hashutil.HashValue(trace)
	if err != nil {
		return nil, fmt.Errorf("pipeline: hash trace: %w", err)
	}

	return &Output{
		Encoded:             enc,
		Candidates:          candidates,
		ValidCount:          validCount,
		InvalidCount:        invalidCounts,
		Selection:           sel,
		FailSafe:            fs,
		RawAction:           rawAction,
		FinalAction:         finalAction,
		FinalScores:         finalScores,
		WorstJ:              worstJ,
		WorstH:              worstH,
		Confidence:          conf,
		EffectiveConfidence: effConf,
		ConfidenceSource:    confSource,
		ExternalConfidence:  ctx.ExternalConfidence,
		Drift:               driftResult,
		Level:               level,
		Drivers:             drivers,
		PrimaryDriver:       primary,
		DriverHistoryAlarm:  driverAlarm,
		Clamp:               clampResult,
		StateHash:           stateHash,
		ConfigHash:          configHash,
		TraceHash:           traceHash,
		Trace:               trace,
	}, nil
}
