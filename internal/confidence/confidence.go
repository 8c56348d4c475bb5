// Package confidence implements Confidence & Uncertainty (spec.md §4.G):
// HI, DE/DE_norm, AS/AS_norm, CUS, divergence, confidence, and the
// suggest/force escalation flags, plus the effective_confidence
// composition with an optional external override and input_quality.
package confidence

import (
	"math"
	"sort"
)

// Config carries the tunable curve parameters from the resolved Config,
// kept as a plain struct here to avoid an import cycle with internal/config.
type Config struct {
	BaseConfidence        float64
	MarginFactor          float64
	ConfidenceGradient    float64
	CUSWeightHI           float64
	CUSWeightDENorm       float64
	CUSWeightASComplement float64
	ASSoftThreshold       float64
	ForceThreshold        float64
}

// Result is the full uncertainty/confidence bundle for the selected
// candidate (spec.md's `unc_dict`).
type Result struct {
	HI                float64
	DE                float64
	DENorm            float64
	AS                *float64
	ASNorm            *float64
	ASNormMissing     bool
	CUS               float64
	Divergence        float64
	Confidence        float64
	ConstraintMargin  float64
	SuggestEscalation bool
	ForceEscalation   bool
	NCandidates       int
	ScoreBest         float64
	ScoreSecond       *float64
	ActionSpreadRaw   *float64
}

// Compute evaluates the full uncertainty bundle given the selected
// candidate's score, its constraint margin, and the objective values of
// every valid candidate (candidateScores need not be sorted).
func Compute(selectedScore, constraintMargin float64, candidateScores []float64, cfg Config) Result {
	n := len(candidateScores)
	sorted := append([]float64(nil), candidateScores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var de, deNorm float64
	if n > 0 {
		de = softmaxEntropy(sorted)
		deNorm = de / math.Log2(math.Max(float64(n), 2))
	}

	hi := 1.0 - softmaxMax(sorted)

	var asPtr, asNormPtr *float64
	asNormMissing := n < 2
	var scoreSecond *float64
	scoreBest := 0.0
	if n > 0 {
		scoreBest = sorted[0]
	}
	if n >= 2 {
		as := sorted[0] - sorted[1]
		asPtr = &as
		denom := math.Max(math.Abs(sorted[0]), 1e-9)
		asNorm := as / denom
		asNormPtr = &asNorm
		second := sorted[1]
		scoreSecond = &second
	}

	asNormForCUS := 0.0
	if asNormPtr != nil {
		asNormForCUS = *asNormPtr
	}
	cus := cfg.CUSWeightHI*hi + cfg.CUSWeightDENorm*deNorm + cfg.CUSWeightASComplement*(1-asNormForCUS)

	confidence := clamp01(cfg.BaseConfidence + cfg.MarginFactor*math.Tanh(cfg.ConfidenceGradient*constraintMargin))

	divergence := math.Abs(confidence - (1 - deNorm))

	suggestEscalation := asNormPtr != nil && *asNormPtr < cfg.ASSoftThreshold
	forceEscalation := confidence < cfg.ForceThreshold

	var spread *float64
	if n >= 2 {
		s := sorted[0] - sorted[n-1]
		spread = &s
	}

	return Result{
		HI:                hi,
		DE:                de,
		DENorm:            deNorm,
		AS:                asPtr,
		ASNorm:            asNormPtr,
		ASNormMissing:     asNormMissing,
		CUS:               cus,
		Divergence:        divergence,
		Confidence:        confidence,
		ConstraintMargin:  constraintMargin,
		SuggestEscalation: suggestEscalation,
		ForceEscalation:   forceEscalation,
		NCandidates:       n,
		ScoreBest:         scoreBest,
		ScoreSecond:       scoreSecond,
		ActionSpreadRaw:   spread,
	}
}

// EffectiveConfidence composes the internal confidence with an optional
// external override and input_quality, per spec.md §4.G: the external
// value (if present) replaces the internal one, and the result is always
// multiplied by input_quality (clamped to [0,1]) before use in escalation.
func EffectiveConfidence(internal float64, external *float64, inputQuality float64) (value float64, source string) {
	base := internal
	source = "internal"
	if external != nil {
		base = clamp01(*external)
		source = "external"
	}
	return clamp01(base * clamp01(inputQuality)), source
}

// softmaxEntropy computes the Shannon entropy (base 2) of the softmax
// distribution over scores. Adapted from the reference anomaly engine's
// ShannonEntropy, generalized from fixed-size event counts to a variable-
// length probability vector.
func softmaxEntropy(scoresDesc []float64) float64 {
	probs := softmax(scoresDesc)
	var h float64
	for _, p := range probs {
		if p <= 0 {
			continue
		}
		h -= p * math.Log2(p)
	}
	return h
}

func softmaxMax(scoresDesc []float64) float64 {
	probs := softmax(scoresDesc)
	if len(probs) == 0 {
		return 0
	}
	return probs[0]
}

func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	maxV := scores[0]
	for _, s := range scores {
		if s > maxV {
			maxV = s
		}
	}
	exps := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		e := math.Exp(s - maxV)
		exps[i] = e
		sum += e
	}
	if sum == 0 {
		return exps
	}
	for i := range exps {
		exps[i] /= sum
	}
	return exps
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
