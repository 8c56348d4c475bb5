// Package state implements the State Encoder (spec.md §4.A): raw event map
// to fixed-dimension moral/contextual vectors, plus input-quality and
// evidence-consistency scalars.
package state

import "github.com/aegiskernel/mdm/internal/mdmtypes"

// Encoded is the output of Encode: the fixed-length vector in
// mdmtypes.StateKeys order, a parallel missing-value mask, and the two
// pure-function quality scalars spec.md §4.A requires.
type Encoded struct {
	Vector              [9]float64
	MissingMask         [9]bool
	InputQuality        float64
	EvidenceConsistency float64
}

// evidencePairs lists field pairs whose pairwise agreement contributes to
// EvidenceConsistency: dimensions that should usually move together in a
// coherent event (e.g. risk running high alongside low justice).
var evidencePairs = [][2]string{
	{"risk", "harm_sens"},
	{"justice", "responsibility"},
	{"compassion", "empathy"},
}

// Encode reads the nine named fields from ev in alphabetical order
// (mdmtypes.StateKeys), defaulting missing entries to 0.0 and recording
// them in MissingMask. InputQuality is the fraction of present fields;
// EvidenceConsistency is the mean pairwise agreement (1 - |difference|)
// over evidencePairs, a pure function of the event only.
func Encode(ev mdmtypes.Event) Encoded {
	var enc Encoded
	present := 0
	for i, key := range mdmtypes.StateKeys {
		v, ok := ev[key]
		if !ok {
			enc.MissingMask[i] = true
			enc.Vector[i] = 0.0
			continue
		}
		enc.Vector[i] = clamp01(v)
		present++
	}
	enc.InputQuality = float64(present) / float64(len(mdmtypes.StateKeys))

	var sum float64
	for _, pair := range evidencePairs {
		a, aok := ev[pair[0]]
		b, bok := ev[pair[1]]
		if !aok || !bok {
			continue
		}
		sum += 1.0 - absf(clamp01(a)-clamp01(b))
	}
	enc.EvidenceConsistency = sum / float64(len(evidencePairs))

	return enc
}

// MissingFields returns the alphabetically-sorted list of field names that
// were absent from the source event: the keys whose MissingMask bit is set.
func MissingFields(enc Encoded) []string {
	var out []string
	for i, key := range mdmtypes.StateKeys {
		if enc.MissingMask[i] {
			out = append(out, key)
		}
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

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
