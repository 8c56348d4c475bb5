// Package hashutil implements the single canonicalization rule shared by
// trace hashing, state hashing, config hashing, and replay comparison:
// sorted keys, quantized floats, NaN/Inf sentinels, UTF-8, no whitespace.
// It must be implemented exactly once (spec.md §9) and never duplicated.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
)

const quantizeDigits = 6

// Quantize rounds x to quantizeDigits decimal places, matching the
// reference engine's _quantize_float.
func Quantize(x float64) float64 {
	scale := math.Pow(10, quantizeDigits)
	return math.Round(x*scale) / scale
}

// Canonical recursively rewrites obj into a form safe for deterministic
// JSON encoding: floats are quantized or replaced with sentinel strings for
// NaN/Inf, map keys are left as-is (json.Marshal sorts map[string]any keys
// itself when MarshalJSON is not overridden — Go's encoding/json already
// sorts map keys alphabetically, which satisfies the sort_keys requirement).
func Canonical(obj any) any {
	switch v := obj.(type) {
	case nil, bool, string:
		return v
	case int:
		return v
	case int64:
		return v
	case float64:
		switch {
		case math.IsNaN(v):
			return "_nan"
		case math.IsInf(v, 1):
			return "_inf_pos"
		case math.IsInf(v, -1):
			return "_inf_neg"
		default:
			return Quantize(v)
		}
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Canonical(e)
		}
		return out
	case []float64:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Canonical(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = Canonical(v[k])
		}
		return out
	default:
		// Fall back to a generic marshal/unmarshal round trip for structs
		// and other composite types, then canonicalize the resulting
		// generic representation. Mirrors the reference engine's
		// default=str fallback for values json.dumps cannot otherwise
		// serialize deterministically.
		data, err := json.Marshal(v)
		if err != nil {
			return fmtStringify(v)
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmtStringify(v)
		}
		return Canonical(generic)
	}
}

func fmtStringify(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// CanonicalJSON renders obj through Canonical and marshals it with sorted
// keys and no extraneous whitespace. Go's json.Marshal already sorts
// map[string]any keys and emits compact separators, so no custom encoder
// is required once the value has passed through Canonical.
func CanonicalJSON(obj any) ([]byte, error) {
	return json.Marshal(Canonical(obj))
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashValue canonicalizes obj and returns its SHA-256 hex digest. Used for
// state_hash, config_hash, and trace_hash — the same function must back
// all three so hash equality tracks numeric-input equality exactly.
func HashValue(obj any) (string, error) {
	data, err := CanonicalJSON(obj)
	if err != nil {
		return "", err
	}
	return SHA256Hex(data), nil
}
