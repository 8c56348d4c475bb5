// Package redact removes sensitive fields from decision packets and
// trace payloads before they leave the process (logs, the review
// socket, external storage), matching keys case- and
// separator-insensitively so "entityId", "entity_id", and "ENTITY-ID"
// are all treated as the same sensitive key.
package redact

import "strings"

// DefaultSensitiveKeys is the fixed set of field names treated as
// sensitive regardless of casing or separator style.
var DefaultSensitiveKeys = []string{
	"api_key",
	"apikey",
	"secret",
	"password",
	"token",
	"authorization",
	"auth",
	"private_key",
	"signature",
	"raw_payload",
	"headers",
	"entity_id",
	"subject_id",
	"source_ip",
	"user_id",
	"session_token",
	"raw_event",
}

const redactedPlaceholder = "[REDACTED]"

// Redactor holds a precomputed normalized key set so repeated calls over
// many packets don't re-normalize the sensitive-key list every time.
type Redactor struct {
	normalized map[string]bool
}

// New builds a Redactor over the given sensitive key names (raw, any
// casing/separator style).
func New(sensitiveKeys []string) *Redactor {
	r := &Redactor{normalized: make(map[string]bool, len(sensitiveKeys))}
	for _, k := range sensitiveKeys {
		r.normalized[normalizeKey(k)] = true
	}
	return r
}

// Redact returns a deep copy of v with every map key (at any nesting
// depth, including inside slices of maps) that normalizes to a sensitive
// key replaced by a fixed placeholder. Non-map, non-slice values pass
// through unchanged.
func (r *Redactor) Redact(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			if r.normalized[normalizeKey(k)] {
				out[k] = redactedPlaceholder
				continue
			}
			out[k] = r.Redact(sub)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = r.Redact(e)
		}
		return out
	default:
		return v
	}
}

// normalizeKey lowercases k and strips underscores/hyphens, so
// "entity_id", "entity-id", and "EntityId" all normalize identically.
func normalizeKey(k string) string {
	lower := strings.ToLower(k)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
