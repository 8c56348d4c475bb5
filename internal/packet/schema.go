package packet

// requiredEnvelopeFields is the minimal set of top-level keys a decoded
// packet (e.g. round-tripped through JSON into a map for storage or the
// review socket) must carry to be schema-v2 conformant (spec.md §3/§4.L).
// "mdm" carries the actual decision record; its presence is what
// distinguishes schema v2 from the packet's legacy predecessor.
var requiredEnvelopeFields = []string{
	"schema_version", "run_id", "ts", "source", "entity_id", "external", "input", "mdm", "review",
}

// ValidateSchema checks a decoded packet (as a generic map, the shape a
// caller gets back from JSON storage or an external transport) against
// the schema-v2 contract. The reference validator checks "mdm" presence
// first, then the legacy top-level key; a packet missing "mdm" is
// rejected for that reason even if it also happens to carry the legacy
// key.
func ValidateSchema(raw map[string]any) *SchemaViolation {
	if _, present := raw["mdm"]; !present {
		return &SchemaViolation{Field: "mdm", Reason: "schema v2 packets must carry an mdm key"}
	}
	if _, present := raw[legacyTopLevelKey()]; present {
		return &SchemaViolation{Field: legacyTopLevelKey(), Reason: "legacy top-level key must never be emitted"}
	}
	for _, f := range requiredEnvelopeFields {
		if _, ok := raw[f]; !ok {
			return &SchemaViolation{Field: f, Reason: "required field missing"}
		}
	}
	return nil
}
