package packet

import "fmt"

// SchemaViolation reports a decision packet that does not conform to the
// schema-v2 shape (missing field, wrong type, or the forbidden legacy
// top-level key). Schema violations are fatal: the caller must not emit
// or persist the packet.
type SchemaViolation struct {
	Field  string
	Reason string
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("packet: schema violation on %q: %s", e.Field, e.Reason)
}

// InvariantViolation reports a packet whose fields are individually
// well-typed but jointly inconsistent with one of the fixed coupling
// rules between fail-safe, escalation level, clamp, and constraint
// margin. Hard invariants are fatal; soft invariants (Soft == true) are
// logged by the caller and must not block emission.
type InvariantViolation struct {
	Name   string
	Detail string
	Soft   bool
}

func (e *InvariantViolation) Error() string {
	kind := "invariant"
	if e.Soft {
		kind = "soft invariant"
	}
	return fmt.Sprintf("packet: %s %q violated: %s", kind, e.Name, e.Detail)
}
