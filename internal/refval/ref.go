// Package refval normalizes reference-column values coming from the
// spreadsheet host. The host has changed the wire shape of reference values
// across revisions, so a value may arrive as a bare number, a bare string, a
// two-element tagged pair, or a structured object carrying a row-id field.
package refval

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the canonical form of a normalized reference.
type Kind int

const (
	// Unresolved means no canonical value could be derived.
	Unresolved Kind = iota
	// Numeric is a reference resolved to a number (typically a row id).
	Numeric
	// String is a reference resolved to an opaque textual id.
	String
)

// Ref is the canonical form of a host reference value. The zero value is
// Unresolved.
type Ref struct {
	kind Kind
	num  float64
	str  string
}

// NumericRef builds a resolved numeric reference.
func NumericRef(n float64) Ref {
	return Ref{kind: Numeric, num: n}
}

// StringRef builds a resolved string reference.
func StringRef(s string) Ref {
	return Ref{kind: String, str: s}
}

// Kind returns the reference's canonical kind.
func (r Ref) Kind() Kind {
	return r.kind
}

// IsResolved reports whether a canonical value was derived.
func (r Ref) IsResolved() bool {
	return r.kind != Unresolved
}

// Value returns the canonical scalar: float64 for Numeric, string for
// String, nil for Unresolved. New records are stamped with this value
// verbatim.
func (r Ref) Value() any {
	switch r.kind {
	case Numeric:
		return r.num
	case String:
		return r.str
	default:
		return nil
	}
}

// Equal reports whether two references resolve to the same canonical value.
// Two Unresolved references are not equal.
func (r Ref) Equal(other Ref) bool {
	if r.kind != other.kind || r.kind == Unresolved {
		return false
	}
	return r.num == other.num && r.str == other.str
}

// String implements fmt.Stringer for logging.
func (r Ref) String() string {
	switch r.kind {
	case Numeric:
		return fmt.Sprintf("ref(%v)", r.num)
	case String:
		return fmt.Sprintf("ref(%q)", r.str)
	default:
		return "ref(unresolved)"
	}
}

// MarshalJSON encodes the canonical value, or null when unresolved.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}
