package refval

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// rowIDFields are the object field names observed carrying a row id, in
// lookup order.
var rowIDFields = []string{"rowId", "rowID", "row_id", "id"}

// Normalize collapses a host reference value of unknown shape into its
// canonical form. It is total: any input yields either a resolved Ref or
// Unresolved, never a panic. Priority order, first match wins:
//
//  1. a number is canonical as-is
//  2. an object exposing a row-id field resolves to that field's value
//  3. a two-element pair whose first element is a one-character tag string
//     resolves to the second element
//  4. a non-empty string is kept, coerced to a number when the entire
//     string parses as numeric
//
// Anything else is Unresolved. The ordering matters: the host has used all
// of these shapes for reference columns at one revision or another.
func Normalize(raw any) Ref {
	switch v := raw.(type) {
	case nil:
		return Ref{}
	case float64:
		return numeric(v)
	case float32:
		return numeric(float64(v))
	case int:
		return numeric(float64(v))
	case int32:
		return numeric(float64(v))
	case int64:
		return numeric(float64(v))
	case uint:
		return numeric(float64(v))
	case uint64:
		return numeric(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return numeric(f)
		}
		return Ref{}
	case map[string]any:
		return normalizeObject(v)
	case []any:
		return normalizePair(v)
	case string:
		return normalizeString(v)
	default:
		return Ref{}
	}
}

func numeric(f float64) Ref {
	// A NaN or infinite "row id" is garbage, not a reference.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Ref{}
	}
	return NumericRef(f)
}

func normalizeObject(obj map[string]any) Ref {
	for _, field := range rowIDFields {
		if inner, ok := obj[field]; ok {
			return Normalize(inner)
		}
	}
	return Ref{}
}

func normalizePair(pair []any) Ref {
	if len(pair) != 2 {
		return Ref{}
	}
	tag, ok := pair[0].(string)
	if !ok || len(tag) != 1 {
		return Ref{}
	}
	return Normalize(pair[1])
}

func normalizeString(s string) Ref {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Ref{}
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return numeric(f)
	}
	return StringRef(s)
}
