package models

import (
	"sort"
	"strings"
)

// Variant is a product option selection, e.g. {"size": "L", "color": "Red"}.
type Variant map[string]string

// EmptyVariantKey is the canonical key for a nil or empty variant.
const EmptyVariantKey = "-"

// variantEscaper backslash-escapes the key delimiters inside attribute
// names and values, so a value containing ";" or "=" cannot collide with a
// multi-attribute key.
var variantEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, "=", `\=`)

// CanonicalKey returns a deterministic, order-independent key for the
// variant: escaped `k=v` pairs sorted by attribute and joined with ";".
// Two variants with the same attribute/value pairs always produce the same
// key regardless of insertion order, so cart lines for identical
// selections merge instead of duplicating; any difference in attributes or
// values produces a different key.
func (v Variant) CanonicalKey() string {
	if len(v) == 0 {
		return EmptyVariantKey
	}

	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(variantEscaper.Replace(k))
		sb.WriteByte('=')
		sb.WriteString(variantEscaper.Replace(v[k]))
	}
	return sb.String()
}

// Equal reports whether two variants select the same attribute values.
func (v Variant) Equal(other Variant) bool {
	return v.CanonicalKey() == other.CanonicalKey()
}
