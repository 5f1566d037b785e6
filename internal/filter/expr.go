// Package filter builds record store filter expressions.
//
// Expressions use the store's own syntax: field comparisons, `~` for
// contains, `&&` and `||` for boolean composition. String literals are
// always double-quoted and escaped.
package filter

import (
	"strconv"
	"strings"
)

// Quote renders s as a double-quoted string literal.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// Eq renders `field = "value"`.
func Eq(field, value string) string {
	return field + " = " + Quote(value)
}

// Neq renders `field != "value"`.
func Neq(field, value string) string {
	return field + " != " + Quote(value)
}

// Contains renders `field ~ "value"`.
func Contains(field, value string) string {
	return field + " ~ " + Quote(value)
}

// Lt renders `field < n`.
func Lt(field string, n float64) string {
	return field + " < " + number(n)
}

// Le renders `field <= n`.
func Le(field string, n float64) string {
	return field + " <= " + number(n)
}

// Gt renders `field > n`.
func Gt(field string, n float64) string {
	return field + " > " + number(n)
}

// Ge renders `field >= n`.
func Ge(field string, n float64) string {
	return field + " >= " + number(n)
}

// Or joins parts with `||` inside parentheses. Empty parts are dropped.
func Or(parts ...string) string {
	parts = compact(parts)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, " || ") + ")"
}

// And joins parts with `&&`. Empty parts are dropped.
func And(parts ...string) string {
	return strings.Join(compact(parts), " && ")
}

// AnyContains renders an OR group of `~` predicates: every field against every term.
func AnyContains(fields []string, terms ...string) string {
	var parts []string
	for _, term := range terms {
		for _, f := range fields {
			parts = append(parts, Contains(f, term))
		}
	}
	return Or(parts...)
}

func compact(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func number(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
