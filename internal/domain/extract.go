package domain

import (
	"strconv"
	"strings"
)

// Field extraction helpers for heterogeneous provider JSON.
//
// Upstream payload shapes vary by provider and partially by response, so
// adapters extract each field through an ordered list of candidate paths with
// a final hardcoded default. Centralizing the defaulting policy here keeps it
// independently testable instead of duplicated per adapter.

// ExtractFloat walks the candidate dot-separated paths through a decoded JSON
// document and returns the first numeric value found, else def. String values
// that parse as numbers count as numeric; some providers quote their numerics.
func ExtractFloat(doc map[string]any, def float64, paths ...string) float64 {
	for _, path := range paths {
		v, ok := lookupPath(doc, path)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
	}
	return def
}

// ExtractString returns the first non-empty string found at the candidate
// paths, else def.
func ExtractString(doc map[string]any, def string, paths ...string) string {
	for _, path := range paths {
		v, ok := lookupPath(doc, path)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// lookupPath descends a decoded JSON document following dot-separated keys.
// Integer segments index into arrays, e.g. "forecast.forecastday.0.day".
func lookupPath(doc map[string]any, path string) (any, bool) {
	var current any = doc
	for _, seg := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
