// Package strings holds small helpers for cleaning up string slices that
// arrive from the environment, such as comma-separated broker lists.
package strings

import "strings"

// DedupeAndTrim trims whitespace from every element and drops empties and
// duplicates. The first occurrence wins, so relative order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	out := values[:0:0]
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
