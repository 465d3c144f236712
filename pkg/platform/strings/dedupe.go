// Package strings normalizes free-form labels such as cause tags and item units.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and blanks, trimming each element.
// Order of first occurrence is preserved.
//
//	DedupeAndTrim([]string{"  kg ", "box", "kg", ""})
//	// []string{"kg", "box"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower is DedupeAndTrim with case folding. Cause tags go
// through it so "Education" and "education " are the same tag.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

// CollapseSpaces trims s and squeezes internal runs of whitespace to a single
// space. Titles and units are stored in this form.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func dedupe(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		n := norm(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	return result
}
