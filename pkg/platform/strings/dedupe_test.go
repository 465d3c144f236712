package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"trims whitespace", []string{"  kg  ", "box  ", "  bag"}, []string{"kg", "box", "bag"}},
		{"removes duplicates preserving order", []string{"kg", "box", "kg", "bag", "box"}, []string{"kg", "box", "bag"}},
		{"removes blanks", []string{"kg", "", "  ", "box"}, []string{"kg", "box"}},
		{"preserves case", []string{"Kg", "kg", "KG"}, []string{"Kg", "kg", "KG"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"lowercases and dedupes", []string{"Education", "education", "EDUCATION"}, []string{"education"}},
		{"trims, lowercases, and dedupes", []string{"  Health ", "kids", "health", "KIDS"}, []string{"health", "kids"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "winter coat drive", CollapseSpaces("  winter   coat\tdrive "))
	assert.Equal(t, "", CollapseSpaces("   "))
}
