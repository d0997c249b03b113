package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		normalizer string
		expected   string
	}{
		{name: "lowercase", value: "Brushed Nickel", normalizer: "lowercase", expected: "brushed nickel"},
		{name: "trim", value: "  pendant  ", normalizer: "trim", expected: "pendant"},
		{name: "collapse whitespace", value: "matte   black\tfinish", normalizer: "collapse_whitespace", expected: "matte black finish"},
		{name: "alphanumeric", value: "18/10 stainless-steel!", normalizer: "alphanumeric", expected: "1810 stainlesssteel"},
		{name: "unknown normalizer is a no-op", value: "As-Is", normalizer: "bogus", expected: "As-Is"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Apply(tt.value, tt.normalizer))
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "normalized deduplicated and sorted",
			input:    []string{"  Brass ", "glass", "BRASS", "glass"},
			expected: []string{"brass", "glass"},
		},
		{
			name:     "empties dropped",
			input:    []string{"", "   ", "oak"},
			expected: []string{"oak"},
		},
		{
			name:     "inner whitespace collapsed",
			input:    []string{"pendant   light"},
			expected: []string{"pendant light"},
		},
		{
			name:     "nil input yields empty list",
			input:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTags(tt.input))
		})
	}
}
