package embeddings

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitDimension(t *testing.T) {
	tests := []struct {
		name     string
		input    []float64
		dims     int
		expected []float64
	}{
		{
			name:     "exact length unchanged",
			input:    []float64{1, 2, 3},
			dims:     3,
			expected: []float64{1, 2, 3},
		},
		{
			name:     "short vector padded with zeros",
			input:    []float64{1, 2},
			dims:     4,
			expected: []float64{1, 2, 0, 0},
		},
		{
			name:     "long vector truncated",
			input:    []float64{1, 2, 3, 4},
			dims:     2,
			expected: []float64{1, 2},
		},
		{
			name:     "empty vector padded",
			input:    nil,
			dims:     3,
			expected: []float64{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FitDimension(tt.input, tt.dims))
		})
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float64{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-9)
	assert.InDelta(t, 0.8, v[1], 1e-9)

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestNormalizeZeroVector(t *testing.T) {
	v := Normalize([]float64{0, 0, 0})
	assert.True(t, IsZero(v))
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{
			name:     "identical unit vectors",
			a:        []float64{1, 0},
			b:        []float64{1, 0},
			expected: 1,
		},
		{
			name:     "orthogonal vectors",
			a:        []float64{1, 0},
			b:        []float64{0, 1},
			expected: 0,
		},
		{
			name:     "opposite vectors",
			a:        []float64{1, 0},
			b:        []float64{-1, 0},
			expected: -1,
		},
		{
			name:     "mismatched lengths yield zero",
			a:        []float64{1, 0},
			b:        []float64{1},
			expected: 0,
		},
		{
			name:     "empty vectors yield zero",
			a:        nil,
			b:        nil,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestPseudoEmbedding(t *testing.T) {
	a := PseudoEmbedding("https://img.example.com/a.jpg", 64)
	b := PseudoEmbedding("https://img.example.com/a.jpg", 64)
	c := PseudoEmbedding("https://img.example.com/b.jpg", 64)

	assert.Equal(t, a, b, "same url must produce the identical vector")
	assert.NotEqual(t, a, c, "different urls must produce different vectors")
	assert.Len(t, a, 64)

	var norm float64
	for _, x := range a {
		norm += x * x
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6, "pseudo embedding must be L2-normalized")
}

func TestPseudoEmbeddingEmptyURL(t *testing.T) {
	assert.True(t, IsZero(PseudoEmbedding("", 16)))
	assert.True(t, IsZero(PseudoEmbedding("   ", 16)))
}
