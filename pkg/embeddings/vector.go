package embeddings

import "math"

// ZeroVector returns an all-zero vector of the given dimension
func ZeroVector(dims int) []float64 {
	return make([]float64, dims)
}

// IsZero reports whether every component of v is zero
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// FitDimension forces v to exactly dims components: pads with zeros if short,
// truncates if long. Vectors are never stored partially populated.
func FitDimension(v []float64, dims int) []float64 {
	if len(v) == dims {
		return v
	}
	fitted := make([]float64, dims)
	copy(fitted, v)
	return fitted
}

// Normalize returns the L2-normalized copy of v. An all-zero vector is
// returned as-is since it has no direction to preserve.
func Normalize(v []float64) []float64 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += x * x
	}
	if sumSquares == 0 {
		return v
	}

	norm := math.Sqrt(sumSquares)
	result := make([]float64, len(v))
	for i, x := range v {
		result[i] = x / norm
	}
	return result
}

// Cosine computes cosine similarity between two L2-normalized vectors via
// their dot product, range [-1, 1]. Mismatched lengths or zero vectors
// yield 0 (no similarity evidence).
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
