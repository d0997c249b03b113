package embeddings

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// Sine series parameters for the pseudo-embedding. Arbitrary but fixed:
// changing them invalidates every stored fallback vector.
const (
	seriesStep1  = 7.13
	seriesScale1 = 0.071
	seriesAmp1   = 0.6
	seriesStep2  = 3.7
	seriesScale2 = 0.0173
	seriesAmp2   = 0.4
)

// PseudoEmbedding derives a stable vector from an image URL alone, with no
// network access. The URL is hashed to a seed driving two phase-shifted sine
// series, then L2-normalized. The same URL always produces the identical
// vector, so similarity scoring stays exercised end-to-end when no live
// inference provider is configured. An empty URL yields the zero vector.
func PseudoEmbedding(url string, dims int) []float64 {
	if strings.TrimSpace(url) == "" {
		return ZeroVector(dims)
	}

	sum := sha256.Sum256([]byte(url))
	h := float64(binary.BigEndian.Uint64(sum[:8]) % 1000003)

	v := make([]float64, dims)
	for i := range v {
		fi := float64(i)
		v[i] = math.Sin((h+fi*seriesStep1)*seriesScale1)*seriesAmp1 +
			math.Sin((h*seriesStep2+fi)*seriesScale2)*seriesAmp2
	}
	return Normalize(v)
}
