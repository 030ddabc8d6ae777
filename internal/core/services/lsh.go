package services

import (
	"math"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// BucketCode reduces an embedding to the sign bits of its first bits components.
// Positive components map to '1', everything else to '0'. Embeddings shorter
// than bits are padded with '0' so every code has the same width.
func BucketCode(embedding []float32, bits int) string {
	if bits <= 0 {
		return ""
	}
	code := make([]byte, bits)
	for i := range code {
		if i < len(embedding) && embedding[i] > 0 {
			code[i] = '1'
		} else {
			code[i] = '0'
		}
	}
	return string(code)
}

// BitsFor returns the bucket code width for a corpus of n embeddings:
// floor(log10(n)) + 1, clamped to [1, domain.MaxIndexBits].
//
// Each extra bit doubles the bucket count while the corpus grows tenfold,
// so average bucket occupancy still rises with n. That keeps recall high
// on small personal libraries at the cost of more exact comparisons.
func BitsFor(n int) int {
	if n < 1 {
		return 1
	}
	bits := int(math.Floor(math.Log10(float64(n)))) + 1
	switch {
	case bits < 1:
		return 1
	case bits > domain.MaxIndexBits:
		return domain.MaxIndexBits
	}
	return bits
}

// CosineSimilarity returns dot(a,b) / (|a| * |b|).
// It is 0 when either vector has zero magnitude or the lengths differ,
// and is clamped to [-1, 1] to absorb rounding error.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, sumA, sumB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		sumA += x * x
		sumB += y * y
	}

	if sumA == 0 || sumB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(sumA) * math.Sqrt(sumB))
	return math.Max(-1, math.Min(1, sim))
}
