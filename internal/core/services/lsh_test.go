package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketCode(t *testing.T) {
	tests := []struct {
		name      string
		embedding []float32
		bits      int
		want      string
	}{
		{"sign bits", []float32{0.5, -0.1, 0.2, 9}, 3, "101"},
		{"zero is negative", []float32{0, 1}, 2, "01"},
		{"short embedding padded", []float32{1}, 3, "100"},
		{"zero bits", []float32{1, 1}, 0, ""},
		{"empty embedding", nil, 2, "00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketCode(tt.embedding, tt.bits))
		})
	}
}

func TestBitsFor(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 1},
		{1, 1},
		{9, 1},
		{10, 2},
		{99, 2},
		{100, 3},
		{12345, 5},
		{math.MaxInt64, 16},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BitsFor(tt.n), "n=%d", tt.n)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"zero magnitude", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_Bounds(t *testing.T) {
	vectors := [][]float32{
		{1e-20, 1e-20},
		{3.4e38, 3.4e38},
		{0.1, 0.2, 0.3},
		{-7, 0.001, 12},
		{1, 1, 1},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			sim := CosineSimilarity(a, b)
			assert.GreaterOrEqual(t, sim, -1.0)
			assert.LessOrEqual(t, sim, 1.0)
			assert.False(t, math.IsNaN(sim))
		}
	}
}
