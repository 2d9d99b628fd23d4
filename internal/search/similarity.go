package search

import (
	"errors"
	"math"
)

// ErrVectorLengthMismatch is returned when comparing vectors of different lengths.
var ErrVectorLengthMismatch = errors.New("vector length mismatch")

// Cosine returns the cosine similarity of a and b, computed in float64 and
// clamped to [-1, 1]. It is 0 when either vector has zero norm.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrVectorLengthMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	// A single square root keeps Cosine(v, v) exactly 1.
	sim := dot / math.Sqrt(normA*normB)
	return max(-1, min(1, sim)), nil
}
