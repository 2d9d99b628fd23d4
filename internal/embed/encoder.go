// Package embed turns commit and query text into fixed-length vectors.
package embed

import (
	"context"
	"errors"
	"math"
)

// ErrModelNotReady is returned when an encoder lacks the configuration or
// artifacts it needs to produce vectors.
var ErrModelNotReady = errors.New("embedding model is not ready")

// Encoder maps text to a vector. Vectors produced by one encoder all have
// the same length and are L2-normalised.
type Encoder interface {
	// ModelID identifies the model. It is persisted with the index.
	ModelID() string
	// Dimensions returns the vector length, or 0 when not yet known.
	Dimensions() int
	// Encode returns the vector for text.
	Encode(ctx context.Context, text string) ([]float32, error)
}

// normalize scales v to unit length in place. Zero vectors are left as is.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		v[i] = float32(float64(x) / norm)
	}
	return v
}
