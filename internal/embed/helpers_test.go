package embed

import (
	"context"
	"math"
	"sync/atomic"
)

// countingEncoder is a test double that counts Encode calls.
type countingEncoder struct {
	calls  atomic.Int64
	model  string
	vector []float32
	err    error
}

func newCountingEncoder(dims int) *countingEncoder {
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = float32(i+1) * 0.01
	}
	return &countingEncoder{model: "counting", vector: vec}
}

func (c *countingEncoder) ModelID() string { return c.model }

func (c *countingEncoder) Dimensions() int { return len(c.vector) }

func (c *countingEncoder) Encode(_ context.Context, _ string) ([]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.vector, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func l2(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
