package index

import (
	"context"
	"errors"
	"time"

	"github.com/sha1n/git-semantic/internal/domain"
)

// stubEncoder returns a fixed-size vector derived from the text length and
// can be told to fail for a given input.
type stubEncoder struct {
	model  string
	dim    int
	failOn string
	calls  []string
}

func newStubEncoder(dim int) *stubEncoder {
	return &stubEncoder{model: "stub-v1", dim: dim}
}

func (s *stubEncoder) ModelID() string { return s.model }

func (s *stubEncoder) Dimensions() int { return s.dim }

func (s *stubEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	s.calls = append(s.calls, text)
	if s.failOn != "" && text == s.failOn {
		return nil, errors.New("encoder unavailable")
	}
	v := make([]float32, s.dim)
	for i := range v {
		v[i] = float32(len(text)+i) / 100
	}
	return v, nil
}

func commit(hash, author string, day int, message string) domain.CommitRecord {
	return domain.CommitRecord{
		Hash:    hash,
		Author:  author,
		Date:    time.Date(2024, time.January, day, 12, 0, 0, 0, time.UTC),
		Message: message,
	}
}
