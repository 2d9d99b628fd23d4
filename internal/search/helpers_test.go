package search

import (
	"context"
	"errors"
	"time"

	"github.com/sha1n/git-semantic/internal/domain"
)

// fixedEncoder returns preset vectors per text and a fallback otherwise.
type fixedEncoder struct {
	model    string
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    int
}

func (f *fixedEncoder) ModelID() string { return f.model }

func (f *fixedEncoder) Dimensions() int { return len(f.fallback) }

func (f *fixedEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

var errEncoderDown = errors.New("encoder down")

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func record(hash, author string, date time.Time, message string) domain.CommitRecord {
	return domain.CommitRecord{Hash: hash, Author: author, Date: date, Message: message}
}

func indexOf(model string, entries ...domain.IndexEntry) *domain.SemanticIndex {
	idx := domain.NewSemanticIndex(model, false)
	idx.Entries = append(idx.Entries, entries...)
	if len(entries) > 0 {
		idx.LastCommit = entries[len(entries)-1].Commit.Hash
	}
	idx.Metadata.TotalCommits = len(entries)
	return idx
}

func hashes(results []domain.SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Commit.Hash)
	}
	return out
}

func ranks(results []domain.SearchResult) []int {
	out := make([]int, 0, len(results))
	for _, r := range results {
		out = append(out, r.Rank)
	}
	return out
}
