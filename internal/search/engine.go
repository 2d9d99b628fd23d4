// Package search ranks indexed commits against a natural-language query.
package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sha1n/git-semantic/internal/domain"
	"github.com/sha1n/git-semantic/internal/embed"
)

// Engine scores index entries against encoded queries.
type Engine struct {
	encoder  embed.Encoder
	minScore *float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinScore drops results whose similarity is below score.
func WithMinScore(score float64) Option {
	return func(e *Engine) {
		e.minScore = &score
	}
}

// NewEngine creates a search engine using encoder for queries.
func NewEngine(encoder embed.Encoder, opts ...Option) *Engine {
	e := &Engine{encoder: encoder}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns the topN entries of idx most similar to query that pass
// filters, ranked from 1. A topN of zero or less returns every match.
func (e *Engine) Search(ctx context.Context, idx *domain.SemanticIndex, query string, topN int, filters domain.SearchFilters) ([]domain.SearchResult, error) {
	filter, err := ParseFilters(filters)
	if err != nil {
		return nil, err
	}

	if idx.ModelVersion != e.encoder.ModelID() {
		return nil, &domain.ModelMismatchError{IndexModel: idx.ModelVersion, ActiveModel: e.encoder.ModelID()}
	}

	queryVector, err := e.encoder.Encode(ctx, query)
	if err != nil {
		return nil, &domain.EncodeError{Err: err}
	}
	if dim := idx.Dimension(); dim != 0 && len(queryVector) != dim {
		return nil, &domain.EncodeError{
			Err: fmt.Errorf("query vector has %d dimensions, index has %d", len(queryVector), dim),
		}
	}

	results := make([]domain.SearchResult, 0, len(idx.Entries))
	for _, entry := range idx.Entries {
		similarity, err := Cosine(queryVector, entry.Embedding)
		if err != nil {
			return nil, fmt.Errorf("commit %s: %w", entry.Commit.ShortHash(), err)
		}
		results = append(results, domain.SearchResult{Commit: entry.Commit, Similarity: similarity})
	}

	results = filter.Apply(results)
	if e.minScore != nil {
		results = slices.DeleteFunc(results, func(r domain.SearchResult) bool {
			return r.Similarity < *e.minScore
		})
	}

	ranked := rank(results, topN)
	slog.Debug("Search complete", "query", query, "scored", len(idx.Entries), "returned", len(ranked))
	return ranked, nil
}

// rank sorts by descending similarity, keeping the input order of ties,
// truncates to topN and numbers the results from 1.
func rank(results []domain.SearchResult, topN int) []domain.SearchResult {
	slices.SortStableFunc(results, func(a, b domain.SearchResult) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	if topN > 0 && topN < len(results) {
		results = results[:topN]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
