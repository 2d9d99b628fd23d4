// Package index builds, persists and locks the semantic index of a repository.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/sha1n/git-semantic/internal/domain"
	"github.com/sha1n/git-semantic/internal/embed"
)

// ProgressFunc is called after each commit is added.
type ProgressFunc func(done, total int)

// Builder accumulates encoded commits into a SemanticIndex.
type Builder struct {
	index    *domain.SemanticIndex
	encoder  embed.Encoder
	progress ProgressFunc
	total    int
	added    int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) BuilderOption {
	return func(b *Builder) {
		b.progress = fn
	}
}

// WithExpectedTotal sets the total reported to the progress callback.
func WithExpectedTotal(n int) BuilderOption {
	return func(b *Builder) {
		b.total = n
	}
}

// Fresh starts an empty index for encoder's model.
func Fresh(encoder embed.Encoder, includeDiffs bool, opts ...BuilderOption) *Builder {
	b := &Builder{
		index:   domain.NewSemanticIndex(encoder.ModelID(), includeDiffs),
		encoder: encoder,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Resume continues from an existing index. Prior entries, the last commit
// cursor, the creation time and the diff flag are preserved. An encoder for a
// different model is rejected.
func Resume(existing *domain.SemanticIndex, encoder embed.Encoder, opts ...BuilderOption) (*Builder, error) {
	if existing.ModelVersion != encoder.ModelID() {
		return nil, &domain.ModelMismatchError{IndexModel: existing.ModelVersion, ActiveModel: encoder.ModelID()}
	}

	entries := make([]domain.IndexEntry, len(existing.Entries))
	copy(entries, existing.Entries)

	b := &Builder{
		index: &domain.SemanticIndex{
			Entries:      entries,
			ModelVersion: existing.ModelVersion,
			LastCommit:   existing.LastCommit,
			Metadata:     existing.Metadata,
		},
		encoder: encoder,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// AddCommit encodes record and appends it. On failure nothing is appended.
func (b *Builder) AddCommit(ctx context.Context, record domain.CommitRecord) error {
	vector, err := b.encoder.Encode(ctx, record.Text(b.index.Metadata.IncludeDiffs))
	if err != nil {
		return &domain.EncodeError{Hash: record.Hash, Err: err}
	}
	if dim := b.index.Dimension(); dim != 0 && len(vector) != dim {
		return &domain.EncodeError{
			Hash: record.Hash,
			Err:  fmt.Errorf("vector has %d dimensions, index has %d", len(vector), dim),
		}
	}
	if len(vector) == 0 {
		return &domain.EncodeError{Hash: record.Hash, Err: fmt.Errorf("encoder returned an empty vector")}
	}

	b.index.Entries = append(b.index.Entries, domain.IndexEntry{Commit: record, Embedding: vector})
	b.index.LastCommit = record.Hash
	b.added++

	if b.progress != nil {
		b.progress(b.added, b.total)
	}
	return nil
}

// Added returns the number of commits added by this builder.
func (b *Builder) Added() int {
	return b.added
}

// Finish stamps the metadata and returns the index.
func (b *Builder) Finish() *domain.SemanticIndex {
	b.index.Metadata.UpdatedAt = time.Now().UTC().Round(0)
	b.index.Metadata.TotalCommits = len(b.index.Entries)
	if len(b.index.Entries) == 0 {
		b.index.LastCommit = domain.UnknownCommit
	}
	return b.index
}

// BuildIndex encodes commits into a new index in the given order.
func BuildIndex(ctx context.Context, encoder embed.Encoder, commits []domain.CommitRecord, includeDiffs bool, opts ...BuilderOption) (*domain.SemanticIndex, error) {
	b := Fresh(encoder, includeDiffs, append([]BuilderOption{WithExpectedTotal(len(commits))}, opts...)...)
	for _, c := range commits {
		if err := b.AddCommit(ctx, c); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}

// UpdateIndex appends newCommits, in the given order, to a copy of existing.
func UpdateIndex(ctx context.Context, encoder embed.Encoder, existing *domain.SemanticIndex, newCommits []domain.CommitRecord, opts ...BuilderOption) (*domain.SemanticIndex, error) {
	b, err := Resume(existing, encoder, append([]BuilderOption{WithExpectedTotal(len(newCommits))}, opts...)...)
	if err != nil {
		return nil, err
	}
	for _, c := range newCommits {
		if err := b.AddCommit(ctx, c); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}
