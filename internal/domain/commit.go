package domain

import (
	"strings"
	"time"
)

// UnknownCommit is the resumption cursor of an index that has no entries.
const UnknownCommit = "unknown"

// CommitRecord is the metadata of a single commit as read from history.
// It is created once per commit and never mutated.
type CommitRecord struct {
	// Hash is the full hex object name of the commit.
	Hash string `json:"hash"`

	// Author is the author display name.
	Author string `json:"author"`

	// Date is the commit time in UTC.
	Date time.Time `json:"date"`

	// Message is the raw commit message.
	Message string `json:"message"`

	// DiffSummary holds the inserted/removed lines of the commit.
	// Empty when diffs were not requested.
	DiffSummary string `json:"diff_summary,omitempty"`
}

// ShortHash returns the abbreviated commit hash.
func (c CommitRecord) ShortHash() string {
	if len(c.Hash) <= 7 {
		return c.Hash
	}
	return c.Hash[:7]
}

// Subject returns the first line of the commit message.
func (c CommitRecord) Subject() string {
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return strings.TrimSpace(subject)
}

// Text returns the text that represents the commit for encoding.
func (c CommitRecord) Text(includeDiff bool) string {
	text := c.Message + "\n" + c.Author
	if includeDiff && c.DiffSummary != "" {
		text += "\n" + c.DiffSummary
	}
	return text
}

// IndexEntry is an indexed commit and its embedding.
type IndexEntry struct {
	Commit    CommitRecord `json:"commit"`
	Embedding []float32    `json:"embedding"`
}

// IndexMetadata describes the lifecycle of a SemanticIndex.
type IndexMetadata struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	TotalCommits int       `json:"total_commits"`
	IncludeDiffs bool      `json:"include_diffs"`
}

// SemanticIndex is the persisted semantic index of a repository.
//
// Entries are kept in insertion order. LastCommit is the hash of the most
// recently appended entry, or UnknownCommit when the index is empty.
type SemanticIndex struct {
	Entries      []IndexEntry  `json:"entries"`
	ModelVersion string        `json:"model_version"`
	LastCommit   string        `json:"last_commit"`
	Metadata     IndexMetadata `json:"metadata"`
}

// NewSemanticIndex creates an empty index for the given model.
func NewSemanticIndex(modelVersion string, includeDiffs bool) *SemanticIndex {
	now := time.Now().UTC().Round(0)
	return &SemanticIndex{
		Entries:      []IndexEntry{},
		ModelVersion: modelVersion,
		LastCommit:   UnknownCommit,
		Metadata: IndexMetadata{
			CreatedAt:    now,
			UpdatedAt:    now,
			IncludeDiffs: includeDiffs,
		},
	}
}

// Dimension returns the embedding length of the index, or 0 if it is empty.
func (s *SemanticIndex) Dimension() int {
	if len(s.Entries) == 0 {
		return 0
	}
	return len(s.Entries[0].Embedding)
}

// IsEmpty reports whether the index holds no entries.
func (s *SemanticIndex) IsEmpty() bool {
	return len(s.Entries) == 0
}

// SearchFilters are optional predicates applied to search results.
// An empty field means no constraint.
type SearchFilters struct {
	// Author is a case-insensitive substring of the author name.
	Author string `json:"author,omitempty"`

	// After is an inclusive lower date bound (YYYY-MM-DD).
	After string `json:"after,omitempty"`

	// Before is an inclusive upper date bound (YYYY-MM-DD).
	Before string `json:"before,omitempty"`

	// File is a substring matched against the diff summary.
	File string `json:"file,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (f SearchFilters) IsEmpty() bool {
	return f.Author == "" && f.After == "" && f.Before == "" && f.File == ""
}

// SearchResult is a scored commit returned by a search.
type SearchResult struct {
	Commit     CommitRecord `json:"commit"`
	Similarity float64      `json:"similarity"`
	Rank       int          `json:"rank"`
}

// Bleve field names used by keyword search.
const (
	CommitFieldHash    = "hash"
	CommitFieldAuthor  = "author"
	CommitFieldMessage = "message"
	CommitFieldDiff    = "diff"
)
