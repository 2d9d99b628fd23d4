package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/git-semantic/internal/domain"
)

const (
	messageBoost = 2.0
	authorBoost  = 1.5
)

// KeywordMapping returns the bleve mapping used for keyword search over commits.
func KeywordMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	messageField := bleve.NewTextFieldMapping()
	messageField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(domain.CommitFieldMessage, messageField)

	authorField := bleve.NewTextFieldMapping()
	authorField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(domain.CommitFieldAuthor, authorField)

	diffField := bleve.NewTextFieldMapping()
	diffField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(domain.CommitFieldDiff, diffField)

	hashField := bleve.NewTextFieldMapping()
	hashField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(domain.CommitFieldHash, hashField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// KeywordSearch ranks entries of idx by full-text relevance of query against
// commit messages, authors and diffs. The bleve score is reported as the
// similarity. Filters, ordering and ranking follow Engine.Search.
func KeywordSearch(ctx context.Context, idx *domain.SemanticIndex, queryText string, topN int, filters domain.SearchFilters) ([]domain.SearchResult, error) {
	filter, err := ParseFilters(filters)
	if err != nil {
		return nil, err
	}
	if idx.IsEmpty() || strings.TrimSpace(queryText) == "" {
		return []domain.SearchResult{}, nil
	}

	memIndex, err := bleve.NewMemOnly(KeywordMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	defer func() { _ = memIndex.Close() }()

	batch := memIndex.NewBatch()
	for i, entry := range idx.Entries {
		doc := map[string]any{
			domain.CommitFieldHash:    entry.Commit.Hash,
			domain.CommitFieldAuthor:  entry.Commit.Author,
			domain.CommitFieldMessage: entry.Commit.Message,
			domain.CommitFieldDiff:    entry.Commit.DiffSummary,
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			return nil, fmt.Errorf("failed to index commit %s: %w", entry.Commit.ShortHash(), err)
		}
	}
	if err := memIndex.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to build keyword index: %w", err)
	}

	req := bleve.NewSearchRequestOptions(keywordQuery(queryText), len(idx.Entries), 0, false)
	found, err := memIndex.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	// Scores by entry position so ties keep index order after the stable sort.
	scores := make(map[int]float64, len(found.Hits))
	for _, hit := range found.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil || pos < 0 || pos >= len(idx.Entries) {
			continue
		}
		scores[pos] = hit.Score
	}

	results := make([]domain.SearchResult, 0, len(scores))
	for i, entry := range idx.Entries {
		if score, ok := scores[i]; ok {
			results = append(results, domain.SearchResult{Commit: entry.Commit, Similarity: score})
		}
	}

	return rank(filter.Apply(results), topN), nil
}

func keywordQuery(text string) query.Query {
	messageQuery := bleve.NewMatchQuery(text)
	messageQuery.SetField(domain.CommitFieldMessage)
	messageQuery.SetBoost(messageBoost)

	authorQuery := bleve.NewMatchQuery(text)
	authorQuery.SetField(domain.CommitFieldAuthor)
	authorQuery.SetBoost(authorBoost)

	diffQuery := bleve.NewMatchQuery(text)
	diffQuery.SetField(domain.CommitFieldDiff)

	return bleve.NewDisjunctionQuery(messageQuery, authorQuery, diffQuery)
}
