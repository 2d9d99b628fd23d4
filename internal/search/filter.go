package search

import (
	"strings"
	"time"

	"github.com/sha1n/git-semantic/internal/domain"
)

// DateLayout is the accepted format of the after and before filters.
const DateLayout = "2006-01-02"

// Filter is a parsed, validated set of SearchFilters. All predicates must hold
// for a commit to match.
type Filter struct {
	author string
	after  *time.Time
	before *time.Time
	file   string
}

// ParseFilters validates filters. Dates are whole UTC days: after starts at
// 00:00:00 and before ends at 23:59:59, both inclusive.
func ParseFilters(filters domain.SearchFilters) (*Filter, error) {
	f := &Filter{
		author: strings.ToLower(filters.Author),
		file:   filters.File,
	}

	if filters.After != "" {
		day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(filters.After), time.UTC)
		if err != nil {
			return nil, &domain.InvalidFilterValueError{Field: "after", Value: filters.After, Err: err}
		}
		f.after = &day
	}

	if filters.Before != "" {
		day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(filters.Before), time.UTC)
		if err != nil {
			return nil, &domain.InvalidFilterValueError{Field: "before", Value: filters.Before, Err: err}
		}
		end := day.Add(24*time.Hour - time.Second)
		f.before = &end
	}

	if f.after != nil && f.before != nil && f.before.Before(*f.after) {
		return nil, &domain.InvalidFilterValueError{
			Field: "before",
			Value: filters.Before,
			Err:   domain.ErrDateRangeInverted,
		}
	}

	return f, nil
}

// Match reports whether c satisfies every predicate.
func (f *Filter) Match(c domain.CommitRecord) bool {
	if f.author != "" && !strings.Contains(strings.ToLower(c.Author), f.author) {
		return false
	}
	if f.after != nil && c.Date.Before(*f.after) {
		return false
	}
	if f.before != nil && c.Date.After(*f.before) {
		return false
	}
	// Substring of the diff text, not a path match.
	if f.file != "" && !strings.Contains(c.DiffSummary, f.file) {
		return false
	}
	return true
}

// Apply returns the results that match, preserving their order.
func (f *Filter) Apply(results []domain.SearchResult) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		if f.Match(r.Commit) {
			out = append(out, r)
		}
	}
	return out
}
