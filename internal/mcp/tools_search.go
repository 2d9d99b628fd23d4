package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/git-semantic/internal/domain"
	"github.com/sha1n/git-semantic/internal/search"
	"github.com/sha1n/git-semantic/internal/service"
)

// fallbackLimit is used when neither the call nor the server sets a limit.
const fallbackLimit = 10

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query   string `json:"query" jsonschema_description:"Natural language description of the change you are looking for"`
	Limit   int    `json:"limit,omitempty" jsonschema_description:"Maximum number of commits to return"`
	Author  string `json:"author,omitempty" jsonschema_description:"Case-insensitive substring of the author name"`
	After   string `json:"after,omitempty" jsonschema_description:"Only commits on or after this date (YYYY-MM-DD)"`
	Before  string `json:"before,omitempty" jsonschema_description:"Only commits on or before this date (YYYY-MM-DD)"`
	File    string `json:"file,omitempty" jsonschema_description:"Substring that must appear in the commit diff"`
	Keyword bool   `json:"keyword,omitempty" jsonschema_description:"Use keyword matching instead of semantic similarity"`
}

// SearchHandler handles the search_commits MCP tool.
type SearchHandler struct {
	service      IndexService
	defaultLimit int
	minScore     *float64
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(svc IndexService, defaultLimit int, minScore *float64) *SearchHandler {
	if defaultLimit <= 0 {
		defaultLimit = fallbackLimit
	}
	return &SearchHandler{
		service:      svc,
		defaultLimit: defaultLimit,
		minScore:     minScore,
	}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return textResult("Query cannot be empty", true), nil, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}

	opts := service.SearchOptions{
		Limit: limit,
		Filters: domain.SearchFilters{
			Author: args.Author,
			After:  args.After,
			Before: args.Before,
			File:   args.File,
		},
		Keyword: args.Keyword,
	}
	if !args.Keyword {
		opts.MinScore = h.minScore
	}

	results, err := h.service.Search(ctx, args.Query, opts)
	if err != nil {
		return errorResult("Search failed", err), nil, nil
	}

	return formatResults(results, args.Query), nil, nil
}

// formatResults renders search results as markdown.
func formatResults(results []domain.SearchResult, query string) *mcp.CallToolResult {
	if len(results) == 0 {
		return textResult(fmt.Sprintf("No commits found for query: %s", query), false)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d commits for '%s':\n\n", len(results), query)

	for _, r := range results {
		fmt.Fprintf(&sb, "### %d. %s %s\n", r.Rank, r.Commit.ShortHash(), r.Commit.Subject())
		fmt.Fprintf(&sb, "**Commit**: %s\n", r.Commit.Hash)
		fmt.Fprintf(&sb, "**Author**: %s\n", r.Commit.Author)
		fmt.Fprintf(&sb, "**Date**: %s\n", r.Commit.Date.Format(search.DateLayout))
		fmt.Fprintf(&sb, "**Score**: %.4f\n", r.Similarity)

		if body := messageBody(r.Commit.Message); body != "" {
			sb.WriteString("\n")
			sb.WriteString(body)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return textResult(sb.String(), false)
}

// messageBody returns the commit message without its subject line.
func messageBody(message string) string {
	_, body, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(body)
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_commits",
		Description: "Search the repository's commit history by meaning, with optional author, date and file filters",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, svc IndexService, defaultLimit int, minScore *float64) {
	handler := NewSearchHandler(svc, defaultLimit, minScore)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
