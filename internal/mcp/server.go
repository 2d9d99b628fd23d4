// Package mcp exposes commit search over the Model Context Protocol.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/git-semantic/internal/domain"
	"github.com/sha1n/git-semantic/internal/service"
)

// IndexService is the subset of service.Service the tools call.
type IndexService interface {
	Search(ctx context.Context, query string, opts service.SearchOptions) ([]domain.SearchResult, error)
	Stats(ctx context.Context) (*service.Stats, error)
}

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// Service backs the tools. No tools are registered when it is nil.
	Service IndexService

	// DefaultLimit applies when a search call does not pass a limit.
	DefaultLimit int

	// MinScore drops semantic results below this similarity when set.
	MinScore *float64
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Service != nil {
		RegisterSearchTool(s, cfg.Service, cfg.DefaultLimit, cfg.MinScore)
		RegisterStatsTool(s, cfg.Service)
	}

	return s
}

// errorResult builds a tool error result, appending the user hint for err if any.
func errorResult(prefix string, err error) *mcp.CallToolResult {
	text := prefix + ": " + err.Error()
	if hint := domain.Hint(err); hint != "" {
		text += "\n" + hint
	}
	return textResult(text, true)
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: isError,
	}
}
