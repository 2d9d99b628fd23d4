package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatsArgument takes no parameters.
type StatsArgument struct{}

// StatsHandler handles the index_stats MCP tool.
type StatsHandler struct {
	service IndexService
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(svc IndexService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Handle reports the index metadata.
func (h *StatsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatsArgument) (*mcp.CallToolResult, any, error) {
	stats, err := h.service.Stats(ctx)
	if err != nil {
		return errorResult("Failed to read index", err), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Index: %s\n", stats.Path)
	fmt.Fprintf(&sb, "Commits: %d\n", stats.TotalCommits)
	fmt.Fprintf(&sb, "Model: %s (%d dimensions)\n", stats.ModelVersion, stats.Dimensions)
	fmt.Fprintf(&sb, "Last commit: %s\n", stats.LastCommit)
	fmt.Fprintf(&sb, "Includes diffs: %t\n", stats.IncludeDiffs)
	fmt.Fprintf(&sb, "Size: %d bytes\n", stats.SizeBytes)
	fmt.Fprintf(&sb, "Created: %s\n", stats.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Updated: %s\n", stats.UpdatedAt.Format(time.RFC3339))

	return textResult(sb.String(), false), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *StatsHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "index_stats",
		Description: "Show the size, model and freshness of the repository's semantic index",
	}
}

// RegisterStatsTool registers the stats tool with an MCP server.
func RegisterStatsTool(server *mcp.Server, svc IndexService) {
	handler := NewStatsHandler(svc)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
