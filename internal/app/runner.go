package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/git-semantic/internal/config"
	"github.com/sha1n/git-semantic/internal/domain"
	"github.com/sha1n/git-semantic/internal/embed"
	mcputil "github.com/sha1n/git-semantic/internal/mcp"
	"github.com/sha1n/git-semantic/internal/service"
	"github.com/spf13/pflag"
)

// RunParams contains dependencies for the command runners
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	NewEncoder        func(config.EmbeddingsSettings) (embed.Encoder, error)
	OpenService       func(context.Context, string, embed.Encoder, *config.Settings) (*service.Service, error)
	StartSSEServer    func(*mcp.Server, *config.Settings) error
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
	Stdout            io.Writer
	Stderr            io.Writer
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		NewEncoder:     NewEncoder,
		OpenService:    OpenService,
		StartSSEServer: StartSSEServer,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
	}
}

// NewEncoder creates the encoder selected by the embeddings settings
func NewEncoder(s config.EmbeddingsSettings) (embed.Encoder, error) {
	return embed.New(embed.Config{
		Provider:          s.Provider,
		Model:             s.Model,
		APIKey:            s.APIKey,
		BaseURL:           s.BaseURL,
		Timeout:           s.Timeout,
		RequestsPerSecond: s.RequestsPerSecond,
	})
}

// OpenService opens the repository at repoPath with the configured index settings
func OpenService(ctx context.Context, repoPath string, encoder embed.Encoder, settings *config.Settings) (*service.Service, error) {
	return service.Open(ctx, repoPath, encoder,
		service.WithLockTimeout(settings.Index.LockTimeout),
		service.WithMaxDiffBytes(settings.Index.MaxDiffBytes),
	)
}

// ReportError writes err and its hint to w
func ReportError(w io.Writer, err error) {
	NewReporter(w).Error(err)
}

// RunIndex rebuilds the index of the repository
func RunIndex(ctx context.Context, params RunParams, flags *pflag.FlagSet) error {
	settings, svc, err := prepare(ctx, params, flags, false)
	if err != nil {
		return err
	}

	quick, _ := flags.GetBool("quick")
	full, _ := flags.GetBool("full")
	includeDiffs := full || !quick

	slog.Info("Indexing repository", "index", svc.IndexPath(), "include_diffs", includeDiffs, "max_diff_bytes", settings.Index.MaxDiffBytes)
	result, err := svc.Index(ctx, includeDiffs)
	if err != nil {
		return err
	}

	NewReporter(params.Stdout).Indexed(result, svc.ModelID())
	return nil
}

// RunUpdate appends new commits to the index of the repository
func RunUpdate(ctx context.Context, params RunParams, flags *pflag.FlagSet) error {
	_, svc, err := prepare(ctx, params, flags, false)
	if err != nil {
		return err
	}

	result, err := svc.Update(ctx)
	if err != nil {
		return err
	}

	NewReporter(params.Stdout).Updated(result)
	return nil
}

// RunSearch runs query against the index of the repository
func RunSearch(ctx context.Context, params RunParams, flags *pflag.FlagSet, query string) error {
	settings, svc, err := prepare(ctx, params, flags, false)
	if err != nil {
		return err
	}

	opts := service.SearchOptions{
		Limit:    settings.Search.Results,
		Filters:  searchFilters(flags),
		MinScore: minScore(settings, flags),
	}
	opts.Keyword, _ = flags.GetBool("keyword")
	if opts.Keyword {
		// bleve scores are not similarities
		opts.MinScore = nil
	}

	results, err := svc.Search(ctx, query, opts)
	if err != nil {
		return err
	}

	NewReporter(params.Stdout).SearchResults(query, results)
	return nil
}

// RunStats prints the statistics of the repository's index
func RunStats(ctx context.Context, params RunParams, flags *pflag.FlagSet) error {
	format, _ := flags.GetString("output")
	switch format {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	_, svc, err := prepare(ctx, params, flags, false)
	if err != nil {
		return err
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	return NewReporter(params.Stdout).Stats(stats, format)
}

// RunServe serves the search tools over MCP until ctx is done
func RunServe(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, svc, err := prepare(ctx, params, flags, true)
	if err != nil {
		return err
	}

	slog.Info("Starting git-semantic MCP server", "version", version)
	config.LogServe(settings, slog.Default())

	mcpServer := mcputil.CreateServer(mcputil.ServerConfig{
		Name:         "git-semantic",
		Version:      version,
		Service:      svc,
		DefaultLimit: settings.Search.Results,
		MinScore:     minScore(settings, flags),
	})

	if settings.Serve.Transport == config.TransportStdio {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Serve.Host, "port", settings.Serve.Port)
	return params.StartSSEServer(mcpServer, settings)
}

// prepare loads settings, configures logging and opens the repository.
// Long-running servers get a query cache in front of the encoder.
func prepare(ctx context.Context, params RunParams, flags *pflag.FlagSet, cacheQueries bool) (*config.Settings, *service.Service, error) {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Logs always go to stderr so stdout stays clean for reports and stdio transport
	stderr := params.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	slog.SetDefault(config.NewLogger(settings.Log, stderr))
	config.Log(settings)

	encoder, err := params.NewEncoder(settings.Embeddings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	if cacheQueries && settings.Embeddings.CacheSize > 0 {
		encoder = embed.NewCachedEncoder(encoder, settings.Embeddings.CacheSize)
	}

	svc, err := params.OpenService(ctx, repoPath(flags), encoder, settings)
	if err != nil {
		return nil, nil, err
	}
	return settings, svc, nil
}

func repoPath(flags *pflag.FlagSet) string {
	if flags == nil {
		return "."
	}
	path, err := flags.GetString("path")
	if err != nil || path == "" {
		return "."
	}
	return path
}

func searchFilters(flags *pflag.FlagSet) domain.SearchFilters {
	var f domain.SearchFilters
	f.Author, _ = flags.GetString("author")
	f.After, _ = flags.GetString("after")
	f.Before, _ = flags.GetString("before")
	f.File, _ = flags.GetString("file")
	return f
}

// minScore returns the similarity threshold, or nil when none was requested.
func minScore(settings *config.Settings, flags *pflag.FlagSet) *float64 {
	if settings.Search.MinScore == 0 && (flags == nil || !flags.Changed("min-score")) {
		return nil
	}
	score := settings.Search.MinScore
	return &score
}
