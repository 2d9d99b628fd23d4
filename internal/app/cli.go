package app

import "github.com/spf13/pflag"

// Output formats accepted by the stats command.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// RegisterGlobalFlags registers flags shared by every command
func RegisterGlobalFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("embeddings-provider", "", "Embeddings provider: static or openai")
	flags.String("embeddings-model", "", "Embeddings model (openai provider)")
	flags.String("embeddings-base-url", "", "Base URL of an OpenAI-compatible embeddings API")
	flags.Duration("lock-timeout", 0, "How long to wait for the index lock")
}

// RegisterPathFlag registers the repository path flag
func RegisterPathFlag(flags *pflag.FlagSet) {
	flags.StringP("path", "p", ".", "Repository path")
}

// RegisterIndexFlags registers the flags of the index command
func RegisterIndexFlags(flags *pflag.FlagSet) {
	RegisterPathFlag(flags)
	flags.Bool("quick", false, "Index commit messages only (faster)")
	flags.Bool("full", false, "Index commit messages and diffs (default)")
	flags.Int("max-diff-bytes", 0, "Maximum diff summary bytes per commit")
}

// RegisterUpdateFlags registers the flags of the update command
func RegisterUpdateFlags(flags *pflag.FlagSet) {
	RegisterPathFlag(flags)
	flags.Int("max-diff-bytes", 0, "Maximum diff summary bytes per commit")
}

// RegisterSearchFlags registers the flags of the search command
func RegisterSearchFlags(flags *pflag.FlagSet) {
	RegisterPathFlag(flags)
	flags.IntP("results", "n", 0, "Number of results to return")
	flags.String("author", "", "Filter by author (case-insensitive substring)")
	flags.String("after", "", "Only commits on or after this date (YYYY-MM-DD)")
	flags.String("before", "", "Only commits on or before this date (YYYY-MM-DD)")
	flags.String("file", "", "Only commits whose diff mentions this text")
	flags.Float64("min-score", 0, "Drop results below this similarity")
	flags.Bool("keyword", false, "Use keyword matching instead of semantic similarity")
}

// RegisterStatsFlags registers the flags of the stats command
func RegisterStatsFlags(flags *pflag.FlagSet) {
	RegisterPathFlag(flags)
	flags.StringP("output", "o", OutputText, "Output format: text, json or yaml")
}

// RegisterServeFlags registers the flags of the serve command
func RegisterServeFlags(flags *pflag.FlagSet) {
	RegisterPathFlag(flags)
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.Int("port", 0, "Port for SSE transport")
	flags.IntP("results", "n", 0, "Default number of search results")
	flags.Float64("min-score", 0, "Drop results below this similarity")
}
