package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sha1n/git-semantic/internal/app"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "git-semantic"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		app.ReportError(os.Stderr, err)
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	params := app.DefaultRunParams()

	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Semantic search for git history",
		Long:          "Index a repository's commit history and search it by meaning rather than exact words.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.SetVersionTemplate(`{{.Version}} (` + build + `)
`)
	app.RegisterGlobalFlags(rootCmd.PersistentFlags())

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Build the semantic index from the full history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunIndex(ctx, params, cmd.Flags())
		},
	}
	app.RegisterIndexFlags(indexCmd.Flags())

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Add commits made since the last index or update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunUpdate(ctx, params, cmd.Flags())
		},
	}
	app.RegisterUpdateFlags(updateCmd.Flags())

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed history in natural language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunSearch(ctx, params, cmd.Flags(), args[0])
		},
	}
	app.RegisterSearchFlags(searchCmd.Flags())

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunStats(ctx, params, cmd.Flags())
		},
	}
	app.RegisterStatsFlags(statsCmd.Flags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve commit search as MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunServe(ctx, params, cmd.Flags(), version)
		},
	}
	app.RegisterServeFlags(serveCmd.Flags())

	rootCmd.AddCommand(indexCmd, updateCmd, searchCmd, statsCmd, serveCmd)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}
