package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/sha1n/git-semantic/internal/domain"
	"github.com/sha1n/git-semantic/internal/search"
	"github.com/sha1n/git-semantic/internal/service"
	"gopkg.in/yaml.v3"
)

// diffPreviewLines is how many diff summary lines a search result shows.
const diffPreviewLines = 2

// Styles holds the report styles.
type Styles struct {
	Header  lipgloss.Style
	Hash    lipgloss.Style
	Score   lipgloss.Style
	Label   lipgloss.Style
	Dim     lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
}

// DefaultStyles returns the colored styles used on terminals.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true),
		Hash:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color("154")),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("154")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Hint:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	}
}

// NoColorStyles returns unstyled components for plain output.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Hash:    lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Hint:    lipgloss.NewStyle(),
	}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Reporter renders command results.
type Reporter struct {
	w      io.Writer
	styles Styles
}

// NewReporter creates a reporter writing to w. Colors are used only when w is
// a terminal and NO_COLOR is not set.
func NewReporter(w io.Writer) *Reporter {
	styles := NoColorStyles()
	if _, noColor := os.LookupEnv("NO_COLOR"); !noColor && IsTTY(w) {
		styles = DefaultStyles()
	}
	return &Reporter{w: w, styles: styles}
}

// Indexed reports a completed index build.
func (r *Reporter) Indexed(result *service.IndexResult, model string) {
	mode := "messages only"
	if result.IncludeDiffs {
		mode = "messages and diffs"
	}
	r.printf("%s\n", r.styles.Success.Render(fmt.Sprintf("Indexed %d commits (%s) in %s", result.Commits, mode, result.Duration.Round(time.Millisecond))))
	r.field("Index", result.Path)
	r.field("Model", model)
	r.field("Last commit", result.LastCommit)
}

// Updated reports an incremental update.
func (r *Reporter) Updated(result *service.UpdateResult) {
	if result.UpToDate {
		r.printf("%s\n", r.styles.Success.Render("Index is already up to date"))
		r.field("Last commit", result.LastCommit)
		return
	}
	r.printf("%s\n", r.styles.Success.Render(fmt.Sprintf("Added %d new commits (%d total)", result.Added, result.Total)))
	r.field("Last commit", result.LastCommit)
}

// SearchResults renders ranked commits for query.
func (r *Reporter) SearchResults(query string, results []domain.SearchResult) {
	if len(results) == 0 {
		r.printf("No results found for: %q\n", query)
		return
	}

	r.printf("%s\n\n", r.styles.Header.Render(fmt.Sprintf("Most relevant commits for: %q", query)))
	for _, res := range results {
		r.printf("%d. %s - %s %s\n",
			res.Rank,
			r.styles.Hash.Render(res.Commit.ShortHash()),
			res.Commit.Subject(),
			r.styles.Score.Render(fmt.Sprintf("(%.2f similarity)", res.Similarity)),
		)
		r.printf("   %s\n", r.styles.Label.Render(fmt.Sprintf("Author: %s, %s", res.Commit.Author, res.Commit.Date.Format(search.DateLayout))))
		if preview := diffPreview(res.Commit.DiffSummary); preview != "" {
			r.printf("   %s\n", r.styles.Dim.Render(preview))
		}
		r.printf("\n")
	}
}

// Stats renders index statistics in the given format.
func (r *Reporter) Stats(stats *service.Stats, format string) error {
	switch strings.ToLower(format) {
	case "", OutputText:
		r.printf("%s\n", r.styles.Header.Render("Index statistics"))
		r.field("Path", stats.Path)
		r.field("Total commits", fmt.Sprintf("%d", stats.TotalCommits))
		r.field("Model", stats.ModelVersion)
		r.field("Dimensions", fmt.Sprintf("%d", stats.Dimensions))
		r.field("Includes diffs", fmt.Sprintf("%t", stats.IncludeDiffs))
		r.field("Last commit", stats.LastCommit)
		r.field("Size", formatSize(stats.SizeBytes))
		r.field("Created", stats.CreatedAt.Local().Format(time.DateTime))
		r.field("Updated", stats.UpdatedAt.Local().Format(time.DateTime))
		return nil
	case OutputJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case OutputYAML:
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(stats); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Error renders err followed by its user hint, if any.
func (r *Reporter) Error(err error) {
	r.printf("%s %s\n", r.styles.Error.Render("Error:"), err)
	if hint := domain.Hint(err); hint != "" {
		r.printf("%s\n", r.styles.Hint.Render(hint))
	}
}

func (r *Reporter) field(label, value string) {
	r.printf("  %s %s\n", r.styles.Label.Render(label+":"), value)
}

func (r *Reporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format, args...)
}

// diffPreview returns the first non-empty lines of a diff summary.
func diffPreview(summary string) string {
	var lines []string
	for line := range strings.Lines(summary) {
		line = strings.TrimRight(line, "\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == diffPreviewLines {
			break
		}
	}
	return strings.Join(lines, "\n   ")
}

func formatSize(bytes int64) string {
	const mb = 1024 * 1024
	if bytes < mb {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.2f MB", float64(bytes)/mb)
}
