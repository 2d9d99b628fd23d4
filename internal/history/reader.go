// Package history reads commit metadata and diffs from a git repository.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sha1n/git-semantic/internal/domain"
)

const (
	recordSeparator = "\x1e"
	fieldSeparator  = "\x1f"

	// logFormat prints hash, author, committer time, parents and raw message.
	logFormat = "--format=%x1e%H%x1f%an%x1f%ct%x1f%P%x1f%B"

	unknownAuthor = "Unknown"
)

// Reader walks the commit history reachable from HEAD.
type Reader struct {
	repoPath     string
	executor     CommandExecutor
	maxDiffBytes int
}

// Option configures a Reader.
type Option func(*Reader)

// WithExecutor sets a custom command executor (for testing).
func WithExecutor(executor CommandExecutor) Option {
	return func(r *Reader) {
		r.executor = executor
	}
}

// WithMaxDiffBytes sets the diff summary byte budget.
func WithMaxDiffBytes(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxDiffBytes = n
		}
	}
}

// NewReader creates a Reader for the repository at repoPath.
func NewReader(repoPath string, opts ...Option) *Reader {
	r := &Reader{
		repoPath:     repoPath,
		executor:     &DefaultExecutor{},
		maxDiffBytes: DefaultMaxDiffBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RepoPath returns the repository path the reader operates on.
func (r *Reader) RepoPath() string {
	return r.repoPath
}

// Verify checks that the reader points at a git repository.
func (r *Reader) Verify(ctx context.Context) error {
	if _, err := r.git(ctx, "rev-parse", "--git-dir"); err != nil {
		return &domain.NotAGitRepositoryError{Path: r.repoPath}
	}
	return nil
}

// TopLevel returns the root of the working tree containing the reader's path.
func (r *Reader) TopLevel(ctx context.Context) (string, error) {
	output, err := r.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", &domain.NotAGitRepositoryError{Path: r.repoPath}
	}
	return strings.TrimSpace(string(output)), nil
}

// HeadCommit returns the current HEAD commit hash.
func (r *Reader) HeadCommit(ctx context.Context) (string, error) {
	output, err := r.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ReadAll returns every commit reachable from HEAD, newest first by commit time.
func (r *Reader) ReadAll(ctx context.Context, includeDiffs bool) ([]domain.CommitRecord, error) {
	logged, err := r.log(ctx)
	if err != nil {
		return nil, err
	}
	return r.materialize(ctx, logged, includeDiffs)
}

// ReadSince returns the commits that precede sinceHash in the ReadAll order.
//
// A BoundaryNotFoundError is returned, with no commits, when sinceHash does
// not appear in the traversed history.
func (r *Reader) ReadSince(ctx context.Context, sinceHash string, includeDiffs bool) ([]domain.CommitRecord, error) {
	logged, err := r.log(ctx)
	if err != nil {
		return nil, err
	}

	boundary := strings.ToLower(strings.TrimSpace(sinceHash))
	for i, c := range logged {
		if boundary != "" && c.hash == boundary {
			return r.materialize(ctx, logged[:i], includeDiffs)
		}
	}
	return nil, &domain.BoundaryNotFoundError{Hash: sinceHash}
}

// loggedCommit is a parsed git log record before diff extraction.
type loggedCommit struct {
	hash    string
	author  string
	date    time.Time
	parents []string
	message string
}

func (r *Reader) log(ctx context.Context) ([]loggedCommit, error) {
	output, err := r.git(ctx, "log", "--no-color", "--no-show-signature", "--date-order", logFormat, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("git log failed: %w", err)
	}
	return parseLog(string(output))
}

func (r *Reader) materialize(ctx context.Context, logged []loggedCommit, includeDiffs bool) ([]domain.CommitRecord, error) {
	commits := make([]domain.CommitRecord, 0, len(logged))
	for _, c := range logged {
		record := domain.CommitRecord{
			Hash:    c.hash,
			Author:  c.author,
			Date:    c.date,
			Message: c.message,
		}

		if includeDiffs {
			diff, err := r.diff(ctx, c)
			if err != nil {
				return nil, err
			}
			record.DiffSummary = diff
		}

		slog.Debug("Parsed commit", "hash", record.ShortHash(), "author", record.Author, "date", record.Date)
		commits = append(commits, record)
	}
	return commits, nil
}

// diff renders the changes of a commit against its first parent.
func (r *Reader) diff(ctx context.Context, c loggedCommit) (string, error) {
	args := []string{"diff-tree", "-p", "-r", "--unified=0", "--no-color", "--no-ext-diff", "--no-renames", "--no-commit-id"}
	if len(c.parents) == 0 {
		args = append(args, "--root", c.hash)
	} else {
		args = append(args, c.parents[0], c.hash)
	}

	output, err := r.git(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("git diff-tree failed for %s: %w", c.hash, err)
	}
	return Truncate(RenderChanges(string(output)), r.maxDiffBytes), nil
}

func (r *Reader) git(ctx context.Context, args ...string) ([]byte, error) {
	return r.executor.Run(ctx, r.repoPath, "git", args...)
}

// parseLog parses the output of git log printed with logFormat.
func parseLog(output string) ([]loggedCommit, error) {
	var commits []loggedCommit
	for _, record := range strings.Split(output, recordSeparator) {
		if strings.TrimSpace(record) == "" {
			continue
		}

		fields := strings.SplitN(record, fieldSeparator, 5)
		if len(fields) != 5 {
			return nil, fmt.Errorf("unexpected git log record: %q", record)
		}

		seconds, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid commit time %q: %w", fields[2], err)
		}

		author := fields[1]
		if author == "" {
			author = unknownAuthor
		}

		commits = append(commits, loggedCommit{
			hash:    strings.ToLower(strings.TrimSpace(fields[0])),
			author:  author,
			date:    time.Unix(seconds, 0).UTC(),
			parents: strings.Fields(fields[3]),
			message: strings.TrimRight(fields[4], "\n"),
		})
	}
	return commits, nil
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
