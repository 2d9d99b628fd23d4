// Package service runs index, update, search and stats against one repository.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sha1n/git-semantic/internal/domain"
	"github.com/sha1n/git-semantic/internal/embed"
	"github.com/sha1n/git-semantic/internal/history"
	"github.com/sha1n/git-semantic/internal/index"
	"github.com/sha1n/git-semantic/internal/search"
)

// progressInterval is how often indexing progress is logged, in commits.
const progressInterval = 100

// Service coordinates the history reader, the index store and the encoder.
type Service struct {
	reader      *history.Reader
	store       *index.Store
	encoder     embed.Encoder
	lockTimeout time.Duration

	// mu serializes use of lock within the process.
	mu   sync.Mutex
	lock *index.FileLock
}

type options struct {
	lockTimeout  time.Duration
	maxDiffBytes int
	executor     history.CommandExecutor
}

// Option configures a Service.
type Option func(*options)

// WithLockTimeout sets how long operations wait for the index lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithMaxDiffBytes sets the diff summary byte budget used when reading history.
func WithMaxDiffBytes(n int) Option {
	return func(o *options) {
		o.maxDiffBytes = n
	}
}

// WithExecutor sets the command executor used to run git (for testing).
func WithExecutor(executor history.CommandExecutor) Option {
	return func(o *options) {
		o.executor = executor
	}
}

// Open verifies that repoPath is inside a git repository and creates a
// service for that repository.
func Open(ctx context.Context, repoPath string, encoder embed.Encoder, opts ...Option) (*Service, error) {
	o := options{lockTimeout: index.DefaultLockTimeout, maxDiffBytes: history.DefaultMaxDiffBytes}
	for _, opt := range opts {
		opt(&o)
	}

	readerOpts := []history.Option{history.WithMaxDiffBytes(o.maxDiffBytes)}
	if o.executor != nil {
		readerOpts = append(readerOpts, history.WithExecutor(o.executor))
	}

	probe := history.NewReader(repoPath, readerOpts...)
	if err := probe.Verify(ctx); err != nil {
		return nil, err
	}
	root, err := probe.TopLevel(ctx)
	if err != nil {
		return nil, err
	}

	store, err := index.NewStore(root)
	if err != nil {
		return nil, err
	}

	slog.Debug("Opened repository", "root", root, "index", store.Path())
	return New(history.NewReader(root, readerOpts...), store, encoder, WithLockTimeout(o.lockTimeout)), nil
}

// New creates a service from already constructed parts.
func New(reader *history.Reader, store *index.Store, encoder embed.Encoder, opts ...Option) *Service {
	o := options{lockTimeout: index.DefaultLockTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		reader:      reader,
		store:       store,
		encoder:     encoder,
		lock:        index.NewFileLock(store.Path()),
		lockTimeout: o.lockTimeout,
	}
}

// IndexPath returns the location of the index file.
func (s *Service) IndexPath() string {
	return s.store.Path()
}

// ModelID returns the active encoder's model id.
func (s *Service) ModelID() string {
	return s.encoder.ModelID()
}

// IndexResult summarises a full index build.
type IndexResult struct {
	Commits      int
	IncludeDiffs bool
	LastCommit   string
	Path         string
	Duration     time.Duration
}

// Index rebuilds the index from the full history, replacing any existing one.
func (s *Service) Index(ctx context.Context, includeDiffs bool) (*IndexResult, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(ctx, s.lockTimeout); err != nil {
		return nil, fmt.Errorf("failed to lock index: %w", err)
	}
	defer s.unlock()

	commits, err := s.reader.ReadAll(ctx, includeDiffs)
	if err != nil {
		return nil, err
	}
	slog.Info("Read history", "commits", len(commits), "include_diffs", includeDiffs)

	oldestFirst(commits)
	idx, err := index.BuildIndex(ctx, s.encoder, commits, includeDiffs, index.WithProgress(logProgress))
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(idx); err != nil {
		return nil, err
	}

	return &IndexResult{
		Commits:      len(idx.Entries),
		IncludeDiffs: includeDiffs,
		LastCommit:   idx.LastCommit,
		Path:         s.store.Path(),
		Duration:     time.Since(start),
	}, nil
}

// UpdateResult summarises an incremental update.
type UpdateResult struct {
	Added      int
	Total      int
	UpToDate   bool
	LastCommit string
}

// Update appends commits made since the index's last commit.
func (s *Service) Update(ctx context.Context) (*UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(ctx, s.lockTimeout); err != nil {
		return nil, fmt.Errorf("failed to lock index: %w", err)
	}
	defer s.unlock()

	existing, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if existing.ModelVersion != s.encoder.ModelID() {
		return nil, &domain.ModelMismatchError{IndexModel: existing.ModelVersion, ActiveModel: s.encoder.ModelID()}
	}

	includeDiffs := existing.Metadata.IncludeDiffs
	var commits []domain.CommitRecord
	if existing.LastCommit == domain.UnknownCommit || existing.IsEmpty() {
		commits, err = s.reader.ReadAll(ctx, includeDiffs)
	} else {
		commits, err = s.reader.ReadSince(ctx, existing.LastCommit, includeDiffs)
	}
	if err != nil {
		return nil, err
	}

	if len(commits) == 0 {
		slog.Info("Index is up to date", "last_commit", existing.LastCommit)
		return &UpdateResult{UpToDate: true, Total: len(existing.Entries), LastCommit: existing.LastCommit}, nil
	}

	oldestFirst(commits)
	updated, err := index.UpdateIndex(ctx, s.encoder, existing, commits, index.WithProgress(logProgress))
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(updated); err != nil {
		return nil, err
	}

	slog.Info("Updated index", "added", len(commits), "total", len(updated.Entries))
	return &UpdateResult{
		Added:      len(commits),
		Total:      len(updated.Entries),
		LastCommit: updated.LastCommit,
	}, nil
}

// SearchOptions controls a query.
type SearchOptions struct {
	Limit    int
	Filters  domain.SearchFilters
	MinScore *float64
	Keyword  bool
}

// Search ranks indexed commits against query.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]domain.SearchResult, error) {
	idx, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if opts.Keyword {
		return search.KeywordSearch(ctx, idx, query, opts.Limit, opts.Filters)
	}

	var engineOpts []search.Option
	if opts.MinScore != nil {
		engineOpts = append(engineOpts, search.WithMinScore(*opts.MinScore))
	}
	return search.NewEngine(s.encoder, engineOpts...).Search(ctx, idx, query, opts.Limit, opts.Filters)
}

// Stats describes a persisted index.
type Stats struct {
	Path         string    `json:"path" yaml:"path"`
	SizeBytes    int64     `json:"size_bytes" yaml:"size_bytes"`
	TotalCommits int       `json:"total_commits" yaml:"total_commits"`
	ModelVersion string    `json:"model_version" yaml:"model_version"`
	Dimensions   int       `json:"dimensions" yaml:"dimensions"`
	LastCommit   string    `json:"last_commit" yaml:"last_commit"`
	IncludeDiffs bool      `json:"include_diffs" yaml:"include_diffs"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// Stats loads the index and reports its metadata.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	idx, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	size, err := s.store.SizeInBytes()
	if err != nil {
		return nil, err
	}

	return &Stats{
		Path:         s.store.Path(),
		SizeBytes:    size,
		TotalCommits: idx.Metadata.TotalCommits,
		ModelVersion: idx.ModelVersion,
		Dimensions:   idx.Dimension(),
		LastCommit:   idx.LastCommit,
		IncludeDiffs: idx.Metadata.IncludeDiffs,
		CreatedAt:    idx.Metadata.CreatedAt,
		UpdatedAt:    idx.Metadata.UpdatedAt,
	}, nil
}

// load reads the index under a shared lock.
func (s *Service) load(ctx context.Context) (*domain.SemanticIndex, error) {
	if !s.store.Exists() {
		return nil, &domain.IndexNotFoundError{Path: s.store.Path()}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.RLock(ctx, s.lockTimeout); err != nil {
		return nil, fmt.Errorf("failed to lock index: %w", err)
	}
	defer s.unlock()
	return s.store.Load()
}

func (s *Service) unlock() {
	if err := s.lock.Unlock(); err != nil {
		slog.Warn("Failed to release index lock", "path", s.lock.Path(), "error", err)
	}
}

// oldestFirst reverses the newest-first history order so the last appended
// entry is the newest commit.
func oldestFirst(commits []domain.CommitRecord) {
	slices.Reverse(commits)
}

func logProgress(done, total int) {
	if done%progressInterval == 0 || done == total {
		slog.Info("Indexing commits", "done", done, "total", total)
	}
}
