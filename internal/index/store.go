package index

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sha1n/git-semantic/internal/domain"
)

const (
	// FileName is the name of the index file inside the git control directory.
	FileName = "semantic-index"

	gitDirPrefix = "gitdir: "
)

// ResolvePath returns the index file location for the repository rooted at
// repoRoot. Linked worktrees resolve to the shared control directory so that
// every worktree of a repository uses the same index.
func ResolvePath(repoRoot string) (string, error) {
	gitPath := filepath.Join(repoRoot, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return "", &domain.NotAGitRepositoryError{Path: repoRoot}
	}

	if info.IsDir() {
		return filepath.Join(gitPath, FileName), nil
	}
	if !info.Mode().IsRegular() {
		return "", &domain.NotAGitRepositoryError{Path: repoRoot}
	}

	content, err := os.ReadFile(gitPath)
	if err != nil {
		return "", &domain.NotAGitRepositoryError{Path: repoRoot}
	}
	pointer, ok := strings.CutPrefix(strings.TrimSpace(string(content)), gitDirPrefix)
	if !ok || strings.TrimSpace(pointer) == "" {
		return "", &domain.NotAGitRepositoryError{Path: repoRoot}
	}

	gitDir := strings.TrimSpace(pointer)
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(repoRoot, gitDir)
	}

	return filepath.Join(commonDir(gitDir), FileName), nil
}

// commonDir follows the commondir file of a worktree control directory.
// Directories without one are returned unchanged.
func commonDir(gitDir string) string {
	content, err := os.ReadFile(filepath.Join(gitDir, "commondir"))
	if err != nil {
		return filepath.Clean(gitDir)
	}
	common := strings.TrimSpace(string(content))
	if common == "" {
		return filepath.Clean(gitDir)
	}
	if !filepath.IsAbs(common) {
		common = filepath.Join(gitDir, common)
	}
	return filepath.Clean(common)
}

// Store reads and writes the index file of one repository.
type Store struct {
	path string
}

// NewStore creates a store for the repository rooted at repoRoot.
func NewStore(repoRoot string) (*Store, error) {
	path, err := ResolvePath(repoRoot)
	if err != nil {
		return nil, err
	}
	return &Store{path: path}, nil
}

// NewStoreAt creates a store for an explicit index file path.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Path returns the index file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the index file is present.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.Mode().IsRegular()
}

// Save writes idx to a temporary file and renames it over the index file.
func (s *Store) Save(idx *domain.SemanticIndex) error {
	data, err := Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to serialize index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write index temp file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename index file: %w", err)
	}

	slog.Debug("Saved index", "path", s.path, "entries", len(idx.Entries), "bytes", len(data))
	return nil
}

// Load reads the index file.
func (s *Store) Load() (*domain.SemanticIndex, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.IndexNotFoundError{Path: s.path}
		}
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	idx, err := Unmarshal(data)
	if err != nil {
		return nil, &domain.CorruptIndexError{Path: s.path, Err: err}
	}
	return idx, nil
}

// SizeInBytes returns the size of the index file.
func (s *Store) SizeInBytes() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, &domain.IndexNotFoundError{Path: s.path}
		}
		return 0, err
	}
	return info.Size(), nil
}
