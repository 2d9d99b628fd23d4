package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sha1n/git-semantic/internal/domain"
	"github.com/sha1n/git-semantic/internal/embed"
	"github.com/sha1n/git-semantic/internal/history"
	"github.com/sha1n/git-semantic/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hashA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hashB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	hashC = "cccccccccccccccccccccccccccccccccccccccc"
	hashD = "dddddddddddddddddddddddddddddddddddddddd"
)

// baseLog is newest first: C (Bob), B (Alice), A (Alice), three days apart.
func baseLog() string {
	return history.LogRecord(hashC, "Bob", 1_704_628_800, hashB, "fix bug again\n") +
		history.LogRecord(hashB, "Alice", 1_704_369_600, hashA, "add feature\n") +
		history.LogRecord(hashA, "Alice", 1_704_110_400, "", "fix bug\n")
}

func newLog() string {
	return history.LogRecord(hashD, "Carol", 1_704_888_000, hashC, "update documentation\n") + baseLog()
}

type fixture struct {
	root string
	mock *history.MockExecutor
	svc  *Service
}

func newFixture(t *testing.T, enc embed.Encoder) *fixture {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))

	mock := history.NewMockExecutor()
	mock.AddResponse("git rev-parse --git-dir", []byte(".git\n"), nil)
	mock.AddResponse("git rev-parse --show-toplevel", []byte(root+"\n"), nil)

	svc, err := Open(context.Background(), root, enc, WithExecutor(mock))
	require.NoError(t, err)
	return &fixture{root: root, mock: mock, svc: svc}
}

func (f *fixture) index(t *testing.T, includeDiffs bool) *IndexResult {
	t.Helper()
	f.mock.AddResponse("git log", []byte(baseLog()), nil)
	if includeDiffs {
		for range 3 {
			f.mock.AddResponse("git diff-tree", []byte("diff --git a/f b/f\n@@ -0,0 +1 @@\n+line\n"), nil)
		}
	}
	result, err := f.svc.Index(context.Background(), includeDiffs)
	require.NoError(t, err)
	return result
}

func TestOpen_NotARepository(t *testing.T) {
	mock := history.NewMockExecutor()
	mock.AddResponse("git rev-parse --git-dir", nil, errors.New("fatal: not a git repository"))

	_, err := Open(context.Background(), t.TempDir(), embed.NewStaticEncoder(), WithExecutor(mock))
	assert.ErrorIs(t, err, domain.ErrNotAGitRepository)
}

func TestOpen_ResolvesIndexInControlDirectory(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	assert.Equal(t, filepath.Join(f.root, ".git", index.FileName), f.svc.IndexPath())
	assert.Equal(t, embed.StaticModelID, f.svc.ModelID())
}

func TestService_IndexStoresOldestFirst(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	result := f.index(t, false)

	assert.Equal(t, 3, result.Commits)
	assert.Equal(t, hashC, result.LastCommit)
	assert.Equal(t, f.svc.IndexPath(), result.Path)

	idx, err := index.NewStoreAt(f.svc.IndexPath()).Load()
	require.NoError(t, err)
	require.Len(t, idx.Entries, 3)
	assert.Equal(t, hashA, idx.Entries[0].Commit.Hash)
	assert.Equal(t, hashB, idx.Entries[1].Commit.Hash)
	assert.Equal(t, hashC, idx.Entries[2].Commit.Hash)
	assert.Equal(t, hashC, idx.LastCommit)
	assert.False(t, idx.Metadata.IncludeDiffs)
}

func TestService_IndexWithDiffs(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	result := f.index(t, true)
	assert.True(t, result.IncludeDiffs)

	idx, err := index.NewStoreAt(f.svc.IndexPath()).Load()
	require.NoError(t, err)
	assert.True(t, idx.Metadata.IncludeDiffs)
	for _, e := range idx.Entries {
		assert.Equal(t, "+line\n", e.Commit.DiffSummary)
	}
}

func TestService_UpdateUpToDate(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	f.index(t, false)
	before, err := os.ReadFile(f.svc.IndexPath())
	require.NoError(t, err)

	f.mock.AddResponse("git log", []byte(baseLog()), nil)
	result, err := f.svc.Update(context.Background())
	require.NoError(t, err)

	assert.True(t, result.UpToDate)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 3, result.Total)

	after, err := os.ReadFile(f.svc.IndexPath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestService_UpdateAppendsNewCommits(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	f.index(t, false)

	f.mock.AddResponse("git log", []byte(newLog()), nil)
	result, err := f.svc.Update(context.Background())
	require.NoError(t, err)

	assert.False(t, result.UpToDate)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, hashD, result.LastCommit)

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalCommits)
	assert.Equal(t, hashD, stats.LastCommit)
}

func TestService_UpdateKeepsDiffSetting(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	f.index(t, true)

	f.mock.AddResponse("git log", []byte(newLog()), nil)
	f.mock.AddResponse("git diff-tree", []byte("diff --git a/d b/d\n@@ -0,0 +1 @@\n+docs\n"), nil)
	_, err := f.svc.Update(context.Background())
	require.NoError(t, err)

	idx, err := index.NewStoreAt(f.svc.IndexPath()).Load()
	require.NoError(t, err)
	assert.Equal(t, "+docs\n", idx.Entries[3].Commit.DiffSummary)
}

func TestService_UpdateWithoutIndex(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())

	_, err := f.svc.Update(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	assert.Contains(t, domain.Hint(err), "git-semantic index")
}

func TestService_UpdateAfterHistoryRewrite(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	f.index(t, false)

	rewritten := history.LogRecord(hashD, "Carol", 1_704_888_000, hashB, "rewritten\n") +
		history.LogRecord(hashB, "Alice", 1_704_369_600, hashA, "add feature\n") +
		history.LogRecord(hashA, "Alice", 1_704_110_400, "", "fix bug\n")
	f.mock.AddResponse("git log", []byte(rewritten), nil)

	_, err := f.svc.Update(context.Background())
	assert.ErrorIs(t, err, domain.ErrBoundaryNotFound)

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hashC, stats.LastCommit)
}

func TestService_UpdateEmptyIndexReadsAll(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	f.mock.AddResponse("git log", []byte(""), nil)
	_, err := f.svc.Index(context.Background(), false)
	require.NoError(t, err)

	f.mock.AddResponse("git log", []byte(baseLog()), nil)
	result, err := f.svc.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Added)
	assert.Equal(t, hashC, result.LastCommit)
}

func TestService_ModelMismatch(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	f.index(t, false)

	other := New(history.NewReader(f.root, history.WithExecutor(f.mock)), index.NewStoreAt(f.svc.IndexPath()), &renamedEncoder{embed.NewStaticEncoder()})

	_, err := other.Update(context.Background())
	assert.ErrorIs(t, err, domain.ErrModelMismatch)

	_, err = other.Search(context.Background(), "fix bug", SearchOptions{Limit: 5})
	assert.ErrorIs(t, err, domain.ErrModelMismatch)
}

func TestService_Search(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	f.index(t, false)

	results, err := f.svc.Search(context.Background(), "fix bug", SearchOptions{
		Limit:   2,
		Filters: domain.SearchFilters{Author: "alice"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, hashA, results[0].Commit.Hash)
	assert.Equal(t, hashB, results[1].Commit.Hash)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
}

func TestService_SearchMinScore(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	f.index(t, false)

	minScore := 0.5
	results, err := f.svc.Search(context.Background(), "fix bug", SearchOptions{MinScore: &minScore})
	require.NoError(t, err)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, minScore)
	}
	assert.NotEmpty(t, results)
}

func TestService_KeywordSearch(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	f.index(t, false)

	results, err := f.svc.Search(context.Background(), "feature", SearchOptions{Keyword: true, Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, hashB, results[0].Commit.Hash)
}

func TestService_SearchWithoutIndex(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	_, err := f.svc.Search(context.Background(), "anything", SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestService_Stats(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())

	_, err := f.svc.Stats(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)

	f.index(t, false)
	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, f.svc.IndexPath(), stats.Path)
	assert.Equal(t, 3, stats.TotalCommits)
	assert.Equal(t, embed.StaticModelID, stats.ModelVersion)
	assert.Equal(t, embed.StaticDimensions, stats.Dimensions)
	assert.Equal(t, hashC, stats.LastCommit)
	assert.Greater(t, stats.SizeBytes, int64(0))
	assert.False(t, stats.UpdatedAt.Before(stats.CreatedAt))
}

func TestService_CorruptIndex(t *testing.T) {
	f := newFixture(t, embed.NewStaticEncoder())
	require.NoError(t, os.WriteFile(f.svc.IndexPath(), []byte("garbage garbage garbage garbage"), 0644))

	_, err := f.svc.Stats(context.Background())
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

// renamedEncoder behaves like its inner encoder under another model id.
type renamedEncoder struct {
	embed.Encoder
}

func (r *renamedEncoder) ModelID() string { return "renamed" }
