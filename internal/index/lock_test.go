package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shortTimeout = 100 * time.Millisecond

func TestFileLock_ExclusiveExcludesOthers(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), ".git", FileName)
	first := NewFileLock(indexPath)
	second := NewFileLock(indexPath)
	ctx := context.Background()

	require.NoError(t, first.Lock(ctx, shortTimeout))
	assert.True(t, first.IsLocked())
	assert.Equal(t, indexPath+".lock", first.Path())

	assert.ErrorIs(t, second.Lock(ctx, shortTimeout), ErrLockTimeout)
	assert.ErrorIs(t, second.RLock(ctx, shortTimeout), ErrLockTimeout)

	require.NoError(t, first.Unlock())
	assert.False(t, first.IsLocked())

	require.NoError(t, second.Lock(ctx, shortTimeout))
	require.NoError(t, second.Unlock())
}

func TestFileLock_SharedReaders(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), FileName)
	readerA := NewFileLock(indexPath)
	readerB := NewFileLock(indexPath)
	writer := NewFileLock(indexPath)
	ctx := context.Background()

	require.NoError(t, readerA.RLock(ctx, shortTimeout))
	require.NoError(t, readerB.RLock(ctx, shortTimeout))
	assert.ErrorIs(t, writer.Lock(ctx, shortTimeout), ErrLockTimeout)

	require.NoError(t, readerA.Unlock())
	require.NoError(t, readerB.Unlock())
	require.NoError(t, writer.Lock(ctx, shortTimeout))
	require.NoError(t, writer.Unlock())
}

func TestFileLock_UnlockWhenNotHeld(t *testing.T) {
	lock := NewFileLock(filepath.Join(t.TempDir(), FileName))
	assert.NoError(t, lock.Unlock())
	assert.False(t, lock.IsLocked())
}

func TestFileLock_CancelledContext(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), FileName)
	holder := NewFileLock(indexPath)
	require.NoError(t, holder.Lock(context.Background(), shortTimeout))
	defer func() { _ = holder.Unlock() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewFileLock(indexPath).Lock(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}
