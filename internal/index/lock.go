package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	// DefaultLockTimeout is how long writers and readers wait for the index lock.
	DefaultLockTimeout = 30 * time.Second

	lockRetryDelay = 50 * time.Millisecond
)

// ErrLockTimeout indicates the lock acquisition timed out.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// FileLock guards an index file across processes. Writers hold it
// exclusively and readers share it.
type FileLock struct {
	path  string
	flock *flock.Flock
}

// NewFileLock creates a lock for the index file at indexPath.
// The lock itself lives at indexPath + ".lock".
func NewFileLock(indexPath string) *FileLock {
	path := indexPath + ".lock"
	return &FileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Lock acquires the exclusive lock, waiting up to timeout.
func (l *FileLock) Lock(ctx context.Context, timeout time.Duration) error {
	return l.acquire(ctx, timeout, l.flock.TryLockContext)
}

// RLock acquires a shared lock, waiting up to timeout.
func (l *FileLock) RLock(ctx context.Context, timeout time.Duration) error {
	return l.acquire(ctx, timeout, l.flock.TryRLockContext)
}

func (l *FileLock) acquire(ctx context.Context, timeout time.Duration, try func(context.Context, time.Duration) (bool, error)) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := try(lockCtx, lockRetryDelay)
	if locked {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return ErrLockTimeout
	}
	return fmt.Errorf("failed to acquire lock: %w", err)
}

// Unlock releases the lock. Unlocking an unlocked FileLock is a no-op.
func (l *FileLock) Unlock() error {
	if !l.flock.Locked() && !l.flock.RLocked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// IsLocked reports whether this instance holds the lock in either mode.
func (l *FileLock) IsLocked() bool {
	return l.flock.Locked() || l.flock.RLocked()
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}
