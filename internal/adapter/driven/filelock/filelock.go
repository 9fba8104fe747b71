// Package filelock provides advisory, cross-process exclusive locks backed by
// a lock file.
package filelock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// retryInterval is how often Acquire retries a lock held by another process.
const retryInterval = 50 * time.Millisecond

// Lock is a held lock. Release it exactly once.
type Lock struct {
	f *os.File
}

// Acquire creates path if needed and blocks until an exclusive lock on it is
// held or ctx is done.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %q: %w", path, err)
	}

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		ok, err := tryLock(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("lock %q: %w", path, err)
		}
		if ok {
			return &Lock{f: f}, nil
		}
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, fmt.Errorf("lock %q: %w", path, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release unlocks and closes the lock file. The file itself is left in place
// so that concurrent waiters keep locking the same inode.
func (l *Lock) Release() error {
	if err := unlock(l.f); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("unlock %q: %w", l.f.Name(), err)
	}
	return l.f.Close()
}
