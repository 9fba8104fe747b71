package filelock

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vault.lock")

	l, err := Acquire(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, l.Release())

	// Re-acquiring after release must not block.
	l, err = Acquire(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestAcquire_WaitsForHolder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("flock not available")
	}
	path := filepath.Join(t.TempDir(), "vault.lock")

	held, err := Acquire(context.Background(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = Acquire(ctx, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan error, 1)
	go func() {
		l, err := Acquire(context.Background(), path)
		if err == nil {
			err = l.Release()
		}
		acquired <- err
	}()

	time.Sleep(2 * retryInterval)
	require.NoError(t, held.Release())

	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the released lock")
	}
}
