package vaultfile

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "vault", "ssh-accounts"))
}

func TestStore_ReadAllCreatesEmptyVault(t *testing.T) {
	s := newTestStore(t)

	records, err := s.ReadAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, records)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Zero(t, info.Size())
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestStore_WriteAllThenReadAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	records := []string{
		"ssh://a:00:@h1:22 first",
		"ssh://b::11@h2:2222 second label",
	}

	require.NoError(t, s.WriteAll(ctx, records))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "ssh://a:00:@h1:22 first\nssh://b::11@h2:2222 second label", string(data))

	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestStore_WriteAllEmptyTruncates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteAll(ctx, []string{"ssh://a::@h:22 x"}))
	require.NoError(t, s.WriteAll(ctx, nil))

	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_ReadAllToleratesTrailingNewlinesAndCRLF(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("\nssh://a::@h:22 x\r\n\r\nssh://b::@h:22 y\n\n"), 0o600))

	got, err := s.ReadAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"ssh://a::@h:22 x", "ssh://b::@h:22 y"}, got)
}

func TestStore_WriteAllRejectsMultilineRecord(t *testing.T) {
	s := newTestStore(t)

	err := s.WriteAll(context.Background(), []string{"ssh://a::@h:22 x\nssh://b::@h:22 y"})

	require.Error(t, err)
}

func TestStore_WriteAllKeepsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, s.WriteAll(ctx, []string{"ssh://a::@h:22 x"}))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_Lock(t *testing.T) {
	s := newTestStore(t)

	unlock, err := s.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestStore_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ReadAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.WriteAll(ctx, nil), context.Canceled)
}
