// Package vaultfile stores vault records as the lines of a flat UTF-8 text
// file: one record per line, newline separated, no header.
package vaultfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/sshvault/internal/adapter/driven/filelock"
	"github.com/ericfisherdev/sshvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RecordStore = (*Store)(nil)

// Store is the flat-file implementation of the RecordStore port.
// Writes replace the file atomically; the lock lives in a sibling ".lock" file.
type Store struct {
	path string
}

// NewStore creates a Store for the vault file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the vault file location.
func (s *Store) Path() string {
	return s.path
}

// ReadAll returns the non-blank lines of the vault file, creating an empty
// file first if none exists.
func (s *Store) ReadAll(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ensure(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read vault %q: %w", s.path, err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return []string{}, nil
	}

	lines := strings.Split(content, "\n")
	records := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, line)
	}
	return records, nil
}

// WriteAll atomically replaces the vault file with records joined by "\n".
// No trailing newline is written.
func (s *Store) WriteAll(ctx context.Context, records []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ensure(); err != nil {
		return err
	}
	for i, r := range records {
		if strings.ContainsAny(r, "\r\n") {
			return fmt.Errorf("record %d spans multiple lines", i)
		}
	}

	content := strings.Join(records, "\n")
	if err := atomic.WriteFile(s.path, strings.NewReader(content)); err != nil {
		return fmt.Errorf("write vault %q: %w", s.path, err)
	}
	return nil
}

// Lock takes an exclusive advisory lock on the vault.
func (s *Store) Lock(ctx context.Context) (func() error, error) {
	l, err := filelock.Acquire(ctx, s.path+".lock")
	if err != nil {
		return nil, err
	}
	return l.Release, nil
}

// ensure creates the vault directory and an empty vault file when missing.
func (s *Store) ensure() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat vault %q: %w", s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create vault %q: %w", s.path, err)
	}
	return f.Close()
}
