// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"
)

// Sentinel errors returned while selecting vault records.
var (
	// ErrNoAccounts indicates the vault holds no records at all.
	ErrNoAccounts = errors.New("no accounts in the vault")

	// ErrAccountNotFound indicates no record matched the given keywords.
	ErrAccountNotFound = errors.New("no matched accounts were found")
)

// RecordStore defines the driven port for vault persistence. The vault has no
// index: records are the raw lines of the vault, in file order, and every
// mutation rewrites the whole vault through WriteAll.
type RecordStore interface {
	// ReadAll returns every record. A vault that does not exist yet is
	// created empty and yields no records.
	ReadAll(ctx context.Context) ([]string, error)

	// WriteAll replaces the entire vault content with records.
	WriteAll(ctx context.Context, records []string) error

	// Lock takes an exclusive lock on the vault for a read-modify-write cycle.
	// The returned function releases it.
	Lock(ctx context.Context) (unlock func() error, err error)
}
