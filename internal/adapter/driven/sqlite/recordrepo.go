package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/sshvault/internal/adapter/driven/filelock"
	"github.com/ericfisherdev/sshvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RecordStore = (*RecordRepo)(nil)

// RecordRepo is the SQLite implementation of the RecordStore port interface.
// It stores the same record lines as the flat-file vault, one row per line,
// ordered by position.
type RecordRepo struct {
	db *DB
}

// NewRecordRepo creates a new RecordRepo backed by the given DB.
func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// ReadAll returns every record in vault order.
func (r *RecordRepo) ReadAll(ctx context.Context) ([]string, error) {
	const query = `SELECT line FROM records ORDER BY position`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []string{}
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// WriteAll replaces all rows with records inside a single transaction.
func (r *RecordRepo) WriteAll(ctx context.Context, records []string) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	const insert = `INSERT INTO records (position, line) VALUES (?, ?)`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, line := range records {
		if _, err := stmt.ExecContext(ctx, i, line); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}

// Lock takes an exclusive advisory lock next to the database file. In-memory
// databases have nothing to lock against and get a no-op.
func (r *RecordRepo) Lock(ctx context.Context) (func() error, error) {
	if r.db.path == "" || r.db.path == ":memory:" {
		return func() error { return nil }, nil
	}
	l, err := filelock.Acquire(ctx, r.db.path+".lock")
	if err != nil {
		return nil, err
	}
	return l.Release, nil
}
