package usql

import (
	"context"
	"database/sql"
)

// Tx is the pending span of a SQL store. Reads go through it so that uncommitted
// writes are visible.
type Tx struct {
	*sql.Tx
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer timed(query)()

	return tx.Tx.QueryContext(ctx, query, args...)
}

func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	defer timed(query)()

	return tx.Tx.QueryRowContext(ctx, query, args...)
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer timed(query)()

	return tx.Tx.ExecContext(ctx, query, args...)
}

func (tx *Tx) Commit() error {
	defer timed("COMMIT")()

	return tx.Tx.Commit()
}

func (tx *Tx) Rollback() error {
	defer timed("ROLLBACK")()

	return tx.Tx.Rollback()
}
