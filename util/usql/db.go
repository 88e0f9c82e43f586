// Package usql wraps database/sql so that every statement the output cache runs is
// timed under the "outputcache_sql" gocore stat, keyed by its SQL text.
package usql

import (
	"context"
	"database/sql"

	"github.com/ordishs/gocore"
)

var stat = gocore.NewStat("outputcache_sql")

// timed starts a timer for name; call the returned func when the statement is done.
func timed(name string) func() {
	start := gocore.CurrentTime()

	return func() {
		stat.NewStat(name).AddTime(start)
	}
}

type DB struct {
	*sql.DB
}

func Open(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer timed(query)()

	return db.DB.QueryContext(ctx, query, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	defer timed(query)()

	return db.DB.QueryRowContext(ctx, query, args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer timed(query)()

	return db.DB.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction whose statements are timed the same way as the DB's.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	defer timed("BEGIN")()

	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &Tx{tx}, nil
}
