// Package dbx holds the small database/sql helpers the CLI repositories
// share: the DBTX handle satisfied by both *sql.DB and *sql.Tx, and
// transaction runners.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by the repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back on error or panic; panics are rethrown.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// WithRepoTx is WithTx for callers that only need one repository bound to
// the transaction, e.g.
//
//	dbx.WithRepoTx(ctx, db, metadata.NewSQLiteRepository, func(ctx context.Context, r *metadata.SQLiteRepository) error {
//	    return r.Set(ctx, "k", v)
//	})
func WithRepoTx[R any](ctx context.Context, db *sql.DB, newRepo func(DBTX) R, fn func(ctx context.Context, repo R) error) error {
	return WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
		return fn(ctx, newRepo(tx))
	})
}
