package services

import (
	"context"
	"database/sql"
)

// DBTX is the querying surface shared by *sql.DB and *sql.Tx. It lets the
// synchronizer run inside a caller's transaction on the write path and
// directly against the pool during a repair pass.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
