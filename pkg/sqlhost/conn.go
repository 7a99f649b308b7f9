// Package sqlhost defines the minimal driver-agnostic interface the
// translator's generated SQL runs against, plus a pgx-backed pooled
// implementation. Keeping the interface narrow (query/exec/transaction,
// nothing dialect-specific) lets the core run against any database
// presenting this shape, with pgx/v5 wired as the concrete default.
package sqlhost

import "context"

// Rows is satisfied by *sql.Rows and by pgx's row iterator wrapped
// through the stdlib adapter; it is the only row-shaped type the
// hydrator needs.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Conn is the surface the engine and operators depend on. Both a
// pooled connection and a transaction satisfy it, so write paths can
// pass either uniformly.
type Conn interface {
	QueryContext(ctx context.Context, sql string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, sql string, args ...any) (int64, error)
}

// TxBeginner is implemented by hosts that can start a transaction; the
// engine type-asserts for it on write paths that need atomicity.
type TxBeginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a Conn plus commit/rollback.
type Tx interface {
	Conn
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
