package sqlhost

import (
	"context"
	"database/sql"
)

// StdlibHost adapts a plain *sql.DB (e.g. pgx's stdlib adapter, or any
// other database/sql driver) to Conn. The CLI's migrate command uses
// it, since goose needs a *sql.DB. jackc/pgx/v5/stdlib still speaks
// pgx's wire protocol underneath database/sql, so the same $N
// numbered placeholders apply here too. Arguments are passed to the
// driver unchanged: unlike PgxHost, StdlibHost does not rewrite a
// []float32 argument into a pgvector.Vector.
type StdlibHost struct {
	DB *sql.DB
}

func (h *StdlibHost) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := h.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &stdlibRows{rows: rows}, nil
}

func (h *StdlibHost) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := h.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (h *StdlibHost) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &stdlibTx{tx: tx}, nil
}

type stdlibRows struct{ rows *sql.Rows }

func (r *stdlibRows) Next() bool          { return r.rows.Next() }
func (r *stdlibRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *stdlibRows) Err() error           { return r.rows.Err() }
func (r *stdlibRows) Close() error         { return r.rows.Close() }

type stdlibTx struct{ tx *sql.Tx }

func (t *stdlibTx) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &stdlibRows{rows: rows}, nil
}

func (t *stdlibTx) ExecContext(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *stdlibTx) Commit(ctx context.Context) error   { return t.tx.Commit() }
func (t *stdlibTx) Rollback(ctx context.Context) error { return t.tx.Rollback() }
