package sqlhost

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// PgxHost wraps a pooled pgx connection pool and satisfies Conn and
// TxBeginner. Constructed once per engine instance and shared across
// calls; acquisition/release happens per statement inside the pool.
type PgxHost struct {
	pool   *pgxpool.Pool
	log    *zap.Logger
}

// NewPgxHost opens a bounded connection pool against dsn. poolSize
// configures the pool's max connections, matching the engine's
// configurable bounded pool (default 8 per the resource model).
func NewPgxHost(ctx context.Context, dsn string, poolSize int32, log *zap.Logger) (*PgxHost, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlhost: parsing dsn: %w", err)
	}
	if poolSize > 0 {
		cfg.MaxConns = poolSize
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sqlhost: opening pool: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PgxHost{pool: pool, log: log}, nil
}

// Close releases the pool.
func (h *PgxHost) Close() { h.pool.Close() }

func (h *PgxHost) QueryContext(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := h.pool.Query(ctx, sql, bindArgs(args)...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (h *PgxHost) ExecContext(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := h.pool.Exec(ctx, sql, bindArgs(args)...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (h *PgxHost) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

// bindArgs rewrites a []float32 or []float64 embedding argument into a
// pgvector.Vector so the driver binds it as a native vector value
// instead of failing to encode a bare Go slice; every other argument
// passes through unchanged.
func bindArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case []float32:
			out[i] = pgvector.NewVector(v)
		case []float64:
			f := make([]float32, len(v))
			for j, x := range v {
				f[j] = float32(x)
			}
			out[i] = pgvector.NewVector(f)
		default:
			out[i] = a
		}
	}
	return out
}

type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool         { return r.rows.Next() }
func (r *pgxRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *pgxRows) Err() error          { return r.rows.Err() }
func (r *pgxRows) Close() error        { r.rows.Close(); return nil }

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) QueryContext(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(ctx, sql, bindArgs(args)...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func (t *pgxTx) ExecContext(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, bindArgs(args)...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgxTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgxTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
