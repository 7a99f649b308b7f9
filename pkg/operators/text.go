package operators

import (
	"context"

	"github.com/ivgraph/ivgraph/pkg/ivgerr"
	"github.com/ivgraph/ivgraph/pkg/sqlhost"
	"github.com/ivgraph/ivgraph/pkg/validator"
)

// ScoredText is one (id, score) result from the BM25 text operator.
type ScoredText struct {
	ID    string
	Score float64
}

// Text runs the `kg_TXT` full-text operator over the docs table, using
// Postgres's native to_tsvector/plainto_tsquery/ts_rank_cd in place of
// the %SCORE/%CONTAINS predicates. k is bound as a trailing LIMIT,
// never interpolated.
func Text(ctx context.Context, conn sqlhost.Conn, query string, k int) ([]ScoredText, error) {
	k, err := validator.CoerceK(k)
	if err != nil {
		return nil, err
	}

	sql := `SELECT id, ts_rank_cd(to_tsvector('english', text), plainto_tsquery('english', $1)) AS score
FROM docs
WHERE to_tsvector('english', text) @@ plainto_tsquery('english', $1)
ORDER BY score DESC
LIMIT $2`
	rows, err := conn.QueryContext(ctx, sql, query, k)
	if err != nil {
		return nil, ivgerr.Wrap(ivgerr.Connection, err, "kg_TXT query failed")
	}
	defer rows.Close()

	var out []ScoredText
	for rows.Next() {
		var st ScoredText
		if err := rows.Scan(&st.ID, &st.Score); err != nil {
			return nil, ivgerr.Wrap(ivgerr.Internal, err, "scanning text-search row")
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
