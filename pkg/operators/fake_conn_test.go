package operators

import (
	"context"
	"strings"

	"github.com/ivgraph/ivgraph/pkg/sqlhost"
)

// fakeEdgeConn is a minimal in-memory sqlhost.Conn backing just the
// two query shapes the BFS and PPR operators issue against rdf_edges:
// a full scan, and a `WHERE s = $1` (optionally `AND p = $2`) scan. It
// exists only to exercise those operators without a real database.
type fakeEdgeConn struct {
	rows [][3]string // s, p, o
}

func (f *fakeEdgeConn) QueryContext(ctx context.Context, sql string, args ...any) (sqlhost.Rows, error) {
	var out [][2]string // p, o  (or s, o for the full-scan shape)
	switch {
	case strings.Contains(sql, "WHERE s = $1 AND p = $2"):
		s, p := args[0].(string), args[1].(string)
		for _, r := range f.rows {
			if r[0] == s && r[1] == p {
				out = append(out, [2]string{r[1], r[2]})
			}
		}
	case strings.Contains(sql, "WHERE s = $1"):
		s := args[0].(string)
		for _, r := range f.rows {
			if r[0] == s {
				out = append(out, [2]string{r[1], r[2]})
			}
		}
	default:
		for _, r := range f.rows {
			out = append(out, [2]string{r[0], r[2]})
		}
	}
	return &fakeRows{data: out}, nil
}

func (f *fakeEdgeConn) ExecContext(ctx context.Context, sql string, args ...any) (int64, error) {
	return 0, nil
}

type fakeRows struct {
	data [][2]string
	pos  int
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	*dest[0].(*string) = row[0]
	*dest[1].(*string) = row[1]
	return nil
}

func (r *fakeRows) Err() error   { return nil }
func (r *fakeRows) Close() error { return nil }
