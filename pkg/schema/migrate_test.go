package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivgraph/ivgraph/pkg/sqlhost"
)

// fakeNodeConn is a minimal in-memory sqlhost.Conn standing in for the
// handful of statement shapes MigrateNodeIdentity issues: the
// "SELECT DISTINCT <col> FROM <table>" discovery scans, the
// node-count check, the backfill insert, and the FK ALTER TABLE
// statements.
type fakeNodeConn struct {
	discovered map[string][]string // "table.column" -> ids
	nodes      map[string]bool
	alreadyFK  bool
}

func newFakeNodeConn() *fakeNodeConn {
	return &fakeNodeConn{
		discovered: map[string][]string{},
		nodes:      map[string]bool{},
	}
}

func (f *fakeNodeConn) QueryContext(ctx context.Context, sql string, args ...any) (sqlhost.Rows, error) {
	if contains(sql, "COUNT(*)") {
		return &countRows{n: len(f.nodes)}, nil
	}
	for key, ids := range f.discovered {
		if contains(sql, key) {
			return &idRows{ids: ids}, nil
		}
	}
	return &idRows{}, nil
}

func (f *fakeNodeConn) ExecContext(ctx context.Context, sqlText string, args ...any) (int64, error) {
	if contains(sqlText, "INSERT INTO nodes") {
		f.nodes[args[0].(string)] = true
		return 1, nil
	}
	if contains(sqlText, "ADD CONSTRAINT") {
		if f.alreadyFK {
			return 0, assertAlreadyExistsErr{}
		}
		return 0, nil
	}
	return 0, nil
}

type assertAlreadyExistsErr struct{}

func (assertAlreadyExistsErr) Error() string { return "constraint already exists" }

type idRows struct {
	ids []string
	pos int
}

func (r *idRows) Next() bool {
	if r.pos >= len(r.ids) {
		return false
	}
	r.pos++
	return true
}
func (r *idRows) Scan(dest ...any) error {
	*dest[0].(*string) = r.ids[r.pos-1]
	return nil
}
func (r *idRows) Err() error   { return nil }
func (r *idRows) Close() error { return nil }

type countRows struct {
	n    int
	read bool
}

func (r *countRows) Next() bool {
	if r.read {
		return false
	}
	r.read = true
	return true
}
func (r *countRows) Scan(dest ...any) error {
	*dest[0].(*int) = r.n
	return nil
}
func (r *countRows) Err() error   { return nil }
func (r *countRows) Close() error { return nil }

func TestMigrateNodeIdentityBackfillsFromAllDependents(t *testing.T) {
	conn := newFakeNodeConn()
	conn.discovered["DISTINCT s FROM rdf_labels"] = []string{"A", "B"}
	conn.discovered["DISTINCT s FROM rdf_props"] = []string{"B", "C"}
	conn.discovered["DISTINCT s FROM rdf_edges"] = []string{"A"}
	conn.discovered["DISTINCT o_id FROM rdf_edges"] = []string{"D"}
	conn.discovered["DISTINCT id FROM kg_NodeEmbeddings"] = []string{"E"}

	err := MigrateNodeIdentity(context.Background(), conn)
	require.NoError(t, err)
	assert.Len(t, conn.nodes, 5)
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		assert.True(t, conn.nodes[id], "expected %s to be backfilled", id)
	}
}

func TestMigrateNodeIdentityIsIdempotent(t *testing.T) {
	conn := newFakeNodeConn()
	conn.discovered["DISTINCT s FROM rdf_labels"] = []string{"A"}
	conn.alreadyFK = true

	err := MigrateNodeIdentity(context.Background(), conn)
	require.NoError(t, err)
}

func TestMigrateNodeIdentityEmptyGraphIsNoOp(t *testing.T) {
	conn := newFakeNodeConn()
	err := MigrateNodeIdentity(context.Background(), conn)
	require.NoError(t, err)
	assert.Empty(t, conn.nodes)
}
