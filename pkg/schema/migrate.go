// Package schema owns the `nodes` identity table and its dependents:
// idempotent table/index creation via goose migrations, and the
// NodePK data migration that discovers pre-existing node identifiers
// and backfills `nodes` before foreign keys are enabled.
package schema

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/ivgraph/ivgraph/pkg/ivgerr"
	"github.com/ivgraph/ivgraph/pkg/sqlhost"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrator runs the embedded goose migrations against db. Running Up
// twice against an already-migrated database is a no-op: goose tracks
// applied versions in its own bookkeeping table.
type Migrator struct {
	db  *sql.DB
	log *zap.Logger
}

// NewMigrator constructs a Migrator. log may be nil (defaults to a
// no-op logger).
func NewMigrator(db *sql.DB, log *zap.Logger) (*Migrator, error) {
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("schema: setting goose dialect: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Migrator{db: db, log: log}, nil
}

// Up applies every pending migration under migrations/.
func (m *Migrator) Up(ctx context.Context) error {
	if err := goose.UpContext(ctx, m.db, "migrations"); err != nil {
		return ivgerr.Wrap(ivgerr.Internal, err, "applying schema migrations")
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := goose.DownContext(ctx, m.db, "migrations"); err != nil {
		return ivgerr.Wrap(ivgerr.Internal, err, "rolling back schema migration")
	}
	return nil
}

// dependentTables lists, for the NodePK discovery union, every table
// and column that holds a node-identifier value.
var dependentTables = []struct {
	table  string
	column string
}{
	{"rdf_labels", "s"},
	{"rdf_props", "s"},
	{"rdf_edges", "s"},
	{"rdf_edges", "o_id"},
	{"kg_NodeEmbeddings", "id"},
}

// MigrateNodeIdentity implements the NodePK algorithm: discover every
// node identifier already referenced by a dependent table, insert any
// missing ones into `nodes`, validate that `nodes` holds at least the
// distinct-id count, then enable the foreign keys. Re-running against
// an already-migrated database is a no-op — the INSERT is
// duplicate-tolerant and the ALTER TABLE ADD CONSTRAINT calls are
// still issued, with an "already exists" error treated as success.
func MigrateNodeIdentity(ctx context.Context, conn sqlhost.Conn) error {
	discovered := map[string]bool{}
	for _, dep := range dependentTables {
		rows, err := conn.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT %s FROM %s", dep.column, dep.table))
		if err != nil {
			return ivgerr.Wrap(ivgerr.Internal, err, fmt.Sprintf("discovering node ids from %s.%s", dep.table, dep.column))
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return ivgerr.Wrap(ivgerr.Internal, err, "scanning discovered node id")
			}
			discovered[id] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return ivgerr.Wrap(ivgerr.Internal, err, "iterating discovered node ids")
		}
		rows.Close()
	}

	for id := range discovered {
		if _, err := conn.ExecContext(ctx,
			"INSERT INTO nodes (node_id) VALUES ($1) ON CONFLICT (node_id) DO NOTHING", id); err != nil {
			return ivgerr.Wrap(ivgerr.Integrity, err, "backfilling nodes table")
		}
	}

	if err := validateNodeCount(ctx, conn, len(discovered)); err != nil {
		return err
	}

	if err := enableForeignKeys(ctx, conn); err != nil {
		return err
	}
	return nil
}

func validateNodeCount(ctx context.Context, conn sqlhost.Conn, expectedDistinct int) error {
	rows, err := conn.QueryContext(ctx, "SELECT COUNT(*) FROM nodes")
	if err != nil {
		return ivgerr.Wrap(ivgerr.Internal, err, "counting nodes")
	}
	defer rows.Close()
	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return ivgerr.Wrap(ivgerr.Internal, err, "scanning node count")
		}
	}
	if count < expectedDistinct {
		return ivgerr.Newf(ivgerr.Integrity,
			"node identity migration incomplete: nodes has %d rows, expected at least %d distinct ids", count, expectedDistinct)
	}
	return nil
}

// fkStatements enables RESTRICT-on-delete foreign keys from every
// dependent table to nodes(node_id). Each statement is best-effort:
// a constraint that already exists is not an error.
var fkStatements = []string{
	"ALTER TABLE rdf_labels ADD CONSTRAINT fk_rdf_labels_node FOREIGN KEY (s) REFERENCES nodes(node_id) ON DELETE RESTRICT",
	"ALTER TABLE rdf_props ADD CONSTRAINT fk_rdf_props_node FOREIGN KEY (s) REFERENCES nodes(node_id) ON DELETE RESTRICT",
	"ALTER TABLE rdf_edges ADD CONSTRAINT fk_rdf_edges_s FOREIGN KEY (s) REFERENCES nodes(node_id) ON DELETE RESTRICT",
	"ALTER TABLE rdf_edges ADD CONSTRAINT fk_rdf_edges_o FOREIGN KEY (o_id) REFERENCES nodes(node_id) ON DELETE RESTRICT",
	"ALTER TABLE kg_NodeEmbeddings ADD CONSTRAINT fk_kg_node_embeddings_node FOREIGN KEY (id) REFERENCES nodes(node_id) ON DELETE RESTRICT",
}

func enableForeignKeys(ctx context.Context, conn sqlhost.Conn) error {
	for _, stmt := range fkStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			// A constraint that already exists (idempotent re-run) is not
			// a failure; any other error is.
			if isAlreadyExists(err) {
				continue
			}
			return ivgerr.Wrap(ivgerr.Internal, err, "enabling node identity foreign key")
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	// Host-specific "constraint already exists" errors vary by driver;
	// callers that need precise detection should wrap their sqlhost.Conn
	// to classify this themselves. Conservatively treating unknown
	// errors as real failures is safer than silently swallowing them,
	// so this only recognises the common Postgres/pgx wording.
	msg := err.Error()
	return contains(msg, "already exists")
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
