// Package engine orchestrates the query pipeline end to end: lex,
// parse, translate, plan-cache, execute, hydrate. It also exposes the
// direct node/edge/embedding write paths the Cypher surface sits on
// top of.
package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"

	"github.com/ivgraph/ivgraph/pkg/hydrate"
	"github.com/ivgraph/ivgraph/pkg/ivgerr"
	"github.com/ivgraph/ivgraph/pkg/metrics"
	"github.com/ivgraph/ivgraph/pkg/parser"
	"github.com/ivgraph/ivgraph/pkg/qcache"
	"github.com/ivgraph/ivgraph/pkg/sqlhost"
	"github.com/ivgraph/ivgraph/pkg/translator"
)

// Capabilities records which optional database features were probed
// and found present. Probes run once, lazily, the first time they are
// needed, and are cached for the lifetime of the Engine.
type Capabilities struct {
	VectorIndex bool
	TextIndex   bool
}

// Engine is the top-level entry point embedding callers use. It is
// safe for concurrent use.
type Engine struct {
	conn   sqlhost.Conn
	cfg    translator.Config
	cache  *qcache.Cache
	log    *zap.Logger
	metric *metrics.Registry

	capMu   sync.Mutex
	capOnce sync.Once
	caps    Capabilities
	capErr  error
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the default no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics attaches a metrics.Registry; calls are no-ops without one.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metric = m }
}

// WithPlanCache overrides the default-sized plan cache.
func WithPlanCache(c *qcache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// New builds an Engine bound to conn, the host all generated SQL runs
// against.
func New(conn sqlhost.Conn, cfg translator.Config, opts ...Option) (*Engine, error) {
	cache, err := qcache.New(qcache.DefaultSize)
	if err != nil {
		return nil, fmt.Errorf("engine: building plan cache: %w", err)
	}
	e := &Engine{
		conn:  conn,
		cfg:   cfg,
		cache: cache,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ExecuteCypher runs a Cypher query: compiling it (or reusing a
// cached plan) and hydrating the resulting rows.
func (e *Engine) ExecuteCypher(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	start := time.Now()
	plan, err := e.compile(query, params)
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	rows, err := e.conn.QueryContext(ctx, plan.SQL, plan.Params...)
	if err != nil {
		kind := ivgerr.Internal
		if ctx.Err() == context.DeadlineExceeded {
			kind = ivgerr.Timeout
		}
		wrapped := ivgerr.Wrap(kind, err, "executing query")
		e.recordError(wrapped)
		return nil, wrapped
	}
	defer rows.Close()

	result, err := hydrate.Rows(rows, plan)
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	if e.metric != nil {
		e.metric.ObserveQuery("ok", time.Since(start).Seconds())
		e.metric.ObserveRows("cypher", len(result))
	}
	e.log.Debug("executed cypher query", zap.Int("rows", len(result)), zap.Duration("duration", time.Since(start)))
	return result, nil
}

// Explain compiles query without executing it, returning the
// generated SQL and bound parameters for inspection.
func (e *Engine) Explain(query string, params map[string]any) (*translator.Plan, error) {
	return e.compile(query, params)
}

func (e *Engine) compile(query string, params map[string]any) (*translator.Plan, error) {
	// A Plan carries the parameter values bound at translation time, so
	// those values are part of the cache key along with the text.
	key := query
	if len(params) > 0 {
		key += "\x00" + fmt.Sprintf("%#v", params)
	}
	if plan, ok := e.cache.Get(key); ok {
		if e.metric != nil {
			e.metric.PlanCacheHits.Inc()
		}
		return plan, nil
	}
	if e.metric != nil {
		e.metric.PlanCacheMisses.Inc()
	}

	q, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	plan, err := translator.Translate(q, params, e.cfg)
	if err != nil {
		return nil, err
	}
	e.cache.Put(key, plan)
	return plan, nil
}

// probeCapabilities lazily determines whether the connected database
// exposes a vector index and a text index, caching the result.
// Both probes run concurrently via errgroup since neither depends on
// the other.
func (e *Engine) probeCapabilities(ctx context.Context) (Capabilities, error) {
	e.capOnce.Do(func() {
		eg, egCtx := errgroup.WithContext(ctx)
		var vectorOK, textOK bool

		eg.Go(func() error {
			ok, err := e.probeIndex(egCtx, "idx_kg_node_embeddings_vec")
			vectorOK = ok
			return err
		})
		eg.Go(func() error {
			ok, err := e.probeIndex(egCtx, "idx_docs_text")
			textOK = ok
			return err
		})

		e.capMu.Lock()
		defer e.capMu.Unlock()
		if err := eg.Wait(); err != nil {
			e.capErr = err
			return
		}
		e.caps = Capabilities{VectorIndex: vectorOK, TextIndex: textOK}
	})

	e.capMu.Lock()
	defer e.capMu.Unlock()
	return e.caps, e.capErr
}

func (e *Engine) probeIndex(ctx context.Context, indexName string) (bool, error) {
	rows, err := e.conn.QueryContext(ctx,
		"SELECT COUNT(*) FROM pg_indexes WHERE indexname = $1", indexName)
	if err != nil {
		return false, ivgerr.Wrap(ivgerr.Connection, err, "probing index capability")
	}
	defer rows.Close()
	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return false, ivgerr.Wrap(ivgerr.Internal, err, "scanning index probe result")
		}
	}
	return count > 0, nil
}

// Capabilities returns the cached capability probe result, running
// the probe on first call.
func (e *Engine) Capabilities(ctx context.Context) (Capabilities, error) {
	return e.probeCapabilities(ctx)
}

func (e *Engine) recordError(err error) {
	if e.metric != nil {
		e.metric.CountError(ivgerr.KindOf(err).String())
	}
	e.log.Warn("query failed", zap.Error(err))
}

// CreateNode inserts a new node identity row plus its labels and
// properties, returning the generated node id.
func (e *Engine) CreateNode(ctx context.Context, labels []string, properties map[string]any) (string, error) {
	id := uuid.NewString()

	writer := e.conn
	if beginner, ok := e.conn.(sqlhost.TxBeginner); ok {
		tx, err := beginner.BeginTx(ctx)
		if err != nil {
			return "", ivgerr.Wrap(ivgerr.Internal, err, "beginning node creation transaction")
		}
		defer tx.Rollback(ctx)
		if err := e.writeNode(ctx, tx, id, labels, properties); err != nil {
			return "", err
		}
		if err := tx.Commit(ctx); err != nil {
			return "", ivgerr.Wrap(ivgerr.Internal, err, "committing node creation")
		}
		return id, nil
	}

	if err := e.writeNode(ctx, writer, id, labels, properties); err != nil {
		return "", err
	}
	return id, nil
}

func (e *Engine) writeNode(ctx context.Context, conn sqlhost.Conn, id string, labels []string, properties map[string]any) error {
	if _, err := conn.ExecContext(ctx, "INSERT INTO nodes (node_id) VALUES ($1)", id); err != nil {
		return ivgerr.Wrap(ivgerr.Integrity, err, "inserting node identity")
	}
	for _, label := range labels {
		if _, err := conn.ExecContext(ctx, "INSERT INTO rdf_labels (s, label) VALUES ($1, $2)", id, label); err != nil {
			return ivgerr.Wrap(ivgerr.Integrity, err, "inserting node label")
		}
	}
	for key, val := range properties {
		if _, err := conn.ExecContext(ctx, "INSERT INTO rdf_props (s, key, val) VALUES ($1, $2, $3)", id, key, fmt.Sprintf("%v", val)); err != nil {
			return ivgerr.Wrap(ivgerr.Integrity, err, "inserting node property")
		}
	}
	return nil
}

// CreateEdge inserts a new relationship between two existing nodes.
func (e *Engine) CreateEdge(ctx context.Context, source, predicate, target string, qualifier string) (string, error) {
	id := uuid.NewString()
	if _, err := e.conn.ExecContext(ctx,
		"INSERT INTO rdf_edges (edge_id, s, p, o_id, qualifier) VALUES ($1, $2, $3, $4, $5)",
		id, source, predicate, target, qualifier); err != nil {
		return "", ivgerr.Wrap(ivgerr.Integrity, err, "inserting edge")
	}
	return id, nil
}

// StoreEmbedding upserts a node's vector embedding.
func (e *Engine) StoreEmbedding(ctx context.Context, nodeID string, vector []float32, meta string) error {
	if err := e.validateEmbedding(vector); err != nil {
		return err
	}
	if _, err := e.conn.ExecContext(ctx,
		"INSERT INTO kg_NodeEmbeddings (id, emb, meta) VALUES ($1, $2, $3) "+
			"ON CONFLICT (id) DO UPDATE SET emb = $2, meta = $3",
		nodeID, vector, meta); err != nil {
		return ivgerr.Wrap(ivgerr.Integrity, err, "storing embedding")
	}
	return nil
}

// EmbeddingItem is one (node, vector, metadata) tuple for a batch
// StoreEmbeddings call.
type EmbeddingItem struct {
	NodeID string
	Vector []float32
	Meta   string
}

// StoreEmbeddings upserts every item in a single transaction: any
// failure aborts the whole batch, leaving none of the embeddings
// written, rather than storing a partial prefix.
func (e *Engine) StoreEmbeddings(ctx context.Context, items []EmbeddingItem) error {
	for _, item := range items {
		if err := e.validateEmbedding(item.Vector); err != nil {
			return err
		}
	}
	if len(items) == 0 {
		return nil
	}

	beginner, ok := e.conn.(sqlhost.TxBeginner)
	if !ok {
		return ivgerr.New(ivgerr.Internal, "connection does not support transactions required for atomic batch store")
	}
	tx, err := beginner.BeginTx(ctx)
	if err != nil {
		return ivgerr.Wrap(ivgerr.Internal, err, "beginning batch embedding transaction")
	}
	defer tx.Rollback(ctx)

	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO kg_NodeEmbeddings (id, emb, meta) VALUES ($1, $2, $3) "+
				"ON CONFLICT (id) DO UPDATE SET emb = $2, meta = $3",
			item.NodeID, item.Vector, item.Meta); err != nil {
			return ivgerr.Wrap(ivgerr.Integrity, err, "storing embedding in batch")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ivgerr.Wrap(ivgerr.Internal, err, "committing batch embedding store")
	}
	return nil
}

func (e *Engine) validateEmbedding(vector []float32) error {
	if len(vector) != e.cfg.EmbeddingDimension {
		return ivgerr.Newf(ivgerr.Dimension,
			"embedding has %d dimensions, expected %d", len(vector), e.cfg.EmbeddingDimension)
	}
	return nil
}

// GetNode loads a single node's labels and properties.
func (e *Engine) GetNode(ctx context.Context, id string) (map[string]any, error) {
	nodes, err := e.GetNodes(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ivgerr.Newf(ivgerr.Internal, "node %s not found", id)
	}
	return nodes[0], nil
}

// GetNodes batch-loads labels and properties for several node ids,
// issuing one label query and one property query total rather than
// one pair per id.
func (e *Engine) GetNodes(ctx context.Context, ids []string) ([]map[string]any, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	existing, err := e.batchExists(ctx, ids)
	if err != nil {
		return nil, err
	}
	labels, err := e.batchLabels(ctx, ids)
	if err != nil {
		return nil, err
	}
	props, err := e.batchProps(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		if !existing[id] {
			continue
		}
		out = append(out, map[string]any{
			"id":     id,
			"labels": labels[id],
			"props":  props[id],
		})
	}
	return out, nil
}

func (e *Engine) batchExists(ctx context.Context, ids []string) (map[string]bool, error) {
	placeholders, args := inClause(ids)
	rows, err := e.conn.QueryContext(ctx, "SELECT node_id FROM nodes WHERE node_id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, ivgerr.Wrap(ivgerr.Internal, err, "checking node existence")
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ivgerr.Wrap(ivgerr.Internal, err, "scanning existing node id")
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (e *Engine) batchLabels(ctx context.Context, ids []string) (map[string][]string, error) {
	placeholders, args := inClause(ids)
	rows, err := e.conn.QueryContext(ctx, "SELECT s, label FROM rdf_labels WHERE s IN ("+placeholders+")", args...)
	if err != nil {
		return nil, ivgerr.Wrap(ivgerr.Internal, err, "loading node labels")
	}
	defer rows.Close()
	out := map[string][]string{}
	for rows.Next() {
		var s, label string
		if err := rows.Scan(&s, &label); err != nil {
			return nil, ivgerr.Wrap(ivgerr.Internal, err, "scanning node label")
		}
		out[s] = append(out[s], label)
	}
	return out, rows.Err()
}

func (e *Engine) batchProps(ctx context.Context, ids []string) (map[string]map[string]any, error) {
	placeholders, args := inClause(ids)
	rows, err := e.conn.QueryContext(ctx, "SELECT s, key, val FROM rdf_props WHERE s IN ("+placeholders+")", args...)
	if err != nil {
		return nil, ivgerr.Wrap(ivgerr.Internal, err, "loading node properties")
	}
	defer rows.Close()
	out := map[string]map[string]any{}
	for rows.Next() {
		var s, key, val string
		if err := rows.Scan(&s, &key, &val); err != nil {
			return nil, ivgerr.Wrap(ivgerr.Internal, err, "scanning node property")
		}
		if out[s] == nil {
			out[s] = map[string]any{}
		}
		out[s][key] = val
	}
	return out, rows.Err()
}

func inClause(ids []string) (string, []any) {
	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "$" + strconv.Itoa(i+1)
		args[i] = id
	}
	return placeholders, args
}
