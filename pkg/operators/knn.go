// Package operators implements the hybrid retrieval operators callable
// directly from the engine: KNN vector search, BM25 text search,
// Reciprocal Rank Fusion, Personalised PageRank, and BFS traversal.
package operators

import (
	"context"
	"fmt"

	"github.com/ivgraph/ivgraph/pkg/ivgerr"
	"github.com/ivgraph/ivgraph/pkg/sqlhost"
	"github.com/ivgraph/ivgraph/pkg/validator"
)

// ScoredNode is one (node_id, score) result shared by KNN and fusion.
type ScoredNode struct {
	NodeID string
	Score  float64
}

// KNN runs the `kg_KNN_VEC` top-k cosine/dot-product vector search,
// optionally restricted to a label, entirely through bound parameters.
func KNN(ctx context.Context, conn sqlhost.Conn, queryVector any, label string, k int, similarity string) ([]ScoredNode, error) {
	k, err := validator.CoerceK(k)
	if err != nil {
		return nil, err
	}
	similarity, err = validator.Similarity(similarity)
	if err != nil {
		return nil, err
	}
	// pgvector exposes distance, not similarity: <=> is cosine distance
	// (score = 1 - distance) and <#> is negative inner product
	// (score = -(e.emb <#> $N)).
	scoreExpr := "1 - (e.emb <=> $1)"
	if similarity == "dot_product" {
		scoreExpr = "-(e.emb <#> $1)"
	}

	var sql string
	var args []any
	if label != "" {
		if err := validator.Label(label); err != nil {
			return nil, err
		}
		sql = fmt.Sprintf(`SELECT n.node_id, %s AS score
FROM nodes n
JOIN rdf_labels l ON l.s = n.node_id AND l.label = $2
JOIN kg_NodeEmbeddings e ON e.id = n.node_id
ORDER BY score DESC
LIMIT $3`, scoreExpr)
		args = []any{queryVector, label, k}
	} else {
		sql = fmt.Sprintf(`SELECT n.node_id, %s AS score
FROM nodes n
JOIN kg_NodeEmbeddings e ON e.id = n.node_id
ORDER BY score DESC
LIMIT $2`, scoreExpr)
		args = []any{queryVector, k}
	}

	rows, err := conn.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, ivgerr.Wrap(ivgerr.Connection, err, "kg_KNN_VEC query failed")
	}
	defer rows.Close()

	var out []ScoredNode
	for rows.Next() {
		var sn ScoredNode
		if err := rows.Scan(&sn.NodeID, &sn.Score); err != nil {
			return nil, ivgerr.Wrap(ivgerr.Internal, err, "scanning KNN row")
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}
