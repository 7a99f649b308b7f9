package operators

import (
	"context"

	"github.com/ivgraph/ivgraph/pkg/ivgerr"
	"github.com/ivgraph/ivgraph/pkg/sqlhost"
)

// PPRConfig holds the convergence parameters named in the resource
// model: damping factor, convergence epsilon, and iteration ceiling.
type PPRConfig struct {
	Damping       float64
	Eps           float64
	MaxIters      int
	Bidirectional bool
}

// DefaultPPRConfig returns damping 0.85, eps 1e-4, 100 max iterations.
func DefaultPPRConfig() PPRConfig {
	return PPRConfig{Damping: 0.85, Eps: 1e-4, MaxIters: 100}
}

type edge struct{ src, dst string }

// PPR runs `kg_PERSONALIZED_PAGERANK`: power iteration over the graph
// induced by rdf_edges, seeded uniformly over seeds, with teleport
// probability (1-damping) returning to the seed set rather than to the
// whole graph (the "personalised" part of PageRank). Adjacency is
// loaded once per call; very large graphs should batch this, but the
// iteration algorithm itself is identical either way.
func PPR(ctx context.Context, conn sqlhost.Conn, seeds []string, cfg PPRConfig) (map[string]float64, error) {
	if len(seeds) == 0 {
		return map[string]float64{}, nil
	}

	edges, nodes, err := loadGraph(ctx, conn, cfg.Bidirectional)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return map[string]float64{}, nil
	}

	outDegree := map[string]int{}
	incoming := map[string][]string{}
	for _, e := range edges {
		outDegree[e.src]++
		incoming[e.dst] = append(incoming[e.dst], e.src)
	}

	seedSet := map[string]bool{}
	for _, s := range seeds {
		seedSet[s] = true
	}
	teleport := make(map[string]float64, len(seedSet))
	for n := range nodes {
		if seedSet[n] {
			teleport[n] = 1.0 / float64(len(seedSet))
		}
	}

	scores := make(map[string]float64, len(nodes))
	for n := range nodes {
		scores[n] = teleport[n]
	}

	for iter := 0; iter < cfg.MaxIters; iter++ {
		next := make(map[string]float64, len(nodes))
		for n := range nodes {
			next[n] = (1 - cfg.Damping) * teleport[n]
		}
		// Dangling mass (nodes with no outgoing edges) redistributes
		// over the teleport set rather than vanishing.
		var dangling float64
		for n := range nodes {
			if outDegree[n] == 0 {
				dangling += scores[n]
			}
		}
		for n := range nodes {
			next[n] += cfg.Damping * dangling * teleport[n]
			for _, src := range incoming[n] {
				if outDegree[src] > 0 {
					next[n] += cfg.Damping * scores[src] / float64(outDegree[src])
				}
			}
		}

		delta := 0.0
		for n := range nodes {
			d := next[n] - scores[n]
			if d < 0 {
				d = -d
			}
			if d > delta {
				delta = d
			}
		}
		scores = next
		if delta < cfg.Eps {
			break
		}
	}

	return scores, nil
}

func loadGraph(ctx context.Context, conn sqlhost.Conn, bidirectional bool) ([]edge, map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT s, o_id FROM rdf_edges`)
	if err != nil {
		return nil, nil, ivgerr.Wrap(ivgerr.Connection, err, "loading edges for personalized pagerank")
	}
	defer rows.Close()

	var edges []edge
	nodes := map[string]bool{}
	for rows.Next() {
		var s, o string
		if err := rows.Scan(&s, &o); err != nil {
			return nil, nil, ivgerr.Wrap(ivgerr.Internal, err, "scanning edge row")
		}
		edges = append(edges, edge{src: s, dst: o})
		nodes[s] = true
		nodes[o] = true
		if bidirectional {
			edges = append(edges, edge{src: o, dst: s})
		}
	}
	return edges, nodes, rows.Err()
}
