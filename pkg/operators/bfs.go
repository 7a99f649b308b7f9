package operators

import (
	"context"

	"github.com/ivgraph/ivgraph/pkg/ivgerr"
	"github.com/ivgraph/ivgraph/pkg/sqlhost"
)

// Step is one edge traversed by BFS, in the order it was first
// discovered.
type Step struct {
	ID   int64 // sequential step identifier
	Hop  int
	S    string
	P    string
	O    string
}

// BFS is `Traversal.BFS_JSON`: breadth-first traversal from start,
// optionally constrained to one predicate per hop (len(predicates) ==
// maxHops), otherwise any predicate at every hop. A seen-set of
// (s,p,o) triples prevents the same edge from being re-emitted if a
// cycle brings the frontier back to it.
func BFS(ctx context.Context, conn sqlhost.Conn, start string, predicates []string, maxHops int) ([]Step, error) {
	if start == "" || maxHops <= 0 {
		return nil, nil
	}

	type frontierNode struct {
		id  string
		hop int
	}
	frontier := []frontierNode{{id: start, hop: 0}}
	visitedNodes := map[string]bool{start: true}
	seenEdges := map[string]bool{}
	var out []Step
	var stepID int64

	for len(frontier) > 0 {
		var nextFrontier []frontierNode
		for _, fn := range frontier {
			if fn.hop >= maxHops {
				continue
			}
			var predicate string
			anyPredicate := true
			if len(predicates) > 0 {
				if fn.hop >= len(predicates) {
					continue
				}
				predicate = predicates[fn.hop]
				anyPredicate = false
			}

			rows, err := queryOutgoing(ctx, conn, fn.id, predicate, anyPredicate)
			if err != nil {
				return nil, err
			}
			for _, edgeRow := range rows {
				key := fn.id + "|" + edgeRow.p + "|" + edgeRow.o
				if seenEdges[key] {
					continue
				}
				seenEdges[key] = true
				stepID++
				out = append(out, Step{ID: stepID, Hop: fn.hop + 1, S: fn.id, P: edgeRow.p, O: edgeRow.o})
				if !visitedNodes[edgeRow.o] {
					visitedNodes[edgeRow.o] = true
					nextFrontier = append(nextFrontier, frontierNode{id: edgeRow.o, hop: fn.hop + 1})
				}
			}
		}
		frontier = nextFrontier
	}
	return out, nil
}

type outgoingEdge struct{ p, o string }

func queryOutgoing(ctx context.Context, conn sqlhost.Conn, nodeID, predicate string, anyPredicate bool) ([]outgoingEdge, error) {
	var rows sqlhost.Rows
	var err error
	if anyPredicate {
		rows, err = conn.QueryContext(ctx, `SELECT p, o_id FROM rdf_edges WHERE s = $1`, nodeID)
	} else {
		rows, err = conn.QueryContext(ctx, `SELECT p, o_id FROM rdf_edges WHERE s = $1 AND p = $2`, nodeID, predicate)
	}
	if err != nil {
		return nil, ivgerr.Wrap(ivgerr.Connection, err, "BFS_JSON edge lookup failed")
	}
	defer rows.Close()

	var out []outgoingEdge
	for rows.Next() {
		var p, o string
		if err := rows.Scan(&p, &o); err != nil {
			return nil, ivgerr.Wrap(ivgerr.Internal, err, "scanning BFS edge row")
		}
		out = append(out, outgoingEdge{p: p, o: o})
	}
	return out, rows.Err()
}
