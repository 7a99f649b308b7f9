package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivgraph/ivgraph/pkg/ast"
)

func TestParseSimpleMatchReturn(t *testing.T) {
	q, err := Parse(`MATCH (n:Protein) RETURN n.id`)
	require.NoError(t, err)
	require.NotNil(t, q.Match)
	require.Len(t, q.Match.Patterns, 1)
	require.Len(t, q.Match.Patterns[0].Nodes, 1)
	assert.Equal(t, []string{"Protein"}, q.Match.Patterns[0].Nodes[0].Labels)
	require.Len(t, q.Return.Items, 1)
	assert.Equal(t, ast.ExprProperty, q.Return.Items[0].Expr.Kind)
	assert.Equal(t, "id", q.Return.Items[0].Expr.PropName)
}

func TestParseRelationshipPatternWithDirection(t *testing.T) {
	q, err := Parse(`MATCH (a)-[:INTERACTS]->(b) RETURN a.id, b.id`)
	require.NoError(t, err)
	pat := q.Match.Patterns[0]
	require.Len(t, pat.Rels, 1)
	assert.Equal(t, ast.Outgoing, pat.Rels[0].Direction)
	assert.Equal(t, []string{"INTERACTS"}, pat.Rels[0].Types)
}

func TestParseVariableLengthRelationship(t *testing.T) {
	q, err := Parse(`MATCH (a)-[:LINK*1..3]->(b) RETURN a.id`)
	require.NoError(t, err)
	rel := q.Match.Patterns[0].Rels[0]
	require.NotNil(t, rel.MinHops)
	require.NotNil(t, rel.MaxHops)
	assert.Equal(t, int64(1), *rel.MinHops)
	assert.Equal(t, int64(3), *rel.MaxHops)
}

func TestParseWhereWithAndOrNot(t *testing.T) {
	q, err := Parse(`MATCH (n) WHERE n.age > 10 AND NOT n.banned = true RETURN n.id`)
	require.NoError(t, err)
	require.NotNil(t, q.Where)
	assert.Equal(t, ast.ExprBinary, q.Where.Expr.Kind)
	assert.Equal(t, "AND", q.Where.Expr.Op)
}

func TestParseWhereStringOps(t *testing.T) {
	for _, src := range []string{
		`MATCH (n) WHERE n.name CONTAINS 'foo' RETURN n.id`,
		`MATCH (n) WHERE n.name STARTS WITH 'foo' RETURN n.id`,
		`MATCH (n) WHERE n.name ENDS WITH 'foo' RETURN n.id`,
	} {
		q, err := Parse(src)
		require.NoError(t, err, src)
		require.NotNil(t, q.Where, src)
	}
}

func TestParseOrderBySkipLimit(t *testing.T) {
	q, err := Parse(`MATCH (n) RETURN n.id ORDER BY n.score DESC SKIP 5 LIMIT 10`)
	require.NoError(t, err)
	require.NotNil(t, q.OrderBy)
	assert.True(t, q.OrderBy.Items[0].Descending)
	require.NotNil(t, q.Skip)
	assert.Equal(t, int64(5), *q.Skip)
	require.NotNil(t, q.Limit)
	assert.Equal(t, int64(10), *q.Limit)
}

func TestParseCallYieldWithOptions(t *testing.T) {
	q, err := Parse(`CALL ivg.vector.search('Protein', 'embedding', $v, 5, {similarity: 'dot_product'}) YIELD node, score MATCH (node) RETURN node.id, score`)
	require.NoError(t, err)
	require.NotNil(t, q.Call)
	assert.Equal(t, "ivg.vector.search", q.Call.Procedure)
	assert.Equal(t, []string{"node", "score"}, q.Call.Yield)
	sim, ok := q.Call.Options["similarity"]
	require.True(t, ok)
	assert.Equal(t, "dot_product", sim.Literal)
}

func TestParseFunctionCallsInReturn(t *testing.T) {
	q, err := Parse(`MATCH (n) RETURN labels(n), properties(n), count(n) AS total`)
	require.NoError(t, err)
	require.Len(t, q.Return.Items, 3)
	assert.Equal(t, ast.ExprFunctionCall, q.Return.Items[0].Expr.Kind)
	assert.Equal(t, "labels", q.Return.Items[0].Expr.FuncName)
	assert.Equal(t, "total", q.Return.Items[2].Alias)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse(`MATCH (n) RETURN n.id GARBAGE HERE`)
	require.Error(t, err)
}

func TestParseRejectsMissingReturn(t *testing.T) {
	_, err := Parse(`MATCH (n)`)
	require.Error(t, err)
}

func TestParseNodePropertyMap(t *testing.T) {
	q, err := Parse(`MATCH (n:Protein {name: 'p53'}) RETURN n.id`)
	require.NoError(t, err)
	props := q.Match.Patterns[0].Nodes[0].Properties
	require.Contains(t, props, "name")
	assert.Equal(t, "p53", props["name"].Literal)
}

func TestParseUndirectedAndIncomingRelationships(t *testing.T) {
	q, err := Parse(`MATCH (a)-[:T]-(b) RETURN a.id`)
	require.NoError(t, err)
	assert.Equal(t, ast.Either, q.Match.Patterns[0].Rels[0].Direction)

	q2, err := Parse(`MATCH (a)<-[:T]-(b) RETURN a.id`)
	require.NoError(t, err)
	assert.Equal(t, ast.Incoming, q2.Match.Patterns[0].Rels[0].Direction)
}
