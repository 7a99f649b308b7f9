package translator

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivgraph/ivgraph/pkg/ivgerr"
	"github.com/ivgraph/ivgraph/pkg/parser"
)

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

func TestTranslateSimpleMatchReturn(t *testing.T) {
	q, err := parser.Parse(`MATCH (n:Protein) RETURN n.id`)
	require.NoError(t, err)

	plan, err := Translate(q, nil, DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, plan.SQL, "nodes n0")
	assert.Contains(t, plan.SQL, "rdf_labels")
	require.Len(t, plan.Columns, 1)
	assert.Equal(t, ColNodeID, plan.Columns[0].Kind)
	assert.Contains(t, plan.Params, "Protein")
}

func TestTranslateParamCountMatchesPlaceholders(t *testing.T) {
	q, err := parser.Parse(`MATCH (n:Protein {status: 'active'}) WHERE n.age > 10 RETURN n.id ORDER BY n.score DESC LIMIT 5`)
	require.NoError(t, err)
	plan, err := Translate(q, nil, DefaultConfig())
	require.NoError(t, err)

	// Placeholder text can be reused verbatim in more than one place in
	// the generated SQL (recursive CTE branches, ORDER BY sampling), so
	// the invariant is against the distinct $N numbers present, not the
	// raw occurrence count.
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(plan.SQL, -1) {
		seen[m[1]] = true
	}
	assert.Equal(t, len(plan.Params), len(seen))
}

func TestTranslateDeterministic(t *testing.T) {
	q1, err := parser.Parse(`MATCH (n:Protein) RETURN n.id`)
	require.NoError(t, err)
	q2, err := parser.Parse(`MATCH (n:Protein) RETURN n.id`)
	require.NoError(t, err)

	p1, err := Translate(q1, nil, DefaultConfig())
	require.NoError(t, err)
	p2, err := Translate(q2, nil, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, p1.SQL, p2.SQL)
}

func TestTranslateVectorSearchCall(t *testing.T) {
	q, err := parser.Parse(`CALL ivg.vector.search('Protein', 'embedding', $v, 2) YIELD node, score RETURN node.id, score`)
	require.NoError(t, err)

	params := map[string]any{"v": []float32{1, 0, 0}}
	plan, err := Translate(q, params, DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, plan.SQL, "VecSearch AS")
	assert.Contains(t, plan.SQL, "<=>")
	assert.Contains(t, plan.SQL, "LIMIT")
	assert.Contains(t, plan.Params, 2)
}

func TestTranslateVectorSearchComposedWithMatch(t *testing.T) {
	q, err := parser.Parse(`CALL ivg.vector.search('Protein', 'embedding', $v, 2) YIELD node, score MATCH (node)-[:INTERACTS]->(p) RETURN node.id, p.id`)
	require.NoError(t, err)

	params := map[string]any{"v": []float32{1, 0, 0}}
	plan, err := Translate(q, params, DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, plan.SQL, "rdf_edges")
	assert.Contains(t, plan.Params, "INTERACTS")
}

func TestTranslateDotProductSimilarityOption(t *testing.T) {
	q, err := parser.Parse(`CALL ivg.vector.search('Protein', 'embedding', $v, 2, {similarity: 'dot_product'}) YIELD node, score RETURN node.id`)
	require.NoError(t, err)
	params := map[string]any{"v": []float32{1, 0, 0}}
	plan, err := Translate(q, params, DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, plan.SQL, "<#>")
}

func TestTranslateInvalidSimilarityRejected(t *testing.T) {
	q, err := parser.Parse(`CALL ivg.vector.search('Protein', 'embedding', $v, 2, {similarity: 'euclidean'}) YIELD node, score RETURN node.id`)
	require.NoError(t, err)
	params := map[string]any{"v": []float32{1, 0, 0}}
	_, err = Translate(q, params, DefaultConfig())
	require.Error(t, err)
	assert.True(t, ivgerr.Is(err, ivgerr.Validation))
}

func TestTranslateTextQueryInputRequiresEmbeddingConfig(t *testing.T) {
	q, err := parser.Parse(`CALL ivg.vector.search('Protein', 'embedding', $v, 2) YIELD node, score RETURN node.id`)
	require.NoError(t, err)
	params := map[string]any{"v": "malaria"}
	_, err = Translate(q, params, DefaultConfig())
	require.Error(t, err)
	assert.True(t, ivgerr.Is(err, ivgerr.Validation))
}

func TestTranslateVariableLengthRelationship(t *testing.T) {
	q, err := parser.Parse(`MATCH (a)-[:LINK*1..3]->(b) RETURN a.id, b.id`)
	require.NoError(t, err)
	plan, err := Translate(q, nil, DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, plan.SQL, "UNION ALL")
	assert.Contains(t, plan.Params, int64(3))
}

func TestTranslateVariableLengthRelationshipRejectsUnbounded(t *testing.T) {
	q, err := parser.Parse(`MATCH (a)-[:LINK*]->(b) RETURN a.id`)
	require.NoError(t, err)
	_, err = Translate(q, nil, DefaultConfig())
	require.Error(t, err)
	assert.True(t, ivgerr.Is(err, ivgerr.Validation))
}

func TestTranslateLabelsAndPropertiesFunctions(t *testing.T) {
	q, err := parser.Parse(`MATCH (n) RETURN labels(n), properties(n)`)
	require.NoError(t, err)
	plan, err := Translate(q, nil, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, ColLabelsJSON, plan.Columns[0].Kind)
	assert.Equal(t, ColPropertiesJSON, plan.Columns[1].Kind)
	assert.Contains(t, plan.SQL, "json_agg")
	assert.Contains(t, plan.SQL, "jsonb_object_agg")
}

func TestTranslateStringOpsEscapeWildcards(t *testing.T) {
	q, err := parser.Parse(`MATCH (n) WHERE n.name CONTAINS '50%_off' RETURN n.id`)
	require.NoError(t, err)
	plan, err := Translate(q, nil, DefaultConfig())
	require.NoError(t, err)
	found := false
	for _, p := range plan.Params {
		if s, ok := p.(string); ok && s == "%50\\%\\_off%" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTranslateUnknownProcedureRejected(t *testing.T) {
	q, err := parser.Parse(`CALL some.other.proc($v, 2) YIELD node, score RETURN node.id`)
	require.NoError(t, err)
	_, err = Translate(q, map[string]any{"v": 1}, DefaultConfig())
	require.Error(t, err)
	assert.True(t, ivgerr.Is(err, ivgerr.Unsupported))
}
