package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivgraph/ivgraph/pkg/ivgerr"
)

func TestCoerceKDefaults(t *testing.T) {
	k, err := CoerceK(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultK, k)

	k, err = CoerceK("")
	require.NoError(t, err)
	assert.Equal(t, DefaultK, k)
}

func TestCoerceKClamps(t *testing.T) {
	k, err := CoerceK(5000)
	require.NoError(t, err)
	assert.Equal(t, MaxK, k)

	k, err = CoerceK(-3)
	require.NoError(t, err)
	assert.Equal(t, MinK, k)
}

func TestCoerceKRejectsNonNumericString(t *testing.T) {
	_, err := CoerceK("10; DROP TABLE nodes;--")
	require.Error(t, err)
	assert.True(t, ivgerr.Is(err, ivgerr.Validation))
	assert.NotContains(t, err.Error(), "DROP TABLE")
}

func TestCoerceKAcceptsNumericString(t *testing.T) {
	k, err := CoerceK("42")
	require.NoError(t, err)
	assert.Equal(t, 42, k)
}

func TestLabelRejectsUnsafeCharacters(t *testing.T) {
	require.NoError(t, Label("Protein"))
	require.NoError(t, Label("_internal"))
	err := Label("Protein; DROP TABLE nodes")
	require.Error(t, err)
	assert.True(t, ivgerr.Is(err, ivgerr.Validation))
}

func TestSimilarityDefaultsAndValidates(t *testing.T) {
	sim, err := Similarity("")
	require.NoError(t, err)
	assert.Equal(t, "cosine", sim)

	_, err = Similarity("euclidean")
	require.Error(t, err)
}

func TestTraversalHopsRejectsUnbounded(t *testing.T) {
	_, err := TraversalHops(nil, 5)
	require.Error(t, err)
}

func TestTraversalHopsRejectsOverCeiling(t *testing.T) {
	n := int64(10)
	_, err := TraversalHops(&n, 5)
	require.Error(t, err)
}

func TestValidColumn(t *testing.T) {
	assert.True(t, ValidColumn("nodes", "node_id"))
	assert.False(t, ValidColumn("nodes", "password"))
	assert.False(t, ValidColumn("not_a_table", "node_id"))
}
