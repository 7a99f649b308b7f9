package hydrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivgraph/ivgraph/pkg/translator"
)

type fakeRows struct {
	cols [][]any
	pos  int
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.cols) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.cols[r.pos-1]
	for i, v := range row {
		switch d := dest[i].(type) {
		case *any:
			*d = v
		}
	}
	return nil
}

func (r *fakeRows) Err() error   { return nil }
func (r *fakeRows) Close() error { return nil }

func TestRowsDecodesLabelsAndPropertiesJSON(t *testing.T) {
	plan := &translator.Plan{
		Columns: []translator.ColumnPlan{
			{Name: "id", Kind: translator.ColNodeID},
			{Name: "labels", Kind: translator.ColLabelsJSON},
			{Name: "props", Kind: translator.ColPropertiesJSON},
		},
	}
	rows := &fakeRows{cols: [][]any{
		{"n1", `["Protein","Gene"]`, `{"name":"TP53","active":true}`},
	}}

	out, err := Rows(rows, plan)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "n1", out[0]["id"])
	assert.Equal(t, []string{"Protein", "Gene"}, out[0]["labels"])
	assert.Equal(t, map[string]any{"name": "TP53", "active": true}, out[0]["props"])
}

func TestRowsPassesThroughScalarAndRaw(t *testing.T) {
	plan := &translator.Plan{
		Columns: []translator.ColumnPlan{
			{Name: "score", Kind: translator.ColScalar},
			{Name: "raw", Kind: translator.ColRaw},
		},
	}
	rows := &fakeRows{cols: [][]any{{0.93, "x"}}}

	out, err := Rows(rows, plan)
	require.NoError(t, err)
	assert.Equal(t, 0.93, out[0]["score"])
	assert.Equal(t, "x", out[0]["raw"])
}

func TestRowsHandlesNullJSONColumns(t *testing.T) {
	plan := &translator.Plan{
		Columns: []translator.ColumnPlan{
			{Name: "labels", Kind: translator.ColLabelsJSON},
			{Name: "props", Kind: translator.ColPropertiesJSON},
		},
	}
	rows := &fakeRows{cols: [][]any{{nil, nil}}}

	out, err := Rows(rows, plan)
	require.NoError(t, err)
	assert.NotNil(t, out[0]["labels"])
	assert.Equal(t, []string{}, out[0]["labels"])
	assert.NotNil(t, out[0]["props"])
	assert.Equal(t, map[string]any{}, out[0]["props"])
}

func TestRowsReturnsNilForEmptyResultSet(t *testing.T) {
	plan := &translator.Plan{Columns: []translator.ColumnPlan{{Name: "id", Kind: translator.ColNodeID}}}
	out, err := Rows(&fakeRows{}, plan)
	require.NoError(t, err)
	assert.Nil(t, out)
}
