package operators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseCombinesRankedLists(t *testing.T) {
	vec := []ScoredNode{{NodeID: "X1", Score: 0.9}, {NodeID: "X2", Score: 0.8}, {NodeID: "X3", Score: 0.7}}
	txt := []ScoredText{{ID: "Y1", Score: 5.0}, {ID: "X1", Score: 4.0}, {ID: "X2", Score: 3.0}}

	out := Fuse(vec, txt, 60, 3)
	require.Len(t, out, 3)
	assert.Equal(t, "X1", out[0].ID)
	assert.InDelta(t, 1.0/61+1.0/62, out[0].RRF, 1e-9)
	assert.Equal(t, "X2", out[1].ID)
}

func TestFuseDefaultsDamping(t *testing.T) {
	vec := []ScoredNode{{NodeID: "A", Score: 1}}
	out := Fuse(vec, nil, 0, 10)
	require.Len(t, out, 1)
	assert.InDelta(t, 1.0/61, out[0].RRF, 1e-9)
}

func TestFuseLimitsToK(t *testing.T) {
	vec := []ScoredNode{{NodeID: "A"}, {NodeID: "B"}, {NodeID: "C"}}
	out := Fuse(vec, nil, 60, 2)
	assert.Len(t, out, 2)
}

func TestBFSEmptyStartReturnsEmpty(t *testing.T) {
	out, err := BFS(context.Background(), &fakeEdgeConn{}, "", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBFSZeroHopsReturnsEmpty(t *testing.T) {
	out, err := BFS(context.Background(), &fakeEdgeConn{}, "A", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBFSAnyPredicateTwoHops(t *testing.T) {
	conn := &fakeEdgeConn{rows: [][3]string{
		{"A", "part_of", "B"},
		{"B", "caused_by", "C"},
	}}
	out, err := BFS(context.Background(), conn, "A", nil, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].S)
	assert.Equal(t, "B", out[1].S)
}

func TestBFSCycleProtectionEmitsEachEdgeOnce(t *testing.T) {
	conn := &fakeEdgeConn{rows: [][3]string{
		{"TP53", "part_of", "X"},
		{"X", "caused_by", "TP53"},
	}}
	out, err := BFS(context.Background(), conn, "TP53", []string{"part_of", "caused_by"}, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	seen := map[string]bool{}
	for _, step := range out {
		key := step.S + "|" + step.P + "|" + step.O
		assert.False(t, seen[key], "edge emitted twice: %s", key)
		seen[key] = true
	}
}

func TestPPRConvergesAndIsNonNegative(t *testing.T) {
	conn := &fakeEdgeConn{rows: [][3]string{
		{"A", "link", "B"},
		{"B", "link", "C"},
		{"C", "link", "A"},
	}}
	scores, err := PPR(context.Background(), conn, []string{"A"}, DefaultPPRConfig())
	require.NoError(t, err)
	require.Len(t, scores, 3)
	for n, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0, n)
	}
}

func TestPPREmptySeedsReturnsEmpty(t *testing.T) {
	scores, err := PPR(context.Background(), &fakeEdgeConn{}, nil, DefaultPPRConfig())
	require.NoError(t, err)
	assert.Empty(t, scores)
}
