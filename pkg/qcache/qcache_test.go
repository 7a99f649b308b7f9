package qcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivgraph/ivgraph/pkg/translator"
)

func TestPutGetRoundTrips(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	plan := &translator.Plan{SQL: "SELECT 1"}
	c.Put("MATCH (n) RETURN n", plan)

	got, ok := c.Get("MATCH (n) RETURN n")
	require.True(t, ok)
	assert.Same(t, plan, got)
}

func TestGetMissReturnsFalse(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	_, ok := c.Get("MATCH (n) RETURN n")
	assert.False(t, ok)
}

func TestDifferentQueryTextDifferentKey(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	c.Put("RETURN 1", &translator.Plan{SQL: "SELECT 1"})
	_, ok := c.Get("RETURN 2")
	assert.False(t, ok)
}

func TestEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)
	c.Put("Q1", &translator.Plan{SQL: "S1"})
	c.Put("Q2", &translator.Plan{SQL: "S2"})
	c.Put("Q3", &translator.Plan{SQL: "S3"})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("Q1")
	assert.False(t, ok, "oldest entry should have been evicted")
}

func TestPurgeClearsCache(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)
	c.Put("Q1", &translator.Plan{SQL: "S1"})
	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestNewDefaultsSizeWhenNonPositive(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
