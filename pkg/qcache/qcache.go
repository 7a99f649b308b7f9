// Package qcache caches compiled query plans under a caller-chosen key
// string, so repeated queries skip lexing/parsing/translation and go
// straight to execution. A Plan carries the parameter values it was
// translated with, so the engine keys it on the Cypher text plus those
// values.
package qcache

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ivgraph/ivgraph/pkg/translator"
)

// DefaultSize is the number of compiled plans kept resident when a
// caller does not specify one.
const DefaultSize = 512

// Cache is a fixed-capacity, least-recently-used cache of compiled
// translator.Plan values keyed by query hash.
type Cache struct {
	lru *lru.Cache[string, *translator.Plan]
}

// New builds a Cache holding up to size entries. size <= 0 uses
// DefaultSize.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	l, err := lru.New[string, *translator.Plan](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Hash returns the SHA-256 hex digest a key string is stored under.
// A plan is reused only for an identical key string; this package
// adds nothing to the key on its own.
func Hash(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached plan for query, if present.
func (c *Cache) Get(query string) (*translator.Plan, bool) {
	return c.lru.Get(Hash(query))
}

// Put stores plan under query's hash, evicting the least recently
// used entry if the cache is full.
func (c *Cache) Put(query string, plan *translator.Plan) {
	c.lru.Add(Hash(query), plan)
}

// Len reports the number of plans currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge clears every cached plan.
func (c *Cache) Purge() {
	c.lru.Purge()
}
