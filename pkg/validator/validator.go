// Package validator enforces the identifier whitelist and numeric
// bounds that must hold before any caller-influenced value reaches SQL
// text. Nothing in this package ever interpolates a caller value into
// a SQL string; its job is purely to accept or reject.
package validator

import (
	"strconv"
	"strings"

	"github.com/ivgraph/ivgraph/pkg/ivgerr"
)

const (
	DefaultK = 50
	MaxK     = 1000
	MinK     = 1
)

// tableColumns whitelists every table/column name the translator is
// allowed to emit literally into generated SQL. Anything not listed
// here must be bound as a parameter instead.
var tableColumns = map[string]map[string]bool{
	"nodes":      {"node_id": true},
	"rdf_labels": {"s": true, "label": true},
	"rdf_props":  {"s": true, "key": true, "val": true},
	"rdf_edges":  {"s": true, "p": true, "o_id": true, "edge_id": true, "qualifier": true},
	"kg_NodeEmbeddings": {"id": true, "emb": true, "meta": true},
	"docs":       {"id": true, "text": true},
}

// ValidTable reports whether table is in the schema whitelist.
func ValidTable(table string) bool {
	_, ok := tableColumns[table]
	return ok
}

// ValidColumn reports whether column belongs to table per the whitelist.
func ValidColumn(table, column string) bool {
	cols, ok := tableColumns[table]
	if !ok {
		return false
	}
	return cols[column]
}

// isSafeIdent bounds what a label/predicate/variable/property-key
// name may contain: letters, digits, underscore, must start with a
// letter or underscore. This is deliberately conservative — it is
// never the caller's job to need punctuation in a label name.
func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Label validates a Cypher label or relationship-type string before it
// is bound as a query parameter (labels are never interpolated, but
// they are still validated so a malformed label fails fast with a
// clear error instead of silently matching zero rows).
func Label(label string) error {
	if !isSafeIdent(label) {
		return ivgerr.Newf(ivgerr.Validation, "invalid label or relationship type %q", label)
	}
	return nil
}

// Variable validates a Cypher pattern variable name.
func Variable(name string) error {
	if name == "" {
		return nil // anonymous variables are fine
	}
	if !isSafeIdent(name) {
		return ivgerr.Newf(ivgerr.Validation, "invalid variable name %q", name)
	}
	return nil
}

// PropertyKey validates a property key string.
func PropertyKey(key string) error {
	if !isSafeIdent(key) {
		return ivgerr.Newf(ivgerr.Validation, "invalid property key %q", key)
	}
	return nil
}

// CoerceK accepts an int, int64, float64, or numeric string and returns
// a bounded, sanitised limit per §4.2: default 50 when raw is nil or an
// empty string, reject non-numeric strings, clamp to [1, 1000].
func CoerceK(raw any) (int, error) {
	if raw == nil {
		return DefaultK, nil
	}
	switch v := raw.(type) {
	case int:
		return clampK(v), nil
	case int64:
		return clampK(int(v)), nil
	case float64:
		return clampK(int(v)), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return DefaultK, nil
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, ivgerr.New(ivgerr.Validation, "k must be a positive integer")
		}
		return clampK(n), nil
	default:
		return 0, ivgerr.New(ivgerr.Validation, "k must be a positive integer")
	}
}

func clampK(n int) int {
	if n < MinK {
		return MinK
	}
	if n > MaxK {
		return MaxK
	}
	return n
}

var validSimilarity = map[string]bool{"cosine": true, "dot_product": true}

// Similarity validates the `similarity` option of ivg.vector.search.
// An empty string defaults to "cosine".
func Similarity(raw string) (string, error) {
	if raw == "" {
		return "cosine", nil
	}
	if !validSimilarity[raw] {
		return "", ivgerr.Newf(ivgerr.Validation, "invalid similarity %q, expected one of: cosine, dot_product", raw)
	}
	return raw, nil
}

// TraversalHops validates a variable-length relationship bound against
// the configured ceiling, rejecting unbounded (nil max) traversals.
func TraversalHops(maxHops *int64, ceiling int64) (int64, error) {
	if maxHops == nil {
		return 0, ivgerr.Newf(ivgerr.Validation, "variable-length relationship requires an upper bound (max %d)", ceiling)
	}
	if *maxHops > ceiling {
		return 0, ivgerr.Newf(ivgerr.Validation, "relationship hop bound %d exceeds configured maximum %d", *maxHops, ceiling)
	}
	if *maxHops < 1 {
		return 0, ivgerr.New(ivgerr.Validation, "relationship hop bound must be at least 1")
	}
	return *maxHops, nil
}
