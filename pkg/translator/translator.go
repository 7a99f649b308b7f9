// Package translator lowers a parsed Cypher ast.Query into one
// parameterised SQL statement, following the staged-CTE strategy
// described for this query layer: one CTE for an optional leading
// procedure call, followed by joins over the node/label/property/edge
// tables for the MATCH pattern, followed by a final projecting SELECT.
//
// The translator never interpolates a caller-supplied value into SQL
// text. Every literal, parameter reference, and bound option reaches
// the statement through (*translator).bind, which records the value
// and returns its PostgreSQL "$N" placeholder.
package translator

import (
	"fmt"
	"strings"

	"github.com/ivgraph/ivgraph/pkg/ast"
	"github.com/ivgraph/ivgraph/pkg/ivgerr"
	"github.com/ivgraph/ivgraph/pkg/validator"
)

// Config carries the deployment-wide constants §6 lists as
// configuration: embedding dimension, traversal ceiling, defaults.
type Config struct {
	EmbeddingDimension int
	TraversalMaxHops   int64
	DefaultSimilarity  string
}

// DefaultConfig returns the defaults named in SYSTEM OVERVIEW/§6.
func DefaultConfig() Config {
	return Config{
		EmbeddingDimension: 768,
		TraversalMaxHops:   5,
		DefaultSimilarity:  "cosine",
	}
}

// numericPattern matches a plain integer or decimal value. Postgres
// has no TRY_CAST; a regex guard in front of an explicit cast is the
// idiomatic substitute for "cast only if it looks numeric."
const numericPattern = `^[-+]?[0-9]+(\.[0-9]+)?$`

// ColumnKind tells the hydrator how to interpret a projected column.
type ColumnKind int

const (
	ColRaw ColumnKind = iota
	ColNodeID
	ColLabelsJSON
	ColPropertiesJSON
	ColScalar
)

// ColumnPlan describes one projected RETURN item.
type ColumnPlan struct {
	Name string
	Kind ColumnKind
}

// Plan is the translator's output: one SQL statement, its positional
// parameters, and the projection plan the hydrator needs.
type Plan struct {
	SQL     string
	Params  []any
	Columns []ColumnPlan
}

// binding records how a pattern variable resolves to SQL: the table
// alias that carries its node_id (or VecSearch's yielded column).
type binding struct {
	alias  string // SQL alias, e.g. "n0" or "VecSearch"
	idCol  string // column on alias holding the node id
	isEdge bool
	typeCol string // for edge bindings, column holding predicate/type
}

type translator struct {
	cfg     Config
	params  map[string]any
	env     map[string]binding
	aliasN  int
	from    []string // FROM/JOIN fragments, in order
	builder *sqlBuilder
}

// Translate lowers q into a Plan. params is the caller's bound
// parameter map (by $name), used both for value binding and to decide
// at translation time whether a vector-search query input is a
// pre-computed vector or raw text handed to EMBEDDING().
func Translate(q *ast.Query, params map[string]any, cfg Config) (*Plan, error) {
	if q.Match == nil && q.Call == nil {
		return nil, ivgerr.New(ivgerr.Validation, "query has no MATCH or CALL clause")
	}
	t := &translator{
		cfg:     cfg,
		params:  params,
		env:     map[string]binding{},
		builder: newSQLBuilder(),
	}
	return t.translate(q)
}

func (t *translator) nextAlias(prefix string) string {
	a := fmt.Sprintf("%s%d", prefix, t.aliasN)
	t.aliasN++
	return a
}

// bind appends val as the next positional parameter and returns its
// PostgreSQL-style placeholder ($1, $2, ...). pgx's native protocol
// expects numbered placeholders, not "?", and performs no rewriting of
// its own, so every dynamically assembled SQL fragment in this file
// goes through bind instead of writing a literal "?".
func (t *translator) bind(val any) string {
	t.builder.params = append(t.builder.params, val)
	return fmt.Sprintf("$%d", len(t.builder.params))
}

func (t *translator) translate(q *ast.Query) (*Plan, error) {
	var ctes []string

	if q.Call != nil {
		cte, err := t.lowerCall(q.Call)
		if err != nil {
			return nil, err
		}
		ctes = append(ctes, cte)
	}

	if q.Match != nil {
		if err := t.lowerMatch(q.Match); err != nil {
			return nil, err
		}
	}

	whereParts := []string{}
	if q.Where != nil {
		frag, err := t.lowerBoolExpr(q.Where.Expr)
		if err != nil {
			return nil, err
		}
		whereParts = append(whereParts, frag)
	}

	selectList, columns, err := t.lowerReturn(q.Return)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if len(ctes) > 0 {
		sb.WriteString("WITH ")
		sb.WriteString(strings.Join(ctes, ", "))
		sb.WriteString(" ")
	}

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selectList, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(strings.Join(t.from, " "))

	if len(whereParts) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(whereParts, " AND "))
	}

	if q.OrderBy != nil {
		orderFrags := make([]string, 0, len(q.OrderBy.Items))
		for _, item := range q.OrderBy.Items {
			keys, err := t.lowerOrderExpr(item.Expr)
			if err != nil {
				return nil, err
			}
			dir := " ASC NULLS LAST"
			if item.Descending {
				dir = " DESC NULLS LAST"
			}
			for _, key := range keys {
				orderFrags = append(orderFrags, key+dir)
			}
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orderFrags, ", "))
	}

	if q.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(t.bind(*q.Limit))
	}
	if q.Skip != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(t.bind(*q.Skip))
	}

	return &Plan{
		SQL:     sb.String(),
		Params:  t.builder.Params(),
		Columns: columns,
	}, nil
}

// lowerCall rewrites `CALL ivg.vector.search(...) YIELD node, score`
// into a prepended VecSearch CTE per the translator design, binding
// `node`/`score` into the environment for downstream MATCH joins.
func (t *translator) lowerCall(call *ast.Call) (string, error) {
	if call.Procedure != "ivg.vector.search" {
		return "", ivgerr.Newf(ivgerr.Unsupported, "unknown procedure %q", call.Procedure)
	}
	if len(call.Args) < 4 {
		return "", ivgerr.New(ivgerr.Validation, "ivg.vector.search requires (label, property, query_input, limit[, options])")
	}
	labelArg := call.Args[0]
	queryArg := call.Args[2]
	limitArg := call.Args[3]

	label, ok := labelArg.Literal.(string)
	if !ok {
		return "", ivgerr.New(ivgerr.Validation, "ivg.vector.search label must be a string literal")
	}
	if err := validator.Label(label); err != nil {
		return "", err
	}

	var simRaw string
	if simExpr, ok := call.Options["similarity"]; ok {
		s, ok := simExpr.Literal.(string)
		if !ok {
			return "", ivgerr.New(ivgerr.Validation, "similarity option must be a string")
		}
		simRaw = s
	}
	similarity, err := validator.Similarity(simRaw)
	if err != nil {
		return "", err
	}

	k, err := t.resolveLimitArg(limitArg)
	if err != nil {
		return "", err
	}

	vecExpr, err := t.bindVectorExpr(queryArg, call.Options)
	if err != nil {
		return "", err
	}
	scoreExpr := vectorScoreExpr("e.emb", vecExpr, similarity)
	labelPh := t.bind(label)
	kPh := t.bind(k)

	cte := fmt.Sprintf(
		"VecSearch AS (SELECT n.node_id AS node, %s AS score FROM nodes n JOIN rdf_labels l ON l.s = n.node_id JOIN kg_NodeEmbeddings e ON e.id = n.node_id WHERE l.label = %s ORDER BY score DESC LIMIT %s)",
		scoreExpr, labelPh, kPh)

	t.env["node"] = binding{alias: "VecSearch", idCol: "node"}
	t.env["score"] = binding{alias: "VecSearch", idCol: "score"}
	t.from = append(t.from, "VecSearch")
	return cte, nil
}

// vectorScoreExpr builds a pgvector similarity expression. pgvector
// exposes distance operators, not similarity functions directly: <=>
// is cosine distance and <#> is the negated inner product, so cosine
// similarity is 1 minus the distance and dot-product similarity is the
// negation of <#>'s result.
func vectorScoreExpr(col, queryPh, similarity string) string {
	if similarity == "dot_product" {
		return fmt.Sprintf("(-(%s <#> %s))", col, queryPh)
	}
	return fmt.Sprintf("(1 - (%s <=> %s))", col, queryPh)
}

func (t *translator) resolveLimitArg(e ast.Expr) (int, error) {
	switch e.Kind {
	case ast.ExprLiteral:
		return validator.CoerceK(e.Literal)
	case ast.ExprParam:
		v, ok := t.params[e.ParamName]
		if !ok {
			return 0, ivgerr.Newf(ivgerr.Validation, "missing parameter $%s", e.ParamName)
		}
		return validator.CoerceK(v)
	default:
		return 0, ivgerr.New(ivgerr.Validation, "limit must be a literal or parameter")
	}
}

// bindVectorExpr decides, at translation time, whether the bound query
// input is a pre-computed vector or raw text, and returns the SQL
// expression that yields a pgvector value for it. A []float32/[]float64
// literal or parameter binds directly: pgxhost's bindArgs converts it
// to a pgvector.Vector, so the placeholder alone is the full
// expression. Raw text is routed through ivg_embed, a SQL function the
// deployment provides to turn text into a vector of the configured
// dimension (Postgres/pgvector has no built-in text-to-embedding
// function, unlike the database's native EMBEDDING() this mirrors).
func (t *translator) bindVectorExpr(e ast.Expr, options map[string]ast.Expr) (string, error) {
	var value any
	switch e.Kind {
	case ast.ExprLiteral:
		value = e.Literal
	case ast.ExprParam:
		v, ok := t.params[e.ParamName]
		if !ok {
			return "", ivgerr.Newf(ivgerr.Validation, "missing parameter $%s", e.ParamName)
		}
		value = v
	default:
		return "", ivgerr.New(ivgerr.Validation, "query_input must be a literal or parameter")
	}

	switch v := value.(type) {
	case []float32, []float64:
		return t.bind(v), nil
	case string:
		cfgExpr, ok := options["embedding_config"]
		if !ok {
			return "", ivgerr.New(ivgerr.Validation, "text query_input requires options.embedding_config")
		}
		cfg, ok := cfgExpr.Literal.(string)
		if !ok {
			return "", ivgerr.New(ivgerr.Validation, "embedding_config must be a string")
		}
		textPh := t.bind(v)
		cfgPh := t.bind(cfg)
		return fmt.Sprintf("ivg_embed(%s, %s)", textPh, cfgPh), nil
	default:
		return "", ivgerr.New(ivgerr.Validation, "query_input must be a vector or a string")
	}
}

// lowerMatch joins every pattern's nodes/relationships into t.from,
// populating t.env with a binding per pattern variable.
func (t *translator) lowerMatch(m *ast.Match) error {
	for _, pat := range m.Patterns {
		if err := t.lowerPattern(pat); err != nil {
			return err
		}
	}
	if len(t.from) == 0 {
		return ivgerr.New(ivgerr.Validation, "empty pattern")
	}
	return nil
}

func (t *translator) lowerPattern(pat ast.Pattern) error {
	var prevAlias, prevIDCol string
	for i, node := range pat.Nodes {
		alias, idCol, err := t.bindNode(node)
		if err != nil {
			return err
		}
		if i > 0 {
			rel := pat.Rels[i-1]
			if err := t.bindRel(rel, prevAlias, prevIDCol, alias, idCol); err != nil {
				return err
			}
		}
		prevAlias, prevIDCol = alias, idCol
	}
	return nil
}

// bindNode joins (or reuses, if the variable is already bound — e.g.
// to a VecSearch CTE column) the nodes table for one node pattern.
func (t *translator) bindNode(n ast.NodePattern) (alias, idCol string, err error) {
	if n.Variable != "" {
		if b, ok := t.env[n.Variable]; ok {
			return b.alias, b.idCol, nil
		}
	}
	if err := validator.Variable(n.Variable); err != nil {
		return "", "", err
	}
	alias = t.nextAlias("n")
	t.from = append(t.from, fmt.Sprintf("JOIN nodes %s ON 1=1", alias))
	if len(t.from) == 1 {
		// first item must not be a JOIN; rewrite in place.
		t.from[0] = fmt.Sprintf("nodes %s", alias)
	}
	for _, label := range n.Labels {
		if err := validator.Label(label); err != nil {
			return "", "", err
		}
		lAlias := t.nextAlias("l")
		labelPh := t.bind(label)
		t.from = append(t.from, fmt.Sprintf("JOIN rdf_labels %s ON %s.s = %s.node_id AND %s.label = %s", lAlias, lAlias, alias, lAlias, labelPh))
	}
	for key, valExpr := range n.Properties {
		if err := validator.PropertyKey(key); err != nil {
			return "", "", err
		}
		val, err := t.literalOrParam(valExpr)
		if err != nil {
			return "", "", err
		}
		pAlias := t.nextAlias("p")
		keyPh := t.bind(key)
		valPh := t.bind(val)
		t.from = append(t.from, fmt.Sprintf(
			"JOIN rdf_props %s ON %s.s = %s.node_id AND %s.key = %s AND %s.val = %s",
			pAlias, pAlias, alias, pAlias, keyPh, pAlias, valPh))
	}
	if n.Variable != "" {
		t.env[n.Variable] = binding{alias: alias, idCol: "node_id"}
	}
	return alias, "node_id", nil
}

func (t *translator) bindRel(r ast.RelPattern, leftAlias, leftIDCol, rightAlias, rightIDCol string) error {
	for _, typ := range r.Types {
		if err := validator.Label(typ); err != nil {
			return err
		}
	}
	eAlias := t.nextAlias("r")

	if r.Variable_ {
		maxHops, err := validator.TraversalHops(r.MaxHops, t.cfg.TraversalMaxHops)
		if err != nil {
			return err
		}
		return t.bindVariableLengthRel(r, leftAlias, leftIDCol, rightAlias, rightIDCol, maxHops)
	}

	srcCol, dstCol := "s", "o_id"
	if r.Direction == ast.Incoming {
		srcCol, dstCol = "o_id", "s"
	}

	join := fmt.Sprintf("JOIN rdf_edges %s ON %s.%s = %s.%s AND %s.%s = %s.%s",
		eAlias, eAlias, srcCol, leftAlias, leftIDCol,
		eAlias, dstCol, rightAlias, rightIDCol)
	if len(r.Types) > 0 {
		placeholders := make([]string, len(r.Types))
		for i, typ := range r.Types {
			placeholders[i] = t.bind(typ)
		}
		join += fmt.Sprintf(" AND %s.p IN (%s)", eAlias, strings.Join(placeholders, ","))
	}
	t.from = append(t.from, join)
	if r.Variable != "" {
		t.env[r.Variable] = binding{alias: eAlias, idCol: "edge_id", isEdge: true, typeCol: "p"}
	}
	return nil
}

// bindVariableLengthRel lowers a bounded `*min..max` relationship into
// a recursive CTE tracking depth and a visited-set to prevent cycles,
// then joins its terminal column back into the outer FROM chain.
func (t *translator) bindVariableLengthRel(r ast.RelPattern, leftAlias, leftIDCol, rightAlias, rightIDCol string, maxHops int64) error {
	cteName := t.nextAlias("VarLen")
	srcCol, dstCol := "s", "o_id"
	if r.Direction == ast.Incoming {
		srcCol, dstCol = "o_id", "s"
	}

	typeFilter := ""
	if len(r.Types) > 0 {
		placeholders := make([]string, len(r.Types))
		for i, typ := range r.Types {
			placeholders[i] = t.bind(typ)
		}
		// Reused verbatim in both the base case and the recursive step
		// below: both halves of the union filter by the same relationship
		// types, so the same bound placeholders apply to both.
		typeFilter = fmt.Sprintf(" AND e.p IN (%s)", strings.Join(placeholders, ","))
	}
	maxHopsPh := t.bind(maxHops)
	minFilter := ""
	if r.MinHops != nil && *r.MinHops > 1 {
		minFilter = fmt.Sprintf(" AND %s.depth >= %s", cteName, t.bind(*r.MinHops))
	}

	cte := fmt.Sprintf(
		`%s AS (
  SELECT e.%s AS origin, e.%s AS reached, 1 AS depth, CAST(e.%s AS VARCHAR(8000)) AS seen
  FROM rdf_edges e WHERE 1=1%s
  UNION ALL
  SELECT v.origin, e.%s, v.depth+1, v.seen || ',' || e.%s
  FROM %s v JOIN rdf_edges e ON e.%s = v.reached%s
  WHERE v.depth < %s AND v.seen NOT LIKE '%%' || e.%s || '%%'
)`,
		cteName, srcCol, dstCol, dstCol, typeFilter,
		dstCol, dstCol, cteName, srcCol, typeFilter, maxHopsPh, dstCol)

	t.from = append(t.from,
		fmt.Sprintf("JOIN (%s) %s ON %s.origin = %s.%s AND %s.reached = %s.%s%s",
			cte, cteName, cteName, leftAlias, leftIDCol, cteName, rightAlias, rightIDCol, minFilter))
	if r.Variable != "" {
		t.env[r.Variable] = binding{alias: cteName, idCol: "reached", isEdge: true}
	}
	return nil
}

func (t *translator) literalOrParam(e ast.Expr) (any, error) {
	switch e.Kind {
	case ast.ExprLiteral:
		return e.Literal, nil
	case ast.ExprParam:
		v, ok := t.params[e.ParamName]
		if !ok {
			return nil, ivgerr.Newf(ivgerr.Validation, "missing parameter $%s", e.ParamName)
		}
		return v, nil
	default:
		return nil, ivgerr.New(ivgerr.Validation, "expected a literal or parameter")
	}
}

// lowerBoolExpr lowers a WHERE boolean expression into a SQL fragment.
func (t *translator) lowerBoolExpr(e ast.Expr) (string, error) {
	switch e.Kind {
	case ast.ExprBinary:
		switch e.Op {
		case "AND", "OR":
			left, err := t.lowerBoolExpr(*e.Left)
			if err != nil {
				return "", err
			}
			right, err := t.lowerBoolExpr(*e.Right)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(%s %s %s)", left, e.Op, right), nil
		case "CONTAINS", "STARTS WITH", "ENDS WITH":
			return t.lowerStringOp(e)
		default:
			return t.lowerComparison(e)
		}
	case ast.ExprUnary:
		inner, err := t.lowerBoolExpr(*e.Operand)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT (%s)", inner), nil
	default:
		return "", ivgerr.New(ivgerr.Validation, "expected a boolean expression")
	}
}

func (t *translator) lowerComparison(e ast.Expr) (string, error) {
	if e.Left.Kind != ast.ExprProperty {
		return "", ivgerr.New(ivgerr.Unsupported, "comparisons must have a property reference on the left")
	}
	b, ok := t.env[e.Left.VarName]
	if !ok {
		return "", ivgerr.Newf(ivgerr.Validation, "unknown variable %q", e.Left.VarName)
	}
	if err := validator.PropertyKey(e.Left.PropName); err != nil {
		return "", err
	}
	val, err := t.literalOrParam(*e.Right)
	if err != nil {
		return "", err
	}

	pAlias := t.nextAlias("wp")
	numeric := isNumericOp(e.Op)

	// Parameters bind in the same left-to-right order their
	// placeholders appear in the text assembled below: key, then value.
	keyPh := t.bind(e.Left.PropName)
	valPh := t.bind(val)

	var cmpExpr string
	if numeric {
		// Postgres has no TRY_CAST; guard the cast with a numeric-shape
		// regex so a non-numeric stored value compares as NULL (neither
		// side of the comparison) instead of erroring the whole query.
		cmpExpr = fmt.Sprintf(
			"(CASE WHEN %s.val ~ '%s' THEN %s.val::double precision ELSE NULL END) %s %s",
			pAlias, numericPattern, pAlias, e.Op, valPh)
	} else {
		cmpExpr = fmt.Sprintf("%s.val %s %s", pAlias, e.Op, valPh)
	}

	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM rdf_props %s WHERE %s.s = %s.%s AND %s.key = %s AND %s)",
		pAlias, pAlias, b.alias, b.idCol, pAlias, keyPh, cmpExpr), nil
}

func isNumericOp(op string) bool {
	switch op {
	case "<", "<=", ">", ">=":
		return true
	default:
		return false
	}
}

func (t *translator) lowerStringOp(e ast.Expr) (string, error) {
	if e.Left.Kind != ast.ExprProperty {
		return "", ivgerr.New(ivgerr.Unsupported, "string operators must have a property reference on the left")
	}
	b, ok := t.env[e.Left.VarName]
	if !ok {
		return "", ivgerr.Newf(ivgerr.Validation, "unknown variable %q", e.Left.VarName)
	}
	val, err := t.literalOrParam(*e.Right)
	if err != nil {
		return "", err
	}
	s, ok := val.(string)
	if !ok {
		return "", ivgerr.New(ivgerr.Validation, "string operator requires a string operand")
	}
	escaped := strings.NewReplacer("%", "\\%", "_", "\\_").Replace(s)
	var pattern string
	switch e.Op {
	case "CONTAINS":
		pattern = "%" + escaped + "%"
	case "STARTS WITH":
		pattern = escaped + "%"
	case "ENDS WITH":
		pattern = "%" + escaped
	}

	pAlias := t.nextAlias("wp")
	keyPh := t.bind(e.Left.PropName)
	patternPh := t.bind(pattern)
	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM rdf_props %s WHERE %s.s = %s.%s AND %s.key = %s AND %s.val LIKE %s ESCAPE '\\')",
		pAlias, pAlias, b.alias, b.idCol, pAlias, keyPh, pAlias, patternPh), nil
}

// lowerOrderExpr returns one or more ORDER BY key expressions for a
// single sort item. A property reference yields two keys, a numeric
// one and a lexical one: Postgres has no TRY_CAST, so instead of
// casting blindly we sample rdf_props for that key across the whole
// graph and pick one key to drive the sort, forcing the other to NULL
// so it never participates (spec: cast when every sampled value looks
// numeric, otherwise sort lexically, missing-last).
func (t *translator) lowerOrderExpr(e ast.Expr) ([]string, error) {
	switch e.Kind {
	case ast.ExprProperty:
		b, ok := t.env[e.VarName]
		if !ok {
			return nil, ivgerr.Newf(ivgerr.Validation, "unknown variable %q", e.VarName)
		}
		if err := validator.PropertyKey(e.PropName); err != nil {
			return nil, err
		}

		keyPh1 := t.bind(e.PropName)
		notAllNumeric := fmt.Sprintf(
			"EXISTS (SELECT 1 FROM rdf_props p2 WHERE p2.key = %s AND p2.val !~ '%s')",
			keyPh1, numericPattern)

		keyPh2 := t.bind(e.PropName)
		numericKey := fmt.Sprintf(
			"(CASE WHEN NOT %s THEN (SELECT p.val::double precision FROM rdf_props p WHERE p.s = %s.%s AND p.key = %s) ELSE NULL END)",
			notAllNumeric, b.alias, b.idCol, keyPh2)

		keyPh3 := t.bind(e.PropName)
		lexicalKey := fmt.Sprintf(
			"(CASE WHEN %s THEN (SELECT p.val FROM rdf_props p WHERE p.s = %s.%s AND p.key = %s) ELSE NULL END)",
			notAllNumeric, b.alias, b.idCol, keyPh3)

		return []string{numericKey, lexicalKey}, nil
	case ast.ExprVariable:
		if b, ok := t.env[e.VarName]; ok {
			return []string{fmt.Sprintf("%s.%s", b.alias, b.idCol)}, nil
		}
		return nil, ivgerr.Newf(ivgerr.Validation, "unknown variable %q", e.VarName)
	default:
		return nil, ivgerr.New(ivgerr.Unsupported, "unsupported ORDER BY expression")
	}
}

func (t *translator) lowerReturn(r *ast.Return) ([]string, []ColumnPlan, error) {
	var sel []string
	var cols []ColumnPlan
	for _, item := range r.Items {
		expr, kind, err := t.lowerReturnExpr(item.Expr)
		if err != nil {
			return nil, nil, err
		}
		name := item.Alias
		if name == "" {
			name = defaultColumnName(item.Expr)
		}
		sel = append(sel, fmt.Sprintf("%s AS %s", expr, name))
		cols = append(cols, ColumnPlan{Name: name, Kind: kind})
	}
	return sel, cols, nil
}

func defaultColumnName(e ast.Expr) string {
	switch e.Kind {
	case ast.ExprProperty:
		return e.VarName + "_" + e.PropName
	case ast.ExprVariable:
		return e.VarName
	case ast.ExprFunctionCall:
		return e.FuncName
	default:
		return "col"
	}
}

func (t *translator) lowerReturnExpr(e ast.Expr) (string, ColumnKind, error) {
	switch e.Kind {
	case ast.ExprVariable:
		b, ok := t.env[e.VarName]
		if !ok {
			return "", ColRaw, ivgerr.Newf(ivgerr.Validation, "unknown variable %q", e.VarName)
		}
		if b.isEdge {
			return fmt.Sprintf("%s.%s", b.alias, b.idCol), ColScalar, nil
		}
		return fmt.Sprintf("%s.%s", b.alias, b.idCol), ColNodeID, nil
	case ast.ExprProperty:
		b, ok := t.env[e.VarName]
		if !ok {
			return "", ColRaw, ivgerr.Newf(ivgerr.Validation, "unknown variable %q", e.VarName)
		}
		if err := validator.PropertyKey(e.PropName); err != nil {
			return "", ColRaw, err
		}
		if e.VarName == "node" || e.VarName == "score" {
			// direct passthrough columns yielded by the vector-search CTE
			return fmt.Sprintf("%s.%s", b.alias, b.idCol), ColScalar, nil
		}
		if e.PropName == "id" {
			return fmt.Sprintf("%s.%s", b.alias, b.idCol), ColNodeID, nil
		}
		return fmt.Sprintf(
			"(SELECT p.val FROM rdf_props p WHERE p.s = %s.%s AND p.key = %s)",
			b.alias, b.idCol, t.bind(e.PropName)), ColScalar, nil
	case ast.ExprFunctionCall:
		return t.lowerFunctionCall(e)
	default:
		return "", ColRaw, ivgerr.New(ivgerr.Unsupported, "unsupported RETURN expression")
	}
}

func (t *translator) lowerFunctionCall(e ast.Expr) (string, ColumnKind, error) {
	if len(e.Args) != 1 || e.Args[0].Kind != ast.ExprVariable {
		return "", ColRaw, ivgerr.Newf(ivgerr.Unsupported, "function %s expects a single variable argument", e.FuncName)
	}
	varName := e.Args[0].VarName
	b, ok := t.env[varName]
	if !ok {
		return "", ColRaw, ivgerr.Newf(ivgerr.Validation, "unknown variable %q", varName)
	}
	switch strings.ToLower(e.FuncName) {
	case "labels":
		return fmt.Sprintf(
			"(SELECT json_agg(l.label) FROM rdf_labels l WHERE l.s = %s.%s)",
			b.alias, b.idCol), ColLabelsJSON, nil
	case "properties":
		return fmt.Sprintf(
			"(SELECT jsonb_object_agg(p.key, p.val) FROM rdf_props p WHERE p.s = %s.%s)",
			b.alias, b.idCol), ColPropertiesJSON, nil
	case "type":
		if !b.isEdge {
			return "", ColRaw, ivgerr.New(ivgerr.Validation, "type() requires a relationship variable")
		}
		return fmt.Sprintf("%s.%s", b.alias, b.typeCol), ColScalar, nil
	case "count":
		return fmt.Sprintf("COUNT(%s.%s)", b.alias, b.idCol), ColScalar, nil
	default:
		return "", ColRaw, ivgerr.Newf(ivgerr.Unsupported, "unknown function %q", e.FuncName)
	}
}
