package translator

// sqlBuilder accumulates the positional parameters a translation pass
// binds via (*translator).bind. The SQL text itself is assembled
// separately with a strings.Builder in translate(); this type exists
// so the parameter slice has one home regardless of which lowering
// function is appending to it. Placeholders are PostgreSQL-style
// numbered parameters ($1, $2, ...) since pgx's native protocol
// performs no "?"-rewriting of its own.
type sqlBuilder struct {
	params []any
}

func newSQLBuilder() *sqlBuilder {
	return &sqlBuilder{}
}

func (b *sqlBuilder) Params() []any { return b.params }
