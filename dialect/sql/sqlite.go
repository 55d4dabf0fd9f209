package sql

import "github.com/jarcodallo/knex/dialect"

type sqliteCompiler struct{ ansi }

// truncate deletes every row. The AUTOINCREMENT sequence is kept, hence
// identity resets are rejected.
func (s sqliteCompiler) truncate(b *Builder, q *Query) {
	if q.restart {
		b.AddError(dialect.NewCapabilityError(b.Dialect(), dialect.CapTruncateIdentityReset))
		return
	}
	b.WriteString("delete from ")
	s.target(b, q)
}

// insert fills missing columns with NULL, as SQLite has no DEFAULT keyword
// in value lists.
func (s sqliteCompiler) insert(b *Builder, q *Query) { s.insertValues(b, q, "NULL") }

// columnInfo renders the table name unquoted, as the pragma argument.
func (sqliteCompiler) columnInfo(b *Builder, q *Query, _ string) {
	b.WriteString("PRAGMA table_info(" + q.table + ")")
}
