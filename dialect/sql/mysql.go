package sql

type mysqlCompiler struct{ ansi }

func (m mysqlCompiler) columnInfo(b *Builder, q *Query, database string) {
	m.informationSchema(b, q, database, "table_schema", "database()")
}

// dropColumn renders `alter table t drop a, drop b`.
func (m mysqlCompiler) dropColumn(b *Builder, q *Query) {
	m.alterTable(b, q)
	for i, c := range q.columns {
		if i > 0 {
			b.Byte(',')
		}
		b.WriteString(" drop ").Ident(c)
	}
}
