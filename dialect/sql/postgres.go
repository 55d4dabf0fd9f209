package sql

type postgresCompiler struct{ ansi }

// truncate also resets identity sequences.
func (p postgresCompiler) truncate(b *Builder, q *Query) {
	p.ansi.truncate(b, q)
	b.WriteString(" restart identity")
}

func (p postgresCompiler) columnInfo(b *Builder, q *Query, database string) {
	p.informationSchema(b, q, database, "table_catalog", "current_database()")
}

func (p postgresCompiler) renameColumn(b *Builder, q *Query) {
	p.alterTable(b, q)
	b.WriteString(" rename ").Ident(q.from).WriteString(" to ").Ident(q.to)
}

func (p postgresCompiler) dropColumn(b *Builder, q *Query) {
	p.alterTable(b, q)
	for i, c := range q.columns {
		if i > 0 {
			b.Byte(',')
		}
		b.WriteString(" drop column ").Ident(c)
	}
}
