package sql

import "github.com/jarcodallo/knex/dialect"

type oracleCompiler struct{ ansi }

func (o oracleCompiler) selectStmt(b *Builder, q *Query) {
	if q.limit == nil {
		o.selectBody(b, q)
		return
	}
	b.WriteString("select * from ")
	b.Wrap(func(b *Builder) { o.selectBody(b, q) })
	b.WriteString(" where rownum <= ").Arg(*q.limit)
}

// insert uses "insert all" for more than one row.
func (o oracleCompiler) insert(b *Builder, q *Query) {
	if len(q.rows) < 2 {
		o.ansi.insert(b, q)
		return
	}
	columns := insertColumns(b, q)
	if columns == nil {
		return
	}
	b.WriteString("insert all")
	for _, r := range q.rows {
		b.WriteString(" into ")
		o.target(b, q)
		b.Pad().Wrap(func(b *Builder) { b.IdentComma(columns...) })
		b.WriteString(" values ")
		values(b, columns, r, "DEFAULT")
	}
	b.WriteString(" select 1 from dual")
}

func (o oracleCompiler) truncate(b *Builder, q *Query) {
	if q.restart {
		b.AddError(dialect.NewCapabilityError(b.Dialect(), dialect.CapTruncateIdentityReset))
		return
	}
	b.WriteString("truncate table ")
	o.target(b, q)
}

func (oracleCompiler) columnInfo(b *Builder, q *Query, _ string) {
	b.WriteString("select COLUMN_NAME, DATA_TYPE, CHAR_COL_DECL_LENGTH, NULLABLE from USER_TAB_COLS where TABLE_NAME = ").
		Arg(q.table)
}

func (o oracleCompiler) renameColumn(b *Builder, q *Query) {
	o.alterTable(b, q)
	b.WriteString(" rename column ").Ident(q.from).WriteString(" to ").Ident(q.to)
}

func (o oracleCompiler) dropColumn(b *Builder, q *Query) {
	o.alterTable(b, q)
	b.WriteString(" drop ").Wrap(func(b *Builder) { b.IdentComma(q.columns...) })
}
