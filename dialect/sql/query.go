package sql

import (
	"maps"
	"slices"
)

// Op is the operation kind of a Query.
type Op uint8

// Operation kinds.
const (
	OpSelect Op = iota
	OpCount
	OpInsert
	OpTruncate
	OpRaw
	OpColumnInfo
	OpRenameColumn
	OpDropColumn
)

var opNames = [...]string{
	OpSelect:       "select",
	OpCount:        "count",
	OpInsert:       "insert",
	OpTruncate:     "truncate",
	OpRaw:          "raw",
	OpColumnInfo:   "columnInfo",
	OpRenameColumn: "renameColumn",
	OpDropColumn:   "dropColumn",
}

// String returns the operation name.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

// Query is an immutable description of one data operation. Every method
// returns a new Query and leaves the receiver untouched, so a Query can be
// compiled for several dialects and shared between goroutines.
type Query struct {
	op       Op
	table    string
	target   Expr
	raw      Expr
	columns  []string
	where    []Expr
	limit    *int
	rows     []map[string]any
	restart  bool
	from, to string
	count    string
}

// Table returns a select query over the named table.
func Table(name string) *Query {
	return &Query{op: OpSelect, table: name}
}

// TableRaw returns a select query over a raw target. The target is
// emitted verbatim and never quoted.
func TableRaw(target Expr) *Query {
	return &Query{op: OpSelect, target: target}
}

// RawStmt returns a query that compiles to the expression itself.
func RawStmt(e Expr) *Query {
	return &Query{op: OpRaw, raw: e}
}

func (q *Query) clone() *Query {
	c := *q
	c.columns = slices.Clone(q.columns)
	c.where = slices.Clone(q.where)
	c.rows = slices.Clone(q.rows)
	if q.limit != nil {
		n := *q.limit
		c.limit = &n
	}
	return &c
}

// Op returns the operation kind.
func (q *Query) Op() Op { return q.op }

// TableName returns the target table name, empty for raw targets.
func (q *Query) TableName() string { return q.table }

// Columns returns the selected, filtered or dropped columns.
func (q *Query) Columns() []string { return slices.Clone(q.columns) }

// Select sets the selected columns.
func (q *Query) Select(columns ...string) *Query {
	c := q.clone()
	c.op = OpSelect
	c.columns = slices.Clone(columns)
	return c
}

// Where adds an equality predicate. A nil value renders "is null".
func (q *Query) Where(column string, v any) *Query {
	if v == nil {
		return q.WhereNull(column)
	}
	c := q.clone()
	c.where = append(c.where, ExprFunc(func(b *Builder) {
		b.Ident(column).WriteString(" = ").Arg(v)
	}))
	return c
}

// WhereNull adds an "is null" predicate.
func (q *Query) WhereNull(column string) *Query {
	c := q.clone()
	c.where = append(c.where, ExprFunc(func(b *Builder) {
		b.Ident(column).WriteString(" is null")
	}))
	return c
}

// WhereRaw adds a raw predicate.
func (q *Query) WhereRaw(text string, args ...any) *Query {
	c := q.clone()
	c.where = append(c.where, Raw(text, args...))
	return c
}

// Limit limits the number of returned rows.
func (q *Query) Limit(n int) *Query {
	c := q.clone()
	c.limit = &n
	return c
}

// First limits the query to one row.
func (q *Query) First() *Query { return q.Limit(1) }

// CountExpr returns the counted expression of a count query, "*" for a
// count of rows and empty for other operations.
func (q *Query) CountExpr() string { return q.count }

// Count turns the query into a count of expr, "*" when omitted.
func (q *Query) Count(expr ...string) *Query {
	c := q.clone()
	c.op = OpCount
	c.count = "*"
	if len(expr) > 0 && expr[0] != "" {
		c.count = expr[0]
	}
	return c
}

// Insert turns the query into an insert of the given rows.
func (q *Query) Insert(rows ...map[string]any) *Query {
	c := q.clone()
	c.op = OpInsert
	c.rows = make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		c.rows = append(c.rows, maps.Clone(r))
	}
	return c
}

// TruncateOption configures a truncation.
type TruncateOption func(*Query)

// RestartIdentity requires the truncation to reset identity counters.
// Dialects lacking the capability fail to compile the query.
func RestartIdentity() TruncateOption {
	return func(q *Query) { q.restart = true }
}

// Truncate turns the query into a truncation of its table.
func (q *Query) Truncate(opts ...TruncateOption) *Query {
	c := q.clone()
	c.op = OpTruncate
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ColumnInfo turns the query into a column introspection, optionally
// restricted to the given columns.
func (q *Query) ColumnInfo(columns ...string) *Query {
	c := q.clone()
	c.op = OpColumnInfo
	c.columns = slices.Clone(columns)
	return c
}

// RenameColumn turns the query into a single statement column rename.
func (q *Query) RenameColumn(from, to string) *Query {
	c := q.clone()
	c.op = OpRenameColumn
	c.from, c.to = from, to
	return c
}

// DropColumn turns the query into a single statement column drop.
func (q *Query) DropColumn(columns ...string) *Query {
	c := q.clone()
	c.op = OpDropColumn
	c.columns = slices.Clone(columns)
	return c
}
