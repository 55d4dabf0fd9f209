package schema

import (
	"errors"
	"fmt"

	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql"
)

// Planning errors.
var (
	// ErrColumnNotFound is returned when an altered column does not exist.
	ErrColumnNotFound = errors.New("sql/schema: column not found")
	// ErrTableNotFound is returned when the introspected table does not exist.
	ErrTableNotFound = errors.New("sql/schema: table not found")
	// ErrUnsupportedIndex is returned when a rebuild meets an index it cannot recreate.
	ErrUnsupportedIndex = errors.New("sql/schema: index cannot be recreated")
	// ErrUnsupportedColumn is returned when a rebuild meets a column it cannot carry over.
	ErrUnsupportedColumn = errors.New("sql/schema: column cannot be recreated")
)

// PlanRename plans the rename of a column. PostgreSQL and Oracle rename in
// one statement, MySQL redefines the column from its introspected
// definition and SQLite rebuilds the table.
func PlanRename(table, from, to, name string) (*Plan, error) {
	g, err := dialect.Get(name)
	if err != nil {
		return nil, err
	}
	if table == "" || from == "" || to == "" {
		return nil, fmt.Errorf("sql/schema: rename requires table and column names")
	}
	switch {
	case g.DirectColumnRename:
		stmt, err := sql.Compile(sql.Table(table).RenameColumn(from, to), g.Name)
		if err != nil {
			return nil, err
		}
		return &Plan{Dialect: g.Name, Table: table, Steps: []*Step{execStep(StepAlter, stmt)}}, nil
	case g.Name == dialect.MySQL:
		return planMySQLRename(g, table, from, to)
	case g.Name == dialect.SQLite:
		return planRebuild(g, table, rebuild{renames: map[string]string{from: to}})
	default:
		return nil, &dialect.CapabilityError{Dialect: g.Name, Capability: dialect.CapDirectColumnRename}
	}
}

// PlanDrop plans the removal of one or more columns.
func PlanDrop(table, name string, columns ...string) (*Plan, error) {
	g, err := dialect.Get(name)
	if err != nil {
		return nil, err
	}
	if table == "" || len(columns) == 0 {
		return nil, fmt.Errorf("sql/schema: drop requires a table and at least one column")
	}
	switch {
	case g.DirectColumnDrop:
		stmt, err := sql.Compile(sql.Table(table).DropColumn(columns...), g.Name)
		if err != nil {
			return nil, err
		}
		return &Plan{Dialect: g.Name, Table: table, Steps: []*Step{execStep(StepAlter, stmt)}}, nil
	case g.Name == dialect.SQLite:
		drops := make(map[string]bool, len(columns))
		for _, c := range columns {
			drops[c] = true
		}
		return planRebuild(g, table, rebuild{drops: drops})
	default:
		return nil, &dialect.CapabilityError{Dialect: g.Name, Capability: dialect.CapDirectColumnDrop}
	}
}

type alterOp struct {
	op       sql.Op
	from, to string
	columns  []string
}

// Alteration collects column alterations of one table.
type Alteration struct {
	table string
	ops   []alterOp
}

// NewAlteration returns an empty alteration of the table.
func NewAlteration(table string) *Alteration {
	return &Alteration{table: table}
}

// Alter returns the alteration collected by fn.
//
//	a := schema.Alter("accounts", func(t *schema.Alteration) {
//	    t.RenameColumn("about", "about_col")
//	    t.DropColumn("first_name")
//	})
//	plan, err := a.Plan(dialect.SQLite)
func Alter(table string, fn func(*Alteration)) *Alteration {
	a := NewAlteration(table)
	fn(a)
	return a
}

// Table returns the altered table name.
func (a *Alteration) Table() string { return a.table }

// RenameColumn renames a column.
func (a *Alteration) RenameColumn(from, to string) *Alteration {
	a.ops = append(a.ops, alterOp{op: sql.OpRenameColumn, from: from, to: to})
	return a
}

// DropColumn drops one or more columns.
func (a *Alteration) DropColumn(columns ...string) *Alteration {
	a.ops = append(a.ops, alterOp{op: sql.OpDropColumn, columns: columns})
	return a
}

// Len returns the number of collected operations.
func (a *Alteration) Len() int { return len(a.ops) }

// Plan plans the collected operations for the dialect, in call order.
func (a *Alteration) Plan(name string) (*Plan, error) {
	d, err := dialect.Canonical(name)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Dialect: d, Table: a.table}
	for _, op := range a.ops {
		var (
			p   *Plan
			err error
		)
		switch op.op {
		case sql.OpRenameColumn:
			p, err = PlanRename(a.table, op.from, op.to, d)
		case sql.OpDropColumn:
			p, err = PlanDrop(a.table, d, op.columns...)
		}
		if err != nil {
			return nil, err
		}
		if err := plan.Append(p); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// raw compiles a raw statement for the grammar.
func raw(g *dialect.Grammar, table string, text string, args ...any) (*sql.Statement, error) {
	stmt, err := sql.Compile(sql.RawStmt(sql.Raw(text, args...)), g.Name)
	if err != nil {
		return nil, err
	}
	stmt.Table = table
	return stmt, nil
}

// build renders a statement with a builder of the grammar.
func build(g *dialect.Grammar, op sql.Op, table string, fn func(*sql.Builder)) (*sql.Statement, error) {
	b := sql.NewBuilder(g)
	fn(b)
	return b.Statement(op, table)
}
