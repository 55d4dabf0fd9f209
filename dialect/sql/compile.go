package sql

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jarcodallo/knex/dialect"

	"golang.org/x/sync/errgroup"
)

// Compilation errors.
var (
	// ErrEmptyInsert is returned when an insert has no rows or no columns.
	ErrEmptyInsert = errors.New("dialect/sql: empty insert")
	// ErrUnknownOp is returned for operations the compiler cannot render.
	ErrUnknownOp = errors.New("dialect/sql: unknown operation")
	// ErrNoTable is returned when an operation requires a named table.
	ErrNoTable = errors.New("dialect/sql: operation requires a named table")
)

// Statement is a compiled Query: the SQL text with its bindings in
// placeholder order, ready to be handed to a driver.
type Statement struct {
	// Dialect is the canonical dialect name the statement was compiled for.
	Dialect string `json:"dialect" yaml:"dialect"`
	// Op is the operation kind of the source query.
	Op Op `json:"-" yaml:"-"`
	// SQL is the statement text.
	SQL string `json:"sql" yaml:"sql"`
	// Args holds the bindings. Never nil.
	Args []any `json:"bindings" yaml:"bindings"`
	// Table is the target table name, when known.
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
	// Columns is the column filter of an introspection statement.
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty"`

	// binds holds the byte offsets of the placeholders in SQL.
	binds []int
}

// String returns the statement text.
func (s *Statement) String() string { return s.SQL }

// DriverSQL returns the text handed to the database driver, with every
// placeholder written in the bind style of the driver. Question marks that
// are not placeholders, like an escaped \? of a raw fragment, are kept.
func (s *Statement) DriverSQL() string {
	g, err := dialect.Get(s.Dialect)
	if err != nil || g.BindStyle == g.Placeholder || len(s.binds) == 0 {
		return s.SQL
	}
	var (
		sb   strings.Builder
		prev int
	)
	sb.Grow(len(s.SQL) + 2*len(s.binds))
	for i, off := range s.binds {
		sb.WriteString(s.SQL[prev:off])
		sb.WriteString(g.BindStyle.Format(i + 1))
		prev = off + len(g.Placeholder.Format(i+1))
	}
	sb.WriteString(s.SQL[prev:])
	return sb.String()
}

// Observer is notified with every statement compiled successfully.
type Observer func(*Statement)

type compileConfig struct {
	database string
	observer Observer
}

// CompileOption configures a compilation.
type CompileOption func(*compileConfig)

// WithDatabase sets the database name bound by information_schema
// introspection on MySQL and PostgreSQL. Without it, the filter renders the
// current database function of the engine and binds only the table name.
func WithDatabase(name string) CompileOption {
	return func(c *compileConfig) { c.database = name }
}

// WithObserver registers an observer of compiled statements.
func WithObserver(o Observer) CompileOption {
	return func(c *compileConfig) { c.observer = o }
}

// variant renders the statements whose spelling differs between engines.
type variant interface {
	selectStmt(*Builder, *Query)
	insert(*Builder, *Query)
	truncate(*Builder, *Query)
	columnInfo(*Builder, *Query, string)
	renameColumn(*Builder, *Query)
	dropColumn(*Builder, *Query)
}

func variantOf(name string) variant {
	switch name {
	case dialect.MySQL:
		return mysqlCompiler{}
	case dialect.Postgres:
		return postgresCompiler{}
	case dialect.SQLite:
		return sqliteCompiler{}
	default:
		return oracleCompiler{}
	}
}

// Compile renders the query for the named dialect. It is pure: the same
// query, dialect and options always produce the same statement.
func Compile(q *Query, name string, opts ...CompileOption) (*Statement, error) {
	g, err := dialect.Get(name)
	if err != nil {
		return nil, err
	}
	cfg := &compileConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	b := NewBuilder(g)
	v := variantOf(g.Name)
	switch q.op {
	case OpSelect, OpCount:
		v.selectStmt(b, q)
	case OpInsert:
		v.insert(b, q)
	case OpTruncate:
		v.truncate(b, q)
	case OpRaw:
		if q.raw == nil {
			b.AddError(fmt.Errorf("%w: raw statement without expression", ErrUnknownOp))
			break
		}
		q.raw.Render(b)
	case OpColumnInfo:
		if requireTable(b, q) {
			v.columnInfo(b, q, cfg.database)
		}
	case OpRenameColumn:
		if q.from == "" || q.to == "" {
			b.AddError(fmt.Errorf("dialect/sql: rename column requires both names, got %q and %q", q.from, q.to))
			break
		}
		if requireTable(b, q) {
			v.renameColumn(b, q)
		}
	case OpDropColumn:
		if len(q.columns) == 0 {
			b.AddError(errors.New("dialect/sql: drop column requires at least one column"))
			break
		}
		if requireTable(b, q) {
			v.dropColumn(b, q)
		}
	default:
		b.AddError(fmt.Errorf("%w: %d", ErrUnknownOp, q.op))
	}
	stmt, err := b.Statement(q.op, q.table)
	if err != nil {
		return nil, err
	}
	if q.op == OpColumnInfo {
		stmt.Columns = slices.Clone(q.columns)
	}
	if cfg.observer != nil {
		cfg.observer(stmt)
	}
	return stmt, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(q *Query, name string, opts ...CompileOption) *Statement {
	stmt, err := Compile(q, name, opts...)
	if err != nil {
		panic(err)
	}
	return stmt
}

// Render compiles a standalone expression for the named dialect.
func Render(e Expr, name string) (string, []any, error) {
	g, err := dialect.Get(name)
	if err != nil {
		return "", nil, err
	}
	b := NewBuilder(g)
	e.Render(b)
	return b.Query()
}

// CompileAll compiles the query for every given dialect concurrently and
// returns the statements keyed by canonical dialect name. With no dialects,
// all known dialects are compiled.
func CompileAll(ctx context.Context, q *Query, dialects []string, opts ...CompileOption) (map[string]*Statement, error) {
	if len(dialects) == 0 {
		dialects = dialect.Names()
	}
	var (
		mu  sync.Mutex
		out = make(map[string]*Statement, len(dialects))
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range dialects {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stmt, err := Compile(q, name, opts...)
			if err != nil {
				return fmt.Errorf("dialect/sql: compile %s: %w", name, err)
			}
			mu.Lock()
			out[stmt.Dialect] = stmt
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func requireTable(b *Builder, q *Query) bool {
	if q.table == "" {
		b.AddError(fmt.Errorf("%w: %s", ErrNoTable, q.op))
		return false
	}
	return true
}

// ansi holds the renderings shared by most engines.
type ansi struct{}

func (ansi) target(b *Builder, q *Query) {
	if q.target != nil {
		q.target.Render(b)
		return
	}
	b.Ident(q.table)
}

func (a ansi) selectBody(b *Builder, q *Query) {
	b.WriteString("select ")
	switch {
	case q.op == OpCount:
		b.WriteString("count(")
		if q.count == "*" {
			b.Byte('*')
		} else {
			b.Ident(q.count)
		}
		b.Byte(')')
	case len(q.columns) == 0:
		b.Byte('*')
	default:
		b.IdentComma(q.columns...)
	}
	b.WriteString(" from ")
	a.target(b, q)
	if len(q.where) > 0 {
		b.WriteString(" where ")
		b.Join(" and ", q.where...)
	}
}

func (a ansi) selectStmt(b *Builder, q *Query) {
	a.selectBody(b, q)
	if q.limit != nil {
		b.WriteString(" limit ").Arg(*q.limit)
	}
}

// insertColumns returns the sorted union of the row keys.
func insertColumns(b *Builder, q *Query) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, r := range q.rows {
		for k := range r {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}
	if len(q.rows) == 0 || len(columns) == 0 {
		b.AddError(ErrEmptyInsert)
		return nil
	}
	slices.Sort(columns)
	return columns
}

// values renders one parenthesized row. Missing keys render missing.
func values(b *Builder, columns []string, row map[string]any, missing string) {
	b.Wrap(func(b *Builder) {
		for i, c := range columns {
			if i > 0 {
				b.WriteString(", ")
			}
			if v, ok := row[c]; ok {
				b.Arg(v)
			} else {
				b.WriteString(missing)
			}
		}
	})
}

func (a ansi) insertValues(b *Builder, q *Query, missing string) {
	columns := insertColumns(b, q)
	if columns == nil {
		return
	}
	b.WriteString("insert into ")
	a.target(b, q)
	b.Pad().Wrap(func(b *Builder) { b.IdentComma(columns...) })
	b.WriteString(" values ")
	for i, r := range q.rows {
		if i > 0 {
			b.WriteString(", ")
		}
		values(b, columns, r, missing)
	}
}

func (a ansi) insert(b *Builder, q *Query) { a.insertValues(b, q, "DEFAULT") }

func (a ansi) truncate(b *Builder, q *Query) {
	b.WriteString("truncate ")
	a.target(b, q)
}

// informationSchema renders the information_schema.columns lookup, filtered
// on the database with the given column, or the current one.
func (ansi) informationSchema(b *Builder, q *Query, database, column, current string) {
	b.WriteString("select * from information_schema.columns where table_name = ").
		Arg(q.table).
		WriteString(" and " + column + " = ")
	if database == "" {
		b.WriteString(current)
		return
	}
	b.Arg(database)
}

func (a ansi) columnInfo(b *Builder, q *Query, database string) {
	a.informationSchema(b, q, database, "table_schema", "current_schema()")
}

func (ansi) renameColumn(b *Builder, _ *Query) {
	b.AddError(&dialect.CapabilityError{
		Dialect:    b.Dialect(),
		Capability: dialect.CapDirectColumnRename,
		Hint:       "plan the rename with sql/schema",
	})
}

func (ansi) dropColumn(b *Builder, _ *Query) {
	b.AddError(&dialect.CapabilityError{
		Dialect:    b.Dialect(),
		Capability: dialect.CapDirectColumnDrop,
		Hint:       "plan the drop with sql/schema",
	})
}

func (a ansi) alterTable(b *Builder, q *Query) {
	b.WriteString("alter table ")
	a.target(b, q)
}
