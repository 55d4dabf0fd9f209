package knex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql"
	"github.com/jarcodallo/knex/dialect/sql/schema"
)

// Client compiles queries for one dialect and, when it has a driver,
// executes them.
type Client struct {
	// Fn builds dialect-aware function expressions.
	Fn sql.FnBuilder

	grammar  *dialect.Grammar
	drv      dialect.Driver
	database string
	logger   *slog.Logger
	observer sql.Observer
	cache    Cache
	debug    bool
}

// Option configures a Client.
type Option func(*Client)

// Driver sets the driver statements are executed on.
func Driver(drv dialect.Driver) Option {
	return func(c *Client) {
		c.drv = drv
	}
}

// Database sets the database name used by column introspection on MySQL
// and PostgreSQL. Open reads it from the DSN when the DSN names one.
//
// Without a name, the statement filters on the current database of the
// connection, database() on MySQL and current_database() on PostgreSQL,
// instead of binding a second value. The result is the same for a
// connection opened on the introspected database; the statement text and
// its bindings differ.
func Database(name string) Option {
	return func(c *Client) {
		c.database = name
	}
}

// Logger sets the logger. Default discards.
func Logger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// Debug logs every executed statement with the client logger.
func Debug() Option {
	return func(c *Client) {
		c.debug = true
	}
}

// Observer registers a function called with every compiled statement.
func Observer(o sql.Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithCache caches column introspection results. Entries of a table are
// invalidated when the client alters it.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// New returns a client of the named dialect.
//
//	client, err := knex.New("pg", knex.Driver(drv))
//	n, err := client.Exec(ctx, client.Table("test_table_two").Truncate())
func New(name string, opts ...Option) (*Client, error) {
	g, err := dialect.Get(name)
	if err != nil {
		return nil, err
	}
	c := &Client{
		Fn:      sql.Fn,
		grammar: g,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.drv != nil {
		if d, err := dialect.Canonical(c.drv.Dialect()); err != nil || d != g.Name {
			return nil, fmt.Errorf("knex: driver dialect %q does not match client dialect %q", c.drv.Dialect(), g.Name)
		}
		if c.debug {
			c.drv = sql.NewDebugDriver(c.drv, sql.DebugWithLogger(c.logger))
		}
	}
	return c, nil
}

// Open opens a database of the named dialect and returns a client
// executing on it. The database/sql driver must be registered by the caller.
func Open(name, source string, opts ...Option) (*Client, error) {
	drv, err := sql.Open(name, source)
	if err != nil {
		return nil, err
	}
	if db, derr := sql.DatabaseFromDSN(name, source); derr == nil && db != "" {
		opts = append([]Option{Database(db)}, opts...)
	}
	c, err := New(name, append(opts, Driver(drv))...)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return c, nil
}

// Dialect returns the canonical dialect name of the client.
func (c *Client) Dialect() string { return c.grammar.Name }

// Table starts a query on the named table.
func (c *Client) Table(name string) *sql.Query { return sql.Table(name) }

// TableRaw starts a query whose target is a raw expression.
func (c *Client) TableRaw(e sql.Expr) *sql.Query { return sql.TableRaw(e) }

// Raw returns a raw fragment. See sql.Raw.
func (c *Client) Raw(text string, args ...any) *sql.Fragment { return sql.Raw(text, args...) }

// Compile compiles the query for the client dialect.
func (c *Client) Compile(q *sql.Query) (*sql.Statement, error) {
	opts := []sql.CompileOption{sql.WithDatabase(c.database)}
	if c.observer != nil {
		opts = append(opts, sql.WithObserver(c.observer))
	}
	return sql.Compile(q, c.grammar.Name, opts...)
}

// Exec compiles and executes a statement and returns the number of affected
// rows, or -1 when the database does not report it.
func (c *Client) Exec(ctx context.Context, q *sql.Query) (int64, error) {
	stmt, err := c.prepare(q)
	if err != nil {
		return 0, err
	}
	n, err := sql.ExecAffected(ctx, c.drv, stmt.DriverSQL(), stmt.Args)
	if err != nil {
		return 0, &QueryError{Table: stmt.Table, Op: stmt.Op.String(), Err: err}
	}
	return n, nil
}

// Query compiles and executes a query and returns its rows.
func (c *Client) Query(ctx context.Context, q *sql.Query) ([]map[string]any, error) {
	stmt, err := c.prepare(q)
	if err != nil {
		return nil, err
	}
	rows, err := sql.QueryMaps(ctx, c.drv, stmt.DriverSQL(), stmt.Args)
	if err != nil {
		return nil, &QueryError{Table: stmt.Table, Op: stmt.Op.String(), Err: err}
	}
	return rows, nil
}

// Count runs a count query and returns the count, read from the
// dialect-specific result key.
func (c *Client) Count(ctx context.Context, q *sql.Query) (int64, error) {
	if q.Op() != sql.OpCount {
		return 0, fmt.Errorf("knex: count requires a count query, got %s", q.Op())
	}
	rows, err := c.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 {
		return 0, &QueryError{Table: q.TableName(), Op: q.Op().String(), Err: fmt.Errorf("expected 1 row, got %d", len(rows))}
	}
	key := sql.CountKey(c.grammar.Name, q.CountExpr())
	v, ok := sql.ResultValue(rows[0], key)
	if !ok {
		return 0, &QueryError{Table: q.TableName(), Op: q.Op().String(), Err: fmt.Errorf("missing result key %q", key)}
	}
	return toInt64(v)
}

// ColumnInfo returns the normalized columns of the table. With column
// names, only those columns are returned.
func (c *Client) ColumnInfo(ctx context.Context, table string, columns ...string) (map[string]*sql.ColumnInfo, error) {
	key := CacheKey{Dialect: c.grammar.Name, Table: table, Operation: sql.OpColumnInfo.String(), Columns: strings.Join(columns, ",")}
	if cols, ok := c.cached(ctx, key); ok {
		return cols, nil
	}
	stmt, err := c.prepare(c.Table(table).ColumnInfo(columns...))
	if err != nil {
		return nil, err
	}
	cols, err := sql.QueryColumns(ctx, c.drv, stmt)
	if err != nil {
		return nil, &QueryError{Table: table, Op: stmt.Op.String(), Err: err}
	}
	c.store(ctx, key, cols)
	return cols, nil
}

// Column returns the normalized record of one column, or nil if the table
// has no such column.
func (c *Client) Column(ctx context.Context, table, column string) (*sql.ColumnInfo, error) {
	cols, err := c.ColumnInfo(ctx, table, column)
	if err != nil {
		return nil, err
	}
	return cols[column], nil
}

// Schema returns the schema alteration entry point of the client.
func (c *Client) Schema() *SchemaBuilder {
	return &SchemaBuilder{client: c}
}

// Close closes the driver of the client.
func (c *Client) Close() error {
	if c.drv == nil {
		return nil
	}
	return c.drv.Close()
}

func (c *Client) prepare(q *sql.Query) (*sql.Statement, error) {
	if c.drv == nil {
		return nil, ErrNoDriver
	}
	return c.Compile(q)
}

// SchemaBuilder plans and runs column alterations for a client.
type SchemaBuilder struct {
	client *Client
}

// Plan collects the alterations of fn and plans them for the client dialect.
func (s *SchemaBuilder) Plan(table string, fn func(*schema.Alteration)) (*schema.Plan, error) {
	return schema.Alter(table, fn).Plan(s.client.grammar.Name)
}

// Validate reports breaking changes and dialect limitations of the
// alterations of fn.
func (s *SchemaBuilder) Validate(table string, fn func(*schema.Alteration), opts ...schema.ValidateOption) *schema.ValidationResult {
	return schema.Validate(schema.Alter(table, fn), s.client.grammar.Name, opts...)
}

// Table alters the table with the alterations collected by fn.
//
//	_, err := client.Schema().Table(ctx, "accounts", func(t *schema.Alteration) {
//	    t.RenameColumn("about", "about_col")
//	})
func (s *SchemaBuilder) Table(ctx context.Context, table string, fn func(*schema.Alteration)) (schema.Results, error) {
	c := s.client
	if c.drv == nil {
		return nil, ErrNoDriver
	}
	plan, err := s.Plan(table, fn)
	if err != nil {
		return nil, &AlterError{Table: table, Dialect: c.grammar.Name, Err: err}
	}
	opts := []schema.RunOption{schema.WithLogger(c.logger)}
	if c.observer != nil {
		opts = append(opts, schema.WithObserver(c.observer))
	}
	c.logger.InfoContext(ctx, "altering table", "table", table, "dialect", c.grammar.Name, "steps", len(plan.Steps))
	res, err := schema.NewRunner(c.drv, opts...).Run(ctx, plan)
	c.invalidate(ctx, table)
	if err != nil {
		return res, &AlterError{Table: table, Dialect: c.grammar.Name, Err: err}
	}
	return res, nil
}

func toInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		var n int64
		if _, err := fmt.Sscan(v, &n); err != nil {
			return 0, fmt.Errorf("knex: invalid count %q: %w", v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("knex: invalid count type %T", v)
	}
}
