// Package sql compiles abstract query descriptions into dialect specific
// SQL text and bindings, and executes them through database/sql.
//
// # Queries
//
// A Query is an immutable description of one operation. Compiling it for a
// dialect yields a Statement:
//
//	q := sql.Table("test_table_two").Truncate()
//	stmt, err := sql.Compile(q, dialect.Postgres)
//	// stmt.SQL == `truncate "test_table_two" restart identity`
//
// The same query compiles for every dialect:
//
//	stmts, err := sql.CompileAll(ctx, q, nil)
//
// # Raw Fragments
//
// Raw fragments are copied verbatim. "?" binds a value, "??" binds an
// identifier and "\?" is a literal question mark. Fragments and functions
// can be nested as bindings of other fragments:
//
//	sql.Raw("select * from ?? where created_at < ?", "events", sql.Fn.Now())
//
// # Column Info
//
// ColumnInfo queries compile to the engine introspection statement. Their
// rows are normalized with NormalizeColumns into ColumnInfo records; the
// shape of the records is uniform, their values are engine native.
//
// # Placeholders
//
// Compiled statements use "?" except on Oracle, which uses ":1", ":2", ...
// Statement.DriverSQL rewrites the placeholders to "$n" for PostgreSQL; a
// question mark that is not a placeholder is sent as written.
package sql
