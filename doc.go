// Package knex compiles query descriptions for MySQL, PostgreSQL, SQLite and
// Oracle, and plans the column alterations each engine needs.
//
// A Client binds a dialect and, optionally, a driver:
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	client, err := knex.New(dialect.Postgres, knex.Driver(drv), knex.Logger(logger))
//
//	stmt, err := client.Compile(client.Table("test_table_two").Truncate())
//	// stmt.SQL == `truncate "test_table_two" restart identity`
//
//	cols, err := client.ColumnInfo(ctx, "datatype_test")
//	_, err = client.Schema().Table(ctx, "accounts", func(t *schema.Alteration) {
//	    t.RenameColumn("about", "about_col")
//	})
//
// Statement compilation lives in dialect/sql, alteration planning in
// dialect/sql/schema.
package knex
