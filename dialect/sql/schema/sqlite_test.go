package schema

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.Driver {
	t.Helper()
	drv, err := sql.Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	// Every connection opens its own in-memory database.
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })
	return drv
}

func mustExec(t *testing.T, drv *sql.Driver, query string, args ...any) {
	t.Helper()
	_, err := sql.ExecAffected(context.Background(), drv, query, args)
	require.NoError(t, err)
}

func alter(t *testing.T, drv *sql.Driver, fn func(*Alteration)) {
	t.Helper()
	plan, err := Alter("accounts", fn).Plan(dialect.SQLite)
	require.NoError(t, err)
	_, err = NewRunner(drv).Run(context.Background(), plan)
	require.NoError(t, err)
}

func columns(t *testing.T, drv *sql.Driver) map[string]*sql.ColumnInfo {
	t.Helper()
	stmt, err := sql.Compile(sql.Table("accounts").ColumnInfo(), dialect.SQLite)
	require.NoError(t, err)
	cols, err := sql.QueryColumns(context.Background(), drv, stmt)
	require.NoError(t, err)
	return cols
}

func count(t *testing.T, drv *sql.Driver) any {
	t.Helper()
	stmt, err := sql.Compile(sql.Table("accounts").Count(), dialect.SQLite)
	require.NoError(t, err)
	rows, err := sql.QueryMaps(context.Background(), drv, stmt.SQL, stmt.Args)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0][sql.CountKey(dialect.SQLite)]
}

func TestSQLite_Rebuild(t *testing.T) {
	ctx := context.Background()
	drv := openSQLite(t)
	mustExec(t, drv, `create table accounts (
		id integer primary key autoincrement,
		first_name varchar(255),
		last_name varchar(255),
		email varchar(255) unique,
		about text,
		logins integer not null default 0,
		created_at datetime default CURRENT_TIMESTAMP
	)`)
	mustExec(t, drv, `create index accounts_last_name_index on accounts (last_name)`)
	for i := range 40 {
		mustExec(t, drv, "insert into accounts (first_name, last_name, email) values (?, ?, ?)",
			"Test", "Data", fmt.Sprintf("test%d@example.com", i))
	}

	alter(t, drv, func(a *Alteration) { a.RenameColumn("about", "about_col") })
	cols := columns(t, drv)
	require.Contains(t, cols, "about_col")
	require.NotContains(t, cols, "about")
	require.Equal(t, "text", cols["about_col"].Type)
	require.False(t, cols["logins"].Nullable)
	require.Equal(t, "0", cols["logins"].DefaultValue)
	require.Equal(t, int64(40), count(t, drv))

	alter(t, drv, func(a *Alteration) { a.RenameColumn("about_col", "about") })
	require.Contains(t, columns(t, drv), "about")

	alter(t, drv, func(a *Alteration) { a.DropColumn("first_name") })
	cols = columns(t, drv)
	require.Len(t, cols, 6)
	require.NotContains(t, cols, "first_name")
	require.Equal(t, int64(40), count(t, drv))

	rows, err := sql.QueryMaps(ctx, drv, "select last_name from accounts where email = ?", []any{"test7@example.com"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Data", rows[0]["last_name"])

	rows, err = sql.QueryMaps(ctx, drv, "select name from sqlite_master where type = 'index' and tbl_name = ? order by name", []any{"accounts"})
	require.NoError(t, err)
	var indexes []string
	for _, r := range rows {
		indexes = append(indexes, r["name"].(string))
	}
	require.Equal(t, []string{"accounts_email_unique", "accounts_last_name_index"}, indexes)

	rows, err = sql.QueryMaps(ctx, drv, "select sql from sqlite_master where type = 'table' and name = ?", []any{"accounts"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Contains(t, strings.ToLower(rows[0]["sql"].(string)), "autoincrement")

	// The unique index survives the rebuild.
	_, err = sql.ExecAffected(ctx, drv, "insert into accounts (last_name, email) values (?, ?)", []any{"Data", "test1@example.com"})
	require.Error(t, err)

	// No shadow table is left behind.
	rows, err = sql.QueryMaps(ctx, drv, "select name from sqlite_master where name like ?", []any{"_knex_tmp_%"})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestSQLite_DropIndexedColumn(t *testing.T) {
	drv := openSQLite(t)
	mustExec(t, drv, `create table accounts (id integer primary key, last_name text, about text)`)
	mustExec(t, drv, `create index accounts_last_name_index on accounts (last_name)`)
	mustExec(t, drv, `insert into accounts (last_name, about) values ('Data', 'x')`)

	alter(t, drv, func(a *Alteration) { a.DropColumn("last_name") })
	rows, err := sql.QueryMaps(context.Background(), drv, "select name from sqlite_master where type = 'index'", nil)
	require.NoError(t, err)
	require.Empty(t, rows)
	require.Equal(t, int64(1), count(t, drv))
}

func TestSQLite_RenameMissing(t *testing.T) {
	drv := openSQLite(t)
	mustExec(t, drv, `create table accounts (id integer primary key, about text)`)
	plan, err := PlanRename("accounts", "missing", "other", dialect.SQLite)
	require.NoError(t, err)
	_, err = NewRunner(drv).Run(context.Background(), plan)
	require.ErrorIs(t, err, ErrColumnNotFound)
	require.Len(t, columns(t, drv), 2)
}

func TestSQLite_RebuildKeepsGeneratedAndCollation(t *testing.T) {
	ctx := context.Background()
	drv := openSQLite(t)
	mustExec(t, drv, `create table accounts (
		id integer primary key,
		name text collate nocase,
		first_name text,
		last_name text,
		full_name text generated always as (first_name || ' ' || last_name) virtual,
		name_len integer as (length(name)) stored,
		about text
	)`)
	mustExec(t, drv, "insert into accounts (name, first_name, last_name, about) values (?, ?, ?, ?)", "Bob", "Test", "Data", "x")

	alter(t, drv, func(a *Alteration) { a.DropColumn("about") })
	rows, err := sql.QueryMaps(ctx, drv, "select full_name, name_len from accounts where name = ?", []any{"bob"})
	require.NoError(t, err)
	require.Len(t, rows, 1, "the nocase collation is kept")
	require.Equal(t, "Test Data", rows[0]["full_name"])
	require.Equal(t, int64(3), rows[0]["name_len"])

	rows, err = sql.QueryMaps(ctx, drv, "select name, hidden from pragma_table_xinfo(?) order by cid", []any{"accounts"})
	require.NoError(t, err)
	var got []string
	for _, r := range rows {
		got = append(got, fmt.Sprintf("%v:%v", r["name"], r["hidden"]))
	}
	require.Equal(t, []string{"id:0", "name:0", "first_name:0", "last_name:0", "full_name:2", "name_len:3"}, got)

	// A generated column cannot follow the rename of a column it reads.
	plan, err := PlanRename("accounts", "first_name", "given_name", dialect.SQLite)
	require.NoError(t, err)
	_, err = NewRunner(drv).Run(ctx, plan)
	require.ErrorIs(t, err, ErrUnsupportedColumn)
	rows, err = sql.QueryMaps(ctx, drv, "select first_name from accounts", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
