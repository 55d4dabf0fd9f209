package cli

import (
	"bytes"
	"context"
	stdsql "database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/jarcodallo/knex/dialect"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCompileCommand(t *testing.T) {
	cfg := writeConfig(t, "")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "truncate all dialects",
			args: []string{"compile", "truncate", "test_table_two"},
			want: "-- mysql\ntruncate `test_table_two`;\n" +
				"-- postgres\ntruncate \"test_table_two\" restart identity;\n" +
				"-- sqlite3\ndelete from \"test_table_two\";\n" +
				"-- oracle\ntruncate table \"test_table_two\";\n",
		},
		{
			name: "rename on selected dialects",
			args: []string{"compile", "renameColumn", "accounts", "--from", "about", "--to", "about_col", "-d", "oracle,pg"},
			want: "-- postgres\nalter table \"accounts\" rename \"about\" to \"about_col\";\n" +
				"-- oracle\nalter table \"accounts\" rename column \"about\" to \"about_col\";\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, append(tt.args, "--config", cfg)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	t.Run("yaml", func(t *testing.T) {
		out, _, err := run(t, "compile", "raw", "--raw", "select * from ?? where id = ?", "--binding", "accounts", "--binding", "1", "-d", "mysql", "-o", "yaml", "--config", cfg)
		require.NoError(t, err)
		var got []map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "select * from `accounts` where id = ?", got[0]["sql"])
		assert.Equal(t, []any{"1"}, got[0]["bindings"])
	})

	t.Run("errors", func(t *testing.T) {
		_, _, err := run(t, "compile", "merge", "t", "--config", cfg)
		assert.ErrorContains(t, err, `unknown operation "merge"`)
		_, _, err = run(t, "compile", "truncate", "t", "--restart-identity", "--config", cfg)
		assert.True(t, dialect.IsUnsupported(err))
	})
}

func TestPlanCommand(t *testing.T) {
	cfg := writeConfig(t, "targets:\n  dev:\n    dialect: pg\n    dsn: postgres://localhost/dev\n")

	out, _, err := run(t, "plan", "accounts", "--rename", "about:about_col", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "-- postgres accounts\n1. [alter] alter table \"accounts\" rename \"about\" to \"about_col\"\n", out)

	out, _, err = run(t, "plan", "accounts", "--drop", "first_name", "-d", "sqlite", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "-- sqlite3 accounts\n")
	assert.Contains(t, out, `1. [introspect] PRAGMA table_xinfo("accounts")`)
	assert.Contains(t, out, "[derive] -- derive: computed from the introspection results")
	assert.Contains(t, out, "warning: accounts.first_name: column will be dropped")

	out, _, err = run(t, "plan", "accounts", "--rename", "about:about_col", "-d", "mysql", "-o", "yaml", "--config", cfg)
	require.NoError(t, err)
	var view planView
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, "mysql", view.Dialect)
	require.Len(t, view.Steps, 2)
	assert.Equal(t, "introspect", view.Steps[0].Name)
	assert.True(t, view.Steps[1].Derived)
	assert.NotEmpty(t, view.Warnings)

	_, _, err = run(t, "plan", "accounts", "--config", cfg)
	assert.ErrorContains(t, err, "nothing to alter")
	_, _, err = run(t, "plan", "accounts", "--rename", "about", "--config", cfg)
	assert.ErrorContains(t, err, "expected from:to")
}

func TestAlterCommand_SQLite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dev.db")
	db, err := stdsql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`create table accounts (id integer primary key autoincrement, first_name varchar(255), about text not null default '')`)
	require.NoError(t, err)
	_, err = db.Exec(`create index accounts_first_name_index on accounts (first_name)`)
	require.NoError(t, err)
	for i := range 3 {
		_, err = db.Exec(`insert into accounts (first_name, about) values (?, ?)`, fmt.Sprintf("user%d", i), "hi")
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	cfg := filepath.Join(dir, "knex.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("default: dev\ntargets:\n  dev:\n    dialect: sqlite\n    dsn: "+path+"\n"), 0600))

	out, _, err := run(t, "alter", "accounts", "--rename", "about:about_col", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "altered accounts")

	_, _, err = run(t, "alter", "accounts", "--drop", "first_name", "--config", cfg)
	assert.ErrorContains(t, err, "column will be dropped")

	_, _, err = run(t, "alter", "accounts", "--rename", "missing:other", "--config", cfg)
	assert.ErrorContains(t, err, "column does not exist")

	_, stderr, err := run(t, "alter", "accounts", "--drop", "first_name", "--allow-drop", "-v", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, stderr, "column will be dropped")

	out, _, err = run(t, "columns", "accounts", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "about_col")
	assert.NotContains(t, out, "first_name")

	out, _, err = run(t, "columns", "accounts", "about_col", "-o", "yaml", "--config", cfg)
	require.NoError(t, err)
	var cols map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &cols))
	require.Contains(t, cols, "about_col")

	db, err = stdsql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`select count(*) from accounts`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestOpen_NoTarget(t *testing.T) {
	_, _, err := run(t, "columns", "accounts", "--config", writeConfig(t, ""))
	assert.ErrorContains(t, err, "no target selected")

	cfg := writeConfig(t, "targets:\n  ora:\n    dialect: oracle\n    dsn: oracle://localhost\n")
	_, _, err = run(t, "columns", "accounts", "--config", cfg)
	assert.ErrorContains(t, err, "no database driver is registered for oracle")
}
