package schema

import (
	"errors"
	"testing"

	"github.com/jarcodallo/knex/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// derive runs the derive step of the plan against the given query results,
// one row set per preceding query step.
func derive(t *testing.T, plan *Plan, rows ...[]map[string]any) ([]*Step, error) {
	t.Helper()
	var res Results
	for i, s := range plan.Steps {
		if s.Derive != nil {
			return s.Derive(res)
		}
		require.Less(t, i, len(rows))
		res = append(res, &Result{Step: s, Rows: rows[i]})
	}
	t.Fatal("plan has no derive step")
	return nil, nil
}

func sqls(steps []*Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Stmt.SQL
	}
	return out
}

func TestMySQLRename_Derive(t *testing.T) {
	tests := []struct {
		name  string
		field map[string]any
		want  string
	}{
		{
			name:  "nullable",
			field: map[string]any{"Field": "about", "Type": "text", "Null": "YES", "Default": nil, "Extra": ""},
			want:  "alter table `accounts` change `about` `about_col` text",
		},
		{
			name:  "default",
			field: map[string]any{"Field": "about", "Type": "varchar(255)", "Null": "NO", "Default": "it's", "Extra": ""},
			want:  "alter table `accounts` change `about` `about_col` varchar(255) NOT NULL DEFAULT 'it''s'",
		},
		{
			name:  "timestamp",
			field: map[string]any{"Field": "about", "Type": "timestamp", "Null": "NO", "Default": "CURRENT_TIMESTAMP", "Extra": "DEFAULT_GENERATED on update CURRENT_TIMESTAMP"},
			want:  "alter table `accounts` change `about` `about_col` timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP",
		},
		{
			name:  "auto increment",
			field: map[string]any{"field": "About", "type": []byte("int unsigned"), "null": "NO", "extra": "auto_increment"},
			want:  "alter table `accounts` change `about` `about_col` int unsigned NOT NULL AUTO_INCREMENT",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanRename("accounts", "about", "about_col", dialect.MySQL)
			require.NoError(t, err)
			steps, err := derive(t, plan, []map[string]any{tt.field})
			require.NoError(t, err)
			require.Len(t, steps, 1)
			assert.Equal(t, StepChange, steps[0].Name)
			assert.Equal(t, tt.want, steps[0].Stmt.SQL)
		})
	}
}

func TestMySQLRename_Missing(t *testing.T) {
	plan, err := PlanRename("accounts", "about", "about_col", dialect.MySQL)
	require.NoError(t, err)
	_, err = derive(t, plan, nil)
	assert.True(t, errors.Is(err, ErrColumnNotFound))
}

var (
	accountsInfo = []map[string]any{
		{"cid": int64(0), "name": "id", "type": "integer", "notnull": int64(0), "dflt_value": nil, "pk": int64(1)},
		{"cid": int64(1), "name": "about", "type": "text", "notnull": int64(0), "dflt_value": nil, "pk": int64(0)},
		{"cid": int64(2), "name": "name", "type": "varchar(255)", "notnull": int64(1), "dflt_value": "'x'", "pk": int64(0)},
		{"cid": int64(3), "name": "created_at", "type": "datetime", "notnull": int64(0), "dflt_value": "datetime('now')", "pk": int64(0)},
	}
	accountsDef = []map[string]any{
		{"sql": `CREATE TABLE "accounts" ("id" integer primary key autoincrement, "about" text unique, "name" varchar(255) not null default 'x', "created_at" datetime default (datetime('now')))`},
	}
	accountsIndexes = []map[string]any{
		{"index_name": "accounts_name_index", "is_unique": int64(0), "origin": "c", "is_partial": int64(0), "column_name": "name"},
		{"index_name": "sqlite_autoindex_accounts_1", "is_unique": int64(1), "origin": "u", "is_partial": int64(0), "column_name": "about"},
	}
)

func TestRebuild_Rename(t *testing.T) {
	plan, err := PlanRename("accounts", "about", "bio", dialect.SQLite)
	require.NoError(t, err)
	steps, err := derive(t, plan, accountsInfo, accountsDef, accountsIndexes)
	require.NoError(t, err)
	shadow := ShadowName("accounts", "rename:about>bio")
	assert.Equal(t, []string{
		`create table "` + shadow + `" ("id" integer primary key autoincrement, "bio" text, "name" varchar(255) not null default 'x', "created_at" datetime default (datetime('now')))`,
		`insert into "` + shadow + `" ("id", "bio", "name", "created_at") select "id", "about", "name", "created_at" from "accounts"`,
		`drop table "accounts"`,
		`alter table "` + shadow + `" rename to "accounts"`,
		`create index "accounts_name_index" on "accounts" ("name")`,
		`create unique index "accounts_bio_unique" on "accounts" ("bio")`,
	}, sqls(steps))
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	assert.Equal(t, []string{StepCreateShadow, StepCopy, StepDropOriginal, StepSwap, StepIndex, StepIndex}, names)
	assert.Equal(t, shadow, steps[0].Shadow)
	assert.Empty(t, steps[0].Warnings)
}

func TestRebuild_Drop(t *testing.T) {
	plan, err := PlanDrop("accounts", dialect.SQLite, "name", "created_at")
	require.NoError(t, err)
	steps, err := derive(t, plan, accountsInfo, accountsDef, accountsIndexes)
	require.NoError(t, err)
	shadow := ShadowName("accounts", "drop:created_at,drop:name")
	assert.Equal(t, []string{
		`create table "` + shadow + `" ("id" integer primary key autoincrement, "about" text)`,
		`insert into "` + shadow + `" ("id", "about") select "id", "about" from "accounts"`,
		`drop table "accounts"`,
		`alter table "` + shadow + `" rename to "accounts"`,
		`create unique index "accounts_about_unique" on "accounts" ("about")`,
	}, sqls(steps))
	require.Len(t, steps[0].Warnings, 1)
	assert.Contains(t, steps[0].Warnings[0], "accounts_name_index")
}

func TestRebuild_CompositeKey(t *testing.T) {
	info := []map[string]any{
		{"name": "a", "type": "integer", "notnull": int64(1), "pk": int64(2)},
		{"name": "b", "type": "text", "notnull": int64(1), "pk": int64(1)},
		{"name": "c", "type": "", "notnull": int64(0), "pk": int64(0)},
	}
	def := []map[string]any{{"sql": `CREATE TABLE t (a integer not null, b text not null, c, d, primary key (b, a), foreign key (a) references o (id))`}}
	plan, err := PlanRename("t", "c", "e", dialect.SQLite)
	require.NoError(t, err)
	steps, err := derive(t, plan, info, def, nil)
	require.NoError(t, err)
	shadow := ShadowName("t", "rename:c>e")
	assert.Equal(t, `create table "`+shadow+`" ("a" integer not null, "b" text not null, "e", primary key ("b", "a"))`, steps[0].Stmt.SQL)
	require.Len(t, steps[0].Warnings, 1)
	assert.Contains(t, steps[0].Warnings[0], "foreign keys")
}

func TestRebuild_GeneratedAndCollation(t *testing.T) {
	info := []map[string]any{
		{"name": "id", "type": "integer", "pk": int64(1), "hidden": int64(0)},
		{"name": "name", "type": "text", "hidden": int64(0)},
		{"name": "name_len", "type": "integer", "hidden": int64(3)},
		{"name": "label", "type": "text", "hidden": int64(2)},
		{"name": "about", "type": "text", "hidden": int64(0)},
	}
	def := []map[string]any{{"sql": `CREATE TABLE t (id integer primary key, name text collate "NOCASE", ` +
		`name_len integer generated always as (length(name)) stored, label text as ('#' || id), about text collate rtrim)`}}

	plan, err := PlanDrop("t", dialect.SQLite, "about")
	require.NoError(t, err)
	steps, err := derive(t, plan, info, def, nil)
	require.NoError(t, err)
	shadow := ShadowName("t", "drop:about")
	assert.Equal(t, []string{
		`create table "` + shadow + `" ("id" integer, "name" text collate "NOCASE", "name_len" integer generated always as (length(name)) stored, "label" text generated always as ('#' || id) virtual, primary key ("id"))`,
		`insert into "` + shadow + `" ("id", "name") select "id", "name" from "t"`,
		`drop table "t"`,
		`alter table "` + shadow + `" rename to "t"`,
	}, sqls(steps))

	t.Run("RenameReferenced", func(t *testing.T) {
		plan, err := PlanRename("t", "name", "title", dialect.SQLite)
		require.NoError(t, err)
		_, err = derive(t, plan, info, def, nil)
		assert.True(t, errors.Is(err, ErrUnsupportedColumn))
		assert.ErrorContains(t, err, "name_len")
	})
	t.Run("DropGenerated", func(t *testing.T) {
		plan, err := PlanDrop("t", dialect.SQLite, "label")
		require.NoError(t, err)
		steps, err := derive(t, plan, info, def, nil)
		require.NoError(t, err)
		assert.NotContains(t, steps[0].Stmt.SQL, "label")
	})
	t.Run("MissingExpression", func(t *testing.T) {
		plan, err := PlanDrop("t", dialect.SQLite, "about")
		require.NoError(t, err)
		_, err = derive(t, plan, info, []map[string]any{{"sql": `CREATE TABLE t (id integer primary key, name text, about text)`}}, nil)
		assert.True(t, errors.Is(err, ErrUnsupportedColumn))
	})
	t.Run("VirtualTableColumn", func(t *testing.T) {
		info := []map[string]any{
			{"name": "body", "type": "", "hidden": int64(0)},
			{"name": "rank", "type": "", "hidden": int64(1)},
		}
		plan, err := PlanDrop("docs", dialect.SQLite, "body")
		require.NoError(t, err)
		_, err = derive(t, plan, info, nil, nil)
		assert.True(t, errors.Is(err, ErrUnsupportedColumn))
	})
}

func TestColumnDefs(t *testing.T) {
	defs := columnDefs("CREATE TABLE \"odd (name\" (\"a,b\" text default 'x,(y', [c] int collate nocase, `d` as (a + (b)) stored, " +
		"CONSTRAINT pk primary key (c), unique (d), check (c > 0))")
	assert.Equal(t, map[string]string{
		"a,b": "text default 'x,(y'",
		"c":   "int collate nocase",
		"d":   "as (a + (b)) stored",
	}, defs)
	assert.Equal(t, "nocase", collation(defs["c"]))
	assert.Empty(t, collation("text default 'collate x'"))
	assert.Equal(t, "a + (b)", generatedExpr(defs["d"]))
	assert.Empty(t, generatedExpr(defs["a,b"]))
}

func TestRebuild_Errors(t *testing.T) {
	t.Run("TableNotFound", func(t *testing.T) {
		plan, err := PlanDrop("missing", dialect.SQLite, "a")
		require.NoError(t, err)
		_, err = derive(t, plan, nil, nil, nil)
		assert.True(t, errors.Is(err, ErrTableNotFound))
	})
	t.Run("ColumnNotFound", func(t *testing.T) {
		plan, err := PlanRename("accounts", "missing", "x", dialect.SQLite)
		require.NoError(t, err)
		_, err = derive(t, plan, accountsInfo, accountsDef, accountsIndexes)
		assert.True(t, errors.Is(err, ErrColumnNotFound))
	})
	t.Run("ColumnExists", func(t *testing.T) {
		plan, err := PlanRename("accounts", "about", "name", dialect.SQLite)
		require.NoError(t, err)
		_, err = derive(t, plan, accountsInfo, accountsDef, accountsIndexes)
		assert.ErrorContains(t, err, "already exists")
	})
	t.Run("PrimaryKey", func(t *testing.T) {
		plan, err := PlanDrop("accounts", dialect.SQLite, "id")
		require.NoError(t, err)
		_, err = derive(t, plan, accountsInfo, accountsDef, accountsIndexes)
		assert.ErrorContains(t, err, "primary key")
	})
	t.Run("ExpressionIndex", func(t *testing.T) {
		plan, err := PlanDrop("accounts", dialect.SQLite, "about")
		require.NoError(t, err)
		idx := []map[string]any{{"index_name": "lower_name", "is_unique": int64(0), "origin": "c", "is_partial": int64(0), "column_name": nil}}
		_, err = derive(t, plan, accountsInfo, accountsDef, idx)
		assert.True(t, errors.Is(err, ErrUnsupportedIndex))
	})
	t.Run("PartialIndex", func(t *testing.T) {
		plan, err := PlanDrop("accounts", dialect.SQLite, "about")
		require.NoError(t, err)
		idx := []map[string]any{{"index_name": "active_name", "is_unique": int64(0), "origin": "c", "is_partial": int64(1), "column_name": "name"}}
		_, err = derive(t, plan, accountsInfo, accountsDef, idx)
		assert.True(t, errors.Is(err, ErrUnsupportedIndex))
	})
	t.Run("EveryColumn", func(t *testing.T) {
		info := []map[string]any{{"name": "a", "type": "text", "notnull": int64(0), "pk": int64(0)}}
		plan, err := PlanDrop("t", dialect.SQLite, "a")
		require.NoError(t, err)
		_, err = derive(t, plan, info, nil, nil)
		assert.ErrorContains(t, err, "every column")
	})
}
