package schema

import (
	"errors"
	"regexp"
	"testing"

	"github.com/jarcodallo/knex/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRename_Direct(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{dialect.Postgres, `alter table "accounts" rename "about" to "about_col"`},
		{"oracledb", `alter table "accounts" rename column "about" to "about_col"`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			plan, err := PlanRename("accounts", "about", "about_col", tt.dialect)
			require.NoError(t, err)
			require.True(t, plan.Fixed())
			require.Len(t, plan.Steps, 1)
			assert.Equal(t, StepAlter, plan.Steps[0].Name)
			assert.Equal(t, tt.want, plan.Steps[0].Stmt.SQL)
			assert.Empty(t, plan.Steps[0].Stmt.Args)
		})
	}
}

func TestPlanDrop_Direct(t *testing.T) {
	tests := []struct {
		dialect string
		columns []string
		want    string
	}{
		{dialect.MySQL, []string{"first_name"}, "alter table `accounts` drop `first_name`"},
		{dialect.MySQL, []string{"first_name", "last_name"}, "alter table `accounts` drop `first_name`, drop `last_name`"},
		{dialect.Postgres, []string{"first_name"}, `alter table "accounts" drop column "first_name"`},
		{dialect.Oracle, []string{"first_name", "last_name"}, `alter table "accounts" drop ("first_name", "last_name")`},
	}
	for _, tt := range tests {
		plan, err := PlanDrop("accounts", tt.dialect, tt.columns...)
		require.NoError(t, err)
		require.Len(t, plan.Statements(), 1)
		assert.Equal(t, tt.want, plan.Statements()[0].SQL)
	}
}

func TestPlanRename_MySQL(t *testing.T) {
	plan, err := PlanRename("accounts", "about", "about_col", dialect.MySQL)
	require.NoError(t, err)
	require.False(t, plan.Fixed())
	require.Len(t, plan.Steps, 2)
	intro := plan.Steps[0]
	assert.Equal(t, StepIntrospect, intro.Name)
	assert.True(t, intro.Query)
	assert.Equal(t, "show fields from `accounts` where field = ?", intro.Stmt.SQL)
	assert.Equal(t, []any{"about"}, intro.Stmt.Args)
	assert.Equal(t, StepDerive, plan.Steps[1].Name)
	assert.NotNil(t, plan.Steps[1].Derive)
}

func TestPlanRebuild_Steps(t *testing.T) {
	plan, err := PlanRename("accounts", "about", "about_col", "sqlite")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 4)
	assert.Equal(t, dialect.SQLite, plan.Dialect)
	assert.Equal(t, `PRAGMA table_xinfo("accounts")`, plan.Steps[0].Stmt.SQL)
	assert.Equal(t, "select sql from sqlite_master where type = 'table' and name = ?", plan.Steps[1].Stmt.SQL)
	assert.Equal(t, []any{"accounts"}, plan.Steps[1].Stmt.Args)
	assert.Equal(t, indexQuery, plan.Steps[2].Stmt.SQL)
	assert.Equal(t, []any{"accounts"}, plan.Steps[2].Stmt.Args)
	assert.Equal(t, ShadowName("accounts", "rename:about>about_col"), plan.Steps[3].Shadow)
	for _, s := range plan.Steps[:3] {
		assert.True(t, s.Query)
	}
}

func TestShadowName(t *testing.T) {
	a := ShadowName("accounts", "drop:first_name")
	assert.Regexp(t, regexp.MustCompile(`^_knex_tmp_accounts_[0-9a-f]{8}$`), a)
	assert.Equal(t, a, ShadowName("accounts", "drop:first_name"))
	assert.NotEqual(t, a, ShadowName("accounts", "drop:last_name"))
}

func TestPlan_Errors(t *testing.T) {
	_, err := PlanRename("accounts", "a", "b", "mssql")
	assert.True(t, errors.Is(err, dialect.ErrUnknownDialect))
	_, err = PlanRename("accounts", "", "b", dialect.Postgres)
	assert.Error(t, err)
	_, err = PlanDrop("accounts", dialect.Postgres)
	assert.Error(t, err)
	_, err = PlanDrop("", dialect.MySQL, "a")
	assert.Error(t, err)
}

func TestAlteration_Plan(t *testing.T) {
	a := Alter("accounts", func(t *Alteration) {
		t.RenameColumn("about", "about_col")
		t.DropColumn("first_name")
	})
	assert.Equal(t, "accounts", a.Table())
	assert.Equal(t, 2, a.Len())

	plan, err := a.Plan("pg")
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, plan.Dialect)
	var got []string
	for _, s := range plan.Statements() {
		got = append(got, s.SQL)
	}
	assert.Equal(t, []string{
		`alter table "accounts" rename "about" to "about_col"`,
		`alter table "accounts" drop column "first_name"`,
	}, got)
	assert.Equal(t, "1. [alter] alter table \"accounts\" rename \"about\" to \"about_col\"\n"+
		"2. [alter] alter table \"accounts\" drop column \"first_name\"\n", plan.String())

	plan, err = a.Plan(dialect.SQLite)
	require.NoError(t, err)
	assert.Len(t, plan.Steps, 8)
	assert.False(t, plan.Fixed())
}

func TestPlan_Append(t *testing.T) {
	p := &Plan{Dialect: dialect.MySQL, Table: "a"}
	require.Error(t, p.Append(&Plan{Dialect: dialect.MySQL, Table: "b"}))
	require.NoError(t, p.Append(&Plan{Dialect: dialect.MySQL, Table: "a", Steps: []*Step{{Name: StepAlter}}}))
	assert.Len(t, p.Steps, 1)
}

func TestResults(t *testing.T) {
	a, b := &Step{Name: StepIntrospect}, &Step{Name: StepChange}
	res := Results{{Step: a}, {Step: b, Affected: 3}}
	assert.Same(t, res[0], res.Of(a))
	assert.Same(t, res[1], res.Get(StepChange))
	assert.Same(t, res[1], res.Last())
	assert.Nil(t, res.Of(&Step{}))
	assert.Nil(t, Results(nil).Last())
}
