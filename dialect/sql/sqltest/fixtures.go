package sqltest

import (
	"fmt"
	"os"
	"testing"

	"github.com/jarcodallo/knex/dialect/sql"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// Case is one fixture: a query description, the statements expected per
// dialect and, for introspection cases, raw driver rows with the records
// they normalize to.
type Case struct {
	Name            string                                `yaml:"name"`
	Op              string                                `yaml:"op"`
	Table           string                                `yaml:"table"`
	Raw             string                                `yaml:"raw"`
	Bindings        []any                                 `yaml:"bindings"`
	Columns         []string                              `yaml:"columns"`
	From            string                                `yaml:"from"`
	To              string                                `yaml:"to"`
	Database        string                                `yaml:"database"`
	RestartIdentity bool                                  `yaml:"restartIdentity"`
	Expect          map[string]Expectation                `yaml:"expect"`
	Rows            map[string][]map[string]any           `yaml:"rows"`
	Want            map[string]map[string]*sql.ColumnInfo `yaml:"want"`
}

// LoadCases reads the fixtures of a YAML file.
func LoadCases(path string) ([]*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sqltest: read fixtures: %w", err)
	}
	var cases []*Case
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("sqltest: decode %s: %w", path, err)
	}
	return cases, nil
}

// Query builds the query described by the case.
func (c *Case) Query() (*sql.Query, error) {
	base := sql.Table(c.Table)
	if c.Raw != "" && c.Op != "raw" {
		base = sql.TableRaw(sql.Raw(c.Raw, c.Bindings...))
	}
	switch c.Op {
	case "select", "":
		return base.Select(c.Columns...), nil
	case "count":
		return base.Count(), nil
	case "truncate":
		var opts []sql.TruncateOption
		if c.RestartIdentity {
			opts = append(opts, sql.RestartIdentity())
		}
		return base.Truncate(opts...), nil
	case "raw":
		return sql.RawStmt(sql.Raw(c.Raw, c.Bindings...)), nil
	case "columnInfo":
		return base.ColumnInfo(c.Columns...), nil
	case "renameColumn":
		return base.RenameColumn(c.From, c.To), nil
	case "dropColumn":
		return base.DropColumn(c.Columns...), nil
	default:
		return nil, fmt.Errorf("sqltest: unknown op %q in case %q", c.Op, c.Name)
	}
}

// Run asserts every case as a subtest.
func Run(t *testing.T, cases []*Case) {
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			q, err := c.Query()
			require.NoError(t, err)
			var opts []sql.CompileOption
			if c.Database != "" {
				opts = append(opts, sql.WithDatabase(c.Database))
			}
			tr := New(t, opts...)
			for d, e := range c.Expect {
				tr.Expect(d, e.SQL, e.Bindings...)
			}
			tr.Run(q)
			for d, rows := range c.Rows {
				ExpectColumns(t, d, rows, c.Want[d])
			}
		})
	}
}
