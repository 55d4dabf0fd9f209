package cli

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql"
	"github.com/jarcodallo/knex/dialect/sql/schema"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// queryFlags describe a query on the command line.
type queryFlags struct {
	columns         []string
	from, to        string
	raw             string
	bindings        []string
	limit           int
	restartIdentity bool
	database        string
}

func (f *queryFlags) query(op, table string) (*sql.Query, error) {
	bindings := make([]any, len(f.bindings))
	for i, b := range f.bindings {
		bindings[i] = b
	}
	base := sql.Table(table)
	if f.raw != "" && op != "raw" {
		base = sql.TableRaw(sql.Raw(f.raw, bindings...))
	}
	switch op {
	case "select":
		q := base.Select(f.columns...)
		if f.limit > 0 {
			q = q.Limit(f.limit)
		}
		return q, nil
	case "count":
		return base.Count(f.columns...), nil
	case "truncate":
		if f.restartIdentity {
			return base.Truncate(sql.RestartIdentity()), nil
		}
		return base.Truncate(), nil
	case "raw":
		return sql.RawStmt(sql.Raw(f.raw, bindings...)), nil
	case "columnInfo":
		return base.ColumnInfo(f.columns...), nil
	case "renameColumn":
		return base.RenameColumn(f.from, f.to), nil
	case "dropColumn":
		return base.DropColumn(f.columns...), nil
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

var operations = []string{"select", "count", "truncate", "raw", "columnInfo", "renameColumn", "dropColumn"}

func newCompileCommand(e *env) *cobra.Command {
	var (
		f        queryFlags
		dialects []string
	)
	cmd := &cobra.Command{
		Use:   "compile <operation> [table]",
		Short: "Compile a query for one or more dialects",
		Long: `Compile a query and print the statement of every dialect.

Operations: ` + strings.Join(operations, ", ") + `.
Without --dialect, all dialects are compiled.`,
		Example: `  knex compile truncate test_table_two
  knex compile truncate test_table_two --restart-identity -d pg
  knex compile columnInfo datatype_test --columns uuid --database knex_test
  knex compile renameColumn accounts --from about --to about_col -d pg -d oracle
  knex compile raw --raw "select * from ?? where id = ?" --binding accounts --binding 1`,
		Args: cobra.RangeArgs(1, 2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return operations, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var table string
			if len(args) > 1 {
				table = args[1]
			}
			q, err := f.query(args[0], table)
			if err != nil {
				return err
			}
			stmts, err := sql.CompileAll(cmd.Context(), q, dialects, sql.WithDatabase(f.database))
			if err != nil {
				return err
			}
			ordered := make([]*sql.Statement, 0, len(stmts))
			for _, d := range dialect.Names() {
				if s, ok := stmts[d]; ok {
					ordered = append(ordered, s)
				}
			}
			return e.statements(cmd.OutOrStdout(), ordered)
		},
	}
	cmd.Flags().StringSliceVarP(&dialects, "dialect", "d", nil, "dialects to compile for (default: all)")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "columns of the operation")
	cmd.Flags().StringVar(&f.from, "from", "", "column to rename")
	cmd.Flags().StringVar(&f.to, "to", "", "new column name")
	cmd.Flags().StringVar(&f.raw, "raw", "", "raw statement or raw table expression")
	cmd.Flags().StringArrayVar(&f.bindings, "binding", nil, "binding of the raw fragment, repeatable")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "limit of a select")
	cmd.Flags().BoolVar(&f.restartIdentity, "restart-identity", false, "reset identity counters on truncate")
	cmd.Flags().StringVar(&f.database, "database", "", "database name of a columnInfo query")
	return cmd
}

// alterFlags describe a table alteration on the command line.
type alterFlags struct {
	dialect   string
	renames   []string
	drops     []string
	allowDrop bool
}

func (f *alterFlags) alteration(table string) (*schema.Alteration, error) {
	if len(f.renames) == 0 && len(f.drops) == 0 {
		return nil, fmt.Errorf("nothing to alter, use --rename or --drop")
	}
	for _, r := range f.renames {
		if from, to, ok := strings.Cut(r, ":"); !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid rename %q, expected from:to", r)
		}
	}
	a := schema.NewAlteration(table)
	f.apply(a)
	return a, nil
}

// apply adds the operations of the flags to a. Renames run first.
func (f *alterFlags) apply(a *schema.Alteration) {
	for _, r := range f.renames {
		from, to, _ := strings.Cut(r, ":")
		a.RenameColumn(from, to)
	}
	if len(f.drops) > 0 {
		a.DropColumn(f.drops...)
	}
}

func (f *alterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.renames, "rename", nil, "rename a column, as from:to (repeatable)")
	cmd.Flags().StringSliceVar(&f.drops, "drop", nil, "drop columns")
}

// planView is the YAML rendering of a plan.
type planView struct {
	Dialect  string     `yaml:"dialect"`
	Table    string     `yaml:"table"`
	Steps    []stepView `yaml:"steps"`
	Warnings []string   `yaml:"warnings,omitempty"`
}

type stepView struct {
	Name     string `yaml:"name"`
	SQL      string `yaml:"sql,omitempty"`
	Bindings []any  `yaml:"bindings,omitempty"`
	Derived  bool   `yaml:"derived,omitempty"`
}

func newPlanCommand(e *env) *cobra.Command {
	var f alterFlags
	cmd := &cobra.Command{
		Use:   "plan <table>",
		Short: "Print the steps altering a table",
		Long: `Print the steps a column rename or drop takes on a dialect.

Steps computed from introspection results are listed as derived; their
statements are only known when the plan runs.`,
		Example: `  knex plan accounts --rename about:about_col -d sqlite
  knex plan accounts --drop first_name,last_name -d mysql -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := e.resolveDialect(f.dialect)
			if err != nil {
				return err
			}
			a, err := f.alteration(args[0])
			if err != nil {
				return err
			}
			plan, err := a.Plan(name)
			if err != nil {
				return err
			}
			result := schema.Validate(a, name, schema.AllowDropColumn())
			return writePlan(cmd.OutOrStdout(), e.opts.output, plan, result)
		},
	}
	cmd.Flags().StringVarP(&f.dialect, "dialect", "d", "", "dialect to plan for (default: the target dialect)")
	f.register(cmd)
	return cmd
}

func writePlan(w io.Writer, output string, plan *schema.Plan, result *schema.ValidationResult) error {
	var warnings []string
	for _, v := range slices.Concat(result.Errors, result.Warnings) {
		warnings = append(warnings, v.Error())
	}
	if output == "yaml" {
		view := planView{Dialect: plan.Dialect, Table: plan.Table, Warnings: warnings}
		for _, s := range plan.Steps {
			sv := stepView{Name: s.Name, Derived: s.Derive != nil}
			if s.Stmt != nil {
				sv.SQL, sv.Bindings = s.Stmt.SQL, s.Stmt.Args
			}
			view.Steps = append(view.Steps, sv)
		}
		return writeYAML(w, view)
	}
	fmt.Fprintf(w, "-- %s %s\n%s", plan.Dialect, plan.Table, plan)
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	return nil
}

func newAlterCommand(e *env) *cobra.Command {
	var f alterFlags
	cmd := &cobra.Command{
		Use:   "alter <table>",
		Short: "Rename or drop columns of a table on the target database",
		Example: `  knex alter accounts --rename about:about_col -t dev
  knex alter accounts --drop first_name --allow-drop -t dev`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			table := args[0]
			a, err := f.alteration(table)
			if err != nil {
				return err
			}
			client, err := e.open()
			if err != nil {
				return err
			}
			defer client.Close()
			cols, err := client.ColumnInfo(ctx, table)
			if err != nil {
				return err
			}
			opts := []schema.ValidateOption{schema.WithColumns(cols)}
			if f.allowDrop {
				opts = append(opts, schema.AllowDropColumn())
			}
			result := schema.Validate(a, client.Dialect(), opts...)
			if result.HasErrors() {
				return fmt.Errorf("alteration of %s rejected:\n%s", table, result)
			}
			for _, w := range result.Warnings {
				e.logger.Warn(w.Message, "table", w.Table, "column", w.Column)
			}
			res, err := client.Schema().Table(ctx, table, f.apply)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "altered %s: %d statements executed\n", table, len(res))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.allowDrop, "allow-drop", false, "allow dropping columns")
	return cmd
}

func newColumnsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table> [column...]",
		Short: "Print the normalized columns of a table on the target database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.open()
			if err != nil {
				return err
			}
			defer client.Close()
			cols, err := client.ColumnInfo(cmd.Context(), args[0], args[1:]...)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if e.opts.output == "yaml" {
				return writeYAML(w, cols)
			}
			names := make([]string, 0, len(cols))
			for n := range cols {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				c := cols[n]
				fmt.Fprintf(w, "%-24s %-16s maxLength=%v nullable=%t", n, c.Type, c.MaxLength, c.Nullable)
				if c.DefaultValue != nil {
					fmt.Fprintf(w, " default=%v", c.DefaultValue)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
