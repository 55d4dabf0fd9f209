// Package cli provides the command-line interface of knex.
package cli

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/jarcodallo/knex"
	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// options are the global flags.
type options struct {
	configFile string
	target     string
	verbose    bool
	output     string
}

// env is shared by the subcommands of one invocation.
type env struct {
	opts   *options
	cfg    *Config
	logger *slog.Logger
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		opts = &options{}
		e    = &env{opts: opts}
	)
	rootCmd := &cobra.Command{
		Use:   "knex",
		Short: "Compile queries and plan column alterations across SQL dialects",
		Long: `knex compiles query descriptions for MySQL, PostgreSQL, SQLite and Oracle,
and plans or runs the column renames and drops each engine needs.

Targets are read from a YAML file (default: ./knex.yaml):

  default: dev
  targets:
    dev:
      dialect: sqlite
      dsn: ./dev.db
    prod:
      dialect: pg
      dsn: ${DATABASE_URL}`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			e.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cfg, err := LoadConfig(opts.configFile)
			if err != nil {
				return err
			}
			e.cfg = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ./knex.yaml)")
	rootCmd.PersistentFlags().StringVarP(&opts.target, "target", "t", "", "target database from the config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log executed statements")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format (text|yaml)")
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newCompileCommand(e))
	rootCmd.AddCommand(newPlanCommand(e))
	rootCmd.AddCommand(newAlterCommand(e))
	rootCmd.AddCommand(newColumnsCommand(e))
	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// resolveDialect returns the dialect of the --dialect flag, or of the selected target.
func (e *env) resolveDialect(flag string) (string, error) {
	if flag != "" {
		return dialect.Canonical(flag)
	}
	t, err := e.cfg.Target(e.opts.target)
	if err != nil {
		return "", fmt.Errorf("no dialect given: %w", err)
	}
	return t.Dialect, nil
}

// open connects a client to the selected target.
func (e *env) open() (*knex.Client, error) {
	t, err := e.cfg.Target(e.opts.target)
	if err != nil {
		return nil, err
	}
	g, err := dialect.Get(t.Dialect)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(stdsql.Drivers(), g.DriverName) {
		return nil, fmt.Errorf("no database driver is registered for %s", g.Name)
	}
	opts := []knex.Option{knex.Logger(e.logger)}
	if t.Database != "" {
		opts = append(opts, knex.Database(t.Database))
	}
	if e.opts.verbose {
		opts = append(opts, knex.Debug())
	}
	e.logger.Debug("opening target", "dialect", g.Name)
	return knex.Open(g.Name, t.DSN, opts...)
}

// statements writes compiled statements in the selected output format.
func (e *env) statements(w io.Writer, stmts []*sql.Statement) error {
	if e.opts.output == "yaml" {
		return writeYAML(w, stmts)
	}
	for _, s := range stmts {
		fmt.Fprintf(w, "-- %s\n%s;", s.Dialect, s.SQL)
		if len(s.Args) > 0 {
			fmt.Fprintf(w, " -- %v", s.Args)
		}
		fmt.Fprintln(w)
	}
	return nil
}
