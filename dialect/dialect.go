package dialect

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite3"
	Oracle   = "oracle"
)

// ErrUnknownDialect is returned when a dialect name does not resolve to a grammar.
var ErrUnknownDialect = errors.New("dialect: unknown dialect")

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for executing
// compiled statements and alteration plans.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Placeholder is the bind parameter style of a grammar.
type Placeholder uint8

const (
	// Question renders every bind parameter as "?".
	Question Placeholder = iota
	// Dollar renders bind parameters as "$1", "$2", ...
	Dollar
	// Colon renders bind parameters as ":1", ":2", ...
	Colon
)

// Format returns the placeholder text of the n-th (1-based) parameter.
func (p Placeholder) Format(n int) string {
	switch p {
	case Dollar:
		return fmt.Sprintf("$%d", n)
	case Colon:
		return fmt.Sprintf(":%d", n)
	default:
		return "?"
	}
}

// Capabilities holds the feature flags the compiler and the planner consult
// when a construct has no uniform rendering across engines.
type Capabilities struct {
	// TruncateIdentityReset reports if truncation resets identity counters.
	TruncateIdentityReset bool
	// DirectColumnRename reports if a column can be renamed with one statement.
	DirectColumnRename bool
	// DirectColumnDrop reports if a column can be dropped with one statement.
	DirectColumnDrop bool
	// TransactionalDDL reports if schema statements can be rolled back.
	TransactionalDDL bool
}

// Grammar describes the textual conventions of one engine family.
type Grammar struct {
	// Name is the canonical dialect name.
	Name string
	// QuoteOpen and QuoteClose wrap identifiers.
	QuoteOpen, QuoteClose byte
	// Placeholder is the bind style used in compiled statements.
	Placeholder Placeholder
	// BindStyle is the bind style the database driver expects.
	BindStyle Placeholder
	// DriverName is the database/sql driver name used by the CLI.
	DriverName string
	Capabilities
}

var grammars = map[string]*Grammar{
	MySQL: {
		Name:        MySQL,
		QuoteOpen:   '`',
		QuoteClose:  '`',
		Placeholder: Question,
		BindStyle:   Question,
		DriverName:  "mysql",
		Capabilities: Capabilities{
			TruncateIdentityReset: true,
			DirectColumnDrop:      true,
		},
	},
	Postgres: {
		Name:        Postgres,
		QuoteOpen:   '"',
		QuoteClose:  '"',
		Placeholder: Question,
		BindStyle:   Dollar,
		DriverName:  "postgres",
		Capabilities: Capabilities{
			TruncateIdentityReset: true,
			DirectColumnRename:    true,
			DirectColumnDrop:      true,
			TransactionalDDL:      true,
		},
	},
	SQLite: {
		Name:        SQLite,
		QuoteOpen:   '"',
		QuoteClose:  '"',
		Placeholder: Question,
		BindStyle:   Question,
		DriverName:  "sqlite",
		Capabilities: Capabilities{
			TransactionalDDL: true,
		},
	},
	Oracle: {
		Name:        Oracle,
		QuoteOpen:   '"',
		QuoteClose:  '"',
		Placeholder: Colon,
		BindStyle:   Colon,
		DriverName:  "oracle",
		Capabilities: Capabilities{
			DirectColumnRename: true,
			DirectColumnDrop:   true,
		},
	},
}

var aliases = map[string]string{
	"mysql2":     MySQL,
	"mariadb":    MySQL,
	"postgresql": Postgres,
	"pg":         Postgres,
	"sqlite":     SQLite,
	"oracledb":   Oracle,
}

// Canonical resolves a dialect name or alias to its canonical name.
func Canonical(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if _, ok := grammars[n]; ok {
		return n, nil
	}
	if c, ok := aliases[n]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDialect, name)
}

// Get returns the grammar of the given dialect name or alias.
// The returned value is shared and must not be modified.
func Get(name string) (*Grammar, error) {
	n, err := Canonical(name)
	if err != nil {
		return nil, err
	}
	return grammars[n], nil
}

// MustGet is like Get but panics on unknown dialects.
func MustGet(name string) *Grammar {
	g, err := Get(name)
	if err != nil {
		panic(err)
	}
	return g
}

// Names returns the canonical dialect names in a stable order.
func Names() []string {
	return []string{MySQL, Postgres, SQLite, Oracle}
}

// Quote wraps a single identifier part with the grammar quotes,
// doubling any embedded closing quote.
func (g *Grammar) Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(g.QuoteOpen)
	for i := 0; i < len(s); i++ {
		if s[i] == g.QuoteClose {
			b.WriteByte(g.QuoteClose)
		}
		b.WriteByte(s[i])
	}
	b.WriteByte(g.QuoteClose)
	return b.String()
}
