package schema

import (
	"fmt"
	"strings"

	"github.com/jarcodallo/knex/dialect/sql"
)

// Step names.
const (
	StepAlter        = "alter"
	StepIntrospect   = "introspect"
	StepDefinition   = "definition"
	StepIndexes      = "indexes"
	StepDerive       = "derive"
	StepChange       = "change"
	StepCreateShadow = "create-shadow"
	StepCopy         = "copy"
	StepDropOriginal = "drop-original"
	StepSwap         = "swap"
	StepIndex        = "index"
)

// Step is one unit of a Plan. A step either carries a fixed statement, or
// derives the next steps from the results of the steps executed so far.
type Step struct {
	// Name identifies the role of the step in the plan.
	Name string
	// Stmt is the fixed statement. Nil for derive steps.
	Stmt *sql.Statement
	// Query reports if Stmt returns rows.
	Query bool
	// Derive computes the steps executed right after this one.
	Derive func(Results) ([]*Step, error)
	// Shadow is the temporary table a rebuild step works on.
	Shadow string
	// Warnings are logged by the runner before the step executes.
	Warnings []string
}

// String returns the statement text, or a description of a derive step.
func (s *Step) String() string {
	if s.Derive != nil {
		return "-- " + s.Name + ": computed from the introspection results"
	}
	return s.Stmt.SQL
}

// Result is the outcome of one executed statement step.
type Result struct {
	Step *Step
	// Rows holds the rows of a query step.
	Rows []map[string]any
	// Affected is the affected row count of an exec step, -1 if unknown.
	Affected int64
}

// Results are the results of the steps executed so far, in order.
type Results []*Result

// Of returns the result of the given step, or nil if it has not run.
func (r Results) Of(s *Step) *Result {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i].Step == s {
			return r[i]
		}
	}
	return nil
}

// Get returns the last result of a step with the given name, or nil.
func (r Results) Get(name string) *Result {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i].Step.Name == name {
			return r[i]
		}
	}
	return nil
}

// Last returns the last result, or nil.
func (r Results) Last() *Result {
	if len(r) == 0 {
		return nil
	}
	return r[len(r)-1]
}

// Plan is an ordered list of steps altering one table.
type Plan struct {
	Dialect string
	Table   string
	Steps   []*Step
}

// Fixed reports if the plan is made of fixed statements only.
func (p *Plan) Fixed() bool {
	for _, s := range p.Steps {
		if s.Derive != nil {
			return false
		}
	}
	return true
}

// Statements returns the fixed statements of the plan, in order.
func (p *Plan) Statements() []*sql.Statement {
	stmts := make([]*sql.Statement, 0, len(p.Steps))
	for _, s := range p.Steps {
		if s.Stmt != nil {
			stmts = append(stmts, s.Stmt)
		}
	}
	return stmts
}

// Append appends the steps of the other plan.
func (p *Plan) Append(other *Plan) error {
	if other.Dialect != p.Dialect || other.Table != p.Table {
		return fmt.Errorf("sql/schema: cannot append plan of %s.%s to %s.%s", other.Dialect, other.Table, p.Dialect, p.Table)
	}
	p.Steps = append(p.Steps, other.Steps...)
	return nil
}

// String returns a readable listing of the plan.
func (p *Plan) String() string {
	var b strings.Builder
	for i, s := range p.Steps {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, s.Name, s)
		if s.Stmt != nil && len(s.Stmt.Args) > 0 {
			fmt.Fprintf(&b, " %v", s.Stmt.Args)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func execStep(name string, stmt *sql.Statement) *Step {
	return &Step{Name: name, Stmt: stmt}
}

func queryStep(name string, stmt *sql.Statement) *Step {
	return &Step{Name: name, Stmt: stmt, Query: true}
}
