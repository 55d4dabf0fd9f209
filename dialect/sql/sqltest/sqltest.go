// Package sqltest provides helpers for asserting the statements compiled
// for each dialect.
package sqltest

import (
	"sync"
	"testing"

	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Recorder records compiled statements. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	stmts []*sql.Statement
}

// Observe records the statement.
func (r *Recorder) Observe(s *sql.Statement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stmts = append(r.stmts, s)
}

// Observer returns an observer to pass to sql.WithObserver.
func (r *Recorder) Observer() sql.Observer { return r.Observe }

// Statements returns the recorded statements in compilation order.
func (r *Recorder) Statements() []*sql.Statement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*sql.Statement(nil), r.stmts...)
}

// Last returns the last recorded statement, or nil.
func (r *Recorder) Last() *sql.Statement {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stmts) == 0 {
		return nil
	}
	return r.stmts[len(r.stmts)-1]
}

// Reset drops the recorded statements.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stmts = nil
}

// Expectation is the statement expected for one dialect.
type Expectation struct {
	SQL      string `yaml:"sql"`
	Bindings []any  `yaml:"bindings"`
}

// Tester compiles a query for every dialect it has expectations for and
// asserts exact equality of text and bindings.
type Tester struct {
	t      testing.TB
	expect map[string]Expectation
	opts   []sql.CompileOption
	rec    Recorder
}

// New returns a Tester compiling with the given options.
func New(t testing.TB, opts ...sql.CompileOption) *Tester {
	return &Tester{t: t, expect: make(map[string]Expectation), opts: opts}
}

// Expect registers the statement expected for the dialect.
func (tr *Tester) Expect(name, text string, args ...any) *Tester {
	tr.t.Helper()
	d, err := dialect.Canonical(name)
	require.NoError(tr.t, err)
	if args == nil {
		args = []any{}
	}
	tr.expect[d] = Expectation{SQL: text, Bindings: args}
	return tr
}

// Run compiles the query for every expected dialect, asserts the output
// and returns the statements keyed by dialect.
func (tr *Tester) Run(q *sql.Query) map[string]*sql.Statement {
	tr.t.Helper()
	out := make(map[string]*sql.Statement, len(tr.expect))
	opts := append(tr.opts[:len(tr.opts):len(tr.opts)], sql.WithObserver(tr.rec.Observe))
	for d, want := range tr.expect {
		stmt, err := sql.Compile(q, d, opts...)
		if !assert.NoError(tr.t, err, d) {
			continue
		}
		assert.Equal(tr.t, want.SQL, stmt.SQL, d)
		assert.Equal(tr.t, normalize(want.Bindings), normalize(stmt.Args), d)
		out[d] = stmt
	}
	return out
}

// Recorded returns the statements compiled by Run.
func (tr *Tester) Recorded() []*sql.Statement { return tr.rec.Statements() }

// ExpectColumns normalizes the raw introspection rows of the dialect and
// asserts the resulting records.
func ExpectColumns(t testing.TB, name string, rows []map[string]any, want map[string]*sql.ColumnInfo) {
	t.Helper()
	got, err := sql.NormalizeColumns(name, rows)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for column, w := range want {
		g, ok := got[column]
		if !assert.True(t, ok, "missing column %q", column) {
			continue
		}
		assert.Equal(t, w.Type, g.Type, column)
		assert.Equal(t, w.Nullable, g.Nullable, column)
		assert.Equal(t, normalizeValue(w.MaxLength), normalizeValue(g.MaxLength), column)
		assert.Equal(t, normalizeValue(w.DefaultValue), normalizeValue(g.DefaultValue), column)
	}
}

// normalize widens integer bindings so fixtures decoded as int compare
// equal to int64 values.
func normalize(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = normalizeValue(a)
	}
	return out
}

func normalizeValue(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		return int64(v)
	default:
		return v
	}
}
