package sql

import (
	"errors"
	"slices"
	"strings"

	"github.com/jarcodallo/knex/dialect"

	"github.com/lib/pq"
)

// Expr is implemented by every value that renders itself into a Builder:
// raw fragments, functions, identifiers and predicates.
type Expr interface {
	Render(*Builder)
}

// ExprFunc adapts an ordinary function to the Expr interface.
type ExprFunc func(*Builder)

// Render calls f(b).
func (f ExprFunc) Render(b *Builder) { f(b) }

// Builder accumulates statement text and bind arguments for one dialect.
// It is not safe for concurrent use; every compilation owns its builder.
type Builder struct {
	sb      strings.Builder
	grammar *dialect.Grammar
	args    []any
	total   int
	binds   []int
	errs    []error
}

// NewBuilder returns a Builder rendering with the given grammar.
func NewBuilder(g *dialect.Grammar) *Builder {
	return &Builder{grammar: g}
}

// Grammar returns the grammar of the builder.
func (b *Builder) Grammar() *dialect.Grammar { return b.grammar }

// Dialect returns the canonical dialect name of the builder.
func (b *Builder) Dialect() string { return b.grammar.Name }

// WriteString appends s to the statement text.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Byte appends c to the statement text.
func (b *Builder) Byte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Pad appends a single space.
func (b *Builder) Pad() *Builder { return b.Byte(' ') }

// Ident appends a quoted identifier. Dotted names are quoted per part,
// "*" is never quoted and "x as y" is rendered as an aliased identifier.
func (b *Builder) Ident(s string) *Builder {
	if i := indexAlias(s); i >= 0 {
		b.Ident(strings.TrimSpace(s[:i]))
		b.WriteString(" as ")
		return b.Ident(strings.TrimSpace(s[i+4:]))
	}
	for i, part := range strings.Split(s, ".") {
		if i > 0 {
			b.Byte('.')
		}
		b.WriteString(b.quote(part))
	}
	return b
}

// IdentComma appends the identifiers separated by ", ".
func (b *Builder) IdentComma(s ...string) *Builder {
	for i := range s {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(s[i])
	}
	return b
}

func (b *Builder) quote(part string) string {
	switch {
	case part == "*":
		return part
	case b.grammar.Name == dialect.Postgres:
		return pq.QuoteIdentifier(part)
	default:
		return b.grammar.Quote(part)
	}
}

// indexAlias returns the position of a case-insensitive " as " separator.
func indexAlias(s string) int {
	return strings.Index(strings.ToLower(s), " as ")
}

// Arg appends a bind parameter. Expressions are rendered inline and
// contribute their own bindings instead.
func (b *Builder) Arg(v any) *Builder {
	if e, ok := v.(Expr); ok {
		e.Render(b)
		return b
	}
	b.total++
	b.args = append(b.args, v)
	b.binds = append(b.binds, b.sb.Len())
	return b.WriteString(b.grammar.Placeholder.Format(b.total))
}

// Args appends the bind parameters separated by ", ".
func (b *Builder) Args(vs ...any) *Builder {
	for i := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Arg(vs[i])
	}
	return b
}

// Join renders the expressions separated by sep.
func (b *Builder) Join(sep string, exprs ...Expr) *Builder {
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(sep)
		}
		e.Render(b)
	}
	return b
}

// Wrap renders fn between parentheses.
func (b *Builder) Wrap(fn func(*Builder)) *Builder {
	b.Byte('(')
	fn(b)
	return b.Byte(')')
}

// AddError records a rendering error. Rendering continues so that all
// errors of a statement are reported together.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns the joined rendering errors.
func (b *Builder) Err() error { return errors.Join(b.errs...) }

// String returns the accumulated text.
func (b *Builder) String() string { return b.sb.String() }

// Query returns the statement text, its bindings in placeholder order and
// any error recorded while rendering. Bindings are never nil.
func (b *Builder) Query() (string, []any, error) {
	args := b.args
	if args == nil {
		args = []any{}
	}
	return b.sb.String(), args, b.Err()
}

// Statement returns the compiled statement of the builder. The statement
// remembers where its placeholders are, so DriverSQL never rescans the text.
func (b *Builder) Statement(op Op, table string) (*Statement, error) {
	text, args, err := b.Query()
	if err != nil {
		return nil, err
	}
	return &Statement{
		Dialect: b.grammar.Name,
		Op:      op,
		SQL:     text,
		Args:    args,
		Table:   table,
		binds:   slices.Clone(b.binds),
	}, nil
}
