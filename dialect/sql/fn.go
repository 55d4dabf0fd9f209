package sql

import (
	"github.com/jarcodallo/knex/dialect"
)

// FnBuilder groups the portable SQL functions. Each function is resolved
// to the dialect spelling when it is rendered.
type FnBuilder struct{}

// Fn is the function library.
//
//	sql.Table("events").Insert(map[string]any{"created_at": sql.Fn.Now()})
var Fn FnBuilder

type fnKind uint8

const (
	fnNow fnKind = iota
	fnCurrentDate
	fnUUID
	fnRandom
	fnLength
	fnConcat
)

// Func is a portable function call.
type Func struct {
	kind fnKind
	args []Expr
}

// Now returns the current timestamp function.
func (FnBuilder) Now() *Func { return &Func{kind: fnNow} }

// CurrentDate returns the current date function.
func (FnBuilder) CurrentDate() *Func { return &Func{kind: fnCurrentDate} }

// UUID returns a function generating a random UUID on the server.
func (FnBuilder) UUID() *Func { return &Func{kind: fnUUID} }

// Random returns a random number function.
func (FnBuilder) Random() *Func { return &Func{kind: fnRandom} }

// Length returns the character length of x.
func (FnBuilder) Length(x Expr) *Func { return &Func{kind: fnLength, args: []Expr{x}} }

// Concat returns the string concatenation of xs.
func (FnBuilder) Concat(xs ...Expr) *Func { return &Func{kind: fnConcat, args: xs} }

// Render implements Expr.
func (f *Func) Render(b *Builder) {
	name := b.Dialect()
	switch f.kind {
	case fnNow:
		b.WriteString("CURRENT_TIMESTAMP")
	case fnCurrentDate:
		b.WriteString("CURRENT_DATE")
	case fnUUID:
		switch name {
		case dialect.MySQL:
			b.WriteString("uuid()")
		case dialect.Postgres:
			b.WriteString("gen_random_uuid()")
		case dialect.SQLite:
			b.WriteString("lower(hex(randomblob(16)))")
		case dialect.Oracle:
			b.WriteString("sys_guid()")
		}
	case fnRandom:
		switch name {
		case dialect.MySQL:
			b.WriteString("rand()")
		case dialect.Oracle:
			b.WriteString("dbms_random.value")
		default:
			b.WriteString("random()")
		}
	case fnLength:
		if name == dialect.MySQL || name == dialect.Postgres {
			b.WriteString("char_length")
		} else {
			b.WriteString("length")
		}
		b.Wrap(func(b *Builder) { b.Join(", ", f.args...) })
	case fnConcat:
		if name == dialect.MySQL {
			b.WriteString("concat")
			b.Wrap(func(b *Builder) { b.Join(", ", f.args...) })
			return
		}
		b.Wrap(func(b *Builder) { b.Join(" || ", f.args...) })
	}
}

// Col returns an identifier expression.
func Col(name string) Expr {
	return ExprFunc(func(b *Builder) { b.Ident(name) })
}

// Value returns a bound value expression.
func Value(v any) Expr {
	return ExprFunc(func(b *Builder) { b.Arg(v) })
}

var _ Expr = (*Func)(nil)
