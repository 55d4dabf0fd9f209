package sql

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBindingMismatch is returned when the number of bindings of a raw
// fragment does not match its placeholders.
var ErrBindingMismatch = errors.New("dialect/sql: raw binding count mismatch")

// Fragment is a piece of SQL text with ordered bindings. The text is
// never escaped or validated.
//
// Placeholders:
//
//	?   a value binding; expressions render inline
//	??  an identifier binding, quoted per dialect
//	\?  a literal question mark
//
// A fragment without bindings is emitted verbatim.
type Fragment struct {
	text string
	args []any
}

// Raw returns a new raw fragment.
func Raw(text string, args ...any) *Fragment {
	return &Fragment{text: text, args: append([]any(nil), args...)}
}

// Text returns the fragment text as given.
func (f *Fragment) Text() string { return f.text }

// Bindings returns a copy of the fragment bindings.
func (f *Fragment) Bindings() []any { return append([]any(nil), f.args...) }

// String implements fmt.Stringer.
func (f *Fragment) String() string { return f.text }

// Render implements Expr.
func (f *Fragment) Render(b *Builder) {
	if len(f.args) == 0 {
		b.WriteString(f.text)
		return
	}
	var (
		text = f.text
		used int
	)
	for {
		i := strings.IndexAny(text, `\?`)
		if i < 0 {
			b.WriteString(text)
			break
		}
		b.WriteString(text[:i])
		switch {
		case text[i] == '\\' && strings.HasPrefix(text[i:], `\?`):
			b.Byte('?')
			text = text[i+2:]
		case text[i] == '\\':
			b.Byte('\\')
			text = text[i+1:]
		case strings.HasPrefix(text[i:], "??"):
			if used < len(f.args) {
				f.ident(b, f.args[used])
			}
			used++
			text = text[i+2:]
		default:
			if used < len(f.args) {
				b.Arg(f.args[used])
			}
			used++
			text = text[i+1:]
		}
	}
	if used != len(f.args) {
		b.AddError(fmt.Errorf("%w: %q expects %d bindings, got %d", ErrBindingMismatch, f.text, used, len(f.args)))
	}
}

func (f *Fragment) ident(b *Builder, v any) {
	switch v := v.(type) {
	case Expr:
		v.Render(b)
	case string:
		b.Ident(v)
	case []string:
		b.IdentComma(v...)
	default:
		b.AddError(fmt.Errorf("dialect/sql: invalid identifier binding %T in %q", v, f.text))
	}
}

var _ Expr = (*Fragment)(nil)
