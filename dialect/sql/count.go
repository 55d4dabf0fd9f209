package sql

import (
	"github.com/jarcodallo/knex/dialect"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CountKey returns the result key under which the engine reports
// "count(expr)". The expression is quoted the way the compiled statement
// quotes it. Keys differ between engines and are not unified:
//
//	mysql     count(*)  count(`id`)
//	sqlite3   count(*)  count("id")
//	postgres  count     count
//	oracle    COUNT(*)  COUNT("ID")
func CountKey(name string, expr ...string) string {
	d, err := dialect.Canonical(name)
	if err != nil {
		d = name
	}
	if d == dialect.Postgres {
		return "count"
	}
	e := "*"
	if len(expr) > 0 && expr[0] != "" && expr[0] != "*" {
		e = expr[0]
		if g, err := dialect.Get(d); err == nil {
			e = NewBuilder(g).Ident(e).String()
		}
	}
	key := "count(" + e + ")"
	if d == dialect.Oracle {
		// Quoted identifiers are not limited to ASCII.
		return cases.Upper(language.Und).String(key)
	}
	return key
}

// sameKey reports whether two result keys are equal under Unicode case
// folding.
func sameKey(a, b string) bool {
	f := cases.Fold()
	return f.String(a) == f.String(b)
}

// ResultValue returns the value of key in row, matching the key exactly
// first and case-insensitively otherwise.
func ResultValue(row map[string]any, key string) (any, bool) {
	return lookup(row, key)
}
