package schema

import (
	"fmt"
	"strings"

	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql"
)

// planMySQLRename reads the column definition with "show fields" and
// redefines the column under its new name with "change".
func planMySQLRename(g *dialect.Grammar, table, from, to string) (*Plan, error) {
	fields, err := raw(g, table, "show fields from ?? where field = ?", table, from)
	if err != nil {
		return nil, err
	}
	introspect := queryStep(StepIntrospect, fields)
	derive := &Step{
		Name: StepDerive,
		Derive: func(res Results) ([]*Step, error) {
			r := res.Of(introspect)
			if r == nil {
				return nil, fmt.Errorf("sql/schema: missing %s result", StepIntrospect)
			}
			field := findField(r.Rows, from)
			if field == nil {
				return nil, fmt.Errorf("%w: %s.%s", ErrColumnNotFound, table, from)
			}
			stmt, err := build(g, sql.OpRenameColumn, table, func(b *sql.Builder) {
				b.WriteString("alter table ").Ident(table).
					WriteString(" change ").Ident(from).Pad().Ident(to).Pad().
					WriteString(str(field, "Type"))
				mysqlColumnTail(b, field)
			})
			if err != nil {
				return nil, err
			}
			return []*Step{execStep(StepChange, stmt)}, nil
		},
	}
	return &Plan{Dialect: g.Name, Table: table, Steps: []*Step{introspect, derive}}, nil
}

// mysqlColumnTail renders the nullability, default and extra attributes
// of a "show fields" row.
func mysqlColumnTail(b *sql.Builder, field map[string]any) {
	if !strings.EqualFold(str(field, "Null"), "YES") {
		b.WriteString(" NOT NULL")
	}
	if def, ok := get(field, "Default"); ok && def != nil {
		switch d := fmt.Sprint(def); {
		case isCurrentTimestamp(d):
			b.WriteString(" DEFAULT " + d)
		default:
			b.WriteString(" DEFAULT '" + escapeStringValue(d) + "'")
		}
	}
	extra := strings.ToLower(str(field, "Extra"))
	if strings.Contains(extra, "auto_increment") {
		b.WriteString(" AUTO_INCREMENT")
	}
	if strings.Contains(extra, "on update current_timestamp") {
		b.WriteString(" ON UPDATE CURRENT_TIMESTAMP")
	}
}

func isCurrentTimestamp(s string) bool {
	u := strings.ToUpper(s)
	return u == "CURRENT_TIMESTAMP" || strings.HasPrefix(u, "CURRENT_TIMESTAMP(")
}

// escapeStringValue escapes a string value for safe use in SQL.
// It escapes both single quotes (by doubling) and backslashes (for MySQL compatibility).
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

func findField(rows []map[string]any, name string) map[string]any {
	for _, r := range rows {
		if strings.EqualFold(str(r, "Field"), name) {
			return r
		}
	}
	return nil
}

// get returns the value of key, matching case-insensitively.
func get(row map[string]any, key string) (any, bool) {
	if v, ok := row[key]; ok {
		return v, true
	}
	for k, v := range row {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func str(row map[string]any, key string) string {
	v, ok := get(row, key)
	if !ok || v == nil {
		return ""
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
