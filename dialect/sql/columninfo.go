package sql

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jarcodallo/knex/dialect"
)

// ColumnInfo is the normalized description of one table column.
//
// MaxLength keeps the engine native type: an int64 on MySQL, PostgreSQL and
// Oracle, the string found inside the type parentheses on SQLite. Types are
// reported as the engine spells them; no cross-engine unification is made.
type ColumnInfo struct {
	Name         string `json:"-" yaml:"-"`
	Type         string `json:"type" yaml:"type"`
	MaxLength    any    `json:"maxLength" yaml:"maxLength"`
	Nullable     bool   `json:"nullable" yaml:"nullable"`
	DefaultValue any    `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
}

// rowKeys lists, per dialect, the keys of a raw introspection row.
type rowKeys struct {
	name, typ, length, nullable, def string
}

var introspectionKeys = map[string]rowKeys{
	dialect.MySQL:    {"column_name", "data_type", "character_maximum_length", "is_nullable", "column_default"},
	dialect.Postgres: {"column_name", "data_type", "character_maximum_length", "is_nullable", "column_default"},
	dialect.SQLite:   {"name", "type", "", "notnull", "dflt_value"},
	dialect.Oracle:   {"column_name", "data_type", "char_col_decl_length", "nullable", ""},
}

// NormalizeColumns converts raw introspection rows into column records
// keyed by column name. Rows without a column name are ignored.
func NormalizeColumns(name string, rows []map[string]any) (map[string]*ColumnInfo, error) {
	d, err := dialect.Canonical(name)
	if err != nil {
		return nil, err
	}
	keys := introspectionKeys[d]
	out := make(map[string]*ColumnInfo, len(rows))
	for _, r := range rows {
		if c := normalizeRow(d, keys, r); c != nil {
			out[c.Name] = c
		}
	}
	return out, nil
}

// NormalizeColumn returns the record of the named column, or nil if the
// rows do not describe it.
func NormalizeColumn(name string, rows []map[string]any, column string) (*ColumnInfo, error) {
	columns, err := NormalizeColumns(name, rows)
	if err != nil {
		return nil, err
	}
	return columns[column], nil
}

func normalizeRow(d string, keys rowKeys, row map[string]any) *ColumnInfo {
	name, ok := lookup(row, keys.name)
	if !ok {
		return nil
	}
	c := &ColumnInfo{Name: text(name)}
	if c.Name == "" {
		return nil
	}
	typ, _ := lookup(row, keys.typ)
	c.Type = text(typ)
	nullable, _ := lookup(row, keys.nullable)
	switch d {
	case dialect.SQLite:
		c.Type, c.MaxLength = splitSQLiteType(c.Type)
		c.Nullable = !truthy(nullable)
	case dialect.Oracle:
		c.Nullable = text(nullable) == "Y"
	default:
		c.Nullable = text(nullable) == "YES"
	}
	if d != dialect.SQLite {
		length, _ := lookup(row, keys.length)
		c.MaxLength = integer(length)
	}
	if keys.def != "" {
		def, _ := lookup(row, keys.def)
		c.DefaultValue = value(def)
	}
	return c
}

// splitSQLiteType splits "char(36)" into "char" and "36".
func splitSQLiteType(t string) (string, any) {
	i := strings.IndexByte(t, '(')
	if i < 0 {
		return strings.ToLower(strings.TrimSpace(t)), nil
	}
	typ := strings.ToLower(strings.TrimSpace(t[:i]))
	j := strings.IndexByte(t[i:], ')')
	if j < 0 {
		return typ, nil
	}
	return typ, strings.TrimSpace(t[i+1 : i+j])
}

// lookup returns the value of key, matching case-insensitively.
func lookup(row map[string]any, key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	if v, ok := row[key]; ok {
		return v, true
	}
	for k, v := range row {
		if sameKey(k, key) {
			return v, true
		}
	}
	return nil, false
}

func text(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func value(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case nil:
		return false
	default:
		n := integer(v)
		if n == nil {
			return false
		}
		return n.(int64) != 0
	}
}

// integer converts a driver value to int64, or nil if it is not integral.
func integer(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return nil
		}
		return int64(v)
	case float64:
		if v != math.Trunc(v) {
			return nil
		}
		return int64(v)
	case float32:
		return integer(float64(v))
	case string, []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(text(v)), 10, 64)
		if err != nil {
			return nil
		}
		return n
	}
	return nil
}

// QueryColumns runs a compiled column introspection statement and
// normalizes its rows. When the statement carries a column filter of one
// column, the result holds at most that column.
func QueryColumns(ctx context.Context, drv dialect.ExecQuerier, stmt *Statement) (map[string]*ColumnInfo, error) {
	rows, err := QueryMaps(ctx, drv, stmt.DriverSQL(), stmt.Args)
	if err != nil {
		return nil, err
	}
	columns, err := NormalizeColumns(stmt.Dialect, rows)
	if err != nil {
		return nil, err
	}
	if len(stmt.Columns) == 0 {
		return columns, nil
	}
	filtered := make(map[string]*ColumnInfo, len(stmt.Columns))
	for _, name := range stmt.Columns {
		if c, ok := columns[name]; ok {
			filtered[name] = c
		}
	}
	return filtered, nil
}
