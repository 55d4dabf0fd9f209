package schema

import (
	"fmt"
	"strings"

	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql"
)

// ValidationError represents an alteration validation error.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking indicates if this is a breaking change.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of schema validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// HasBreakingChanges returns true if there are any breaking changes.
func (r *ValidationResult) HasBreakingChanges() bool {
	for _, e := range r.Errors {
		if e.Breaking {
			return true
		}
	}
	for _, w := range r.Warnings {
		if w.Breaking {
			return true
		}
	}
	return false
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			if e.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			if w.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateOption configures alteration validation.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	allowDropColumn bool
	columns         map[string]*sql.ColumnInfo
}

// AllowDropColumn allows dropping columns without error.
func AllowDropColumn() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropColumn = true
	}
}

// WithColumns validates the alteration against the current columns of the
// table, as returned by a columnInfo query.
func WithColumns(columns map[string]*sql.ColumnInfo) ValidateOption {
	return func(c *validateConfig) {
		c.columns = columns
	}
}

// Validate checks an alteration before it is planned for the dialect.
// Dropped columns are breaking changes, reported as errors unless allowed.
// Losses caused by the way a dialect performs the change are warnings.
//
// Example:
//
//	cols, _ := client.ColumnInfo(ctx, "accounts")
//	result := schema.Validate(a, dialect.SQLite, schema.WithColumns(cols))
//	if result.HasErrors() {
//	    log.Fatal(result)
//	}
func Validate(a *Alteration, name string, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &ValidationResult{}
	g, err := dialect.Get(name)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{Table: a.table, Message: err.Error()})
		return result
	}
	var (
		table   = a.table
		columns = existing(cfg.columns)
		touched = make(map[string]bool)
	)
	touch := func(column string) {
		key := strings.ToLower(column)
		if touched[key] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   table,
				Column:  column,
				Message: "column is altered more than once",
			})
		}
		touched[key] = true
	}
	for _, op := range a.ops {
		switch op.op {
		case sql.OpRenameColumn:
			touch(op.from)
			switch {
			case op.from == "" || op.to == "":
				result.Errors = append(result.Errors, &ValidationError{Table: table, Column: op.from, Message: "rename requires both column names"})
				continue
			case op.from == op.to:
				result.Errors = append(result.Errors, &ValidationError{Table: table, Column: op.from, Message: "column is renamed to its own name"})
				continue
			}
			if columns != nil {
				if !columns.has(op.from) {
					result.Errors = append(result.Errors, &ValidationError{Table: table, Column: op.from, Message: "column does not exist"})
				}
				if columns.has(op.to) && !strings.EqualFold(op.from, op.to) {
					result.Errors = append(result.Errors, &ValidationError{Table: table, Column: op.to, Message: "column already exists"})
				}
				columns.rename(op.from, op.to)
			}
			switch {
			case g.Name == dialect.MySQL:
				result.Warnings = append(result.Warnings, &ValidationError{
					Table:   table,
					Column:  op.from,
					Message: "column is redefined with change, foreign keys referencing it are not recreated",
				})
			case g.Name == dialect.SQLite:
				result.Warnings = append(result.Warnings, rebuildWarning(table, op.from))
			}
		case sql.OpDropColumn:
			if len(op.columns) == 0 {
				result.Errors = append(result.Errors, &ValidationError{Table: table, Message: "drop requires at least one column"})
				continue
			}
			for _, c := range op.columns {
				touch(c)
				if columns != nil && !columns.has(c) {
					result.Errors = append(result.Errors, &ValidationError{Table: table, Column: c, Message: "column does not exist"})
				}
				err := &ValidationError{
					Table:    table,
					Column:   c,
					Message:  "column will be dropped",
					Breaking: true,
				}
				if cfg.allowDropColumn {
					result.Warnings = append(result.Warnings, err)
				} else {
					result.Errors = append(result.Errors, err)
				}
				if g.Name == dialect.SQLite {
					result.Warnings = append(result.Warnings, rebuildWarning(table, c))
				}
				columns.drop(c)
			}
		}
	}
	if columns != nil && len(columns) == 0 && len(cfg.columns) > 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Table:    table,
			Message:  "every column of the table is dropped",
			Breaking: true,
		})
	}
	return result
}

func rebuildWarning(table, column string) *ValidationError {
	return &ValidationError{
		Table:   table,
		Column:  column,
		Message: "table is rebuilt, foreign keys and check constraints are not preserved",
	}
}

// columnSet tracks the column names of a table while operations are applied.
type columnSet map[string]string

func existing(columns map[string]*sql.ColumnInfo) columnSet {
	if columns == nil {
		return nil
	}
	s := make(columnSet, len(columns))
	for name := range columns {
		s[strings.ToLower(name)] = name
	}
	return s
}

func (s columnSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

func (s columnSet) rename(from, to string) {
	if !s.has(from) {
		return
	}
	delete(s, strings.ToLower(from))
	s[strings.ToLower(to)] = to
}

func (s columnSet) drop(name string) {
	delete(s, strings.ToLower(name))
}
