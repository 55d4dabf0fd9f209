package knex

import (
	"errors"
	"fmt"

	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql"
)

// ErrNoDriver is returned when a client without driver is asked to execute.
var ErrNoDriver = errors.New("knex: client has no driver")

// QueryError wraps an execution error with the statement context.
type QueryError struct {
	Table string // Table of the statement
	Op    string // Operation (e.g., "truncate", "count", "columnInfo")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("knex: %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("knex: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// AlterError wraps a planning or execution error of a table alteration.
type AlterError struct {
	Table   string
	Dialect string
	Err     error
}

// Error returns the error string.
func (e *AlterError) Error() string {
	return fmt.Sprintf("knex: alter %s (%s): %v", e.Table, e.Dialect, e.Err)
}

// Unwrap returns the underlying error.
func (e *AlterError) Unwrap() error {
	return e.Err
}

// IsAlterError returns true if the error is an AlterError.
func IsAlterError(err error) bool {
	if err == nil {
		return false
	}
	var e *AlterError
	return errors.As(err, &e)
}

// IsUnsupported reports whether the error is caused by a capability the
// dialect lacks.
func IsUnsupported(err error) bool {
	return dialect.IsUnsupported(err)
}

// IsUndefinedColumn reports whether the database rejected a statement
// because a column does not exist.
func IsUndefinedColumn(err error) bool {
	return sql.IsUndefinedColumn(err)
}

// IsUndefinedTable reports whether the database rejected a statement
// because a table does not exist.
func IsUndefinedTable(err error) bool {
	return sql.IsUndefinedTable(err)
}
