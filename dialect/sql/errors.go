package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// sqlStateError is an interface for errors that provide SQLSTATE codes.
// Implemented by: pq.Error, pgx, and some MySQL drivers.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes of undefined objects (Class 42).
const (
	pgUndefinedColumn = "42703"
	pgUndefinedTable  = "42P01"
)

// MySQL error numbers of undefined objects.
const (
	mysqlBadField    = 1054
	mysqlNoSuchTable = 1146
)

// IsUndefinedColumn reports if the error resulted from referencing a
// column that does not exist.
func IsUndefinedColumn(err error) bool {
	if err == nil {
		return false
	}
	if isSQLState(err, pgUndefinedColumn) || isMySQLNumber(err, mysqlBadField) {
		return true
	}
	// Fallback to string matching for drivers that don't implement interfaces
	return containsAny(err.Error(),
		"no such column", // SQLite
		"ORA-00904",      // Oracle
		"Unknown column", // MySQL (string fallback)
	)
}

// IsUndefinedTable reports if the error resulted from referencing a
// table that does not exist.
func IsUndefinedTable(err error) bool {
	if err == nil {
		return false
	}
	if isSQLState(err, pgUndefinedTable) || isMySQLNumber(err, mysqlNoSuchTable) {
		return true
	}
	return containsAny(err.Error(),
		"no such table", // SQLite
		"ORA-00942",     // Oracle
		"doesn't exist", // MySQL (string fallback)
	)
}

func isSQLState(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pq.ErrorCode(code)
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState() == code
	}
	return false
}

func isMySQLNumber(err error, n uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == n
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
