package knex_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/jarcodallo/knex"
	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql/schema"
)

func TestQueryError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &knex.QueryError{Table: "accounts", Op: "truncate", Err: errors.New("locked")}
		assert.Equal(t, "knex: truncate accounts: locked", err.Error())

		err = &knex.QueryError{Op: "raw", Err: errors.New("syntax error")}
		assert.Equal(t, "knex: raw: syntax error", err.Error())
	})

	t.Run("IsQueryError", func(t *testing.T) {
		cause := errors.New("locked")
		err := &knex.QueryError{Table: "accounts", Op: "count", Err: cause}
		assert.True(t, knex.IsQueryError(err))
		assert.True(t, knex.IsQueryError(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, errors.Is(err, cause))
		assert.False(t, knex.IsQueryError(cause))
		assert.False(t, knex.IsQueryError(nil))
	})
}

func TestAlterError(t *testing.T) {
	err := &knex.AlterError{Table: "accounts", Dialect: dialect.SQLite, Err: schema.ErrColumnNotFound}
	assert.Equal(t, "knex: alter accounts (sqlite3): sql/schema: column not found", err.Error())
	assert.True(t, knex.IsAlterError(err))
	assert.True(t, errors.Is(err, schema.ErrColumnNotFound))
	assert.False(t, knex.IsAlterError(errors.New("other")))
	assert.False(t, knex.IsAlterError(nil))
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, knex.IsUnsupported(dialect.NewCapabilityError(dialect.SQLite, dialect.CapTruncateIdentityReset)))
	assert.True(t, knex.IsUndefinedColumn(&pq.Error{Code: "42703"}))
	assert.True(t, knex.IsUndefinedTable(&mysql.MySQLError{Number: 1146, Message: "Table 'test.accounts' doesn't exist"}))
	assert.False(t, knex.IsUndefinedColumn(errors.New("other")))
}

func TestSentinelErrors(t *testing.T) {
	assert.Equal(t, "knex: client has no driver", knex.ErrNoDriver.Error())
}
