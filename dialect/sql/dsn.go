package sql

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jarcodallo/knex/dialect"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// DatabaseFromDSN extracts the database name used by information_schema
// introspection from a data source name. SQLite returns the file base name
// without extension; Oracle introspects the current user and returns "".
func DatabaseFromDSN(name, dsn string) (string, error) {
	d, err := dialect.Canonical(name)
	if err != nil {
		return "", err
	}
	switch d {
	case dialect.MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("dialect/sql: parse mysql dsn: %w", err)
		}
		return cfg.DBName, nil
	case dialect.Postgres:
		cfg, err := pq.NewConfig(dsn)
		if err != nil {
			return "", fmt.Errorf("dialect/sql: parse postgres dsn: %w", err)
		}
		return cfg.Database, nil
	case dialect.SQLite:
		path := strings.TrimPrefix(dsn, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if path == "" || path == ":memory:" {
			return "main", nil
		}
		return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), nil
	default:
		return "", nil
	}
}
