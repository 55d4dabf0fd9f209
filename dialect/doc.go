// Package dialect defines the engine families knex compiles for.
//
// Each dialect is described by a Grammar: identifier quoting, the bind
// parameter style of compiled statements and of the driver, and the
// capability flags the compiler and the alteration planner consult when a
// construct cannot be rendered the same way everywhere.
//
// # Supported Dialects
//
//	dialect.MySQL    = "mysql"    (aliases: mysql2, mariadb)
//	dialect.Postgres = "postgres" (aliases: postgresql, pg)
//	dialect.SQLite   = "sqlite3"  (alias: sqlite)
//	dialect.Oracle   = "oracle"   (alias: oracledb)
//
// # Capabilities
//
//	             truncate-reset  direct-rename  direct-drop  transactional-ddl
//	mysql        yes             no             yes          no
//	postgres     yes             yes            yes          yes
//	sqlite3      no              no             no           yes
//	oracle       no              yes            yes          no
//
// # Driver Interface
//
// Execution is delegated to a Driver:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The dialect/sql package provides a database/sql backed implementation.
package dialect
