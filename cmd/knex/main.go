// Command knex compiles queries and plans column alterations across SQL dialects.
package main

import (
	"context"
	"os"

	"github.com/jarcodallo/knex/internal/cli"

	// Database drivers of the supported targets.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
