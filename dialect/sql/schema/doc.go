// Package schema plans and runs column alterations.
//
// Renaming or dropping a column is a single statement on some engines and a
// multi-step procedure on others. A Plan is the ordered list of steps for one
// dialect. Fixed steps carry a compiled statement. Derive steps compute the
// following statements from the rows of earlier introspection steps, so a
// plan can be listed before anything runs:
//
//	plan, err := schema.PlanRename("accounts", "about", "about_col", dialect.SQLite)
//	fmt.Print(plan)
//	// 1. [introspect] PRAGMA table_xinfo("accounts")
//	// 2. [definition] select sql from sqlite_master where type = 'table' and name = ? [accounts]
//	// 3. [indexes] select il.name as index_name, ...
//	// 4. [derive] -- derive: computed from the introspection results
//
// SQLite plans rebuild the table: a shadow table with the new layout is
// created and filled from the original, the original is dropped and the
// shadow renamed in its place. Collations and generated columns are read
// from the CREATE TABLE text and carried over; a generated column reading a
// renamed or dropped column fails with ErrUnsupportedColumn. MySQL renames read the column definition
// with "show fields" and redefine it with "change".
//
// A Runner executes plans sequentially, inside a transaction when the
// dialect supports transactional DDL:
//
//	results, err := schema.NewRunner(drv).Run(ctx, plan)
//	var serr *schema.StepError
//	if errors.As(err, &serr) {
//	    log.Println("failed after", serr.LastCompleted)
//	}
//
// Validate reports breaking changes and dialect limitations of an
// alteration before it is planned.
package schema
