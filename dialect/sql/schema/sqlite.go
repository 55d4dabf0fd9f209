package schema

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/jarcodallo/knex/dialect"
	"github.com/jarcodallo/knex/dialect/sql"

	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"github.com/google/uuid"
)

// rebuild describes the column changes applied while copying a SQLite table.
type rebuild struct {
	renames map[string]string
	drops   map[string]bool
}

// signature is a stable description of the changes, used to name the shadow table.
func (r rebuild) signature() string {
	var parts []string
	for from, to := range r.renames {
		parts = append(parts, "rename:"+from+">"+to)
	}
	for c := range r.drops {
		parts = append(parts, "drop:"+c)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// ShadowName returns the name of the temporary table used to rebuild the
// table for the given change signature.
func ShadowName(table, signature string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(table+"|"+signature))
	return "_knex_tmp_" + table + "_" + strings.ReplaceAll(id.String(), "-", "")[:8]
}

const indexQuery = `select il.name as index_name, il."unique" as is_unique, il.origin as origin, il.partial as is_partial, ii.name as column_name ` +
	`from pragma_index_list(?) as il, pragma_index_info(il.name) as ii ` +
	`where il.origin in ('c', 'u') order by il.name, ii.seqno`

// planRebuild plans the SQLite table rebuild: the table is introspected, a
// shadow table with the new layout is created and filled, the original is
// dropped and the shadow renamed in its place. Indexes are recreated last.
func planRebuild(g *dialect.Grammar, table string, r rebuild) (*Plan, error) {
	info, err := raw(g, table, "PRAGMA table_xinfo(??)", table)
	if err != nil {
		return nil, err
	}
	def, err := raw(g, table, "select sql from sqlite_master where type = 'table' and name = ?", table)
	if err != nil {
		return nil, err
	}
	idx, err := raw(g, table, indexQuery, table)
	if err != nil {
		return nil, err
	}
	var (
		introspect = queryStep(StepIntrospect, info)
		definition = queryStep(StepDefinition, def)
		indexes    = queryStep(StepIndexes, idx)
		shadow     = ShadowName(table, r.signature())
	)
	derive := &Step{
		Name:   StepDerive,
		Shadow: shadow,
		Derive: func(res Results) ([]*Step, error) {
			var rows [3][]map[string]any
			for i, s := range []*Step{introspect, definition, indexes} {
				out := res.Of(s)
				if out == nil {
					return nil, fmt.Errorf("sql/schema: missing %s result", s.Name)
				}
				rows[i] = out.Rows
			}
			return deriveRebuild(g, table, shadow, r, rows[0], rows[1], rows[2])
		},
	}
	return &Plan{Dialect: g.Name, Table: table, Steps: []*Step{introspect, definition, indexes, derive}}, nil
}

// deriveRebuild computes the rebuild statements from the introspection rows.
func deriveRebuild(g *dialect.Grammar, table, shadow string, r rebuild, info, def, idx []map[string]any) ([]*Step, error) {
	t, err := sqliteTable(table, info, def, idx)
	if err != nil {
		return nil, err
	}
	var ddl string
	if len(def) > 0 {
		ddl = strings.ToUpper(str(def[0], "sql"))
	}
	var warnings []string
	if strings.Contains(ddl, "REFERENCES") {
		warnings = append(warnings, fmt.Sprintf("foreign keys of %q are not preserved by the rebuild", table))
	}
	if strings.Contains(ddl, "CHECK") {
		warnings = append(warnings, fmt.Sprintf("check constraints of %q are not preserved by the rebuild", table))
	}
	// Source names are captured before the columns are changed in place.
	source := make(map[*schema.Column]string, len(t.Columns))
	for _, c := range t.Columns {
		source[c] = c.Name
	}
	if err := applyRebuild(t, r); err != nil {
		return nil, err
	}
	indexSet := t.Indexes[:0:0]
	for _, i := range t.Indexes {
		if slices.ContainsFunc(i.Parts, func(p *schema.IndexPart) bool { return !slices.Contains(t.Columns, p.C) }) {
			warnings = append(warnings, fmt.Sprintf("index %q is dropped with its columns", i.Name))
			continue
		}
		indexSet = append(indexSet, i)
	}
	t.Indexes = indexSet

	create, err := build(g, sql.OpRaw, table, func(b *sql.Builder) { createTable(b, shadow, t) })
	if err != nil {
		return nil, err
	}
	// Generated columns are computed by the shadow table itself.
	stored := slices.DeleteFunc(slices.Clone(t.Columns), func(c *schema.Column) bool { return generated(c) != nil })
	cp, err := build(g, sql.OpRaw, table, func(b *sql.Builder) {
		b.WriteString("insert into ").Ident(shadow).WriteString(" (")
		for i, c := range stored {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(c.Name)
		}
		b.WriteString(") select ")
		for i, c := range stored {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(source[c])
		}
		b.WriteString(" from ").Ident(table)
	})
	if err != nil {
		return nil, err
	}
	drop, err := build(g, sql.OpRaw, table, func(b *sql.Builder) { b.WriteString("drop table ").Ident(table) })
	if err != nil {
		return nil, err
	}
	swap, err := build(g, sql.OpRaw, table, func(b *sql.Builder) {
		b.WriteString("alter table ").Ident(shadow).WriteString(" rename to ").Ident(table)
	})
	if err != nil {
		return nil, err
	}
	steps := []*Step{
		{Name: StepCreateShadow, Stmt: create, Shadow: shadow, Warnings: warnings},
		{Name: StepCopy, Stmt: cp, Shadow: shadow},
		{Name: StepDropOriginal, Stmt: drop, Shadow: shadow},
		{Name: StepSwap, Stmt: swap, Shadow: shadow},
	}
	for _, i := range t.Indexes {
		stmt, err := build(g, sql.OpRaw, table, func(b *sql.Builder) { createIndex(b, table, i) })
		if err != nil {
			return nil, err
		}
		steps = append(steps, execStep(StepIndex, stmt))
	}
	return steps, nil
}

// sqliteTable builds the table model from the PRAGMA table_xinfo rows, the
// CREATE TABLE text and the index rows. Collations and generation
// expressions are read from the CREATE TABLE text.
func sqliteTable(name string, info, def, idx []map[string]any) (*schema.Table, error) {
	if len(info) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	var defs map[string]string
	if len(def) > 0 {
		defs = columnDefs(str(def[0], "sql"))
	}
	t := schema.NewTable(name)
	type pkPart struct {
		seq int
		c   *schema.Column
	}
	var pk []pkPart
	for _, row := range info {
		typ := str(row, "type")
		c := schema.NewColumn(str(row, "name")).
			SetType(&schema.UnsupportedType{T: typ}).
			SetNull(!flag(row, "notnull"))
		c.Type.Raw = typ
		if v, ok := get(row, "dflt_value"); ok && v != nil {
			c.SetDefault(&schema.RawExpr{X: str(row, "dflt_value")})
		}
		cdef := defs[strings.ToLower(c.Name)]
		if coll := collation(cdef); coll != "" {
			c.AddAttrs(&schema.Collation{V: coll})
		}
		switch hidden := num(row, "hidden"); hidden {
		case 0:
		case 2, 3:
			x := generatedExpr(cdef)
			if x == "" {
				return nil, fmt.Errorf("%w: generation expression of %s.%s not found", ErrUnsupportedColumn, name, c.Name)
			}
			kind := "VIRTUAL"
			if hidden == 3 {
				kind = "STORED"
			}
			c.SetGeneratedExpr(&schema.GeneratedExpr{Expr: x, Type: kind})
		default:
			return nil, fmt.Errorf("%w: hidden column %s.%s", ErrUnsupportedColumn, name, c.Name)
		}
		if seq := num(row, "pk"); seq > 0 {
			pk = append(pk, pkPart{seq: seq, c: c})
		}
		t.AddColumns(c)
	}
	if len(pk) > 0 {
		sort.Slice(pk, func(i, j int) bool { return pk[i].seq < pk[j].seq })
		cols := make([]*schema.Column, len(pk))
		for i := range pk {
			cols[i] = pk[i].c
		}
		t.SetPrimaryKey(schema.NewPrimaryKey(cols...))
		if len(cols) == 1 && len(def) > 0 && strings.Contains(strings.ToUpper(str(def[0], "sql")), "AUTOINCREMENT") {
			cols[0].AddAttrs(&sqlite.AutoIncrement{})
		}
	}
	byName := make(map[string]*schema.Index)
	for _, row := range idx {
		iname := str(row, "index_name")
		if flag(row, "is_partial") {
			return nil, fmt.Errorf("%w: partial index %q", ErrUnsupportedIndex, iname)
		}
		v, _ := get(row, "column_name")
		if v == nil {
			return nil, fmt.Errorf("%w: expression index %q", ErrUnsupportedIndex, iname)
		}
		c, ok := t.Column(str(row, "column_name"))
		if !ok {
			return nil, fmt.Errorf("%w: index %q references unknown column %q", ErrUnsupportedIndex, iname, str(row, "column_name"))
		}
		i, ok := byName[iname]
		if !ok {
			i = schema.NewIndex(iname).SetUnique(flag(row, "is_unique"))
			if str(row, "origin") == "u" {
				i.AddAttrs(&constraintIndex{})
			}
			byName[iname] = i
			t.AddIndexes(i)
		}
		i.AddColumns(c)
	}
	return t, nil
}

// constraintIndex marks an index created by a UNIQUE column constraint.
// SQLite names such indexes itself, so they are recreated under a new name.
type constraintIndex struct{ schema.Attr }

// applyRebuild applies the renames and drops to the table model.
func applyRebuild(t *schema.Table, r rebuild) error {
	for _, c := range t.Columns {
		x := generated(c)
		if x == nil || r.drops[c.Name] {
			continue
		}
		for name := range r.drops {
			if references(x.Expr, name) {
				return fmt.Errorf("%w: generated column %s.%s depends on dropped column %s", ErrUnsupportedColumn, t.Name, c.Name, name)
			}
		}
		for from := range r.renames {
			if references(x.Expr, from) {
				return fmt.Errorf("%w: generated column %s.%s depends on renamed column %s", ErrUnsupportedColumn, t.Name, c.Name, from)
			}
		}
	}
	for from, to := range r.renames {
		c := findColumn(t, from)
		if c == nil {
			return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, t.Name, from)
		}
		if o := findColumn(t, to); o != nil && o != c {
			return fmt.Errorf("sql/schema: column %s.%s already exists", t.Name, to)
		}
		c.Name = to
	}
	for name := range r.drops {
		c := findColumn(t, name)
		if c == nil {
			return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, t.Name, name)
		}
		if t.PrimaryKey != nil && slices.ContainsFunc(t.PrimaryKey.Parts, func(p *schema.IndexPart) bool { return p.C == c }) {
			return fmt.Errorf("sql/schema: cannot drop primary key column %s.%s", t.Name, name)
		}
		t.Columns = slices.DeleteFunc(t.Columns, func(o *schema.Column) bool { return o == c })
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("sql/schema: cannot drop every column of %s", t.Name)
	}
	for _, i := range t.Indexes {
		if slices.ContainsFunc(i.Attrs, func(a schema.Attr) bool { _, ok := a.(*constraintIndex); return ok }) {
			names := make([]string, 0, len(i.Parts))
			for _, p := range i.Parts {
				names = append(names, p.C.Name)
			}
			i.Name = t.Name + "_" + strings.Join(names, "_") + "_unique"
		}
	}
	return nil
}

func findColumn(t *schema.Table, name string) *schema.Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// createTable renders the CREATE TABLE statement of t under the given name.
func createTable(b *sql.Builder, name string, t *schema.Table) {
	var inlinePK *schema.Column
	if pk := t.PrimaryKey; pk != nil && len(pk.Parts) == 1 && autoIncrement(pk.Parts[0].C) {
		inlinePK = pk.Parts[0].C
	}
	b.WriteString("create table ").Ident(name).WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c.Name)
		if c.Type != nil && c.Type.Raw != "" {
			b.Pad().WriteString(c.Type.Raw)
		}
		if c.Type != nil && !c.Type.Null {
			b.WriteString(" not null")
		}
		if c == inlinePK {
			b.WriteString(" primary key autoincrement")
		}
		if x, ok := c.Default.(*schema.RawExpr); ok {
			b.WriteString(" default ").WriteString(defaultExpr(x.X))
		}
		if coll := collationOf(c); coll != "" {
			b.WriteString(" collate ").WriteString(coll)
		}
		if x := generated(c); x != nil {
			b.WriteString(" generated always as (").WriteString(x.Expr).WriteString(") ").WriteString(strings.ToLower(x.Type))
		}
	}
	if pk := t.PrimaryKey; pk != nil && inlinePK == nil {
		b.WriteString(", primary key (")
		for i, p := range pk.Parts {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(p.C.Name)
		}
		b.Byte(')')
	}
	b.Byte(')')
}

func createIndex(b *sql.Builder, table string, i *schema.Index) {
	b.WriteString("create ")
	if i.Unique {
		b.WriteString("unique ")
	}
	b.WriteString("index ").Ident(i.Name).WriteString(" on ").Ident(table).WriteString(" (")
	for j, p := range i.Parts {
		if j > 0 {
			b.WriteString(", ")
		}
		b.Ident(p.C.Name)
	}
	b.Byte(')')
}

// defaultExpr wraps function call defaults in parentheses, as the
// CREATE TABLE grammar only accepts literals unwrapped.
func defaultExpr(x string) string {
	if strings.Contains(x, "(") && !strings.HasPrefix(x, "(") && !strings.HasPrefix(x, "'") {
		return "(" + x + ")"
	}
	return x
}

func collationOf(c *schema.Column) string {
	for _, a := range c.Attrs {
		if x, ok := a.(*schema.Collation); ok {
			return x.V
		}
	}
	return ""
}

func generated(c *schema.Column) *schema.GeneratedExpr {
	for _, a := range c.Attrs {
		if x, ok := a.(*schema.GeneratedExpr); ok {
			return x
		}
	}
	return nil
}

func autoIncrement(c *schema.Column) bool {
	return slices.ContainsFunc(c.Attrs, func(a schema.Attr) bool {
		_, ok := a.(*sqlite.AutoIncrement)
		return ok
	})
}

// flag reports if an integer-like column value is non-zero.
func flag(row map[string]any, key string) bool {
	return num(row, key) != 0
}

func num(row map[string]any, key string) int {
	v, ok := get(row, key)
	if !ok || v == nil {
		return 0
	}
	switch v := v.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		n, _ := strconv.Atoi(fmt.Sprint(v))
		return n
	}
}
