package schema

import (
	"github.com/leapstack-labs/sqlharvest/pkg/sqllex"
	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// parseAlterTable interprets ALTER TABLE. A target table never seen
// in this unit is an unresolved-target soft failure; the statement is
// skipped without inventing a table.
func (b *Builder) parseAlterTable() (*Delta, error) {
	if !b.match(token.TOKEN_ALTER) {
		return nil, b.errorf("expected ALTER")
	}
	if !b.match(token.TOKEN_TABLE) {
		return nil, b.errorf("expected TABLE")
	}
	// MySQL dumps: ALTER TABLE IF EXISTS / ONLY t
	if b.check(token.TOKEN_IF) {
		b.advance()
		b.match(token.TOKEN_EXISTS)
	}

	name, ok := b.qualifiedName()
	if !ok {
		return nil, b.errorf("missing table name")
	}

	tbl, ok := b.catalog.Table(name)
	if !ok {
		b.catalog.recordFailure(FailUnknownTable, Normalize(name), "ALTER TABLE target not defined in unit")
		return &Delta{Kind: sqllex.KindAlterTable, Table: Normalize(name), Skipped: true}, nil
	}

	altered := false
	for !b.atEnd() {
		if b.parseAlterAction(tbl) {
			altered = true
		}
		b.skipToCommaOrEnd()
		if !b.match(token.TOKEN_COMMA) {
			break
		}
	}

	return &Delta{Kind: sqllex.KindAlterTable, Table: tbl.Name, Altered: altered, Skipped: !altered}, nil
}

// parseAlterAction handles one comma-separated action. Returns true
// when the action changed the table.
func (b *Builder) parseAlterAction(tbl *Table) bool {
	switch b.cur().Type {
	case token.TOKEN_ADD:
		b.advance()
		return b.parseAddAction(tbl)
	case token.TOKEN_DROP:
		b.advance()
		return b.parseDropAction(tbl)
	case token.TOKEN_MODIFY:
		b.advance()
		b.match(token.TOKEN_COLUMN)
		return b.parseModifyColumn(tbl)
	case token.TOKEN_CHANGE:
		// MySQL: CHANGE [COLUMN] old_name new_name type ...
		b.advance()
		b.match(token.TOKEN_COLUMN)
		return b.parseChangeColumn(tbl)
	case token.TOKEN_ALTER:
		// ALTER COLUMN name {SET DEFAULT x | DROP DEFAULT | TYPE t | SET/DROP NOT NULL}
		b.advance()
		b.match(token.TOKEN_COLUMN)
		return b.parseAlterColumn(tbl)
	case token.TOKEN_RENAME:
		b.advance()
		return b.parseRenameAction(tbl)
	default:
		return false
	}
}

func (b *Builder) parseAddAction(tbl *Table) bool {
	switch b.cur().Type {
	case token.TOKEN_CONSTRAINT:
		b.advance()
		b.identName() // constraint name
		return b.parseAddAction(tbl)
	case token.TOKEN_PRIMARY:
		b.advance()
		b.match(token.TOKEN_KEY)
		cols, ok := b.parseColumnNameList()
		if !ok {
			return false
		}
		if !tbl.HasColumns(cols) {
			b.catalog.recordFailure(FailUnknownColumn, tbl.Name, "primary key references missing column")
			return false
		}
		tbl.Keys = append(tbl.Keys, Key{Kind: KeyPrimary, Columns: cols})
		return true
	case token.TOKEN_UNIQUE:
		b.advance()
		b.match(token.TOKEN_KEY, token.TOKEN_INDEX)
		if !b.check(token.TOKEN_LPAREN) {
			b.identName()
		}
		cols, ok := b.parseColumnNameList()
		if !ok {
			return false
		}
		if !tbl.HasColumns(cols) {
			b.catalog.recordFailure(FailUnknownColumn, tbl.Name, "unique key references missing column")
			return false
		}
		tbl.Keys = append(tbl.Keys, Key{Kind: KeyUnique, Columns: cols})
		return true
	case token.TOKEN_FOREIGN:
		b.advance()
		b.match(token.TOKEN_KEY)
		if !b.check(token.TOKEN_LPAREN) {
			b.identName()
		}
		cols, ok := b.parseColumnNameList()
		if !ok {
			return false
		}
		fk, ok := b.parseReferences(cols)
		if !ok {
			return false
		}
		tbl.ForeignKeys = append(tbl.ForeignKeys, fk)
		return true
	case token.TOKEN_KEY, token.TOKEN_INDEX:
		b.advance()
		name := ""
		if !b.check(token.TOKEN_LPAREN) {
			name, _ = b.identName()
		}
		cols, ok := b.parseColumnNameList()
		if !ok {
			return false
		}
		tbl.Indices = append(tbl.Indices, Index{Name: Normalize(name), Columns: cols})
		return true
	case token.TOKEN_COLUMN:
		b.advance()
		return b.parseAddColumns(tbl)
	case token.TOKEN_LPAREN:
		return b.parseAddColumns(tbl)
	default:
		// bare ADD name type
		return b.parseAddColumns(tbl)
	}
}

// parseAddColumns handles single and parenthesized multi-column ADDs:
// ADD COLUMN c INT, ADD (a INT, b TEXT).
func (b *Builder) parseAddColumns(tbl *Table) bool {
	if b.match(token.TOKEN_LPAREN) {
		before := tbl.NumColumns()
		for !b.atEnd() && !b.check(token.TOKEN_RPAREN) {
			b.parseColumnDef(tbl)
			if !b.match(token.TOKEN_COMMA) {
				break
			}
		}
		b.match(token.TOKEN_RPAREN)
		return tbl.NumColumns() > before
	}

	before := tbl.NumColumns()
	b.parseColumnDef(tbl)
	return tbl.NumColumns() > before
}

func (b *Builder) parseDropAction(tbl *Table) bool {
	switch b.cur().Type {
	case token.TOKEN_COLUMN:
		b.advance()
		name, ok := b.identName()
		if !ok {
			return false
		}
		return b.dropColumn(tbl, name)
	case token.TOKEN_PRIMARY:
		b.advance()
		b.match(token.TOKEN_KEY)
		for i, k := range tbl.Keys {
			if k.Kind == KeyPrimary {
				tbl.Keys = append(tbl.Keys[:i], tbl.Keys[i+1:]...)
				return true
			}
		}
		return false
	case token.TOKEN_FOREIGN:
		// DROP FOREIGN KEY name: names are not tracked, drop the last
		b.advance()
		b.match(token.TOKEN_KEY)
		b.identName()
		if len(tbl.ForeignKeys) > 0 {
			tbl.ForeignKeys = tbl.ForeignKeys[:len(tbl.ForeignKeys)-1]
			return true
		}
		return false
	case token.TOKEN_CONSTRAINT, token.TOKEN_INDEX, token.TOKEN_KEY:
		b.advance()
		b.identName()
		return true
	default:
		// bare DROP name
		name, ok := b.identName()
		if !ok {
			return false
		}
		return b.dropColumn(tbl, name)
	}
}

func (b *Builder) dropColumn(tbl *Table, name string) bool {
	if !tbl.DropColumn(name) {
		b.catalog.recordFailure(FailUnknownColumn, tbl.Name, "DROP COLUMN target missing: "+Normalize(name))
		return false
	}
	return true
}

// parseModifyColumn replaces a column's type, nullability, and
// default in place, keeping its ordinal.
func (b *Builder) parseModifyColumn(tbl *Table) bool {
	name, ok := b.identName()
	if !ok {
		return false
	}
	col, ok := tbl.Column(name)
	if !ok {
		b.catalog.recordFailure(FailUnknownColumn, tbl.Name, "MODIFY COLUMN target missing: "+Normalize(name))
		return false
	}

	col.RawType = b.parseColumnType()
	col.Category = normalizeCategory(col.RawType)
	col.NotNull = false
	col.Default = ""
	b.parseInlineConstraints(tbl, col)
	return true
}

// parseChangeColumn renames a column and replaces its definition.
func (b *Builder) parseChangeColumn(tbl *Table) bool {
	oldName, ok := b.identName()
	if !ok {
		return false
	}
	newName, ok := b.identName()
	if !ok {
		return false
	}

	col, ok := tbl.Column(oldName)
	if !ok {
		b.catalog.recordFailure(FailUnknownColumn, tbl.Name, "CHANGE COLUMN target missing: "+Normalize(oldName))
		return false
	}

	ordinal := col.Ordinal
	tbl.DropColumn(oldName)

	renamed := &Column{Name: newName}
	renamed.RawType = b.parseColumnType()
	renamed.Category = normalizeCategory(renamed.RawType)
	b.parseInlineConstraints(tbl, renamed)

	tbl.AddColumn(renamed)
	b.restoreOrdinal(tbl, renamed.Name, ordinal)
	return true
}

// parseAlterColumn handles the ANSI ALTER COLUMN forms.
func (b *Builder) parseAlterColumn(tbl *Table) bool {
	name, ok := b.identName()
	if !ok {
		return false
	}
	col, ok := tbl.Column(name)
	if !ok {
		b.catalog.recordFailure(FailUnknownColumn, tbl.Name, "ALTER COLUMN target missing: "+Normalize(name))
		return false
	}

	switch b.cur().Type {
	case token.TOKEN_SET:
		b.advance()
		switch b.cur().Type {
		case token.TOKEN_DEFAULT:
			b.advance()
			col.Default = b.parseDefaultExpr()
			return true
		case token.TOKEN_NOT:
			b.advance()
			if b.match(token.TOKEN_NULL) {
				col.NotNull = true
				return true
			}
			return false
		default:
			return false
		}
	case token.TOKEN_DROP:
		b.advance()
		switch b.cur().Type {
		case token.TOKEN_DEFAULT:
			b.advance()
			col.Default = ""
			return true
		case token.TOKEN_NOT:
			b.advance()
			if b.match(token.TOKEN_NULL) {
				col.NotNull = false
				return true
			}
			return false
		default:
			return false
		}
	case token.TOKEN_IDENT:
		// ALTER COLUMN c TYPE text (postgres spells out TYPE)
		if Normalize(b.cur().Literal) == "type" {
			b.advance()
		}
		col.RawType = b.parseColumnType()
		col.Category = normalizeCategory(col.RawType)
		return col.RawType != ""
	default:
		return false
	}
}

// parseRenameAction handles RENAME TO newname; RENAME COLUMN is
// delegated to the same rename path as CHANGE.
func (b *Builder) parseRenameAction(tbl *Table) bool {
	switch b.cur().Type {
	case token.TOKEN_TO:
		b.advance()
		newName, ok := b.qualifiedName()
		if !ok {
			return false
		}
		return b.renameTable(tbl, newName)
	case token.TOKEN_COLUMN:
		b.advance()
		oldName, ok := b.identName()
		if !ok {
			return false
		}
		if !b.match(token.TOKEN_TO) {
			return false
		}
		newName, ok := b.identName()
		if !ok {
			return false
		}
		col, ok := tbl.Column(oldName)
		if !ok {
			b.catalog.recordFailure(FailUnknownColumn, tbl.Name, "RENAME COLUMN target missing: "+Normalize(oldName))
			return false
		}
		ordinal := col.Ordinal
		clone := *col
		clone.Name = newName
		tbl.DropColumn(oldName)
		tbl.AddColumn(&clone)
		b.restoreOrdinal(tbl, clone.Name, ordinal)
		return true
	default:
		return false
	}
}

// renameTable re-keys the table in the catalog. A taken name is a
// duplicate-table soft failure and the rename is dropped.
func (b *Builder) renameTable(tbl *Table, newName string) bool {
	newName = Normalize(newName)
	if newName == tbl.Name {
		return false
	}
	if _, taken := b.catalog.tables[newName]; taken {
		b.catalog.recordFailure(FailDuplicateTable, newName, "RENAME TO existing table")
		return false
	}
	delete(b.catalog.tables, tbl.Name)
	for i, n := range b.catalog.order {
		if n == tbl.Name {
			b.catalog.order[i] = newName
			break
		}
	}
	tbl.Name = newName
	b.catalog.tables[newName] = tbl
	return true
}

// restoreOrdinal moves a just-appended column back to the position of
// the column it replaced.
func (b *Builder) restoreOrdinal(tbl *Table, name string, ordinal int) {
	if ordinal < 0 || ordinal >= len(tbl.order)-1 {
		return
	}
	last := len(tbl.order) - 1
	if tbl.order[last] != name {
		return
	}
	copy(tbl.order[ordinal+1:], tbl.order[ordinal:last])
	tbl.order[ordinal] = name
	for i, n := range tbl.order {
		tbl.columns[n].Ordinal = i
	}
}

// parseCreateIndex interprets CREATE [UNIQUE] INDEX name ON t (cols).
func (b *Builder) parseCreateIndex() (*Delta, error) {
	if !b.match(token.TOKEN_CREATE) {
		return nil, b.errorf("expected CREATE")
	}
	unique := b.match(token.TOKEN_UNIQUE)
	if !b.match(token.TOKEN_INDEX) {
		return nil, b.errorf("expected INDEX")
	}
	b.matchIfNotExists()

	idxName, _ := b.identName()
	if !b.match(token.TOKEN_ON) {
		return nil, b.errorf("expected ON")
	}
	tableName, ok := b.qualifiedName()
	if !ok {
		return nil, b.errorf("missing table name")
	}
	// USING btree and friends before the column list
	if b.match(token.TOKEN_USING) {
		b.identName()
	}
	cols, ok := b.parseColumnNameList()
	if !ok {
		return nil, b.errorf("missing index column list")
	}

	tbl, found := b.catalog.Table(tableName)
	if !found {
		b.catalog.recordFailure(FailUnknownTable, Normalize(tableName), "CREATE INDEX target not defined in unit")
		return &Delta{Kind: sqllex.KindCreateIndex, Table: Normalize(tableName), Skipped: true}, nil
	}

	tbl.Indices = append(tbl.Indices, Index{Name: Normalize(idxName), Columns: cols, Unique: unique})
	if unique {
		tbl.Keys = append(tbl.Keys, Key{Kind: KeyUnique, Columns: cols})
	}
	return &Delta{Kind: sqllex.KindCreateIndex, Table: tbl.Name, Indexed: true}, nil
}
