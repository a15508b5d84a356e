package schema

import (
	"strings"

	"github.com/leapstack-labs/sqlharvest/pkg/sqllex"
	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// parseCreateTable interprets CREATE TABLE. A duplicate table name is
// a soft failure: the first definition is kept and the statement is
// dropped so the earlier schema is never silently overwritten.
func (b *Builder) parseCreateTable() (*Delta, error) {
	if !b.match(token.TOKEN_CREATE) {
		return nil, b.errorf("expected CREATE")
	}
	// TEMPORARY and similar modifiers before TABLE
	for !b.atEnd() && !b.check(token.TOKEN_TABLE) {
		b.advance()
	}
	if !b.match(token.TOKEN_TABLE) {
		return nil, b.errorf("expected TABLE")
	}
	b.matchIfNotExists()

	name, ok := b.qualifiedName()
	if !ok {
		return nil, b.errorf("missing table name")
	}

	tbl := NewTable(name)

	// CREATE TABLE t AS SELECT ... has no column list; it falls
	// through and is rejected below as having no parseable columns.
	if b.check(token.TOKEN_LPAREN) {
		if err := b.parseTableBody(tbl); err != nil {
			return nil, err
		}
	}

	if tbl.NumColumns() == 0 && len(tbl.Keys) == 0 {
		return nil, b.errorf("table %s has no parseable columns", tbl.Name)
	}

	if !b.catalog.add(tbl) {
		b.catalog.recordFailure(FailDuplicateTable, tbl.Name, "duplicate CREATE TABLE, first definition kept")
		return &Delta{Kind: sqllex.KindCreateTable, Table: tbl.Name, Skipped: true}, nil
	}

	b.resolveNewForeignKeys(tbl)
	return &Delta{Kind: sqllex.KindCreateTable, Table: tbl.Name, Created: true}, nil
}

// parseTableBody parses the parenthesized element list: column
// definitions and table-level constraints, comma separated.
func (b *Builder) parseTableBody(tbl *Table) error {
	if !b.match(token.TOKEN_LPAREN) {
		return b.errorf("expected column list")
	}

	for !b.atEnd() && !b.check(token.TOKEN_RPAREN) {
		b.parseTableElement(tbl)
		b.skipToCommaOrEnd()
		if !b.match(token.TOKEN_COMMA) {
			break
		}
	}

	if !b.match(token.TOKEN_RPAREN) {
		return b.errorf("unterminated column list")
	}
	return nil
}

// parseTableElement parses one comma-separated element. Elements that
// cannot be interpreted are skipped by the caller's comma scan; one
// bad element never discards the table.
func (b *Builder) parseTableElement(tbl *Table) {
	switch b.cur().Type {
	case token.TOKEN_CONSTRAINT:
		b.advance()
		b.identName() // constraint name
		b.parseTableElement(tbl)
	case token.TOKEN_PRIMARY:
		b.advance()
		b.match(token.TOKEN_KEY)
		if cols, ok := b.parseColumnNameList(); ok {
			tbl.Keys = append(tbl.Keys, Key{Kind: KeyPrimary, Columns: cols})
		}
	case token.TOKEN_UNIQUE:
		b.advance()
		b.match(token.TOKEN_KEY, token.TOKEN_INDEX)
		if !b.check(token.TOKEN_LPAREN) {
			b.identName() // optional constraint/index name
		}
		if cols, ok := b.parseColumnNameList(); ok {
			tbl.Keys = append(tbl.Keys, Key{Kind: KeyUnique, Columns: cols})
		}
	case token.TOKEN_FOREIGN:
		b.advance()
		b.match(token.TOKEN_KEY)
		if !b.check(token.TOKEN_LPAREN) {
			b.identName()
		}
		cols, ok := b.parseColumnNameList()
		if !ok {
			return
		}
		if fk, ok := b.parseReferences(cols); ok {
			tbl.ForeignKeys = append(tbl.ForeignKeys, fk)
		}
	case token.TOKEN_KEY, token.TOKEN_INDEX:
		// Only a constraint when a column list follows, directly or
		// after an index name; otherwise it is a column named
		// "key"/"index".
		if b.peek().Type == token.TOKEN_LPAREN ||
			(b.peek().Type == token.TOKEN_IDENT && b.peek2().Type == token.TOKEN_LPAREN) {
			b.advance()
			name := ""
			if !b.check(token.TOKEN_LPAREN) {
				name, _ = b.identName()
			}
			if cols, ok := b.parseColumnNameList(); ok {
				tbl.Keys = append(tbl.Keys, Key{Kind: KeyCandidate, Columns: cols})
				tbl.Indices = append(tbl.Indices, Index{Name: Normalize(name), Columns: cols})
			}
			return
		}
		b.parseColumnDef(tbl)
	case token.TOKEN_CHECK:
		b.advance()
		b.skipParens()
	default:
		b.parseColumnDef(tbl)
	}
}

// parseColumnDef parses "name type [inline constraints]".
func (b *Builder) parseColumnDef(tbl *Table) {
	name, ok := b.identName()
	if !ok {
		return
	}

	col := &Column{Name: name}
	col.RawType = b.parseColumnType()
	col.Category = normalizeCategory(col.RawType)

	b.parseInlineConstraints(tbl, col)

	if !tbl.AddColumn(col) {
		// first definition wins, same as duplicate tables
		b.catalog.recordFailure(FailUnknownColumn, tbl.Name, "duplicate column "+Normalize(name))
	}
}

// parseColumnType reads the declared type, joining multiword types
// ("double precision", "character varying") and stripping size parens.
func (b *Builder) parseColumnType() string {
	var parts []string
	for b.check(token.TOKEN_IDENT) {
		parts = append(parts, strings.ToLower(b.advance().Literal))
		if b.check(token.TOKEN_LPAREN) {
			b.skipParens()
		}
	}
	return strings.Join(parts, " ")
}

// parseInlineConstraints consumes the remainder of a column
// definition. Unknown trailing tokens (AUTO_INCREMENT, character
// sets, ON UPDATE clauses) are skipped by the element scan.
func (b *Builder) parseInlineConstraints(tbl *Table, col *Column) {
	for !b.atEnd() {
		switch b.cur().Type {
		case token.TOKEN_COMMA, token.TOKEN_RPAREN:
			return
		case token.TOKEN_NOT:
			b.advance()
			if b.match(token.TOKEN_NULL) {
				col.NotNull = true
			}
		case token.TOKEN_NULL:
			b.advance()
			col.NotNull = false
		case token.TOKEN_PRIMARY:
			b.advance()
			b.match(token.TOKEN_KEY)
			tbl.Keys = append(tbl.Keys, Key{Kind: KeyPrimary, Columns: []string{Normalize(col.Name)}})
			col.NotNull = true
		case token.TOKEN_UNIQUE:
			b.advance()
			b.match(token.TOKEN_KEY)
			tbl.Keys = append(tbl.Keys, Key{Kind: KeyUnique, Columns: []string{Normalize(col.Name)}})
		case token.TOKEN_DEFAULT:
			b.advance()
			col.Default = b.parseDefaultExpr()
		case token.TOKEN_REFERENCES:
			if fk, ok := b.parseReferences([]string{Normalize(col.Name)}); ok {
				tbl.ForeignKeys = append(tbl.ForeignKeys, fk)
			}
		case token.TOKEN_COMMENT:
			b.advance()
			b.advance() // the comment literal
		case token.TOKEN_CHECK:
			b.advance()
			b.skipParens()
		default:
			b.advance()
		}
	}
}

// parseDefaultExpr reads a default value: a literal, NULL, or a
// function call like CURRENT_TIMESTAMP or now().
func (b *Builder) parseDefaultExpr() string {
	tok := b.cur()
	switch tok.Type {
	case token.TOKEN_STRING, token.TOKEN_NUMBER, token.TOKEN_IDENT,
		token.TOKEN_NULL, token.TOKEN_TRUE, token.TOKEN_FALSE:
		b.advance()
		if b.check(token.TOKEN_LPAREN) {
			b.skipParens()
			return tok.Literal + "()"
		}
		return tok.Literal
	case token.TOKEN_MINUS:
		b.advance()
		if b.check(token.TOKEN_NUMBER) {
			return "-" + b.advance().Literal
		}
		return "-"
	case token.TOKEN_LPAREN:
		b.skipParens()
		return "(expr)"
	default:
		return ""
	}
}

// parseReferences parses "REFERENCES table [(cols)]" and resolves the
// target against tables seen so far. An unknown target stays
// unresolved for the catalog's second pass.
func (b *Builder) parseReferences(childCols []string) (ForeignKey, bool) {
	if !b.match(token.TOKEN_REFERENCES) {
		return ForeignKey{}, false
	}
	refTable, ok := b.qualifiedName()
	if !ok {
		return ForeignKey{}, false
	}

	fk := ForeignKey{
		Columns:  childCols,
		RefTable: Normalize(refTable),
	}
	if b.check(token.TOKEN_LPAREN) {
		if cols, ok := b.parseColumnNameList(); ok {
			fk.RefColumns = cols
		}
	}

	if target, ok := b.catalog.Table(fk.RefTable); ok && refColumnsValid(target, fk.RefColumns) {
		fk.Resolved = true
	}
	return fk, true
}

// resolveNewForeignKeys retries resolution for a just-added table's
// keys; self-references become resolvable only once the table exists.
func (b *Builder) resolveNewForeignKeys(tbl *Table) {
	for i := range tbl.ForeignKeys {
		fk := &tbl.ForeignKeys[i]
		if fk.Resolved {
			continue
		}
		if target, ok := b.catalog.Table(fk.RefTable); ok && refColumnsValid(target, fk.RefColumns) {
			fk.Resolved = true
		}
	}
}

// matchIfNotExists consumes an optional IF NOT EXISTS.
func (b *Builder) matchIfNotExists() {
	if b.check(token.TOKEN_IF) {
		b.advance()
		b.match(token.TOKEN_NOT)
		b.match(token.TOKEN_EXISTS)
	}
}
