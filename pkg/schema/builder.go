package schema

import (
	"fmt"

	"github.com/leapstack-labs/sqlharvest/pkg/sqllex"
	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// Delta summarizes what one DDL statement did to the catalog.
type Delta struct {
	Kind    sqllex.Kind
	Table   string
	Created bool
	Altered bool
	Indexed bool
	// Skipped is set when the statement was dropped as a soft failure
	// (duplicate name, unknown target). The catalog records why.
	Skipped bool
}

// Builder applies DDL statements to a catalog. One builder serves one
// processing unit; it is not safe for concurrent use and does not need
// to be.
type Builder struct {
	catalog *Catalog

	tokens []token.Token
	pos    int
}

// NewBuilder creates a builder over the given catalog.
func NewBuilder(catalog *Catalog) *Builder {
	return &Builder{catalog: catalog}
}

// Catalog returns the catalog under construction.
func (b *Builder) Catalog() *Catalog {
	return b.catalog
}

// ApplyDDL interprets one classified DDL statement. Malformed DDL
// returns a *ParseError and leaves the catalog unchanged beyond any
// recorded soft failure; the caller skips to the next statement.
func (b *Builder) ApplyDDL(stmt *sqllex.Statement) (*Delta, error) {
	b.tokens = stmt.Tokens
	b.pos = 0

	switch stmt.Kind {
	case sqllex.KindCreateTable:
		return b.parseCreateTable()
	case sqllex.KindAlterTable:
		return b.parseAlterTable()
	case sqllex.KindCreateIndex:
		return b.parseCreateIndex()
	default:
		return nil, b.errorf("not a DDL statement: %s", stmt.Kind)
	}
}

// --- cursor helpers ---

func (b *Builder) cur() token.Token {
	if b.pos >= len(b.tokens) {
		return token.Token{Type: token.TOKEN_EOF}
	}
	return b.tokens[b.pos]
}

func (b *Builder) peek() token.Token {
	if b.pos+1 >= len(b.tokens) {
		return token.Token{Type: token.TOKEN_EOF}
	}
	return b.tokens[b.pos+1]
}

func (b *Builder) peek2() token.Token {
	if b.pos+2 >= len(b.tokens) {
		return token.Token{Type: token.TOKEN_EOF}
	}
	return b.tokens[b.pos+2]
}

func (b *Builder) advance() token.Token {
	tok := b.cur()
	if b.pos < len(b.tokens) {
		b.pos++
	}
	return tok
}

func (b *Builder) check(t token.Type) bool {
	return b.cur().Type == t
}

func (b *Builder) match(types ...token.Type) bool {
	for _, t := range types {
		if b.cur().Type == t {
			b.advance()
			return true
		}
	}
	return false
}

func (b *Builder) atEnd() bool {
	return b.cur().Type == token.TOKEN_EOF
}

// identName consumes a token usable as a name. Mined DDL routinely
// uses reserved words as identifiers, so any keyword literal is
// accepted in a name position.
func (b *Builder) identName() (string, bool) {
	tok := b.cur()
	if tok.Type == token.TOKEN_IDENT || tok.Type == token.TOKEN_STRING || tok.Type.IsKeyword() {
		b.advance()
		return tok.Literal, true
	}
	return "", false
}

// qualifiedName consumes db.schema.table style names, returning the
// final component. The corpus never needs the qualifier chain.
func (b *Builder) qualifiedName() (string, bool) {
	name, ok := b.identName()
	if !ok {
		return "", false
	}
	for b.check(token.TOKEN_DOT) {
		b.advance()
		next, ok := b.identName()
		if !ok {
			break
		}
		name = next
	}
	return name, true
}

// skipParens skips a balanced parenthesized group, cursor on '('.
func (b *Builder) skipParens() {
	if !b.check(token.TOKEN_LPAREN) {
		return
	}
	depth := 0
	for !b.atEnd() {
		switch b.cur().Type {
		case token.TOKEN_LPAREN:
			depth++
		case token.TOKEN_RPAREN:
			depth--
			if depth == 0 {
				b.advance()
				return
			}
		}
		b.advance()
	}
}

// skipToCommaOrEnd advances to the next top-level comma inside the
// current paren depth, or to the closing paren / end of statement.
func (b *Builder) skipToCommaOrEnd() {
	depth := 0
	for !b.atEnd() {
		switch b.cur().Type {
		case token.TOKEN_LPAREN:
			depth++
		case token.TOKEN_RPAREN:
			if depth == 0 {
				return
			}
			depth--
		case token.TOKEN_COMMA:
			if depth == 0 {
				return
			}
		}
		b.advance()
	}
}

func (b *Builder) errorf(format string, args ...any) error {
	return &ParseError{
		Pos:     b.cur().Pos,
		Message: fmt.Sprintf(format, args...),
	}
}

// parseColumnNameList parses "(a, b DESC, c(10))" into clean column
// names. ASC/DESC markers and index prefix lengths are dropped.
func (b *Builder) parseColumnNameList() ([]string, bool) {
	if !b.match(token.TOKEN_LPAREN) {
		return nil, false
	}
	var cols []string
	for !b.atEnd() && !b.check(token.TOKEN_RPAREN) {
		name, ok := b.identName()
		if !ok {
			return nil, false
		}
		cols = append(cols, Normalize(name))
		if b.check(token.TOKEN_LPAREN) {
			b.skipParens()
		}
		b.match(token.TOKEN_ASC, token.TOKEN_DESC)
		if !b.match(token.TOKEN_COMMA) {
			break
		}
	}
	if !b.match(token.TOKEN_RPAREN) {
		return nil, false
	}
	if len(cols) == 0 {
		return nil, false
	}
	return cols, true
}
