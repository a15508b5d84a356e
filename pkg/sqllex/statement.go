// Package sqllex turns raw, dialect-mixed SQL text into ordered token
// sequences and coarse statement classifications. It is the only layer
// that touches the corpus text directly; everything downstream consumes
// the Statement view it produces.
package sqllex

import (
	"strings"

	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// MaxStatementLen caps the byte length of a single statement. Mined
// corpora contain megabyte-scale INSERT dumps that carry no schema or
// query structure worth the tokenization cost.
const MaxStatementLen = 50000

// Kind is the coarse classification of one statement.
type Kind int

const (
	// KindOther covers statements the pipeline ignores (INSERT, UPDATE,
	// SET, transaction control, vendor directives).
	KindOther Kind = iota
	// KindCreateTable is a CREATE TABLE statement.
	KindCreateTable
	// KindAlterTable is an ALTER TABLE statement.
	KindAlterTable
	// KindCreateIndex is a CREATE [UNIQUE] INDEX statement.
	KindCreateIndex
	// KindQuery is a SELECT statement, possibly nested or set-combined.
	KindQuery
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindCreateTable:
		return "create_table"
	case KindAlterTable:
		return "alter_table"
	case KindCreateIndex:
		return "create_index"
	case KindQuery:
		return "query"
	default:
		return "other"
	}
}

// IsDDL reports whether the statement defines or mutates schema.
func (k Kind) IsDDL() bool {
	return k == KindCreateTable || k == KindAlterTable || k == KindCreateIndex
}

// Statement is one tokenized SQL statement. It exposes only the
// classification, the ordered tokens, and the byte span within the
// source file; callers never see lexer internals.
type Statement struct {
	Kind   Kind
	Tokens []token.Token
	Span   token.Span
	Text   string
}

// Tokenize lexes one statement's text into a classified Statement.
// The span is relative to the statement text itself; the splitter
// rebases it onto the source file.
func Tokenize(text string) (*Statement, error) {
	if len(text) > MaxStatementLen {
		return nil, &LexError{Message: "statement exceeds size cap", Length: len(text)}
	}

	l := NewLexer(text)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		if tok.Type == token.TOKEN_EOF {
			break
		}
		tokens = append(tokens, tok)
	}

	if len(tokens) == 0 {
		return nil, &LexError{Message: "no tokens in statement"}
	}

	return &Statement{
		Kind:   classify(tokens),
		Tokens: tokens,
		Span:   token.Span{Start: 0, End: len(text)},
		Text:   text,
	}, nil
}

// classify tags a token sequence with its statement kind. Leading
// parens are skipped so `(SELECT ...)` set-operation branches still
// classify as queries.
func classify(tokens []token.Token) Kind {
	i := 0
	for i < len(tokens) && tokens[i].Type == token.TOKEN_LPAREN {
		i++
	}
	if i >= len(tokens) {
		return KindOther
	}

	switch tokens[i].Type {
	case token.TOKEN_SELECT, token.TOKEN_WITH:
		return KindQuery
	case token.TOKEN_ALTER:
		if next(tokens, i+1) == token.TOKEN_TABLE {
			return KindAlterTable
		}
		return KindOther
	case token.TOKEN_CREATE:
		j := i + 1
		// CREATE TEMPORARY TABLE and CREATE TEMP TABLE still define schema.
		for j < len(tokens) && tokens[j].Type == token.TOKEN_IDENT && isTempModifier(tokens[j].Literal) {
			j++
		}
		switch next(tokens, j) {
		case token.TOKEN_TABLE:
			return KindCreateTable
		case token.TOKEN_INDEX:
			return KindCreateIndex
		case token.TOKEN_UNIQUE:
			if next(tokens, j+1) == token.TOKEN_INDEX {
				return KindCreateIndex
			}
		}
		return KindOther
	default:
		return KindOther
	}
}

func isTempModifier(lit string) bool {
	switch strings.ToLower(lit) {
	case "temporary", "temp":
		return true
	}
	return false
}

func next(tokens []token.Token, i int) token.Type {
	if i >= len(tokens) {
		return token.TOKEN_EOF
	}
	return tokens[i].Type
}
