package query

import (
	"strings"

	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// clauses holds the top-level token slices of one scope. Each slice
// excludes its introducing keyword(s).
type clauses struct {
	selectList []token.Token
	from       []token.Token
	where      []token.Token
	groupBy    []token.Token
	having     []token.Token
}

// splitClauses carves a node's own token slice at its clause
// keywords. Child scopes are already cut out, so every keyword seen
// here belongs to this scope, except those nested in expression
// parens, which are skipped by depth tracking.
func splitClauses(toks []token.Token) clauses {
	var c clauses

	type mark struct {
		kind  token.Type
		start int // first token after the clause keyword(s)
	}
	var marks []mark

	depth := 0
	for i := 0; i < len(toks); i++ {
		switch toks[i].Type {
		case token.TOKEN_LPAREN:
			depth++
		case token.TOKEN_RPAREN:
			if depth > 0 {
				depth--
			}
		case token.TOKEN_SELECT, token.TOKEN_FROM, token.TOKEN_WHERE, token.TOKEN_HAVING:
			if depth == 0 {
				marks = append(marks, mark{kind: toks[i].Type, start: i + 1})
			}
		case token.TOKEN_GROUP, token.TOKEN_ORDER:
			if depth == 0 && i+1 < len(toks) && toks[i+1].Type == token.TOKEN_BY {
				marks = append(marks, mark{kind: toks[i].Type, start: i + 2})
			}
		case token.TOKEN_LIMIT, token.TOKEN_OFFSET,
			token.TOKEN_UNION, token.TOKEN_INTERSECT, token.TOKEN_EXCEPT:
			if depth == 0 {
				marks = append(marks, mark{kind: toks[i].Type, start: i + 1})
			}
		}
	}

	for mi, m := range marks {
		end := len(toks)
		if mi+1 < len(marks) {
			// the next clause keyword bounds this one
			next := marks[mi+1]
			switch next.kind {
			case token.TOKEN_GROUP, token.TOKEN_ORDER:
				end = next.start - 2
			default:
				end = next.start - 1
			}
		}
		slice := toks[m.start:end]
		switch m.kind {
		case token.TOKEN_SELECT:
			if c.selectList == nil {
				c.selectList = slice
			}
		case token.TOKEN_FROM:
			if c.from == nil {
				c.from = slice
			}
		case token.TOKEN_WHERE:
			if c.where == nil {
				c.where = slice
			}
		case token.TOKEN_GROUP:
			if c.groupBy == nil {
				c.groupBy = slice
			}
		case token.TOKEN_HAVING:
			if c.having == nil {
				c.having = slice
			}
		}
	}

	return c
}

// splitTopLevel splits a token slice on top-level commas.
func splitTopLevel(toks []token.Token) [][]token.Token {
	var out [][]token.Token
	depth := 0
	start := 0
	for i, tok := range toks {
		switch tok.Type {
		case token.TOKEN_LPAREN:
			depth++
		case token.TOKEN_RPAREN:
			if depth > 0 {
				depth--
			}
		case token.TOKEN_COMMA:
			if depth == 0 {
				if i > start {
					out = append(out, toks[start:i])
				}
				start = i + 1
			}
		}
	}
	if start < len(toks) {
		out = append(out, toks[start:])
	}
	return out
}

// exprText renders a token slice back into a compact expression
// string for storage.
func exprText(toks []token.Token) string {
	var sb strings.Builder
	for i, tok := range toks {
		lit := tok.Literal
		if tok.Type == token.TOKEN_STRING {
			lit = "'" + lit + "'"
		}
		if i > 0 && needsSpace(toks[i-1].Type, tok.Type) {
			sb.WriteByte(' ')
		}
		sb.WriteString(lit)
	}
	return sb.String()
}

func needsSpace(prev, cur token.Type) bool {
	switch cur {
	case token.TOKEN_DOT, token.TOKEN_COMMA, token.TOKEN_RPAREN, token.TOKEN_LPAREN:
		return false
	}
	switch prev {
	case token.TOKEN_DOT, token.TOKEN_LPAREN:
		return false
	}
	return true
}

// parseColumnRef reads a [qualifier.]name reference starting at i.
// Returns the ref and the index after it, or ok=false when the tokens
// at i do not form a column reference.
func parseColumnRef(toks []token.Token, i int) (ColumnRef, int, bool) {
	if i >= len(toks) || toks[i].Type != token.TOKEN_IDENT {
		return ColumnRef{}, i, false
	}
	first := strings.ToLower(toks[i].Literal)
	i++
	if i+1 < len(toks) && toks[i].Type == token.TOKEN_DOT {
		if toks[i+1].Type == token.TOKEN_IDENT {
			return ColumnRef{Qualifier: first, Name: strings.ToLower(toks[i+1].Literal)}, i + 2, true
		}
		if toks[i+1].Type == token.TOKEN_STAR {
			// t.* is a wildcard, not a column ref
			return ColumnRef{}, i, false
		}
	}
	return ColumnRef{Name: first}, i, true
}
