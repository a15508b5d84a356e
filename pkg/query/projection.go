package query

import (
	"strings"

	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// extractProjections splits the SELECT list on top-level commas and
// records one projection per item. A lone `*` becomes the wildcard
// sentinel rather than being expanded.
func extractProjections(c clauses) ([]Projection, bool) {
	toks := c.selectList
	if len(toks) == 0 {
		return nil, false
	}
	// DISTINCT/ALL qualify the whole list, not the first item.
	if toks[0].Type == token.TOKEN_DISTINCT || toks[0].Type == token.TOKEN_ALL {
		toks = toks[1:]
	}

	var projections []Projection
	for _, item := range splitTopLevel(toks) {
		if len(item) == 0 {
			continue
		}
		p, ok := parseProjection(item)
		if !ok {
			continue
		}
		projections = append(projections, p)
	}
	if len(projections) == 0 {
		return nil, false
	}
	return projections, true
}

func parseProjection(item []token.Token) (Projection, bool) {
	// `*` alone
	if len(item) == 1 && item[0].Type == token.TOKEN_STAR {
		return Projection{Expr: "*", Wildcard: true}, true
	}
	// `t.*`
	if len(item) == 3 && item[0].Type == token.TOKEN_IDENT &&
		item[1].Type == token.TOKEN_DOT && item[2].Type == token.TOKEN_STAR {
		return Projection{
			Expr:     strings.ToLower(item[0].Literal) + ".*",
			Wildcard: true,
		}, true
	}

	expr, alias := splitAlias(item)
	if len(expr) == 0 {
		return Projection{}, false
	}

	p := Projection{Expr: exprText(expr), Alias: alias}
	if ref, next, ok := parseColumnRef(expr, 0); ok && next == len(expr) {
		p.Column = &ref
	}
	return p, true
}

// splitAlias strips a trailing `AS alias` or bare trailing identifier
// from a projection item and returns the remaining expression tokens.
func splitAlias(item []token.Token) ([]token.Token, string) {
	n := len(item)
	if n >= 3 && item[n-2].Type == token.TOKEN_AS && aliasable(item[n-1]) {
		return item[:n-2], strings.ToLower(item[n-1].Literal)
	}
	// Bare alias: expr ends in an identifier that does not continue
	// the expression (preceded by another identifier, literal, star,
	// or closing paren).
	if n >= 2 && item[n-1].Type == token.TOKEN_IDENT {
		switch item[n-2].Type {
		case token.TOKEN_IDENT, token.TOKEN_NUMBER, token.TOKEN_STRING,
			token.TOKEN_RPAREN, token.TOKEN_STAR:
			return item[:n-1], strings.ToLower(item[n-1].Literal)
		}
	}
	return item, ""
}

func aliasable(t token.Token) bool {
	return t.Type == token.TOKEN_IDENT || t.Type == token.TOKEN_STRING
}
