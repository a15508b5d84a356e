package query

import (
	"strings"

	"github.com/leapstack-labs/sqlharvest/pkg/schema"
	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// extractJoins scans a scope's FROM clause for table and alias
// introductions, resolves each against the unit's catalog, and pairs
// consecutive introductions into binary joins. Comma joins come back
// with an empty condition list. Returns the instances alongside the
// joins because the selection extractor binds unqualified columns
// against them.
func extractJoins(c clauses, catalog *schema.Catalog) ([]TableInstance, []BinaryJoin, bool) {
	if len(c.from) == 0 {
		return nil, nil, false
	}

	var instances []TableInstance
	var joins []BinaryJoin

	toks := c.from
	i := 0
	pendingKind := JoinKind("")
	explicit := false

	flushJoin := func(conds []JoinCondition) {
		n := len(instances)
		if n < 2 {
			return
		}
		kind := pendingKind
		if kind == "" {
			kind = JoinComma
		}
		joins = append(joins, BinaryJoin{
			Left:       instances[n-2],
			Right:      instances[n-1],
			Kind:       kind,
			Conditions: conds,
		})
		pendingKind = ""
	}

	for i < len(toks) {
		switch toks[i].Type {
		case token.TOKEN_COMMA:
			i++
			inst, next, ok := parseTableRef(toks, i, catalog)
			if !ok {
				i = next + 1
				continue
			}
			i = next
			instances = append(instances, inst)
			pendingKind = ""
			flushJoin(nil)

		case token.TOKEN_INNER:
			pendingKind = JoinInner
			i++
		case token.TOKEN_LEFT:
			pendingKind = JoinLeft
			i++
		case token.TOKEN_RIGHT:
			pendingKind = JoinRight
			i++
		case token.TOKEN_FULL:
			pendingKind = JoinFull
			i++
		case token.TOKEN_CROSS:
			pendingKind = JoinCross
			i++
		case token.TOKEN_OUTER:
			i++

		case token.TOKEN_JOIN:
			explicit = true
			if pendingKind == "" {
				pendingKind = JoinInner
			}
			i++
			inst, next, ok := parseTableRef(toks, i, catalog)
			if !ok {
				i = next + 1
				pendingKind = ""
				continue
			}
			i = next
			instances = append(instances, inst)

			var conds []JoinCondition
			switch {
			case i < len(toks) && toks[i].Type == token.TOKEN_ON:
				conds, i = parseOnConditions(toks, i+1)
			case i < len(toks) && toks[i].Type == token.TOKEN_USING:
				conds, i = parseUsingConditions(toks, i+1, instances)
			}
			flushJoin(conds)

		default:
			if len(instances) == 0 {
				inst, next, ok := parseTableRef(toks, i, catalog)
				if ok {
					instances = append(instances, inst)
					i = next
					continue
				}
			}
			i++
		}
	}

	if len(instances) == 0 {
		return nil, nil, false
	}
	// A lone table with no join partners is still a useful instance
	// set, but yields no joins; the extractor succeeds only when a
	// join was actually present.
	ok := len(joins) > 0 || explicit
	return instances, joins, ok
}

// parseTableRef reads one FROM-clause introduction at position i:
// either a (possibly qualified) table name or a subquery's emptied
// paren pair, each with an optional alias. Returns the index after
// the reference.
func parseTableRef(toks []token.Token, i int, catalog *schema.Catalog) (TableInstance, int, bool) {
	if i >= len(toks) {
		return TableInstance{}, i, false
	}

	var inst TableInstance

	switch toks[i].Type {
	case token.TOKEN_LPAREN:
		// Child scope tokens are cut out of this slice, so a derived
		// table appears as an empty or near-empty paren pair.
		depth := 0
		for i < len(toks) {
			if toks[i].Type == token.TOKEN_LPAREN {
				depth++
			}
			if toks[i].Type == token.TOKEN_RPAREN {
				depth--
				if depth == 0 {
					i++
					break
				}
			}
			i++
		}
		inst = TableInstance{Kind: InstanceSubquery}
	case token.TOKEN_IDENT:
		name := strings.ToLower(toks[i].Literal)
		i++
		for i+1 < len(toks) && toks[i].Type == token.TOKEN_DOT && toks[i+1].Type == token.TOKEN_IDENT {
			name = strings.ToLower(toks[i+1].Literal)
			i += 2
		}
		inst = TableInstance{Name: name, Kind: InstanceUnresolved}
		if catalog != nil {
			if _, ok := catalog.Table(name); ok {
				inst.Kind = InstanceResolved
			}
		}
	default:
		return TableInstance{}, i, false
	}

	// optional [AS] alias
	if i < len(toks) && toks[i].Type == token.TOKEN_AS {
		i++
	}
	if i < len(toks) && toks[i].Type == token.TOKEN_IDENT {
		inst.Alias = strings.ToLower(toks[i].Literal)
		i++
		// derived-table column list: alias (a, b, c)
		if inst.Kind == InstanceSubquery && i < len(toks) && toks[i].Type == token.TOKEN_LPAREN {
			depth := 0
			for i < len(toks) {
				if toks[i].Type == token.TOKEN_LPAREN {
					depth++
				}
				if toks[i].Type == token.TOKEN_RPAREN {
					depth--
					if depth == 0 {
						i++
						break
					}
				}
				i++
			}
		}
	}

	return inst, i, true
}

// parseOnConditions collects comparison pairs from an ON region until
// the next join keyword or clause end. AND/OR connectives are walked
// over; only the comparisons themselves are kept.
func parseOnConditions(toks []token.Token, i int) ([]JoinCondition, int) {
	var conds []JoinCondition
	depth := 0

	for i < len(toks) {
		switch toks[i].Type {
		case token.TOKEN_LPAREN:
			depth++
			i++
		case token.TOKEN_RPAREN:
			if depth > 0 {
				depth--
			}
			i++
		case token.TOKEN_JOIN, token.TOKEN_INNER, token.TOKEN_LEFT, token.TOKEN_RIGHT,
			token.TOKEN_FULL, token.TOKEN_CROSS, token.TOKEN_COMMA:
			if depth == 0 {
				return conds, i
			}
			i++
		case token.TOKEN_IDENT:
			left, next, ok := parseColumnRef(toks, i)
			if !ok {
				i++
				continue
			}
			op, opLen := compareOpAt(toks, next)
			if opLen == 0 {
				i = next
				continue
			}
			next += opLen
			cond := JoinCondition{Left: left, Op: op}
			if right, after, ok := parseColumnRef(toks, next); ok {
				cond.Right = right
				next = after
			} else if next < len(toks) {
				cond.RightExpr = toks[next].Literal
				next++
			}
			conds = append(conds, cond)
			i = next
		default:
			i++
		}
	}
	return conds, i
}

// parseUsingConditions expands USING (a, b) into equality pairs
// between the two newest instances.
func parseUsingConditions(toks []token.Token, i int, instances []TableInstance) ([]JoinCondition, int) {
	if i >= len(toks) || toks[i].Type != token.TOKEN_LPAREN {
		return nil, i
	}
	i++

	var left, right string
	if n := len(instances); n >= 2 {
		left = instances[n-2].EffectiveName()
		right = instances[n-1].EffectiveName()
	}

	var conds []JoinCondition
	for i < len(toks) && toks[i].Type != token.TOKEN_RPAREN {
		if toks[i].Type == token.TOKEN_IDENT {
			col := strings.ToLower(toks[i].Literal)
			conds = append(conds, JoinCondition{
				Left:  ColumnRef{Qualifier: left, Name: col},
				Op:    OpEq,
				Right: ColumnRef{Qualifier: right, Name: col},
			})
		}
		i++
	}
	if i < len(toks) {
		i++ // ')'
	}
	return conds, i
}

// compareOpAt maps the token(s) at i to a join comparison operator.
// Inequality is intentionally skipped.
func compareOpAt(toks []token.Token, i int) (CompareOp, int) {
	if i >= len(toks) {
		return "", 0
	}
	switch toks[i].Type {
	case token.TOKEN_EQ:
		return OpEq, 1
	case token.TOKEN_LT:
		return OpLt, 1
	case token.TOKEN_GT:
		return OpGt, 1
	case token.TOKEN_LE:
		return OpLtEq, 1
	case token.TOKEN_GE:
		return OpGtEq, 1
	default:
		return "", 0
	}
}
