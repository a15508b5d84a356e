package query

import (
	"strings"

	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// aggregateFuncs maps recognized aggregate names, dialect variants
// folded onto their canonical spelling.
var aggregateFuncs = map[string]string{
	"count":           "count",
	"sum":             "sum",
	"avg":             "avg",
	"min":             "min",
	"max":             "max",
	"total":           "sum",
	"group_concat":    "group_concat",
	"string_agg":      "group_concat",
	"listagg":         "group_concat",
	"array_agg":       "array_agg",
	"stddev":          "stddev",
	"stddev_pop":      "stddev",
	"stddev_samp":     "stddev",
	"variance":        "variance",
	"var_pop":         "variance",
	"var_samp":        "variance",
	"bit_and":         "bit_and",
	"bit_or":          "bit_or",
	"bool_and":        "bool_and",
	"bool_or":         "bool_or",
	"every":           "bool_and",
	"median":          "median",
	"percentile_cont": "percentile_cont",
	"percentile_disc": "percentile_disc",
}

// extractAggregations scans the SELECT list and HAVING clause for
// aggregate calls. Aliases attach only to SELECT-list aggregates that
// form a whole item.
func extractAggregations(c clauses) ([]Aggregation, bool) {
	var aggs []Aggregation

	for _, item := range splitTopLevel(c.selectList) {
		found := scanAggregates(item)
		// Whole-item aggregate keeps its alias.
		if len(found) == 1 {
			if expr, alias := splitAlias(item); alias != "" && isAggregateCall(expr) {
				found[0].Alias = alias
			}
		}
		aggs = append(aggs, found...)
	}
	aggs = append(aggs, scanAggregates(c.having)...)

	if len(aggs) == 0 {
		return nil, false
	}
	return aggs, true
}

// scanAggregates finds every `func(...)` call in toks whose name is a
// known aggregate and captures its argument text.
func scanAggregates(toks []token.Token) []Aggregation {
	var aggs []Aggregation
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].Type != token.TOKEN_IDENT || toks[i+1].Type != token.TOKEN_LPAREN {
			continue
		}
		canonical, ok := aggregateFuncs[strings.ToLower(toks[i].Literal)]
		if !ok {
			continue
		}
		arg, end := parenArg(toks, i+1)
		aggs = append(aggs, Aggregation{Func: canonical, Arg: arg})
		i = end
	}
	return aggs
}

// parenArg returns the rendered text inside the balanced paren pair
// opening at i, and the index of the closing paren.
func parenArg(toks []token.Token, i int) (string, int) {
	depth := 0
	start := i + 1
	for ; i < len(toks); i++ {
		switch toks[i].Type {
		case token.TOKEN_LPAREN:
			depth++
		case token.TOKEN_RPAREN:
			depth--
			if depth == 0 {
				inner := toks[start:i]
				// DISTINCT qualifies the argument, drop it from the text.
				if len(inner) > 0 && inner[0].Type == token.TOKEN_DISTINCT {
					inner = inner[1:]
				}
				return exprText(inner), i
			}
		}
	}
	return exprText(toks[start:]), len(toks) - 1
}

// isAggregateCall reports whether toks is exactly one aggregate call.
func isAggregateCall(toks []token.Token) bool {
	if len(toks) < 3 || toks[0].Type != token.TOKEN_IDENT || toks[1].Type != token.TOKEN_LPAREN {
		return false
	}
	if _, ok := aggregateFuncs[strings.ToLower(toks[0].Literal)]; !ok {
		return false
	}
	return toks[len(toks)-1].Type == token.TOKEN_RPAREN
}
