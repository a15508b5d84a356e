package query

import "github.com/leapstack-labs/sqlharvest/pkg/token"

// extractGroupBy collects the column references of a GROUP BY clause.
// Positional and expression groupings are passed over; only column
// references are kept.
func extractGroupBy(c clauses) ([]ColumnRef, bool) {
	if len(c.groupBy) == 0 {
		return nil, false
	}

	var refs []ColumnRef
	for _, item := range splitTopLevel(c.groupBy) {
		if len(item) == 0 {
			continue
		}
		// ROLLUP/CUBE wrap their column lists in parens.
		if item[0].Type == token.TOKEN_IDENT && len(item) > 1 && item[1].Type == token.TOKEN_LPAREN {
			for _, inner := range splitTopLevel(item[2 : len(item)-1]) {
				if ref, next, ok := parseColumnRef(inner, 0); ok && next == len(inner) {
					refs = append(refs, ref)
				}
			}
			continue
		}
		if ref, next, ok := parseColumnRef(item, 0); ok && next == len(item) {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil, false
	}
	return refs, true
}
