package query

import (
	"github.com/leapstack-labs/sqlharvest/pkg/schema"
	"github.com/leapstack-labs/sqlharvest/pkg/sqllex"
)

// Extract builds the scope tree for one query statement and runs the
// five clause extractors over every parseable scope. A scope yields a
// Query when at least one extractor succeeds; scopes where all five
// fail are dropped without failing their siblings.
func Extract(stmt *sqllex.Statement, catalog *schema.Catalog, stmtIndex int) ([]*Query, error) {
	tree, err := BuildTree(stmt)
	if err != nil {
		return nil, err
	}
	return ExtractTree(tree, catalog, stmtIndex), nil
}

// ExtractTree runs clause extraction over an already built scope tree.
func ExtractTree(tree *Tree, catalog *schema.Catalog, stmtIndex int) []*Query {
	var queries []*Query
	for _, node := range tree.Nodes {
		if node.Unparsed || len(node.Tokens) == 0 {
			continue
		}
		q := extractScope(node, catalog, stmtIndex)
		if q != nil && !q.Empty() {
			queries = append(queries, q)
		}
	}
	return queries
}

func extractScope(node *Node, catalog *schema.Catalog, stmtIndex int) *Query {
	c := splitClauses(node.Tokens)

	q := &Query{ScopeID: node.ID, StatementIndex: stmtIndex}

	instances, joins, joinsOK := extractJoins(c, catalog)
	q.Instances = instances
	if joinsOK {
		q.Joins = joins
	}
	if projections, ok := extractProjections(c); ok {
		q.Projections = projections
	}
	if aggs, ok := extractAggregations(c); ok {
		q.Aggregations = aggs
	}
	if pred, ambiguous, ok := extractSelection(c, instances, catalog); ok {
		q.Selection = pred
		q.AmbiguousColumns = ambiguous
	}
	if groupBy, ok := extractGroupBy(c); ok {
		q.GroupBy = groupBy
	}

	return q
}
