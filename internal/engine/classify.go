package engine

import "github.com/leapstack-labs/sqlharvest/pkg/sqllex"

// indexed pairs a statement with its position in the unit's statement
// stream, so queries keep their source index after reordering.
type indexed struct {
	idx  int
	stmt *sqllex.Statement
}

// classified holds a unit's statements in processing order: table
// creation first, then alteration and indexing, then queries. Foreign
// key resolution runs between the DDL phases and the query phase.
type classified struct {
	creates []indexed
	alters  []indexed
	indexes []indexed
	queries []indexed
	other   int
}

func classify(stmts []indexed) classified {
	var c classified
	for _, s := range stmts {
		switch s.stmt.Kind {
		case sqllex.KindCreateTable:
			c.creates = append(c.creates, s)
		case sqllex.KindAlterTable:
			c.alters = append(c.alters, s)
		case sqllex.KindCreateIndex:
			c.indexes = append(c.indexes, s)
		case sqllex.KindQuery:
			c.queries = append(c.queries, s)
		default:
			c.other++
		}
	}
	return c
}
