package engine

import (
	"context"

	"github.com/leapstack-labs/sqlharvest/internal/corpus"
	"github.com/leapstack-labs/sqlharvest/internal/state"
	"github.com/leapstack-labs/sqlharvest/pkg/query"
	"github.com/leapstack-labs/sqlharvest/pkg/schema"
	"github.com/leapstack-labs/sqlharvest/pkg/sqllex"
)

// ProcessText runs the unit pipeline over raw SQL text instead of
// files. The debug REPL and the self test feed statements through
// here.
func (e *Engine) ProcessText(ctx context.Context, key, text string) (*UnitResult, error) {
	res := newUnitResult(corpus.Unit{Key: key, Repo: key})

	var stmts []indexed
	for i, piece := range sqllex.Split(text) {
		stmt, err := sqllex.Tokenize(piece.Text)
		if err != nil {
			res.Failures[state.FailTokenize]++
			continue
		}
		stmts = append(stmts, indexed{idx: i, stmt: stmt})
	}

	c := classify(stmts)
	builder := schema.NewBuilder(res.Catalog)
	groups := []struct {
		stmts []indexed
		kind  string
	}{
		{c.creates, state.FailCheckTable},
		{c.alters, state.FailCheckColumn},
		{c.indexes, state.FailCheckColumn},
	}
	for _, g := range groups {
		for _, s := range g.stmts {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if _, err := builder.ApplyDDL(s.stmt); err != nil {
				res.Failures[g.kind]++
			}
		}
	}
	res.Catalog.ResolveForeignKeys()

	for _, s := range c.queries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		queries, err := query.Extract(s.stmt, res.Catalog, s.idx)
		if err != nil {
			res.Failures[state.FailCheckQuery]++
			continue
		}
		res.Queries = append(res.Queries, queries...)
	}
	return res, nil
}
