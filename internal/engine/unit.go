package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/leapstack-labs/sqlharvest/internal/corpus"
	"github.com/leapstack-labs/sqlharvest/internal/state"
	"github.com/leapstack-labs/sqlharvest/pkg/query"
	"github.com/leapstack-labs/sqlharvest/pkg/schema"
	"github.com/leapstack-labs/sqlharvest/pkg/sqllex"
)

// UnitResult is one unit's isolated accumulator. Nothing in it is
// shared until the unit completes and the collector publishes it.
type UnitResult struct {
	Unit        corpus.Unit
	Catalog     *schema.Catalog
	Queries     []*query.Query
	Failures    map[string]int
	MissingRefs int
	Status      state.UnitStatus
	Duration    time.Duration
}

func newUnitResult(u corpus.Unit) *UnitResult {
	return &UnitResult{
		Unit:     u,
		Catalog:  schema.NewCatalog(),
		Failures: make(map[string]int),
		Status:   state.UnitOK,
	}
}

// processUnit runs the full pipeline for one unit: split and tokenize
// every file, apply DDL in create/alter/index order, resolve foreign
// keys over the unit's whole catalog, then extract queries against it.
// The context carries the unit deadline; it is checked between
// statements so a timed-out unit stops promptly.
func (e *Engine) processUnit(ctx context.Context, u corpus.Unit) (*UnitResult, error) {
	res := newUnitResult(u)
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	var stmts []indexed
	next := 0
	for _, f := range u.Files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			e.logger.Warn("skipping unreadable file", "file", f.Rel, "err", err)
			res.Failures[state.FailTokenize]++
			continue
		}
		for _, piece := range sqllex.Split(string(data)) {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			stmt, err := e.tokenizeGuarded(ctx, piece.Text)
			if err != nil {
				res.Failures[state.FailTokenize]++
				continue
			}
			stmts = append(stmts, indexed{idx: next, stmt: stmt})
			next++
		}
	}

	if e.cfg.Sample.File != "" && e.cfg.Sample.Statement >= 0 {
		stmts = pickStatement(stmts, e.cfg.Sample.Statement)
	}

	c := classify(stmts)
	builder := schema.NewBuilder(res.Catalog)

	applyAll := func(group []indexed, failKind string) error {
		for _, s := range group {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := builder.ApplyDDL(s.stmt); err != nil {
				res.Failures[failKind]++
			}
		}
		return nil
	}
	if err := applyAll(c.creates, state.FailCheckTable); err != nil {
		return res, err
	}
	if err := applyAll(c.alters, state.FailCheckColumn); err != nil {
		return res, err
	}
	if err := applyAll(c.indexes, state.FailCheckColumn); err != nil {
		return res, err
	}

	resolved, unresolved := res.Catalog.ResolveForeignKeys()
	e.logger.Debug("foreign keys resolved",
		"unit", u.Key, "resolved", resolved, "unresolved", unresolved)

	for _, s := range c.queries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		queries, err := query.Extract(s.stmt, res.Catalog, s.idx)
		if err != nil {
			res.Failures[state.FailCheckQuery]++
			continue
		}
		for _, q := range queries {
			for _, inst := range q.Instances {
				if inst.Kind == query.InstanceUnresolved {
					res.MissingRefs++
				}
			}
		}
		res.Queries = append(res.Queries, queries...)
	}

	return res, nil
}

// tokenizeGuarded bounds one statement's tokenization by the
// per-statement timeout. Tokenization is not context-aware, so the
// guard runs it on its own goroutine and abandons it on expiry; the
// statement-length cap keeps abandoned work finite.
func (e *Engine) tokenizeGuarded(ctx context.Context, text string) (*sqllex.Statement, error) {
	if e.cfg.StatementTimeout <= 0 {
		return sqllex.Tokenize(text)
	}

	type outcome struct {
		stmt *sqllex.Statement
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		stmt, err := sqllex.Tokenize(text)
		ch <- outcome{stmt, err}
	}()

	timer := time.NewTimer(e.cfg.StatementTimeout)
	defer timer.Stop()
	select {
	case out := <-ch:
		return out.stmt, out.err
	case <-timer.C:
		return nil, fmt.Errorf("statement tokenization exceeded %s", e.cfg.StatementTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// pickStatement narrows a debug run to one statement by stream index.
func pickStatement(stmts []indexed, want int) []indexed {
	for _, s := range stmts {
		if s.idx == want {
			return []indexed{s}
		}
	}
	return nil
}

// payload converts a completed result into sink rows.
func (r *UnitResult) payload() (state.UnitPayload, error) {
	p := state.UnitPayload{
		Unit: state.UnitRecord{
			Key:         r.Unit.Key,
			Repo:        r.Unit.Repo,
			User:        r.Unit.User,
			Status:      r.Status,
			QueryCount:  len(r.Queries),
			MissingRefs: r.MissingRefs,
			DurationMS:  r.Duration.Milliseconds(),
			Failures:    r.Failures,
		},
	}
	if r.Status != state.UnitOK {
		return p, nil
	}

	for _, t := range r.Catalog.Tables() {
		row, err := state.EncodeTable(r.Unit.Key, t)
		if err != nil {
			return p, err
		}
		p.Tables = append(p.Tables, row)
	}
	p.Unit.TableCount = len(p.Tables)

	for _, q := range r.Queries {
		row, err := state.EncodeQuery(r.Unit.Key, q)
		if err != nil {
			return p, err
		}
		p.Queries = append(p.Queries, row)
	}
	return p, nil
}
