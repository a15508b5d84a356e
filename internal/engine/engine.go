// Package engine orchestrates a harvest run: it classifies each
// unit's statements, drives the schema and query parsers over them,
// and checkpoints completed units to the sink in batches.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlharvest/internal/corpus"
	"github.com/leapstack-labs/sqlharvest/internal/state"
)

// Config controls a run.
type Config struct {
	Workers          int
	UnitTimeout      time.Duration
	StatementTimeout time.Duration
	BatchSize        int
	Sample           corpus.Sample
	Logger           *slog.Logger
	Store            *state.Store
}

// Engine executes runs against a sink.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New applies defaults and returns an engine.
func New(cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.UnitTimeout <= 0 {
		cfg.UnitTimeout = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Stats summarizes one run.
type Stats struct {
	Units    int
	UnitsOK  int
	Failed   int
	TimedOut int
	Tables   int
	Queries  int
	Batches  int
	Failures map[string]int
	Duration time.Duration
}

// Run processes the units through a bounded pool and checkpoints
// completed results to the sink every BatchSize units. The store is
// touched only from the collector, so appends stay serialized.
func (e *Engine) Run(ctx context.Context, runID string, units []corpus.Unit) (*Stats, error) {
	start := time.Now()
	stats := &Stats{Units: len(units), Failures: make(map[string]int)}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan *UnitResult, e.cfg.Workers)

	var collectErr error
	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		collectErr = e.collect(runCtx, runID, results, stats)
		if collectErr != nil {
			// The sink is gone: stop the workers and drain whatever
			// they were still trying to send so g.Wait can return.
			cancel()
			for range results {
			}
		}
	}()

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(e.cfg.Workers)
	for _, u := range units {
		u := u
		g.Go(func() error {
			res := e.runUnit(gctx, u)
			select {
			case results <- res:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	runErr := g.Wait()
	close(results)
	<-collectDone

	stats.Duration = time.Since(start)
	// A collector failure cancels the group, so report it ahead of the
	// context error the workers saw.
	if collectErr != nil {
		return stats, fmt.Errorf("checkpointing failed: %w", collectErr)
	}
	if runErr != nil {
		return stats, fmt.Errorf("run aborted: %w", runErr)
	}
	return stats, nil
}

// runUnit executes one unit under its own deadline. Parsing that
// overruns the deadline is abandoned and the unit reports timed out
// with nothing to publish.
func (e *Engine) runUnit(ctx context.Context, u corpus.Unit) *UnitResult {
	unitCtx, cancel := context.WithTimeout(ctx, e.cfg.UnitTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan *UnitResult, 1)
	go func() {
		res, err := e.processUnit(unitCtx, u)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				res.Status = state.UnitTimedOut
				res.Failures[state.FailTimeout]++
			} else {
				res.Status = state.UnitFailed
			}
		}
		done <- res
	}()

	select {
	case res := <-done:
		e.logger.Info("unit complete",
			"unit", u.Key, "status", res.Status,
			"tables", res.Catalog.NumTables(), "queries", len(res.Queries),
			"duration", res.Duration)
		return res
	case <-unitCtx.Done():
		res := newUnitResult(u)
		res.Status = state.UnitTimedOut
		res.Failures[state.FailTimeout]++
		res.Duration = time.Since(start)
		e.logger.Warn("unit timed out", "unit", u.Key, "timeout", e.cfg.UnitTimeout)
		return res
	}
}

// collect drains unit results, accumulates stats, and flushes batches.
func (e *Engine) collect(ctx context.Context, runID string, results <-chan *UnitResult, stats *Stats) error {
	var pending []state.UnitPayload

	flush := func() error {
		if len(pending) == 0 || e.cfg.Store == nil {
			pending = nil
			return nil
		}
		batch, err := e.cfg.Store.AppendBatch(ctx, runID, pending)
		if err != nil {
			return err
		}
		stats.Batches++
		e.logger.Info("batch checkpointed", "seq", batch.Seq, "units", batch.UnitCount)
		pending = nil
		return nil
	}

	for res := range results {
		switch res.Status {
		case state.UnitOK:
			stats.UnitsOK++
		case state.UnitTimedOut:
			stats.TimedOut++
		default:
			stats.Failed++
		}
		for kind, n := range res.Failures {
			stats.Failures[kind] += n
		}

		p, err := res.payload()
		if err != nil {
			e.logger.Warn("dropping unit payload", "unit", res.Unit.Key, "err", err)
			continue
		}
		stats.Tables += len(p.Tables)
		stats.Queries += len(p.Queries)
		pending = append(pending, p)

		if len(pending) >= e.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
