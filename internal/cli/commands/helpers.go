// Package commands implements the sqlharvest subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/sqlharvest/internal/cli/config"
	"github.com/leapstack-labs/sqlharvest/internal/corpus"
	"github.com/leapstack-labs/sqlharvest/internal/engine"
	"github.com/leapstack-labs/sqlharvest/internal/state"
)

// scanUnits loads the corpus layout, applies the sample, and groups
// files into processing units per the configured mode.
func scanUnits(cfg *config.Config) ([]corpus.Unit, corpus.Sample, error) {
	sample, err := corpus.ParseSample(cfg.Sample)
	if err != nil {
		return nil, sample, err
	}

	manifest, err := corpus.LoadManifest(filepath.Join(cfg.CorpusDir, "corpus.yaml"))
	if err != nil {
		return nil, sample, err
	}

	layout, err := corpus.Scan(cfg.CorpusDir, manifest)
	if err != nil {
		return nil, sample, err
	}
	if len(layout.Files) == 0 {
		return nil, sample, fmt.Errorf("no SQL files under %s", cfg.CorpusDir)
	}

	units := sample.Apply(layout.Units(corpus.UnitMode(cfg.UnitMode)))
	if len(units) == 0 {
		return nil, sample, fmt.Errorf("sample %q matches no units", cfg.Sample)
	}
	return units, sample, nil
}

// newEngine builds an engine from the loaded config.
func newEngine(cfg *config.Config, sample corpus.Sample, logger *slog.Logger, store *state.Store) *engine.Engine {
	return engine.New(engine.Config{
		Workers:          cfg.Workers,
		UnitTimeout:      cfg.UnitTimeout,
		StatementTimeout: cfg.StatementTimeout,
		BatchSize:        cfg.BatchSize,
		Sample:           sample,
		Logger:           logger,
		Store:            store,
	})
}

// resolveRunID returns the requested run or falls back to the latest.
func resolveRunID(ctx context.Context, store *state.Store, arg string) (string, error) {
	if arg != "" {
		run, err := store.GetRun(ctx, arg)
		if err != nil {
			return "", err
		}
		return run.ID, nil
	}
	run, err := store.LatestRun(ctx)
	if err != nil {
		return "", err
	}
	if run == nil {
		return "", fmt.Errorf("no runs recorded yet")
	}
	return run.ID, nil
}
