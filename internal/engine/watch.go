package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/sqlharvest/internal/corpus"
	"github.com/leapstack-labs/sqlharvest/internal/state"
)

// Watch processes SQL files added under root while the watch is
// active, each as its own single-file unit checkpointed to the run.
// It returns when the context is cancelled.
func (e *Engine) Watch(ctx context.Context, runID, root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting corpus watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	e.logger.Info("watching corpus for new files", "dir", root)
	seen := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			ext := strings.ToLower(filepath.Ext(event.Name))
			if ext != ".sql" && ext != ".ddl" && ext != ".dml" {
				// New subdirectories join the watch so nested drops
				// get picked up too.
				if event.Op&fsnotify.Create != 0 && filepath.Ext(event.Name) == "" {
					_ = watcher.Add(event.Name)
				}
				continue
			}
			if seen[event.Name] {
				continue
			}
			seen[event.Name] = true

			// Writers often create then fill; give the file a moment.
			time.Sleep(100 * time.Millisecond)

			rel, err := filepath.Rel(root, event.Name)
			if err != nil {
				rel = filepath.Base(event.Name)
			}
			rel = filepath.ToSlash(rel)
			user, repo := corpus.Attribute(rel, filepath.Base(root))
			unit := corpus.Unit{
				Key:  rel,
				Repo: repo,
				User: user,
				Files: []corpus.File{{
					Path: event.Name,
					Rel:  rel,
					Repo: repo,
					User: user,
				}},
			}

			res := e.runUnit(ctx, unit)
			p, err := res.payload()
			if err != nil {
				e.logger.Warn("dropping watched unit", "unit", unit.Key, "err", err)
				continue
			}
			if e.cfg.Store != nil {
				if _, err := e.cfg.Store.AppendBatch(ctx, runID, []state.UnitPayload{p}); err != nil {
					return fmt.Errorf("checkpointing watched unit: %w", err)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("corpus watcher error", "err", err)
		}
	}
}
