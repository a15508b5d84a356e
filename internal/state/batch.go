package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendBatch checkpoints a set of completed units under the next
// sequence number of the run. Sequence 0 is reserved for the merged
// collection, so appended batches start at 1.
func (s *Store) AppendBatch(ctx context.Context, runID string, payloads []UnitPayload) (*Batch, error) {
	if len(payloads) == 0 {
		return nil, fmt.Errorf("appending batch: empty payload set")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning batch transaction: %w", err)
	}
	defer tx.Rollback()

	var maxSeq sql.NullInt64
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT MAX(seq) FROM batches WHERE run_id = ?`), runID,
	).Scan(&maxSeq)
	if err != nil {
		return nil, fmt.Errorf("reading batch sequence: %w", err)
	}

	batch := &Batch{
		ID:        generateID(),
		RunID:     runID,
		Seq:       maxSeq.Int64 + 1,
		UnitCount: len(payloads),
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		s.rebind(`INSERT INTO batches (id, run_id, seq, unit_count, created_at) VALUES (?, ?, ?, ?, ?)`),
		batch.ID, batch.RunID, batch.Seq, batch.UnitCount, batch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting batch: %w", err)
	}

	for _, p := range payloads {
		if err := s.insertPayload(ctx, tx, runID, batch.Seq, p); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}
	return batch, nil
}

func (s *Store) insertPayload(ctx context.Context, tx *sql.Tx, runID string, seq int64, p UnitPayload) error {
	u := p.Unit
	_, err := tx.ExecContext(ctx,
		s.rebind(`INSERT INTO units (run_id, batch_seq, unit_key, repo, user_name, status,
		          table_count, query_count, missing_refs, duration_ms)
		          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		runID, seq, u.Key, u.Repo, u.User, u.Status,
		u.TableCount, u.QueryCount, u.MissingRefs, u.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting unit %s: %w", u.Key, err)
	}

	for kind, count := range u.Failures {
		if count == 0 {
			continue
		}
		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO unit_failures (run_id, batch_seq, unit_key, kind, count) VALUES (?, ?, ?, ?, ?)`),
			runID, seq, u.Key, kind, count,
		)
		if err != nil {
			return fmt.Errorf("inserting failure counts for %s: %w", u.Key, err)
		}
	}

	for _, t := range p.Tables {
		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO harvested_tables (run_id, batch_seq, unit_key, name, definition) VALUES (?, ?, ?, ?, ?)`),
			runID, seq, t.UnitKey, t.Name, t.Definition,
		)
		if err != nil {
			return fmt.Errorf("inserting table %s: %w", t.Name, err)
		}
	}

	for _, q := range p.Queries {
		_, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO harvested_queries (run_id, batch_seq, unit_key, stmt_index, scope_id, definition)
			          VALUES (?, ?, ?, ?, ?, ?)`),
			runID, seq, q.UnitKey, q.StatementIndex, q.ScopeID, q.Definition,
		)
		if err != nil {
			return fmt.Errorf("inserting query (unit %s stmt %d): %w", q.UnitKey, q.StatementIndex, err)
		}
	}
	return nil
}

// MergeResult summarizes a consolidation pass.
type MergeResult struct {
	Units          int
	DuplicateUnits []string
	Tables         int
	Queries        int
}

// MergeRun consolidates every checkpoint batch of a run into the
// sequence-0 collection. When a unit key appears in more than one
// batch the earliest batch wins and the key is reported back.
func (s *Store) MergeRun(ctx context.Context, runID string) (*MergeResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning merge transaction: %w", err)
	}
	defer tx.Rollback()

	// Re-merging replaces the previous consolidated collection.
	for _, table := range []string{"units", "unit_failures", "harvested_tables", "harvested_queries"} {
		_, err = tx.ExecContext(ctx,
			s.rebind(`DELETE FROM `+table+` WHERE run_id = ? AND batch_seq = 0`), runID)
		if err != nil {
			return nil, fmt.Errorf("clearing merged %s: %w", table, err)
		}
	}

	rows, err := tx.QueryContext(ctx,
		s.rebind(`SELECT unit_key, batch_seq FROM units WHERE run_id = ? AND batch_seq > 0 ORDER BY batch_seq, unit_key`),
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing units for merge: %w", err)
	}

	keepSeq := make(map[string]int64)
	var order []string
	result := &MergeResult{}
	for rows.Next() {
		var key string
		var seq int64
		if err := rows.Scan(&key, &seq); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning unit for merge: %w", err)
		}
		if _, seen := keepSeq[key]; seen {
			result.DuplicateUnits = append(result.DuplicateUnits, key)
			continue
		}
		keepSeq[key] = seq
		order = append(order, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing units for merge: %w", err)
	}

	copyStmts := []string{
		`INSERT INTO units (run_id, batch_seq, unit_key, repo, user_name, status, table_count, query_count, missing_refs, duration_ms)
		 SELECT run_id, 0, unit_key, repo, user_name, status, table_count, query_count, missing_refs, duration_ms
		 FROM units WHERE run_id = ? AND batch_seq = ? AND unit_key = ?`,
		`INSERT INTO unit_failures (run_id, batch_seq, unit_key, kind, count)
		 SELECT run_id, 0, unit_key, kind, count
		 FROM unit_failures WHERE run_id = ? AND batch_seq = ? AND unit_key = ?`,
		`INSERT INTO harvested_tables (run_id, batch_seq, unit_key, name, definition)
		 SELECT run_id, 0, unit_key, name, definition
		 FROM harvested_tables WHERE run_id = ? AND batch_seq = ? AND unit_key = ?`,
		`INSERT INTO harvested_queries (run_id, batch_seq, unit_key, stmt_index, scope_id, definition)
		 SELECT run_id, 0, unit_key, stmt_index, scope_id, definition
		 FROM harvested_queries WHERE run_id = ? AND batch_seq = ? AND unit_key = ?`,
	}
	for _, key := range order {
		for _, stmt := range copyStmts {
			if _, err := tx.ExecContext(ctx, s.rebind(stmt), runID, keepSeq[key], key); err != nil {
				return nil, fmt.Errorf("merging unit %s: %w", key, err)
			}
		}
	}
	result.Units = len(order)

	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM harvested_tables WHERE run_id = ? AND batch_seq = 0`), runID,
	).Scan(&result.Tables)
	if err != nil {
		return nil, fmt.Errorf("counting merged tables: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM harvested_queries WHERE run_id = ? AND batch_seq = 0`), runID,
	).Scan(&result.Queries)
	if err != nil {
		return nil, fmt.Errorf("counting merged queries: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		s.rebind(`UPDATE runs SET status = ? WHERE id = ?`), RunMerged, runID)
	if err != nil {
		return nil, fmt.Errorf("marking run merged: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing merge: %w", err)
	}
	return result, nil
}
