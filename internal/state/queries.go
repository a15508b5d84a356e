package state

import (
	"context"
	"fmt"
)

// FailureCounts sums a run's failure counts by kind over checkpointed
// units.
func (s *Store) FailureCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT kind, SUM(count) FROM unit_failures WHERE run_id = ? AND batch_seq > 0 GROUP BY kind`),
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying failure counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scanning failure count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// UnitFailures returns one unit's failure counts by kind.
func (s *Store) UnitFailures(ctx context.Context, runID, unitKey string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT kind, SUM(count) FROM unit_failures WHERE run_id = ? AND unit_key = ? AND batch_seq > 0 GROUP BY kind`),
		runID, unitKey,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unit failures: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scanning unit failure: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// ListUnits returns a run's checkpointed unit records in key order.
func (s *Store) ListUnits(ctx context.Context, runID string) ([]UnitRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT unit_key, repo, user_name, status, table_count, query_count, missing_refs, duration_ms
		          FROM units WHERE run_id = ? AND batch_seq > 0 ORDER BY unit_key`),
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	var units []UnitRecord
	for rows.Next() {
		var u UnitRecord
		err := rows.Scan(&u.Key, &u.Repo, &u.User, &u.Status,
			&u.TableCount, &u.QueryCount, &u.MissingRefs, &u.DurationMS)
		if err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// MergedTables streams the consolidated table definitions of a run.
func (s *Store) MergedTables(ctx context.Context, runID string) ([]TableRow, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT unit_key, name, definition FROM harvested_tables
		          WHERE run_id = ? AND batch_seq = 0 ORDER BY name, unit_key`),
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing merged tables: %w", err)
	}
	defer rows.Close()

	var tables []TableRow
	for rows.Next() {
		var t TableRow
		if err := rows.Scan(&t.UnitKey, &t.Name, &t.Definition); err != nil {
			return nil, fmt.Errorf("scanning merged table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// MergedQueries streams the consolidated query scopes of a run.
func (s *Store) MergedQueries(ctx context.Context, runID string) ([]QueryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT unit_key, stmt_index, scope_id, definition FROM harvested_queries
		          WHERE run_id = ? AND batch_seq = 0 ORDER BY unit_key, stmt_index, scope_id`),
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing merged queries: %w", err)
	}
	defer rows.Close()

	var queries []QueryRow
	for rows.Next() {
		var q QueryRow
		if err := rows.Scan(&q.UnitKey, &q.StatementIndex, &q.ScopeID, &q.Definition); err != nil {
			return nil, fmt.Errorf("scanning merged query: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// BatchCount returns how many checkpoint batches a run has appended.
func (s *Store) BatchCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM batches WHERE run_id = ?`), runID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting batches: %w", err)
	}
	return n, nil
}
