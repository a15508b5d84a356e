package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func payload(key string, status UnitStatus, tables, queries int) UnitPayload {
	p := UnitPayload{
		Unit: UnitRecord{Key: key, Repo: key, Status: status},
	}
	for i := 0; i < tables; i++ {
		p.Tables = append(p.Tables, TableRow{UnitKey: key, Name: "t", Definition: "{}"})
		p.Unit.TableCount++
	}
	for i := 0; i < queries; i++ {
		p.Queries = append(p.Queries, QueryRow{UnitKey: key, StatementIndex: i, Definition: "{}"})
		p.Unit.QueryCount++
	}
	return p
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest, "empty store has no latest run")

	run, err := s.CreateRun(ctx, `{"workers":4}`)
	require.NoError(t, err)
	assert.Equal(t, RunRunning, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, `{"workers":4}`, got.Config)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, s.CompleteRun(ctx, run.ID, RunSuccess))
	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunSuccess, got.Status)
	assert.NotNil(t, got.CompletedAt)

	latest, err = s.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, run.ID, latest.ID)

	assert.Error(t, s.CompleteRun(ctx, "no-such-run", RunFailed))
	_, err = s.GetRun(ctx, "no-such-run")
	assert.Error(t, err)
}

func TestAppendBatchSequence(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "{}")
	require.NoError(t, err)

	_, err = s.AppendBatch(ctx, run.ID, nil)
	require.Error(t, err, "empty payload sets are rejected")

	b1, err := s.AppendBatch(ctx, run.ID, []UnitPayload{payload("a/x", UnitOK, 1, 2)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), b1.Seq)

	b2, err := s.AppendBatch(ctx, run.ID, []UnitPayload{payload("b/y", UnitOK, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), b2.Seq)

	n, err := s.BatchCount(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMergeRunEarliestBatchWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "{}")
	require.NoError(t, err)

	first := payload("a/x", UnitOK, 1, 1)
	first.Tables[0].Definition = `{"v":1}`
	_, err = s.AppendBatch(ctx, run.ID, []UnitPayload{first, payload("b/y", UnitOK, 1, 0)})
	require.NoError(t, err)

	// a/x reappears in a later batch, e.g. after a resumed run
	second := payload("a/x", UnitOK, 1, 1)
	second.Tables[0].Definition = `{"v":2}`
	_, err = s.AppendBatch(ctx, run.ID, []UnitPayload{second, payload("c/z", UnitFailed, 0, 0)})
	require.NoError(t, err)

	result, err := s.MergeRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Units)
	assert.Equal(t, []string{"a/x"}, result.DuplicateUnits)
	assert.Equal(t, 2, result.Tables)
	assert.Equal(t, 1, result.Queries)

	tables, err := s.MergedTables(ctx, run.ID)
	require.NoError(t, err)
	defs := make(map[string]string)
	for _, row := range tables {
		defs[row.UnitKey] = row.Definition
	}
	assert.Equal(t, `{"v":1}`, defs["a/x"], "the earliest batch's rows survive")

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunMerged, got.Status)

	// Re-merging replaces the consolidated collection instead of
	// doubling it.
	again, err := s.MergeRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Tables, again.Tables)
	assert.Equal(t, result.Queries, again.Queries)
}

func TestFailureCountsAndListUnits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "{}")
	require.NoError(t, err)

	p1 := payload("a/x", UnitFailed, 0, 0)
	p1.Unit.Failures = map[string]int{FailCheckTable: 2, FailTokenize: 1}
	p2 := payload("b/y", UnitOK, 1, 3)
	p2.Unit.Failures = map[string]int{FailCheckTable: 1}
	p2.Unit.MissingRefs = 4
	_, err = s.AppendBatch(ctx, run.ID, []UnitPayload{p1, p2})
	require.NoError(t, err)

	counts, err := s.FailureCounts(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{FailCheckTable: 3, FailTokenize: 1}, counts)

	unitCounts, err := s.UnitFailures(ctx, run.ID, "a/x")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{FailCheckTable: 2, FailTokenize: 1}, unitCounts)

	units, err := s.ListUnits(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "a/x", units[0].Key)
	assert.Equal(t, UnitFailed, units[0].Status)
	assert.Equal(t, "b/y", units[1].Key)
	assert.Equal(t, 3, units[1].QueryCount)
	assert.Equal(t, 4, units[1].MissingRefs)
}

func TestMergedQueriesOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "{}")
	require.NoError(t, err)

	p := payload("a/x", UnitOK, 0, 0)
	p.Queries = []QueryRow{
		{UnitKey: "a/x", StatementIndex: 1, ScopeID: 0, Definition: "{}"},
		{UnitKey: "a/x", StatementIndex: 0, ScopeID: 1, Definition: "{}"},
		{UnitKey: "a/x", StatementIndex: 0, ScopeID: 0, Definition: "{}"},
	}
	p.Unit.QueryCount = 3
	_, err = s.AppendBatch(ctx, run.ID, []UnitPayload{p})
	require.NoError(t, err)

	_, err = s.MergeRun(ctx, run.ID)
	require.NoError(t, err)

	queries, err := s.MergedQueries(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, queries, 3)
	assert.Equal(t, 0, queries[0].StatementIndex)
	assert.Equal(t, 0, queries[0].ScopeID)
	assert.Equal(t, 1, queries[1].ScopeID)
	assert.Equal(t, 1, queries[2].StatementIndex)
}
