package report

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlharvest/internal/state"
)

func TestRunReport(t *testing.T) {
	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "{}")
	require.NoError(t, err)

	_, err = store.AppendBatch(ctx, run.ID, []state.UnitPayload{
		{Unit: state.UnitRecord{
			Key: "alice/shop", Repo: "alice/shop", Status: state.UnitOK,
			TableCount: 2, QueryCount: 4, MissingRefs: 1,
			Failures: map[string]int{state.FailCheckTable: 1},
		}},
		{Unit: state.UnitRecord{
			Key: "bob/blog", Repo: "bob/blog", Status: state.UnitFailed,
		}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Run(ctx, store, run.ID, &buf))

	out := buf.String()
	assert.Contains(t, out, "run "+run.ID)
	assert.Contains(t, out, "alice/shop")
	assert.Contains(t, out, "check_table")
	assert.Contains(t, out, "0.25", "1 missing reference over 4 queries")
}

func TestRunReportUnknownRun(t *testing.T) {
	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	var buf bytes.Buffer
	assert.Error(t, Run(context.Background(), store, "ghost", &buf))
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, Summary{
		Units: 5, OK: 3, Failed: 1, TimedOut: 1,
		Tables: 12, Queries: 40, Batches: 2,
		Duration: 1503 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "5 (3 ok, 1 failed, 1 timed out)")
	assert.Contains(t, out, "1.503s")
}
