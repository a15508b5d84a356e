package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlharvest/internal/corpus"
	"github.com/leapstack-labs/sqlharvest/internal/state"
	"github.com/leapstack-labs/sqlharvest/internal/testutil"
	"github.com/leapstack-labs/sqlharvest/pkg/sqllex"
)

func writeCorpusFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func scanUnits(t *testing.T, root string) []corpus.Unit {
	t.Helper()
	layout, err := corpus.Scan(root, nil)
	require.NoError(t, err)
	return layout.Units(corpus.UnitRepo)
}

func TestRunCheckpointsUnits(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "alice/shop/schema.sql", `
CREATE TABLE products (id INT PRIMARY KEY, title TEXT NOT NULL);
CREATE TABLE sales (id INT PRIMARY KEY, product_id INT REFERENCES products(id));
`)
	writeCorpusFile(t, root, "alice/shop/queries.sql", `
SELECT p.title, COUNT(s.id) FROM sales s JOIN products p ON s.product_id = p.id GROUP BY p.title;
`)
	writeCorpusFile(t, root, "bob/blog/posts.sql", `
CREATE TABLE posts (id INT, body TEXT);
SELECT body FROM posts WHERE id = 1;
`)

	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	run, err := store.CreateRun(ctx, "{}")
	require.NoError(t, err)

	eng := New(Config{
		Workers:   2,
		BatchSize: 1,
		Logger:    testutil.NewTestLogger(t),
		Store:     store,
	})

	stats, err := eng.Run(ctx, run.ID, scanUnits(t, root))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Units)
	assert.Equal(t, 2, stats.UnitsOK)
	assert.Equal(t, 3, stats.Tables)
	assert.Equal(t, 2, stats.Queries)
	assert.Equal(t, 2, stats.Batches, "batch size 1 flushes per unit")
	assert.Empty(t, stats.Failures)

	units, err := store.ListUnits(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "alice/shop", units[0].Key)
	assert.Equal(t, 2, units[0].TableCount)
	assert.Equal(t, state.UnitOK, units[0].Status)
}

func TestRunSurfacesCheckpointFailure(t *testing.T) {
	root := t.TempDir()
	for _, owner := range []string{"a", "b", "c", "d", "e"} {
		writeCorpusFile(t, root, owner+"/x/s.sql", "CREATE TABLE t (a INT);")
	}

	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	ctx := context.Background()
	run, err := store.CreateRun(ctx, "{}")
	require.NoError(t, err)

	// Closing the store makes every AppendBatch fail mid-run.
	require.NoError(t, store.Close())

	eng := New(Config{
		Workers:   1,
		BatchSize: 1,
		Logger:    testutil.NewTestLogger(t),
		Store:     store,
	})

	units := scanUnits(t, root)
	done := make(chan error, 1)
	go func() {
		_, err := eng.Run(ctx, run.ID, units)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorContains(t, err, "checkpointing failed")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the sink failed")
	}
}

func TestRunWithoutStore(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "a/x/s.sql", "CREATE TABLE t (a INT); SELECT a FROM t;")

	eng := New(Config{Logger: testutil.NewTestLogger(t)})
	stats, err := eng.Run(context.Background(), "", scanUnits(t, root))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UnitsOK)
	assert.Equal(t, 1, stats.Tables)
	assert.Equal(t, 0, stats.Batches)
}

func TestRunUnitTimeout(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "a/x/s.sql", "CREATE TABLE t (a INT); SELECT a FROM t;")

	eng := New(Config{
		UnitTimeout: time.Nanosecond,
		Logger:      testutil.NewTestLogger(t),
	})
	stats, err := eng.Run(context.Background(), "", scanUnits(t, root))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TimedOut)
	assert.Equal(t, 0, stats.UnitsOK)
	assert.Equal(t, 0, stats.Tables, "a timed-out unit publishes nothing")
	assert.Equal(t, 1, stats.Failures[state.FailTimeout])
}

func TestRunSoftFailuresKeepUnitAlive(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "a/x/s.sql", `
CREATE TABLE good (id INT);
CREATE TABLE (no name here);
SELECT id FROM good;
`)

	eng := New(Config{Logger: testutil.NewTestLogger(t)})
	stats, err := eng.Run(context.Background(), "", scanUnits(t, root))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.UnitsOK, "a failing statement does not fail its unit")
	assert.Equal(t, 1, stats.Tables)
	assert.Equal(t, 1, stats.Queries)
	assert.Equal(t, 1, stats.Failures[state.FailCheckTable])
}

func TestRunCountsMissingReferences(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "a/x/s.sql", "SELECT a FROM never_defined;")

	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	run, err := store.CreateRun(ctx, "{}")
	require.NoError(t, err)

	eng := New(Config{Logger: testutil.NewTestLogger(t), Store: store})
	_, err = eng.Run(ctx, run.ID, scanUnits(t, root))
	require.NoError(t, err)

	units, err := store.ListUnits(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, 1, units[0].MissingRefs)
}

func TestProcessText(t *testing.T) {
	eng := New(Config{Logger: testutil.NewTestLogger(t)})

	res, err := eng.ProcessText(context.Background(), "repl", `
CREATE TABLE t (a INT, b INT);
SELECT a FROM t WHERE b > 1;
`)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Catalog.NumTables())
	require.Len(t, res.Queries, 1)
	assert.NotNil(t, res.Queries[0].Selection)
}

func TestStatementSampleNarrowsUnit(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "a/x/s.sql", "SELECT 1 FROM t1; SELECT 2 FROM t2; SELECT 3 FROM t3;")

	eng := New(Config{
		Sample: corpus.Sample{File: "a/x/s.sql", Statement: 1},
		Logger: testutil.NewTestLogger(t),
	})
	stats, err := eng.Run(context.Background(), "", scanUnits(t, root))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Queries, "only the sampled statement is processed")
}

func TestSelftest(t *testing.T) {
	eng := New(Config{Workers: 1, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, eng.Selftest(context.Background()))
}

func TestClassifyOrdering(t *testing.T) {
	var stmts []indexed
	for i, sql := range []string{
		"SELECT a FROM t",
		"ALTER TABLE t ADD x INT",
		"CREATE TABLE t (a INT)",
		"INSERT INTO t VALUES (1)",
		"CREATE INDEX ix ON t (a)",
	} {
		stmt, err := sqllex.Tokenize(sql)
		require.NoError(t, err)
		stmts = append(stmts, indexed{idx: i, stmt: stmt})
	}

	c := classify(stmts)
	assert.Len(t, c.creates, 1)
	assert.Len(t, c.alters, 1)
	assert.Len(t, c.indexes, 1)
	assert.Len(t, c.queries, 1)
	assert.Equal(t, 1, c.other)
	assert.Equal(t, 0, c.queries[0].idx, "statement indices survive classification")
}
