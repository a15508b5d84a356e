package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlharvest/internal/state"
	"github.com/leapstack-labs/sqlharvest/pkg/schema"
)

func tableDoc(t *testing.T, tbl *schema.Table) *state.TableDoc {
	t.Helper()
	row, err := state.EncodeTable("unit", tbl)
	require.NoError(t, err)
	doc, err := state.DecodeTable(row)
	require.NoError(t, err)
	return doc
}

func TestSerializeMarkers(t *testing.T) {
	tbl := schema.NewTable("users")
	tbl.AddColumn(&schema.Column{Name: "id", Category: "int", NotNull: true})
	tbl.AddColumn(&schema.Column{Name: "email", Category: "text"})
	tbl.AddColumn(&schema.Column{Name: "age"})
	tbl.Keys = append(tbl.Keys,
		schema.Key{Kind: schema.KeyPrimary, Columns: []string{"id"}},
		schema.Key{Kind: schema.KeyUnique, Columns: []string{"email"}},
		schema.Key{Kind: schema.KeyUnique, Columns: []string{"email", "age"}},
	)

	got := Serialize(tableDoc(t, tbl))
	assert.Equal(t,
		"users : id int [UNIQUE] [NOTNULL], email text [UNIQUE], age",
		got, "multi-column keys mark nothing")
}

func TestSerializeCandidateKeyNotUnique(t *testing.T) {
	tbl := schema.NewTable("t")
	tbl.AddColumn(&schema.Column{Name: "a", Category: "int"})
	tbl.Keys = append(tbl.Keys, schema.Key{Kind: schema.KeyCandidate, Columns: []string{"a"}})

	assert.Equal(t, "t : a int", Serialize(tableDoc(t, tbl)))
}

func encodeTable(t *testing.T, unit string, tbl *schema.Table) state.TableRow {
	t.Helper()
	row, err := state.EncodeTable(unit, tbl)
	require.NoError(t, err)
	return row
}

func TestRunDedupAndFilter(t *testing.T) {
	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "{}")
	require.NoError(t, err)

	users := schema.NewTable("users")
	users.AddColumn(&schema.Column{Name: "id", Category: "int", NotNull: true})
	users.AddColumn(&schema.Column{Name: "name", Category: "text"})

	// same name and column set as users, mined from another unit
	usersDup := schema.NewTable("users")
	usersDup.AddColumn(&schema.Column{Name: "name", Category: "text"})
	usersDup.AddColumn(&schema.Column{Name: "id", Category: "int"})

	// every column nullable, filtered out by MinNotNull
	loose := schema.NewTable("loose")
	loose.AddColumn(&schema.Column{Name: "x"})

	_, err = store.AppendBatch(ctx, run.ID, []state.UnitPayload{
		{
			Unit:   state.UnitRecord{Key: "a/x", Status: state.UnitOK, TableCount: 2},
			Tables: []state.TableRow{encodeTable(t, "a/x", users), encodeTable(t, "a/x", loose)},
		},
		{
			Unit:   state.UnitRecord{Key: "b/y", Status: state.UnitOK, TableCount: 1},
			Tables: []state.TableRow{encodeTable(t, "b/y", usersDup)},
		},
	})
	require.NoError(t, err)
	_, err = store.MergeRun(ctx, run.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	res, err := Run(ctx, store, run.ID, &buf, Options{MinNotNull: 0.25})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 1, res.Filtered)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"hash_id", "table_def"}, records[0])
	assert.Len(t, records[1][0], 40, "sha1 hex id")
	assert.Contains(t, records[1][1], "users :")
}

func TestRunMaxNotNullBound(t *testing.T) {
	store, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "{}")
	require.NoError(t, err)

	strict := schema.NewTable("strict")
	strict.AddColumn(&schema.Column{Name: "a", NotNull: true})
	strict.AddColumn(&schema.Column{Name: "b", NotNull: true})

	_, err = store.AppendBatch(ctx, run.ID, []state.UnitPayload{{
		Unit:   state.UnitRecord{Key: "a/x", Status: state.UnitOK, TableCount: 1},
		Tables: []state.TableRow{encodeTable(t, "a/x", strict)},
	}})
	require.NoError(t, err)
	_, err = store.MergeRun(ctx, run.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	res, err := Run(ctx, store, run.ID, &buf, Options{MaxNotNull: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Written)
	assert.Equal(t, 1, res.Filtered)
}
