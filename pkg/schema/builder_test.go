package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlharvest/pkg/sqllex"
)

func apply(t *testing.T, b *Builder, sql string) *Delta {
	t.Helper()
	stmt, err := sqllex.Tokenize(sql)
	require.NoError(t, err)
	delta, err := b.ApplyDDL(stmt)
	require.NoError(t, err)
	return delta
}

func TestBuilderCreateThenAlter(t *testing.T) {
	b := NewBuilder(NewCatalog())

	delta := apply(t, b, "CREATE TABLE t (a INT PRIMARY KEY, b INT)")
	assert.True(t, delta.Created)
	delta = apply(t, b, "ALTER TABLE t ADD COLUMN c VARCHAR(64)")
	assert.True(t, delta.Altered)

	tbl, ok := b.Catalog().Table("t")
	require.True(t, ok)
	require.Equal(t, 3, tbl.NumColumns())
	assert.Equal(t, []string{"a", "b", "c"}, tbl.ColumnNames())

	a, ok := tbl.Column("a")
	require.True(t, ok)
	assert.True(t, a.NotNull, "inline PRIMARY KEY implies NOT NULL")

	pk, ok := tbl.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, pk.Columns)
	assert.Empty(t, b.Catalog().Failures())
}

func TestBuilderReparseYieldsEqualTables(t *testing.T) {
	ddl := []string{
		"CREATE TABLE t (a INT PRIMARY KEY, b VARCHAR(32) NOT NULL DEFAULT 'x')",
		"ALTER TABLE t ADD COLUMN c INT",
	}

	build := func() *Table {
		b := NewBuilder(NewCatalog())
		for _, sql := range ddl {
			apply(t, b, sql)
		}
		tbl, ok := b.Catalog().Table("t")
		require.True(t, ok)
		return tbl
	}

	assert.Equal(t, build(), build())
}

func TestBuilderDuplicateCreateKeepsFirst(t *testing.T) {
	b := NewBuilder(NewCatalog())

	apply(t, b, "CREATE TABLE t (first_col INT)")
	delta := apply(t, b, "CREATE TABLE t (second_col INT)")
	assert.True(t, delta.Skipped)

	tbl, ok := b.Catalog().Table("t")
	require.True(t, ok)
	_, hasFirst := tbl.Column("first_col")
	_, hasSecond := tbl.Column("second_col")
	assert.True(t, hasFirst)
	assert.False(t, hasSecond)

	failures := b.Catalog().Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, FailDuplicateTable, failures[0].Kind)
}

func TestBuilderAlterUnknownTableSkipped(t *testing.T) {
	b := NewBuilder(NewCatalog())

	delta := apply(t, b, "ALTER TABLE missing ADD COLUMN x INT")
	assert.True(t, delta.Skipped)
	assert.Equal(t, 0, b.Catalog().NumTables())

	failures := b.Catalog().Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, FailUnknownTable, failures[0].Kind)
	assert.Equal(t, "missing", failures[0].Table)
}

func TestBuilderForwardForeignKeyResolution(t *testing.T) {
	b := NewBuilder(NewCatalog())

	// child references parent before parent is defined
	apply(t, b, "CREATE TABLE orders (id INT PRIMARY KEY, user_id INT REFERENCES users(id))")
	apply(t, b, "CREATE TABLE users (id INT PRIMARY KEY, name TEXT)")

	resolved, unresolved := b.Catalog().ResolveForeignKeys()
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 0, unresolved)

	orders, ok := b.Catalog().Table("orders")
	require.True(t, ok)
	require.Len(t, orders.ForeignKeys, 1)
	fk := orders.ForeignKeys[0]
	assert.True(t, fk.Resolved)
	assert.Equal(t, "users", fk.RefTable)
	assert.Equal(t, []string{"user_id"}, fk.Columns)
	assert.Equal(t, []string{"id"}, fk.RefColumns)
}

func TestBuilderUnresolvedForeignKey(t *testing.T) {
	b := NewBuilder(NewCatalog())

	apply(t, b, "CREATE TABLE orders (id INT, user_id INT, FOREIGN KEY (user_id) REFERENCES nowhere(id))")

	resolved, unresolved := b.Catalog().ResolveForeignKeys()
	assert.Equal(t, 0, resolved)
	assert.Equal(t, 1, unresolved)

	orders, ok := b.Catalog().Table("orders")
	require.True(t, ok)
	require.Len(t, orders.ForeignKeys, 1)
	assert.False(t, orders.ForeignKeys[0].Resolved)
}

func TestBuilderCreateIndex(t *testing.T) {
	b := NewBuilder(NewCatalog())

	apply(t, b, "CREATE TABLE t (a INT, b INT)")
	delta := apply(t, b, "CREATE UNIQUE INDEX ix_b ON t (b)")
	assert.True(t, delta.Indexed)

	tbl, _ := b.Catalog().Table("t")
	require.Len(t, tbl.Indices, 1)
	assert.Equal(t, "ix_b", tbl.Indices[0].Name)
	assert.True(t, tbl.Indices[0].Unique)
	require.Len(t, tbl.Keys, 1)
	assert.Equal(t, KeyUnique, tbl.Keys[0].Kind)
	assert.Equal(t, []string{"b"}, tbl.Keys[0].Columns)
}

func TestBuilderIndexOnUnknownTable(t *testing.T) {
	b := NewBuilder(NewCatalog())

	delta := apply(t, b, "CREATE INDEX ix ON ghost (x)")
	assert.True(t, delta.Skipped)

	failures := b.Catalog().Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, FailUnknownTable, failures[0].Kind)
}

func TestBuilderAlterActions(t *testing.T) {
	b := NewBuilder(NewCatalog())
	apply(t, b, "CREATE TABLE t (a INT, b VARCHAR(10), c INT)")
	tbl, _ := b.Catalog().Table("t")

	t.Run("modify changes type", func(t *testing.T) {
		apply(t, b, "ALTER TABLE t MODIFY COLUMN b TEXT NOT NULL")
		col, ok := tbl.Column("b")
		require.True(t, ok)
		assert.Equal(t, "text", col.RawType)
		assert.True(t, col.NotNull)
		assert.Equal(t, 1, col.Ordinal, "ordinal survives MODIFY")
	})

	t.Run("change renames column", func(t *testing.T) {
		apply(t, b, "ALTER TABLE t CHANGE COLUMN c renamed INT")
		_, hasOld := tbl.Column("c")
		col, hasNew := tbl.Column("renamed")
		assert.False(t, hasOld)
		require.True(t, hasNew)
		assert.Equal(t, 2, col.Ordinal, "ordinal survives CHANGE")
	})

	t.Run("drop column", func(t *testing.T) {
		apply(t, b, "ALTER TABLE t DROP COLUMN a")
		assert.Equal(t, []string{"b", "renamed"}, tbl.ColumnNames())
	})

	t.Run("rename table", func(t *testing.T) {
		apply(t, b, "ALTER TABLE t RENAME TO u")
		_, oldOK := b.Catalog().Table("t")
		_, newOK := b.Catalog().Table("u")
		assert.False(t, oldOK)
		assert.True(t, newOK)
	})
}

func TestBuilderTableConstraints(t *testing.T) {
	b := NewBuilder(NewCatalog())

	apply(t, b, `CREATE TABLE t (
		a INT NOT NULL,
		b INT,
		PRIMARY KEY (a),
		UNIQUE (b),
		KEY ix_ab (a, b)
	)`)

	tbl, ok := b.Catalog().Table("t")
	require.True(t, ok)

	pk, ok := tbl.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, pk.Columns)

	var kinds []KeyKind
	for _, k := range tbl.Keys {
		kinds = append(kinds, k.Kind)
	}
	assert.Contains(t, kinds, KeyUnique)
	assert.Contains(t, kinds, KeyCandidate)
	require.Len(t, tbl.Indices, 1)
	assert.Equal(t, []string{"a", "b"}, tbl.Indices[0].Columns)
}

func TestBuilderMalformedCreate(t *testing.T) {
	b := NewBuilder(NewCatalog())

	stmt, err := sqllex.Tokenize("CREATE TABLE ()")
	require.NoError(t, err)
	_, err = b.ApplyDDL(stmt)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 0, b.Catalog().NumTables())
}

func TestBuilderCreateTableAsSelectRejected(t *testing.T) {
	b := NewBuilder(NewCatalog())

	stmt, err := sqllex.Tokenize("CREATE TABLE copy_t AS SELECT a, b FROM src")
	require.NoError(t, err)
	_, err = b.ApplyDDL(stmt)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 0, b.Catalog().NumTables(), "a column-less definition is never registered")
}
