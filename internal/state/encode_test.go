package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlharvest/pkg/query"
	"github.com/leapstack-labs/sqlharvest/pkg/schema"
)

func TestEncodeTableRoundTrip(t *testing.T) {
	tbl := schema.NewTable("Users")
	tbl.AddColumn(&schema.Column{Name: "ID", RawType: "int", Category: "int", NotNull: true})
	tbl.AddColumn(&schema.Column{Name: "email", RawType: "varchar", Category: "text"})
	tbl.Keys = append(tbl.Keys, schema.Key{Kind: schema.KeyPrimary, Columns: []string{"id"}})
	tbl.ForeignKeys = append(tbl.ForeignKeys, schema.ForeignKey{
		Columns: []string{"team_id"}, RefTable: "teams", Resolved: true,
	})
	tbl.Indices = append(tbl.Indices, schema.Index{Name: "ix_email", Columns: []string{"email"}, Unique: true})

	row, err := EncodeTable("a/x", tbl)
	require.NoError(t, err)
	assert.Equal(t, "a/x", row.UnitKey)
	assert.Equal(t, "users", row.Name)

	doc, err := DecodeTable(row)
	require.NoError(t, err)
	assert.Equal(t, "users", doc.Name)
	require.Len(t, doc.Columns, 2)
	assert.Equal(t, "id", doc.Columns[0].Name, "declaration order survives the round trip")
	assert.True(t, doc.Columns[0].NotNull)
	require.Len(t, doc.Keys, 1)
	assert.Equal(t, "primary", doc.Keys[0].Kind)
	require.Len(t, doc.ForeignKeys, 1)
	assert.True(t, doc.ForeignKeys[0].Resolved)
	require.Len(t, doc.Indices, 1)
	assert.True(t, doc.Indices[0].Unique)
}

func TestEncodeQuery(t *testing.T) {
	q := &query.Query{
		ScopeID:        1,
		StatementIndex: 3,
		Projections:    []query.Projection{{Expr: "*", Wildcard: true}},
	}

	row, err := EncodeQuery("a/x", q)
	require.NoError(t, err)
	assert.Equal(t, 3, row.StatementIndex)
	assert.Equal(t, 1, row.ScopeID)

	var decoded query.Query
	require.NoError(t, json.Unmarshal([]byte(row.Definition), &decoded))
	assert.Equal(t, q.ScopeID, decoded.ScopeID)
	require.Len(t, decoded.Projections, 1)
	assert.True(t, decoded.Projections[0].Wildcard)
}
