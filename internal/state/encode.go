package state

import (
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/sqlharvest/pkg/query"
	"github.com/leapstack-labs/sqlharvest/pkg/schema"
)

// TableDoc is the persisted shape of a table definition. The parser's
// Table keeps its column map private, so persistence flattens it to
// declaration order here.
type TableDoc struct {
	Name        string          `json:"name"`
	Columns     []columnDoc     `json:"columns"`
	Keys        []keyDoc        `json:"keys,omitempty"`
	ForeignKeys []foreignKeyDoc `json:"foreign_keys,omitempty"`
	Indices     []indexDoc      `json:"indices,omitempty"`
}

type columnDoc struct {
	Name     string `json:"name"`
	RawType  string `json:"raw_type,omitempty"`
	Category string `json:"category,omitempty"`
	NotNull  bool   `json:"not_null,omitempty"`
	Default  string `json:"default,omitempty"`
}

type keyDoc struct {
	Kind    string   `json:"kind"`
	Columns []string `json:"columns"`
}

type foreignKeyDoc struct {
	Columns    []string `json:"columns"`
	RefTable   string   `json:"ref_table"`
	RefColumns []string `json:"ref_columns,omitempty"`
	Resolved   bool     `json:"resolved"`
}

type indexDoc struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`
}

// EncodeTable serializes a harvested table for the sink.
func EncodeTable(unitKey string, t *schema.Table) (TableRow, error) {
	doc := TableDoc{Name: t.Name}
	for _, c := range t.Columns() {
		doc.Columns = append(doc.Columns, columnDoc{
			Name:     c.Name,
			RawType:  c.RawType,
			Category: c.Category,
			NotNull:  c.NotNull,
			Default:  c.Default,
		})
	}
	for _, k := range t.Keys {
		doc.Keys = append(doc.Keys, keyDoc{Kind: k.Kind.String(), Columns: k.Columns})
	}
	for _, fk := range t.ForeignKeys {
		doc.ForeignKeys = append(doc.ForeignKeys, foreignKeyDoc{
			Columns:    fk.Columns,
			RefTable:   fk.RefTable,
			RefColumns: fk.RefColumns,
			Resolved:   fk.Resolved,
		})
	}
	for _, ix := range t.Indices {
		doc.Indices = append(doc.Indices, indexDoc{Name: ix.Name, Columns: ix.Columns, Unique: ix.Unique})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return TableRow{}, fmt.Errorf("encoding table %s: %w", t.Name, err)
	}
	return TableRow{UnitKey: unitKey, Name: t.Name, Definition: string(data)}, nil
}

// DecodeTable parses a persisted definition back into its document
// form for export and reporting.
func DecodeTable(row TableRow) (*TableDoc, error) {
	var doc TableDoc
	if err := json.Unmarshal([]byte(row.Definition), &doc); err != nil {
		return nil, fmt.Errorf("decoding table %s: %w", row.Name, err)
	}
	return &doc, nil
}

// EncodeQuery serializes a harvested query scope for the sink. Query
// entities are all exported fields, so they marshal directly.
func EncodeQuery(unitKey string, q *query.Query) (QueryRow, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return QueryRow{}, fmt.Errorf("encoding query (stmt %d scope %d): %w", q.StatementIndex, q.ScopeID, err)
	}
	return QueryRow{
		UnitKey:        unitKey,
		StatementIndex: q.StatementIndex,
		ScopeID:        q.ScopeID,
		Definition:     string(data),
	}, nil
}
