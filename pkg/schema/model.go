// Package schema builds and holds the table model mined from DDL
// statements: tables, columns, keys, foreign keys, and indices.
package schema

import "strings"

// KeyKind distinguishes the constraint kinds that introduce keys.
type KeyKind int

const (
	// KeyPrimary is a PRIMARY KEY constraint.
	KeyPrimary KeyKind = iota
	// KeyUnique is a UNIQUE constraint.
	KeyUnique
	// KeyCandidate is a non-unique KEY/INDEX clause inside CREATE TABLE.
	KeyCandidate
)

// String returns the kind name used in serialized output.
func (k KeyKind) String() string {
	switch k {
	case KeyPrimary:
		return "primary"
	case KeyUnique:
		return "unique"
	default:
		return "candidate"
	}
}

// Column is one column definition. Columns are owned exclusively by
// their Table.
type Column struct {
	Name     string // case-normalized
	RawType  string // declared type as written, size parens stripped
	Category string // normalized type category, "" when unknown
	NotNull  bool
	Default  string // default expression, "" when absent
	Ordinal  int    // 0-based declaration position
}

// Key references columns of its owning table by name, in declaration
// order. The references are resolved by lookup, never by pointer.
type Key struct {
	Kind    KeyKind
	Columns []string
}

// ForeignKey links child columns to a referenced table. Unresolved is
// a first-class state: the target may simply not be defined in this
// processing unit.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
	Resolved   bool
}

// Index is a secondary index on the owning table.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table is the mined definition of one table. Column iteration order
// always equals declaration order.
type Table struct {
	Name        string
	columns     map[string]*Column
	order       []string
	Keys        []Key
	ForeignKeys []ForeignKey
	Indices     []Index
}

// NewTable creates an empty table with a case-normalized name.
func NewTable(name string) *Table {
	return &Table{
		Name:    Normalize(name),
		columns: make(map[string]*Column),
	}
}

// Normalize lowercases an identifier so lookups are case-insensitive.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddColumn appends a column. Returns false when a column with the
// same name already exists; the first definition wins.
func (t *Table) AddColumn(col *Column) bool {
	name := Normalize(col.Name)
	if _, ok := t.columns[name]; ok {
		return false
	}
	col.Name = name
	col.Ordinal = len(t.order)
	t.columns[name] = col
	t.order = append(t.order, name)
	return true
}

// DropColumn removes a column by name. Ordinals of later columns shift
// down, matching declaration order after the drop.
func (t *Table) DropColumn(name string) bool {
	name = Normalize(name)
	if _, ok := t.columns[name]; !ok {
		return false
	}
	delete(t.columns, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	for i, n := range t.order {
		t.columns[n].Ordinal = i
	}
	return true
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	col, ok := t.columns[Normalize(name)]
	return col, ok
}

// Columns returns all columns in declaration order.
func (t *Table) Columns() []*Column {
	cols := make([]*Column, 0, len(t.order))
	for _, name := range t.order {
		cols = append(cols, t.columns[name])
	}
	return cols
}

// ColumnNames returns column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.order))
	copy(names, t.order)
	return names
}

// NumColumns returns the column count.
func (t *Table) NumColumns() int {
	return len(t.order)
}

// HasColumns reports whether every name in cols exists on the table.
func (t *Table) HasColumns(cols []string) bool {
	for _, c := range cols {
		if _, ok := t.columns[Normalize(c)]; !ok {
			return false
		}
	}
	return true
}

// PrimaryKey returns the primary key, if any.
func (t *Table) PrimaryKey() (Key, bool) {
	for _, k := range t.Keys {
		if k.Kind == KeyPrimary {
			return k, true
		}
	}
	return Key{}, false
}

// normalizeCategory maps a raw declared type to a coarse category.
// Unknown types map to "" rather than failing; the corpus declares
// types from every dialect and a few from none.
func normalizeCategory(rawType string) string {
	base := strings.ToLower(rawType)
	if i := strings.IndexAny(base, " ("); i >= 0 {
		base = base[:i]
	}
	switch base {
	case "int", "integer", "smallint", "bigint", "tinyint", "mediumint", "serial", "bigserial", "number":
		return "integer"
	case "float", "double", "real", "decimal", "numeric", "money":
		return "real"
	case "char", "varchar", "varchar2", "nvarchar", "nchar", "text", "tinytext", "mediumtext", "longtext", "clob", "string":
		return "text"
	case "date", "time", "datetime", "timestamp", "year", "interval":
		return "datetime"
	case "bool", "boolean", "bit":
		return "boolean"
	case "blob", "binary", "varbinary", "bytea", "tinyblob", "mediumblob", "longblob":
		return "binary"
	default:
		return ""
	}
}
