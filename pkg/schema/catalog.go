package schema

// FailureKind categorizes soft failures recorded while building a
// catalog. These never abort the processing unit; they feed the run
// statistics.
type FailureKind string

const (
	// FailDuplicateTable marks a CREATE TABLE for a name that already
	// exists. The first definition is kept.
	FailDuplicateTable FailureKind = "duplicate_table"
	// FailUnknownTable marks an ALTER TABLE or CREATE INDEX whose
	// target table was never defined in this unit.
	FailUnknownTable FailureKind = "unknown_table"
	// FailUnknownColumn marks a constraint that references a column
	// missing from its table.
	FailUnknownColumn FailureKind = "unknown_column"
	// FailMalformed marks DDL the builder could not parse at all.
	FailMalformed FailureKind = "malformed"
)

// Failure is one recorded soft failure.
type Failure struct {
	Kind    FailureKind
	Table   string
	Message string
}

// Catalog is the set of tables mined from one processing unit. It is
// built single-threaded and never shared while under construction.
type Catalog struct {
	tables   map[string]*Table
	order    []string
	failures []Failure
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

// Table returns the table with the given name.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[Normalize(name)]
	return t, ok
}

// Tables returns all tables in definition order.
func (c *Catalog) Tables() []*Table {
	out := make([]*Table, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tables[name])
	}
	return out
}

// NumTables returns the table count.
func (c *Catalog) NumTables() int {
	return len(c.order)
}

// add registers a new table. Returns false when the name is taken;
// the existing definition is kept untouched.
func (c *Catalog) add(t *Table) bool {
	if _, ok := c.tables[t.Name]; ok {
		return false
	}
	c.tables[t.Name] = t
	c.order = append(c.order, t.Name)
	return true
}

// recordFailure appends a soft failure.
func (c *Catalog) recordFailure(kind FailureKind, table, message string) {
	c.failures = append(c.failures, Failure{Kind: kind, Table: table, Message: message})
}

// Failures returns all soft failures recorded so far.
func (c *Catalog) Failures() []Failure {
	return c.failures
}

// ResolveForeignKeys runs the deferred resolution pass over every
// table. Foreign keys whose target became known after their ALTER or
// CREATE was applied flip to resolved; keys whose referenced columns
// don't exist stay unresolved. Returns resolved and unresolved counts.
func (c *Catalog) ResolveForeignKeys() (resolved, unresolved int) {
	for _, name := range c.order {
		t := c.tables[name]
		for i := range t.ForeignKeys {
			fk := &t.ForeignKeys[i]
			if fk.Resolved {
				resolved++
				continue
			}
			target, ok := c.tables[Normalize(fk.RefTable)]
			if ok && refColumnsValid(target, fk.RefColumns) {
				fk.Resolved = true
				resolved++
			} else {
				unresolved++
			}
		}
	}
	return resolved, unresolved
}

// refColumnsValid checks referenced columns against the target table.
// An empty reference list is valid: it means "the target's primary
// key" in most dialects.
func refColumnsValid(target *Table, cols []string) bool {
	if len(cols) == 0 {
		return true
	}
	return target.HasColumns(cols)
}
