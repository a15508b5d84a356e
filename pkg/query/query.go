// Package query decomposes SELECT statements into lexical scopes and
// extracts join, projection, aggregation, selection, and group-by
// structure per scope.
package query

// InstanceKind describes how a FROM/JOIN binding resolved.
type InstanceKind int

const (
	// InstanceUnresolved means the referenced table name was not found
	// in the unit's catalog. A valid terminal state, not an error.
	InstanceUnresolved InstanceKind = iota
	// InstanceResolved means the name matched a catalog table.
	InstanceResolved
	// InstanceSubquery means the binding aliases a subquery's result.
	InstanceSubquery
)

// String returns the kind name used in serialized output.
func (k InstanceKind) String() string {
	switch k {
	case InstanceResolved:
		return "resolved"
	case InstanceSubquery:
		return "subquery"
	default:
		return "unresolved"
	}
}

// TableInstance is one binding introduced by a FROM or JOIN clause.
type TableInstance struct {
	Name  string // case-normalized table name, "" for subqueries
	Alias string // "" when unaliased
	Kind  InstanceKind
}

// EffectiveName returns the name the instance is referenced by.
func (ti TableInstance) EffectiveName() string {
	if ti.Alias != "" {
		return ti.Alias
	}
	return ti.Name
}

// JoinKind is how two table instances were combined.
type JoinKind string

const (
	JoinInner JoinKind = "inner"
	JoinLeft  JoinKind = "left"
	JoinRight JoinKind = "right"
	JoinFull  JoinKind = "full"
	JoinCross JoinKind = "cross"
	// JoinComma is an implicit comma join; its condition, if any,
	// lives in WHERE and is not cross-correlated here.
	JoinComma JoinKind = "comma"
)

// CompareOp is a predicate operator. Inequality (!= and <>) is
// deliberately not captured; downstream statistics are defined over
// this operator set.
type CompareOp string

const (
	OpEq      CompareOp = "eq"
	OpLt      CompareOp = "lt"
	OpGt      CompareOp = "gt"
	OpLtEq    CompareOp = "lteq"
	OpGtEq    CompareOp = "gteq"
	OpLike    CompareOp = "like"
	OpIn      CompareOp = "in"
	OpBetween CompareOp = "between"
	OpIsNull  CompareOp = "isnull"
)

// ColumnRef is a possibly-qualified column reference. Unqualified
// references are bound to the scope's single FROM table when that is
// unambiguous; otherwise Ambiguous is set and the qualifier stays
// empty.
type ColumnRef struct {
	Qualifier string
	Name      string
	Ambiguous bool
}

// JoinCondition is one ON/USING predicate pair.
type JoinCondition struct {
	Left  ColumnRef
	Op    CompareOp
	Right ColumnRef
	// RightExpr holds a literal or expression right side when the
	// condition is not column/column.
	RightExpr string
}

// BinaryJoin combines two table instances. Comma joins carry an empty
// condition list.
type BinaryJoin struct {
	Left       TableInstance
	Right      TableInstance
	Kind       JoinKind
	Conditions []JoinCondition
}

// Projection is one SELECT-list output expression.
type Projection struct {
	Expr   string     // raw expression text
	Column *ColumnRef // set when the expression is a bare column
	Alias  string
	// Wildcard marks the unexpanded `*` sentinel; column-level
	// expansion needs schema resolution that may be unavailable.
	Wildcard bool
}

// Aggregation is one recognized aggregate call from the SELECT list
// or HAVING clause.
type Aggregation struct {
	Func  string
	Arg   string
	Alias string
}

// Predicate is a node in the WHERE predicate tree. Leaves carry a
// Condition; interior nodes carry a logic operator and children.
type Predicate struct {
	Logic    string // "and", "or", "not"; "" for leaves
	Children []*Predicate
	Cond     *Condition
}

// Condition is one comparison leaf.
type Condition struct {
	Left  ColumnRef
	Op    CompareOp
	Right ColumnRef // zero value when the right side is not a column
	Value string    // literal/expression right side, "" for column/column
}

// Query is the extraction result for one scope. It exists only if at
// least one of the five clause lists is non-empty.
type Query struct {
	ScopeID        int
	StatementIndex int

	Joins        []BinaryJoin
	Projections  []Projection
	Aggregations []Aggregation
	Selection    *Predicate
	GroupBy      []ColumnRef

	// Instances are the FROM bindings of this scope, unresolved ones
	// included so missing-table analysis can see them.
	Instances []TableInstance
	// AmbiguousColumns records unqualified references that could not
	// be bound to a single table. Recorded, never guessed.
	AmbiguousColumns []string
}

// Empty reports whether all five extractions came back empty.
func (q *Query) Empty() bool {
	return len(q.Joins) == 0 &&
		len(q.Projections) == 0 &&
		len(q.Aggregations) == 0 &&
		q.Selection == nil &&
		len(q.GroupBy) == 0
}
