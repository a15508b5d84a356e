package schema

import (
	"fmt"

	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// ParseError reports DDL the builder could not interpret. The
// statement is skipped; the unit continues.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schema parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// UnresolvedError reports a reference to a table that is not defined
// in the current unit. It is recorded, never fatal.
type UnresolvedError struct {
	Table string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved table reference %q", e.Table)
}
