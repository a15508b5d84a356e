package query

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/sqlharvest/pkg/sqllex"
	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// TreeError reports a statement whose root SELECT could not be
// located at all; the statement is excluded from query results.
type TreeError struct {
	Message string
}

func (e *TreeError) Error() string {
	return fmt.Sprintf("query tree error: %s", e.Message)
}

// Node is one lexical scope. Parent and child links are arena indices,
// never pointers; the tree alone owns node lifetime.
type Node struct {
	ID       int
	Parent   int // -1 for the root
	Children []int

	// Start/End bound the node's full token range within the
	// statement, half-open.
	Start, End int

	// Tokens is the node's own token slice with child ranges cut out,
	// so clause extractors never see a child's tokens.
	Tokens []token.Token

	// Unparsed marks a scope whose boundaries could not be recovered
	// (unbalanced parens). It is excluded from extraction without
	// failing its ancestors.
	Unparsed bool
}

// Tree is the scope arena for one statement.
type Tree struct {
	Nodes     []*Node
	Root      int
	Statement *sqllex.Statement
}

// Node returns the node with the given scope id.
func (t *Tree) Node(id int) (*Node, bool) {
	if id < 0 || id >= len(t.Nodes) {
		return nil, false
	}
	return t.Nodes[id], true
}

// frame is one entry on the explicit scope-discovery stack.
type frame struct {
	id        int
	baseDepth int  // paren depth of this scope's own tokens
	branch    bool // set-operation branch (closed by a set-op keyword)
	sawSetOp  bool
}

// BuildTree discovers the lexical scopes of one query statement. A new
// scope begins at each parenthesized SELECT (FROM subqueries, EXISTS/IN
// subqueries, scalar subqueries) and at each set-operation branch.
// Nesting is unbounded, so discovery walks the token stream once with
// an explicit stack instead of recursing.
func BuildTree(stmt *sqllex.Statement) (*Tree, error) {
	toks := stmt.Tokens

	hasSelect := false
	for _, tok := range toks {
		if tok.Type == token.TOKEN_SELECT {
			hasSelect = true
			break
		}
	}
	if !hasSelect {
		return nil, &TreeError{Message: "no SELECT keyword in statement"}
	}

	tree := &Tree{Statement: stmt, Root: 0}
	root := &Node{ID: 0, Parent: -1, Start: 0, End: len(toks)}
	tree.Nodes = append(tree.Nodes, root)

	stack := []frame{{id: 0, baseDepth: 0}}
	depth := 0

	newNode := func(parent, start, baseDepth int, branch bool) {
		n := &Node{ID: len(tree.Nodes), Parent: parent, Start: start, End: -1}
		tree.Nodes = append(tree.Nodes, n)
		tree.Nodes[parent].Children = append(tree.Nodes[parent].Children, n.ID)
		stack = append(stack, frame{id: n.ID, baseDepth: baseDepth, branch: branch})
	}

	closeTop := func(end int) {
		top := stack[len(stack)-1]
		tree.Nodes[top.id].End = end
		stack = stack[:len(stack)-1]
	}

	for i := 0; i < len(toks); i++ {
		switch toks[i].Type {
		case token.TOKEN_LPAREN:
			if i+1 < len(toks) && toks[i+1].Type == token.TOKEN_SELECT {
				newNode(stack[len(stack)-1].id, i+1, depth+1, false)
			}
			depth++

		case token.TOKEN_RPAREN:
			if depth > 0 {
				depth--
			}
			for len(stack) > 1 && depth < stack[len(stack)-1].baseDepth {
				closeTop(i)
			}

		case token.TOKEN_UNION, token.TOKEN_INTERSECT, token.TOKEN_EXCEPT:
			top := &stack[len(stack)-1]
			if top.branch && depth == top.baseDepth {
				closeTop(i)
				top = &stack[len(stack)-1]
			}
			if depth == top.baseDepth {
				top.sawSetOp = true
			}

		case token.TOKEN_SELECT:
			top := &stack[len(stack)-1]
			if top.sawSetOp && depth == top.baseDepth {
				top.sawSetOp = false
				newNode(top.id, i, depth, true)
			}
		}
	}

	// Close whatever remains open at end of input. The root always
	// remains; an unterminated subquery scope degrades to unparsed.
	for len(stack) > 1 {
		top := stack[len(stack)-1]
		tree.Nodes[top.id].End = len(toks)
		if !top.branch {
			tree.Nodes[top.id].Unparsed = true
		}
		stack = stack[:len(stack)-1]
	}

	sliceOwnTokens(tree, toks)
	return tree, nil
}

// sliceOwnTokens fills each node's Tokens with its range minus the
// ranges of its children.
func sliceOwnTokens(tree *Tree, toks []token.Token) {
	for _, n := range tree.Nodes {
		children := make([]*Node, 0, len(n.Children))
		for _, id := range n.Children {
			children = append(children, tree.Nodes[id])
		}
		sort.Slice(children, func(i, j int) bool {
			return children[i].Start < children[j].Start
		})

		own := make([]token.Token, 0, n.End-n.Start)
		pos := n.Start
		for _, c := range children {
			if c.Start > pos {
				own = append(own, toks[pos:min(c.Start, n.End)]...)
			}
			if c.End > pos {
				pos = c.End
			}
		}
		if pos < n.End {
			own = append(own, toks[pos:n.End]...)
		}
		n.Tokens = own
	}
}
