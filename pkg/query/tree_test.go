package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlharvest/pkg/sqllex"
)

func tokenize(t *testing.T, sql string) *sqllex.Statement {
	t.Helper()
	stmt, err := sqllex.Tokenize(sql)
	require.NoError(t, err)
	return stmt
}

func TestBuildTreeFlat(t *testing.T) {
	tree, err := BuildTree(tokenize(t, "SELECT a FROM t WHERE a > 1"))
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 1)
	assert.Equal(t, -1, tree.Nodes[0].Parent)
	assert.Empty(t, tree.Nodes[0].Children)
}

func TestBuildTreeNesting(t *testing.T) {
	tree, err := BuildTree(tokenize(t,
		"SELECT a FROM (SELECT b FROM (SELECT c FROM t) x) y"))
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 3)

	root := tree.Nodes[0]
	require.Len(t, root.Children, 1)
	mid, ok := tree.Node(root.Children[0])
	require.True(t, ok)
	assert.Equal(t, root.ID, mid.Parent)
	require.Len(t, mid.Children, 1)
	leaf, ok := tree.Node(mid.Children[0])
	require.True(t, ok)
	assert.Equal(t, mid.ID, leaf.Parent)
	assert.Empty(t, leaf.Children)
}

func TestBuildTreeOwnTokensExcludeChildren(t *testing.T) {
	tree, err := BuildTree(tokenize(t, "SELECT a FROM (SELECT hidden FROM u) d"))
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 2)

	for _, tok := range tree.Nodes[0].Tokens {
		assert.NotEqual(t, "hidden", tok.Literal, "child tokens must be cut from the parent")
	}
	var sawHidden bool
	for _, tok := range tree.Nodes[1].Tokens {
		if tok.Literal == "hidden" {
			sawHidden = true
		}
	}
	assert.True(t, sawHidden)
}

func TestBuildTreeSetOperationBranches(t *testing.T) {
	tree, err := BuildTree(tokenize(t,
		"SELECT a FROM t UNION SELECT b FROM u UNION ALL SELECT c FROM v"))
	require.NoError(t, err)
	// root holds the first branch; each set-op SELECT opens a sibling
	require.Len(t, tree.Nodes, 3)
	assert.Equal(t, []int{1, 2}, tree.Nodes[0].Children)
	for _, id := range tree.Nodes[0].Children {
		n, _ := tree.Node(id)
		assert.False(t, n.Unparsed)
	}
}

func TestBuildTreeNoSelect(t *testing.T) {
	_, err := BuildTree(tokenize(t, "DELETE FROM t"))
	var treeErr *TreeError
	require.ErrorAs(t, err, &treeErr)
}

func TestBuildTreeUnbalancedParens(t *testing.T) {
	tree, err := BuildTree(tokenize(t, "SELECT a FROM (SELECT b FROM u"))
	require.NoError(t, err)
	require.Len(t, tree.Nodes, 2)
	assert.True(t, tree.Nodes[1].Unparsed, "unterminated subquery degrades to unparsed")
	assert.False(t, tree.Nodes[0].Unparsed)
}
